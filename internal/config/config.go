package config

import (
	"time"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/internal/reconcile"
	"github.com/dshills/docsync/internal/scanner"
	"github.com/dshills/docsync/internal/storage"
)

// Config is the complete docsync configuration
type Config struct {
	Source           string   `koanf:"source"             env:"DOCSYNC_SOURCE"`
	Include          []string `koanf:"include"            env:"DOCSYNC_INCLUDE"`
	Exclude          []string `koanf:"exclude"            env:"DOCSYNC_EXCLUDE"`
	MaxContentLength int      `koanf:"max_content_length" env:"DOCSYNC_MAX_CONTENT_LENGTH" validate:"min=1"`

	Store StoreConfig `koanf:"store"`
	Embed EmbedConfig `koanf:"embed"`
	Log   LogConfig   `koanf:"log"`
}

// StoreConfig selects and tunes the document store
type StoreConfig struct {
	Driver      string          `koanf:"driver"       env:"DOCSYNC_STORE_DRIVER"       validate:"oneof=sqlite postgres file"`
	Path        string          `koanf:"path"         env:"DOCSYNC_STORE_PATH"`
	DSN         SensitiveString `koanf:"dsn"          env:"DOCSYNC_STORE_DSN"          sensitive:"true"`
	Table       string          `koanf:"table"        env:"DOCSYNC_STORE_TABLE"        validate:"required,table_name"`
	EnsureIndex bool            `koanf:"ensure_index" env:"DOCSYNC_STORE_ENSURE_INDEX"`
	Concurrency int             `koanf:"concurrency"  env:"DOCSYNC_STORE_CONCURRENCY"  validate:"min=1,max=64"`
	Timeout     time.Duration   `koanf:"timeout"      env:"DOCSYNC_STORE_TIMEOUT"      validate:"gt=0"`
}

// EmbedConfig selects and tunes the embedding provider
type EmbedConfig struct {
	Provider      string          `koanf:"provider"        env:"DOCSYNC_EMBED_PROVIDER"        validate:"oneof=openai jina local"`
	Model         string          `koanf:"model"           env:"DOCSYNC_EMBED_MODEL"`
	Dimension     int             `koanf:"dimension"       env:"DOCSYNC_EMBED_DIMENSION"       validate:"min=0"`
	APIKey        SensitiveString `koanf:"api_key"         env:"DOCSYNC_EMBED_API_KEY"         sensitive:"true"`
	BaseURL       string          `koanf:"base_url"        env:"DOCSYNC_EMBED_BASE_URL"        validate:"omitempty,url"`
	Concurrency   int             `koanf:"concurrency"     env:"DOCSYNC_EMBED_CONCURRENCY"     validate:"min=1,max=64"`
	RatePerSecond float64         `koanf:"rate_per_second" env:"DOCSYNC_EMBED_RATE_PER_SECOND" validate:"min=0"`
	Timeout       time.Duration   `koanf:"timeout"         env:"DOCSYNC_EMBED_TIMEOUT"         validate:"gt=0"`
	CacheSize     int             `koanf:"cache_size"      env:"DOCSYNC_EMBED_CACHE_SIZE"      validate:"min=0"`
	OnError       string          `koanf:"on_error"        env:"DOCSYNC_EMBED_ON_ERROR"        validate:"oneof=fail skip"`
}

// LogConfig controls log output
type LogConfig struct {
	Level string `koanf:"level" env:"DOCSYNC_LOG_LEVEL" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"  env:"DOCSYNC_LOG_JSON"`
}

// SensitiveString is a string that is redacted when printed
type SensitiveString string

// String returns a redacted representation
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the unredacted string
func (s SensitiveString) Value() string {
	return string(s)
}

// MarshalJSON keeps secrets out of serialized configs
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Include:          []string{scanner.DefaultInclude},
		Exclude:          []string{},
		MaxContentLength: scanner.DefaultMaxContentLength,
		Store: StoreConfig{
			Driver:      storage.DriverSQLite,
			Table:       storage.DefaultTable,
			Concurrency: reconcile.DefaultStoreConcurrency,
			Timeout:     reconcile.DefaultStoreTimeout,
		},
		Embed: EmbedConfig{
			Provider:    embedder.ProviderOpenAI,
			Concurrency: reconcile.DefaultEmbedConcurrency,
			Timeout:     reconcile.DefaultEmbedTimeout,
			CacheSize:   1000,
			OnError:     string(reconcile.FailFast),
		},
		Log: LogConfig{
			Level: string(logger.InfoLevel),
		},
	}
}

// StorePath returns the configured store path or the driver's default
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Driver {
	case storage.DriverFile:
		return storage.DefaultFilePath
	case storage.DriverSQLite:
		return storage.DefaultSQLitePath
	default:
		return ""
	}
}

// StorageConfig converts to the storage factory configuration
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:      c.Store.Driver,
		Path:        c.StorePath(),
		DSN:         c.Store.DSN.Value(),
		Table:       c.Store.Table,
		Dimension:   c.EmbedDimension(),
		EnsureIndex: c.Store.EnsureIndex,
	}
}

// EmbedderConfig converts to the embedder factory configuration
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:      c.Embed.Provider,
		Model:         c.Embed.Model,
		APIKey:        c.Embed.APIKey.Value(),
		BaseURL:       c.Embed.BaseURL,
		Dimension:     c.Embed.Dimension,
		Timeout:       c.Embed.Timeout,
		CacheSize:     c.Embed.CacheSize,
		RatePerSecond: c.Embed.RatePerSecond,
	}
}

// EmbedDimension returns the configured dimension or the model's native one.
// Zero means the dimension is only known once the provider is created.
func (c *Config) EmbedDimension() int {
	if c.Embed.Dimension > 0 {
		return c.Embed.Dimension
	}
	if c.Embed.Provider == embedder.ProviderLocal {
		return embedder.LocalDimension
	}
	model := c.Embed.Model
	if model == "" {
		model = defaultModel(c.Embed.Provider)
	}
	dim, _ := embedder.ModelDimension(model)
	return dim
}

// ReconcileConfig converts to the reconciler configuration
func (c *Config) ReconcileConfig() reconcile.Config {
	// on_error is already validated; an unknown value falls back to fail-fast
	policy, err := reconcile.ParseFailurePolicy(c.Embed.OnError)
	if err != nil {
		policy = reconcile.FailFast
	}
	return reconcile.Config{
		Source: c.Source,
		Scanner: scanner.Config{
			Include:          c.Include,
			Exclude:          c.Exclude,
			MaxContentLength: c.MaxContentLength,
		},
		Embed: reconcile.ResolverConfig{
			Concurrency: c.Embed.Concurrency,
			Timeout:     c.Embed.Timeout,
			Dimension:   c.Embed.Dimension,
			Policy:      policy,
		},
		Store: reconcile.ApplyConfig{
			Concurrency: c.Store.Concurrency,
			Timeout:     c.Store.Timeout,
		},
	}
}

// LoggerConfig converts to the logger configuration
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.Log.Level)
	cfg.JSON = c.Log.JSON
	return cfg
}

func defaultModel(provider string) string {
	switch provider {
	case embedder.ProviderJina:
		return embedder.DefaultJinaModel
	case embedder.ProviderOpenAI:
		return embedder.DefaultOpenAIModel
	default:
		return embedder.DefaultLocalModel
	}
}
