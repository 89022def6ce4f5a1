package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/scanner"
	"github.com/dshills/docsync/internal/storage"
)

// EnvPrefix prefixes every docsync environment variable
const EnvPrefix = "DOCSYNC_"

// DefaultEnvFile is read when present in the working directory
const DefaultEnvFile = ".env"

// Options controls where Load reads configuration from
type Options struct {
	EnvFile       string         // dotenv file merged into the process environment when it exists
	Overrides     map[string]any // dotted config paths from explicit flags; highest precedence
	RequireSource bool           // source must name an existing directory
}

var validate = newValidator()

// Load builds the configuration from defaults, the environment and overrides,
// then validates it. Validation problems are returned together as a
// *ConfigurationError.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// structs provider turns the default config into a map keyed by koanf tags
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	paths := envToPath()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key string, value string) (string, any) {
			path, ok := paths[key]
			if !ok {
				return "", nil
			}
			return path, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				sensitiveStringDecodeHook,
			),
		},
	}); err != nil {
		return nil, &ConfigurationError{Problems: []string{err.Error()}}
	}

	applyAPIKeyFallback(&cfg)

	if err := Validate(&cfg, opts.RequireSource); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile merges a dotenv file into the environment without
// overriding variables that are already set. A missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return &ConfigurationError{Problems: []string{fmt.Sprintf("env file %s is not a regular file", path)}}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyAPIKeyFallback reads the provider's conventional key variable
// (OPENAI_API_KEY, JINA_API_KEY) when no key was configured
func applyAPIKeyFallback(cfg *Config) {
	if cfg.Embed.APIKey != "" {
		return
	}
	if name := embedder.APIKeyEnvVar(cfg.Embed.Provider); name != "" {
		cfg.Embed.APIKey = SensitiveString(os.Getenv(name))
	}
}

// sensitiveStringDecodeHook converts strings to SensitiveString
func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(SensitiveString("")) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}

// Validate checks struct tags plus the cross-field rules and reports every
// failure at once
func Validate(cfg *Config, requireSource bool) error {
	if cfg == nil {
		return &ConfigurationError{Problems: []string{"configuration cannot be nil"}}
	}

	problems := &ConfigurationError{}
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems.add("%s", describeFieldError(fe))
			}
		} else {
			problems.add("%v", err)
		}
	}
	validateCustom(cfg, requireSource, problems)
	return problems.errOrNil()
}

// validateCustom performs validation beyond struct tags
func validateCustom(cfg *Config, requireSource bool, problems *ConfigurationError) {
	if requireSource {
		if cfg.Source == "" {
			problems.add("source is required (--source or %sSOURCE)", EnvPrefix)
		} else if err := scanner.ValidateRoot(cfg.Source); err != nil {
			problems.add("source: %v", err)
		}
	}

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			problems.add("invalid glob pattern %q", pattern)
		}
	}

	if cfg.Store.Driver == storage.DriverPostgres && cfg.Store.DSN == "" {
		problems.add("store.dsn is required for the %s driver", storage.DriverPostgres)
	}

	if !slices.Contains(embedder.SupportedProviders(), cfg.Embed.Provider) {
		return
	}
	if embedder.RequiresAPIKey(cfg.Embed.Provider) && cfg.Embed.APIKey == "" {
		problems.add("embed.api_key is required for provider %s (set %sEMBED_API_KEY or %s)",
			cfg.Embed.Provider, EnvPrefix, embedder.APIKeyEnvVar(cfg.Embed.Provider))
	}
	if cfg.EmbedDimension() == 0 {
		problems.add("embed.dimension is required for model %s", cfg.Embed.Model)
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := field.Tag.Get("koanf")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("table_name", func(fl validator.FieldLevel) bool {
		return storage.ValidTableName(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register table_name validation: %v", err))
	}
	return v
}

// describeFieldError renders a validator failure using dotted config paths
func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", path, fe.Param())
	case "url":
		return path + " must be a valid URL"
	case "table_name":
		return fmt.Sprintf("%s %q is not a valid table name", path, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}
