package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/docsync/internal/config"
	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/internal/storage"
)

// flagPaths maps persistent flag names to configuration paths.
// Only flags set explicitly override the environment.
var flagPaths = map[string]string{
	"source":            "source",
	"include":           "include",
	"exclude":           "exclude",
	"max-length":        "max_content_length",
	"store":             "store.driver",
	"store-path":        "store.path",
	"dsn":               "store.dsn",
	"table":             "store.table",
	"ensure-index":      "store.ensure_index",
	"store-concurrency": "store.concurrency",
	"provider":          "embed.provider",
	"model":             "embed.model",
	"dimension":         "embed.dimension",
	"concurrency":       "embed.concurrency",
	"rate":              "embed.rate_per_second",
	"embed-timeout":     "embed.timeout",
	"on-error":          "embed.on_error",
	"log-level":         "log.level",
	"log-json":          "log.json",
}

// NewRootCmd builds the docsync command tree
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "docsync",
		Short: "Keep an embedding store in sync with a directory of documents",
		Long: `docsync scans a directory of text documents, embeds new and changed
documents with an embedding provider, and converges a document store
(SQLite, PostgreSQL with pgvector, or a JSON snapshot) to match.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("env-file", config.DefaultEnvFile, "dotenv file to load when present")
	flags.StringP("source", "s", "", "document directory to synchronize")
	flags.StringSlice("include", nil, "glob patterns of documents to include (default **/*.md)")
	flags.StringSlice("exclude", nil, "glob patterns of documents to exclude")
	flags.Int("max-length", 0, "maximum characters stored per document")
	flags.String("store", "", "store driver: sqlite, postgres or file")
	flags.String("store-path", "", "sqlite database or JSON snapshot path")
	flags.String("dsn", "", "PostgreSQL connection string")
	flags.String("table", "", "table or collection name")
	flags.Bool("ensure-index", false, "create a vector index (postgres)")
	flags.Int("store-concurrency", 0, "parallel store writes")
	flags.String("provider", "", "embedding provider: openai, jina or local")
	flags.String("model", "", "embedding model")
	flags.Int("dimension", 0, "embedding dimension")
	flags.Int("concurrency", 0, "parallel embedding requests")
	flags.Float64("rate", 0, "embedding requests per second (0 = unlimited)")
	flags.Duration("embed-timeout", 0, "timeout per embedding request")
	flags.String("on-error", "", "embedding failure policy: fail or skip")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("log-json", false, "log as JSON")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.ConfigurationError{Problems: []string{err.Error()}}
	})

	root.AddCommand(
		newSyncCmd(),
		newSearchCmd(),
		newStatusCmd(),
		newServeCmd(version),
		newVersionCmd(version),
	)
	return root
}

// overrides collects explicitly set flags as configuration paths
func overrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		path, ok := flagPaths[f.Name]
		if !ok {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			out[path] = sv.GetSlice()
			return
		}
		out[path] = f.Value.String()
	})
	return out
}

// app holds the collaborators shared by the subcommands
type app struct {
	cfg   *config.Config
	emb   embedder.Embedder
	store storage.Store
	ctx   context.Context
}

// setup loads configuration, installs the logger and opens the embedder and
// store. The caller must call close.
func setup(cmd *cobra.Command, requireSource bool) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.Options{
		EnvFile:       envFile,
		Overrides:     overrides(cmd),
		RequireSource: requireSource,
	})
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	log := logger.NewLogger(logCfg)
	ctx := logger.ContextWithLogger(cmd.Context(), log)

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	storeCfg := cfg.StorageConfig()
	storeCfg.Dimension = emb.Dimension()
	store, err := storage.New(ctx, storeCfg)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	log.Debug("Configured",
		"store", store.Describe(),
		"provider", emb.Provider(),
		"model", emb.Model(),
		"dimension", emb.Dimension())

	return &app{cfg: cfg, emb: emb, store: store, ctx: ctx}, nil
}

func (a *app) close() {
	log := logger.FromContext(a.ctx)
	if err := a.store.Close(); err != nil {
		log.Warn("Failed to close store", "error", err)
	}
	if err := a.emb.Close(); err != nil {
		log.Warn("Failed to close embedder", "error", err)
	}
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
