package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/internal/mcp"
	"github.com/dshills/docsync/internal/reconcile"
	"github.com/dshills/docsync/internal/searcher"
)

func newServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
sync_documents, search_documents and get_status tools. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			rec := reconcile.New(a.store, a.emb, a.cfg.ReconcileConfig())
			srv := mcp.NewServer(rec, searcher.NewSearcher(a.store, a.emb), version)

			log := logger.FromContext(a.ctx)
			log.Info("MCP server ready, listening on stdio", "store", a.store.Describe(), "version", version)
			err = srv.Serve(a.ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			log.Info("Server stopped")
			return err
		},
	}
}
