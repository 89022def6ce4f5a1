package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docsync/internal/reconcile"
)

func newSyncCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the store with the source directory",
		Long: `Scans the source directory, embeds new and changed documents,
deletes records of removed documents and prints a summary.

Exit status is 0 on success, 1 when documents were truncated or skipped,
2 on configuration errors and 3 when the provider or store aborted the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			rec := reconcile.New(a.store, a.emb, a.cfg.ReconcileConfig())
			report, err := rec.Run(a.ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				err = report.WriteJSON(out)
			} else {
				err = report.Render(out)
			}
			if err != nil {
				return err
			}
			if report.ExitCode() != reconcile.ExitOK {
				return &DegradedError{Report: report}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
