package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docsync/internal/searcher"
	"github.com/dshills/docsync/internal/storage"
)

func newSearchCmd() *cobra.Command {
	var (
		limit    int
		minScore float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find stored documents similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.EnsureSchema(a.ctx); err != nil {
				return err
			}

			srch := searcher.NewSearcher(a.store, a.emb)
			resp, err := srch.Search(a.ctx, searcher.SearchRequest{
				Query:    strings.Join(args, " "),
				Limit:    limit,
				MinScore: minScore,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp.Results)
			}

			if len(resp.Results) == 0 {
				writeLine(out, "No matching documents (%d records searched)", resp.TotalRecords)
				return nil
			}
			for _, r := range resp.Results {
				writeLine(out, "%d. %s (%.3f)", r.Rank, r.Identity, r.RelevanceScore)
				writeLine(out, "   %s", strings.ReplaceAll(r.Preview, "\n", " "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", searcher.DefaultLimit, "maximum number of results (1-100)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop results below this similarity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the store location and record count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.EnsureSchema(a.ctx); err != nil {
				return err
			}
			count, err := a.store.Count(a.ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			writeLine(out, "Store:     %s", a.store.Describe())
			writeLine(out, "Records:   %d", count)
			writeLine(out, "Provider:  %s (%s, dimension %d)", a.emb.Provider(), a.emb.Model(), a.emb.Dimension())
			if a.cfg.Source != "" {
				writeLine(out, "Source:    %s", a.cfg.Source)
			}
			if a.cfg.Store.Driver == storage.DriverSQLite {
				writeLine(out, "SQLite:    %s (%s build)", storage.DriverName, storage.BuildMode)
			}
			return nil
		},
	}
}
