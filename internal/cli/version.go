package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docsync/internal/storage"
)

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("docsync version %s\n", version)
			cmd.Printf("Build Mode: %s, SQLite Driver: %s\n", storage.BuildMode, storage.DriverName)
		},
	}
}
