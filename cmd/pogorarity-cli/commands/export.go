package commands

import (
	"os"

	"pogorarity-backend/lib/export"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Exports the committed selection state as csv, `-` writes to stdout.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, database, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer database.Close()

		snapshot, _ := store.Read(ctx)

		out := os.Stdout
		if args[0] != "-" {
			out, err = os.Create(args[0])
			if err != nil {
				fail(err)
			}
			defer out.Close()
		}
		err = export.WriteCSV(out, snapshot)
		if err != nil {
			fail(err)
		}
	},
}
