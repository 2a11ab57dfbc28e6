package commands

import (
	"fmt"

	"pogorarity-backend/lib/catalog"
	"pogorarity-backend/lib/nameutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(catchrateCmd)
}

var catchrateCmd = &cobra.Command{
	Use:   "catchrate <name>",
	Short: "Scrapes the base catch rate for an entity from the public dex.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		slug := nameutil.Slugify(args[0])
		rate, err := catalog.NewClient(catalog.ClientOptions{}).CatchRate(ctx, slug)
		if err != nil {
			fail(err)
		}
		fmt.Printf("%s: %d\n", slug, rate)
	},
}
