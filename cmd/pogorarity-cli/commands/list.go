package commands

import (
	"fmt"
	"os"

	"pogorarity-backend/lib/catalog"
	"pogorarity-backend/lib/export"
	"pogorarity-backend/lib/nameutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCatalogLimit int

func init() {
	listCmd.Flags().IntVar(&listCatalogLimit, "catalog", 0, "also fetch the first N catalog species and show their caught state")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the committed selection state.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, database, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer database.Close()

		snapshot, version := store.Read(ctx)

		if listCatalogLimit <= 0 {
			export.RenderTable(os.Stdout, snapshot, version)
			return
		}

		species, err := catalog.NewClient(catalog.ClientOptions{}).ListSpecies(ctx, listCatalogLimit)
		if err != nil {
			fail(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Entity", "Caught", "Favorite"})
		for _, sp := range species {
			r := snapshot[nameutil.Slugify(sp.Name)]
			t.AppendRow(table.Row{sp.Name, r.Caught, r.Favorite})
		}
		t.AppendFooter(table.Row{"version", version})
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("%d/%d caught\n", snapshot.CaughtSize(), len(species))
	},
}
