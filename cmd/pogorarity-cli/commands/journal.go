package commands

import (
	"fmt"
	"os"

	"pogorarity-backend/lib/export"
	"pogorarity-backend/services/selection/eventlog"

	"github.com/spf13/cobra"
)

func init() {
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalCompactCmd)
	rootCmd.AddCommand(journalCmd)
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspects the append-only toggle journal.",
}

var journalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Folds the journal and prints the resulting selection state.",
	Run: func(cmd *cobra.Command, args []string) {
		if journalFile == "" {
			fail(fmt.Errorf("no --journal path given"))
		}
		journal := eventlog.New(journalFile, eventlog.Options{})
		snapshot, count, err := journal.Load()
		if err != nil {
			fail(err)
		}
		export.RenderTable(os.Stdout, snapshot, int64(count))
	},
}

var journalCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrites the journal with the minimal set of events.",
	Run: func(cmd *cobra.Command, args []string) {
		if journalFile == "" {
			fail(fmt.Errorf("no --journal path given"))
		}
		journal := eventlog.New(journalFile, eventlog.Options{})
		err := journal.Compact()
		if err != nil {
			fail(err)
		}
	},
}
