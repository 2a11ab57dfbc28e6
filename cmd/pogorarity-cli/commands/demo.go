package commands

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"pogorarity-backend/lib/export"
	"pogorarity-backend/services/selection"
	selectiondb "pogorarity-backend/services/selection/db"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(demoCmd)
}

// reproduction of the stale-write race that used to lose selections:
// version 1 is persisted with artificial latency while version 2 lands
// immediately, the delayed write must be rejected when it arrives.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Demonstrates that a delayed stale write cannot clobber a newer snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			fail(err)
		}
		defer database.Close()
		database.SetMaxOpenConns(1)
		_, err = database.Exec(selectiondb.Schema)
		if err != nil {
			fail(err)
		}

		store, err := selection.NewStore(ctx, database, nil)
		if err != nil {
			fail(err)
		}

		now := time.Now()
		v1 := selection.Snapshot{
			"bulbasaur": {Caught: true, UpdatedAt: now},
		}
		v2 := selection.Snapshot{
			"bulbasaur": {Caught: true, UpdatedAt: now},
			"ivysaur":   {Caught: true, UpdatedAt: now},
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond * 150)
			outcome, err := store.Write(ctx, v1, 1)
			if err != nil {
				fail(err)
			}
			fmt.Printf("write v1 (delayed): %s\n", outcome)
		}()

		outcome, err := store.Write(ctx, v2, 2)
		if err != nil {
			fail(err)
		}
		fmt.Printf("write v2 (immediate): %s\n", outcome)
		wg.Wait()

		snapshot, version := store.Read(ctx)
		export.RenderTable(os.Stdout, snapshot, version)
		if version != 2 {
			fail(fmt.Errorf("stale write overwrote newer state, committed version %d", version))
		}
	},
}
