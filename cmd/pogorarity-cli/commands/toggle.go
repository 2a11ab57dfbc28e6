package commands

import (
	"fmt"

	"pogorarity-backend/services/selection"
	"pogorarity-backend/services/selection/eventlog"

	"github.com/spf13/cobra"
)

var toggleFavorite bool

func init() {
	toggleCmd.Flags().BoolVar(&toggleFavorite, "favorite", false, "flip the favorite flag instead of caught")
	rootCmd.AddCommand(toggleCmd)
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <entity-id>",
	Short: "Flips an entity's caught (or favorite) flag and persists the new snapshot.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		id := args[0]

		store, database, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer database.Close()

		session := selection.NewSession(ctx, store, selection.SessionOptions{})

		snapshot, _ := store.Read(ctx)
		current := make(map[string]selection.EntityState, len(snapshot)+1)
		for eid, r := range snapshot {
			current[eid] = selection.EntityState{Caught: r.Caught, Favorite: r.Favorite}
		}
		st := current[id]
		if toggleFavorite {
			st.Favorite = !st.Favorite
		} else {
			st.Caught = !st.Caught
		}
		current[id] = st

		session.Reconcile(ctx, current)
		err = session.Gate().Wait(ctx)
		if err != nil {
			fail(err)
		}
		if err := session.Err(); err != nil {
			fail(err)
		}

		if journalFile != "" {
			journal := eventlog.New(journalFile, eventlog.Options{})
			if toggleFavorite {
				err = journal.AppendFavorite(id, st.Favorite)
			} else {
				err = journal.AppendToggle(id, st.Caught)
			}
			if err != nil {
				fail(err)
			}
		}

		fmt.Printf("%s: caught=%t favorite=%t (version %d)\n", id, st.Caught, st.Favorite, session.Version())
	},
}
