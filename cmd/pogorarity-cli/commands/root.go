package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	configsqlite "pogorarity-backend/lib/configutil/sqlite"
	"pogorarity-backend/lib/telemetry"
	"pogorarity-backend/services/selection"
	selectiondb "pogorarity-backend/services/selection/db"

	"github.com/spf13/cobra"
)

var dbFile string
var journalFile string

var rootCmd = &cobra.Command{
	Use:   "pogorarity-cli",
	Short: "pogorarity-cli manages the caught/favorite selection state of the rarity app.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "selection.db", "path to the selection database")
	rootCmd.PersistentFlags().StringVar(&journalFile, "journal", "", "optional toggle journal to append to")
}

func Execute() {
	telemetry.InitSlog(false)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*selection.Store, *sql.DB, error) {
	database, err := configsqlite.Struct{File: dbFile}.OpenDB(selectiondb.Schema)
	if err != nil {
		return nil, nil, err
	}
	store, err := selection.NewStore(ctx, database, nil)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, database, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
