package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"pogorarity-backend/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbFile string
}

type ServiceResult struct {
	DB *sql.DB
	// absolute path of the backing database file, empty for `:memory:`
	DbPath string
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbFile != "" {
		dbpath = filepath.Join(t.TempDir(), params.DbFile)
	}
	sqlite, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	sqlite.SetMaxOpenConns(1)
	if params.DbSchema != "" {
		_, err = sqlite.Exec(params.DbSchema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}

	result := ServiceResult{DB: sqlite}
	if dbpath != ":memory:" {
		result.DbPath = dbpath
	}
	return result, cleanup
}
