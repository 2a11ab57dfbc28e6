package main

import (
	"context"
	"net/http"
	"time"

	"pogorarity-backend/lib/configutil"
	configsqlite "pogorarity-backend/lib/configutil/sqlite"
	"pogorarity-backend/lib/serviceutil"
	"pogorarity-backend/lib/telemetry"
	"pogorarity-backend/services/selection"
	selectiondb "pogorarity-backend/services/selection/db"
)

type Config struct {
	Port     int                 `json:"port"`
	Database configsqlite.Struct `json:"database"`
}

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(false)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8470
	}

	database, err := config.Database.OpenDB(selectiondb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "selectiond")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	store, err := selection.NewStore(ctx, database, nil)
	if err != nil {
		serviceutil.Fatal("failed to load selection store", err)
	}
	session := selection.NewSession(ctx, store, selection.SessionOptions{})

	mux := http.NewServeMux()
	registerRoutes(mux, store, session, database)
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()

	// let in-flight persistence settle before exiting
	drainCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	session.Gate().Wait(drainCtx)
}
