package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pogorarity-backend/services/selection"
)

type entityPayload struct {
	Caught    bool  `json:"caught"`
	Favorite  bool  `json:"favorite"`
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

type selectionPayload struct {
	Version  int64                    `json:"version"`
	State    string                   `json:"state,omitempty"`
	Entities map[string]entityPayload `json:"entities"`
}

func registerRoutes(mux *http.ServeMux, store *selection.Store, session *selection.Session, database *sql.DB) {
	mux.HandleFunc("GET /selection", func(w http.ResponseWriter, r *http.Request) {
		snapshot, version := store.Read(r.Context())
		writeJson(w, http.StatusOK, snapshotPayload(snapshot, version, session.State().String()))
	})

	// the interaction surface reports the full current state of every
	// entity each cycle, the daemon never applies partial diffs
	mux.HandleFunc("PUT /selection", func(w http.ResponseWriter, r *http.Request) {
		var req selectionPayload
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		current := make(map[string]selection.EntityState, len(req.Entities))
		for id, e := range req.Entities {
			current[id] = selection.EntityState{Caught: e.Caught, Favorite: e.Favorite}
		}
		snapshot := session.Reconcile(r.Context(), current)
		writeJson(w, http.StatusAccepted, snapshotPayload(snapshot, session.Version(), session.State().String()))
	})

	// re-baselines the session from durable storage, the surface calls
	// this after a rejection or persist failure
	mux.HandleFunc("POST /selection/rebaseline", func(w http.ResponseWriter, r *http.Request) {
		snapshot, version, err := session.Rebaseline(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJson(w, http.StatusOK, snapshotPayload(snapshot, version, session.State().String()))
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		err := database.PingContext(r.Context())
		snapshot, version := store.Read(r.Context())

		var lastUpdated time.Time
		for _, rec := range snapshot {
			if rec.UpdatedAt.After(lastUpdated) {
				lastUpdated = rec.UpdatedAt
			}
		}

		writeJson(w, http.StatusOK, map[string]any{
			"db_reachable": err == nil,
			"version":      version,
			"fresh":        !lastUpdated.IsZero() && time.Since(lastUpdated) < time.Hour*24,
			"last_updated": lastUpdated.UTC().Format(time.RFC3339),
		})
	})
}

func snapshotPayload(snapshot selection.Snapshot, version int64, state string) selectionPayload {
	entities := make(map[string]entityPayload, len(snapshot))
	for id, r := range snapshot {
		entities[id] = entityPayload{
			Caught:    r.Caught,
			Favorite:  r.Favorite,
			UpdatedAt: r.UpdatedAt.Unix(),
		}
	}
	return selectionPayload{Version: version, State: state, Entities: entities}
}

func writeJson(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}
