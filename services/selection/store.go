package selection

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"pogorarity-backend/services/selection/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Outcome of a versioned write attempt.
type Outcome int

const (
	OutcomeCommitted Outcome = iota
	// The write carried a version not greater than the committed one.
	// This is a normal result of a commit race, not a fault.
	OutcomeStaleRejected
)

func (o Outcome) String() string {
	if o == OutcomeCommitted {
		return "committed"
	}
	return "stale_rejected"
}

// Store is the durable, versioned selection state store. It accepts a
// write only when its version strictly exceeds the committed version.
// Reads are served from an in-memory copy of the committed snapshot and
// never block on in-flight writes.
type Store struct {
	db  *sql.DB
	qry *db.Queries
	obs Observer

	// serializes writers (and reloads) among themselves, readers only
	// ever touch mu
	wmu sync.Mutex

	mu        sync.RWMutex
	committed Snapshot
	version   int64
}

// NewStore loads the committed snapshot from the database. Malformed or
// missing storage falls back to an empty snapshot at version 0.
func NewStore(ctx context.Context, database *sql.DB, obs Observer) (*Store, error) {
	if obs == nil {
		obs = LogObserver{}
	}
	s := &Store{
		db:  database,
		qry: db.New(database),
		obs: obs,
	}
	_, _, err := s.Reload(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Read returns a copy of the latest committed snapshot and its version.
func (s *Store) Read(ctx context.Context) (Snapshot, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed.Clone(), s.version
}

// Version returns the committed version.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Write commits the snapshot if version strictly exceeds the committed
// version, otherwise it rejects without mutating state. The compare and
// the commit form one critical section: the version guard is evaluated
// again inside the transaction so that independent sessions sharing the
// same database file are policed too. Durability is established before
// a committed result is returned. Writers serialize on their own mutex,
// the read lock is only taken to publish the committed pair, so reads
// never wait on write I/O.
func (s *Store) Write(ctx context.Context, snapshot Snapshot, version int64) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Write")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("ver", version),
		attribute.Int("size", snapshot.CaughtSize()),
	)

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if version <= s.Version() {
		span.SetAttributes(attribute.String("outcome", OutcomeStaleRejected.String()))
		return OutcomeStaleRejected, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	committedVer, err := txqry.GetVersion(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if version <= committedVer {
		// another session landed a newer snapshot in the shared
		// database; adopt its snapshot and version together, within the
		// same transaction, so reads keep seeing a consistent committed
		// pair
		rows, err := txqry.ListSelection(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		s.adopt(snapshotFromRows(rows), committedVer)
		span.SetAttributes(attribute.String("outcome", OutcomeStaleRejected.String()))
		return OutcomeStaleRejected, nil
	}

	err = txqry.DeleteSelection(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	for id, r := range snapshot {
		err = txqry.CreateSelectionRecord(ctx, db.CreateSelectionRecordParams{
			EntityID:  id,
			Caught:    boolToInt(r.Caught),
			Favorite:  boolToInt(r.Favorite),
			UpdatedAt: r.UpdatedAt.Unix(),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}
	err = txqry.SetVersion(ctx, version)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	s.adopt(snapshot.Clone(), version)
	span.SetAttributes(attribute.String("outcome", OutcomeCommitted.String()))
	return OutcomeCommitted, nil
}

func (s *Store) adopt(snapshot Snapshot, version int64) {
	s.mu.Lock()
	s.committed = snapshot
	s.version = version
	s.mu.Unlock()
}

// Reload re-reads durable storage and adopts it as the committed state.
// Unreadable storage (deleted file, dropped tables, garbage rows) is
// not fatal: the schema is re-applied and the store falls back to an
// empty snapshot at version 0 with a logged warning.
func (s *Store) Reload(ctx context.Context) (Snapshot, int64, error) {
	ctx, span := tracer.Start(ctx, "Reload")
	defer span.End()

	s.wmu.Lock()
	defer s.wmu.Unlock()

	snapshot, version, err := s.load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "selection storage unreadable, falling back to empty state", "err", err)
		span.RecordError(err)

		// re-apply the schema and load again; a rebuilt store starts
		// empty at version 0
		_, err = s.db.ExecContext(ctx, db.Schema)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, err
		}
		snapshot, version, err = s.load(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, err
		}
	}

	s.adopt(snapshot, version)

	s.obs.Event(ctx, EventLoad, version, snapshot.CaughtSize())
	return snapshot.Clone(), version, nil
}

func (s *Store) load(ctx context.Context) (Snapshot, int64, error) {
	count, err := s.qry.CountMeta(ctx)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		// fresh database, seed it quietly
		err = s.qry.SeedVersion(ctx)
		if err != nil {
			return nil, 0, err
		}
	}

	version, err := s.qry.GetVersion(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.qry.ListSelection(ctx)
	if err != nil {
		return nil, 0, err
	}
	return snapshotFromRows(rows), version, nil
}

func snapshotFromRows(rows []db.SelectionRecord) Snapshot {
	snapshot := make(Snapshot, len(rows))
	for _, r := range rows {
		snapshot[r.EntityID] = Record{
			Caught:    r.Caught != 0,
			Favorite:  r.Favorite != 0,
			UpdatedAt: time.Unix(r.UpdatedAt, 0),
		}
	}
	return snapshot
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
