package selection

import (
	"context"
	"sync"
	"time"
)

// State of the session's reconciliation loop.
type State int

const (
	// in-memory state matches the store
	StateClean State = iota
	// the reconciled snapshot differs from what the store holds, a
	// dispatch is pending or needs a retry
	StateDirty
	// a write for the latest reconciled snapshot is in flight
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return "committing"
	}
}

// EntityState is the authoritative flag pair the interaction surface
// reports for one entity on each cycle.
type EntityState struct {
	Caught   bool
	Favorite bool
}

type SessionOptions struct {
	Observer Observer
	Gate     GateOptions
}

// Session reconciles the full intended selection set from authoritative
// UI state once per interaction cycle and hands versioned snapshots to
// the persistence gate. It replaces the global mutable session state of
// older revisions: its lifecycle is one user session, not the process.
type Session struct {
	store *Store
	gate  *Gate
	clock *Clock
	obs   Observer

	mu              sync.Mutex
	state           State
	intended        Snapshot
	intendedVersion int64
	failure         error
}

// NewSession baselines the session on the store's committed snapshot
// and seeds the version clock from the committed version.
func NewSession(ctx context.Context, store *Store, opts SessionOptions) *Session {
	if opts.Observer == nil {
		opts.Observer = LogObserver{}
	}
	if opts.Gate.Observer == nil {
		opts.Gate.Observer = opts.Observer
	}

	snapshot, version := store.Read(ctx)
	s := &Session{
		store:    store,
		clock:    NewClock(version),
		obs:      opts.Observer,
		state:    StateClean,
		intended: snapshot,
	}

	chained := opts.Gate.OnResult
	opts.Gate.OnResult = func(res Result) {
		s.onResult(res)
		if chained != nil {
			chained(res)
		}
	}
	s.gate = NewGate(store, opts.Gate)
	return s
}

// Reconcile computes the new full selection set directly from the
// complete state reported by the interaction surface, never from an
// incremental toggle signal, so each snapshot is self-contained even
// when earlier toggles have not reached durable storage yet. Invoking
// it again with unchanged state is a no-op: no new version is assigned
// unless the flags actually differ from the last reconciled snapshot or
// a previous dispatch still needs a retry.
func (s *Session) Reconcile(ctx context.Context, current map[string]EntityState) Snapshot {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	next := make(Snapshot, len(current))
	for id, st := range current {
		prev, ok := s.intended[id]
		if ok && prev.Caught == st.Caught && prev.Favorite == st.Favorite {
			// unchanged records keep their original timestamp
			next[id] = prev
			continue
		}
		next[id] = Record{Caught: st.Caught, Favorite: st.Favorite, UpdatedAt: now}
	}

	if s.state != StateDirty && next.EquivalentTo(s.intended) {
		return s.intended.Clone()
	}

	s.state = StateDirty
	s.intended = next
	version := s.clock.Next()
	s.intendedVersion = version
	s.obs.Event(ctx, EventToggle, version, next.CaughtSize())

	s.gate.Schedule(ctx, PendingWrite{Snapshot: next.Clone(), Version: version})
	s.state = StateCommitting
	return next.Clone()
}

// Rebaseline re-reads durable storage and adopts it as the session's
// authoritative baseline. The interaction surface calls this at session
// start and after any rejection or failure before its next cycle. The
// version clock only ever moves forward, so a corrupt-store fallback to
// version 0 does not break monotonicity of later writes.
func (s *Session) Rebaseline(ctx context.Context) (Snapshot, int64, error) {
	snapshot, version, err := s.store.Reload(ctx)
	if err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	s.intended = snapshot.Clone()
	s.state = StateClean
	s.failure = nil
	s.clock.Advance(version)
	s.mu.Unlock()

	s.obs.Event(ctx, EventRender, version, snapshot.CaughtSize())
	return snapshot, version, nil
}

// State reports where the session is in its Clean/Dirty/Committing
// loop.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the most recent persist failure, or nil. The failure is
// recoverable: the intended snapshot is retained and redispatched with
// a fresh version on the next cycle.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Version returns the last version issued within this session.
func (s *Session) Version() int64 {
	return s.clock.Current()
}

// Gate exposes the session's persistence gate, mainly so callers can
// drain in-flight writes on shutdown.
func (s *Session) Gate() *Gate {
	return s.gate
}

func (s *Session) onResult(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// results for superseded versions must not regress the state of a
	// newer dispatch
	if res.Version != s.intendedVersion {
		return
	}

	if res.Err != nil {
		s.failure = res.Err
		s.state = StateDirty
		return
	}
	switch res.Outcome {
	case OutcomeCommitted:
		s.failure = nil
		s.state = StateClean
	case OutcomeStaleRejected:
		// a concurrent session landed a newer snapshot; stay dirty so
		// the next cycle re-reconciles against a fresh baseline
		s.state = StateDirty
	}
}
