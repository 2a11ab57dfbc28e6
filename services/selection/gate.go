package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PersistFailedError is returned through the gate's result callback when
// a write exhausted its retry budget. It carries the attempted snapshot
// and version so the caller can retain in-memory state and retry on the
// next cycle.
type PersistFailedError struct {
	Version  int64
	Snapshot Snapshot
	Err      error
}

func (e *PersistFailedError) Error() string {
	return fmt.Sprintf("persist failed at version %d: %s", e.Version, e.Err)
}

func (e *PersistFailedError) Unwrap() error {
	return e.Err
}

// Result of one scheduled persistence attempt. Err is non-nil only when
// the retry budget was exhausted; a stale rejection is a normal outcome.
type Result struct {
	Version  int64
	Snapshot Snapshot
	Outcome  Outcome
	Err      error
}

type GateOptions struct {
	// write attempts per scheduled snapshot before giving up, retry
	// waits grow exponentially from InitialBackoff
	MaxRetries     uint64
	InitialBackoff time.Duration
	// optional artificial delay applied before every write attempt,
	// used to reproduce the latency profile of slow storage backends
	Delay    func(context.Context)
	OnResult func(Result)
	Observer Observer
}

// Gate serializes persistence dispatch: at most one write is in flight
// at a time and newly scheduled snapshots collapse onto the pending
// slot, so a superseded intermediate version is never written at all.
// The store's version guard remains the correctness invariant; the
// single-writer queue only saves wasted I/O.
type Gate struct {
	store          *Store
	maxRetries     uint64
	initialBackoff time.Duration
	delay          func(context.Context)
	onResult       func(Result)
	obs            Observer

	mu      sync.Mutex
	pending *PendingWrite
	running bool
	wg      sync.WaitGroup
}

func NewGate(store *Store, opts GateOptions) *Gate {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 4
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = time.Millisecond * 50
	}
	if opts.Observer == nil {
		opts.Observer = LogObserver{}
	}
	return &Gate{
		store:          store,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		delay:          opts.Delay,
		onResult:       opts.OnResult,
		obs:            opts.Observer,
	}
}

// Schedule requests persistence of a specific version. It returns
// immediately; the write happens on the gate's dispatch goroutine. When
// a write is already in flight the snapshot is queued, replacing any
// queued snapshot with a lower version.
func (g *Gate) Schedule(ctx context.Context, w PendingWrite) {
	// persistence outlives the interaction cycle that requested it
	ctx = context.WithoutCancel(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil || w.Version > g.pending.Version {
		g.pending = &w
	}
	if !g.running {
		g.running = true
		g.wg.Add(1)
		go g.run(ctx)
	}
}

// Wait blocks until all scheduled writes have settled.
func (g *Gate) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) run(ctx context.Context) {
	defer g.wg.Done()
	for {
		g.mu.Lock()
		w := g.pending
		g.pending = nil
		if w == nil {
			g.running = false
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()

		res := g.persist(ctx, *w)
		if g.onResult != nil {
			g.onResult(res)
		}
	}
}

func (g *Gate) persist(ctx context.Context, w PendingWrite) Result {
	ctx, span := tracer.Start(ctx, "persist")
	defer span.End()
	span.SetAttributes(attribute.Int64("ver", w.Version))

	size := w.Snapshot.CaughtSize()
	g.obs.Event(ctx, EventPersistStart, w.Version, size)

	var outcome Outcome
	attempt := func() error {
		if g.delay != nil {
			g.delay(ctx)
		}
		out, err := g.store.Write(ctx, w.Snapshot, w.Version)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.initialBackoff
	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, g.maxRetries), ctx))
	if err != nil {
		slog.WarnContext(ctx, "persist retries exhausted, keeping snapshot for next cycle",
			"ver", w.Version, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{
			Version:  w.Version,
			Snapshot: w.Snapshot,
			Err:      &PersistFailedError{Version: w.Version, Snapshot: w.Snapshot, Err: err},
		}
	}

	switch outcome {
	case OutcomeCommitted:
		g.obs.Event(ctx, EventPersistOk, w.Version, size)
	case OutcomeStaleRejected:
		g.obs.Event(ctx, EventPersistStaleRejected, w.Version, size)
	}
	return Result{Version: w.Version, Snapshot: w.Snapshot, Outcome: outcome}
}
