package selection

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"
	"testing"
	"time"

	"pogorarity-backend/lib/testutil"
	"pogorarity-backend/services/selection/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type recordedEvent struct {
	Name    string
	Version int64
	Size    int
}

type recordingObserver struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (o *recordingObserver) Event(_ context.Context, name string, version int64, size int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, recordedEvent{Name: name, Version: version, Size: size})
}

func (o *recordingObserver) recorded() []recordedEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]recordedEvent{}, o.events...)
}

func setupStore(t *testing.T) (*Store, *sql.DB, func()) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/selection",
		DbSchema: db.Schema,
	})
	store, err := NewStore(context.Background(), setup.DB, nil)
	require.NoError(t, err)
	return store, setup.DB, cleanup
}

func caughtSnapshot(at time.Time, ids ...string) Snapshot {
	out := Snapshot{}
	for _, id := range ids {
		out[id] = Record{Caught: true, UpdatedAt: at}
	}
	return out
}

func TestWriteMonotonicVersion(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	now := time.Now()

	outcome, err := store.Write(ctx, caughtSnapshot(now, "bulbasaur"), 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	outcome, err = store.Write(ctx, caughtSnapshot(now, "bulbasaur", "ivysaur", "venusaur"), 3)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	// a write whose version is below the committed one must be
	// rejected without mutating state
	outcome, err = store.Write(ctx, caughtSnapshot(now, "pidgey"), 2)
	require.NoError(t, err)
	require.Equal(t, OutcomeStaleRejected, outcome)

	snapshot, version := store.Read(ctx)
	require.Equal(t, int64(3), version)
	require.True(t, snapshot.EquivalentTo(caughtSnapshot(now, "bulbasaur", "ivysaur", "venusaur")))
}

func TestDuplicateCommitIdempotent(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	now := time.Now()
	snap := caughtSnapshot(now, "eevee")

	outcome, err := store.Write(ctx, snap, 5)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	outcome, err = store.Write(ctx, snap, 5)
	require.NoError(t, err)
	require.Equal(t, OutcomeStaleRejected, outcome)

	committed, version := store.Read(ctx)
	require.Equal(t, int64(5), version)
	require.Empty(t, cmp.Diff(snap, committed))
}

// Scenario: version 1 is persisted with artificial latency while
// version 2 lands immediately. Whatever order the writes complete in,
// the store must end at version 2 and the late arrival must be
// rejected.
func TestDelayedOlderWriteRejected(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	now := time.Now()

	var wg sync.WaitGroup
	var delayedOutcome Outcome
	var delayedErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond * 100)
		delayedOutcome, delayedErr = store.Write(ctx, caughtSnapshot(now, "machop"), 1)
	}()

	outcome, err := store.Write(ctx, caughtSnapshot(now, "machop", "machoke"), 2)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)
	wg.Wait()

	require.NoError(t, delayedErr)
	require.Equal(t, OutcomeStaleRejected, delayedOutcome)

	snapshot, version := store.Read(ctx)
	require.Equal(t, int64(2), version)
	require.True(t, snapshot.EquivalentTo(caughtSnapshot(now, "machop", "machoke")))
}

// For any completion order of concurrent writes v1 < v2 < ... < vn the
// final committed snapshot must be the one of vn, never a mix and never
// an earlier one.
func TestConcurrentReorderedWrites(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()
	now := time.Unix(1700000000, 0)

	const n = 20
	ids := []string{}
	snapshots := make([]Snapshot, n+1)
	for v := 1; v <= n; v++ {
		ids = append(ids, string(rune('a'+v-1)))
		snapshots[v] = caughtSnapshot(now, ids...)
	}

	var wg sync.WaitGroup
	errs := make([]error, n+1)
	for v := 1; v <= n; v++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			_, errs[v] = store.Write(ctx, snapshots[v], int64(v))
		}(v)
	}
	wg.Wait()
	for v := 1; v <= n; v++ {
		require.NoError(t, errs[v])
	}

	committed, version := store.Read(ctx)
	require.Equal(t, int64(n), version)
	require.Empty(t, cmp.Diff(snapshots[n], committed))
}

func TestReloadFallsBackOnCorruptStorage(t *testing.T) {
	store, database, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	now := time.Now()

	outcome, err := store.Write(ctx, caughtSnapshot(now, "snorlax"), 5)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	_, err = database.Exec("DROP TABLE selection")
	require.NoError(t, err)
	_, err = database.Exec("DROP TABLE meta")
	require.NoError(t, err)

	snapshot, version, err := store.Reload(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), version)
	require.Empty(t, snapshot)

	// the rebuilt store accepts writes again
	outcome, err = store.Write(ctx, caughtSnapshot(now, "snorlax"), 6)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)
	_, version = store.Read(ctx)
	require.Equal(t, int64(6), version)
}

// A cross-session stale rejection must never leave Read serving a
// mixed pair: when the loser learns inside the transaction that a newer
// version is already committed, it has to adopt that version's snapshot
// together with the version, not just the number.
func TestStaleRejectionAdoptsCommittedPair(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/selection/adopt",
		DbSchema: db.Schema,
		DbFile:   "selection.db",
	})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	now := time.Now()

	storeA, err := NewStore(ctx, setup.DB, nil)
	require.NoError(t, err)
	outcome, err := storeA.Write(ctx, caughtSnapshot(now, "abra"), 5)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	other, err := sql.Open("sqlite", setup.DbPath)
	require.NoError(t, err)
	defer other.Close()
	other.SetMaxOpenConns(1)
	storeB, err := NewStore(ctx, other, nil)
	require.NoError(t, err)

	outcome, err = storeA.Write(ctx, caughtSnapshot(now, "abra", "kadabra"), 6)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	outcome, err = storeB.Write(ctx, caughtSnapshot(now, "abra", "mew"), 6)
	require.NoError(t, err)
	require.Equal(t, OutcomeStaleRejected, outcome)

	// B's read now reports version 6 and must serve version 6's
	// snapshot, not its stale version-5 one
	snapshot, version := storeB.Read(ctx)
	require.Equal(t, int64(6), version)
	require.True(t, snapshot.EquivalentTo(caughtSnapshot(now, "abra", "kadabra")))
}

// Reads are served from the in-memory committed state, a writer stuck
// in storage I/O must not delay them. The single sqlite connection is
// pinned by an open transaction so the concurrent write blocks inside
// BeginTx while the read goes through.
func TestReadDoesNotBlockOnInFlightWrite(t *testing.T) {
	store, database, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	now := time.Now()

	blocker, err := database.Begin()
	require.NoError(t, err)

	writeDone := make(chan error, 1)
	go func() {
		_, err := store.Write(ctx, caughtSnapshot(now, "slowpoke"), 1)
		writeDone <- err
	}()

	// give the writer time to take its lock and park on the connection
	time.Sleep(time.Millisecond * 100)

	readDone := make(chan int64, 1)
	go func() {
		_, version := store.Read(ctx)
		readDone <- version
	}()
	select {
	case version := <-readDone:
		require.Equal(t, int64(0), version)
	case <-time.After(time.Second * 2):
		t.Fatal("read blocked behind an in-flight write")
	}

	require.NoError(t, blocker.Rollback())
	require.NoError(t, <-writeDone)

	snapshot, version := store.Read(ctx)
	require.Equal(t, int64(1), version)
	require.True(t, snapshot.EquivalentTo(caughtSnapshot(now, "slowpoke")))
}

// Two independent sessions share one database file. When one commits a
// version the other was also about to use, the second write must be
// rejected and only become possible again after a re-read.
func TestSharedStorageTwoStores(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/selection/shared",
		DbSchema: db.Schema,
		DbFile:   "selection.db",
	})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	now := time.Now()

	storeA, err := NewStore(ctx, setup.DB, nil)
	require.NoError(t, err)
	outcome, err := storeA.Write(ctx, caughtSnapshot(now, "abra"), 5)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	other, err := sql.Open("sqlite", setup.DbPath)
	require.NoError(t, err)
	defer other.Close()
	other.SetMaxOpenConns(1)
	storeB, err := NewStore(ctx, other, nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), storeB.Version())

	outcome, err = storeA.Write(ctx, caughtSnapshot(now, "abra", "kadabra"), 6)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)

	// B still reconciles against its stale version-5 baseline
	outcome, err = storeB.Write(ctx, caughtSnapshot(now, "abra", "mew"), 6)
	require.NoError(t, err)
	require.Equal(t, OutcomeStaleRejected, outcome)

	snapshot, version, err := storeB.Reload(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(6), version)
	require.True(t, snapshot.EquivalentTo(caughtSnapshot(now, "abra", "kadabra")))

	outcome, err = storeB.Write(ctx, caughtSnapshot(now, "abra", "kadabra", "mew"), 7)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, outcome)
}
