// Package selection implements the durable, versioned persistence of
// per-entity caught/favorite toggles. Writes are committed through a
// version-guarded compare-and-commit so that asynchronous persistence
// completing out of order can never resurrect an older snapshot.
package selection

import (
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/selection")

// Record holds one entity's selection flags. A record is immutable once
// committed, it is replaced wholesale when the flags change.
type Record struct {
	Caught    bool
	Favorite  bool
	UpdatedAt time.Time
}

// Snapshot maps entity ids to their records. A snapshot is always
// persisted as one atomic whole, never as a per-field patch.
type Snapshot map[string]Record

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, r := range s {
		out[id] = r
	}
	return out
}

// CaughtSize returns the number of entities currently marked caught.
func (s Snapshot) CaughtSize() int {
	n := 0
	for _, r := range s {
		if r.Caught {
			n++
		}
	}
	return n
}

// EquivalentTo compares the selection flags of two snapshots, ignoring
// record timestamps.
func (s Snapshot) EquivalentTo(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for id, r := range s {
		o, ok := other[id]
		if !ok || o.Caught != r.Caught || o.Favorite != r.Favorite {
			return false
		}
	}
	return true
}

// PendingWrite is a snapshot queued for durable commit under a specific
// version.
type PendingWrite struct {
	Snapshot Snapshot
	Version  int64
}
