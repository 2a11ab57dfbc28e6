// Package eventlog keeps an append-only journal of selection toggles.
// It is a local audit trail next to the versioned store, folding its
// events reproduces the selection set a session arrived at.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pogorarity-backend/services/selection"
)

type Op string

const (
	OpAdd        Op = "add"
	OpRemove     Op = "remove"
	OpFavorite   Op = "fav"
	OpUnfavorite Op = "unfav"
)

type Event struct {
	Op Op     `json:"op"`
	ID string `json:"id"`
	Ts int64  `json:"ts"`
}

const DefaultCompactEvery = 100

type Log struct {
	path         string
	compactEvery int
}

type Options struct {
	// compact the journal once it grows past this many events,
	// 0 means DefaultCompactEvery, negative disables compaction
	CompactEvery int
}

func New(path string, opts Options) *Log {
	if opts.CompactEvery == 0 {
		opts.CompactEvery = DefaultCompactEvery
	}
	return &Log{path: path, compactEvery: opts.CompactEvery}
}

// Append writes one event to the journal, creating parent directories
// as needed. A zero Ts is stamped with the current time.
func (l *Log) Append(ev Event) error {
	if ev.Ts == 0 {
		ev.Ts = time.Now().Unix()
	}
	err := os.MkdirAll(filepath.Dir(l.path), 0o755)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	line, err := json.Marshal(ev)
	if err != nil {
		f.Close()
		return err
	}
	_, err = f.Write(append(line, '\n'))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if l.compactEvery > 0 {
		_, count, err := l.Load()
		if err != nil {
			return err
		}
		if count > l.compactEvery {
			return l.Compact()
		}
	}
	return nil
}

// AppendToggle records a caught checkbox flip.
func (l *Log) AppendToggle(id string, caught bool) error {
	op := OpRemove
	if caught {
		op = OpAdd
	}
	return l.Append(Event{Op: op, ID: id})
}

// AppendFavorite records a favorite flip.
func (l *Log) AppendFavorite(id string, favorite bool) error {
	op := OpUnfavorite
	if favorite {
		op = OpFavorite
	}
	return l.Append(Event{Op: op, ID: id})
}

// Load folds all journal events into a snapshot and returns it together
// with the event count. A missing journal file folds to an empty
// snapshot.
func (l *Log) Load() (selection.Snapshot, int, error) {
	out := selection.Snapshot{}

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return out, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		count++

		var ev Event
		err := json.Unmarshal(line, &ev)
		if err != nil {
			return nil, 0, fmt.Errorf("malformed journal line %d: %w", count, err)
		}

		rec := out[ev.ID]
		switch ev.Op {
		case OpAdd:
			rec.Caught = true
		case OpRemove:
			rec.Caught = false
		case OpFavorite:
			rec.Favorite = true
		case OpUnfavorite:
			rec.Favorite = false
		}
		rec.UpdatedAt = time.Unix(ev.Ts, 0)
		if !rec.Caught && !rec.Favorite {
			delete(out, ev.ID)
			continue
		}
		out[ev.ID] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return out, count, nil
}

// Compact rewrites the journal with the minimal set of events that
// folds to the same snapshot.
func (l *Log) Compact() error {
	snapshot, _, err := l.Load()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	err = os.MkdirAll(filepath.Dir(l.path), 0o755)
	if err != nil {
		return err
	}
	f, err := os.Create(l.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	now := time.Now().Unix()
	for _, id := range ids {
		rec := snapshot[id]
		if rec.Caught {
			err = writeEvent(w, Event{Op: OpAdd, ID: id, Ts: now})
			if err != nil {
				return err
			}
		}
		if rec.Favorite {
			err = writeEvent(w, Event{Op: OpFavorite, ID: id, Ts: now})
			if err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeEvent(w *bufio.Writer, ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}
