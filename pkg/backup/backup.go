// Package backup holds the single pre-sync snapshot that undo restores.
// Retaining a new snapshot discards the previous one, so exactly one level
// of undo is available.
package backup

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/kv"
	"github.com/agentstation/quotesync/pkg/records"
)

// Snapshot is an immutable copy of the collection taken before a pass.
type Snapshot struct {
	SyncID  string             `json:"syncId" yaml:"syncId"`
	TakenAt time.Time          `json:"takenAt" yaml:"takenAt"`
	Records records.Collection `json:"records" yaml:"records"`
}

// Ledger retains the latest snapshot, optionally mirrored to a kv.Store so
// another process can undo a pass this one ran.
type Ledger struct {
	mu      sync.RWMutex
	current *Snapshot
	backend kv.Store
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore mirrors the retained snapshot into backend.
func WithStore(backend kv.Store) Option {
	return func(l *Ledger) {
		l.backend = backend
	}
}

// New creates a ledger, loading a previously mirrored snapshot if present.
func New(opts ...Option) (*Ledger, error) {
	l := &Ledger{}
	for _, opt := range opts {
		opt(l)
	}
	if l.backend == nil {
		return l, nil
	}

	raw, ok, err := l.backend.Get(constants.KeyBackup)
	if err != nil {
		return nil, errors.WrapResource("load", "backup", constants.KeyBackup, err)
	}
	if !ok {
		return l, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, errors.WrapResource("load", "backup", constants.KeyBackup, errors.WrapParse("json", constants.KeyBackup, err))
	}
	l.current = &snap
	return l, nil
}

// Retain replaces the held snapshot with a deep copy of snap. The snapshot
// is held even when mirroring fails; that failure is returned as a
// PersistenceError.
func (l *Ledger) Retain(snap Snapshot) error {
	snap.Records = snap.Records.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = &snap

	if l.backend == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.NewPersistenceError(constants.KeyBackup, err)
	}
	if err := l.backend.Set(constants.KeyBackup, string(data)); err != nil {
		return errors.NewPersistenceError(constants.KeyBackup, err)
	}
	return nil
}

// Snapshot returns a copy of the held snapshot.
func (l *Ledger) Snapshot() (Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return Snapshot{}, false
	}
	snap := *l.current
	snap.Records = snap.Records.Clone()
	return snap, true
}

// Has reports whether a snapshot is held.
func (l *Ledger) Has() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current != nil
}
