// Package store provides RecordStore, the single owner of the record
// collection and the only way to mutate it. Every mutation is mirrored
// synchronously into durable key-value storage; a failed write is returned
// as a PersistenceError and the in-memory collection stays authoritative.
package store

import (
	"encoding/json"
	"sync"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/kv"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/records"
)

// Store owns the canonical collection.
type Store struct {
	mu      sync.RWMutex
	records records.Collection
	backend kv.Store
	key     string
}

// BulkResult counts the outcome of a BulkUpsert.
type BulkResult struct {
	Added     int `json:"added" yaml:"added"`
	Updated   int `json:"updated" yaml:"updated"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Rejected  int `json:"rejected" yaml:"rejected"`
}

// Option configures a Store.
type Option func(*options)

type options struct {
	seed records.Collection
	key  string
}

func defaults() *options {
	return &options{
		seed: records.Defaults(),
		key:  constants.KeyRecords,
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSeed sets the collection used when the backend holds no records yet.
// Pass nil to start empty.
func WithSeed(seed records.Collection) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithKey overrides the storage key the collection is persisted under.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

// New loads the collection from backend, or seeds it when the backend has
// never stored one.
func New(backend kv.Store, opts ...Option) (*Store, error) {
	o := defaults().apply(opts...)
	s := &Store{backend: backend, key: o.key}

	raw, ok, err := backend.Get(o.key)
	if err != nil {
		return nil, errors.WrapResource("load", "store", o.key, err)
	}
	if !ok {
		s.records = normalizeAll(o.seed)
		logging.Debug().Int("records", len(s.records)).Msg("Seeding record store")
		return s, nil
	}

	var stored records.Collection
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, errors.WrapResource("load", "store", o.key, errors.WrapParse("json", o.key, err))
	}
	s.records = normalizeAll(stored)
	logging.Debug().Int("records", len(s.records)).Msg("Loaded record store")
	return s, nil
}

// All returns a copy of the collection.
func (s *Store) All() records.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given key.
func (s *Store) Get(key string) (records.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Find(key)
}

// Upsert normalizes rec and either replaces the category of the record
// with the same key or appends it. A malformed record is rejected with a
// ValidationError and nothing changes.
func (s *Store) Upsert(rec records.Record) error {
	rec = records.Normalize(rec)
	if err := records.Validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(rec, nil)
	return s.persistLocked()
}

// BulkUpsert applies Upsert to each record in order, so the last record
// for a key wins. Malformed records are skipped and counted as rejected.
// The collection is persisted once, after all records are applied.
func (s *Store) BulkUpsert(recs []records.Record) (BulkResult, error) {
	var result BulkResult

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		rec = records.Normalize(rec)
		if err := records.Validate(rec); err != nil {
			result.Rejected++
			continue
		}
		s.upsertLocked(rec, &result)
	}
	if result.Added == 0 && result.Updated == 0 {
		return result, nil
	}
	return result, s.persistLocked()
}

// Remove deletes the record with the given key and reports whether it existed.
func (s *Store) Remove(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.Key() == key {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
			return true, s.persistLocked()
		}
	}
	return false, nil
}

// ReplaceAll swaps the whole collection, as undo does with a snapshot.
func (s *Store) ReplaceAll(c records.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = normalizeAll(c)
	return s.persistLocked()
}

func (s *Store) upsertLocked(rec records.Record, result *BulkResult) {
	upsertInto(&s.records, rec, result)
}

// upsertInto applies one normalized, valid record to c.
func upsertInto(c *records.Collection, rec records.Record, result *BulkResult) {
	key := rec.Key()
	for i := range *c {
		existing := &(*c)[i]
		if existing.Key() != key {
			continue
		}
		if existing.Category == rec.Category {
			if result != nil {
				result.Unchanged++
			}
			return
		}
		existing.Category = rec.Category
		if result != nil {
			result.Updated++
		}
		return
	}
	*c = append(*c, rec)
	if result != nil {
		result.Added++
	}
}

// normalizeAll builds a key-unique collection from c, skipping malformed
// entries. Later duplicates update earlier ones.
func normalizeAll(c records.Collection) records.Collection {
	out := records.Collection{}
	for _, rec := range c {
		rec = records.Normalize(rec)
		if records.Validate(rec) != nil {
			continue
		}
		upsertInto(&out, rec, nil)
	}
	return out
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.records)
	if err != nil {
		return errors.NewPersistenceError(s.key, err)
	}
	if err := s.backend.Set(s.key, string(data)); err != nil {
		logging.Warn().Err(err).Str("key", s.key).Msg("Failed to persist records")
		return errors.NewPersistenceError(s.key, err)
	}
	return nil
}
