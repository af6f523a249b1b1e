package store_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/quotesync/pkg/constants"
	pkgerrors "github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/kv"
	"github.com/agentstation/quotesync/pkg/records"
	"github.com/agentstation/quotesync/pkg/store"
)

// failingKV fails every write while fail is set.
type failingKV struct {
	*kv.Memory
	fail bool
}

func (f *failingKV) Set(key, value string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Set(key, value)
}

func newStore(t *testing.T, seed records.Collection) (*store.Store, *failingKV) {
	t.Helper()
	backend := &failingKV{Memory: kv.NewMemory()}
	s, err := store.New(backend, store.WithSeed(seed))
	require.NoError(t, err)
	return s, backend
}

func persisted(t *testing.T, backend kv.Store) records.Collection {
	t.Helper()
	raw, ok, err := backend.Get(constants.KeyRecords)
	require.NoError(t, err)
	require.True(t, ok, "records were never persisted")
	var c records.Collection
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

func TestNewSeedsDefaults(t *testing.T) {
	s, err := store.New(kv.NewMemory())
	require.NoError(t, err)
	assert.True(t, records.Defaults().Equal(s.All()))
}

func TestNewLoadsPersisted(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(constants.KeyRecords, `[{"text":"Be bold","category":"Motivation"},{"text":"be bold ","category":"Server"},{"text":"","category":"x"}]`))

	s, err := store.New(backend)
	require.NoError(t, err)
	assert.Equal(t, records.Collection{{Text: "Be bold", Category: "Server"}}, s.All())
}

func TestNewRejectsCorruptCollection(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(constants.KeyRecords, `{"oops":true}`))
	_, err := store.New(backend)
	assert.Error(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	s, _ := newStore(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})
	all := s.All()
	all[0].Category = "Mutated"
	assert.Equal(t, records.Collection{{Text: "Be bold", Category: "Motivation"}}, s.All())
}

func TestUpsert(t *testing.T) {
	s, backend := newStore(t, nil)

	require.NoError(t, s.Upsert(records.Record{Text: "  Be bold ", Category: " Motivation "}))
	require.NoError(t, s.Upsert(records.Record{Text: "BE BOLD", Category: "Server"}))
	require.NoError(t, s.Upsert(records.Record{Text: "Stay calm", Category: "Server"}))

	want := records.Collection{
		{Text: "Be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Server"},
	}
	assert.Equal(t, want, s.All())
	assert.Equal(t, want, persisted(t, backend))

	rec, ok := s.Get("be bold")
	assert.True(t, ok)
	assert.Equal(t, "Server", rec.Category)
	assert.Equal(t, 2, s.Len())
}

func TestUpsertRejectsMalformed(t *testing.T) {
	s, _ := newStore(t, nil)
	err := s.Upsert(records.Record{Text: "   ", Category: "x"})
	assert.True(t, pkgerrors.IsValidationError(err))
	assert.Zero(t, s.Len())
}

func TestKeyUniqueness(t *testing.T) {
	s, _ := newStore(t, nil)
	texts := []string{"A", "a", " A ", "b", "B", "a\t", "c", "C "}
	for i, text := range texts {
		require.NoError(t, s.Upsert(records.Record{Text: text, Category: fmt.Sprintf("cat-%d", i)}))
	}

	seen := map[string]bool{}
	for _, r := range s.All() {
		assert.False(t, seen[r.Key()], "duplicate key %q", r.Key())
		seen[r.Key()] = true
	}
	assert.Len(t, seen, 3)
}

func TestBulkUpsert(t *testing.T) {
	s, backend := newStore(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})

	result, err := s.BulkUpsert([]records.Record{
		{Text: "Stay calm", Category: "Server"},
		{Text: "be bold", Category: "Server"},
		{Text: "", Category: "Server"},
		{Text: "Keep going", Category: ""},
		{Text: "stay calm", Category: "Last"},
		{Text: "Be Bold", Category: "Server"},
	})
	require.NoError(t, err)
	assert.Equal(t, store.BulkResult{Added: 1, Updated: 2, Unchanged: 1, Rejected: 2}, result)

	want := records.Collection{
		{Text: "Be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Last"},
	}
	assert.Equal(t, want, s.All())
	assert.Equal(t, want, persisted(t, backend))
}

func TestBulkUpsertNoChangesSkipsWrite(t *testing.T) {
	s, backend := newStore(t, records.Collection{{Text: "a", Category: "b"}})
	backend.fail = true

	result, err := s.BulkUpsert([]records.Record{{Text: "A", Category: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unchanged)
}

func TestRemove(t *testing.T) {
	s, backend := newStore(t, records.Collection{
		{Text: "Be bold", Category: "Motivation"},
		{Text: "Stay calm", Category: "Server"},
	})

	removed, err := s.Remove("be bold")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove("be bold")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, records.Collection{{Text: "Stay calm", Category: "Server"}}, persisted(t, backend))

	_, err = s.Remove("stay calm")
	require.NoError(t, err)
	assert.Equal(t, records.Collection{}, persisted(t, backend))
}

func TestReplaceAll(t *testing.T) {
	s, backend := newStore(t, records.Defaults())
	snapshot := records.Collection{{Text: "Only", Category: "One"}}

	require.NoError(t, s.ReplaceAll(snapshot))
	assert.Equal(t, snapshot, s.All())
	assert.Equal(t, snapshot, persisted(t, backend))
}

func TestPersistenceFailureKeepsMemory(t *testing.T) {
	s, backend := newStore(t, nil)
	backend.fail = true

	err := s.Upsert(records.Record{Text: "Be bold", Category: "Motivation"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPersistence(err))
	assert.Equal(t, records.Collection{{Text: "Be bold", Category: "Motivation"}}, s.All())

	_, err = s.BulkUpsert([]records.Record{{Text: "Stay calm", Category: "Server"}})
	assert.True(t, pkgerrors.IsPersistence(err))
	assert.Equal(t, 2, s.Len())

	removed, err := s.Remove("be bold")
	assert.True(t, removed)
	assert.True(t, pkgerrors.IsPersistence(err))

	err = s.ReplaceAll(records.Collection{})
	assert.True(t, pkgerrors.IsPersistence(err))
	assert.Zero(t, s.Len())

	var pe *pkgerrors.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, constants.KeyRecords, pe.Key)
}
