package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newStore(t *testing.T, opts ...Option) (*Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	opts = append([]Option{WithClock(tickingClock())}, opts...)
	return New(backend, opts...), backend
}

func terms(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Term
	}
	return out
}

func TestStore_AddCaseInsensitiveUpsert(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Add("Cats"))
	first := s.All()[0].Timestamp
	require.NoError(t, s.Add("dogs"))
	require.NoError(t, s.Add("cats"))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "cats", all[0].Term, "new casing wins")
	assert.Greater(t, all[0].Timestamp, first, "timestamp refreshed")
	assert.Equal(t, "dogs", all[1].Term)
}

func TestStore_NewestFirst(t *testing.T) {
	s, _ := newStore(t)
	for _, term := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(term))
	}
	assert.Equal(t, []string{"c", "b", "a"}, s.Terms())
}

func TestStore_BoundEvictsOldest(t *testing.T) {
	s, backend := newStore(t)

	for i := 0; i < 51; i++ {
		require.NoError(t, s.Add(fmt.Sprintf("term-%02d", i)))
	}

	all := s.All()
	require.Len(t, all, DefaultMaxEntries)
	assert.Equal(t, "term-50", all[0].Term)
	assert.Equal(t, "term-01", all[len(all)-1].Term, "term-00 was evicted")
	assert.Len(t, backend.Stored(), DefaultMaxEntries)
}

func TestStore_CustomBound(t *testing.T) {
	s, _ := newStore(t, WithMaxEntries(2))
	for _, term := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(term))
	}
	assert.Equal(t, []string{"c", "b"}, s.Terms())
}

func TestStore_AddIgnoresBlank(t *testing.T) {
	s, backend := newStore(t)
	require.NoError(t, s.Add("   "))
	assert.Zero(t, s.Len())
	assert.Zero(t, backend.Saves())
}

func TestStore_Remove(t *testing.T) {
	s, backend := newStore(t)
	require.NoError(t, s.Add("Cats"))
	require.NoError(t, s.Add("dogs"))
	saves := backend.Saves()

	require.NoError(t, s.Remove("CATS"))
	assert.Equal(t, []string{"dogs"}, s.Terms())
	assert.Equal(t, saves+1, backend.Saves())

	// absent term is a silent no-op
	require.NoError(t, s.Remove("birds"))
	assert.Equal(t, saves+1, backend.Saves())
}

func TestStore_Clear(t *testing.T) {
	s, backend := newStore(t)
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Clear())
	assert.Zero(t, s.Len())
	assert.Empty(t, backend.Stored())
}

func TestStore_OnChange(t *testing.T) {
	s, _ := newStore(t)
	calls := 0
	s.OnChange(func() {
		calls++
		_ = s.Len() // listeners may call back in
	})

	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Remove("missing"))
	assert.Equal(t, 2, calls)
}

func TestStore_OnChangeUnsubscribe(t *testing.T) {
	s, _ := newStore(t)
	var first, second int
	stop := s.OnChange(func() { first++ })
	s.OnChange(func() { second++ })

	require.NoError(t, s.Add("a"))
	stop()
	stop()
	require.NoError(t, s.Add("b"))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Add("a"))

	all := s.All()
	all[0].Term = "mutated"
	assert.Equal(t, "a", s.All()[0].Term)
}

func TestStore_LoadSortsAndDedupes(t *testing.T) {
	backend := NewMemoryBackend(
		Entry{Term: "old", Timestamp: 100},
		Entry{Term: "new", Timestamp: 300},
		Entry{Term: "NEW", Timestamp: 200},
		Entry{Term: "tie-a", Timestamp: 150},
		Entry{Term: "tie-b", Timestamp: 150},
	)

	s := New(backend)
	assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, s.Terms())
}

func TestStore_LoadFailureStartsEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	backend.LoadErr = errors.New("disk on fire")

	var reported error
	s := New(backend, WithErrorHandler(func(err error) { reported = err }))

	assert.Zero(t, s.Len())
	var perr *PersistenceError
	require.ErrorAs(t, reported, &perr)
	assert.Equal(t, "load", perr.Op)
}

func TestStore_SaveFailureKeepsMemory(t *testing.T) {
	backend := NewMemoryBackend()
	var reported []error
	s := New(backend, WithErrorHandler(func(err error) { reported = append(reported, err) }))

	backend.SaveErr = errors.New("read-only")
	err := s.Add("cats")

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "add", perr.Op)
	assert.ErrorIs(t, err, backend.SaveErr)
	assert.Equal(t, []string{"cats"}, s.Terms(), "memory stays ahead of disk")
	assert.Len(t, reported, 1)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	backend := NewFileBackend(path)

	s := New(backend, WithClock(tickingClock()))
	require.NoError(t, s.Add("cats"))
	require.NoError(t, s.Add("dogs"))

	reloaded := New(NewFileBackend(path))
	assert.Equal(t, []string{"dogs", "cats"}, reloaded.Terms())
	assert.Equal(t, s.All(), reloaded.All())
}

func TestFileBackend_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"term": "older", "timestamp": 1517700000.25},
  {"term": "newer", "timestamp": 1517800000.5}
]`), 0o644))

	s := New(NewFileBackend(path))
	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Term)
	assert.InDelta(t, 1517800000.5, all[0].Timestamp, 1e-6)
	assert.Equal(t, int64(1517800000), all[0].Time().Unix())
}

func TestFileBackend_MissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	entries, err := NewFileBackend(filepath.Join(dir, "missing.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	entries, err = NewFileBackend(empty).Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileBackend_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileBackend(path).Load()
	assert.Error(t, err)

	// the store survives and overwrites on the next add
	s := New(NewFileBackend(path))
	assert.Zero(t, s.Len())
	require.NoError(t, s.Add("fresh"))

	entries, err := NewFileBackend(path).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, terms(entries))
}

func TestFileBackend_ClearWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := New(NewFileBackend(path))
	require.NoError(t, s.Add("a"))
	require.NoError(t, s.Clear())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
