package history

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pders01/imgfind/internal/debuglog"
)

const DefaultMaxEntries = 50

// Entry is one remembered search term. Timestamp is seconds since the Unix
// epoch and may carry a fractional part.
type Entry struct {
	Term      string  `json:"term"`
	Timestamp float64 `json:"timestamp"`
}

func (e Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// key is the identity used for deduplication.
func key(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Backend persists the full entry list. Entries are passed newest-first.
type Backend interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// PersistenceError wraps a Backend failure. The in-memory history has already
// been updated when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is a bounded, case-insensitively deduplicated, newest-first list of
// search terms. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	entries   []Entry
	max       int
	now       func() time.Time
	onError   func(error)
	listeners []listener
	nextID    int
	log       *debuglog.FieldLogger
}

type listener struct {
	id int
	fn func()
}

type Option func(*Store)

func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithErrorHandler receives every persistence failure, including the one
// from the initial load.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Store) { s.onError = fn }
}

// New loads the backend's entries. A load failure is reported and the store
// starts empty.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		max:     DefaultMaxEntries,
		now:     time.Now,
		log:     debuglog.WithFields(debuglog.Fields{"component": "history"}),
	}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := backend.Load()
	if err != nil {
		s.report(&PersistenceError{Op: "load", Err: err})
		entries = nil
	}
	s.entries = normalize(entries, s.max)
	s.log.Debugf("loaded %d entries", len(s.entries))
	return s
}

// normalize orders entries newest-first, keeps the first occurrence of each
// term and applies the bound. The sort is stable so equal timestamps keep
// their stored order.
func normalize(entries []Entry, max int) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	out := make([]Entry, 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, e := range sorted {
		k := key(e.Term)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
		if len(out) == max {
			break
		}
	}
	return out
}

// OnChange registers fn to run after every mutation. The returned func
// removes it again.
func (s *Store) OnChange(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Add records term as the newest entry. An existing entry with the same
// case-insensitive term is replaced, taking the new casing and timestamp.
func (s *Store) Add(term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	k := key(term)

	s.mu.Lock()
	entries := make([]Entry, 0, len(s.entries)+1)
	entries = append(entries, Entry{Term: term, Timestamp: epochSeconds(s.now())})
	for _, e := range s.entries {
		if key(e.Term) != k {
			entries = append(entries, e)
		}
	}
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	s.entries = entries
	err := s.persistLocked("add")
	s.mu.Unlock()

	return s.finish(err)
}

// Remove deletes the entry matching term case-insensitively. Removing an
// absent term is not an error.
func (s *Store) Remove(term string) error {
	k := key(term)

	s.mu.Lock()
	idx := -1
	for i, e := range s.entries {
		if key(e.Term) == k {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	err := s.persistLocked("remove")
	s.mu.Unlock()

	return s.finish(err)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.entries = nil
	err := s.persistLocked("clear")
	s.mu.Unlock()

	return s.finish(err)
}

// All returns a newest-first snapshot.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Terms returns the terms of All in the same order.
func (s *Store) Terms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Term
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) persistLocked(op string) error {
	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)
	if err := s.backend.Save(snapshot); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// finish runs after the lock is released so handlers and listeners may call
// back into the store.
func (s *Store) finish(err error) error {
	if err != nil {
		s.report(err)
	}
	s.notify()
	return err
}

func (s *Store) report(err error) {
	s.log.Errorf("%v", err)
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}
