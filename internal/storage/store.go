package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/imgfind/internal/history"
)

var (
	historyBucket = []byte("history")
	metaBucket    = []byte("metadata")

	searchOptionsKey = []byte("search_options")
)

// Store is a bbolt database holding the search history and a few
// preferences. It implements history.Backend.
type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{historyBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all history entries, newest first.
func (s *Store) Load() ([]history.Entry, error) {
	var records []record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		return b.ForEach(func(_ []byte, v []byte) error {
			var r record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decoding history entry: %w", err)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp > records[j].Timestamp
		}
		return records[i].Order < records[j].Order
	})
	entries := make([]history.Entry, len(records))
	for i, r := range records {
		entries[i] = r.Entry
	}
	return entries, nil
}

// record is a stored history entry. Order is its position in the saved
// newest-first list; keys sort by term, so equal timestamps need it.
type record struct {
	history.Entry
	Order int `json:"order"`
}

// Save replaces the stored history with entries in one transaction.
// Entries are keyed by lower-cased term.
func (s *Store) Save(entries []history.Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(historyBucket) != nil {
			if err := tx.DeleteBucket(historyBucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(historyBucket)
		if err != nil {
			return err
		}
		for i, e := range entries {
			data, err := json.Marshal(record{Entry: e, Order: i})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(strings.ToLower(e.Term)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// SearchOptions are the sort and window last chosen by the user.
type SearchOptions struct {
	Sort   string `json:"sort"`
	Window string `json:"window"`
}

func (s *Store) SaveSearchOptions(opts SearchOptions) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(opts)
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(searchOptionsKey, data)
	})
}

// LoadSearchOptions returns the saved options and whether any were saved.
func (s *Store) LoadSearchOptions() (SearchOptions, bool, error) {
	var opts SearchOptions
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(searchOptionsKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &opts)
	})
	return opts, found, err
}
