package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileBackend stores entries as a JSON array of {term, timestamp} objects.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Path() string { return b.path }

// Load returns the stored entries. A missing file is an empty history.
func (b *FileBackend) Load() ([]Entry, error) {
	if strings.TrimSpace(b.path) == "" {
		return nil, fmt.Errorf("history file path is empty")
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

// Save replaces the file through a temporary sibling and a rename.
func (b *FileBackend) Save(entries []Entry) error {
	if strings.TrimSpace(b.path) == "" {
		return fmt.Errorf("history file path is empty")
	}
	if entries == nil {
		entries = []Entry{}
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	body = append(body, '\n')

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// MemoryBackend keeps entries in memory. Useful for tests and for running
// without a writable data directory.
type MemoryBackend struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
	LoadErr error
	SaveErr error
}

func NewMemoryBackend(entries ...Entry) *MemoryBackend {
	return &MemoryBackend{entries: entries}
}

func (m *MemoryBackend) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryBackend) Save(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.entries = make([]Entry, len(entries))
	copy(m.entries, entries)
	m.saves++
	return nil
}

// Saves reports how many successful saves happened.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Stored returns what was last saved.
func (m *MemoryBackend) Stored() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
