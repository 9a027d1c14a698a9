package suggest

import (
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// FuzzyEngine ranks prefix matches first, in recency order, followed by
// subsequence matches ordered by fuzzy score.
type FuzzyEngine struct {
	mu    sync.RWMutex
	terms []string
}

func NewFuzzyEngine() *FuzzyEngine {
	return &FuzzyEngine{}
}

func (e *FuzzyEngine) Index(terms []string) error {
	e.mu.Lock()
	e.terms = append([]string(nil), terms...)
	e.mu.Unlock()
	return nil
}

func (e *FuzzyEngine) Suggest(prefix string, limit int) ([]string, error) {
	limit = clampLimit(limit)
	e.mu.RLock()
	defer e.mu.RUnlock()

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return recent(e.terms, limit), nil
	}

	lower := strings.ToLower(prefix)
	out := make([]string, 0, limit)
	taken := make(map[int]bool)

	for i, term := range e.terms {
		if strings.HasPrefix(strings.ToLower(term), lower) {
			out = append(out, term)
			taken[i] = true
			if len(out) == limit {
				return out, nil
			}
		}
	}

	for _, m := range fuzzy.Find(prefix, e.terms) {
		if taken[m.Index] {
			continue
		}
		out = append(out, m.Str)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (e *FuzzyEngine) DocCount() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.terms), nil
}
