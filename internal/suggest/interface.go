package suggest

import "fmt"

const defaultLimit = 10

// Suggester completes a partially typed query from previously searched terms.
type Suggester interface {
	// Index replaces the known terms. Terms are given newest first.
	Index(terms []string) error
	// Suggest returns at most limit terms matching prefix. An empty prefix
	// yields the most recent terms.
	Suggest(prefix string, limit int) ([]string, error)
}

// DocCounter is implemented by engines that can report their index size.
type DocCounter interface {
	DocCount() (int, error)
}

// New returns the engine registered under name ("fuzzy" or "bleve").
func New(name string) (Suggester, error) {
	switch name {
	case "", "fuzzy":
		return NewFuzzyEngine(), nil
	case "bleve":
		return NewBleveEngine()
	default:
		return nil, fmt.Errorf("unknown suggest engine %q", name)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func recent(terms []string, limit int) []string {
	if len(terms) > limit {
		terms = terms[:limit]
	}
	out := make([]string, len(terms))
	copy(out, terms)
	return out
}
