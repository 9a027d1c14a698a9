package session

import "fmt"

type StatusKind int

const (
	StatusTyping StatusKind = iota
	StatusLoading
	StatusEmpty
	StatusResults
)

func (k StatusKind) String() string {
	switch k {
	case StatusTyping:
		return "typing"
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusResults:
		return "results"
	default:
		return "unknown"
	}
}

// Status is the footer state. Term is set only for StatusEmpty and names
// the search that ran out of results.
type Status struct {
	Kind StatusKind
	Term string
}

func (s Status) String() string {
	if s.Kind == StatusEmpty {
		return fmt.Sprintf("empty(%s)", s.Term)
	}
	return s.Kind.String()
}
