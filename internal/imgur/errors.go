package imgur

import "fmt"

// EncodingError means the query could not be turned into a request URL.
type EncodingError struct {
	Term   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode query %q: %s", e.Term, e.Reason)
}

// TransportError covers network failures, timeouts and HTTP error statuses.
// StatusCode is zero when no response arrived.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search request failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means the response arrived but could not be used.
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding search response (status %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
