package session

// Observer receives session notifications. All methods run on the session's
// executor.
type Observer interface {
	// OnResultsChanged reports that the result buffer changed for term.
	// changeCount is the number of results just added, or -1 when a fresh
	// search started or the session was cleared.
	OnResultsChanged(term string, changeCount int)
	OnHistoryChanged()
	OnImageReady(url string, data []byte)
	// OnSearchFailed reports a failed fetch. State is left as it was
	// before the fetch; Retry re-issues it.
	OnSearchFailed(term string, page int, err error)
}

// NopObserver ignores everything. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) OnResultsChanged(string, int)      {}
func (NopObserver) OnHistoryChanged()                 {}
func (NopObserver) OnImageReady(string, []byte)       {}
func (NopObserver) OnSearchFailed(string, int, error) {}
