package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pders01/imgfind/internal/debuglog"
	"github.com/pders01/imgfind/internal/history"
	"github.com/pders01/imgfind/internal/imagecache"
	"github.com/pders01/imgfind/internal/imgur"
	"github.com/pders01/imgfind/internal/suggest"
)

// Searcher runs gallery searches. Search blocks; Cancel aborts the request
// in flight so that it reports imgur.OutcomeCancelled. A Search whose ctx is
// already done reports imgur.OutcomeCancelled and leaves the request in
// flight alone.
type Searcher interface {
	Search(ctx context.Context, q imgur.Query) imgur.Outcome
	Cancel()
}

// History is the subset of *history.Store the session needs.
type History interface {
	Add(term string) error
	Remove(term string) error
	All() []history.Entry
	Terms() []string
	OnChange(fn func()) (unsubscribe func())
}

type Options struct {
	Executor Executor
	Client   Searcher
	History  History

	// Images downloads thumbnails. Without it thumbnail requests never
	// complete.
	Images imagecache.Fetcher
	// Suggester defaults to the fuzzy engine.
	Suggester suggest.Suggester
	Observer  Observer

	Sort   imgur.Sort
	Window imgur.Window

	// Spawn starts a search in the background. Defaults to a new goroutine.
	Spawn func(func())
}

// Session coordinates one search screen: the current query, its pages of
// results, the footer status, history recording and thumbnail requests.
// Apart from New and Close, every method must be called on the executor.
type Session struct {
	id        string
	exec      Executor
	client    Searcher
	history   History
	images    *imagecache.Cache
	suggester suggest.Suggester
	observer  Observer
	spawn     func(func())
	log       *debuglog.FieldLogger

	// writes persists history edits one at a time, in call order.
	writes      *Loop
	unsubscribe func()
	closeOnce   sync.Once

	sort   imgur.Sort
	window imgur.Window

	term     string
	page     int
	status   Status
	results  []imgur.Image
	recorded bool

	// gen identifies the current fetch. Completions carrying an older
	// value are dropped.
	gen         uint64
	inflight    bool
	cancelFetch context.CancelFunc
	prevStatus  Status
	failed      *imgur.Query
}

func New(opts Options) (*Session, error) {
	if opts.Executor == nil {
		return nil, errors.New("session: executor is required")
	}
	if opts.Client == nil {
		return nil, errors.New("session: client is required")
	}
	if opts.History == nil {
		return nil, errors.New("session: history is required")
	}

	s := &Session{
		id:        uuid.NewString(),
		exec:      opts.Executor,
		client:    opts.Client,
		history:   opts.History,
		suggester: opts.Suggester,
		observer:  opts.Observer,
		spawn:     opts.Spawn,
		sort:      opts.Sort,
		window:    opts.Window,
		status:    Status{Kind: StatusTyping},
	}
	if s.observer == nil {
		s.observer = NopObserver{}
	}
	if s.spawn == nil {
		s.spawn = func(fn func()) { go fn() }
	}
	if s.suggester == nil {
		s.suggester = suggest.NewFuzzyEngine()
	}
	if s.sort == "" {
		s.sort = imgur.SortTop
	}
	if s.window == "" {
		s.window = imgur.WindowAll
	}
	s.log = debuglog.WithFields(debuglog.Fields{"component": "session", "session": s.id[:8]})

	if opts.Images != nil {
		s.images = imagecache.New(opts.Images, s.onDelivery)
	}

	if err := s.suggester.Index(s.history.Terms()); err != nil {
		s.log.Warnf("indexing history: %v", err)
	}
	s.writes = NewLoop()
	s.unsubscribe = s.history.OnChange(s.onHistoryChange)

	return s, nil
}

// Close flushes pending history writes and stops listening to the store.
// It may be called from any goroutine, more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.writes.Close()
		s.unsubscribe()
	})
}

func (s *Session) ID() string { return s.id }

func (s *Session) Term() string         { return s.term }
func (s *Session) Page() int            { return s.page }
func (s *Session) Status() Status       { return s.status }
func (s *Session) Loading() bool        { return s.inflight }
func (s *Session) Sort() imgur.Sort     { return s.sort }
func (s *Session) Window() imgur.Window { return s.window }

// Submit starts a new search for raw. Blank input and the unchanged current
// term are ignored.
func (s *Session) Submit(raw string) {
	term := strings.TrimSpace(raw)
	if term == "" || term == s.term {
		return
	}
	if err := imgur.CheckTerm(term); err != nil {
		s.log.Warnf("rejecting query: %v", err)
		s.observer.OnSearchFailed(term, 1, err)
		return
	}
	s.recorded = false
	s.start(term)
}

// start resets the buffer and fetches page 1 of term.
func (s *Session) start(term string) {
	s.client.Cancel()
	s.results = nil
	s.status = Status{Kind: StatusLoading}
	s.term = term
	s.page = 0
	s.failed = nil
	s.observer.OnResultsChanged(term, -1)
	s.fetch(1)
}

// FetchNextPage appends the next page. It does nothing while a fetch is
// running, before the first page arrived, or once a page came back empty.
func (s *Session) FetchNextPage() {
	if s.term == "" || s.inflight || s.page == 0 || s.status.Kind == StatusEmpty {
		return
	}
	s.prevStatus = s.status
	s.status = Status{Kind: StatusLoading}
	s.fetch(s.page + 1)
}

// Retry re-issues the last failed fetch for the current term.
func (s *Session) Retry() {
	if s.failed == nil || s.inflight || s.failed.Term != s.term {
		return
	}
	q := *s.failed
	s.failed = nil

	if q.Page <= 1 {
		s.start(q.Term)
		return
	}
	s.FetchNextPage()
}

// Clear cancels any running fetch and returns to the typing state.
func (s *Session) Clear() {
	s.client.Cancel()
	s.stopFetch()
	s.gen++
	s.inflight = false
	s.results = nil
	s.status = Status{Kind: StatusTyping}
	s.term = ""
	s.page = 0
	s.recorded = false
	s.failed = nil
	s.observer.OnResultsChanged("", -1)
}

// SetSearchOptions changes sort and window. An active search restarts from
// page 1 with the new options.
func (s *Session) SetSearchOptions(sortName, windowName string) error {
	sort, err := imgur.ParseSort(sortName)
	if err != nil {
		return err
	}
	window, err := imgur.ParseWindow(windowName)
	if err != nil {
		return err
	}
	if sort == s.sort && window == s.window {
		return nil
	}
	s.sort, s.window = sort, window
	if s.term != "" {
		s.start(s.term)
	}
	return nil
}

// fetch supersedes the previous fetch here on the executor, so a spawned
// search that starts late cannot displace a newer one.
func (s *Session) fetch(page int) {
	s.stopFetch()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFetch = cancel

	s.gen++
	gen := s.gen
	s.inflight = true

	q := imgur.Query{Term: s.term, Sort: s.sort, Window: s.window, Page: page}
	s.log.Debugf("fetching page %d of %q", page, q.Term)

	s.spawn(func() {
		out := s.client.Search(ctx, q)
		s.exec.Post(func() { s.complete(gen, q, out) })
	})
}

func (s *Session) stopFetch() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
}

func (s *Session) complete(gen uint64, q imgur.Query, out imgur.Outcome) {
	if gen != s.gen {
		s.log.Debugf("dropping stale %s for %q page %d", out.Kind, q.Term, q.Page)
		return
	}
	s.inflight = false
	first := q.Page == 1

	switch out.Kind {
	case imgur.OutcomeCancelled:
		if !first {
			s.status = s.prevStatus
		}

	case imgur.OutcomeFailure:
		if !first {
			s.status = s.prevStatus
		}
		failed := q
		s.failed = &failed
		s.observer.OnSearchFailed(q.Term, q.Page, out.Err)

	case imgur.OutcomeSuccess:
		added := out.Page.Results
		if first {
			s.results = append([]imgur.Image(nil), added...)
		} else {
			s.results = append(s.results, added...)
		}
		s.page = q.Page
		if len(added) == 0 {
			s.status = Status{Kind: StatusEmpty, Term: q.Term}
		} else {
			s.status = Status{Kind: StatusResults}
		}
		s.log.Debugf("page %d of %q: %d results", q.Page, q.Term, len(added))
		s.observer.OnResultsChanged(q.Term, len(added))
	}
}

// RecordCurrentTermInHistory stores the current term once per submitted
// search.
func (s *Session) RecordCurrentTermInHistory() {
	if s.term == "" || s.recorded {
		return
	}
	s.recorded = true
	term := s.term
	s.writes.Post(func() {
		// failures are reported by the store itself
		_ = s.history.Add(term)
	})
}

// RemoveHistoryEntry forgets term. It runs after any earlier record.
func (s *Session) RemoveHistoryEntry(term string) {
	s.writes.Post(func() {
		_ = s.history.Remove(term)
	})
}

// History returns a newest-first snapshot.
func (s *Session) History() []history.Entry {
	return s.history.All()
}

func (s *Session) Suggest(prefix string, limit int) []string {
	out, err := s.suggester.Suggest(prefix, limit)
	if err != nil {
		s.log.Warnf("suggest %q: %v", prefix, err)
		return nil
	}
	return out
}

// onHistoryChange runs on whichever goroutine mutated the store.
func (s *Session) onHistoryChange() {
	if err := s.suggester.Index(s.history.Terms()); err != nil {
		s.log.Warnf("indexing history: %v", err)
	}
	s.exec.Post(s.observer.OnHistoryChanged)
}

func (s *Session) ResultCount() int { return len(s.results) }

func (s *Session) ResultAt(i int) (imgur.Image, bool) {
	if i < 0 || i >= len(s.results) {
		return imgur.Image{}, false
	}
	return s.results[i], true
}

func (s *Session) ThumbnailURL(i int) (string, bool) {
	img, ok := s.ResultAt(i)
	return img.Thumbnail, ok
}

func (s *Session) FullImageURL(i int) (string, bool) {
	img, ok := s.ResultAt(i)
	return img.Link, ok
}

// RequestThumbnail points slot at the thumbnail of result i. Cached bytes
// are returned directly; otherwise OnImageReady fires once they arrive.
func (s *Session) RequestThumbnail(slot imagecache.Requester, i int) ([]byte, bool) {
	url, ok := s.ThumbnailURL(i)
	if !ok {
		s.ReleaseSlot(slot)
		return nil, false
	}
	return s.RequestImage(slot, url)
}

// RequestImage is RequestThumbnail for an arbitrary URL, such as a
// full-size link.
func (s *Session) RequestImage(slot imagecache.Requester, url string) ([]byte, bool) {
	if s.images == nil {
		return nil, false
	}
	return s.images.Fetch(slot, url)
}

// ReleaseSlot tells the cache slot no longer displays anything.
func (s *Session) ReleaseSlot(slot imagecache.Requester) {
	if s.images != nil {
		s.images.Release(slot)
	}
}

func (s *Session) onDelivery(d imagecache.Delivery) {
	s.exec.Post(func() {
		if d.Err != nil {
			s.log.Debugf("image %s for %s failed: %v", d.URL, d.Requester, d.Err)
			return
		}
		s.observer.OnImageReady(d.URL, d.Bytes)
	})
}
