package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pders01/imgfind/internal/imgur"
	"github.com/pders01/imgfind/internal/session"
)

var errNoResults = errors.New("no results")

// collector drives a session outside the terminal UI. It pulls pages until
// enough have arrived or the search runs dry.
type collector struct {
	session.NopObserver

	s     *session.Session
	pages int
	done  chan error
}

func (c *collector) OnResultsChanged(term string, changeCount int) {
	if changeCount < 0 || c.s == nil {
		return
	}
	if changeCount == 0 || c.s.Page() >= c.pages {
		c.finish(nil)
		return
	}
	c.s.FetchNextPage()
}

func (c *collector) OnSearchFailed(term string, page int, err error) {
	c.finish(fmt.Errorf("search %q page %d: %w", term, page, err))
}

func (c *collector) finish(err error) {
	select {
	case c.done <- err:
	default:
	}
}

type searchRequest struct {
	Term   string
	Sort   string
	Window string
	Pages  int
	Record bool
}

// runSearch fetches up to req.Pages pages of req.Term and returns every
// result collected.
func runSearch(client session.Searcher, hist session.History, req searchRequest) ([]imgur.Image, error) {
	if strings.TrimSpace(req.Term) == "" {
		return nil, errors.New("search term is empty")
	}
	if req.Pages < 1 {
		req.Pages = 1
	}
	sort, err := imgur.ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}
	window, err := imgur.ParseWindow(req.Window)
	if err != nil {
		return nil, err
	}

	loop := session.NewLoop()
	defer loop.Close()

	c := &collector{pages: req.Pages, done: make(chan error, 1)}
	s, err := session.New(session.Options{
		Executor: loop,
		Client:   client,
		History:  hist,
		Observer: c,
		Sort:     sort,
		Window:   window,
		// Searches run on the loop so nothing outlives the command.
		Spawn: func(fn func()) { fn() },
	})
	if err != nil {
		return nil, err
	}
	// runs before loop.Close, flushing the history write
	defer s.Close()
	c.s = s

	loop.Do(func() { s.Submit(req.Term) })
	if err := <-c.done; err != nil {
		return nil, err
	}

	var results []imgur.Image
	loop.Do(func() {
		if req.Record {
			s.RecordCurrentTermInHistory()
		}
		for i := 0; i < s.ResultCount(); i++ {
			img, _ := s.ResultAt(i)
			results = append(results, img)
		}
	})
	if len(results) == 0 {
		return nil, errNoResults
	}
	return results, nil
}
