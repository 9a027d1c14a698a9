package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/history"
	"github.com/pders01/imgfind/internal/imgur"
	"github.com/pders01/imgfind/internal/storage"
)

// stubSearcher serves perPage images for each of pages pages of any term
// and fails terms listed in failing.
type stubSearcher struct {
	mu      sync.Mutex
	pages   int
	perPage int
	failing map[string]bool
	queries []imgur.Query
}

func (s *stubSearcher) Search(ctx context.Context, q imgur.Query) imgur.Outcome {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if s.failing[q.Term] {
		return imgur.Outcome{Kind: imgur.OutcomeFailure, Err: &imgur.TransportError{StatusCode: 503, Err: errors.New("unavailable")}}
	}
	var results []imgur.Image
	if q.Page <= s.pages {
		for i := 0; i < s.perPage; i++ {
			id := fmt.Sprintf("%s-%d-%d", q.Term, q.Page, i)
			link := "https://i.imgur.com/" + id + ".png"
			results = append(results, imgur.Image{
				ID:        id,
				Title:     "Image " + id,
				Link:      link,
				Thumbnail: imgur.ThumbnailURL(id, link),
			})
		}
	}
	return imgur.Outcome{Kind: imgur.OutcomeSuccess, Page: imgur.ResultPage{Number: q.Page, Results: results}}
}

func (s *stubSearcher) Cancel() {}

func (s *stubSearcher) Queries() []imgur.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]imgur.Query(nil), s.queries...)
}

type stubImages struct{}

func (stubImages) Fetch(ctx context.Context, url string) ([]byte, error) {
	return make([]byte, 2048), nil
}

type stubOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (o *stubOpener) Open(link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, link)
	return o.err
}

type stubOptions struct {
	mu    sync.Mutex
	saved []storage.SearchOptions
	err   error
}

func (o *stubOptions) SaveSearchOptions(opts storage.SearchOptions) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.saved = append(o.saved, opts)
	return nil
}

type harness struct {
	app     *App
	msgs    chan tea.Msg
	client  *stubSearcher
	store   *history.Store
	opener  *stubOpener
	options *stubOptions
}

func newHarness(t *testing.T, mutate ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		msgs:    make(chan tea.Msg, 256),
		client:  &stubSearcher{pages: 3, perPage: 5, failing: map[string]bool{"boom": true}},
		store:   history.New(history.NewMemoryBackend()),
		opener:  &stubOpener{},
		options: &stubOptions{},
	}
	deps := Deps{
		Config:  config.TestConfig(),
		Client:  h.client,
		History: h.store,
		Opener:  h.opener,
		Options: h.options,
	}
	for _, m := range mutate {
		m(&deps)
	}

	app, err := NewApp(deps)
	require.NoError(t, err)
	app.exec.attach(func(m tea.Msg) { h.msgs <- m })
	t.Cleanup(app.Close)

	h.app = app
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return h
}

// pumpUntil feeds posted session work into Update until cond holds.
func (h *harness) pumpUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case m := <-h.msgs:
			h.app.Update(m)
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}

func (h *harness) press(k tea.KeyMsg) tea.Cmd {
	_, cmd := h.app.Update(k)
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) search(t *testing.T, term string) {
	t.Helper()
	h.typeText(term)
	h.press(tea.KeyMsg{Type: tea.KeyEnter})
	h.pumpUntil(t, func() bool { return len(h.app.results.Items()) > 0 })
}

// runCmd executes cmd and any commands batched inside it, returning the
// messages they produce. Only use it with commands that return promptly.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}
