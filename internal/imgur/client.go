package imgur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/debuglog"
	"github.com/pders01/imgfind/internal/transport"
)

const DefaultBaseURL = "https://api.imgur.com/3/gallery/search"

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Search call. Page is set only on success,
// Err only on failure.
type Outcome struct {
	Kind OutcomeKind
	Page ResultPage
	Err  error
}

func success(p ResultPage) Outcome { return Outcome{Kind: OutcomeSuccess, Page: p} }
func cancelled() Outcome           { return Outcome{Kind: OutcomeCancelled} }
func failure(err error) Outcome    { return Outcome{Kind: OutcomeFailure, Err: err} }

// Getter is the transport the client issues requests through.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) (*transport.Response, error)
}

// Client searches the gallery API. At most one request is in flight: each
// Search cancels the one before it.
type Client struct {
	getter   Getter
	baseURL  string
	clientID string
	limiter  *rate.Limiter
	log      *debuglog.FieldLogger

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelFunc
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithGetter(g Getter) Option {
	return func(c *Client) { c.getter = g }
}

// WithRateLimit spaces requests out. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(clientID string, opts ...Option) *Client {
	c := &Client{
		getter:   transport.NewFetcher(),
		baseURL:  DefaultBaseURL,
		clientID: clientID,
		log:      debuglog.WithFields(debuglog.Fields{"component": "imgur"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client with its own fetcher from the api section.
func NewFromConfig(cfg config.APIConfig) *Client {
	fetcher := transport.NewFetcher(
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithUserAgent(cfg.UserAgent),
	)
	return NewClient(cfg.ClientID,
		WithBaseURL(cfg.BaseURL),
		WithGetter(fetcher),
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
	)
}

// BuildURL returns the request URL for q, or an *EncodingError.
func (c *Client) BuildURL(q Query) (string, error) {
	q = q.withDefaults()
	if err := CheckTerm(q.Term); err != nil {
		return "", err
	}
	if _, err := ParseSort(string(q.Sort)); err != nil {
		return "", &EncodingError{Term: q.Term, Reason: err.Error()}
	}
	if _, err := ParseWindow(string(q.Window)); err != nil {
		return "", &EncodingError{Term: q.Term, Reason: err.Error()}
	}

	escaped := strings.ReplaceAll(url.QueryEscape(q.Term), "+", "%20")
	return fmt.Sprintf("%s/%s/%s/%d/?q=%s", c.baseURL, q.Sort, q.Window, q.Page, escaped), nil
}

// CheckTerm reports whether term can be sent as a query.
func CheckTerm(term string) error {
	if !utf8.ValidString(term) {
		return &EncodingError{Term: term, Reason: "invalid UTF-8"}
	}
	if strings.ContainsRune(term, 0) {
		return &EncodingError{Term: term, Reason: "contains NUL byte"}
	}
	return nil
}

// Search fetches one page. It blocks until the request finishes, so hosts
// call it from a goroutine. A call that is superseded by a newer Search or
// aborted by Cancel reports OutcomeCancelled regardless of what arrived.
// A ctx that is already done reports OutcomeCancelled without sending
// anything and without touching the request in flight.
func (c *Client) Search(ctx context.Context, q Query) Outcome {
	q = q.withDefaults()
	reqURL, err := c.BuildURL(q)
	if err != nil {
		return failure(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if ctx.Err() != nil {
		// superseded before it started; the newer request keeps running
		c.mu.Unlock()
		return cancelled()
	}
	if c.inflight != nil {
		c.inflight()
	}
	c.seq++
	mySeq := c.seq
	c.inflight = cancel
	c.mu.Unlock()

	log := c.log.With("term", q.Term).With("page", q.Page)
	log.Debugf("search %s", reqURL)

	out := c.do(ctx, reqURL, q)

	c.mu.Lock()
	superseded := c.seq != mySeq
	if !superseded {
		c.inflight = nil
	}
	c.mu.Unlock()

	if superseded || errors.Is(ctx.Err(), context.Canceled) {
		log.Debugf("search cancelled")
		return cancelled()
	}
	if out.Kind == OutcomeFailure {
		log.Warnf("search failed: %v", out.Err)
	}
	return out
}

// Cancel aborts the in-flight request, if any.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
}

func (c *Client) do(ctx context.Context, reqURL string, q Query) Outcome {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return failure(&TransportError{Err: err})
		}
	}

	header := http.Header{}
	header.Set("Authorization", "Client-ID "+c.clientID)
	header.Set("Accept", "application/json")

	resp, err := c.getter.Get(ctx, reqURL, header)
	if err != nil {
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			return failure(&TransportError{StatusCode: statusErr.StatusCode, Err: err})
		}
		return failure(&TransportError{Err: err})
	}

	var decoded searchResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return failure(&DecodeError{Status: resp.StatusCode, Err: err})
	}
	if !decoded.Success {
		return failure(&DecodeError{Status: decoded.Status, Err: errors.New("api reported success=false")})
	}
	if decoded.Data == nil {
		return failure(&DecodeError{Status: decoded.Status, Err: errors.New("missing data")})
	}

	return success(ResultPage{Number: q.Page, Results: flatten(decoded.Data)})
}
