package imagecache

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/semaphore"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/transport"
	"github.com/pders01/imgfind/internal/validation"
)

// Getter is the transport HTTPFetcher downloads through.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) (*transport.Response, error)
}

// HTTPFetcher downloads images over HTTP with a bound on concurrent
// downloads. URLs are validated before any request is made.
type HTTPFetcher struct {
	getter    Getter
	validator *validation.ImageURLValidator
	sem       *semaphore.Weighted
}

func NewHTTPFetcher(getter Getter, validator *validation.ImageURLValidator, maxConcurrent int64) *HTTPFetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if validator == nil {
		validator = validation.NewImageURLValidator()
	}
	return &HTTPFetcher{
		getter:    getter,
		validator: validator,
		sem:       semaphore.NewWeighted(maxConcurrent),
	}
}

// NewHTTPFetcherFromConfig wires the images section into a fetcher.
func NewHTTPFetcherFromConfig(cfg config.ImagesConfig, userAgent string) *HTTPFetcher {
	getter := transport.NewFetcher(
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithUserAgent(userAgent),
		transport.WithMaxBytes(cfg.MaxBytes),
	)
	return NewHTTPFetcher(getter, validation.NewImageURLValidator(), cfg.MaxConcurrent)
}

func (h *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := h.validator.Validate(rawURL)
	if err != nil {
		return nil, fmt.Errorf("image url: %w", err)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	header := http.Header{}
	header.Set("Accept", "image/*")

	resp, err := h.getter.Get(ctx, u, header)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
