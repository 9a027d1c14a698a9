package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/imgfind/internal/transport"
	"github.com/pders01/imgfind/internal/validation"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(transport.NewFetcher(), validation.NewPermissiveImageURLValidator(), 2)
	data, err := f.Fetch(context.Background(), server.URL+"/abc123m.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)
}

func TestHTTPFetcher_RejectsInvalidURL(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	// the secure validator refuses loopback hosts
	f := NewHTTPFetcher(transport.NewFetcher(), nil, 1)
	_, err := f.Fetch(context.Background(), server.URL+"/a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image url")
	assert.Zero(t, calls.Load())
}

func TestHTTPFetcher_BoundsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		w.Write([]byte("img"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(transport.NewFetcher(), validation.NewPermissiveImageURLValidator(), 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), server.URL+"/x.png")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
}

func TestHTTPFetcher_WithCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("thumb"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(transport.NewFetcher(), validation.NewPermissiveImageURLValidator(), 4)
	col := &collector{}
	c := New(f, col.deliver)

	url := server.URL + "/abc123m.png"
	c.Fetch("a", url)
	c.Fetch("b", url)

	got := col.waitFor(t, 2)
	for _, d := range got {
		assert.NoError(t, d.Err)
		assert.Equal(t, []byte("thumb"), d.Bytes)
	}
	assert.Equal(t, int32(1), calls.Load())
}
