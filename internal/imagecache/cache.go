package imagecache

import (
	"context"
	"sync"

	"github.com/pders01/imgfind/internal/debuglog"
)

// Requester identifies whoever wants an image, typically a display slot.
// A requester is interested in at most one URL at a time.
type Requester string

// Delivery reports the end of a fetch to one interested requester. Err is
// set on failure and Bytes is nil.
type Delivery struct {
	Requester Requester
	URL       string
	Bytes     []byte
	Err       error
}

// Fetcher downloads the bytes behind a URL. Fetch must honour ctx.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type flight struct {
	waiters map[Requester]struct{}
	cancel  context.CancelFunc
}

// Cache holds downloaded image bytes by URL and collapses concurrent
// requests for the same URL into one transport fetch. It is safe for
// concurrent use. Entries are never evicted; call Clear to drop them.
type Cache struct {
	fetcher Fetcher
	deliver func(Delivery)
	log     *debuglog.FieldLogger

	mu        sync.Mutex
	entries   map[string][]byte
	inflight  map[string]*flight
	interests map[Requester]string
}

// New returns a cache that reports completed fetches to deliver. deliver is
// called from the fetching goroutine, never with the cache locked.
func New(fetcher Fetcher, deliver func(Delivery)) *Cache {
	return &Cache{
		fetcher:   fetcher,
		deliver:   deliver,
		log:       debuglog.WithFields(debuglog.Fields{"component": "imagecache"}),
		entries:   make(map[string][]byte),
		inflight:  make(map[string]*flight),
		interests: make(map[Requester]string),
	}
}

// Fetch returns cached bytes immediately when present. Otherwise it records
// that r wants url, starts a download unless one is already running, and
// returns false; the bytes arrive later through the deliver callback.
// Any earlier interest of r in a different URL is dropped.
func (c *Cache) Fetch(r Requester, url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.interests[r]; ok && current == url {
		if _, running := c.inflight[url]; running {
			return nil, false
		}
	}
	c.detachLocked(r)

	if data, ok := c.entries[url]; ok {
		return data, true
	}

	if f, ok := c.inflight[url]; ok {
		f.waiters[r] = struct{}{}
		c.interests[r] = url
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &flight{
		waiters: map[Requester]struct{}{r: {}},
		cancel:  cancel,
	}
	c.inflight[url] = f
	c.interests[r] = url

	c.log.Debugf("fetching %s", url)
	go c.run(ctx, url, f)
	return nil, false
}

// Release drops r's interest. The underlying download is cancelled when no
// other requester still waits for it.
func (c *Cache) Release(r Requester) {
	c.mu.Lock()
	c.detachLocked(r)
	c.mu.Unlock()
}

func (c *Cache) detachLocked(r Requester) {
	url, ok := c.interests[r]
	if !ok {
		return
	}
	delete(c.interests, r)

	f, ok := c.inflight[url]
	if !ok {
		return
	}
	delete(f.waiters, r)
	if len(f.waiters) == 0 {
		f.cancel()
		delete(c.inflight, url)
		c.log.Debugf("cancelled %s", url)
	}
}

func (c *Cache) run(ctx context.Context, url string, f *flight) {
	data, err := c.fetcher.Fetch(ctx, url)
	f.cancel()

	c.mu.Lock()
	if c.inflight[url] != f {
		// cancelled or cleared while running
		c.mu.Unlock()
		return
	}
	delete(c.inflight, url)

	if err == nil {
		c.entries[url] = data
	} else {
		c.log.Warnf("fetch %s failed: %v", url, err)
	}

	deliveries := make([]Delivery, 0, len(f.waiters))
	for r := range f.waiters {
		if c.interests[r] == url {
			delete(c.interests, r)
		}
		d := Delivery{Requester: r, URL: url}
		if err != nil {
			d.Err = err
		} else {
			d.Bytes = data
		}
		deliveries = append(deliveries, d)
	}
	c.mu.Unlock()

	if c.deliver == nil {
		return
	}
	for _, d := range deliveries {
		c.deliver(d)
	}
}

// Get returns cached bytes without registering interest.
func (c *Cache) Get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[url]
	return data, ok
}

// Clear drops cached bytes and all bookkeeping. Downloads already running
// are left alone and their results are discarded.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.inflight = make(map[string]*flight)
	c.interests = make(map[Requester]string)
}

// Len reports the number of cached URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// InFlight reports the number of running downloads.
func (c *Cache) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
