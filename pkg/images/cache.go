// Package images acquires remote and local bitmaps for image views and
// keeps them in a process-wide cache.
package images

import (
	"container/list"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"painter/pkg/resource"
	stdnet "painter/std/net"
)

// Policy selects how long an acquired image is retained.
type Policy int

const (
	// Bounded entries are evicted oldest-unused first once the cache grows
	// past its byte budget.
	Bounded Policy = iota
	// Unbounded entries live for the lifetime of the cache.
	Unbounded
)

func (p Policy) String() string {
	if p == Unbounded {
		return "unbounded"
	}
	return "bounded"
}

// DefaultMaxBytes is the bounded budget when Options.MaxBytes is zero.
const DefaultMaxBytes = 6 << 20

// DefaultRetryAfter is how long a failed URL resolves to the placeholder
// without being fetched again.
const DefaultRetryAfter = 30 * time.Second

// Entry is an acquired image. The zero Entry (empty Path) is the placeholder
// for a failed acquisition and means "nothing to draw".
type Entry struct {
	URL    string
	Path   string
	Width  int
	Height int
	Image  image.Image

	size int64
	// owned files were written by the cache and are removed on eviction.
	owned bool
}

// Empty reports whether e is the placeholder.
func (e Entry) Empty() bool {
	return e.Path == "" || e.Image == nil
}

// AcquisitionError wraps a failed fetch or decode. It is logged, never
// returned from Acquire.
type AcquisitionError struct {
	URL string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %s: %v", e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Options configures a Cache.
type Options struct {
	// Dir receives downloaded files. Empty means a directory under os.TempDir.
	Dir string
	// MaxBytes is the budget for Bounded entries.
	MaxBytes int64
	// Fetcher reads URLs. Nil means resource.NewFetcher("").
	Fetcher resource.Fetcher
	// RetryAfter defaults to DefaultRetryAfter.
	RetryAfter time.Duration
	// Now is the clock for RetryAfter. Nil means time.Now.
	Now func() time.Time
}

type cacheItem struct {
	entry  Entry
	policy Policy
	elem   *list.Element
}

// Cache deduplicates concurrent acquisitions of the same URL and applies a
// per-call retention policy. It is safe for concurrent use and is meant to
// be shared by every engine in a process.
type Cache struct {
	opts  Options
	group singleflight.Group

	mu    sync.Mutex
	items map[string]*cacheItem
	lru   *list.List // bounded items, front = most recently used
	used  int64
	pins  map[string]int

	// failed holds, per URL, the time before which a failed fetch is not
	// repeated.
	failed map[string]time.Time
}

func NewCache(opts Options) *Cache {
	if opts.Dir == "" {
		opts.Dir = filepath.Join(os.TempDir(), "painter-images")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Fetcher == nil {
		opts.Fetcher = resource.NewFetcher("")
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = DefaultRetryAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		opts:   opts,
		items:  make(map[string]*cacheItem),
		lru:    list.New(),
		pins:   make(map[string]int),
		failed: make(map[string]time.Time),
	}
}

var (
	sharedOnce sync.Once
	shared     *Cache
)

// Shared returns the process-wide cache with default options.
func Shared() *Cache {
	sharedOnce.Do(func() {
		shared = NewCache(Options{})
	})
	return shared
}

// Lookup returns a resident entry without fetching.
func (c *Cache) Lookup(url string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[url]
	if !ok {
		return Entry{}, false
	}
	c.touch(it)
	return it.entry, true
}

// Acquire returns the entry for url, fetching it at most once no matter how
// many callers ask concurrently. A failure yields the placeholder entry, and
// the URL keeps yielding it without a fetch until RetryAfter has passed or
// Retry is called.
func (c *Cache) Acquire(ctx context.Context, url string, policy Policy) Entry {
	if url == "" {
		return Entry{}
	}
	c.mu.Lock()
	if e, ok := c.residentLocked(url, policy); ok {
		c.mu.Unlock()
		return e
	}
	if c.failingLocked(url) {
		c.mu.Unlock()
		return Entry{URL: url}
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		c.mu.Lock()
		if it, ok := c.items[url]; ok {
			// stored by a flight that ended after our check above
			e := it.entry
			c.mu.Unlock()
			return e, nil
		}
		c.mu.Unlock()

		e, err := c.load(ctx, url)
		if err != nil {
			if ctx.Err() == nil {
				c.mu.Lock()
				c.failed[url] = c.opts.Now().Add(c.opts.RetryAfter)
				c.mu.Unlock()
			}
			return nil, err
		}
		return c.store(e, policy), nil
	})
	if err != nil {
		log.Printf("images: %v", &AcquisitionError{URL: url, Err: err})
		return Entry{URL: url}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.residentLocked(url, policy); ok {
		return e
	}
	return v.(Entry)
}

// Retry forgets recorded failures so the next Acquire of each URL fetches
// again.
func (c *Cache) Retry(urls ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		delete(c.failed, u)
	}
}

// residentLocked applies the caller's policy to a resident entry and
// returns it.
func (c *Cache) residentLocked(url string, policy Policy) (Entry, bool) {
	it, ok := c.items[url]
	if !ok {
		return Entry{}, false
	}
	c.retain(it, policy)
	c.touch(it)
	return it.entry, true
}

func (c *Cache) failingLocked(url string) bool {
	until, ok := c.failed[url]
	if !ok {
		return false
	}
	if c.opts.Now().Before(until) {
		return true
	}
	delete(c.failed, url)
	return false
}

// Pin marks urls as referenced by an in-progress paint so they survive
// eviction. The returned func releases the pins.
func (c *Cache) Pin(urls ...string) (release func()) {
	c.mu.Lock()
	for _, u := range urls {
		c.pins[u]++
	}
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			for _, u := range urls {
				if c.pins[u]--; c.pins[u] <= 0 {
					delete(c.pins, u)
				}
			}
			c.evict()
			c.mu.Unlock()
		})
	}
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Used returns the bytes held by Bounded entries.
func (c *Cache) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *Cache) load(ctx context.Context, url string) (Entry, error) {
	data, _, err := c.opts.Fetcher.Fetch(ctx, url)
	if err != nil {
		return Entry{}, err
	}
	img, format, err := Decode(data)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		URL:    url,
		Path:   url,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Image:  img,
		size:   int64(len(data)),
	}
	if stdnet.IsNetworkURL(url) || resource.IsDataURI(url) {
		path, err := c.save(url, format, data)
		if err != nil {
			return Entry{}, err
		}
		e.Path = path
		e.owned = true
	}
	return e, nil
}

func (c *Cache) save(url, format string, data []byte) (string, error) {
	if err := os.MkdirAll(c.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	sum := sha1.Sum([]byte(url))
	name := hex.EncodeToString(sum[:]) + "." + strings.ToLower(format)
	path := filepath.Join(c.opts.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("saving %s: %w", url, err)
	}
	return path, nil
}

func (c *Cache) store(e Entry, policy Policy) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failed, e.URL)
	if it, ok := c.items[e.URL]; ok {
		c.retain(it, policy)
		c.touch(it)
		return it.entry
	}
	it := &cacheItem{entry: e, policy: policy}
	c.items[e.URL] = it
	if policy == Bounded {
		it.elem = c.lru.PushFront(it)
		c.used += e.size
		c.evict()
	}
	return e
}

// retain upgrades a bounded item when a caller asks to keep it forever.
func (c *Cache) retain(it *cacheItem, policy Policy) {
	if policy == Unbounded && it.policy == Bounded {
		c.lru.Remove(it.elem)
		it.elem = nil
		c.used -= it.entry.size
		it.policy = Unbounded
	}
}

func (c *Cache) touch(it *cacheItem) {
	if it.elem != nil {
		c.lru.MoveToFront(it.elem)
	}
}

// evict drops oldest-unused bounded items until the budget is met, skipping
// pinned ones. Callers hold c.mu.
func (c *Cache) evict() {
	for e := c.lru.Back(); e != nil && c.used > c.opts.MaxBytes; {
		it := e.Value.(*cacheItem)
		prev := e.Prev()
		if c.pins[it.entry.URL] == 0 {
			c.lru.Remove(e)
			delete(c.items, it.entry.URL)
			c.used -= it.entry.size
			if it.entry.owned {
				if err := os.Remove(it.entry.Path); err != nil && !os.IsNotExist(err) {
					log.Printf("images: removing %s: %v", it.entry.Path, err)
				}
			}
		}
		e = prev
	}
}
