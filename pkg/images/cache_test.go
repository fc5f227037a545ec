package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// countingFetcher serves fixed bodies and counts calls per URL.
type countingFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  map[string]int
	gate   chan struct{} // when set, Fetch blocks until closed
	start  chan struct{} // when set, receives once per Fetch entry
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{bodies: make(map[string][]byte), calls: make(map[string]int)}
}

func (f *countingFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	f.mu.Lock()
	f.calls[uri]++
	body, ok := f.bodies[uri]
	f.mu.Unlock()
	if f.start != nil {
		f.start <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if !ok {
		return nil, "", errors.New("not found")
	}
	return body, "image/png", nil
}

func (f *countingFetcher) count(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[uri]
}

func TestAcquire_DeduplicatesConcurrentRequests(t *testing.T) {
	f := newCountingFetcher()
	f.bodies["a.png"] = pngBytes(t, 4, 2)
	f.gate = make(chan struct{})
	f.start = make(chan struct{}, 4)
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f})

	results := make([]Entry, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Acquire(context.Background(), "a.png", Bounded)
	}()
	<-f.start // first fetch is in flight
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = c.Acquire(context.Background(), "a.png", Bounded)
	}()
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if n := f.count("a.png"); n != 1 {
		t.Errorf("expected exactly one fetch, got %d", n)
	}
	if results[0].Path == "" || results[0].Path != results[1].Path {
		t.Errorf("expected both callers to get the same path, got %q and %q", results[0].Path, results[1].Path)
	}
	if results[0].Width != 4 || results[0].Height != 2 {
		t.Errorf("expected 4x2, got %dx%d", results[0].Width, results[0].Height)
	}
}

func TestAcquire_FailureIsPlaceholder(t *testing.T) {
	f := newCountingFetcher()
	f.bodies["broken.png"] = []byte("not an image")
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f})

	for _, u := range []string{"missing.png", "broken.png", ""} {
		e := c.Acquire(context.Background(), u, Bounded)
		if !e.Empty() || e.Width != 0 || e.Height != 0 || e.Path != "" {
			t.Errorf("%q: expected placeholder, got %+v", u, e)
		}
	}
	if c.Len() != 0 {
		t.Errorf("failed acquisitions must not be cached, len=%d", c.Len())
	}
}

func TestAcquire_CachedAfterFirstLoad(t *testing.T) {
	f := newCountingFetcher()
	f.bodies["a.png"] = pngBytes(t, 2, 2)
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f})
	c.Acquire(context.Background(), "a.png", Bounded)
	c.Acquire(context.Background(), "a.png", Bounded)
	if n := f.count("a.png"); n != 1 {
		t.Errorf("expected one fetch, got %d", n)
	}
	if _, ok := c.Lookup("a.png"); !ok {
		t.Error("expected a.png to be resident")
	}
}

func TestAcquire_BoundedEvictsOldestUnused(t *testing.T) {
	f := newCountingFetcher()
	body := pngBytes(t, 8, 8)
	for _, u := range []string{"a", "b", "c"} {
		f.bodies[u] = body
	}
	size := int64(len(body))
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f, MaxBytes: 2 * size})
	ctx := context.Background()

	c.Acquire(ctx, "a", Bounded)
	c.Acquire(ctx, "b", Bounded)
	c.Lookup("a") // a is now more recent than b
	c.Acquire(ctx, "c", Bounded)

	if _, ok := c.Lookup("b"); ok {
		t.Error("expected b to be evicted as oldest unused")
	}
	if _, ok := c.Lookup("a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Used() > 2*size {
		t.Errorf("used %d exceeds budget %d", c.Used(), 2*size)
	}
}

func TestAcquire_PinnedSurvivesEviction(t *testing.T) {
	f := newCountingFetcher()
	body := pngBytes(t, 8, 8)
	for _, u := range []string{"a", "b", "c"} {
		f.bodies[u] = body
	}
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f, MaxBytes: int64(len(body))})
	ctx := context.Background()

	release := c.Pin("a")
	c.Acquire(ctx, "a", Bounded)
	c.Acquire(ctx, "b", Bounded)
	if _, ok := c.Lookup("a"); !ok {
		t.Fatal("pinned entry was evicted")
	}
	release()
	release() // second release is a no-op
	c.Acquire(ctx, "c", Bounded)
	if _, ok := c.Lookup("a"); ok {
		t.Error("expected a to be evictable after release")
	}
}

func TestAcquire_UnboundedNeverEvicted(t *testing.T) {
	f := newCountingFetcher()
	body := pngBytes(t, 8, 8)
	for _, u := range []string{"keep", "x", "y"} {
		f.bodies[u] = body
	}
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f, MaxBytes: int64(len(body))})
	ctx := context.Background()
	c.Acquire(ctx, "keep", Unbounded)
	c.Acquire(ctx, "x", Bounded)
	c.Acquire(ctx, "y", Bounded)
	if _, ok := c.Lookup("keep"); !ok {
		t.Error("unbounded entry was evicted")
	}
	if _, ok := c.Lookup("x"); ok {
		t.Error("expected x to be evicted")
	}
}

func TestAcquire_UpgradeToUnbounded(t *testing.T) {
	f := newCountingFetcher()
	body := pngBytes(t, 8, 8)
	for _, u := range []string{"a", "b"} {
		f.bodies[u] = body
	}
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f, MaxBytes: int64(len(body))})
	ctx := context.Background()
	c.Acquire(ctx, "a", Bounded)
	c.Acquire(ctx, "a", Unbounded)
	if c.Used() != 0 {
		t.Errorf("upgraded entry still counted against budget: %d", c.Used())
	}
	c.Acquire(ctx, "b", Bounded)
	if _, ok := c.Lookup("a"); !ok {
		t.Error("upgraded entry was evicted")
	}
}

func TestAcquire_RemoteSavedToDir(t *testing.T) {
	body := pngBytes(t, 3, 5)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewCache(Options{Dir: dir})
	e := c.Acquire(context.Background(), srv.URL+"/p.png", Bounded)
	if e.Empty() {
		t.Fatal("expected a resolved entry")
	}
	if got, _ := os.ReadFile(e.Path); !bytes.Equal(got, body) {
		t.Error("downloaded file does not match body")
	}
	w, h, err := GetImageDimensions(e.Path)
	if err != nil || w != 3 || h != 5 {
		t.Errorf("expected 3x5, got %dx%d (%v)", w, h, err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected one request, got %d", hits)
	}
}

func TestAcquire_LocalFileKeepsPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/local.png"
	if err := os.WriteFile(path, pngBytes(t, 2, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCache(Options{Dir: t.TempDir()})
	e := c.Acquire(context.Background(), path, Bounded)
	if e.Path != path {
		t.Errorf("expected local path to be kept, got %q", e.Path)
	}
}

func TestAcquire_FailureIsRemembered(t *testing.T) {
	f := newCountingFetcher()
	now := time.Unix(1700000000, 0)
	c := NewCache(Options{
		Dir:        t.TempDir(),
		Fetcher:    f,
		RetryAfter: time.Minute,
		Now:        func() time.Time { return now },
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if e := c.Acquire(ctx, "missing.png", Bounded); !e.Empty() {
			t.Fatalf("expected placeholder, got %+v", e)
		}
	}
	if n := f.count("missing.png"); n != 1 {
		t.Errorf("expected one fetch inside the retry window, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	c.Acquire(ctx, "missing.png", Bounded)
	if n := f.count("missing.png"); n != 2 {
		t.Errorf("expected a refetch after the retry window, got %d fetches", n)
	}

	c.Retry("missing.png")
	c.Acquire(ctx, "missing.png", Bounded)
	if n := f.count("missing.png"); n != 3 {
		t.Errorf("expected a refetch after Retry, got %d fetches", n)
	}
}

func TestAcquire_RecoversAfterRetry(t *testing.T) {
	f := newCountingFetcher()
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f})
	ctx := context.Background()
	if e := c.Acquire(ctx, "late.png", Bounded); !e.Empty() {
		t.Fatalf("expected placeholder, got %+v", e)
	}
	f.mu.Lock()
	f.bodies["late.png"] = pngBytes(t, 2, 3)
	f.mu.Unlock()

	if e := c.Acquire(ctx, "late.png", Bounded); !e.Empty() {
		t.Errorf("failure was forgotten inside the retry window")
	}
	c.Retry("late.png")
	if e := c.Acquire(ctx, "late.png", Bounded); e.Width != 2 || e.Height != 3 {
		t.Errorf("expected 2x3 after Retry, got %+v", e)
	}
}

func TestAcquire_SingleFetchUnderContention(t *testing.T) {
	f := newCountingFetcher()
	f.bodies["a.png"] = pngBytes(t, 2, 2)
	c := NewCache(Options{Dir: t.TempDir(), Fetcher: f})

	ready := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			if e := c.Acquire(context.Background(), "a.png", Bounded); e.Empty() {
				t.Errorf("caller got the placeholder")
			}
		}()
	}
	close(ready)
	wg.Wait()
	if n := f.count("a.png"); n != 1 {
		t.Errorf("expected exactly one fetch, got %d", n)
	}
}
