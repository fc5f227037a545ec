package view

import "sync"

// RectCache remembers the resolved box of every view with an id so calc()
// expressions later in the same pass can reference it. It is safe for
// concurrent use by an interactive pass and an export pass.
type RectCache struct {
	mu    sync.RWMutex
	rects map[string]Rect
}

func NewRectCache() *RectCache {
	return &RectCache{rects: make(map[string]Rect)}
}

func (c *RectCache) Put(id string, r Rect) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.rects[id] = r
	c.mu.Unlock()
}

func (c *RectCache) Get(id string) (Rect, bool) {
	c.mu.RLock()
	r, ok := c.rects[id]
	c.mu.RUnlock()
	return r, ok
}

// Forget drops one id, or everything when no id is given.
func (c *RectCache) Forget(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		c.rects = make(map[string]Rect)
		return
	}
	for _, id := range ids {
		delete(c.rects, id)
	}
}

// RefAttr implements units.Refs.
func (c *RectCache) RefAttr(id, attr string) (float64, bool) {
	r, ok := c.Get(id)
	if !ok {
		return 0, false
	}
	return r.Attr(attr)
}
