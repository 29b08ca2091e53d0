// ABOUTME: Size-bounded TTL window of message IDs already applied to client state.
// ABOUTME: Used by the conversation store to drop duplicate realtime deliveries.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Defaults used when the configuration leaves the window unset.
const (
	DefaultTTL     = 10 * time.Minute
	DefaultMaxSize = 1024
)

type entry struct {
	id     string
	seenAt time.Time
}

// Cache remembers message IDs for ttl, holding at most maxSize of them.
// Entries are kept in arrival order so the oldest is evicted first and
// expired entries are pruned from the front on every insert.
type Cache struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache. Non-positive arguments fall back to the defaults.
func New(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether id was recorded within the TTL window. An unseen
// id is recorded before returning false, so check and mark are atomic.
// Empty IDs are never considered duplicates.
func (c *Cache) Seen(id string) bool {
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	if _, ok := c.index[id]; ok {
		return true
	}

	if c.order.Len() >= c.maxSize {
		c.removeLocked(c.order.Front())
	}
	c.index[id] = c.order.PushBack(&entry{id: id, seenAt: now})
	return false
}

// Forget drops id from the window.
func (c *Cache) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[id]; ok {
		c.removeLocked(elem)
	}
}

// Len returns the number of IDs currently remembered.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
	return c.order.Len()
}

// pruneLocked removes expired entries. Must be called with mu held.
func (c *Cache) pruneLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		e := front.Value.(*entry)
		if now.Sub(e.seenAt) < c.ttl {
			return
		}
		c.removeLocked(front)
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	e := c.order.Remove(elem).(*entry)
	delete(c.index, e.id)
}
