package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

const (
	DefaultTTL      = 30 * time.Minute
	DefaultWindow   = 6
	DefaultCapacity = 1000
)

// HistoryCache keeps the recent-message window per chat session in memory.
// Entries expire after TTL of inactivity and the least recently used
// session is evicted at capacity. The clock is injected so expiry is
// testable.
type HistoryCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	window   int
	capacity int
	now      func() time.Time

	order   *list.List
	entries map[string]*list.Element
}

type entry struct {
	sessionID string
	messages  []domain.ChatMessage
	touchedAt time.Time
}

func NewHistoryCache(ttl time.Duration, window, capacity int, now func() time.Time) *HistoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &HistoryCache{
		ttl:      ttl,
		window:   window,
		capacity: capacity,
		now:      now,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Recent returns the cached window for the session. A miss is returned for
// unknown and expired sessions alike so the caller falls through to the
// archive.
func (c *HistoryCache) Recent(sessionID string) ([]domain.ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	if c.now().Sub(e.touchedAt) > c.ttl {
		c.removeLocked(elem)
		return nil, false
	}

	e.touchedAt = c.now()
	c.order.MoveToFront(elem)

	out := make([]domain.ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out, true
}

func (c *HistoryCache) Append(sessionID, role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[sessionID]
	if ok {
		e := elem.Value.(*entry)
		if c.now().Sub(e.touchedAt) > c.ttl {
			e.messages = nil
		}
		e.messages = append(e.messages, domain.ChatMessage{Role: role, Content: content})
		if len(e.messages) > c.window {
			e.messages = e.messages[len(e.messages)-c.window:]
		}
		e.touchedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	e := &entry{
		sessionID: sessionID,
		messages:  []domain.ChatMessage{{Role: role, Content: content}},
		touchedAt: c.now(),
	}
	c.entries[sessionID] = c.order.PushFront(e)
}

func (c *HistoryCache) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.entries, e.sessionID)
}
