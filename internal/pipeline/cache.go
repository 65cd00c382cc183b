package pipeline

import (
	"sync"

	"github.com/couchcryptid/pm-density-service/internal/domain"
)

// summaryCache is a thread-safe LRU of day summaries. Each entry remembers
// the store version it was computed at; a version mismatch is a miss.
type summaryCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[domain.DateKey]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     domain.DateKey
	version uint64
	value   domain.Summary
	prev    *entry
	next    *entry
}

func newSummaryCache(maxEntries int) *summaryCache {
	return &summaryCache{
		maxEntries: maxEntries,
		entries:    make(map[domain.DateKey]*entry),
	}
}

func (c *summaryCache) get(key domain.DateKey, version uint64) (domain.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Summary{}, false
	}
	if e.version != version {
		delete(c.entries, key)
		c.remove(e)
		return domain.Summary{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *summaryCache) put(key domain.DateKey, version uint64, value domain.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.version = version
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, version: version, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *summaryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *summaryCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *summaryCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *summaryCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *summaryCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
