package card

import (
	"time"

	"habits/internal/domain"
)

// dayCache holds values just outside the window, keyed by day. It is pruned
// by date range after every shift rather than by recency.
type dayCache struct {
	entries map[string]domain.Value
	observe func(hit bool)
}

func newDayCache() *dayCache {
	return &dayCache{entries: make(map[string]domain.Value)}
}

// take removes and returns the entry for day. Values inside the window are
// never cached.
func (c *dayCache) take(day time.Time) (domain.Value, bool) {
	key := domain.DayKey(day)
	v, ok := c.entries[key]
	if c.observe != nil {
		c.observe(ok)
	}
	if ok {
		delete(c.entries, key)
	}
	return v, ok
}

func (c *dayCache) put(v domain.Value) {
	c.entries[domain.DayKey(v.Day)] = v
}

// prune drops every entry outside [from, to].
func (c *dayCache) prune(from, to time.Time) {
	lo, hi := domain.DayKey(from), domain.DayKey(to)
	for k := range c.entries {
		if k < lo || k > hi {
			delete(c.entries, k)
		}
	}
}

func (c *dayCache) reset() {
	clear(c.entries)
}

func (c *dayCache) len() int {
	return len(c.entries)
}
