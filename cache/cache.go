// Package cache tracks the set of items currently listed for a watch.
package cache

import (
	"slices"

	"github.com/aluiziolira/go-catalog-watch/models"
)

// ItemCache mirrors the latest successful catalog snapshot. It is owned by a
// single poller and is not safe for concurrent use.
type ItemCache struct {
	items  map[int64]models.Item
	primed bool
}

// New returns an empty cache.
func New() *ItemCache {
	return &ItemCache{items: make(map[int64]models.Item)}
}

// Apply replaces the cache contents with latest and returns the items whose id
// was not cached before, in the order received. The first call only records a
// baseline and returns nothing.
func (c *ItemCache) Apply(latest []models.Item) []models.Item {
	var fresh []models.Item
	next := make(map[int64]models.Item, len(latest))

	for _, it := range latest {
		_, known := c.items[it.ID]
		_, repeated := next[it.ID]
		if c.primed && !known && !repeated {
			fresh = append(fresh, it)
		}
		next[it.ID] = it
	}

	c.items = next
	c.primed = true
	return fresh
}

// Len reports the number of cached items.
func (c *ItemCache) Len() int {
	return len(c.items)
}

func (c *ItemCache) has(id int64) bool {
	_, ok := c.items[id]
	return ok
}

func (c *ItemCache) get(id int64) (models.Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// ids returns the cached ids in ascending order.
func (c *ItemCache) ids() []int64 {
	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Primed reports whether a baseline snapshot has been applied.
func (c *ItemCache) Primed() bool {
	return c.primed
}
