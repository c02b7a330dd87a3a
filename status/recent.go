// Package status serves health, metrics and recently seen items over HTTP.
package status

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-catalog-watch/models"
)

// Recent keeps the last few notifications, bounded by size. It is safe for
// concurrent use; every poller notifies into the same store.
type Recent struct {
	items *lru.Cache[string, models.Notification]
}

// NewRecent creates a store holding at most size notifications.
func NewRecent(size int) (*Recent, error) {
	c, err := lru.New[string, models.Notification](size)
	if err != nil {
		return nil, fmt.Errorf("recent items: %w", err)
	}
	return &Recent{items: c}, nil
}

// Notify records n, evicting the oldest entry when full.
func (r *Recent) Notify(n models.Notification) error {
	r.items.Add(recentKey(n), n)
	return nil
}

// List returns up to limit notifications, newest first. A limit <= 0 returns all.
func (r *Recent) List(limit int) []models.Notification {
	keys := r.items.Keys()
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}
	out := make([]models.Notification, 0, limit)
	for i := len(keys) - 1; i >= 0 && len(out) < limit; i-- {
		if n, ok := r.items.Peek(keys[i]); ok {
			out = append(out, n)
		}
	}
	return out
}

// Len reports how many notifications are stored.
func (r *Recent) Len() int {
	return r.items.Len()
}

// recentKey scopes item ids per watch; two watches may see the same listing.
func recentKey(n models.Notification) string {
	return fmt.Sprintf("%s/%d", n.Watch, n.Item.ID)
}
