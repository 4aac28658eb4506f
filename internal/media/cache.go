package media

import (
	"fmt"
	"sync"
)

const FeaturedListKey = "media_list:featured"

// ListingKeys is the set of cache keys affected by a featured-state mutation
// of one media item: its detail entry plus the shared featured listing.
func ListingKeys(id fmt.Stringer) []string {
	return []string{
		fmt.Sprintf("media_detail:%s", id.String()),
		FeaturedListKey,
	}
}

// Invalidator drops cached listing results after a mutation. Invalidation is
// best effort: listings are always recomputable from the store, so a failed
// invalidation is logged by the caller and never fails the write.
type Invalidator interface {
	Invalidate(keys ...string) error
}

// VersionCache invalidates by bumping a per-key version counter instead of
// deleting entries. Readers mix the current version into their composite
// cache key, so entries written under an older version are simply never read
// again.
type VersionCache struct {
	mu sync.RWMutex

	versions map[string]uint64
}

func NewVersionCache() *VersionCache {
	return &VersionCache{
		versions: make(map[string]uint64),
	}
}

func (c *VersionCache) Invalidate(keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		c.versions[key]++
	}

	return nil
}

// Version returns the current version for the key, starting at 1 for keys
// that were never invalidated.
func (c *VersionCache) Version(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.versions[key] + 1
}
