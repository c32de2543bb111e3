package cache

import (
	"CourseVault/internal/models"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// PointerCache memoizes the latest known pointer record per (course, variant)
// pair. It papers over replication lag between "blob uploaded" and "metadata
// store updated" and must never be treated as the source of truth; a process
// restart is a full invalidation.
type PointerCache struct {
	cache *gocache.Cache
}

func NewPointerCache(ttl, sweep time.Duration) *PointerCache {
	return &PointerCache{cache: gocache.New(ttl, sweep)}
}

func key(courseID uuid.UUID, variant models.Variant) string {
	return courseID.String() + "/" + string(variant)
}

func (c *PointerCache) Get(courseID uuid.UUID, variant models.Variant) *models.PointerRecord {
	if cached, found := c.cache.Get(key(courseID, variant)); found {
		record := cached.(models.PointerRecord)
		return &record
	}
	return nil
}

func (c *PointerCache) Set(courseID uuid.UUID, variant models.Variant, record models.PointerRecord) {
	c.cache.Set(key(courseID, variant), record, gocache.DefaultExpiration)
}

// Invalidate drops the given variants, or both when none are named.
func (c *PointerCache) Invalidate(courseID uuid.UUID, variants ...models.Variant) {
	if len(variants) == 0 {
		variants = []models.Variant{models.VariantPublished, models.VariantDraft}
	}
	for _, v := range variants {
		c.cache.Delete(key(courseID, v))
	}
}
