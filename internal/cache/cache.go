package cache

import (
	"context"
	"encoding/json"
	"time"

	"livrel_back_end/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	CatalogCacheTTL = 10 * time.Minute

	catalogKey     = "catalog:active"
	ebookKeyPrefix = "ebook:slug:"
)

// EbookCache est un cache read-through du catalogue public dans Redis. Le
// catalogue change rarement et la page d'accueil le lit sans arrêt.
type EbookCache struct {
	redis *redis.Client
}

func NewEbookCache(r *redis.Client) *EbookCache {
	return &EbookCache{redis: r}
}

func (c *EbookCache) GetCatalog(ctx context.Context) ([]*models.Ebook, bool) {
	data, err := c.redis.Get(ctx, catalogKey).Result()
	if err != nil {
		return nil, false
	}
	var ebooks []*models.Ebook
	if json.Unmarshal([]byte(data), &ebooks) != nil {
		return nil, false
	}
	return ebooks, true
}

func (c *EbookCache) SetCatalog(ctx context.Context, ebooks []*models.Ebook) {
	if data, err := json.Marshal(ebooks); err == nil {
		c.redis.Set(ctx, catalogKey, data, CatalogCacheTTL)
	}
}

func (c *EbookCache) GetBySlug(ctx context.Context, slug string) (*models.Ebook, bool) {
	data, err := c.redis.Get(ctx, ebookKeyPrefix+slug).Result()
	if err != nil {
		return nil, false
	}
	var e models.Ebook
	if json.Unmarshal([]byte(data), &e) != nil {
		return nil, false
	}
	return &e, true
}

func (c *EbookCache) SetBySlug(ctx context.Context, e *models.Ebook) {
	if data, err := json.Marshal(e); err == nil {
		c.redis.Set(ctx, ebookKeyPrefix+e.Slug, data, CatalogCacheTTL)
	}
}

// Invalidate purge le catalogue et une fiche après modification back-office.
func (c *EbookCache) Invalidate(ctx context.Context, slug string) {
	c.redis.Del(ctx, catalogKey, ebookKeyPrefix+slug)
}
