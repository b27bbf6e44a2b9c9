package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/models"
)

// Service caches backend answers keyed by question and model, so repeat
// questions skip the inference call. Quota accounting is unaffected: the
// orchestrator records usage before consulting the cache.
type Service interface {
	Get(ctx context.Context, question, model string) (string, bool)
	Set(ctx context.Context, question, model, answer string) error
	Clear(ctx context.Context) error
}

// Cache implements Service on top of an in-memory TTL cache.
type Cache struct {
	enabled bool
	cache   *gocache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates the response cache. A disabled cache misses on every
// lookup.
func NewCache(cfg *config.CacheConfig, logger *logrus.Logger) Service {
	if !cfg.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   gocache.New(cfg.TTL, cfg.TTL*2),
		logger:  logger,
		maxSize: cfg.MaxSize,
	}
}

func (c *Cache) Get(ctx context.Context, question, model string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	if val, found := c.cache.Get(cacheKey(question, model)); found {
		entry := val.(*models.CacheEntry)
		c.logger.WithField("model", model).Debug("Response cache hit")
		return entry.Answer, true
	}
	return "", false
}

func (c *Cache) Set(ctx context.Context, question, model, answer string) error {
	if !c.enabled {
		return nil
	}

	if c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Response cache full, dropping expired entries")
		c.cache.DeleteExpired()
	}

	c.cache.SetDefault(cacheKey(question, model), &models.CacheEntry{
		Question: question,
		Answer:   answer,
		Model:    model,
	})
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	c.cache.Flush()
	return nil
}

func cacheKey(question, model string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", model, question)))
	return hex.EncodeToString(hash[:])
}
