package waitlist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
)

const countsCacheKey = "waitlist:counts"

type Cache interface {
	// Get returns ("", nil) when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// countsCache keeps the last computed counts for a short TTL. Cache failures
// degrade to store reads and are only logged.
type countsCache struct {
	cache Cache
	ttl   time.Duration
}

func newCountsCache(cache Cache, ttl time.Duration) *countsCache {
	if cache == nil || ttl <= 0 {
		return nil
	}
	return &countsCache{cache: cache, ttl: ttl}
}

func (cc *countsCache) get(ctx context.Context, logger *log.Logger) (*EntryCounts, bool) {
	if cc == nil {
		return nil, false
	}

	raw, err := cc.cache.Get(ctx, countsCacheKey)
	if err != nil {
		logger.Warn("Failed to read cached waitlist counts", "error", err)
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var counts EntryCounts
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		logger.Warn("Discarding malformed cached waitlist counts", "error", err)
		return nil, false
	}
	if counts.Total != counts.Notified+counts.NotNotified {
		return nil, false
	}
	return &counts, true
}

func (cc *countsCache) set(ctx context.Context, logger *log.Logger, counts *EntryCounts) {
	if cc == nil || counts == nil {
		return
	}

	payload, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := cc.cache.Set(ctx, countsCacheKey, string(payload), cc.ttl); err != nil {
		logger.Warn("Failed to cache waitlist counts", "error", err)
	}
}

func (cc *countsCache) invalidate(ctx context.Context, logger *log.Logger) {
	if cc == nil {
		return
	}
	if err := cc.cache.Delete(ctx, countsCacheKey); err != nil {
		logger.Warn("Failed to invalidate cached waitlist counts", "error", err)
	}
}
