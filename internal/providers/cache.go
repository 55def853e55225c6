package providers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/models"
)

const cacheKeyPrefix = "provider:"

// Cache fronts the three providers with Redis. Only found records are cached
// so a company that appears later is picked up on the next call. Redis errors
// are logged and bypassed.
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{redis: rdb, ttl: ttl, logger: log}
}

func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	val, err := c.redis.Get(ctx, cacheKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("provider cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Cache) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("provider cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

type cachedCreditBureau struct {
	next  CreditBureau
	cache *Cache
}

// CreditBureau wraps next with the cache.
func (c *Cache) CreditBureau(next CreditBureau) CreditBureau {
	return &cachedCreditBureau{next: next, cache: c}
}

func (b *cachedCreditBureau) CreditReport(ctx context.Context, companyID string) (*models.CreditReport, error) {
	key := "credit:" + companyID
	var report models.CreditReport
	if b.cache.get(ctx, key, &report) {
		return &report, nil
	}
	found, err := b.next.CreditReport(ctx, companyID)
	if err != nil || found == nil {
		return found, err
	}
	b.cache.set(ctx, key, found)
	return found, nil
}

type cachedESGRegulator struct {
	next  ESGRegulator
	cache *Cache
}

// ESGRegulator wraps next with the cache.
func (c *Cache) ESGRegulator(next ESGRegulator) ESGRegulator {
	return &cachedESGRegulator{next: next, cache: c}
}

func (r *cachedESGRegulator) BankESG(ctx context.Context, bankID string) (*models.BankESGReport, error) {
	key := "esg:" + bankID
	var report models.BankESGReport
	if r.cache.get(ctx, key, &report) {
		return &report, nil
	}
	found, err := r.next.BankESG(ctx, bankID)
	if err != nil || found == nil {
		return found, err
	}
	r.cache.set(ctx, key, found)
	return found, nil
}

type cachedMarketData struct {
	next  MarketData
	cache *Cache
}

// MarketData wraps next with the cache.
func (c *Cache) MarketData(next MarketData) MarketData {
	return &cachedMarketData{next: next, cache: c}
}

func (m *cachedMarketData) Snapshot(ctx context.Context, companyID string) (*models.MarketSnapshot, error) {
	key := "market:" + companyID
	var snapshot models.MarketSnapshot
	if m.cache.get(ctx, key, &snapshot) {
		return &snapshot, nil
	}
	found, err := m.next.Snapshot(ctx, companyID)
	if err != nil || found == nil {
		return found, err
	}
	m.cache.set(ctx, key, found)
	return found, nil
}
