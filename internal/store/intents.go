package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/models"
)

const (
	DefaultIntentTTL = 7 * 24 * time.Hour

	IntentStatusActive    = "active"
	IntentStatusEvaluated = "evaluated"
)

// IntentCache is the company-side working set: one hash per active intent
// and a list of offers received for it. Both keys expire together.
type IntentCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIntentCache(rdb redis.Cmdable, ttl time.Duration) *IntentCache {
	if ttl <= 0 {
		ttl = DefaultIntentTTL
	}
	return &IntentCache{rdb: rdb, ttl: ttl}
}

func intentKey(id string) string { return "intent:" + id }
func offersKey(id string) string { return "intent:" + id + ":offers" }

// PutIntent stores the intent as active.
func (c *IntentCache) PutIntent(ctx context.Context, intent models.CreditIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return apperrors.NewCacheError("marshal intent", err)
	}

	key := intentKey(intent.IntentID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"payload", payload,
			"company_id", intent.CompanyID,
			"status", IntentStatusActive,
		)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return apperrors.NewCacheError("put intent", err)
	}
	return nil
}

// GetIntent returns nil, nil when the intent is not cached.
func (c *IntentCache) GetIntent(ctx context.Context, intentID string) (*models.CreditIntent, error) {
	payload, err := c.rdb.HGet(ctx, intentKey(intentID), "payload").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewCacheError("get intent", err)
	}

	var intent models.CreditIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		return nil, apperrors.NewCacheError("decode intent", err)
	}
	return &intent, nil
}

// Status returns "" when the intent is not cached.
func (c *IntentCache) Status(ctx context.Context, intentID string) (string, error) {
	status, err := c.rdb.HGet(ctx, intentKey(intentID), "status").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewCacheError("get status", err)
	}
	return status, nil
}

func (c *IntentCache) SetStatus(ctx context.Context, intentID, status string) error {
	if err := c.rdb.HSet(ctx, intentKey(intentID), "status", status).Err(); err != nil {
		return apperrors.NewCacheError("set status", err)
	}
	return nil
}

// AppendOffers adds offers to the intent's received list.
func (c *IntentCache) AppendOffers(ctx context.Context, intentID string, offers ...models.CreditOffer) error {
	if len(offers) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(offers))
	for _, o := range offers {
		payload, err := json.Marshal(o)
		if err != nil {
			return apperrors.NewCacheError("marshal offer", err)
		}
		values = append(values, payload)
	}

	key := offersKey(intentID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return apperrors.NewCacheError("append offers", err)
	}
	return nil
}

// GetOffers returns the received offers in arrival order, or nil when none
// are cached.
func (c *IntentCache) GetOffers(ctx context.Context, intentID string) ([]models.CreditOffer, error) {
	raw, err := c.rdb.LRange(ctx, offersKey(intentID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewCacheError("get offers", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	offers := make([]models.CreditOffer, 0, len(raw))
	for _, r := range raw {
		var o models.CreditOffer
		if err := json.Unmarshal([]byte(r), &o); err != nil {
			return nil, apperrors.NewCacheError("decode offer", err)
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// Delete drops the intent and its offers.
func (c *IntentCache) Delete(ctx context.Context, intentID string) error {
	if err := c.rdb.Del(ctx, intentKey(intentID), offersKey(intentID)).Err(); err != nil {
		return apperrors.NewCacheError("delete intent", err)
	}
	return nil
}
