package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/domain"
)

const summaryTTL = 10 * time.Minute

// CartCache keeps the per-owner cart summary in Redis so the storefront
// header badge does not hit Postgres on every page view.
type CartCache struct {
	client *redis.Client
}

func NewCartCache(client *redis.Client) *CartCache {
	return &CartCache{client: client}
}

func summaryKey(userID uuid.UUID) string {
	return "cart:summary:" + userID.String()
}

func (c *CartCache) GetSummary(ctx context.Context, userID uuid.UUID) (domain.CartSummary, bool, error) {
	value, err := c.client.Get(ctx, summaryKey(userID)).Result()
	if err == redis.Nil {
		return domain.CartSummary{}, false, nil
	}
	if err != nil {
		return domain.CartSummary{}, false, err
	}

	var s domain.CartSummary
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return domain.CartSummary{}, false, err
	}
	return s, true, nil
}

func (c *CartCache) SetSummary(ctx context.Context, userID uuid.UUID, s domain.CartSummary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey(userID), payload, summaryTTL).Err()
}

func (c *CartCache) Reset(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, summaryKey(userID)).Err()
}
