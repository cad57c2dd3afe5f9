package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"token-vending-service/internal/model"

	"github.com/redis/go-redis/v9"
)

const tokenSettingsKey = "token-vending:token-settings"

// SettingsCache holds the assembled price table between requests.
// Get reports a miss with ok=false and a nil error.
type SettingsCache interface {
	GetTokenSettings(ctx context.Context) (model.AllTokenSettings, bool, error)
	SetTokenSettings(ctx context.Context, settings model.AllTokenSettings) error
	Invalidate(ctx context.Context) error
}

type redisSettingsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSettingsCache(rdb *redis.Client, ttl time.Duration) SettingsCache {
	return &redisSettingsCache{rdb: rdb, ttl: ttl}
}

func (c *redisSettingsCache) GetTokenSettings(ctx context.Context) (model.AllTokenSettings, bool, error) {
	raw, err := c.rdb.Get(ctx, tokenSettingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get token settings: %w", err)
	}

	var settings model.AllTokenSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false, fmt.Errorf("decode cached token settings: %w", err)
	}
	return settings, true, nil
}

func (c *redisSettingsCache) SetTokenSettings(ctx context.Context, settings model.AllTokenSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode token settings: %w", err)
	}
	return c.rdb.Set(ctx, tokenSettingsKey, raw, c.ttl).Err()
}

func (c *redisSettingsCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, tokenSettingsKey).Err()
}

type noopSettingsCache struct{}

// NewNoopSettingsCache is used when no redis url is configured.
func NewNoopSettingsCache() SettingsCache {
	return noopSettingsCache{}
}

func (noopSettingsCache) GetTokenSettings(context.Context) (model.AllTokenSettings, bool, error) {
	return nil, false, nil
}

func (noopSettingsCache) SetTokenSettings(context.Context, model.AllTokenSettings) error {
	return nil
}

func (noopSettingsCache) Invalidate(context.Context) error {
	return nil
}
