// Package cache keeps catalog, customer and settings reads in Redis and drops
// them when a sale or refund makes them stale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"kassa/src/sale/domain/entity"
	"kassa/src/sale/domain/port"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "kassa:"

// Source is the backing store the cache reads through to.
type Source interface {
	port.ProductCatalog
	port.CustomerDirectory
	port.SettingsProvider
}

// ReadModelCache is a read-through Redis cache in front of Source. Redis
// failures are logged and the read goes to Source; concurrent misses for the
// same key share one Source call.
type ReadModelCache struct {
	client  *redis.Client
	source  Source
	baseTTL time.Duration
	logger  *zap.Logger
	sfg     singleflight.Group
}

func NewReadModelCache(client *redis.Client, source Source, ttl time.Duration, logger *zap.Logger) *ReadModelCache {
	return &ReadModelCache{
		client:  client,
		source:  source,
		baseTTL: ttl,
		logger:  logger,
	}
}

var (
	_ Source                    = (*ReadModelCache)(nil)
	_ port.ReadModelInvalidator = (*ReadModelCache)(nil)
)

func productKey(id string) string  { return fmt.Sprintf("%sproduct:%s", keyPrefix, id) }
func customerKey(id string) string { return fmt.Sprintf("%scustomer:%s", keyPrefix, id) }
func settingsKey() string          { return keyPrefix + "settings" }

func shiftTotalsKey(cashierID string) string {
	return fmt.Sprintf("%sshift_totals:%s", keyPrefix, cashierID)
}

func dashboardKey() string { return keyPrefix + "dashboard" }

func (c *ReadModelCache) Product(ctx context.Context, productID string) (*entity.Product, error) {
	return load(ctx, c, productKey(productID), func() (*entity.Product, error) {
		return c.source.Product(ctx, productID)
	})
}

func (c *ReadModelCache) Customer(ctx context.Context, customerID string) (*entity.Customer, error) {
	return load(ctx, c, customerKey(customerID), func() (*entity.Customer, error) {
		return c.source.Customer(ctx, customerID)
	})
}

func (c *ReadModelCache) Settings(ctx context.Context) (*entity.Settings, error) {
	return load(ctx, c, settingsKey(), func() (*entity.Settings, error) {
		return c.source.Settings(ctx)
	})
}

// Invalidate deletes every key the invalidation names. Shift totals and the
// dashboard are owned by other readers sharing this Redis; their keys are
// deleted all the same.
func (c *ReadModelCache) Invalidate(ctx context.Context, inv port.Invalidation) error {
	var keys []string
	for _, m := range inv.Models {
		switch m {
		case port.ReadModelStock:
			for _, id := range inv.ProductIDs {
				keys = append(keys, productKey(id))
			}
		case port.ReadModelCustomers:
			for _, id := range inv.CustomerIDs {
				keys = append(keys, customerKey(id))
			}
		case port.ReadModelShiftTotals:
			if inv.CashierID != "" {
				keys = append(keys, shiftTotalsKey(inv.CashierID))
			}
		case port.ReadModelDashboard:
			keys = append(keys, dashboardKey())
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func load[T any](ctx context.Context, c *ReadModelCache, key string, fetch func() (*T, error)) (*T, error) {
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		var cached T
		err := c.get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}

		fresh, err := fetch()
		if err != nil {
			return nil, err
		}
		if err := c.set(ctx, key, fresh); err != nil {
			c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	// each caller gets its own copy
	out := *v.(*T)
	return &out, nil
}

func (c *ReadModelCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *ReadModelCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	ttl := c.baseTTL
	if ttl > 0 {
		ttl += time.Duration(rand.Int63n(int64(ttl)/5 + 1))
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
