package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ecommerce-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	// idempotencyPending marks a key whose order is still being placed
	idempotencyPending = "pending"

	// itemVersionTTL outlives any read-then-cache window by a wide margin
	itemVersionTTL = 24 * time.Hour
)

type Client struct {
	rdb     *redis.Client
	itemTTL time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int, itemTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb, itemTTL), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client, itemTTL time.Duration) *Client {
	return &Client{rdb: rdb, itemTTL: itemTTL}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func itemKey(itemID int64) string {
	return fmt.Sprintf("item:%d", itemID)
}

func itemVersionKey(itemID int64) string {
	return fmt.Sprintf("item:%d:version", itemID)
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:order:%s", key)
}

// GetItem returns a cached item. A miss is (nil, nil).
func (c *Client) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	raw, err := c.rdb.Get(ctx, itemKey(itemID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached item: %w", err)
	}

	var item models.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode cached item: %w", err)
	}
	return &item, nil
}

// ItemVersion returns the invalidation counter of an item. Read it before
// loading the item from the store and hand it to SetItem.
func (c *Client) ItemVersion(ctx context.Context, itemID int64) (int64, error) {
	version, err := c.rdb.Get(ctx, itemVersionKey(itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get item version: %w", err)
	}
	return version, nil
}

// SetItem caches an item for the configured TTL, but only while the item's
// version still equals version. stored is false when an invalidation landed
// after the caller read the item, so the stale copy was dropped.
func (c *Client) SetItem(ctx context.Context, item *models.Item, version int64) (stored bool, err error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("encode item: %w", err)
	}

	versionKey := itemVersionKey(item.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, itemKey(item.ID), raw, c.itemTTL)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, versionKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache item: %w", err)
	}
	return stored, nil
}

// InvalidateItem drops the cached copy of an item and bumps its version so
// that readers still holding the old copy cannot write it back.
func (c *Client) InvalidateItem(ctx context.Context, itemID int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, itemVersionKey(itemID))
		pipe.Expire(ctx, itemVersionKey(itemID), itemVersionTTL)
		pipe.Del(ctx, itemKey(itemID))
		return nil
	})
	return err
}

// ClaimIdempotencyKey reserves key for a new order. It returns claimed=false
// and the stored order id when the key was already used; orderID is 0 while the
// first request is still in flight.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (claimed bool, orderID int64, err error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(key), idempotencyPending, ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	val, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return c.ClaimIdempotencyKey(ctx, key, ttl)
	}
	if err != nil {
		return false, 0, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == idempotencyPending {
		return false, 0, nil
	}

	orderID, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, 0, fmt.Errorf("corrupt idempotency key %q: %w", key, err)
	}
	return false, orderID, nil
}

// CompleteIdempotencyKey records the order placed under key
func (c *Client) CompleteIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), orderID, ttl).Err()
}

// ReleaseIdempotencyKey forgets a claim whose order was never placed
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}
