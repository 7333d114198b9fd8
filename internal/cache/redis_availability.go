package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"appointly/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisAvailability caches computed availability in one hash per provider
// and day, one field per service. Invalidation drops the whole day and bumps
// the provider's version so that results computed before it are not written.
type RedisAvailability struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailability(client *redis.Client, ttl time.Duration) *RedisAvailability {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisAvailability{client: client, ttl: ttl}
}

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// versionTTL outlives any in-flight computation.
const versionTTL = 24 * time.Hour

var errStaleVersion = errors.New("availability version changed")

func dayKey(providerID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", providerID, date)
}

func versionKey(providerID int64) string {
	return fmt.Sprintf("availability:version:%d", providerID)
}

func (c *RedisAvailability) Get(ctx context.Context, providerID, serviceID int64, date string) ([]domain.Slot, bool, error) {
	raw, err := c.client.HGet(ctx, dayKey(providerID, date), strconv.FormatInt(serviceID, 10)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}

	var slots []domain.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", dayKey(providerID, date), err)
	}
	return slots, true, nil
}

// Version returns the provider's invalidation counter. Read it before
// computing slots and hand it to Set.
func (c *RedisAvailability) Version(ctx context.Context, providerID int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(providerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache version: %w", err)
	}
	return v, nil
}

// Set stores slots computed at version. The write is skipped when the
// provider was invalidated since.
func (c *RedisAvailability) Set(ctx context.Context, providerID, serviceID int64, date string, version int64, slots []domain.Slot) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	key := dayKey(providerID, date)
	vKey := versionKey(providerID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, strconv.FormatInt(serviceID, 10), raw)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, vKey)
	if errors.Is(err, errStaleVersion) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

func (c *RedisAvailability) Invalidate(ctx context.Context, providerID int64, date string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(providerID))
		pipe.Expire(ctx, versionKey(providerID), versionTTL)
		pipe.Del(ctx, dayKey(providerID, date))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// InvalidateProvider drops every cached day of the provider. Used when its
// schedule or services change.
func (c *RedisAvailability) InvalidateProvider(ctx context.Context, providerID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(providerID))
		pipe.Expire(ctx, versionKey(providerID), versionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bump cache version: %w", err)
	}

	iter := c.client.Scan(ctx, 0, fmt.Sprintf("availability:%d:*", providerID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}
