package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joblens/extractor/internal/core/domain"
)

const resultKeyPrefix = "extract:result:"

// Cache is a Redis-backed response cache. Records are stored as JSON under
// a per-source key with a shared TTL.
type Cache struct {
	client *Client
	ttl    time.Duration
}

// NewCache creates a Redis-backed cache. ttl of zero means entries never
// expire.
func NewCache(cfg Config, ttl time.Duration) (*Cache, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func resultKey(source string) string {
	return resultKeyPrefix + source
}

// Get returns the cached record for a source URL, if present.
func (c *Cache) Get(ctx context.Context, source string) (*domain.JobPosting, bool, error) {
	data, err := c.client.rdb.Get(ctx, resultKey(source)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}

	var record domain.JobPosting
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached record: %w", err)
	}
	return &record, true, nil
}

// Put stores a record under a source URL.
func (c *Cache) Put(ctx context.Context, source string, record *domain.JobPosting) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := c.client.rdb.Set(ctx, resultKey(source), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, source string) error {
	if err := c.client.rdb.Del(ctx, resultKey(source)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Clear removes every cached record.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.rdb.Scan(ctx, 0, resultKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("del failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
