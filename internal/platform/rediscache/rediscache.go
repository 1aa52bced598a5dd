package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pollbooth/internal/domain/vote"
)

const keyPrefix = "pollbooth:results:"

// Cache stores serialized poll results in redis. Results are only
// cached once a poll is closed, so entries never go stale; the TTL
// just bounds memory.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a results cache against the given redis address.
func New(addr string, ttl time.Duration) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// NewWithRedis wraps an existing client, used by tests.
func NewWithRedis(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) GetResults(ctx context.Context, pollID int64) (*vote.PollResults, error) {
	data, err := c.rdb.Get(ctx, key(pollID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}

	var res vote.PollResults
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return &res, nil
}

func (c *Cache) SetResults(ctx context.Context, pollID int64, res *vote.PollResults) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := c.rdb.Set(ctx, key(pollID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set results: %w", err)
	}
	return nil
}

func key(pollID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, pollID)
}
