package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_unit.lua
var reserveUnitScript string

//go:embed scripts/release_unit.lua
var releaseUnitScript string

// Reserve results
const (
	ReserveUnknown  = -1 // counter not cached, caller decides via DB
	ReserveRejected = 0
	ReserveOK       = 1
)

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
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

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reserveUnitScript),
		releaseScript: redis.NewScript(releaseUnitScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func availabilityKey(accommodationID int64) string {
	return fmt.Sprintf("availability:%d", accommodationID)
}

// ReserveUnit atomically takes one unit from the cached availability counter.
// Returns ReserveOK, ReserveRejected, or ReserveUnknown when the counter is
// not cached.
func (c *Client) ReserveUnit(ctx context.Context, accommodationID int64) (int, error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{availabilityKey(accommodationID)}).Result()
	if err != nil {
		return ReserveUnknown, fmt.Errorf("reserve unit script failed: %w", err)
	}

	outcome, ok := result.(int64)
	if !ok {
		return ReserveUnknown, fmt.Errorf("unexpected script result type %T", result)
	}

	return int(outcome), nil
}

// ReleaseUnit atomically returns one unit to the cached counter.
func (c *Client) ReleaseUnit(ctx context.Context, accommodationID int64) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{availabilityKey(accommodationID)}).Result()
	if err != nil {
		return fmt.Errorf("release unit script failed: %w", err)
	}
	return nil
}

// InitAvailability seeds the cached counter for an accommodation
func (c *Client) InitAvailability(ctx context.Context, accommodationID int64, units int) error {
	return c.rdb.Set(ctx, availabilityKey(accommodationID), units, 0).Err()
}

// GetAvailability reads the cached counter
func (c *Client) GetAvailability(ctx context.Context, accommodationID int64) (int, error) {
	val, err := c.rdb.Get(ctx, availabilityKey(accommodationID)).Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("availability not cached for accommodation %d", accommodationID)
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// DropAvailability removes the cached counter so the next read re-seeds it
func (c *Client) DropAvailability(ctx context.Context, accommodationID int64) error {
	return c.rdb.Del(ctx, availabilityKey(accommodationID)).Err()
}

// AcquireLock acquires a distributed lock. The sweeps use these so that
// overlapping runs across instances no-op instead of double-scanning.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
