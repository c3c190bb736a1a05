// Package redis caches the most recent order-book snapshot per
// (region, type) pair with a short TTL. Like the sqlite history store it is
// fire-and-forget from the fetch path: a cache failure never fails a fetch.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"marketlens/internal/model"
)

const defaultSnapshotTTL = 5 * time.Minute

// ErrNoSnapshot is returned when no cached book exists for the pair.
var ErrNoSnapshot = errors.New("no cached order book snapshot")

// Config configures the Redis book cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // zero → defaultSnapshotTTL
}

// Cache stores serialized order-book snapshots in Redis.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// Client returns the underlying Redis client for health checks and reuse.
func (c *Cache) Client() *goredis.Client { return c.client }

// New connects to Redis and pings it.
func New(cfg Config, log *slog.Logger) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	log.Info("redis book cache connected", "addr", cfg.Addr, "ttl", ttl)
	return &Cache{client: client, ttl: ttl, log: log}, nil
}

func key(regionID, typeID int32) string {
	return fmt.Sprintf("book:%d:%d", regionID, typeID)
}

// SaveOrderBook overwrites the cached snapshot for (regionID, typeID).
func (c *Cache) SaveOrderBook(ctx context.Context, regionID, typeID int32, orders []model.OrderRecord) error {
	payload, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}
	if err := c.client.Set(ctx, key(regionID, typeID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	c.log.Debug("order book cached", "region_id", regionID, "type_id", typeID, "orders", len(orders))
	return nil
}

// LoadOrderBook reads the cached snapshot, or ErrNoSnapshot when the key
// is missing or expired.
func (c *Cache) LoadOrderBook(ctx context.Context, regionID, typeID int32) ([]model.OrderRecord, error) {
	payload, err := c.client.Get(ctx, key(regionID, typeID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var orders []model.OrderRecord
	if err := json.Unmarshal(payload, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}
	return orders, nil
}

// Close closes the Redis client.
func (c *Cache) Close() error { return c.client.Close() }
