package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/pkg/logger"
	"github.com/sales-dashboard/web/pkg/utils"
)

// Client caches dashboard snapshots per selection, shared across sessions.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func snapshotKey(sel analytics.Selection) string {
	return "snapshot:" + utils.HashParts(sel.ProductName, sel.BrandName, sel.Platform)
}

func (c *Client) SetSnapshot(ctx context.Context, sel analytics.Selection, snapshot *analytics.DashboardSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := snapshotKey(sel)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot cache: %w", err)
	}

	logger.Debug("Snapshot cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) GetSnapshot(ctx context.Context, sel analytics.Selection) (*analytics.DashboardSnapshot, bool, error) {
	key := snapshotKey(sel)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get snapshot cache: %w", err)
	}

	var snapshot analytics.DashboardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	logger.Debug("Snapshot cache hit", zap.String("key", key))
	return &snapshot, true, nil
}

// InvalidateSnapshots drops every cached snapshot.
func (c *Client) InvalidateSnapshots(ctx context.Context) (int, error) {
	deleted := 0
	iter := c.client.Scan(ctx, 0, "snapshot:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
			continue
		}
		deleted++
	}

	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Snapshot cache invalidated", zap.Int("deleted", deleted))
	return deleted, nil
}
