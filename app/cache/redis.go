package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/rss-curator/app/feed"
)

const validatorTTL = 7 * 24 * time.Hour

var _ feed.ValidatorStore = (*ValidatorCache)(nil)

// ValidatorCache keeps ETag and Last-Modified values per feed URL in Redis
type ValidatorCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValidatorCache(addr string) (*ValidatorCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &ValidatorCache{client: client, ttl: validatorTTL}, nil
}

// Get returns zero validators when nothing is stored for url
func (c *ValidatorCache) Get(ctx context.Context, url string) (feed.Validators, error) {
	values, err := c.client.HGetAll(ctx, c.GenerateKey(url)).Result()
	if err != nil {
		return feed.Validators{}, fmt.Errorf("failed to get validators for %s: %w", url, err)
	}

	return feed.Validators{
		ETag:         values["etag"],
		LastModified: values["last_modified"],
	}, nil
}

func (c *ValidatorCache) Set(ctx context.Context, url string, v feed.Validators) error {
	key := c.GenerateKey(url)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "etag", v.ETag, "last_modified", v.LastModified)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set validators for %s: %w", url, err)
	}

	return nil
}

// Delete forgets the validators for url
func (c *ValidatorCache) Delete(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, c.GenerateKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to delete validators for %s: %w", url, err)
	}
	return nil
}

// GenerateKey generates a consistent cache key for a feed URL
func (c *ValidatorCache) GenerateKey(feedURL string) string {
	hash := sha256.Sum256([]byte(feedURL))
	return fmt.Sprintf("validators:%x", hash[:8])
}

// Health reports whether Redis answers a ping
func (c *ValidatorCache) Health(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
	}

	return health
}

func (c *ValidatorCache) Close() error {
	return c.client.Close()
}
