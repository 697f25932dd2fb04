package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// VersionsChannel carries version snapshots between server instances.
const VersionsChannel = "claudiator:versions"

type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// KeyRateLimitKey is the counter key for one API key in one window.
func KeyRateLimitKey(keyID string, window int64) string {
	return fmt.Sprintf("claudiator:ratelimit:%s:%d", keyID, window)
}
