package gamerepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const pingTimeout = 3 * time.Second

// NewRedisClient connects to Redis and verifies the connection with a ping.
// addr accepts either a bare host:port or a redis:// URL.
func NewRedisClient(addr string) (*redis.Client, error) {
	options := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("could not parse Redis URL: %w", err)
		}
		options = opt
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return client, nil
}
