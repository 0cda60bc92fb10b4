package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-feed-api/pkg/config"
)

const pingAttempts = 3

// NewRedis connects to Redis and waits until the server answers a ping.
// Startup tolerates a server that is still coming up by retrying a few
// times with a growing pause.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(redisOptions(cfg))

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = ping(client, cfg.DialTimeout); err == nil {
			return client, nil
		}
		if attempt < pingAttempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis %s unreachable after %d attempts: %w", client.Options().Addr, pingAttempts, err)
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return opts
}

func ping(client *redis.Client, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
