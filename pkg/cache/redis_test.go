package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-feed-api/pkg/config"
)

func TestRedisOptionsFromConfig(t *testing.T) {
	opts := redisOptions(config.RedisConfig{
		Host:         "cache.internal",
		Port:         6380,
		DB:           2,
		PoolSize:     25,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  300 * time.Millisecond,
		WriteTimeout: 400 * time.Millisecond,
	})

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, 300*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 400*time.Millisecond, opts.WriteTimeout)
}

func TestRedisOptionsDefaults(t *testing.T) {
	opts := redisOptions(config.RedisConfig{Host: "localhost", Port: 6379})

	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
}
