package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 4*time.Second, cfg.Feed.BannerInterval)
	assert.Equal(t, 7, cfg.Feed.BannerWindowDays)
	assert.Equal(t, 10, cfg.Feed.SuggestionLimit)
	assert.Equal(t, "ET", cfg.Phone.Region)
	assert.Equal(t, float32(80), cfg.Storage.WebPQuality)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/webp", "image/gif"}, cfg.Storage.AllowedMIMEs)
	assert.Equal(t, "0 0 * * *", cfg.Maintenance.CacheRolloverCron)
}

func TestFromViperFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("FEED_CACHE_TTL", "soon")
	v.Set("STORAGE_WEBP_QUALITY", 250)
	v.Set("PHONE_REGION", " id ")
	v.Set("FEED_SUGGESTION_LIMIT", -1)

	cfg := fromViper(v)
	assert.Equal(t, 2*time.Minute, cfg.Feed.CacheTTL)
	assert.Equal(t, float32(80), cfg.Storage.WebPQuality)
	assert.Equal(t, "ID", cfg.Phone.Region)
	assert.Equal(t, 10, cfg.Feed.SuggestionLimit)
}

func TestFeedLocation(t *testing.T) {
	assert.Equal(t, time.Local, FeedConfig{}.Location())
	assert.Equal(t, time.Local, FeedConfig{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, "UTC", FeedConfig{Timezone: "UTC"}.Location().String())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
