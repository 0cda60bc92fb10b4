package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Storage     StorageConfig
	Feed        FeedConfig
	Phone       PhoneConfig
	RateLimit   RateLimitConfig
	Maintenance MaintenanceConfig
	Jobs        JobsConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig controls uploaded assets and signed download links.
type StorageConfig struct {
	BaseDir         string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
	AllowedMIMEs    []string
	WebPQuality     float32
	MaxImageWidth   int
	MaxImageHeight  int
	ThumbnailSize   int
	OrphanTTL       time.Duration
}

// FeedConfig tunes feed derivation and caching.
type FeedConfig struct {
	Timezone          string
	BannerInterval    time.Duration
	BannerWindowDays  int
	SuggestionLimit   int
	CacheTTL          time.Duration
	RecurrenceHorizon time.Duration
	MaxDatesPerEvent  int
}

// PhoneConfig names the home region (CLDR code) whose numbering plan
// normalizes phone numbers.
type PhoneConfig struct {
	Region string
}

// RateLimitConfig bounds requests per client and window.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// MaintenanceConfig holds cron specs for recurring housekeeping.
type MaintenanceConfig struct {
	Enabled           bool
	CacheRolloverCron string
	OrphanCleanupCron string
}

// JobsConfig sizes the background queue.
type JobsConfig struct {
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
		Host:         v.GetString("REDIS_HOST"),
		Port:         v.GetInt("REDIS_PORT"),
		Password:     v.GetString("REDIS_PASSWORD"),
		DB:           v.GetInt("REDIS_DB"),
		PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout:  parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
		ReadTimeout:  parseDuration(v.GetString("REDIS_READ_TIMEOUT"), time.Second),
		WriteTimeout: parseDuration(v.GetString("REDIS_WRITE_TIMEOUT"), time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("STORAGE_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	quality := float32(v.GetFloat64("STORAGE_WEBP_QUALITY"))
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	cfg.Storage = StorageConfig{
		BaseDir:         v.GetString("STORAGE_BASE_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 15*time.Minute),
		MaxUploadBytes:  maxUpload,
		AllowedMIMEs:    splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
		WebPQuality:     quality,
		MaxImageWidth:   positiveOr(v.GetInt("STORAGE_MAX_IMAGE_WIDTH"), 1600),
		MaxImageHeight:  positiveOr(v.GetInt("STORAGE_MAX_IMAGE_HEIGHT"), 1600),
		ThumbnailSize:   positiveOr(v.GetInt("STORAGE_THUMBNAIL_SIZE"), 320),
		OrphanTTL:       parseDuration(v.GetString("STORAGE_ORPHAN_TTL"), 24*time.Hour),
	}

	cfg.Feed = FeedConfig{
		Timezone:          v.GetString("FEED_TIMEZONE"),
		BannerInterval:    parseDuration(v.GetString("FEED_BANNER_INTERVAL"), 4*time.Second),
		BannerWindowDays:  positiveOr(v.GetInt("FEED_BANNER_WINDOW_DAYS"), 7),
		SuggestionLimit:   positiveOr(v.GetInt("FEED_SUGGESTION_LIMIT"), 10),
		CacheTTL:          parseDuration(v.GetString("FEED_CACHE_TTL"), 2*time.Minute),
		RecurrenceHorizon: parseDuration(v.GetString("FEED_RECURRENCE_HORIZON"), 180*24*time.Hour),
		MaxDatesPerEvent:  positiveOr(v.GetInt("FEED_MAX_DATES_PER_EVENT"), 31),
	}

	cfg.Phone = PhoneConfig{Region: strings.ToUpper(strings.TrimSpace(v.GetString("PHONE_REGION")))}

	cfg.RateLimit = RateLimitConfig{
		Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
		Requests: positiveOr(v.GetInt("RATE_LIMIT_REQUESTS"), 120),
		Window:   parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
	}

	cfg.Maintenance = MaintenanceConfig{
		Enabled:           v.GetBool("ENABLE_MAINTENANCE"),
		CacheRolloverCron: v.GetString("MAINTENANCE_CACHE_ROLLOVER_CRON"),
		OrphanCleanupCron: v.GetString("MAINTENANCE_ORPHAN_CLEANUP_CRON"),
	}

	cfg.Jobs = JobsConfig{
		Workers: positiveOr(v.GetInt("JOBS_WORKERS"), 1),
		Retries: v.GetInt("JOBS_RETRIES"),
	}

	return cfg
}

// Location resolves the feed timezone, falling back to the process local zone.
func (c FeedConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_feed")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_MIGRATIONS_DIR", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "1s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "1s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_BASE_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/uploads")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "15m")
	v.SetDefault("STORAGE_MAX_UPLOAD_BYTES", 5*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp,image/gif")
	v.SetDefault("STORAGE_WEBP_QUALITY", 80)
	v.SetDefault("STORAGE_MAX_IMAGE_WIDTH", 1600)
	v.SetDefault("STORAGE_MAX_IMAGE_HEIGHT", 1600)
	v.SetDefault("STORAGE_THUMBNAIL_SIZE", 320)
	v.SetDefault("STORAGE_ORPHAN_TTL", "24h")

	v.SetDefault("FEED_TIMEZONE", "Local")
	v.SetDefault("FEED_BANNER_INTERVAL", "4s")
	v.SetDefault("FEED_BANNER_WINDOW_DAYS", 7)
	v.SetDefault("FEED_SUGGESTION_LIMIT", 10)
	v.SetDefault("FEED_CACHE_TTL", "2m")
	v.SetDefault("FEED_RECURRENCE_HORIZON", "4320h")
	v.SetDefault("FEED_MAX_DATES_PER_EVENT", 31)

	v.SetDefault("PHONE_REGION", "ET")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("ENABLE_MAINTENANCE", true)
	v.SetDefault("MAINTENANCE_CACHE_ROLLOVER_CRON", "0 0 * * *")
	v.SetDefault("MAINTENANCE_ORPHAN_CLEANUP_CRON", "@hourly")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
