package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Logging
	LogLevel  string
	LogFormat string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string

	// Server
	ApiPort        string
	ServiceApiPort string
	AllowedOrigin  string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	DefaultLocale   string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	DocumentBaseURL    string
	DocumentMaxSizeMB  int
	ImageMaxDimension  int

	// Geocoding
	GeocodeAPIKey   string
	GeocodeBaseURL  string
	GeocodeRegion   string
	DistanceWorkers int

	// Caching
	PropertyCacheTTL time.Duration
	GeocodeCacheTTL  time.Duration

	// Realtime
	RealtimeChannel       string
	SocketReconnectTries  int
	SocketReconnectDelay  time.Duration
	NotificationListLimit int
	NoticeDedupWindow     time.Duration

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		seconds, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	getMillis := func(key, defaultValue string) (time.Duration, error) {
		ms, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "campusnest")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "5000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", "*")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@campusnest.example.com")
	cfg.DefaultLocale = getEnv("DEFAULT_LOCALE", "en-US")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.DocumentBaseURL = getEnv("DOCUMENT_BASE_URL", "")
	cfg.GeocodeAPIKey = getEnv("GOOGLE_MAPS_API_KEY", "")
	cfg.GeocodeBaseURL = getEnv("GEOCODE_BASE_URL", "")
	cfg.GeocodeRegion = getEnv("GEOCODE_REGION", "")
	cfg.RealtimeChannel = getEnv("REALTIME_CHANNEL", "campusnest:realtime")

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	if cfg.DocumentMaxSizeMB, err = getInt("DOCUMENT_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "1024"); err != nil {
		return nil, err
	}
	if cfg.DistanceWorkers, err = getInt("DISTANCE_WORKERS", "8"); err != nil {
		return nil, err
	}
	if cfg.PropertyCacheTTL, err = getSeconds("PROPERTY_CACHE_TTL_SECONDS", "60"); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheTTL, err = getSeconds("GEOCODE_CACHE_TTL_SECONDS", "604800"); err != nil {
		return nil, err
	}
	if cfg.SocketReconnectTries, err = getInt("SOCKET_RECONNECT_ATTEMPTS", "5"); err != nil {
		return nil, err
	}
	if cfg.SocketReconnectDelay, err = getMillis("SOCKET_RECONNECT_DELAY_MS", "1000"); err != nil {
		return nil, err
	}
	if cfg.NotificationListLimit, err = getInt("NOTIFICATION_LIST_LIMIT", "50"); err != nil {
		return nil, err
	}
	if cfg.NoticeDedupWindow, err = getMillis("NOTICE_DEDUP_WINDOW_MS", "1000"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "10"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "60"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "30"); err != nil {
		return nil, err
	}

	return cfg, nil
}
