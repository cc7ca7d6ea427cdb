package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServerHost  string
	ServerPort  string
	Environment string

	StorageDriver string
	DatabaseURL   string
	RedisURL      string

	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	RateLimitEnabled       bool
	RateLimitIPAttempts    int
	RateLimitIPWindow      time.Duration
	RateLimitBlockDuration time.Duration

	LockWait time.Duration

	RecaptchaEnabled   bool
	RecaptchaSecretKey string
	RecaptchaTimeout   time.Duration

	LogLevel               string
	LogFormat              string
	LogCorrelationIDHeader string

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	NotifyPoolSize     int
	NotifyQueueSize    int
	ApprovalPolicyFile string
	OrgFile            string
}

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required")
	ErrWeakJWTSecret        = errors.New("JWT_SECRET must be at least 32 characters")
	ErrInvalidTokenTTL      = errors.New("invalid token TTL format")
	ErrInvalidStorageDriver = errors.New("STORAGE_DRIVER must be postgres or memory")

	ErrMissingRecaptchaSecret = errors.New("RECAPTCHA_SECRET_KEY is required when RECAPTCHA_ENABLED=true")
)

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	cfg := &Config{
		ServerHost:  getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("ENV", "development"),

		StorageDriver: strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", StorageDriverPostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTIssuer:  getEnvOrDefault("JWT_ISSUER", "tripdesk"),
		BcryptCost: getEnvOrDefaultInt("BCRYPT_COST", 0),

		RateLimitEnabled:    getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),
		RateLimitIPAttempts: getEnvOrDefaultInt("RATE_LIMIT_IP_ATTEMPTS", 5),

		LockWait: getEnvOrDefaultDuration("LOCK_WAIT", 2*time.Second),

		RecaptchaEnabled:   getEnvOrDefaultBool("RECAPTCHA_ENABLED", false),
		RecaptchaSecretKey: os.Getenv("RECAPTCHA_SECRET_KEY"),
		RecaptchaTimeout:   getEnvOrDefaultDuration("RECAPTCHA_TIMEOUT", 5*time.Second),

		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              getEnvOrDefault("LOG_FORMAT", "json"),
		LogCorrelationIDHeader: getEnvOrDefault("LOG_CORRELATION_ID_HEADER", "X-Correlation-ID"),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),

		NotifyPoolSize:     getEnvOrDefaultInt("NOTIFY_POOL_SIZE", 16),
		NotifyQueueSize:    getEnvOrDefaultInt("NOTIFY_QUEUE_SIZE", 256),
		ApprovalPolicyFile: os.Getenv("APPROVAL_POLICY_FILE"),
		OrgFile:            os.Getenv("ORG_FILE"),
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, ErrMissingDatabaseURL
		}
	case StorageDriverMemory:
	default:
		return nil, ErrInvalidStorageDriver
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, ErrWeakJWTSecret
	}

	if cfg.RecaptchaEnabled && cfg.RecaptchaSecretKey == "" {
		return nil, ErrMissingRecaptchaSecret
	}

	var err error
	if cfg.AccessTokenTTL, err = parseTokenTTL(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "900")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RateLimitIPWindow, err = parseTokenTTL(getEnvOrDefault("RATE_LIMIT_IP_WINDOW", "900")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RateLimitBlockDuration, err = parseTokenTTL(getEnvOrDefault("RATE_LIMIT_BLOCK_DURATION", "1800")); err != nil {
		return nil, ErrInvalidTokenTTL
	}

	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvOrDefaultDuration accepts plain seconds or a Go duration string.
func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func parseTokenTTL(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
