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
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
	StoreDriverRedis    = "redis"
)

type Config struct {
	StoreDriver  string
	RefreshStore string
	DatabaseURL  string
	RedisURL     string

	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTIssuer        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int

	ServerPort   string
	ServerHost   string
	Environment  string
	CookieSecure bool

	RecaptchaSecret   string
	RecaptchaEnabled  bool
	RecaptchaSkip     bool
	RecaptchaTimeout  time.Duration
	RecaptchaSiteKey  string
	RecaptchaMinScore float64

	RateLimitEnabled       bool
	RateLimitIPAttempts    int
	RateLimitIPWindow      time.Duration
	RateLimitUserAttempts  int
	RateLimitUserWindow    time.Duration
	RateLimitBlockDuration time.Duration

	LogLevel               string
	LogFormat              string
	LogCorrelationIDHeader string
	LogEnableRequestLog    bool

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

var (
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
	ErrMissingAccessSecret    = errors.New("JWT_ACCESS_SECRET is required")
	ErrMissingRefreshSecret   = errors.New("JWT_REFRESH_SECRET is required")
	ErrSharedSigningSecret    = errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	ErrInvalidTokenTTL        = errors.New("invalid token TTL format")
	ErrInvalidStoreDriver     = errors.New("STORE_DRIVER must be postgres or memory")
	ErrInvalidRefreshStore    = errors.New("REFRESH_STORE must be postgres, redis or memory")
	ErrRefreshStoreMismatch   = errors.New("REFRESH_STORE=postgres requires STORE_DRIVER=postgres")
	ErrMissingRecaptchaSecret = errors.New("RECAPTCHA_SECRET is required when reCAPTCHA is enabled")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:            strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		JWTAccessSecret:        os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:       os.Getenv("JWT_REFRESH_SECRET"),
		JWTIssuer:              getEnvOrDefault("JWT_ISSUER", "storefront"),
		BcryptCost:             getEnvOrDefaultInt("BCRYPT_COST", 12),
		ServerPort:             getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:             getEnvOrDefault("SERVER_HOST", "localhost"),
		Environment:            getEnvOrDefault("ENV", "development"),
		RecaptchaSecret:        os.Getenv("RECAPTCHA_SECRET"),
		RecaptchaEnabled:       getEnvOrDefaultBool("RECAPTCHA_ENABLED", false),
		RecaptchaSkip:          getEnvOrDefaultBool("RECAPTCHA_SKIP", false),
		RecaptchaSiteKey:       os.Getenv("RECAPTCHA_SITE_KEY"),
		RecaptchaMinScore:      getEnvOrDefaultFloat("RECAPTCHA_MIN_SCORE", 0.5),
		RateLimitEnabled:       getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),
		RateLimitIPAttempts:    getEnvOrDefaultInt("RATE_LIMIT_IP_ATTEMPTS", 10),
		RateLimitUserAttempts:  getEnvOrDefaultInt("RATE_LIMIT_USER_ATTEMPTS", 5),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              getEnvOrDefault("LOG_FORMAT", "json"),
		LogCorrelationIDHeader: getEnvOrDefault("LOG_CORRELATION_ID_HEADER", "X-Correlation-ID"),
		LogEnableRequestLog:    getEnvOrDefaultBool("LOG_ENABLE_REQUEST_LOG", true),
		CORSEnabled:            getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials:   getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:     parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),
	}
	cfg.RefreshStore = strings.ToLower(getEnvOrDefault("REFRESH_STORE", cfg.StoreDriver))
	cfg.CookieSecure = getEnvOrDefaultBool("COOKIE_SECURE", cfg.IsProduction())

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, ErrInvalidStoreDriver
	}
	switch cfg.RefreshStore {
	case StoreDriverPostgres, StoreDriverRedis, StoreDriverMemory:
	default:
		return nil, ErrInvalidRefreshStore
	}
	// The postgres pointer lives on the principals row.
	if cfg.RefreshStore == StoreDriverPostgres && cfg.StoreDriver != StoreDriverPostgres {
		return nil, ErrRefreshStoreMismatch
	}
	if (cfg.StoreDriver == StoreDriverPostgres || cfg.RefreshStore == StoreDriverPostgres) && cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	// Access and refresh tokens are signed with different keys
	if cfg.JWTAccessSecret == "" {
		return nil, ErrMissingAccessSecret
	}
	if cfg.JWTRefreshSecret == "" {
		return nil, ErrMissingRefreshSecret
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, ErrSharedSigningSecret
	}

	var err error
	if cfg.AccessTokenTTL, err = parseTokenTTL(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "900")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RefreshTokenTTL, err = parseTokenTTL(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "604800")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RecaptchaTimeout, err = parseTokenTTL(getEnvOrDefault("RECAPTCHA_TIMEOUT", "5")); err != nil {
		return nil, ErrInvalidTokenTTL
	}

	// Validate reCAPTCHA secret when enabled (and not skipped)
	if cfg.RecaptchaEnabled && !cfg.RecaptchaSkip && cfg.RecaptchaSecret == "" {
		return nil, ErrMissingRecaptchaSecret
	}

	if cfg.RateLimitIPWindow, err = parseTokenTTL(getEnvOrDefault("RATE_LIMIT_IP_WINDOW", "900")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RateLimitUserWindow, err = parseTokenTTL(getEnvOrDefault("RATE_LIMIT_USER_WINDOW", "3600")); err != nil {
		return nil, ErrInvalidTokenTTL
	}
	if cfg.RateLimitBlockDuration, err = parseTokenTTL(getEnvOrDefault("RATE_LIMIT_BLOCK_DURATION", "1800")); err != nil {
		return nil, ErrInvalidTokenTTL
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.RateLimitEnabled || c.RefreshStore == StoreDriverRedis
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

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// parseTokenTTL accepts whole seconds ("900") or a Go duration ("15m").
func parseTokenTTL(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, ErrInvalidTokenTTL
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, ErrInvalidTokenTTL
	}
	return d, nil
}

func parseAllowedOrigins(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
