package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "EstateLink"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 24 * time.Hour
	defaultOTPTTL         = 10 * time.Minute
	defaultResetTTL       = time.Hour
	defaultLoginLimit     = 5
	defaultJWTSecret      = "dev-secret-change-me"

	defaultAPIURL         = "http://localhost:8080"
	defaultRequestTimeout = 15 * time.Second
	defaultPendingTTL     = 30 * time.Minute
	defaultTokenStore     = "file"
)

// Token store backends accepted in TOKEN_STORE.
const (
	TokenStoreFile     = "file"
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"
	TokenStoreMemory   = "memory"
)

// Config captures the stub API's runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	AccessTokenTTL time.Duration
	OTPTTL         time.Duration
	ResetTokenTTL  time.Duration
	LoginRateLimit int
}

// Load reads configuration values from the environment and populates a Config instance.
// DATABASE_URL and REDIS_URL are optional; without them the stub keeps everything in memory.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.ResetTokenTTL, err = durationEnv("RESET_TOKEN_TTL", defaultResetTTL); err != nil {
		return Config{}, err
	}

	cfg.LoginRateLimit = defaultLoginLimit
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %q", v)
		}
		cfg.LoginRateLimit = n
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv == "production" {
			return Config{}, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = defaultJWTSecret
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// Client is the configuration of the session client and brokerctl.
type Client struct {
	APIURL         string
	RequestTimeout time.Duration
	TokenStore     string
	StateDir       string
	Profile        string
	RedisURL       string
	DatabaseURL    string
	PendingTTL     time.Duration
	LogLevel       string
	LogFormat      string
}

// LoadClient reads the client configuration.
func LoadClient() (Client, error) {
	if err := loadDotEnv(); err != nil {
		return Client{}, err
	}

	cfg := Client{
		APIURL:      getEnv("BROKER_API_URL", defaultAPIURL),
		TokenStore:  strings.ToLower(getEnv("TOKEN_STORE", defaultTokenStore)),
		StateDir:    os.Getenv("STATE_DIR"),
		Profile:     getEnv("BROKER_PROFILE", "default"),
		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "warn")),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return Client{}, err
	}
	if cfg.PendingTTL, err = durationEnv("PENDING_REGISTRATION_TTL", defaultPendingTTL); err != nil {
		return Client{}, err
	}

	if cfg.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Client{}, fmt.Errorf("resolve state dir: %w", err)
		}
		cfg.StateDir = filepath.Join(dir, "estate-link")
	}

	switch cfg.TokenStore {
	case TokenStoreFile, TokenStoreMemory:
	case TokenStoreRedis:
		if cfg.RedisURL == "" {
			return Client{}, fmt.Errorf("REDIS_URL must be set when TOKEN_STORE=redis")
		}
	case TokenStorePostgres:
		if cfg.DatabaseURL == "" {
			return Client{}, fmt.Errorf("DATABASE_URL must be set when TOKEN_STORE=postgres")
		}
	default:
		return Client{}, fmt.Errorf("invalid TOKEN_STORE %q", cfg.TokenStore)
	}

	return cfg, nil
}

// durationEnv reads NAME_SECONDS as whole seconds, falling back to NAME as a
// Go duration string.
func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	secondsKey := name + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, nil
	}
	return fallback, nil
}

// loadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
