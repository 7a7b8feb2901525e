package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port          string
	StoreDriver   string
	MongoURI      string
	MongoDB       string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	TaskTotalLimit int
	TaskDailyLimit int
	// DayLocation is the zone whose midnight starts a new daily quota window.
	DayLocation *time.Location

	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", DriverMongo)),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "task_manager"),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		JWTSecret:     getenv("JWT_SECRET", ""),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
	}

	var err error
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AuthRateWindow, err = durationEnv("AUTH_RATE_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.TaskTotalLimit, err = intEnv("TASK_TOTAL_LIMIT", 500); err != nil {
		return nil, err
	}
	if cfg.TaskDailyLimit, err = intEnv("TASK_DAILY_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = intEnv("AUTH_RATE_LIMIT", 20); err != nil {
		return nil, err
	}

	switch boundary := strings.ToLower(getenv("DAY_BOUNDARY", "local")); boundary {
	case "local":
		cfg.DayLocation = time.Local
	case "utc":
		cfg.DayLocation = time.UTC
	default:
		return nil, fmt.Errorf("DAY_BOUNDARY must be local or utc, got %q", boundary)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TaskTotalLimit <= 0 || c.TaskDailyLimit <= 0 {
		return fmt.Errorf("task limits must be positive")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return nil
}

// RateLimitEnabled reports whether auth endpoints are throttled.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisAddr != "" && c.AuthRateLimit > 0
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
