package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string
	Env      string

	// Postgres (lock/user mapping + notification events)
	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGDatabase string
	PGSSLMode  string

	// DynamoDB
	AWSRegion  string
	LocksTable string

	// Firebase Cloud Messaging
	FirebaseCredPath string

	// How long a lock may go without a battery check before we nag
	StaleWindowDays int

	// Optional operator alert topic. Empty disables alerting.
	AlertTopicARN string

	// Optional Pushgateway for run metrics. Empty disables the push.
	PushgatewayURL string

	// Optional Redis for cross-run send dedup. Empty host disables the guard.
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from environment variables with sensible defaults.
// A local .env file is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: "info",
		Env:      "development",

		PGHost:     "localhost",
		PGPort:     5432,
		PGUser:     "lockwatch",
		PGPassword: "",
		PGDatabase: "lockwatch",
		PGSSLMode:  "disable",

		AWSRegion:  "us-east-1",
		LocksTable: "locks",

		FirebaseCredPath: "./firebase.json",

		StaleWindowDays: 30,

		RedisPort: 6379,
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	if host := os.Getenv("PG_HOST"); host != "" {
		cfg.PGHost = host
	}

	if port := os.Getenv("PG_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PG_PORT: %w", err)
		}
		cfg.PGPort = p
	}

	if user := os.Getenv("PG_USER"); user != "" {
		cfg.PGUser = user
	}

	if password := os.Getenv("PG_PASS"); password != "" {
		cfg.PGPassword = password
	}

	if dbname := os.Getenv("PG_DB"); dbname != "" {
		cfg.PGDatabase = dbname
	}

	if sslmode := os.Getenv("PG_SSLMODE"); sslmode != "" {
		cfg.PGSSLMode = sslmode
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if table := os.Getenv("LOCKS_TABLE"); table != "" {
		cfg.LocksTable = table
	}

	if path := os.Getenv("FIREBASE_CREDENTIAL"); path != "" {
		cfg.FirebaseCredPath = path
	}

	if days := os.Getenv("STALE_WINDOW_DAYS"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			return nil, fmt.Errorf("invalid STALE_WINDOW_DAYS: %w", err)
		}
		if d < 1 {
			return nil, fmt.Errorf("STALE_WINDOW_DAYS must be at least 1, got %d", d)
		}
		cfg.StaleWindowDays = d
	}

	if arn := os.Getenv("ALERT_TOPIC_ARN"); arn != "" {
		cfg.AlertTopicARN = arn
	}

	if url := os.Getenv("PUSHGATEWAY_URL"); url != "" {
		cfg.PushgatewayURL = url
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	return cfg, nil
}
