package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"lockwatch/internal/alert"
	"lockwatch/internal/config"
	"lockwatch/internal/db"
	"lockwatch/internal/dynamo"
	"lockwatch/internal/fcm"
	"lockwatch/internal/job"
	"lockwatch/internal/metrics"
	"lockwatch/internal/observ"
	"lockwatch/internal/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting lockwatch run",
		zap.String("env", cfg.Env),
		zap.String("locks_table", cfg.LocksTable),
		zap.Int("stale_window_days", cfg.StaleWindowDays),
	)

	ctx := context.Background()

	database, err := db.New(ctx, db.Config{
		Host:     cfg.PGHost,
		Port:     cfg.PGPort,
		User:     cfg.PGUser,
		Password: cfg.PGPassword,
		Database: cfg.PGDatabase,
		SSLMode:  cfg.PGSSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	repo := db.NewRepository(database, logger)

	dynamoClient, err := dynamo.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return fmt.Errorf("failed to create dynamo client: %w", err)
	}
	lockStore := dynamo.NewLockStore(dynamoClient, cfg.LocksTable, logger)

	notifier := fcm.NewNotifier(cfg.FirebaseCredPath, logger)

	runner := job.New(lockStore, repo, notifier, repo, job.Config{
		StaleWindow: time.Duration(cfg.StaleWindowDays) * 24 * time.Hour,
	}, logger)

	// Cross-run dedup is opt-in; without redis the job keeps the reference
	// behavior of re-notifying on every run over unchanged stale data.
	if cfg.RedisHost != "" {
		redisClient, err := redis.New(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, send dedup disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			runner.WithGuard(redis.NewDedupGuard(redisClient, logger))
		}
	}

	runErr := runner.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL); err != nil {
			logger.Warn("metrics push failed", zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("run aborted", zap.Error(runErr))
		if cfg.AlertTopicARN != "" {
			publisher, err := alert.NewPublisher(ctx, cfg.AWSRegion, cfg.AlertTopicARN)
			if err != nil {
				logger.Warn("alert publisher unavailable", zap.Error(err))
			} else if _, err := publisher.RunFailed(ctx, runErr); err != nil {
				logger.Warn("failure alert not published", zap.Error(err))
			}
		}
		return runErr
	}

	return nil
}
