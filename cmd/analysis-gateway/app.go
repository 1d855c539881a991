// cmd/analysis-gateway/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"resume-analyzer/internal/analysis/dispatcher"
	"resume-analyzer/internal/analysis/listener"
	"resume-analyzer/internal/common/channel"
	"resume-analyzer/internal/common/config"
	"resume-analyzer/internal/common/database"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/common/observability"
	"resume-analyzer/internal/models"
	"resume-analyzer/internal/store"
	"resume-analyzer/pkg/registry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger

	sql   *database.SQLClient
	redis *database.RedisClient
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    logger.NewZapAdapter(zapLog),
	}, nil
}

func (a *app) connectSQL(ctx context.Context) error {
	err := retryWithBackoff(func() error {
		client, err := database.Open(a.cfg.Database)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return err
		}
		a.sql = client
		return nil
	}, 15, 2*time.Second, a.zapLog, "Database connection")
	if err != nil {
		return err
	}
	a.zapLog.Info("Database connected successfully", zap.String("driver", a.sql.Driver))
	return nil
}

func (a *app) connectRedis(ctx context.Context) error {
	err := retryWithBackoff(func() error {
		client, err := database.NewRedis(a.cfg.Database.Redis)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return err
		}
		a.redis = client
		return nil
	}, 10, 2*time.Second, a.zapLog, "Redis connection")
	if err != nil {
		return err
	}
	a.zapLog.Info("Redis connected successfully")
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.sql != nil {
		_ = a.sql.Close()
	}
	_ = a.zapLog.Sync()
}

// pipeline is the correlation core: both halves share one registry.
type pipeline struct {
	store      store.RecordStore
	registry   *registry.Registry[*models.Analysis]
	broker     channel.Broker
	dispatcher *dispatcher.Dispatcher
	listener   *listener.Listener
}

func (a *app) newPipeline(obs *observability.Observability, hooks ...listener.CompletionHook) (*pipeline, error) {
	recordStore := store.NewSQLStore(a.sql.GetDB(), a.log)
	reg := registry.New[*models.Analysis]()
	broker := channel.NewRedisBroker(a.redis.GetClient(), a.cfg.Listener.Buffer)

	d := dispatcher.NewDispatcher(
		&dispatcher.Config{
			RequestTopic: a.cfg.Channel.RequestTopic,
			WaitTimeout:  config.GetDuration(a.cfg.Dispatcher.WaitTimeout),
		},
		recordStore, reg, broker, obs, a.log,
	)

	l, err := listener.NewListener(
		&listener.Config{
			ResponseTopic: a.cfg.Channel.ResponseTopic,
			Consumers:     a.cfg.Listener.Consumers,
		},
		broker, recordStore, reg, obs, a.log, hooks...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	return &pipeline{
		store:      recordStore,
		registry:   reg,
		broker:     broker,
		dispatcher: d,
		listener:   l,
	}, nil
}
