// cmd/analysis-gateway/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-analyzer/internal/analysis/listener"
	"resume-analyzer/internal/api"
	"resume-analyzer/internal/common/config"
	"resume-analyzer/internal/common/database"
	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/observability"
	"resume-analyzer/internal/notify"
	"resume-analyzer/internal/search"
	"resume-analyzer/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the response listener",
		RunE:  runServe,
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.zapLog.Info("Starting analysis gateway...",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("version", a.cfg.App.Version),
	)

	obs := observability.New(a.cfg.App.Name)
	defer obs.Shutdown()

	if err := a.connectSQL(ctx); err != nil {
		return err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(a.sql.GetDB(), a.sql.Driver, "up", a.log); err != nil {
			return err
		}
	}
	if err := a.connectRedis(ctx); err != nil {
		return err
	}

	deps := api.Dependencies{
		MaxUploadBytes: a.cfg.HTTP.MaxUploadBytes,
		Checks: []api.ReadinessCheck{
			{Name: "database", Check: a.sql.Ping},
			{Name: "redis", Check: a.redis.Ping},
		},
	}
	var hooks []listener.CompletionHook

	// --- Optional integrations ---
	if a.cfg.Storage.Enabled() {
		objects, err := storage.NewS3Store(ctx, storage.Config{
			Bucket:     a.cfg.Storage.Bucket,
			Region:     a.cfg.Storage.Region,
			Endpoint:   a.cfg.Storage.Endpoint,
			Prefix:     a.cfg.Storage.Prefix,
			PresignTTL: config.GetDuration(a.cfg.Storage.PresignTTL),
		})
		if err != nil {
			return err
		}
		deps.Objects = objects
		a.zapLog.Info("Object storage enabled", zap.String("bucket", a.cfg.Storage.Bucket))
	}

	if a.cfg.Search.Enabled() {
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(a.cfg.Search)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			return es.EnsureIndex(ctx, search.IndexMapping)
		}, 15, 2*time.Second, a.zapLog, "Elasticsearch connection")
		if err != nil {
			return err
		}
		indexer := search.NewIndexer(es.Client, es.Index(), a.log)
		deps.Searcher = indexer
		deps.Checks = append(deps.Checks, api.ReadinessCheck{Name: "elasticsearch", Check: es.Health})
		hooks = append(hooks, indexer)
		a.zapLog.Info("Search index enabled", zap.String("index", es.Index()))
	}

	if a.cfg.Notifications.Enabled() {
		notifier, err := notify.NewSNSNotifier(ctx, a.cfg.Notifications.Region, a.cfg.Notifications.SNSTopicARN, a.log)
		if err != nil {
			return err
		}
		hooks = append(hooks, notifier)
		a.zapLog.Info("Completion notifications enabled", zap.String("topic", a.cfg.Notifications.SNSTopicARN))
	}

	p, err := a.newPipeline(obs, hooks...)
	if err != nil {
		return err
	}
	defer p.broker.Close()
	deps.Submitter = p.dispatcher
	deps.Records = p.store

	// --- Listener ---
	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	listenerDone := make(chan error, 1)
	go func() {
		listenerDone <- p.listener.Run(listenerCtx)
	}()

	// --- HTTP ---
	errHandler := apperrors.NewErrorHandler(a.log)
	handler := api.NewHandler(deps, errHandler, a.log)
	limiter := api.NewRateLimiter(a.cfg.HTTP.RateLimit, a.cfg.HTTP.RateBurst, errHandler)

	server := &http.Server{
		Addr:              a.cfg.HTTP.Address,
		Handler:           api.NewRouter(handler, limiter, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		a.zapLog.Info("HTTP server listening", zap.String("address", a.cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var (
		runErr          error
		listenerStopped bool
	)
	select {
	case <-ctx.Done():
		a.zapLog.Info("Shutdown signal received, draining...")
	case err := <-serverErr:
		a.zapLog.Error("HTTP server failed", zap.Error(err))
		runErr = err
	case err := <-listenerDone:
		listenerStopped = true
		if ctx.Err() == nil {
			a.zapLog.Error("Response listener stopped unexpectedly", zap.Error(err))
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(a.cfg.HTTP.ShutdownTimeout))
	defer cancel()

	// In-flight submissions finish their wait window before the listener goes away.
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	stopListener()
	if !listenerStopped {
		select {
		case <-listenerDone:
		case <-shutdownCtx.Done():
			a.zapLog.Warn("Listener did not stop before the shutdown deadline")
		}
	}
	p.registry.Close()

	a.zapLog.Info("Analysis gateway stopped gracefully")
	return runErr
}
