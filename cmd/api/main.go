package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/config"
	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/httpapi"
	apimw "github.com/hamed0406/tlscheck/internal/httpapi/middleware"
	"github.com/hamed0406/tlscheck/internal/logging"
	"github.com/hamed0406/tlscheck/internal/metrics"
	"github.com/hamed0406/tlscheck/internal/notify"
	"github.com/hamed0406/tlscheck/internal/probe"
	"github.com/hamed0406/tlscheck/internal/repo"
	"github.com/hamed0406/tlscheck/internal/repo/memory"
	"github.com/hamed0406/tlscheck/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, cfg.LogStdout)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := probe.Options{
		Timeout:             cfg.CheckTimeout,
		Concurrency:         cfg.MaxConcurrentChecks,
		VerifyTrust:         cfg.VerifyTrust,
		ExpiryThresholdDays: cfg.ExpiryThresholdDays,
		DefaultPort:         cfg.DefaultPort,
		DialRate:            cfg.DialRate,
		RetryAttempts:       cfg.RetryAttempts,
		RetryBackoff:        cfg.RetryBackoff,
	}
	if cfg.CABundle != "" {
		pool, err := probe.LoadRootCAs(cfg.CABundle)
		if err != nil {
			logger.Fatal("ca_bundle_error", zap.Error(err))
		}
		opts.RootCAs = pool
	}

	engine := metrics.NewEngine()
	checker, runner := probe.New(opts, logger, engine)

	store := memory.New()
	if cfg.WatchFile != "" {
		seedWatchList(ctx, logger, store, cfg.WatchFile)
	}

	api := httpapi.NewServer(logger, checker, runner, store, store)
	api.MaxBatchSize = cfg.MaxBatchSize
	api.DefaultPort = cfg.DefaultPort
	api.Gatherer = metrics.NewRegistry(engine)

	if cfg.WatchFile != "" {
		watcher := scheduler.NewWatcher(logger, store, store, runner, engine, cfg.WatchInterval)
		api.Watcher = watcher
		go watcher.Run(ctx)

		if slack := notify.NewSlack(cfg.SlackWebhookURL); slack != nil {
			alerter := scheduler.NewAlerter(store, store, notify.Multi{slack}, scheduler.AlerterConfig{
				AlertOnRecovery: cfg.AlertOnRecovery,
				Cooldown:        cfg.AlertCooldown,
				PollInterval:    time.Minute,
			}, logger)
			go func() {
				if err := alerter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("alerter_stopped", zap.Error(err))
				}
			}()
		}
	}

	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api_shutdown_error", zap.Error(err))
		}
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.Duration("check_timeout", cfg.CheckTimeout),
		zap.Int("max_concurrent_checks", cfg.MaxConcurrentChecks),
		zap.Bool("verify_trust", cfg.VerifyTrust),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_error", zap.Error(err))
	}
	logger.Info("api_stopped")
}

func seedWatchList(ctx context.Context, logger *zap.Logger, store repo.TargetStore, path string) {
	wl, err := config.LoadWatchList(path)
	if err != nil {
		logger.Fatal("watch_file_error", zap.Error(err))
	}
	for _, h := range wl.Hosts {
		if _, err := probe.ParseTarget(h, 0); err != nil {
			logger.Warn("watch_host_invalid", zap.String("host", h), zap.Error(err))
			continue
		}
		if err := store.Add(ctx, domain.WatchTarget{Host: h}); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			logger.Warn("watch_host_add_error", zap.String("host", h), zap.Error(err))
		}
	}
	logger.Info("watch_list_loaded", zap.String("file", path), zap.Int("hosts", len(wl.Hosts)))
}
