package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finease/internal/auth"
	"finease/internal/config"
	apphttp "finease/internal/http"
	"finease/internal/ledger"
	"finease/internal/ledger/memory"
	"finease/internal/ledger/sqlite"
	applog "finease/internal/log"
	"finease/internal/notify"
	"finease/internal/services"
)

// changeNotifier is implemented by stores that can re-broadcast an owner's
// state when another instance announces a change.
type changeNotifier interface {
	NotifyChanged(ctx context.Context, ownerID string)
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     logLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
		Format:    cfg.LogFormat,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	// Choose data backend
	var (
		gateway  ledger.Gateway
		notifier changeNotifier
	)
	switch cfg.DataBackend {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer store.Close()
		gateway, notifier = store, store
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		store := memory.New()
		gateway, notifier = store, store
		logger.Info("Initialized memory backend")
	}

	// AMQP change feed is optional; without it writes are only visible to
	// subscriptions on this instance.
	var events *notify.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer events.Close()
		logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var publisher services.ChangePublisher
	if events != nil {
		publisher = events
	}
	records := services.NewRecordService(gateway, publisher)
	provider := auth.NewJWTProvider([]byte(cfg.JWTSecret))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		StreamHeartbeat: cfg.StreamHeartbeat,
		CacheTTL:        cfg.CacheTTL,
		CacheCapacity:   cfg.CacheCapacity,
		Logger:          logger,
	}, gateway, records, provider)

	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting finease server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if events != nil {
		g.Go(func() error {
			err := events.ConsumeRecordChanges(ctx, func(msg *notify.RecordChangedMessage) error {
				notifier.NotifyChanged(ctx, msg.OwnerID)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
