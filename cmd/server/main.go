package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"trendscout/internal/api"
	"trendscout/internal/bot"
	"trendscout/internal/config"
	"trendscout/internal/events"
	"trendscout/internal/metrics"
	"trendscout/internal/scheduler"
	"trendscout/internal/storage"
	"trendscout/internal/trends"
	"trendscout/internal/youtube"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	upstreamTimeout = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	metrics.Init(version, cfg.GinMode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	publisher := events.Publisher(events.Nop{})
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			log.Error("connect nats", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		publisher = p
	}
	defer publisher.Close()

	source := youtube.New(&http.Client{Timeout: upstreamTimeout}, cfg.YouTubeAPIKey)
	svc := trends.New(source, store, publisher, log, cfg.ReferenceMinAge)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.New(store, log, cfg.SnapshotInterval, cfg.SnapshotRetention).Run(ctx)
	}()

	if cfg.BotEnabled() {
		b, err := bot.New(cfg.TelegramBotToken, store, svc, cfg, log)
		if err != nil {
			log.Error("create bot", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx)
		}()
		log.Info("telegram bot enabled")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown http server", "error", err)
		}
	}()

	log.Info("starting server", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "version", version)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server", "error", err)
		cancel()
	}

	wg.Wait()
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		connectCtx, done := context.WithTimeout(ctx, 10*time.Second)
		defer done()
		m, err := storage.NewMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		s, err := storage.NewSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
