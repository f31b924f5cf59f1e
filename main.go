// Package main runs the GAG Stock bot: a chat webhook server plus a
// persistent upstream feed subscription that fans stock updates out to
// subscribers.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"

	"gagstock-notifier/bot"
	"gagstock-notifier/cache"
	"gagstock-notifier/config"
	"gagstock-notifier/feed"
	"gagstock-notifier/messenger"
	"gagstock-notifier/notify"
	"gagstock-notifier/registry"
	"gagstock-notifier/server"
	"gagstock-notifier/storage"
	"gagstock-notifier/weather"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if tables, err := store.Tables(ctx); err != nil {
		logger.Warn("Failed to list persisted tables", "error", err)
	} else {
		logger.Info("Restoring persisted state", "tables", tables)
	}

	reg := registry.New(store, logger)
	if err := reg.Load(ctx); err != nil {
		logger.Error("Failed to load registry state", "error", err)
		os.Exit(1)
	}

	digestCache, err := newDigestCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize digest cache", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := digestCache.Close(); err != nil {
			logger.Warn("Failed to close digest cache", "error", err)
		}
	}()

	var provider messenger.Provider
	if cfg.Messenger.PageAccessToken == "" {
		logger.Info("Mock messenger mode enabled (no PAGE_ACCESS_TOKEN)")
		provider = messenger.NewMockProvider(logger)
	} else {
		provider = messenger.NewClient(cfg.Messenger.GraphBaseURL, cfg.Messenger.PageAccessToken)
	}

	policy := bot.PolicyForMode(cfg.TierMode)
	logger.Info("Tier policy configured", "mode", cfg.TierMode)

	chatBot := bot.New(reg, provider, digestCache, policy, cfg.Messenger.AdminUserID, logger)
	dispatcher := notify.New(reg, provider, weather.New(cfg.Feed.WeatherURL), digestCache, logger)
	feedManager := feed.New(cfg.Feed.URL, nil, dispatcher.HandleSnapshot, logger)

	srv := server.New(&server.Config{
		Bot:         chatBot,
		Counter:     reg,
		Logger:      logger,
		VerifyToken: cfg.Messenger.VerifyToken,
	})
	httpServer := srv.HTTPServer(cfg.Server.Address())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		feedManager.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reg.RunFlusher(ctx, cfg.Storage.FlushInterval)
	}()

	go func() {
		logger.Info("Server starting", "addr", cfg.Server.Address())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// Waits for the feed loop to exit and the flusher to write its final
	// snapshot of the registry.
	wg.Wait()
	logger.Info("Shutdown complete")
}

// newStore builds the persistence layer: GCS when a bucket is configured,
// local files otherwise.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Store, func(), error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("Running in local storage mode", "path", cfg.Storage.LocalPath)
		if err := os.MkdirAll(cfg.Storage.LocalPath, 0o755); err != nil {
			return nil, nil, err
		}
		return storage.New(nil, "", cfg.Storage.LocalPath, logger), func() {}, nil
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}
	logger.Info("Running with GCS storage", "bucket", cfg.Storage.Bucket)
	return storage.New(client, cfg.Storage.Bucket, "", logger), closer, nil
}

// newDigestCache builds the digest dedup cache from configuration.
func newDigestCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	if cfg.Cache.Backend == "redis" {
		logger.Info("Using Redis digest cache", "addr", cfg.Cache.RedisAddr)
		return cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}
	return cache.NewMemory(), nil
}
