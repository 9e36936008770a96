package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"nanno-banana-ppdb/internal/config"
	"nanno-banana-ppdb/internal/credentials"
	"nanno-banana-ppdb/internal/gemini"
	"nanno-banana-ppdb/internal/handlers"
	"nanno-banana-ppdb/internal/httpclient"
	"nanno-banana-ppdb/internal/poster"
	"nanno-banana-ppdb/internal/session"
	"nanno-banana-ppdb/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadBot()
	if err != nil {
		panic(err)
	}

	logger := config.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout(),
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	keys, err := credentials.Open(ctx, cfg.CredentialsPath)
	if err != nil {
		logger.Error("open credentials store failed", "path", cfg.CredentialsPath, "err", err)
		os.Exit(1)
	}
	defer keys.Close()

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	sessions := session.NewStore(session.Options{})

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Poster:   poster.New(poster.Options{Requestor: gem, Keys: keys, Logger: logger}),
		Sessions: sessions,
		Keys:     keys,
		Logger:   logger,
	})

	logger.Info("bot started", "username", tg.Username(), "default_key", gem.HasDefaultKey())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Prune(cfg.SessionTTL()); n > 0 {
					logger.Info("pruned idle sessions", "count", n, "remaining", sessions.Len())
				}
			}
		}
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)

loop:
	for {
		select {
		case <-gctx.Done():
			logger.Info("shutting down")
			break loop
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				stop()
				break loop
			}

			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				break loop
			}

			g.Go(func() error {
				defer func() { <-sem }()

				if err := handler.HandleUpdate(gctx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
				return nil
			})
		}
	}

	_ = g.Wait()
}
