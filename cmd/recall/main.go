package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/conductor-ai/recall/internal/api"
	"github.com/conductor-ai/recall/internal/config"
	"github.com/conductor-ai/recall/internal/embedding"
	"github.com/conductor-ai/recall/internal/retriever"
	"github.com/conductor-ai/recall/internal/vectorstore"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("recall starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedding provider + cache. Clients are constructed once here and
	// passed down; components never build their own.
	provider, err := buildProvider(cfg)
	if err != nil {
		slog.Error("embedding provider not configured", "error", err)
		os.Exit(1)
	}
	cache, err := embedding.NewCache(cfg.CacheDir, provider.Model(), slog.Default())
	if err != nil {
		slog.Error("failed to initialize embedding cache", "dir", cfg.CacheDir, "error", err)
		os.Exit(1)
	}
	generator := embedding.NewGenerator(provider, cache, slog.Default())
	slog.Info("embedding generator ready", "provider", cfg.EmbeddingProvider, "model", provider.Model())

	// Vector store
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	store, err := vectorstore.New(ctx, cfg.DatabaseURL, generator, slog.Default())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("vector store connected")

	ret := retriever.New(store, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.APIToken, ret, store)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("recall ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("recall stopped")
}

func buildProvider(cfg config.Config) (embedding.Provider, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.EmbeddingModel), nil
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai embedding provider")
		}
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel), nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
