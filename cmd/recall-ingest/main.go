package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/conductor-ai/recall/internal/config"
	"github.com/conductor-ai/recall/internal/embedding"
	"github.com/conductor-ai/recall/internal/events"
	"github.com/conductor-ai/recall/internal/ingest"
	"github.com/conductor-ai/recall/internal/sources"
	"github.com/conductor-ai/recall/internal/vectorstore"
)

func main() {
	cfg := config.Load()
	flags := parseFlags()
	setupLogging(cfg.LogLevel)

	srcs := buildSources(flags)
	if len(srcs) == 0 {
		fmt.Fprintln(os.Stderr, "no export paths given; see -h")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	// NATS is optional; without it ingest events are simply not published.
	var ev *events.Client
	if cfg.NatsURL != "" {
		ev, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("NATS unavailable, continuing without events", "error", err)
			ev = nil
		} else {
			defer ev.Close()
		}
	}

	processedDir := cfg.ProcessedDir
	if flags.noExport {
		processedDir = ""
	}

	orch := ingest.New(store, generator, ev, ingest.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		ProcessedDir: processedDir,
		StatePath:    cfg.StatePath,
		Reset:        flags.reset,
		DryRun:       flags.dryRun,
	}, slog.Default())

	summary, err := orch.Run(ctx, srcs)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Ingestion Summary ===\n")
	fmt.Printf("Conversations: %d\n", summary.Conversations)
	fmt.Printf("Code snippets: %d\n", summary.CodeSnippets)
	fmt.Printf("Chunks stored: %d\n", summary.ChunksStored)
	fmt.Printf("Errors: %d\n", summary.Errors)
	if flags.dryRun {
		fmt.Printf("Mode: DRY RUN (no store writes)\n")
	}
}

func buildSources(flags cliFlags) []ingest.Source {
	var srcs []ingest.Source
	if flags.chatgpt != "" {
		srcs = append(srcs, ingest.Source{Processor: sources.NewChatGPT(slog.Default()), Path: flags.chatgpt})
	}
	if flags.gemini != "" {
		srcs = append(srcs, ingest.Source{Processor: sources.NewGemini(slog.Default()), Path: flags.gemini})
	}
	if flags.grok != "" {
		srcs = append(srcs, ingest.Source{Processor: sources.NewGrok(slog.Default()), Path: flags.grok})
	}
	if flags.antigravity != "" {
		srcs = append(srcs, ingest.Source{Processor: sources.NewAntigravity(slog.Default()), Path: flags.antigravity})
	}
	return srcs
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
