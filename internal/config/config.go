package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	APIToken    string
	DatabaseURL string
	LogLevel    string

	EmbeddingProvider string // "openai" or "ollama"
	EmbeddingModel    string
	OpenAIAPIKey      string
	OllamaURL         string

	CacheDir     string
	ProcessedDir string
	StatePath    string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	NatsURL   string
	NatsToken string
}

func Load() Config {
	return Config{
		Port:        envInt("RECALL_PORT", 8790),
		APIToken:    envStr("RECALL_API_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		EmbeddingProvider: envStr("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:    envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIAPIKey:      envStr("OPENAI_API_KEY", ""),
		OllamaURL:         envStr("OLLAMA_URL", "http://localhost:11434"),

		CacheDir:     envStr("RECALL_CACHE_DIR", "./data/embeddings_cache"),
		ProcessedDir: envStr("RECALL_PROCESSED_DIR", "./data/processed"),
		StatePath:    envStr("RECALL_STATE_PATH", "./data/ingest-state.json"),

		ChunkSize:    envInt("RECALL_CHUNK_SIZE", 1000),
		ChunkOverlap: envInt("RECALL_CHUNK_OVERLAP", 200),
		TopK:         envInt("RECALL_TOP_K", 5),

		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
