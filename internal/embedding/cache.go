package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a durable content-addressed embedding cache: one JSON file per
// (model, text) pair under the cache dir, fronted by an in-process hot
// tier. Read or write failures degrade to cache misses, never errors —
// values are content-derived, so a racing writer on the same key is
// harmless (last write wins with an equal value).
type Cache struct {
	dir    string
	model  string
	mem    *gocache.Cache
	logger *slog.Logger
}

type cacheEntry struct {
	TextPreview string    `json:"text_preview"`
	Embedding   []float64 `json:"embedding"`
	Model       string    `json:"model"`
}

func NewCache(dir, model string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:    dir,
		model:  model,
		mem:    gocache.New(gocache.NoExpiration, 0),
		logger: logger,
	}, nil
}

// cacheKey hashes the model identifier together with the raw text, so a
// model change invalidates every entry.
func (c *Cache) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.model + ":" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Get(text string) ([]float64, bool) {
	k := c.cacheKey(text)
	if v, ok := c.mem.Get(k); ok {
		return v.([]float64), true
	}

	data, err := os.ReadFile(filepath.Join(c.dir, k+".json"))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("unreadable cache entry, treating as miss", "key", k, "error", err)
		return nil, false
	}

	c.mem.Set(k, entry.Embedding, gocache.NoExpiration)
	return entry.Embedding, true
}

func (c *Cache) Put(text string, vector []float64) {
	k := c.cacheKey(text)
	c.mem.Set(k, vector, gocache.NoExpiration)

	entry := cacheEntry{
		TextPreview: truncate(text, 100),
		Embedding:   vector,
		Model:       c.model,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("failed to marshal cache entry", "key", k, "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, k+".json"), data, 0o644); err != nil {
		c.logger.Warn("failed to write cache entry", "key", k, "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
