package embedding

import (
	"context"
	"fmt"
	"log/slog"
)

// Generator produces embeddings through a provider, consulting the cache
// first. Only cache misses are sent to the provider, in provider-sized
// batches; a provider failure aborts the whole call — embeddings are never
// produced partially.
type Generator struct {
	provider Provider
	cache    *Cache
	count    TokenCounter
	logger   *slog.Logger
}

func NewGenerator(provider Provider, cache *Cache, logger *slog.Logger) *Generator {
	return &Generator{
		provider: provider,
		cache:    cache,
		count:    EstimateTokens,
		logger:   logger,
	}
}

// SetTokenCounter installs a deterministic tokenizer when one is available.
func (g *Generator) SetTokenCounter(count TokenCounter) {
	if count != nil {
		g.count = count
	}
}

func (g *Generator) CountTokens(text string) int { return g.count(text) }

// ChunkText splits text using the generator's token counter.
func (g *Generator) ChunkText(text string, maxTokens, overlapTokens int) []string {
	return Chunk(text, maxTokens, overlapTokens, g.count)
}

// Generate returns one vector per input text, order-preserving.
func (g *Generator) Generate(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := g.cache.Get(text); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	g.logger.Info("generating embeddings",
		"total", len(texts),
		"cached", len(texts)-len(missing),
		"to_embed", len(missing),
		"model", g.provider.Model(),
	)

	batchSize := g.provider.BatchSize()
	for start := 0; start < len(missing); start += batchSize {
		end := min(start+batchSize, len(missing))

		batch, err := g.provider.Embed(ctx, missing[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("provider returned %d vectors for %d inputs", len(batch), end-start)
		}

		for i, v := range batch {
			g.cache.Put(missing[start+i], v)
			vectors[missingIdx[start+i]] = v
		}
	}

	return vectors, nil
}

// GenerateSingle embeds one text.
func (g *Generator) GenerateSingle(ctx context.Context, text string) ([]float64, error) {
	vectors, err := g.Generate(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
