// Package retriever is the read API over the vector store: query embedding,
// nearest-neighbor lookup, and a bounded recency re-ranking pass.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/conductor-ai/recall/internal/vectorstore"
)

// DefaultTopK is the result count used when a caller passes n <= 0.
const DefaultTopK = 5

// NoContextSentinel is returned by ContextForQuery when nothing fits.
const NoContextSentinel = "No relevant context found."

// Store is the slice of the vector store the retriever needs.
type Store interface {
	Query(ctx context.Context, collection, queryText string, n int, filter map[string]string) (*vectorstore.QueryResult, error)
}

// Result is one ranked hit. Score is 1 - cosine distance, possibly
// adjusted by the recency re-rank.
type Result struct {
	ID       string
	Content  string
	Metadata map[string]any
	Score    float64
}

type Retriever struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// SearchConversations requests 2n raw candidates to leave room for
// re-ranking, applies the recency pass, and returns the top n.
func (r *Retriever) SearchConversations(ctx context.Context, query string, n int, platformFilter string) ([]Result, error) {
	if n <= 0 {
		n = DefaultTopK
	}

	var filter map[string]string
	if platformFilter != "" {
		filter = map[string]string{"platform": platformFilter}
	}

	raw, err := r.store.Query(ctx, vectorstore.CollectionConversations, query, n*2, filter)
	if err != nil {
		return nil, fmt.Errorf("search conversations: %w", err)
	}

	results := formatResults(raw)
	r.rerank(results)

	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// SearchCode is a direct pass-through to the code-snippet collection,
// no re-ranking.
func (r *Retriever) SearchCode(ctx context.Context, query string, n int, languageFilter string) ([]Result, error) {
	if n <= 0 {
		n = DefaultTopK
	}

	var filter map[string]string
	if languageFilter != "" {
		filter = map[string]string{"language": languageFilter}
	}

	raw, err := r.store.Query(ctx, vectorstore.CollectionCodeSnippets, query, n, filter)
	if err != nil {
		return nil, fmt.Errorf("search code: %w", err)
	}
	return formatResults(raw), nil
}

// rerank applies a bounded recency tilt: candidates with a parseable
// created_at lose up to 30% of their score as they approach a year old;
// candidates without one keep their raw score. Final order is by adjusted
// score descending.
func (r *Retriever) rerank(results []Result) {
	now := r.now()
	for i := range results {
		created, ok := results[i].Metadata["created_at"].(string)
		if !ok || created == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, created)
		if err != nil {
			continue
		}

		daysOld := now.Sub(t).Hours() / 24
		recencyBoost := 1 - daysOld/365
		if recencyBoost < 0 {
			recencyBoost = 0
		}
		results[i].Score *= 0.7 + 0.3*recencyBoost
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// ContextForQuery assembles ranked source blocks for an LLM prompt,
// stopping before a block would push the chars/4 estimate past maxTokens.
func (r *Retriever) ContextForQuery(ctx context.Context, query string, maxTokens int, platformFilter string) (string, error) {
	results, err := r.SearchConversations(ctx, query, 10, platformFilter)
	if err != nil {
		return "", err
	}

	var blocks []string
	totalTokens := 0

	for _, res := range results {
		platform, _ := res.Metadata["platform"].(string)
		title, _ := res.Metadata["title"].(string)

		block := fmt.Sprintf("[Source: %s - %s]\n%s\n", strings.ToUpper(platform), title, res.Content)

		estimated := len(block) / 4
		if totalTokens+estimated > maxTokens {
			break
		}
		blocks = append(blocks, block)
		totalTokens += estimated
	}

	if len(blocks) == 0 {
		return NoContextSentinel, nil
	}
	return strings.Join(blocks, "\n---\n\n"), nil
}

func formatResults(raw *vectorstore.QueryResult) []Result {
	results := make([]Result, len(raw.Documents))
	for i := range raw.Documents {
		results[i] = Result{
			ID:       raw.IDs[i],
			Content:  raw.Documents[i],
			Metadata: raw.Metadatas[i],
			Score:    1 - raw.Distances[i],
		}
	}
	return results
}
