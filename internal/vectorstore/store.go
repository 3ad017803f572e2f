// Package vectorstore persists chunk vectors and metadata per logical
// collection in Postgres with pgvector, and answers nearest-neighbor
// queries with exact-match metadata filtering.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Collection names. Collections are independent namespaces; there are no
// cross-collection queries.
const (
	CollectionConversations = "conversations"
	CollectionCodeSnippets  = "code_snippets"
	CollectionDecisions     = "decisions"
	CollectionSolutions     = "solutions"
)

// Embedder produces vectors for documents and queries. Provider failures
// propagate to the caller; retry policy belongs to the provider client.
type Embedder interface {
	Generate(ctx context.Context, texts []string) ([][]float64, error)
	GenerateSingle(ctx context.Context, text string) ([]float64, error)
}

// Store is not safe for concurrent mutation: callers introducing concurrent
// ingestion must serialize AddDocuments/Reset themselves. Queries are
// read-only and safe to issue concurrently against a store that is not
// simultaneously being written.
type Store struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger

	mu          sync.Mutex
	collections map[string]bool // lazily-created collection cache
}

const insertBatchSize = 100

func New(ctx context.Context, databaseURL string, embedder Embedder, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		pool:        pool,
		embedder:    embedder,
		logger:      logger,
		collections: make(map[string]bool),
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS collections (
			name       text PRIMARY KEY,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS vector_records (
			collection text NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
			id         text NOT NULL,
			document   text NOT NULL,
			metadata   jsonb NOT NULL DEFAULT '{}',
			embedding  vector,
			PRIMARY KEY (collection, id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ensureCollection lazily registers a collection on first access and caches
// it for the store's lifetime.
func (s *Store) ensureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[name] {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	s.collections[name] = true
	s.logger.Info("collection ready", "collection", name)
	return nil
}

// AddDocuments embeds texts and writes them to a collection in fixed-size
// batches, order-preserving. Ids are generated when absent; writes upsert,
// so callers supplying stable ids get idempotence, everyone else appends.
func (s *Store) AddDocuments(ctx context.Context, collection string, texts []string, metadatas []map[string]any, ids []string) error {
	if len(texts) == 0 {
		return nil
	}
	if len(metadatas) != len(texts) {
		return fmt.Errorf("got %d metadatas for %d texts", len(metadatas), len(texts))
	}
	if ids == nil {
		ids = make([]string, len(texts))
		for i := range ids {
			ids[i] = uuid.New().String()
		}
	}
	if len(ids) != len(texts) {
		return fmt.Errorf("got %d ids for %d texts", len(ids), len(texts))
	}

	if err := s.ensureCollection(ctx, collection); err != nil {
		return err
	}

	s.logger.Info("adding documents", "collection", collection, "count", len(texts))

	vectors, err := s.embedder.Generate(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	for start := 0; start < len(texts); start += insertBatchSize {
		end := min(start+insertBatchSize, len(texts))
		if err := s.insertBatch(ctx, collection, texts[start:end], metadatas[start:end], ids[start:end], vectors[start:end]); err != nil {
			return fmt.Errorf("insert batch at %d: %w", start, err)
		}
	}

	s.logger.Info("documents added", "collection", collection, "count", len(texts))
	return nil
}

func (s *Store) insertBatch(ctx context.Context, collection string, texts []string, metadatas []map[string]any, ids []string, vectors [][]float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range texts {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO vector_records (collection, id, document, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5::vector)
			ON CONFLICT (collection, id) DO UPDATE
			SET document = EXCLUDED.document,
			    metadata = EXCLUDED.metadata,
			    embedding = EXCLUDED.embedding`,
			collection, ids[i], texts[i], meta, pgVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", ids[i], err)
		}
	}

	return tx.Commit(ctx)
}

// QueryResult holds parallel arrays ordered by ascending cosine distance,
// most similar first.
type QueryResult struct {
	Documents []string
	Metadatas []map[string]any
	Distances []float64
	IDs       []string
}

// Query embeds the query text and returns the n nearest records, optionally
// restricted to records whose metadata exactly matches every filter entry.
func (s *Store) Query(ctx context.Context, collection, queryText string, n int, filter map[string]string) (*QueryResult, error) {
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}

	queryVec, err := s.embedder.GenerateSingle(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filterJSON []byte
	if len(filter) > 0 {
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, document, metadata, embedding <=> $2::vector AS distance
		FROM vector_records
		WHERE collection = $1
		  AND embedding IS NOT NULL
		  AND ($3::jsonb IS NULL OR metadata @> $3::jsonb)
		ORDER BY distance ASC
		LIMIT $4`,
		collection, pgVector(queryVec), filterJSON, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	defer rows.Close()

	res := &QueryResult{}
	for rows.Next() {
		var (
			id, doc  string
			meta     map[string]any
			distance float64
		)
		if err := rows.Scan(&id, &doc, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		res.IDs = append(res.IDs, id)
		res.Documents = append(res.Documents, doc)
		res.Metadatas = append(res.Metadatas, meta)
		res.Distances = append(res.Distances, distance)
	}
	return res, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM vector_records WHERE collection = $1`, collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collection, err)
	}
	return count, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	s.mu.Lock()
	delete(s.collections, name)
	s.mu.Unlock()
	s.logger.Info("collection deleted", "collection", name)
	return nil
}

// Reset destroys all collections and records. Used only for explicit
// re-ingestion.
func (s *Store) Reset(ctx context.Context) error {
	s.logger.Warn("resetting vector store")
	if _, err := s.pool.Exec(ctx, `DELETE FROM collections`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.mu.Lock()
	s.collections = make(map[string]bool)
	s.mu.Unlock()
	return nil
}

// pgVector formats a float64 slice as a pgvector literal, e.g. "[0.1,0.2]".
func pgVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
