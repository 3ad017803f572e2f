// Package ingest orchestrates the write path: platform processors →
// snippet extraction → chunking → embedding → vector store writes.
// Ingestion is sequential and always finishes, reporting aggregate counts
// even when individual units fail.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-ai/recall/internal/events"
	"github.com/conductor-ai/recall/internal/model"
	"github.com/conductor-ai/recall/internal/sources"
	"github.com/conductor-ai/recall/internal/vectorstore"
)

// Store is the slice of the vector store the orchestrator writes through.
type Store interface {
	AddDocuments(ctx context.Context, collection string, texts []string, metadatas []map[string]any, ids []string) error
	Count(ctx context.Context, collection string) (int, error)
	Reset(ctx context.Context) error
}

// Chunker splits conversation text under a token budget with overlap.
type Chunker interface {
	ChunkText(text string, maxTokens, overlapTokens int) []string
}

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	ProcessedDir string // processed-data export location, "" disables
	StatePath    string // resume state file, "" disables
	Reset        bool   // destroy all collections before ingesting
	DryRun       bool   // parse and report, no store writes
}

// Source pairs a processor with the export path it should consume.
type Source struct {
	Processor sources.Processor
	Path      string
}

// Summary holds the aggregate counts reported at the end of a run.
type Summary struct {
	Conversations int
	CodeSnippets  int
	ChunksStored  int
	Errors        int
}

type Orchestrator struct {
	store   Store
	chunker Chunker
	events  *events.Client // nil when NATS is not configured
	cfg     Config
	logger  *slog.Logger
}

func New(store Store, chunker Chunker, ev *events.Client, cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		chunker: chunker,
		events:  ev,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run ingests every source in order. Parse failures and per-conversation
// store failures are logged and counted, never fatal; only a reset failure
// aborts the run.
func (o *Orchestrator) Run(ctx context.Context, srcs []Source) (*Summary, error) {
	state, err := LoadState(o.cfg.StatePath)
	if err != nil {
		o.logger.Warn("could not load ingest state, starting fresh", "error", err)
		state = NewState(o.cfg.StatePath)
	}

	if o.cfg.Reset {
		if !o.cfg.DryRun {
			if err := o.store.Reset(ctx); err != nil {
				return nil, fmt.Errorf("reset store: %w", err)
			}
		}
		state = NewState(o.cfg.StatePath)
		o.logger.Info("store reset before ingestion")
	}

	summary := &Summary{}

	for _, src := range srcs {
		select {
		case <-ctx.Done():
			_ = state.Save()
			return summary, ctx.Err()
		default:
		}

		platform := string(src.Processor.Platform())

		if state.IsProcessed(src.Path) {
			o.logger.Info("source already ingested, skipping", "platform", platform, "path", src.Path)
			continue
		}

		res, err := src.Processor.Process(src.Path)
		if err != nil {
			o.logger.Error("source processing failed", "platform", platform, "path", src.Path, "error", err)
			state.AddError(fmt.Sprintf("process %s: %v", src.Path, err))
			summary.Errors++
			continue
		}

		srcErrors := 0
		chunks := 0

		if o.cfg.ProcessedDir != "" {
			if err := WriteProcessed(o.cfg.ProcessedDir, src.Processor.Platform(), res.Conversations, res.Snippets); err != nil {
				o.logger.Warn("processed-data export failed", "platform", platform, "error", err)
			}
		}

		for _, conv := range res.Conversations {
			n, err := o.AddConversation(ctx, conv)
			if err != nil {
				o.logger.Error("failed to store conversation",
					"platform", platform, "conversation_id", conv.ID, "error", err)
				state.AddError(fmt.Sprintf("store %s/%s: %v", platform, conv.ID, err))
				srcErrors++
				continue
			}
			chunks += n
		}

		for _, snip := range res.Snippets {
			if err := o.AddCodeSnippet(ctx, snip); err != nil {
				o.logger.Error("failed to store code snippet",
					"platform", platform, "conversation_id", snip.SourceConvID, "error", err)
				state.AddError(fmt.Sprintf("store snippet %s/%s: %v", platform, snip.SourceConvID, err))
				srcErrors++
			}
		}

		summary.Conversations += len(res.Conversations)
		summary.CodeSnippets += len(res.Snippets)
		summary.ChunksStored += chunks
		summary.Errors += srcErrors

		state.MarkProcessed(src.Path)
		state.Conversations += len(res.Conversations)
		state.CodeSnippets += len(res.Snippets)
		state.ChunksStored += chunks
		if err := state.Save(); err != nil {
			o.logger.Warn("could not save ingest state", "error", err)
		}

		o.logger.Info("source ingested",
			"platform", platform,
			"conversations", len(res.Conversations),
			"code_snippets", len(res.Snippets),
			"chunks", chunks,
			"errors", srcErrors,
		)

		if err := o.events.Publish(events.SubjectSourceCompleted, events.SourceCompleted{
			Platform:      platform,
			Conversations: len(res.Conversations),
			CodeSnippets:  len(res.Snippets),
			Errors:        srcErrors,
		}); err != nil {
			o.logger.Warn("failed to publish source event", "error", err)
		}
	}

	if err := o.events.Publish(events.SubjectIngestCompleted, events.IngestCompleted{
		Conversations: summary.Conversations,
		CodeSnippets:  summary.CodeSnippets,
		ChunksStored:  summary.ChunksStored,
		Errors:        summary.Errors,
		DryRun:        o.cfg.DryRun,
		FinishedAt:    time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		o.logger.Warn("failed to publish completion event", "error", err)
	}

	o.logger.Info("ingestion complete",
		"conversations", summary.Conversations,
		"code_snippets", summary.CodeSnippets,
		"chunks_stored", summary.ChunksStored,
		"errors", summary.Errors,
		"dry_run", o.cfg.DryRun,
	)
	return summary, nil
}

// AddConversation chunks a conversation's text and writes the chunks under
// stable ids of the form {conversation_id}_chunk_{index}. Returns the
// number of chunks written. Re-ingesting the same conversation overwrites
// the same ids rather than duplicating.
func (o *Orchestrator) AddConversation(ctx context.Context, conv *model.Conversation) (int, error) {
	chunks := o.chunker.ChunkText(conv.Text(), o.cfg.ChunkSize, o.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	createdAt := ""
	if !conv.CreatedAt.IsZero() {
		createdAt = conv.CreatedAt.Format(time.RFC3339)
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%s_chunk_%d", conv.ID, i)
		metadatas[i] = map[string]any{
			"conversation_id": conv.ID,
			"platform":        string(conv.Platform),
			"title":           conv.Title,
			"chunk_index":     i,
			"total_chunks":    len(chunks),
			"created_at":      createdAt,
		}
	}

	if o.cfg.DryRun {
		return len(chunks), nil
	}
	if err := o.store.AddDocuments(ctx, vectorstore.CollectionConversations, chunks, metadatas, ids); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// AddCodeSnippet writes one snippet to the code collection.
func (o *Orchestrator) AddCodeSnippet(ctx context.Context, snip model.CodeSnippet) error {
	if o.cfg.DryRun {
		return nil
	}

	text := fmt.Sprintf("Language: %s\nContext: %s\n\nCode:\n%s", snip.Language, snip.Context, snip.Code)
	metadata := map[string]any{
		"language":               snip.Language,
		"source_conversation_id": snip.SourceConvID,
		"platform":               string(snip.Platform),
		"context":                snip.Context,
	}

	return o.store.AddDocuments(ctx, vectorstore.CollectionCodeSnippets,
		[]string{text}, []map[string]any{metadata}, []string{uuid.New().String()})
}
