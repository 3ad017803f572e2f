// Package embedding turns text into vectors via an external provider, with
// a content-addressed cache so identical text is never embedded twice.
package embedding

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider is a remote embedding backend. Embed returns one vector per
// input, order-preserving; a failed call produces no vectors at all.
type Provider interface {
	Model() string
	BatchSize() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIProvider embeds through the OpenAI embeddings API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) BatchSize() int { return 100 }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(texts))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
