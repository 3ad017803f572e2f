package embedding

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider returns a fixed-dimension vector derived from input length
// and records how many texts it was asked to embed.
type fakeProvider struct {
	batchSize int
	calls     int
	embedded  int
	fail      bool
}

func (f *fakeProvider) Model() string  { return "fake-model" }
func (f *fakeProvider) BatchSize() int { return f.batchSize }

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	f.embedded += len(texts)
	if f.fail {
		return nil, errors.New("provider down")
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1}
	}
	return out, nil
}

func newTestGenerator(t *testing.T, p Provider) *Generator {
	t.Helper()
	cache, err := NewCache(t.TempDir(), p.Model(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return NewGenerator(p, cache, testLogger())
}

func TestGenerate_OrderPreserving(t *testing.T) {
	p := &fakeProvider{batchSize: 10}
	g := newTestGenerator(t, p)

	texts := []string{"a", "bb", "ccc"}
	vectors, err := g.Generate(context.Background(), texts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, text := range texts {
		if vectors[i][0] != float64(len(text)) {
			t.Errorf("vector %d = %v, not aligned with input %q", i, vectors[i], text)
		}
	}
}

func TestGenerate_CacheHitsSkipProvider(t *testing.T) {
	p := &fakeProvider{batchSize: 10}
	g := newTestGenerator(t, p)

	ctx := context.Background()
	if _, err := g.Generate(ctx, []string{"one", "two"}); err != nil {
		t.Fatal(err)
	}
	if p.embedded != 2 {
		t.Fatalf("first call embedded %d, want 2", p.embedded)
	}

	// Second call: "two" cached, only "three" hits the provider.
	if _, err := g.Generate(ctx, []string{"two", "three"}); err != nil {
		t.Fatal(err)
	}
	if p.embedded != 3 {
		t.Errorf("total embedded = %d, want 3 (one cache hit)", p.embedded)
	}

	// Fully-cached call never touches the provider.
	calls := p.calls
	if _, err := g.Generate(ctx, []string{"one", "two", "three"}); err != nil {
		t.Fatal(err)
	}
	if p.calls != calls {
		t.Errorf("provider called on fully-cached input")
	}
}

func TestGenerate_BatchesByProviderSize(t *testing.T) {
	p := &fakeProvider{batchSize: 2}
	g := newTestGenerator(t, p)

	texts := []string{"a", "b", "c", "d", "e"}
	if _, err := g.Generate(context.Background(), texts); err != nil {
		t.Fatal(err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 batches of size 2 for 5 texts, got %d calls", p.calls)
	}
}

func TestGenerate_ProviderErrorPropagates(t *testing.T) {
	p := &fakeProvider{batchSize: 10, fail: true}
	g := newTestGenerator(t, p)

	if _, err := g.Generate(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error from failing provider")
	}
}

func TestGenerateSingle(t *testing.T) {
	p := &fakeProvider{batchSize: 10}
	g := newTestGenerator(t, p)

	vec, err := g.GenerateSingle(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateSingle: %v", err)
	}
	if vec[0] != 5 {
		t.Errorf("vec = %v", vec)
	}
}

func TestGenerator_TokenCounter(t *testing.T) {
	p := &fakeProvider{batchSize: 10}
	g := newTestGenerator(t, p)

	if got := g.CountTokens("12345678"); got != 2 {
		t.Errorf("default counter = %d, want 2", got)
	}

	g.SetTokenCounter(func(s string) int { return len(s) })
	if got := g.CountTokens("12345678"); got != 8 {
		t.Errorf("custom counter = %d, want 8", got)
	}

	// ChunkText uses the installed counter.
	chunks := g.ChunkText("aa\n\nbb\n\ncc", 4, 0)
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks with custom counter, got %d", len(chunks))
	}
}
