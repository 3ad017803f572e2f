package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/conductor-ai/recall/internal/retriever"
)

type fakeSearcher struct {
	results []retriever.Result
	context string
	err     error

	lastQuery    string
	lastN        int
	lastPlatform string
	lastLanguage string
}

func (f *fakeSearcher) SearchConversations(ctx context.Context, query string, n int, platformFilter string) ([]retriever.Result, error) {
	f.lastQuery, f.lastN, f.lastPlatform = query, n, platformFilter
	return f.results, f.err
}

func (f *fakeSearcher) SearchCode(ctx context.Context, query string, n int, languageFilter string) ([]retriever.Result, error) {
	f.lastQuery, f.lastN, f.lastLanguage = query, n, languageFilter
	return f.results, f.err
}

func (f *fakeSearcher) ContextForQuery(ctx context.Context, query string, maxTokens int, platformFilter string) (string, error) {
	f.lastQuery, f.lastN, f.lastPlatform = query, maxTokens, platformFilter
	return f.context, f.err
}

type fakeCollections struct {
	names  []string
	counts map[string]int
}

func (f *fakeCollections) ListCollections(ctx context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeCollections) Count(ctx context.Context, collection string) (int, error) {
	return f.counts[collection], nil
}

func newTestServer(searcher *fakeSearcher, token string) *Server {
	collections := &fakeCollections{
		names:  []string{"conversations", "code_snippets"},
		counts: map[string]int{"conversations": 42, "code_snippets": 7},
	}
	return NewServer(0, token, searcher, collections)
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, "")
	rec := do(t, s, http.MethodGet, "/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, "")
	rec := do(t, s, http.MethodGet, "/api/v1/recall/status", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"service":"recall"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestBearerAuth(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, "secret")

	if rec := do(t, s, http.MethodGet, "/api/v1/recall/status", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/recall/status", "", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/recall/status", "", "secret"); rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", rec.Code)
	}

	// Health stays open.
	if rec := do(t, s, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health behind auth: status = %d", rec.Code)
	}
}

func TestListCollections(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, "")
	rec := do(t, s, http.MethodGet, "/api/v1/collections", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var counts map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatal(err)
	}
	if counts["conversations"] != 42 || counts["code_snippets"] != 7 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSearchConversations(t *testing.T) {
	searcher := &fakeSearcher{results: []retriever.Result{
		{ID: "r1", Content: "doc", Metadata: map[string]any{"platform": "chatgpt"}, Score: 0.9},
	}}
	s := newTestServer(searcher, "")

	body := `{"query": "retry logic", "n_results": 3, "platform": "chatgpt"}`
	rec := do(t, s, http.MethodPost, "/api/v1/search/conversations", body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if searcher.lastQuery != "retry logic" || searcher.lastN != 3 || searcher.lastPlatform != "chatgpt" {
		t.Errorf("searcher called with %q / %d / %q",
			searcher.lastQuery, searcher.lastN, searcher.lastPlatform)
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Results[0].ID != "r1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearchCode(t *testing.T) {
	searcher := &fakeSearcher{}
	s := newTestServer(searcher, "")

	body := `{"query": "worker pool", "language": "go"}`
	rec := do(t, s, http.MethodPost, "/api/v1/search/code", body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if searcher.lastLanguage != "go" {
		t.Errorf("language filter = %q", searcher.lastLanguage)
	}
}

func TestSearch_Validation(t *testing.T) {
	s := newTestServer(&fakeSearcher{}, "")

	if rec := do(t, s, http.MethodPost, "/api/v1/search/conversations", `{"query": "  "}`, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("blank query: status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/search/conversations", `not json`, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid json: status = %d", rec.Code)
	}
}

func TestSearch_BackendError(t *testing.T) {
	s := newTestServer(&fakeSearcher{err: errors.New("store down")}, "")

	rec := do(t, s, http.MethodPost, "/api/v1/search/conversations", `{"query": "q"}`, "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestContextEndpoint(t *testing.T) {
	searcher := &fakeSearcher{context: "[Source: CHATGPT - T]\ncontent\n"}
	s := newTestServer(searcher, "")

	rec := do(t, s, http.MethodPost, "/api/v1/context", `{"query": "q"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// MaxTokens defaults when omitted.
	if searcher.lastN != 4000 {
		t.Errorf("max tokens = %d, want default 4000", searcher.lastN)
	}

	var resp ContextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Context, "[Source: CHATGPT - T]") {
		t.Errorf("context = %q", resp.Context)
	}
}
