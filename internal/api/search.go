package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/conductor-ai/recall/internal/retriever"
)

// SearchRequest is shared by the conversation and code search endpoints;
// Platform only applies to conversations, Language only to code.
type SearchRequest struct {
	Query    string `json:"query"`
	N        int    `json:"n_results,omitempty"`
	Platform string `json:"platform,omitempty"`
	Language string `json:"language,omitempty"`
}

type SearchResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type ContextRequest struct {
	Query     string `json:"query"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

type ContextResponse struct {
	Context string `json:"context"`
}

func (s *Server) searchConversations(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	results, err := s.searcher.SearchConversations(r.Context(), req.Query, req.N, req.Platform)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("search failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(results))
}

func (s *Server) searchCode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	results, err := s.searcher.SearchCode(r.Context(), req.Query, req.N, req.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("search failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(results))
}

func (s *Server) contextForQuery(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 4000
	}

	contextText, err := s.searcher.ContextForQuery(r.Context(), req.Query, req.MaxTokens, req.Platform)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("context assembly failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, ContextResponse{Context: contextText})
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (SearchRequest, bool) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	return req, true
}

func toSearchResponse(results []retriever.Result) SearchResponse {
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{
			ID:       res.ID,
			Content:  res.Content,
			Metadata: res.Metadata,
			Score:    res.Score,
		}
	}
	return SearchResponse{Results: out, Count: len(out)}
}
