package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conductor-ai/recall/internal/retriever"
)

// Searcher is the retrieval surface the API exposes. Handlers are thin
// pass-throughs; answer generation lives outside this service.
type Searcher interface {
	SearchConversations(ctx context.Context, query string, n int, platformFilter string) ([]retriever.Result, error)
	SearchCode(ctx context.Context, query string, n int, languageFilter string) ([]retriever.Result, error)
	ContextForQuery(ctx context.Context, query string, maxTokens int, platformFilter string) (string, error)
}

// Collections answers the stats endpoint.
type Collections interface {
	ListCollections(ctx context.Context) ([]string, error)
	Count(ctx context.Context, collection string) (int, error)
}

type Server struct {
	router      *chi.Mux
	port        int
	searcher    Searcher
	collections Collections
}

func NewServer(port int, apiToken string, searcher Searcher, collections Collections) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:      router,
		port:        port,
		searcher:    searcher,
		collections: collections,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/recall/status", s.status)
		r.Get("/collections", s.listCollections)
		r.Post("/search/conversations", s.searchConversations)
		r.Post("/search/code", s.searchCode)
		r.Post("/context", s.contextForQuery)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests missing the configured token.
// An empty token disables auth.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "recall",
		"status":  "ready",
	})
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.collections.ListCollections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list collections: %v", err))
		return
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		n, err := s.collections.Count(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("count %s: %v", name, err))
			return
		}
		counts[name] = n
	}
	writeJSON(w, http.StatusOK, counts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
