// Package api exposes the query surface described in the boundary
// spec over HTTP: full-text search, single-contract lookup, the
// published statistics rollup, and a protected reindex trigger, plus a
// WebSocket feed for live rollup updates.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

// searchStore is the subset of *store.Search the handlers depend on,
// narrowed to an interface so tests can substitute a fake.
type searchStore interface {
	SearchContracts(req models.SearchRequest) (models.SearchResponse, error)
	UpsertBatch(docs []models.SearchProjection) error
	DeleteAll() error
}

// relationalStore is the subset of *store.Postgres the handlers
// depend on.
type relationalStore interface {
	GetContract(ctx context.Context, id int64) (models.Contract, error)
	ContractIDsInRange(ctx context.Context, minID, maxID int64) ([]int64, error)
}

// rollupSource is the subset of *stats.Aggregator the handlers depend
// on.
type rollupSource interface {
	Rollup() models.StatisticsRollup
}

// Server owns the HTTP router and every dependency the handlers need.
type Server struct {
	search     searchStore
	relational relationalStore
	aggregator rollupSource
	auth       *AuthMiddleware
	hub        *hub

	httpServer *http.Server
}

// NewServer wires the router: commonMiddleware and rateLimitMiddleware
// run on every request, admin routes additionally require a bearer
// token.
func NewServer(addr string, search searchStore, relational relationalStore, aggregator rollupSource, jwtSecret string) *Server {
	s := &Server{
		search:     search,
		relational: relational,
		aggregator: aggregator,
		auth:       NewAuthMiddleware(jwtSecret),
		hub:        newHub(),
	}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	r.Use(rateLimitMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/ws/progress", s.handleWebSocket).Methods("GET", "OPTIONS")

	r.HandleFunc("/api/search", s.handleSearch).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/contract/{id}", s.handleGetContract).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/statistics", cachedHandler(time.Minute, s.handleStatistics)).Methods("GET", "OPTIONS")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.auth.RequireAdmin)
	admin.HandleFunc("/reindex", s.handleAdminReindex).Methods("POST", "OPTIONS")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"status":"ok"}`))
}
