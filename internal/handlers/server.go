package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pep299/article-feed-api/internal/cache"
	"github.com/pep299/article-feed-api/internal/filter"
	"github.com/pep299/article-feed-api/internal/resource"
	"github.com/pep299/article-feed-api/internal/response"
)

// ArticleService is the query surface the HTTP layer serves.
type ArticleService interface {
	ListAll(ctx context.Context) ([]resource.ArticleView, error)
	Filtered(ctx context.Context, criteria filter.Criteria) ([]resource.ArticleView, error)
	ByID(ctx context.Context, encodedID string) (*resource.ArticleView, error)
	Sample(ctx context.Context, n int) ([]resource.ArticleView, error)
	Categories(ctx context.Context) ([]resource.CategoryView, error)
	DistinctSources(ctx context.Context, limit int) ([]string, error)
	DistinctAuthors(ctx context.Context, limit int) ([]string, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheAdmin exposes the lookup cache to operators.
type CacheAdmin interface {
	GetStats(ctx context.Context) (*cache.Stats, error)
	Clear(ctx context.Context) error
	Delete(ctx context.Context, key string) error
}

// Server holds the HTTP handlers and their dependencies
type Server struct {
	articles  ArticleService
	db        Pinger
	cache     CacheAdmin
	authToken string
	version   string
}

// Option customises a Server.
type Option func(*Server)

// WithAuthToken requires "Authorization: Bearer <token>" on every route but
// health. An empty token disables the check.
func WithAuthToken(token string) Option {
	return func(s *Server) { s.authToken = token }
}

// WithHealthCheck pings db from the health endpoint.
func WithHealthCheck(db Pinger) Option {
	return func(s *Server) { s.db = db }
}

// WithCacheAdmin enables the cache stats and clear routes.
func WithCacheAdmin(c CacheAdmin) Option {
	return func(s *Server) { s.cache = c }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates the HTTP layer over articles
func NewServer(articles ArticleService, opts ...Option) *Server {
	s := &Server{articles: articles, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.healthHandler).Methods("GET")

	// sample must be registered before the {id} route
	api.HandleFunc("/articles", s.indexHandler).Methods("GET")
	api.HandleFunc("/articles/filter", s.filterHandler).Methods("POST")
	api.HandleFunc("/articles/sample", s.sampleHandler).Methods("GET")
	api.HandleFunc("/articles/{id}", s.showHandler).Methods("GET")

	api.HandleFunc("/categories", s.categoriesHandler).Methods("GET")
	api.HandleFunc("/sources", s.sourcesHandler).Methods("GET")
	api.HandleFunc("/authors", s.authorsHandler).Methods("GET")

	// Cache operations
	if s.cache != nil {
		api.HandleFunc("/cache/stats", s.cacheStatsHandler).Methods("GET")
		api.HandleFunc("/cache/clear", s.cacheClearHandler).Methods("DELETE")
	}

	return r
}

// Handler returns the routed API wrapped in its middleware chain. The chain
// sits outside the router so 404/405 answers and CORS preflights pass
// through it too.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.SetupRoutes()
	h = s.authMiddleware(h)
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	return h
}

// Middleware functions

// requestIDMiddleware propagates X-Request-ID, generating one when absent,
// and attaches a request-scoped logger to the context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		logger := log.With().Str("request_id", reqID).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the bearer token when one is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" || r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			response.WriteUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		level := zerolog.InfoLevel
		if wrapped.statusCode >= http.StatusInternalServerError {
			level = zerolog.ErrorLevel
		}
		zerolog.Ctx(r.Context()).WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
