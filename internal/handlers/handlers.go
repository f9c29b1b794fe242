package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/pep299/article-feed-api/internal/filter"
	"github.com/pep299/article-feed-api/internal/response"
)

const (
	msgArticles   = "Articles fetched successfully."
	msgSample     = "Five articles with different categories fetched successfully."
	msgCategories = "Category fetched successfully."
	msgSources    = "source fetched successfully."
	msgAuthors    = "author fetched successfully."

	maxFilterBody = 1 << 20
)

// filterHandler returns the articles matching the JSON criteria in the body
func (s *Server) filterHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFilterBody+1))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Reading filter body failed")
		response.WriteError(w, http.StatusBadRequest, "Invalid filter criteria.")
		return
	}
	if len(body) > maxFilterBody {
		response.WriteError(w, http.StatusRequestEntityTooLarge, "Filter criteria too large.")
		return
	}

	criteria, dropped := filter.Parse(body)
	if e := zerolog.Ctx(ctx).Debug(); e.Enabled() {
		applied := make([]string, len(criteria))
		for i, cond := range criteria {
			applied[i] = string(cond.Field) + ":" + cond.Constraint.Kind.String()
		}
		e.Strs("applied", applied).Strs("dropped", dropped).Msg("Filter criteria")
	}

	articles, err := s.articles.Filtered(ctx, criteria)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, articles, msgArticles)
}

// indexHandler returns every article
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	articles, err := s.articles.ListAll(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, articles, msgArticles)
}

// showHandler returns one article, or null data when the id matches nothing
func (s *Server) showHandler(w http.ResponseWriter, r *http.Request) {
	article, err := s.articles.ByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if article == nil {
		response.WriteSuccess(w, nil, msgArticles)
		return
	}
	response.WriteSuccess(w, article, msgArticles)
}

// sampleHandler returns random articles; ?n= overrides the default count
func (s *Server) sampleHandler(w http.ResponseWriter, r *http.Request) {
	articles, err := s.articles.Sample(r.Context(), queryInt(r, "n"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, articles, msgSample)
}

// categoriesHandler returns every category
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := s.articles.Categories(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, categories, msgCategories)
}

// sourcesHandler returns distinct article sources; ?limit= overrides the default
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	sources, err := s.articles.DistinctSources(r.Context(), queryInt(r, "limit"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, sources, msgSources)
}

// authorsHandler returns distinct article authors; ?limit= overrides the default
func (s *Server) authorsHandler(w http.ResponseWriter, r *http.Request) {
	authors, err := s.articles.DistinctAuthors(r.Context(), queryInt(r, "limit"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, authors, msgAuthors)
}

// cacheStatsHandler returns cache statistics
func (s *Server) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.GetStats(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	response.WriteSuccess(w, stats, "Cache stats fetched successfully.")
}

// cacheClearHandler clears the cache, or a single entry when ?key= is given
func (s *Server) cacheClearHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if key := r.URL.Query().Get("key"); key != "" {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.internalError(w, r, err)
			return
		}
		zerolog.Ctx(ctx).Info().Str("key", key).Msg("Cache entry cleared")
		response.WriteSuccess(w, nil, "Cache entry cleared successfully.")
		return
	}

	if err := s.cache.Clear(ctx); err != nil {
		s.internalError(w, r, err)
		return
	}
	zerolog.Ctx(ctx).Info().Msg("Cache cleared")
	response.WriteSuccess(w, nil, "Cache cleared successfully.")
}

// healthHandler provides health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   s.version,
	}

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
			response.WriteError(w, http.StatusServiceUnavailable, "Database unavailable.")
			return
		}
	}

	response.WriteSuccess(w, data, "ok")
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	response.WriteInternalError(w)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	response.WriteNotFound(w)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	response.WriteMethodNotAllowed(w)
}

// queryInt reads a positive integer query parameter; anything else is 0.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
