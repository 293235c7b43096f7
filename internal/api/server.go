// Package api exposes the engine over HTTP for game and dashboard clients.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/cogniz/internal/composer"
	"github.com/abhisek/cogniz/internal/engine"
	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Server holds dependencies for API handlers
type Server struct {
	engine   *engine.Engine
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// NewServer creates a new API server. gatherer may be nil to disable /metrics.
func NewServer(eng *engine.Engine, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	return &Server{
		engine:   eng,
		gatherer: gatherer,
		log:      logger.OrDefault(log),
	}
}

// Routes configures HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Game collaborators
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{sessionId}", s.handleGetSession)
		r.Post("/sessions/{sessionId}/trials", s.handleRecordTrial)
		r.Post("/sessions/{sessionId}/end", s.handleEndSession)

		// Dashboard collaborators
		r.Get("/profile", s.handleProfile)
		r.Get("/skills", s.handleSkills)
		r.Get("/games", s.handleGames)
		r.Get("/history", s.handleHistory)
		r.Get("/modules/{gameId}/stats", s.handleModuleStats)
		r.Get("/plan", s.handlePlan)

		// Crash recovery
		r.Get("/recoveries", s.handleListRecoveries)
		r.Post("/recoveries/{sessionId}", s.handleRecover)
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondEngineError maps engine errors onto HTTP statuses. Unexpected
// errors are logged and reported without detail.
func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *session.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, composer.ErrInvalidMinutes),
		errors.Is(err, rating.ErrUnknownSkill):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrUnknownGame),
		errors.Is(err, session.ErrNoSnapshot):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, session.ErrSessionActive):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
