// Package api exposes the HTTP surface: lifecycle webhooks, the diagram
// check, the duplex relay endpoint, and the usual health and metrics routes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucible-hq/crucible/internal/grading"
	"github.com/crucible-hq/crucible/internal/observability/metrics"
	"github.com/crucible-hq/crucible/internal/relay"
)

// Lifecycle consumes call lifecycle events in order of delivery.
type Lifecycle interface {
	HandleStarted(callID string)
	HandleEnded(ctx context.Context, callID string, payload map[string]any)
	HandleAnalyzed(ctx context.Context, callID string, payload map[string]any)
}

// TavusSink persists raw video-call webhook deliveries and their grades.
type TavusSink interface {
	WriteTavusDump(conversationID, timestamp, eventType string, dump any) error
	WriteSystemDesignGrade(conversationID, timestamp string, grade any) error
}

// Grader scores a flattened transcript. It never fails; scoring problems
// surface as a sentinel grade.
type Grader interface {
	Score(ctx context.Context, transcript, interviewType string) grading.Grade
}

// DiagramChecker runs one canvas review pass.
type DiagramChecker interface {
	Check(ctx context.Context, conversationID string) (string, error)
}

// Options carries the server's own knobs; collaborators come via Deps.
type Options struct {
	Port             int
	RetellAPIKey     string
	SkipVerification bool
}

// Deps are the collaborators the handlers dispatch to.
type Deps struct {
	Lifecycle Lifecycle
	TavusSink TavusSink
	Grader    Grader
	Checker   DiagramChecker
	Generator relay.Generator
}

type Server struct {
	router  *chi.Mux
	opts    Options
	deps    Deps
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		opts:    opts,
		deps:    deps,
		logger:  logger,
		metrics: metrics.Default,
	}

	if opts.SkipVerification {
		logger.Warn("webhook signature verification is DISABLED")
	}

	router.Get("/health", s.health)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Post("/webhook", s.retellWebhook)
	router.Post("/tavus-webhook", s.tavusWebhook)
	router.Post("/check_diagram", s.checkDiagram)
	router.Get("/llm-websocket/{call_id}", s.llmWebsocket)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeServerError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"message": "Internal Server Error",
		"error":   err.Error(),
	})
}
