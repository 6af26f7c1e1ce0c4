// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/followup/internal/adapters/http/swagger"
	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
	"github.com/okian/followup/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Enqueue submits events for async storage and reports how many were accepted.
	Enqueue(ctx context.Context, events []model.Event) (int, error)

	Rankings(ctx context.Context, q types.RankingQuery) (types.Rankings, error)
	Priorities(ctx context.Context, q types.RankingQuery) ([]types.Priority, error)

	Evaluate(ctx context.Context, q types.EvaluationQuery) (types.Evaluation, error)
	EvaluationReport(ctx context.Context, q types.EvaluationQuery) (string, error)
	EvaluateROI(ctx context.Context, q types.EvaluationQuery) (types.Evaluation, error)
	ROIReport(ctx context.Context, q types.EvaluationQuery) (string, error)

	Habit(ctx context.Context, userID string) (types.HabitReport, error)
	RecordInterventionShown(ctx context.Context, userID string, t habit.InterventionType) (bool, error)

	LifecycleStatus(ctx context.Context, entityKind, entityID, decision string) (types.LifecycleStatus, error)
	ApplyDecision(ctx context.Context, req types.DecisionRequest) (types.DecisionResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	eventsHandler    *EventsHandler
	analyticsHandler *AnalyticsHandler
	habitHandler     *HabitHandler
	lifecycleHandler *LifecycleHandler
	logger           logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		eventsHandler:    NewEventsHandler(deps),
		analyticsHandler: NewAnalyticsHandler(deps),
		habitHandler:     NewHabitHandler(deps),
		lifecycleHandler: NewLifecycleHandler(deps),
		logger:           logger.Get().Named("http"),
	}
}

// Router builds the chi router with every route attached.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvents, "events"))

	r.Get("/rankings", MetricsMiddleware(s.analyticsHandler.HandleRankings, "rankings"))
	r.Get("/priorities", MetricsMiddleware(s.analyticsHandler.HandlePriorities, "priorities"))
	r.Get("/evaluations/{entityID}", MetricsMiddleware(s.analyticsHandler.HandleEvaluation, "evaluations"))
	r.Get("/roi/{entityID}", MetricsMiddleware(s.analyticsHandler.HandleROI, "roi"))

	r.Get("/habit/{userID}", MetricsMiddleware(s.habitHandler.HandleGetHabit, "habit"))
	r.Post("/habit/{userID}/shown", MetricsMiddleware(s.habitHandler.HandleShown, "habit_shown"))

	r.Get("/lifecycle/{entityID}/{decision}", MetricsMiddleware(s.lifecycleHandler.HandleStatus, "lifecycle"))
	r.Post("/lifecycle", MetricsMiddleware(s.lifecycleHandler.HandleApply, "lifecycle_apply"))

	swagger.Register(r)

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMarkdown(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// writeError derives the status from err's kind.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil && status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
