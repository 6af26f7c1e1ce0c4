package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/followup/internal/domain/types"
)

// AnalyticsDependencies defines the read side of the analytics core.
type AnalyticsDependencies interface {
	Rankings(ctx context.Context, q types.RankingQuery) (types.Rankings, error)
	Priorities(ctx context.Context, q types.RankingQuery) ([]types.Priority, error)
	Evaluate(ctx context.Context, q types.EvaluationQuery) (types.Evaluation, error)
	EvaluationReport(ctx context.Context, q types.EvaluationQuery) (string, error)
	EvaluateROI(ctx context.Context, q types.EvaluationQuery) (types.Evaluation, error)
	ROIReport(ctx context.Context, q types.EvaluationQuery) (string, error)
}

// AnalyticsHandler serves rankings, priorities and evaluations.
type AnalyticsHandler struct {
	deps AnalyticsDependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// HandleRankings handles GET /rankings?days=N&limit=N&origin=kind.
func (h *AnalyticsHandler) HandleRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	q, err := rankingQuery(r.URL.Query())
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Rankings(r.Context(), q)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePriorities handles GET /priorities?days=N&limit=N.
func (h *AnalyticsHandler) HandlePriorities(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_priorities"
	q, err := rankingQuery(r.URL.Query())
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Priorities(r.Context(), q)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleEvaluation handles GET /evaluations/{entityID}?split=RFC3339&days=N[&format=markdown].
func (h *AnalyticsHandler) HandleEvaluation(w http.ResponseWriter, r *http.Request) {
	h.serveEvaluation(w, r, "api.get_evaluation", h.deps.Evaluate, h.deps.EvaluationReport)
}

// HandleROI handles GET /roi/{entityID} with the same parameters.
func (h *AnalyticsHandler) HandleROI(w http.ResponseWriter, r *http.Request) {
	h.serveEvaluation(w, r, "api.get_roi", h.deps.EvaluateROI, h.deps.ROIReport)
}

func (h *AnalyticsHandler) serveEvaluation(
	w http.ResponseWriter, r *http.Request, op string,
	asJSON func(context.Context, types.EvaluationQuery) (types.Evaluation, error),
	asMarkdown func(context.Context, types.EvaluationQuery) (string, error),
) {
	q, err := evaluationQuery(chi.URLParam(r, "entityID"), r.URL.Query())
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		md, err := asMarkdown(r.Context(), q)
		if err != nil {
			writeError(w, Wrap(op, err))
			return
		}
		writeMarkdown(w, md)
		return
	}

	res, err := asJSON(r.Context(), q)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func rankingQuery(v url.Values) (types.RankingQuery, error) {
	days, err := positiveInt(v, "days")
	if err != nil {
		return types.RankingQuery{}, err
	}
	limit, err := positiveInt(v, "limit")
	if err != nil {
		return types.RankingQuery{}, err
	}
	return types.RankingQuery{Days: days, Limit: limit, Origin: v.Get("origin")}, nil
}

func evaluationQuery(entityID string, v url.Values) (types.EvaluationQuery, error) {
	days, err := positiveInt(v, "days")
	if err != nil {
		return types.EvaluationQuery{}, err
	}
	q := types.EvaluationQuery{EntityID: entityID, Days: days}
	if s := v.Get("split"); s != "" {
		split, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid split %q; must be RFC3339", s)
		}
		q.Split = split.UTC()
	}
	return q, nil
}

// positiveInt returns 0 when key is absent.
func positiveInt(v url.Values, key string) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q; must be a positive integer", key, s)
	}
	return n, nil
}
