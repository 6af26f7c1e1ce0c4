package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/followup/internal/domain/types"
)

// LifecycleDependencies defines the remediation decision operations.
type LifecycleDependencies interface {
	LifecycleStatus(ctx context.Context, entityKind, entityID, decision string) (types.LifecycleStatus, error)
	ApplyDecision(ctx context.Context, req types.DecisionRequest) (types.DecisionResult, error)
}

// LifecycleHandler serves decision status and applies decisions.
type LifecycleHandler struct {
	deps LifecycleDependencies
}

// NewLifecycleHandler creates a new lifecycle handler.
func NewLifecycleHandler(deps LifecycleDependencies) *LifecycleHandler {
	return &LifecycleHandler{deps: deps}
}

// HandleStatus handles GET /lifecycle/{entityID}/{decision}?kind=lesson.
func (h *LifecycleHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_lifecycle"
	res, err := h.deps.LifecycleStatus(r.Context(),
		r.URL.Query().Get("kind"), chi.URLParam(r, "entityID"), chi.URLParam(r, "decision"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleApply handles POST /lifecycle. A new decision answers 201 and a
// repeated one 200 with outcome "skipped".
func (h *LifecycleHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_lifecycle"
	var req types.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.ApplyDecision(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if res.Outcome == types.OutcomeApplied {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
