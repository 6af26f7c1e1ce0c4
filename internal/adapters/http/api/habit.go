package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/followup/internal/domain/habit"
	"github.com/okian/followup/internal/domain/types"
)

// HabitDependencies defines the habit operations.
type HabitDependencies interface {
	Habit(ctx context.Context, userID string) (types.HabitReport, error)
	RecordInterventionShown(ctx context.Context, userID string, t habit.InterventionType) (bool, error)
}

// HabitHandler serves habit scores and records displayed nudges.
type HabitHandler struct {
	deps HabitDependencies
}

// NewHabitHandler creates a new habit handler.
func NewHabitHandler(deps HabitDependencies) *HabitHandler {
	return &HabitHandler{deps: deps}
}

// HandleGetHabit handles GET /habit/{userID}.
func (h *HabitHandler) HandleGetHabit(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_habit"
	res, err := h.deps.Habit(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleShown handles POST /habit/{userID}/shown.
func (h *HabitHandler) HandleShown(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_habit_shown"
	var req types.ShownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	recorded, err := h.deps.RecordInterventionShown(r.Context(), chi.URLParam(r, "userID"), habit.InterventionType(req.Type))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ShownResponse{Type: req.Type, Recorded: recorded})
}
