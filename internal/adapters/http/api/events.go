package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/internal/domain/types"
)

// maxEventsBody bounds a single ingestion request.
const maxEventsBody = 1 << 20

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	Enqueue(ctx context.Context, events []model.Event) (int, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvents handles POST /events. The body is one event object or
// an array of them; a batch is rejected whole if any event is invalid.
func (h *EventsHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_events"

	reqs, err := decodeEvents(http.MaxBytesReader(w, r.Body, maxEventsBody))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	events := make([]model.Event, 0, len(reqs))
	for i, req := range reqs {
		e, err := req.ToModel()
		if err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("event %d: %w", i, err)))
			return
		}
		events = append(events, e)
	}

	n, err := h.deps.Enqueue(r.Context(), events)
	if err != nil {
		if status, _ := classify(err); status == http.StatusTooManyRequests {
			writeJSON(w, status, types.IngestResponse{Status: "backpressure", Accepted: n})
			return
		}
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.IngestResponse{Status: "accepted", Accepted: n})
}

func decodeEvents(body io.Reader) ([]types.EventRequest, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var reqs []types.EventRequest
		if err := json.Unmarshal(raw, &reqs); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		if len(reqs) == 0 {
			return nil, errors.New("empty event batch")
		}
		return reqs, nil
	}
	var req types.EventRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return []types.EventRequest{req}, nil
}
