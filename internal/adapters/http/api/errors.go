package api

import (
	"errors"
	"net/http"

	"github.com/okian/followup/internal/adapters/mq/queue"
	"github.com/okian/followup/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// Error ties an operation name and an error kind to the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap attaches op to err.
func Wrap(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrMalformedReference):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}
