package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/service"
	"github.com/darmiel/idgate/internal/validation"
)

type ErrorResponse struct {
	Error         string                 `json:"error"`
	CorrelationID string                 `json:"correlation_id"`
	Detail        string                 `json:"detail,omitempty"`
	Fields        validation.FieldErrors `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	JSON(w, r, ErrorResponse{
		Error:         msg,
		CorrelationID: core.CorrelationID(r.Context()),
	}, status)
}

// ValidationError renders a 400 with the failing fields.
func ValidationError(w http.ResponseWriter, r *http.Request, fields validation.FieldErrors) {
	JSON(w, r, ErrorResponse{
		Error:         "one or more validation errors occurred",
		CorrelationID: core.CorrelationID(r.Context()),
		Fields:        fields,
	}, http.StatusBadRequest)
}

// Fault renders a server-side failure. The message is always short,
// the error text is only attached as detail if exposeDetail is set.
func Fault(w http.ResponseWriter, r *http.Request, err error, short string, status int, exposeDetail bool) {
	resp := ErrorResponse{
		Error:         short,
		CorrelationID: core.CorrelationID(r.Context()),
	}
	if exposeDetail && err != nil {
		resp.Detail = err.Error()
	}
	JSON(w, r, resp, status)
}

// Err renders err with the status of the wrapped service.HTTPError, 400 otherwise.
// Field errors are rendered as a validation error and 5xx statuses only carry short.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		ValidationError(w, r, fields)
		return
	}

	status := http.StatusBadRequest
	var httpError *service.HTTPError
	if errors.As(err, &httpError) {
		status = httpError.StatusCode
	}
	if status >= http.StatusInternalServerError {
		Error(w, r, short, status)
		return
	}
	Error(w, r, err.Error(), status)
}
