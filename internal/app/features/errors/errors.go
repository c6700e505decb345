// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	InvitationID string `json:"invitationId,omitempty"`
}

// ErrorLogger logs failures and writes the JSON error response.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write classifies err and writes the matching status and body.
// Unclassified errors become a 500 whose cause is logged, never returned.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Wrap(apperr.Internal, "", err)
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("kind", ae.Kind.String()),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if ae.Err != nil {
		fields = append(fields, zap.Error(ae.Err))
	}

	body := Body{Error: ae.Message, Code: ae.ResponseCode()}
	switch ae.Kind {
	case apperr.Internal:
		e.Log.Error(op+" failed", fields...)
		body.Error = "An internal error occurred."
		body.Code = apperr.Internal.String()
	case apperr.DependencyFailure:
		e.Log.Error(op+" failed", fields...)
		if body.Error == "" {
			body.Error = "A required service is unavailable."
		}
	default:
		e.Log.Debug(op+" rejected", fields...)
	}
	if ae.Details != nil {
		body.InvitationID = ae.Details["invitationId"]
	}

	WriteJSON(w, ae.Kind.Status(), body)
}

// LogServerError logs err and writes a 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	e.Write(w, r, op, apperr.Wrap(apperr.Internal, op, err))
}

// LogBadRequest writes a 400 with userMsg. err may be nil.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, op string, err error, userMsg string) {
	e.Write(w, r, op, apperr.Wrap(apperr.Validation, userMsg, err))
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Handler serves the router's fallback responses.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers requests that match no route.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, Body{Error: "Not found.", Code: apperr.NotFound.String()})
}

// MethodNotAllowed answers requests whose path matched with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{Error: "Method not allowed.", Code: "method_not_allowed"})
}
