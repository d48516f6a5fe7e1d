package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is classified into an HTTP status and mapped via core.MapError
//     to a user-friendly message with a support code
//  4. Technical error + context is logged with request ID for correlation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/epistat/t2d-analyzer/internal/core"
	"github.com/epistat/t2d-analyzer/internal/glm"
	"github.com/epistat/t2d-analyzer/internal/loader"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error server-side and returns a
// user-friendly JSON response with the status derived from the error class.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if statusCode == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor classifies an error into an HTTP status code.
//
//	unsupported format        -> 400 (client sent an unknown file type)
//	missing capability        -> 501 (recognized but not implemented here)
//	fit failure               -> 422 (valid request, model did not converge)
//	busy                      -> 429 (fit slots exhausted)
func statusFor(err error) int {
	switch {
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrMissingCapability):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrSolverUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, glm.ErrFitFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
