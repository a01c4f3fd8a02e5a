package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/home-scheduler/internal/application"
)

var (
	errBadRequestBody    = errors.New("request body is not valid JSON")
	errInvalidScheduleID = errors.New("invalid schedule id")
	errInvalidHouseID    = errors.New("invalid house id")
	errInvalidLimit      = errors.New("limit must be a positive integer")
	errMissingAPIKey     = errors.New("an API key is required")
)

// Error codes returned alongside 401 responses so clients can tell a missing
// sign-in from an expired one.
const (
	codeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	codeNotSignedIn        = "SESSION_REQUIRED"
	codeSessionExpired     = "SESSION_EXPIRED"
	codeInvalidAPIKey      = "API_KEY_INVALID"
	codeUpstream           = "UPSTREAM_UNAVAILABLE"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeInvalidCredentials,
			Message:   "email or password is incorrect",
		})
	case errors.Is(err, application.ErrNotSignedIn):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeNotSignedIn,
			Message:   "sign in to the home automation account first",
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeSessionExpired,
			Message:   "the session has expired, sign in again",
		})
	case errors.Is(err, application.ErrUpstream):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: codeUpstream,
			Message:   statusMessage(http.StatusBadGateway),
		})
	case errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusGatewayTimeout, errorResponse{Message: statusMessage(http.StatusGatewayTimeout)})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: statusMessage(http.StatusUnprocessableEntity),
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusUnauthorized:
		return "authentication is required"
	case http.StatusNotFound:
		return "the requested resource does not exist"
	case http.StatusUnprocessableEntity:
		return "the request contains invalid fields"
	case http.StatusBadGateway:
		return "the home automation service is unavailable"
	case http.StatusGatewayTimeout:
		return "the home automation service did not answer in time"
	default:
		return "an internal error occurred"
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
