package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/home-scheduler/internal/application"
	"github.com/example/home-scheduler/internal/preferences"
)

type preferencesService interface {
	Get(ctx context.Context) (preferences.Preferences, error)
	Update(ctx context.Context, input application.PreferencesInput) (preferences.Preferences, error)
}

// PreferencesHandler reads and updates display settings.
type PreferencesHandler struct {
	service   preferencesService
	responder responder
	logger    *slog.Logger
}

func NewPreferencesHandler(service preferencesService, logger *slog.Logger) *PreferencesHandler {
	base := defaultLogger(logger)
	return &PreferencesHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	prefs, err := h.service.Get(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferencesDTO(prefs))
}

func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "PreferencesHandler", "Update", "error_kind", "bad_request").
			ErrorContext(r.Context(), "failed to decode preferences update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	prefs, err := h.service.Update(r.Context(), application.PreferencesInput{
		Language: req.Language,
		Theme:    req.Theme,
		HouseID:  req.HouseID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferencesDTO(prefs))
}

type preferencesRequest struct {
	Language *string `json:"language"`
	Theme    *string `json:"theme"`
	HouseID  *int64  `json:"house_id"`
}

type preferencesDTO struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
	HouseID  int64  `json:"house_id"`
	SignedIn bool   `json:"signed_in"`
	Email    string `json:"email,omitempty"`
}

func toPreferencesDTO(prefs preferences.Preferences) preferencesDTO {
	return preferencesDTO{
		Language: prefs.Language,
		Theme:    prefs.Theme,
		HouseID:  prefs.HouseID,
		SignedIn: prefs.SignedIn(),
		Email:    prefs.Auth.Email,
	}
}
