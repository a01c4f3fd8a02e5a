package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/home-scheduler/internal/application"
)

type notificationService interface {
	List(ctx context.Context, language string, limit int) ([]application.Notification, error)
}

// NotificationHandler serves the notification history.
type NotificationHandler struct {
	service   notificationService
	responder responder
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = parsed
	}

	notifications, err := h.service.List(r.Context(), query.Get("lang"), limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationDTO{
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
			Success:   n.Success,
		})
	}
	language := ""
	if len(notifications) > 0 {
		language = notifications[0].Language
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotificationsResponse{Language: language, Notifications: out})
}

type notificationDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Success   bool   `json:"success"`
}

type listNotificationsResponse struct {
	Language      string            `json:"language,omitempty"`
	Notifications []notificationDTO `json:"notifications"`
}
