package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/home-scheduler/internal/persistence"
)

// NotificationSource lists and renders recorded notification events.
type NotificationSource interface {
	List(ctx context.Context, limit int) ([]persistence.NotificationEvent, error)
	Render(event persistence.NotificationEvent, language string) (string, string)
	Supports(language string) bool
}

// LanguagePreference supplies the display language used when a caller does
// not ask for one.
type LanguagePreference func() string

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 500
)

// NotificationService renders stored notifications in a display language.
type NotificationService struct {
	source   NotificationSource
	language LanguagePreference
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(source NotificationSource, language LanguagePreference) *NotificationService {
	if language == nil {
		language = func() string { return "en" }
	}
	return &NotificationService{source: source, language: language}
}

// List returns the most recent notifications rendered in language, or in the
// preferred language when language is empty.
func (s *NotificationService) List(ctx context.Context, language string, limit int) ([]Notification, error) {
	if s == nil || s.source == nil {
		return nil, fmt.Errorf("notification source not configured")
	}

	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = s.language()
	}
	if !s.source.Supports(language) {
		vErr := &ValidationError{}
		vErr.add("lang", fmt.Sprintf("unsupported language %q", language))
		return nil, vErr
	}
	switch {
	case limit <= 0:
		limit = defaultNotificationLimit
	case limit > maxNotificationLimit:
		limit = maxNotificationLimit
	}

	events, err := s.source.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(events))
	for _, event := range events {
		title, content := s.source.Render(event, language)
		out = append(out, Notification{
			ID:        event.ID,
			Title:     title,
			Content:   content,
			Timestamp: event.Timestamp,
			Success:   event.Success,
			Language:  language,
		})
	}
	return out, nil
}
