// Package notify records schedule execution outcomes and renders them in the
// user's display language.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/example/home-scheduler/internal/persistence"
)

// Canonical titles.
const (
	TitleExecuted       = "Schedule executed"
	TitleFailed         = "Schedule failed"
	TitleSkipped        = "Schedule skipped"
	ContentSessionEnded = "Session expired, sign in again to resume scheduled commands"
)

// Template keys of the canonical catalog.
const (
	TemplateHouseUpdated = "house_updated"
	TemplateHouseFailed  = "house_failed"
)

// Service records notification events and renders them.
type Service struct {
	repo       persistence.NotificationRepository
	translator *Translator
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires a notification service.
func NewService(repo persistence.NotificationRepository, translator *Translator, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("notify: repository is required")
	}
	if translator == nil {
		return nil, errors.New("notify: translator is required")
	}

	svc := &Service{
		repo:       repo,
		translator: translator,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.logger = svc.logger.With("service", "notify")
	return svc, nil
}

// Record appends an event. Title and content must already be canonical text.
func (s *Service) Record(ctx context.Context, title, content string, success bool) (persistence.NotificationEvent, error) {
	event := persistence.NotificationEvent{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		Timestamp: s.now(),
		Success:   success,
	}
	if err := s.repo.InsertNotification(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "record notification failed", "title", title, "error", err)
		return persistence.NotificationEvent{}, err
	}
	return event, nil
}

// RecordOutcome records the summary of one schedule firing: total commands
// sent to houseID and how many of them failed.
func (s *Service) RecordOutcome(ctx context.Context, houseID int64, total, failed int) (persistence.NotificationEvent, error) {
	if failed == 0 {
		return s.Record(ctx, TitleExecuted, s.translator.Format(TemplateHouseUpdated, map[string]string{
			"house": strconv.FormatInt(houseID, 10),
			"count": strconv.Itoa(total),
		}), true)
	}
	return s.Record(ctx, TitleFailed, s.translator.Format(TemplateHouseFailed, map[string]string{
		"house":  strconv.FormatInt(houseID, 10),
		"failed": strconv.Itoa(failed),
		"count":  strconv.Itoa(total),
	}), false)
}

// List returns the most recent events first.
func (s *Service) List(ctx context.Context, limit int) ([]persistence.NotificationEvent, error) {
	return s.repo.ListNotifications(ctx, limit)
}

// Render returns the title and content of event in language.
func (s *Service) Render(event persistence.NotificationEvent, language string) (string, string) {
	return s.translator.Translate(event.Title, language), s.translator.Translate(event.Content, language)
}

// Supports reports whether language has a catalog.
func (s *Service) Supports(language string) bool {
	return s.translator.Supports(language)
}

// Prune deletes events older than retention and returns how many were removed.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	removed, err := s.repo.DeleteNotificationsBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "prune notifications failed", "cutoff", cutoff, "error", err)
		return 0, err
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "pruned notifications", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
