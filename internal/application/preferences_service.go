package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/home-scheduler/internal/preferences"
)

// PreferencesStore reads and updates display settings.
type PreferencesStore interface {
	Get() preferences.Preferences
	Update(fn func(*preferences.Preferences)) (preferences.Preferences, error)
}

// PreferencesService validates and applies settings changes.
type PreferencesService struct {
	store  PreferencesStore
	logger *slog.Logger
}

// NewPreferencesService constructs a PreferencesService.
func NewPreferencesService(store PreferencesStore) *PreferencesService {
	return NewPreferencesServiceWithLogger(store, nil)
}

// NewPreferencesServiceWithLogger constructs a PreferencesService with a specified logger.
func NewPreferencesServiceWithLogger(store PreferencesStore, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{store: store, logger: defaultLogger(logger)}
}

// Get returns the current settings.
func (s *PreferencesService) Get(context.Context) (preferences.Preferences, error) {
	if s == nil || s.store == nil {
		return preferences.Preferences{}, fmt.Errorf("preferences store not configured")
	}
	return s.store.Get(), nil
}

// Update applies the non-nil fields of input.
func (s *PreferencesService) Update(ctx context.Context, input PreferencesInput) (prefs preferences.Preferences, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("preferences store not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "PreferencesService", "Update")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update preferences", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("language", prefs.Language, "theme", prefs.Theme, "house_id", prefs.HouseID).
			InfoContext(ctx, "preferences updated")
	}()

	prefs, err = s.store.Update(func(p *preferences.Preferences) {
		if input.Language != nil {
			p.Language = *input.Language
		}
		if input.Theme != nil {
			p.Theme = *input.Theme
		}
		if input.HouseID != nil {
			p.HouseID = *input.HouseID
		}
	})

	var fieldErr *preferences.FieldError
	if errors.As(err, &fieldErr) {
		vErr := &ValidationError{}
		vErr.add(fieldErr.Field, fieldErr.Message)
		err = vErr
	}
	return
}
