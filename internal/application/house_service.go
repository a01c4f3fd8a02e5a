package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/home-scheduler/internal/preferences"
	"github.com/example/home-scheduler/internal/remote"
)

// HouseDirectory lists houses and peripherals from the remote API.
type HouseDirectory interface {
	ListHouses(ctx context.Context) ([]remote.House, error)
	ListDevices(ctx context.Context, houseID int64) ([]remote.Device, error)
}

// HouseService exposes the remote house catalog.
type HouseService struct {
	directory HouseDirectory
	devices   *deviceCache
	logger    *slog.Logger
}

// NewHouseService constructs a house service with the provided dependencies.
func NewHouseService(directory HouseDirectory, cacheTTL time.Duration, now func() time.Time) *HouseService {
	return NewHouseServiceWithLogger(directory, cacheTTL, now, nil)
}

// NewHouseServiceWithLogger constructs a house service with a specified logger.
func NewHouseServiceWithLogger(directory HouseDirectory, cacheTTL time.Duration, now func() time.Time, logger *slog.Logger) *HouseService {
	return &HouseService{
		directory: directory,
		devices:   newDeviceCache(cacheTTL, 0, now),
		logger:    defaultLogger(logger),
	}
}

func (s *HouseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "HouseService", operation, attrs...)
}

// ListHouses returns the houses of the signed-in user.
func (s *HouseService) ListHouses(ctx context.Context) ([]remote.House, error) {
	if s == nil || s.directory == nil {
		return nil, fmt.Errorf("house directory not configured")
	}
	houses, err := s.directory.ListHouses(ctx)
	if err != nil {
		err = mapRemoteError(err)
		s.loggerWith(ctx, "ListHouses").ErrorContext(ctx, "failed to list houses", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return houses, nil
}

// ListDevices returns the peripherals of a house, served from a short-lived
// cache when possible.
func (s *HouseService) ListDevices(ctx context.Context, houseID int64) ([]remote.Device, error) {
	if s == nil || s.directory == nil {
		return nil, fmt.Errorf("house directory not configured")
	}
	if houseID <= 0 {
		vErr := &ValidationError{}
		vErr.add("house_id", "house_id must be positive")
		return nil, vErr
	}
	if devices, ok := s.devices.Get(houseID); ok {
		return devices, nil
	}

	devices, err := s.directory.ListDevices(ctx, houseID)
	if err != nil {
		err = mapRemoteError(err)
		s.loggerWith(ctx, "ListDevices", "house_id", houseID).ErrorContext(ctx, "failed to list devices", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	s.devices.Store(houseID, devices)
	return devices, nil
}

// Invalidate drops cached device lists, e.g. after signing in as someone else.
func (s *HouseService) Invalidate() {
	if s != nil {
		s.devices.Invalidate()
	}
}

// mapRemoteError translates session and remote API failures into service
// errors.
func mapRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, preferences.ErrNoSession):
		return ErrNotSignedIn
	case errors.Is(err, preferences.ErrSessionExpired):
		return ErrSessionExpired
	case errors.Is(err, remote.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		return ErrSessionExpired
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &upstreamError{err: err}
}
