package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/home-scheduler/internal/preferences"
)

// Authenticator exchanges credentials for a remote API token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// SessionStore keeps the signed-in account.
type SessionStore interface {
	Get() preferences.Preferences
	SetSession(email, token string) error
	ClearSession() error
	Token(ctx context.Context) (string, error)
	TokenExpiry() (time.Time, bool)
}

// SessionService coordinates sign-in against the remote API.
type SessionService struct {
	auth     Authenticator
	store    SessionStore
	onChange func()
	logger   *slog.Logger
}

// NewSessionService constructs a SessionService. onChange, when set, runs
// after every sign-in and sign-out.
func NewSessionService(auth Authenticator, store SessionStore, onChange func()) *SessionService {
	return NewSessionServiceWithLogger(auth, store, onChange, nil)
}

// NewSessionServiceWithLogger constructs a SessionService with a specified logger.
func NewSessionServiceWithLogger(auth Authenticator, store SessionStore, onChange func(), logger *slog.Logger) *SessionService {
	if onChange == nil {
		onChange = func() {}
	}
	return &SessionService{auth: auth, store: store, onChange: onChange, logger: defaultLogger(logger)}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// Login validates credentials with the remote API and stores the token.
func (s *SessionService) Login(ctx context.Context, email, password string) (status SessionStatus, err error) {
	if s == nil || s.auth == nil || s.store == nil {
		err = fmt.Errorf("session service not configured")
		return
	}

	email = strings.TrimSpace(strings.ToLower(email))
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "signed in")
	}()

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	}
	if password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		err = mapRemoteError(err)
		return
	}
	if err = s.store.SetSession(email, token); err != nil {
		return
	}
	s.onChange()

	status = s.Status(ctx)
	return
}

// Logout forgets the stored token.
func (s *SessionService) Logout(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("session service not configured")
	}
	if err := s.store.ClearSession(); err != nil {
		s.loggerWith(ctx, "Logout").ErrorContext(ctx, "sign-out failed", "error", err)
		return err
	}
	s.onChange()
	s.loggerWith(ctx, "Logout").InfoContext(ctx, "signed out")
	return nil
}

// Status reports whether a usable session exists.
func (s *SessionService) Status(ctx context.Context) SessionStatus {
	if s == nil || s.store == nil {
		return SessionStatus{}
	}
	prefs := s.store.Get()
	if !prefs.SignedIn() {
		return SessionStatus{}
	}

	status := SessionStatus{SignedIn: true, Email: prefs.Auth.Email}
	if expiry, ok := s.store.TokenExpiry(); ok {
		status.ExpiresAt = &expiry
	}
	if _, err := s.store.Token(ctx); errors.Is(err, preferences.ErrSessionExpired) {
		status.Expired = true
	}
	return status
}
