package preferences

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	yaml "go.yaml.in/yaml/v3"
)

var (
	// ErrNoSession is returned by Token when nobody is signed in.
	ErrNoSession = errors.New("preferences: not signed in")
	// ErrSessionExpired is returned by Token once the stored token's exp
	// claim has passed.
	ErrSessionExpired = errors.New("preferences: session expired")
)

// Store owns the preferences file. It is safe for concurrent use.
type Store struct {
	path   string
	sealer *Sealer
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	current Preferences
	token   string
	expiry  time.Time

	subsMu sync.Mutex
	subs   []chan Preferences
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads path, falling back to defaults when the file does not exist yet.
func Open(path string, sealer *Sealer, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("preferences: path is required")
	}
	if sealer == nil {
		return nil, errors.New("preferences: sealer is required")
	}
	s := &Store{
		path:    path,
		sealer:  sealer,
		now:     time.Now,
		logger:  slog.Default(),
		current: Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "preferences")

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load re-reads the file. A missing file leaves defaults in place.
func (s *Store) Load() error {
	prefs, err := s.parse()
	if errors.Is(err, fs.ErrNotExist) {
		s.commit(Defaults(), "", time.Time{})
		return nil
	}
	if err != nil {
		return err
	}

	token, expiry, err := s.openToken(prefs.Auth.SealedToken)
	if err != nil {
		s.logger.Warn("stored token unreadable, signing out", "error", err)
		prefs.Auth = Auth{}
	}
	s.commit(prefs, token, expiry)
	return nil
}

func (s *Store) parse() (Preferences, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Preferences{}, err
	}
	prefs := Defaults()
	if err := yaml.Unmarshal(raw, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("preferences: parse %s: %w", s.path, err)
	}
	prefs = prefs.normalized()
	if err := prefs.Validate(); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

// Get returns the current settings.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the settings, validates and saves the
// result, then notifies subscribers.
func (s *Store) Update(fn func(*Preferences)) (Preferences, error) {
	s.mu.Lock()
	next := s.current
	fn(&next)
	next = next.normalized()
	next.Auth = s.current.Auth
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return Preferences{}, err
	}
	if err := s.writeLocked(next); err != nil {
		s.mu.Unlock()
		return Preferences{}, err
	}
	s.current = next
	s.mu.Unlock()

	s.publish(next)
	return next, nil
}

// SetSession stores a freshly issued token for email.
func (s *Store) SetSession(email, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("preferences: seal token: %w", err)
	}

	s.mu.Lock()
	next := s.current
	next.Auth = Auth{Email: email, SealedToken: sealed}
	if err := s.writeLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	s.token = token
	s.expiry = tokenExpiry(token)
	s.mu.Unlock()

	s.publish(next)
	return nil
}

// ClearSession signs out.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	next := s.current
	next.Auth = Auth{}
	if err := s.writeLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()

	s.publish(next)
	return nil
}

// Token returns the bearer token for the remote API.
func (s *Store) Token(context.Context) (string, error) {
	s.mu.RLock()
	token, expiry := s.token, s.expiry
	s.mu.RUnlock()

	if token == "" {
		return "", ErrNoSession
	}
	if !expiry.IsZero() && !s.now().Before(expiry) {
		return "", ErrSessionExpired
	}
	return token, nil
}

// TokenExpiry returns the exp claim of the stored token, if it has one.
func (s *Store) TokenExpiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry, !s.expiry.IsZero()
}

// Subscribe returns a channel receiving every committed snapshot. The
// returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Preferences, func()) {
	ch := make(chan Preferences, 1)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub == ch {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}

// publish delivers the latest snapshot, replacing an unread older one.
func (s *Store) publish(prefs Preferences) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- prefs:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- prefs:
		default:
		}
	}
}

func (s *Store) commit(prefs Preferences, token string, expiry time.Time) {
	s.mu.Lock()
	s.current = prefs
	s.token = token
	s.expiry = expiry
	s.mu.Unlock()
}

func (s *Store) openToken(sealed string) (string, time.Time, error) {
	if sealed == "" {
		return "", time.Time{}, nil
	}
	token, err := s.sealer.Open(sealed)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, tokenExpiry(token), nil
}

// writeLocked saves prefs through a temporary file and rename.
func (s *Store) writeLocked(prefs Preferences) error {
	raw, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("preferences: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("preferences: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("preferences: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("preferences: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("preferences: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("preferences: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("preferences: replace %s: %w", s.path, err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature. Opaque
// tokens have no expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
