package testfixtures

import (
	"testing"
	"time"

	"github.com/example/home-scheduler/internal/notify"
	"github.com/example/home-scheduler/internal/persistence"
)

// ServiceFactory assists tests with constructing services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("evt"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("evt")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewNotifier builds a notification service over repo with the bundled
// catalogs, the factory clock and sequential event ids.
func (f *ServiceFactory) NewNotifier(tb testing.TB, repo persistence.NotificationRepository) *notify.Service {
	tb.Helper()

	translator, err := notify.NewTranslator()
	if err != nil {
		tb.Fatalf("failed to load catalogs: %v", err)
	}
	svc, err := notify.NewService(repo, translator,
		notify.WithClock(f.Clock.NowFunc()),
		notify.WithIDGenerator(f.IDGenerator.NextFunc()),
		notify.WithLogger(DiscardLogger()),
	)
	if err != nil {
		tb.Fatalf("failed to build notifier: %v", err)
	}
	return svc
}
