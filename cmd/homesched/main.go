package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/example/home-scheduler/internal/application"
	"github.com/example/home-scheduler/internal/config"
	httptransport "github.com/example/home-scheduler/internal/http"
	"github.com/example/home-scheduler/internal/logging"
	"github.com/example/home-scheduler/internal/notify"
	"github.com/example/home-scheduler/internal/persistence/sqlite"
	"github.com/example/home-scheduler/internal/preferences"
	"github.com/example/home-scheduler/internal/recurrence"
	"github.com/example/home-scheduler/internal/remote"
	"github.com/example/home-scheduler/internal/trigger"
)

const (
	notificationRetention = 30 * 24 * time.Hour
	pruneSpec             = "0 3 * * *"
	deviceCacheTTL        = time.Minute
	shutdownTimeout       = 10 * time.Second
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired daemon components.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	storage  *sqlite.Storage
	prefs    *preferences.Store
	timer    *trigger.CronTimer
	triggers *trigger.Service
	notifier *notify.Service
	houses   *application.HouseService
	handler  http.Handler
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN, sqlite.WithLocation(loc), sqlite.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = storage.Close()
		}
	}()
	if err = storage.Migrate(ctx); err != nil {
		return nil, err
	}

	sealer, err := preferences.NewSealer(cfg.Secret, preferences.DefaultArgon2idParams)
	if err != nil {
		return nil, err
	}
	prefs, err := preferences.Open(cfg.PreferencesPath, sealer, preferences.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	client, err := remote.New(remote.Config{
		BaseURL:    cfg.APIBaseURL,
		RatePerSec: cfg.DispatchRate,
		Timeout:    cfg.DispatchTimeout,
	}, prefs, logger)
	if err != nil {
		return nil, err
	}

	translator, err := notify.NewTranslator()
	if err != nil {
		return nil, err
	}
	notifier, err := notify.NewService(storage, translator, notify.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	engine := recurrence.NewEngine(loc)
	timer := trigger.NewCronTimer(loc, logger)
	handler, err := trigger.NewHandler(storage, client, notifier, timer, engine,
		trigger.WithHandlerLogger(logger),
		trigger.WithSessionExpired(sessionEnded),
	)
	if err != nil {
		return nil, err
	}
	triggers, err := trigger.NewService(storage, timer, handler, logger)
	if err != nil {
		return nil, err
	}

	houses := application.NewHouseServiceWithLogger(client, deviceCacheTTL, nil, logger)
	schedules := application.NewScheduleServiceWithLogger(storage, triggers, engine, nil, logger)
	sessions := application.NewSessionServiceWithLogger(client, prefs, houses.Invalidate, logger)
	settings := application.NewPreferencesServiceWithLogger(prefs, logger)
	notifications := application.NewNotificationService(notifier, func() string { return prefs.Get().Language })

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Schedules:     httptransport.NewScheduleHandler(schedules, logger),
		Houses:        httptransport.NewHouseHandler(houses, logger),
		Session:       httptransport.NewSessionHandler(sessions, logger),
		Preferences:   httptransport.NewPreferencesHandler(settings, logger),
		Notifications: httptransport.NewNotificationHandler(notifications, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
			httptransport.RequireAPIKey(cfg.APIKey, logger),
		},
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		prefs:    prefs,
		timer:    timer,
		triggers: triggers,
		notifier: notifier,
		houses:   houses,
		handler:  router,
	}, nil
}

// start arms every stored schedule, starts the timer and the background
// jobs. It returns once everything is running.
func (a *app) start(ctx context.Context) error {
	if err := a.timer.Every(pruneSpec, a.pruneNotifications); err != nil {
		return fmt.Errorf("register notification pruning: %w", err)
	}
	a.timer.Start(ctx)

	armed, err := a.triggers.RearmAll(ctx)
	if err != nil {
		// Unreadable rows are skipped; the rest stay armed.
		a.logger.WarnContext(ctx, "some schedules could not be armed", "error", err)
	}
	a.logger.InfoContext(ctx, "scheduler started", "armed", armed)

	go func() {
		if err := a.prefs.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.ErrorContext(ctx, "preferences watcher stopped", "error", err)
		}
	}()
	go a.followPreferences(ctx)
	return nil
}

// followPreferences drops cached device lists whenever the signed-in account
// changes, including edits made to the preferences file by hand.
func (a *app) followPreferences(ctx context.Context) {
	updates, unsubscribe := a.prefs.Subscribe()
	defer unsubscribe()

	email := a.prefs.Get().Auth.Email
	for {
		select {
		case <-ctx.Done():
			return
		case prefs, ok := <-updates:
			if !ok {
				return
			}
			if prefs.Auth.Email != email {
				email = prefs.Auth.Email
				a.houses.Invalidate()
			}
		}
	}
}

func (a *app) pruneNotifications(ctx context.Context) {
	removed, err := a.notifier.Prune(ctx, notificationRetention)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to prune notifications", "error", err)
		return
	}
	a.logger.InfoContext(ctx, "notifications pruned", "removed", removed)
}

func (a *app) close(ctx context.Context) {
	select {
	case <-a.timer.Stop().Done():
	case <-ctx.Done():
		a.logger.WarnContext(ctx, "timed out waiting for running schedules")
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
		return err
	}
	return a.serve(ctx, listener)
}

func (a *app) serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if err := a.start(ctx); err != nil {
		_ = listener.Close()
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("scheduler API listening", "addr", listener.Addr().String())
		serveErr <- server.Serve(listener)
	}()

	notifySystemd(a.logger, daemon.SdNotifyReady)
	stopWatchdog := startWatchdog(ctx, a.logger)
	defer stopWatchdog()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	notifySystemd(a.logger, daemon.SdNotifyStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		a.logger.Error("failed to shutdown server", "error", serr)
	}
	a.close(shutdownCtx)

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func notifySystemd(logger *slog.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logger.Warn("failed to notify systemd", "state", state, "error", err)
	}
}

// startWatchdog pings the systemd watchdog at half its interval when the unit
// enables one.
func startWatchdog(ctx context.Context, logger *slog.Logger) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				notifySystemd(logger, daemon.SdNotifyWatchdog)
			}
		}
	}()
	return cancel
}

// sessionEnded reports dispatch failures caused by a missing or rejected
// remote session.
func sessionEnded(err error) bool {
	if errors.Is(err, preferences.ErrNoSession) || errors.Is(err, preferences.ErrSessionExpired) {
		return true
	}
	var failure *remote.DispatchFailure
	return errors.As(err, &failure) && failure.Status == http.StatusUnauthorized
}
