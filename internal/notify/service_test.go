package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

type memoryRepo struct {
	mu        sync.Mutex
	events    []persistence.NotificationEvent
	insertErr error
}

func (r *memoryRepo) InsertNotification(_ context.Context, event persistence.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.events = append(r.events, event)
	return nil
}

func (r *memoryRepo) ListNotifications(_ context.Context, limit int) ([]persistence.NotificationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]persistence.NotificationEvent(nil), r.events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) DeleteNotificationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var removed int64
	for _, event := range r.events {
		if event.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept
	return removed, nil
}

func newTestService(t *testing.T, repo *memoryRepo, now time.Time) *Service {
	t.Helper()

	translator, err := NewTranslator()
	if err != nil {
		t.Fatalf("NewTranslator returned error: %v", err)
	}
	seq := 0
	svc, err := NewService(repo, translator,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("evt-%d", seq)
		}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestNewService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	translator, err := NewTranslator()
	if err != nil {
		t.Fatalf("NewTranslator returned error: %v", err)
	}
	if _, err := NewService(nil, translator); err == nil {
		t.Fatal("expected error for nil repository")
	}
	if _, err := NewService(&memoryRepo{}, nil); err == nil {
		t.Fatal("expected error for nil translator")
	}
}

func TestService_RecordOutcome(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		total       int
		failed      int
		wantTitle   string
		wantContent string
		wantSuccess bool
	}{
		{
			name:        "all delivered",
			total:       3,
			failed:      0,
			wantTitle:   TitleExecuted,
			wantContent: "House 7 updated with 3 commands",
			wantSuccess: true,
		},
		{
			name:        "partial failure",
			total:       3,
			failed:      2,
			wantTitle:   TitleFailed,
			wantContent: "House 7 failed 2 of 3 commands",
			wantSuccess: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &memoryRepo{}
			svc := newTestService(t, repo, now)

			event, err := svc.RecordOutcome(context.Background(), 7, tc.total, tc.failed)
			if err != nil {
				t.Fatalf("RecordOutcome returned error: %v", err)
			}
			if event.Title != tc.wantTitle || event.Content != tc.wantContent || event.Success != tc.wantSuccess {
				t.Fatalf("unexpected event %+v", event)
			}
			if event.ID != "evt-1" || !event.Timestamp.Equal(now) {
				t.Fatalf("unexpected id or timestamp %+v", event)
			}
			if len(repo.events) != 1 {
				t.Fatalf("expected 1 stored event, got %d", len(repo.events))
			}
		})
	}
}

func TestService_RenderKeepsStoredTextCanonical(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	svc := newTestService(t, repo, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))

	event, err := svc.RecordOutcome(context.Background(), 2, 4, 0)
	if err != nil {
		t.Fatalf("RecordOutcome returned error: %v", err)
	}

	title, content := svc.Render(event, "fr")
	if title != "Programmation exécutée" || content != "Maison 2 mise à jour avec 4 commandes" {
		t.Fatalf("unexpected rendering %q / %q", title, content)
	}

	stored, err := svc.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if stored[0].Title != TitleExecuted || stored[0].Content != "House 2 updated with 4 commands" {
		t.Fatalf("stored event must stay canonical, got %+v", stored[0])
	}
}

func TestService_RecordPropagatesStorageError(t *testing.T) {
	t.Parallel()

	storageErr := persistence.NewStorageError("insert notification", errors.New("disk full"))
	svc := newTestService(t, &memoryRepo{insertErr: storageErr}, time.Now())

	if _, err := svc.Record(context.Background(), TitleSkipped, "", false); !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestService_Prune(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &memoryRepo{events: []persistence.NotificationEvent{
		{ID: "old", Timestamp: now.Add(-40 * 24 * time.Hour)},
		{ID: "recent", Timestamp: now.Add(-time.Hour)},
	}}
	svc := newTestService(t, repo, now)

	removed, err := svc.Prune(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if removed != 1 || len(repo.events) != 1 || repo.events[0].ID != "recent" {
		t.Fatalf("unexpected prune result removed=%d events=%+v", removed, repo.events)
	}
}
