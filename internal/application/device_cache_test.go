package application

import (
	"testing"
	"time"

	"github.com/example/home-scheduler/internal/remote"
	"github.com/example/home-scheduler/internal/testfixtures"
)

func TestDeviceCache_ExpiresEntries(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	cache := newDeviceCache(time.Minute, 0, clock.NowFunc())
	cache.Store(1, []remote.Device{{ID: "1.1", Type: "light", AvailableCommands: []string{"TURN ON"}}})

	got, ok := cache.Get(1)
	if !ok || len(got) != 1 {
		t.Fatalf("expected cached devices, got %v (%t)", got, ok)
	}

	clock.Advance(2 * time.Minute)
	if _, ok := cache.Get(1); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestDeviceCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	cache := newDeviceCache(time.Minute, 0, nil)
	cache.Store(1, []remote.Device{{ID: "1.1", AvailableCommands: []string{"OPEN"}}})

	first, _ := cache.Get(1)
	first[0].AvailableCommands[0] = "CLOSE"

	second, _ := cache.Get(1)
	if second[0].AvailableCommands[0] != "OPEN" {
		t.Fatalf("cache entry was mutated through a returned slice")
	}
}

func TestDeviceCache_EvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	cache := newDeviceCache(time.Hour, 2, clock.NowFunc())

	cache.Store(1, []remote.Device{{ID: "1.1"}})
	clock.Advance(time.Second)
	cache.Store(2, []remote.Device{{ID: "2.1"}})
	clock.Advance(time.Second)
	cache.Store(3, []remote.Device{{ID: "3.1"}})

	if _, ok := cache.Get(1); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	for _, id := range []int64{2, 3} {
		if _, ok := cache.Get(id); !ok {
			t.Fatalf("expected house %d to stay cached", id)
		}
	}

	cache.Invalidate()
	if _, ok := cache.Get(3); ok {
		t.Fatal("expected Invalidate to drop every entry")
	}
}
