package application

import (
	"sync"
	"time"

	"github.com/example/home-scheduler/internal/remote"
)

// deviceCache stores recently fetched device lists per house to avoid a
// remote round trip for every schedule form.
type deviceCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[int64]deviceCacheEntry
}

type deviceCacheEntry struct {
	devices   []remote.Device
	expiresAt time.Time
}

func newDeviceCache(ttl time.Duration, maxEntries int, now func() time.Time) *deviceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 32
	}
	if now == nil {
		now = time.Now
	}
	return &deviceCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[int64]deviceCacheEntry),
	}
}

func (c *deviceCache) Get(houseID int64) ([]remote.Device, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[houseID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, houseID)
		c.mu.Unlock()
		return nil, false
	}
	return cloneDevices(entry.devices), true
}

func (c *deviceCache) Store(houseID int64, devices []remote.Device) {
	if c == nil {
		return
	}
	cloned := cloneDevices(devices)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if _, exists := c.entries[houseID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[houseID] = deviceCacheEntry{devices: cloned, expiresAt: expiry}
}

func (c *deviceCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[int64]deviceCacheEntry)
	c.mu.Unlock()
}

func (c *deviceCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *deviceCache) evictOldestLocked() {
	var (
		oldestKey int64
		oldest    time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func cloneDevices(devices []remote.Device) []remote.Device {
	if len(devices) == 0 {
		return nil
	}
	out := make([]remote.Device, len(devices))
	for i, device := range devices {
		out[i] = device
		out[i].AvailableCommands = append([]string(nil), device.AvailableCommands...)
	}
	return out
}
