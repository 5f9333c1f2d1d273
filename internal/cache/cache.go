package cache

import (
	"sync/atomic"
	"time"
)

// Cache is the read/write surface the HTTP layer programs against when it
// stores dashboard projections.
type Cache[T any] interface {
	// Get returns the cached value for key, if present and not expired.
	Get(key string) (T, bool)

	// Set stores data under key.
	Set(key string, data T)

	// Delete removes key.
	Delete(key string)

	// Size reports how many entries are currently held.
	Size() int
}

// Cleaner is implemented by caches whose expired entries need sweeping.
// CleanExpired returns how many entries it removed.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries out of every registered cache on a fixed
// interval and tallies how many it removed.
type Manager struct {
	caches      []Cleaner
	expired     atomic.Int64
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the sweep rotation. Not safe to call after
// StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup launches the background sweep loop.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

// Expired reports the total number of entries swept since the manager
// started.
func (m *Manager) Expired() int64 {
	return m.expired.Load()
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				m.expired.Add(int64(cache.CleanExpired()))
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
