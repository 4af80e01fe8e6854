package state

import (
	"context"
	"sync"
	"time"
)

type registryEntry struct {
	container *Container
	lastUsed  time.Time
}

// Registry hands out one Container per device, loading it on first use.
type Registry struct {
	repo     SnapshotStore
	notifier Notifier
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry creates an empty registry backed by repo.
func NewRegistry(repo SnapshotStore, notifier Notifier) *Registry {
	return &Registry{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		entries:  make(map[string]*registryEntry),
	}
}

// Get returns the container for deviceID, loading it if needed.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[deviceID]; ok {
		e.lastUsed = r.now()
		return e.container, nil
	}

	c, err := Load(ctx, deviceID, r.repo, r.notifier)
	if err != nil {
		return nil, err
	}
	r.entries[deviceID] = &registryEntry{container: c, lastUsed: r.now()}
	return c, nil
}

// Evict drops the cached container for deviceID. The next Get reloads it.
func (r *Registry) Evict(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, deviceID)
}

// EvictIdle drops containers unused for longer than maxIdle and returns how
// many were dropped. Their state is already persisted.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	n := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of cached containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
