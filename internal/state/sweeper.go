package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/pocketos/internal/domain"
)

// DeviceStore is the slice of the repository the sweeper needs.
type DeviceStore interface {
	GetStaleDevices(ctx context.Context, ttl time.Duration) ([]*domain.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error
}

// CleanupCallback is called after a stale device has been removed.
type CleanupCallback func(deviceID string)

// Sweeper periodically deletes devices that have not been seen within the
// TTL and trims idle containers from the registry.
type Sweeper struct {
	repo      DeviceStore
	registry  *Registry
	interval  time.Duration
	ttl       time.Duration
	onCleanup CleanupCallback
}

// NewSweeper creates a Sweeper. A zero ttl disables device deletion but
// still trims idle containers.
func NewSweeper(repo DeviceStore, registry *Registry, interval, ttl time.Duration, onCleanup CleanupCallback) *Sweeper {
	return &Sweeper{
		repo:      repo,
		registry:  registry,
		interval:  interval,
		ttl:       ttl,
		onCleanup: onCleanup,
	}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("Device sweeper started", "interval", s.interval, "ttl", s.ttl)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			slog.Info("Device sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep performs one pass and returns the number of devices removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if evicted := s.registry.EvictIdle(s.interval); evicted > 0 {
		slog.Debug("Device sweeper evicted idle containers", "count", evicted)
	}
	if s.ttl <= 0 {
		return 0
	}

	stale, err := s.repo.GetStaleDevices(ctx, s.ttl)
	if err != nil {
		slog.Error("Device sweeper failed to list stale devices", "error", err)
		return 0
	}
	if len(stale) == 0 {
		return 0
	}

	slog.Info("Device sweeper found stale devices", "count", len(stale))
	removed := 0
	for _, d := range stale {
		s.registry.Evict(d.DeviceID)
		if err := s.repo.DeleteDevice(ctx, d.DeviceID); err != nil {
			if ctx.Err() != nil {
				slog.Debug("Device sweeper canceled mid-pass", "device_id", d.DeviceID)
				return removed
			}
			slog.Warn("Device sweeper failed to delete device", "error", err, "device_id", d.DeviceID)
			continue
		}
		if s.onCleanup != nil {
			s.onCleanup(d.DeviceID)
		}
		removed++
	}
	slog.Info("Device sweeper cleanup completed", "removed", removed)
	return removed
}
