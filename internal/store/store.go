// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/pocketos/internal/domain"
)

// Repository defines the interface for persisting devices, their state
// snapshots and their local settings.
type Repository interface {
	// GetDevice retrieves a device by id. It returns nil, nil when absent.
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)

	// UpsertDevice creates or updates a device record.
	UpsertDevice(ctx context.Context, device *domain.Device) error

	// UpdateLastSeen updates the last_seen_at timestamp for a device.
	UpdateLastSeen(ctx context.Context, deviceID string, lastSeen time.Time) error

	// GetStaleDevices retrieves devices not seen within ttl.
	GetStaleDevices(ctx context.Context, ttl time.Duration) ([]*domain.Device, error)

	// ListDevices returns every device, most recently seen first.
	ListDevices(ctx context.Context) ([]*domain.Device, error)

	// DeleteDevice removes a device together with its snapshots and settings.
	DeleteDevice(ctx context.Context, deviceID string) error

	// GetSnapshot retrieves a named snapshot. It returns nil, nil when absent.
	GetSnapshot(ctx context.Context, deviceID, name string) (*domain.Snapshot, error)

	// PutSnapshot creates or replaces a named snapshot.
	PutSnapshot(ctx context.Context, snap *domain.Snapshot) error

	// ListSettings returns every setting stored for a device.
	ListSettings(ctx context.Context, deviceID string) (map[string]string, error)

	// PutSetting stores one setting value.
	PutSetting(ctx context.Context, deviceID, key, value string) error

	// DeleteSetting removes one setting. Removing a missing key is not an error.
	DeleteSetting(ctx context.Context, deviceID, key string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
