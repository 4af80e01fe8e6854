// Package domain contains core domain types for pocketos.
package domain

import (
	"time"
)

// Device is one browser that owns its own private copy of the stores.
type Device struct {
	DeviceID   string    `json:"device_id"`
	Label      string    `json:"label"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsStale returns true if the device has not been seen within ttl.
func (d *Device) IsStale(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(d.LastSeenAt) > ttl
}

// Snapshot is one named, versioned state blob belonging to a device.
type Snapshot struct {
	DeviceID  string
	Name      string
	Version   int
	Data      []byte
	UpdatedAt time.Time
}

// Snapshot names.
const (
	AppSnapshot = "app-storage"
	OSSnapshot  = "os-storage"
)

// NowMillis returns the current time as Unix milliseconds, the timestamp unit
// used by messages and sessions on the wire.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
