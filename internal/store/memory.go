package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/pocketos/internal/domain"
)

// MemoryStore is a Repository kept entirely in process memory. It backs
// tests and servers started with DB_PATH=memory.
type MemoryStore struct {
	mu        sync.Mutex
	devices   map[string]domain.Device
	snapshots map[string]map[string]domain.Snapshot
	settings  map[string]map[string]string

	// PutSnapshotErr, when set, is returned by PutSnapshot.
	PutSnapshotErr error
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		devices:   make(map[string]domain.Device),
		snapshots: make(map[string]map[string]domain.Snapshot),
		settings:  make(map[string]map[string]string),
	}
}

func (m *MemoryStore) GetDevice(_ context.Context, deviceID string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *MemoryStore) UpsertDevice(_ context.Context, d *domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.devices[d.DeviceID]; ok {
		prev.Label = d.Label
		prev.LastSeenAt = d.LastSeenAt
		prev.UpdatedAt = d.UpdatedAt
		m.devices[d.DeviceID] = prev
		return nil
	}
	m.devices[d.DeviceID] = *d
	return nil
}

func (m *MemoryStore) UpdateLastSeen(_ context.Context, deviceID string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	d.LastSeenAt = lastSeen
	d.UpdatedAt = time.Now()
	m.devices[deviceID] = d
	return nil
}

func (m *MemoryStore) GetStaleDevices(_ context.Context, ttl time.Duration) ([]*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []*domain.Device
	for _, d := range m.devices {
		if d.IsStale(ttl, now) {
			out = append(out, &d)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListDevices(context.Context) ([]*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].LastSeenAt.After(out[j].LastSeenAt)
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out, nil
}

func (m *MemoryStore) DeleteDevice(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, deviceID)
	delete(m.snapshots, deviceID)
	delete(m.settings, deviceID)
	return nil
}

func (m *MemoryStore) GetSnapshot(_ context.Context, deviceID, name string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[deviceID][name]
	if !ok {
		return nil, nil
	}
	snap.Data = append([]byte(nil), snap.Data...)
	return &snap, nil
}

func (m *MemoryStore) PutSnapshot(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutSnapshotErr != nil {
		return m.PutSnapshotErr
	}
	if m.snapshots[snap.DeviceID] == nil {
		m.snapshots[snap.DeviceID] = make(map[string]domain.Snapshot)
	}
	stored := *snap
	stored.Data = append([]byte(nil), snap.Data...)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}
	m.snapshots[snap.DeviceID][snap.Name] = stored
	return nil
}

func (m *MemoryStore) ListSettings(_ context.Context, deviceID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := maps.Clone(m.settings[deviceID])
	if out == nil {
		out = make(map[string]string)
	}
	return out, nil
}

func (m *MemoryStore) PutSetting(_ context.Context, deviceID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings[deviceID] == nil {
		m.settings[deviceID] = make(map[string]string)
	}
	m.settings[deviceID][key] = value
	return nil
}

func (m *MemoryStore) DeleteSetting(_ context.Context, deviceID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings[deviceID], key)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
