package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ashureev/pocketos/internal/domain"
)

// SnapshotStore loads and saves the named state blobs of a device.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, deviceID, name string) (*domain.Snapshot, error)
	PutSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// Notifier is told about every committed change.
type Notifier interface {
	Notify(deviceID, store, reason string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, string, string) {}

// Container owns one device's AppState and OSState. Every update runs under
// the container lock, is persisted, and only then becomes visible to readers.
type Container struct {
	deviceID string
	repo     SnapshotStore
	notifier Notifier

	mu  sync.RWMutex
	app domain.AppState
	os  domain.OSState
}

// Load builds a container from the stored snapshots of deviceID, upgrading
// old blobs and falling back to defaults for missing ones.
func Load(ctx context.Context, deviceID string, repo SnapshotStore, notifier Notifier) (*Container, error) {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	c := &Container{
		deviceID: deviceID,
		repo:     repo,
		notifier: notifier,
		app:      DefaultAppState(),
		os:       DefaultOSState(),
	}

	if err := c.loadBlob(ctx, AppChain, &c.app); err != nil {
		return nil, err
	}
	if err := c.loadBlob(ctx, OSChain, &c.os); err != nil {
		return nil, err
	}
	c.app = normalizeApp(c.app)
	c.os = normalizeOS(c.os)
	return c, nil
}

func (c *Container) loadBlob(ctx context.Context, chain Chain, out any) error {
	snap, err := c.repo.GetSnapshot(ctx, c.deviceID, chain.Name)
	if err != nil {
		return fmt.Errorf("load %s: %w", chain.Name, err)
	}
	if snap == nil {
		return nil
	}
	return chain.Decode(snap.Data, snap.Version, out)
}

// DeviceID returns the owning device.
func (c *Container) DeviceID() string {
	return c.deviceID
}

// App returns the current app state. Transitions never modify a state in
// place, so the returned value stays consistent after later updates.
func (c *Container) App() domain.AppState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.app
}

// OS returns the current shell state.
func (c *Container) OS() domain.OSState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.os
}

// UpdateApp applies fn to the current app state and commits the result.
// When fn or the save fails, the state is left as it was.
func (c *Container) UpdateApp(ctx context.Context, reason string, fn func(domain.AppState) (domain.AppState, error)) (domain.AppState, error) {
	c.mu.Lock()
	next, err := fn(c.app)
	if err != nil {
		prev := c.app
		c.mu.Unlock()
		return prev, err
	}
	if err := c.save(ctx, AppChain, next); err != nil {
		prev := c.app
		c.mu.Unlock()
		return prev, err
	}
	c.app = next
	c.mu.Unlock()

	c.notifier.Notify(c.deviceID, domain.AppSnapshot, reason)
	return next, nil
}

// UpdateOS applies fn to the current shell state and commits the result.
func (c *Container) UpdateOS(ctx context.Context, reason string, fn func(domain.OSState) domain.OSState) (domain.OSState, error) {
	c.mu.Lock()
	next := fn(c.os)
	if err := c.save(ctx, OSChain, next); err != nil {
		prev := c.os
		c.mu.Unlock()
		return prev, err
	}
	c.os = next
	c.mu.Unlock()

	c.notifier.Notify(c.deviceID, domain.OSSnapshot, reason)
	return next, nil
}

// Flush writes both blobs at the current version, upgrading anything that
// was loaded from an older one.
func (c *Container) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.save(ctx, AppChain, c.app); err != nil {
		return err
	}
	return c.save(ctx, OSChain, c.os)
}

func (c *Container) save(ctx context.Context, chain Chain, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", chain.Name, err)
	}
	err = c.repo.PutSnapshot(ctx, &domain.Snapshot{
		DeviceID: c.deviceID,
		Name:     chain.Name,
		Version:  chain.Version(),
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", chain.Name, err)
	}
	return nil
}

func normalizeApp(s domain.AppState) domain.AppState {
	if s.UserProfile.Masks == nil {
		s.UserProfile.Masks = []domain.UserMask{}
	}
	if s.UserProfile.ActiveMask() == nil {
		s.UserProfile.ActiveMaskID = nil
	}
	if s.Contacts == nil {
		s.Contacts = []domain.Contact{}
	}
	if s.Sessions == nil {
		s.Sessions = []domain.ChatSession{}
	}
	for i := range s.Contacts {
		if s.Contacts[i].ChatRules == nil {
			s.Contacts[i].ChatRules = []domain.ChatRule{}
		}
	}
	for i := range s.Sessions {
		if s.Sessions[i].Messages == nil {
			s.Sessions[i].Messages = []domain.Message{}
		}
	}
	return s
}

func normalizeOS(s domain.OSState) domain.OSState {
	if s.CustomIcons == nil {
		s.CustomIcons = map[string]string{}
	}
	if s.DesktopLayout == nil {
		s.DesktopLayout = DefaultOSState().DesktopLayout
	}
	return s
}
