package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(deviceID, storeName, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, deviceID+"/"+storeName+"/"+reason)
}

func TestLoadDefaultsOnEmptyStore(t *testing.T) {
	c, err := Load(context.Background(), "anon_a", store.NewMemory(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAppState(), c.App())
	assert.Equal(t, DefaultOSState(), c.OS())
}

func TestUpdatePersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	n := &recordingNotifier{}
	r := fixedReducer()

	c, err := Load(ctx, "anon_a", repo, n)
	require.NoError(t, err)

	_, err = c.UpdateApp(ctx, "add_mask", func(s domain.AppState) (domain.AppState, error) {
		s, _ = r.AddUserMask(s, "Night", "")
		return s, nil
	})
	require.NoError(t, err)
	_, err = c.UpdateOS(ctx, "status_bar", func(s domain.OSState) domain.OSState {
		return r.ToggleStatusBar(s, false)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"anon_a/app-storage/add_mask", "anon_a/os-storage/status_bar"}, n.events)

	snap, err := repo.GetSnapshot(ctx, "anon_a", domain.AppSnapshot)
	require.NoError(t, err)
	assert.Equal(t, AppChain.Version(), snap.Version)

	reloaded, err := Load(ctx, "anon_a", repo, nil)
	require.NoError(t, err)
	assert.Len(t, reloaded.App().UserProfile.Masks, 1)
	assert.False(t, reloaded.OS().ShowStatusBar)
}

func TestUpdateDoesNotCommitOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	r := fixedReducer()
	c, err := Load(ctx, "anon_a", repo, nil)
	require.NoError(t, err)

	repo.PutSnapshotErr = errors.New("disk full")
	_, err = c.UpdateApp(ctx, "add_session", func(s domain.AppState) (domain.AppState, error) {
		s, _ = r.CreateSession(s, "default-ai")
		return s, nil
	})
	require.Error(t, err)
	assert.Empty(t, c.App().Sessions)
}

func TestUpdateReturnsReducerError(t *testing.T) {
	ctx := context.Background()
	r := fixedReducer()
	c, err := Load(ctx, "anon_a", store.NewMemory(), nil)
	require.NoError(t, err)

	_, err = c.UpdateApp(ctx, "add_message", func(s domain.AppState) (domain.AppState, error) {
		return r.AddMessage(s, "missing", domain.RoleUser, "hi")
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	ctx := context.Background()
	r := NewReducer()
	c, err := Load(ctx, "anon_a", store.NewMemory(), nil)
	require.NoError(t, err)

	var sessionID string
	_, err = c.UpdateApp(ctx, "create", func(s domain.AppState) (domain.AppState, error) {
		s, sessionID = r.GetOrCreateSession(s, "default-ai")
		return s, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.UpdateApp(ctx, "add_message", func(s domain.AppState) (domain.AppState, error) {
				return r.AddMessage(s, sessionID, domain.RoleAssistant, "reply")
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	app := c.App()
	assert.Len(t, app.FindSession(sessionID).Messages, 20)
}

func TestLoadHealsDanglingActiveMask(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.PutSnapshot(ctx, &domain.Snapshot{
		DeviceID: "anon_a",
		Name:     domain.AppSnapshot,
		Version:  AppChain.Version(),
		Data:     []byte(`{"userProfile": {"masks": [], "activeMaskId": "gone"}}`),
	}))

	c, err := Load(ctx, "anon_a", repo, nil)
	require.NoError(t, err)
	assert.Nil(t, c.App().UserProfile.ActiveMaskID)
	assert.Len(t, c.App().Contacts, 1, "missing contacts fall back to the seeded roster")
}

func TestRegistryCachesAndEvicts(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(store.NewMemory(), nil)
	clock := time.Unix(1000, 0)
	reg.now = func() time.Time { return clock }

	a1, err := reg.Get(ctx, "anon_a")
	require.NoError(t, err)
	a2, err := reg.Get(ctx, "anon_a")
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	_, err = reg.Get(ctx, "anon_b")
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)
	_, err = reg.Get(ctx, "anon_b")
	require.NoError(t, err)

	assert.Equal(t, 1, reg.EvictIdle(time.Hour))
	assert.Equal(t, 1, reg.Len())

	reg.Evict("anon_b")
	assert.Zero(t, reg.Len())
}

func TestSweeperRemovesStaleDevices(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	now := time.Now()
	require.NoError(t, repo.UpsertDevice(ctx, &domain.Device{DeviceID: "anon_old", LastSeenAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.UpsertDevice(ctx, &domain.Device{DeviceID: "anon_new", LastSeenAt: now}))

	reg := NewRegistry(repo, nil)
	_, err := reg.Get(ctx, "anon_old")
	require.NoError(t, err)

	var cleaned []string
	sw := NewSweeper(repo, reg, time.Hour, 24*time.Hour, func(id string) { cleaned = append(cleaned, id) })

	assert.Equal(t, 1, sw.Sweep(ctx))
	assert.Equal(t, []string{"anon_old"}, cleaned)
	assert.Zero(t, reg.Len())

	d, err := repo.GetDevice(ctx, "anon_new")
	require.NoError(t, err)
	assert.NotNil(t, d)
}
