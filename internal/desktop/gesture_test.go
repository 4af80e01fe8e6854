package desktop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestGestureShortTapLaunches(t *testing.T) {
	g := NewGesture(0)
	g.PointerDown(AppChat, t0)
	assert.Equal(t, ModePressing, g.Mode())

	a := g.PointerUp(AppChat, t0.Add(100*time.Millisecond))
	assert.Equal(t, Action{Kind: ActionLaunch, AppID: AppChat}, a)
	assert.Equal(t, ModeIdle, g.Mode())
}

func TestGestureLongPressEntersEdit(t *testing.T) {
	g := NewGesture(0)
	g.PointerDown(AppChat, t0)

	assert.Equal(t, ActionNone, g.Tick(t0.Add(499*time.Millisecond)).Kind)
	a := g.Tick(t0.Add(LongPressThreshold))
	assert.Equal(t, ActionEnterEdit, a.Kind)
	assert.True(t, g.Editing())

	// Releasing after entering edit mode never launches.
	assert.Equal(t, ActionNone, g.PointerUp(AppChat, t0.Add(time.Second)).Kind)
	assert.Equal(t, ModeEditing, g.Mode())
}

func TestGestureMoveBeforeThresholdCancels(t *testing.T) {
	g := NewGesture(0)
	g.PointerDown(AppChat, t0)
	g.PointerMove(t0.Add(200 * time.Millisecond))
	assert.Equal(t, ModeIdle, g.Mode())
	assert.Equal(t, ActionNone, g.Tick(t0.Add(time.Second)).Kind)
}

func TestGestureDragAndDrop(t *testing.T) {
	g := NewGesture(0)
	g.PointerDown(AppChat, t0)
	g.Tick(t0.Add(LongPressThreshold))

	g.PointerMove(t0.Add(600 * time.Millisecond))
	assert.Equal(t, ModeDragging, g.Mode())

	a := g.PointerUp(AppSettings, t0.Add(700*time.Millisecond))
	assert.Equal(t, Action{Kind: ActionDrop, AppID: AppChat, TargetID: AppSettings}, a)
	assert.Equal(t, ModeEditing, g.Mode())

	order, ok := ApplyDrop(DefaultLayout(), a)
	assert.True(t, ok)
	assert.Equal(t, []string{AppTheme, AppSettings, AppChat}, order)
}

func TestGestureDropOnDockKeepsOrder(t *testing.T) {
	order, ok := ApplyDrop(DefaultLayout(), Action{Kind: ActionDrop, AppID: AppChat, TargetID: TargetDock})
	assert.False(t, ok)
	assert.Equal(t, DefaultLayout(), order)
}

func TestGestureTapOutsideExitsEdit(t *testing.T) {
	g := NewGesture(0)
	g.PointerDown(AppTheme, t0)
	g.Tick(t0.Add(time.Second))
	g.PointerUp(AppTheme, t0.Add(time.Second))

	assert.Equal(t, ActionExitEdit, g.TapOutside().Kind)
	assert.Equal(t, ModeIdle, g.Mode())
	assert.Equal(t, ActionNone, g.TapOutside().Kind)
}

func TestGestureTapInEditModeDoesNotLaunch(t *testing.T) {
	g := NewGesture(0)
	g.PointerDown(AppTheme, t0)
	g.Tick(t0.Add(time.Second))
	g.PointerUp(AppTheme, t0.Add(time.Second))

	g.PointerDown(AppChat, t0.Add(2*time.Second))
	a := g.PointerUp(AppChat, t0.Add(2100*time.Millisecond))
	assert.Equal(t, ActionNone, a.Kind)
	assert.True(t, g.Editing())
}
