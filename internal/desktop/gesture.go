package desktop

import "time"

// LongPressThreshold is how long a pointer must stay down on an icon before
// the desktop enters edit mode.
const LongPressThreshold = 500 * time.Millisecond

// TargetDock is the drop target reported when an icon is released over the dock.
const TargetDock = "dock"

// Mode is the input state of the desktop.
type Mode int

const (
	ModeIdle Mode = iota
	ModePressing
	ModeEditing
	ModeDragging
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePressing:
		return "pressing"
	case ModeEditing:
		return "editing"
	case ModeDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// ActionKind is what the shell should do after an input event.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionLaunch
	ActionEnterEdit
	ActionExitEdit
	ActionDrop
)

// Action is the outcome of feeding one event into a Gesture.
type Action struct {
	Kind     ActionKind
	AppID    string
	TargetID string
}

// Gesture is the desktop input state machine. It holds no timers of its own;
// the caller drives it with Tick so it stays deterministic.
type Gesture struct {
	threshold   time.Duration
	mode        Mode
	appID       string
	pressedAt   time.Time
	pointerDown bool
}

// NewGesture creates a gesture machine. A non-positive threshold uses
// LongPressThreshold.
func NewGesture(threshold time.Duration) *Gesture {
	if threshold <= 0 {
		threshold = LongPressThreshold
	}
	return &Gesture{threshold: threshold}
}

// Mode returns the current input mode.
func (g *Gesture) Mode() Mode {
	return g.mode
}

// Editing reports whether icons are in edit (wobble) mode.
func (g *Gesture) Editing() bool {
	return g.mode == ModeEditing || g.mode == ModeDragging
}

// PointerDown records a press on appID.
func (g *Gesture) PointerDown(appID string, now time.Time) Action {
	switch g.mode {
	case ModeIdle:
		g.mode = ModePressing
		g.appID = appID
		g.pressedAt = now
		g.pointerDown = true
	case ModeEditing:
		g.appID = appID
		g.pointerDown = true
	}
	return Action{}
}

// PointerMove cancels a pending long press or starts dragging in edit mode.
func (g *Gesture) PointerMove(now time.Time) Action {
	switch g.mode {
	case ModePressing:
		if now.Sub(g.pressedAt) >= g.threshold {
			g.enterEdit()
			g.mode = ModeDragging
			return Action{Kind: ActionEnterEdit, AppID: g.appID}
		}
		g.reset()
	case ModeEditing:
		if g.pointerDown {
			g.mode = ModeDragging
		}
	}
	return Action{}
}

// PointerUp ends a press. targetID is the icon under the pointer, TargetDock
// for the dock, or empty for nothing.
func (g *Gesture) PointerUp(targetID string, now time.Time) Action {
	switch g.mode {
	case ModePressing:
		if now.Sub(g.pressedAt) >= g.threshold {
			g.enterEdit()
			g.pointerDown = false
			return Action{Kind: ActionEnterEdit, AppID: g.appID}
		}
		app := g.appID
		g.reset()
		return Action{Kind: ActionLaunch, AppID: app}
	case ModeEditing:
		g.pointerDown = false
	case ModeDragging:
		dragged := g.appID
		g.mode = ModeEditing
		g.pointerDown = false
		return Action{Kind: ActionDrop, AppID: dragged, TargetID: targetID}
	}
	return Action{}
}

// Tick advances time. It enters edit mode once a press has been held past
// the threshold.
func (g *Gesture) Tick(now time.Time) Action {
	if g.mode == ModePressing && now.Sub(g.pressedAt) >= g.threshold {
		g.enterEdit()
		return Action{Kind: ActionEnterEdit, AppID: g.appID}
	}
	return Action{}
}

// TapOutside exits edit mode.
func (g *Gesture) TapOutside() Action {
	switch g.mode {
	case ModeEditing, ModeDragging:
		g.reset()
		return Action{Kind: ActionExitEdit}
	case ModePressing:
		g.reset()
	}
	return Action{}
}

func (g *Gesture) enterEdit() {
	g.mode = ModeEditing
}

func (g *Gesture) reset() {
	g.mode = ModeIdle
	g.appID = ""
	g.pressedAt = time.Time{}
	g.pointerDown = false
}

// ApplyDrop applies a drop action to order. Drops on the dock, on nothing or
// on the dragged icon itself leave the order unchanged.
func ApplyDrop(order []string, a Action) ([]string, bool) {
	if a.Kind != ActionDrop || a.TargetID == "" || a.TargetID == TargetDock {
		return order, false
	}
	return Reorder(order, a.AppID, a.TargetID)
}
