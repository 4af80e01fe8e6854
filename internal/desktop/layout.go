package desktop

import (
	"slices"

	"github.com/ashureev/pocketos/internal/domain"
)

// DisplayOrder computes the icons shown on the home screen from the stored
// layout. Ids no longer in the catalog are dropped and catalog apps missing
// from the layout are appended in catalog order.
func DisplayOrder(layout []string) []domain.AppIcon {
	apps := make([]domain.AppIcon, 0, len(DefaultApps))
	seen := make(map[string]bool, len(layout))
	for _, id := range layout {
		if seen[id] {
			continue
		}
		app, ok := LookupApp(id)
		if !ok {
			continue
		}
		seen[id] = true
		apps = append(apps, app)
	}
	for _, app := range DefaultApps {
		if !seen[app.ID] {
			apps = append(apps, app)
		}
	}
	return apps
}

// RenderDesktop resolves the display order into drawable icons.
func RenderDesktop(state domain.OSState) []RenderedIcon {
	apps := DisplayOrder(state.DesktopLayout)
	out := make([]RenderedIcon, len(apps))
	for i, app := range apps {
		out[i] = Render(app, state.CustomIcons)
	}
	return out
}

// Reorder moves draggedID to the position of targetID and returns the new id
// order. It returns ok=false, leaving the order untouched, when either id is
// unknown or both are the same.
func Reorder(order []string, draggedID, targetID string) ([]string, bool) {
	if draggedID == targetID {
		return order, false
	}
	from := slices.Index(order, draggedID)
	to := slices.Index(order, targetID)
	if from < 0 || to < 0 {
		return order, false
	}
	out := slices.Clone(order)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	return out, true
}

// IDs returns the ids of apps in order.
func IDs(apps []domain.AppIcon) []string {
	out := make([]string, len(apps))
	for i, app := range apps {
		out[i] = app.ID
	}
	return out
}
