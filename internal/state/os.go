package state

import (
	"maps"
	"slices"

	"github.com/ashureev/pocketos/internal/desktop"
	"github.com/ashureev/pocketos/internal/domain"
)

// DefaultWallpaper is the wallpaper shown until the user picks another one.
const DefaultWallpaper = "https://images.unsplash.com/photo-1695514675039-4172f8832573?q=80&w=2564&auto=format&fit=crop"

// DefaultOSState returns the shell state of a fresh device.
func DefaultOSState() domain.OSState {
	return domain.OSState{
		Wallpaper:     DefaultWallpaper,
		CustomIcons:   map[string]string{},
		DesktopLayout: desktop.DefaultLayout(),
		ShowStatusBar: true,
	}
}

// SetWallpaper replaces the wallpaper. An empty url restores the default.
func (r *Reducer) SetWallpaper(s domain.OSState, url string) domain.OSState {
	if url == "" {
		url = DefaultWallpaper
	}
	s.Wallpaper = url
	return s
}

// SetCustomIcon overrides the icon for appID with an image url.
// An empty url removes the override.
func (r *Reducer) SetCustomIcon(s domain.OSState, appID, url string) domain.OSState {
	icons := maps.Clone(s.CustomIcons)
	if icons == nil {
		icons = map[string]string{}
	}
	if url == "" {
		delete(icons, appID)
	} else {
		icons[appID] = url
	}
	s.CustomIcons = icons
	return s
}

// ResetIcons drops every icon override.
func (r *Reducer) ResetIcons(s domain.OSState) domain.OSState {
	s.CustomIcons = map[string]string{}
	return s
}

// SetFont sets the web font url and family used by the shell.
func (r *Reducer) SetFont(s domain.OSState, url, family string) domain.OSState {
	s.FontURL = url
	s.FontFamily = family
	return s
}

// UpdateDesktopLayout stores the user's icon order verbatim. Reading code
// heals unknown or missing ids, so nothing is validated here.
func (r *Reducer) UpdateDesktopLayout(s domain.OSState, order []string) domain.OSState {
	s.DesktopLayout = slices.Clone(order)
	return s
}

// ToggleStatusBar shows or hides the status bar.
func (r *Reducer) ToggleStatusBar(s domain.OSState, show bool) domain.OSState {
	s.ShowStatusBar = show
	return s
}

// ResetLayout restores the catalog order.
func (r *Reducer) ResetLayout(s domain.OSState) domain.OSState {
	s.DesktopLayout = desktop.DefaultLayout()
	return s
}

// ResetTheme returns the shell to a fresh device's look, including the
// icon order and the status bar.
func (r *Reducer) ResetTheme(domain.OSState) domain.OSState {
	return DefaultOSState()
}
