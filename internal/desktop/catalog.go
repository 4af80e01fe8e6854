// Package desktop implements the home-screen model: the fixed app catalog,
// the icon registry, layout ordering and the long-press editing gestures.
package desktop

import (
	"github.com/ashureev/pocketos/internal/domain"
)

// App ids in the static catalog.
const (
	AppChat     = "chat"
	AppTheme    = "theme"
	AppSettings = "settings"
)

// DefaultApps is the static app catalog in its factory order.
var DefaultApps = []domain.AppIcon{
	{ID: AppChat, Name: "Chat", IconType: domain.IconTypeLucide, IconValue: string(IconMessageSquare), Route: RouteChats, IsSystem: true},
	{ID: AppTheme, Name: "Theme", IconType: domain.IconTypeLucide, IconValue: string(IconPalette), Route: RouteTheme, IsSystem: true},
	{ID: AppSettings, Name: "Settings", IconType: domain.IconTypeLucide, IconValue: string(IconSettings), Route: RouteSettings},
}

// DefaultLayout returns the factory desktop order.
func DefaultLayout() []string {
	out := make([]string, len(DefaultApps))
	for i, app := range DefaultApps {
		out[i] = app.ID
	}
	return out
}

// LookupApp returns the catalog entry for id.
func LookupApp(id string) (domain.AppIcon, bool) {
	for _, app := range DefaultApps {
		if app.ID == id {
			return app, true
		}
	}
	return domain.AppIcon{}, false
}
