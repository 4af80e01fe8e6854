package desktop

import "github.com/ashureev/pocketos/internal/domain"

// IconID names a built-in glyph the shell knows how to draw.
type IconID string

const (
	IconMessageSquare IconID = "MessageSquare"
	IconPalette       IconID = "Palette"
	IconSettings      IconID = "Settings"
	IconWallet        IconID = "Wallet"
	IconUsers         IconID = "Users"
	IconCompass       IconID = "Compass"
	IconUser          IconID = "User"
	IconHelpCircle    IconID = "HelpCircle"
)

// FallbackIcon is rendered for any name not in the registry.
const FallbackIcon = IconHelpCircle

var iconRegistry = map[IconID]struct{}{
	IconMessageSquare: {},
	IconPalette:       {},
	IconSettings:      {},
	IconWallet:        {},
	IconUsers:         {},
	IconCompass:       {},
	IconUser:          {},
	IconHelpCircle:    {},
}

// ResolveIcon maps a stored icon name onto the registry.
func ResolveIcon(name string) IconID {
	id := IconID(name)
	if _, ok := iconRegistry[id]; ok {
		return id
	}
	return FallbackIcon
}

// RenderedIcon is the resolved presentation of one desktop entry.
type RenderedIcon struct {
	domain.AppIcon
	Glyph    IconID `json:"glyph"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Render resolves app against the registry and the user's custom icon overrides.
// A custom image always wins over the built-in glyph.
func Render(app domain.AppIcon, customIcons map[string]string) RenderedIcon {
	out := RenderedIcon{AppIcon: app, Glyph: FallbackIcon}
	switch app.IconType {
	case domain.IconTypeImage:
		out.ImageURL = app.IconValue
	default:
		out.Glyph = ResolveIcon(app.IconValue)
	}
	if url := customIcons[app.ID]; url != "" {
		out.ImageURL = url
	}
	return out
}
