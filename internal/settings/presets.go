package settings

import "errors"

// ErrUnknownPreset is returned for a preset id outside Presets.
var ErrUnknownPreset = errors.New("unknown style preset")

// Preset is a named chat stylesheet.
type Preset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	CSS  string `json:"css"`
}

// Presets offered by the styling screen. The minimal preset has no CSS and
// so restores the default look.
var Presets = []Preset{
	{
		ID:   "dark-glass",
		Name: "Dark Glass",
		CSS: `.chat-container { background-color: #000 !important; }
.chat-bubble-user { background: rgba(255, 255, 255, 0.2) !important; backdrop-filter: blur(10px); color: white !important; }
.chat-bubble-ai { background: rgba(255, 255, 255, 0.1) !important; backdrop-filter: blur(10px); color: white !important; }
.chat-input { background: rgba(255, 255, 255, 0.1) !important; color: white !important; }`,
	},
	{
		ID:   "dopamine",
		Name: "Dopamine",
		CSS: `.chat-container { background: linear-gradient(120deg, #a1c4fd 0%, #c2e9fb 100%) !important; }
.chat-bubble-user { background: linear-gradient(to right, #ffecd2 0%, #fcb69f 100%) !important; color: #444 !important; }
.chat-bubble-ai { background: white !important; color: #444 !important; }`,
	},
	{
		ID:   "minimal",
		Name: "Minimal",
		CSS:  "",
	},
}

// LookupPreset finds a preset by id.
func LookupPreset(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
