package domain

// IconType tells the shell how to render an app icon.
type IconType string

const (
	IconTypeLucide IconType = "lucide"
	IconTypeImage  IconType = "image"
)

// AppIcon is one entry of the home-screen catalog.
type AppIcon struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	IconType  IconType `json:"iconType"`
	IconValue string   `json:"iconValue"`
	Route     string   `json:"route"`
	IsSystem  bool     `json:"isSystem,omitempty"`
}

// OSState is the shell presentation state.
type OSState struct {
	Wallpaper     string            `json:"wallpaper"`
	CustomIcons   map[string]string `json:"customIcons"`
	FontURL       string            `json:"fontUrl"`
	FontFamily    string            `json:"fontFamily"`
	DesktopLayout []string          `json:"desktopLayout"`
	ShowStatusBar bool              `json:"showStatusBar"`
}

// AppState is the chat application state.
type AppState struct {
	UserProfile UserProfile   `json:"userProfile"`
	Contacts    []Contact     `json:"contacts"`
	Sessions    []ChatSession `json:"sessions"`
}

// FindContact returns the contact with the given id, or nil.
func (s *AppState) FindContact(id string) *Contact {
	for i := range s.Contacts {
		if s.Contacts[i].ID == id {
			return &s.Contacts[i]
		}
	}
	return nil
}

// FindSession returns the session with the given id, or nil.
func (s *AppState) FindSession(id string) *ChatSession {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}
