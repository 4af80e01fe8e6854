package domain

// DefaultMemoryDepth is used when a contact has no positive memory depth.
const DefaultMemoryDepth = 10

// ChatRule is one numbered instruction appended to a contact's persona.
type ChatRule struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Contact is an assistant persona the user can chat with.
type Contact struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Nickname     string     `json:"nickname,omitempty"`
	Avatar       string     `json:"avatar"`
	SystemPrompt string     `json:"systemPrompt"`
	Bio          string     `json:"bio,omitempty"`
	MemoryDepth  int        `json:"memoryDepth"`
	ChatRules    []ChatRule `json:"chatRules"`
}

// DisplayName returns the nickname if set, otherwise the name.
func (c *Contact) DisplayName() string {
	if c.Nickname != "" {
		return c.Nickname
	}
	return c.Name
}

// EffectiveMemoryDepth returns MemoryDepth, or DefaultMemoryDepth when unset.
func (c *Contact) EffectiveMemoryDepth() int {
	if c.MemoryDepth <= 0 {
		return DefaultMemoryDepth
	}
	return c.MemoryDepth
}
