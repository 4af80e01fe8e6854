package domain

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single chat entry. Messages are never mutated once appended.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ChatSession is the conversation with one contact.
type ChatSession struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contactId"`
	Messages      []Message `json:"messages"`
	LastMessage   string    `json:"lastMessage"`
	LastTimestamp int64     `json:"lastTimestamp"`
	UnreadCount   int       `json:"unreadCount"`
}

// RecentMessages returns the last n messages from history.
// The returned slice is a copy; callers may not alter stored history through it.
func (s *ChatSession) RecentMessages(n int) []Message {
	if n <= 0 {
		return nil
	}
	start := 0
	if n < len(s.Messages) {
		start = len(s.Messages) - n
	}
	out := make([]Message, len(s.Messages)-start)
	copy(out, s.Messages[start:])
	return out
}
