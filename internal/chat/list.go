package chat

import (
	"fmt"
	"time"

	"github.com/ashureev/pocketos/internal/domain"
)

// ListItem is one row of the chat list.
type ListItem struct {
	SessionID     string `json:"sessionId"`
	ContactID     string `json:"contactId"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	Preview       string `json:"preview"`
	Time          string `json:"time"`
	LastTimestamp int64  `json:"lastTimestamp"`
	UnreadCount   int    `json:"unreadCount"`
}

// BuildList renders the sessions of s in stored order. Sessions whose
// contact was deleted are skipped.
func BuildList(s domain.AppState, now time.Time) []ListItem {
	items := make([]ListItem, 0, len(s.Sessions))
	for _, sess := range s.Sessions {
		c := s.FindContact(sess.ContactID)
		if c == nil {
			continue
		}
		preview := sess.LastMessage
		if preview == "" {
			preview = c.SystemPrompt
		}
		items = append(items, ListItem{
			SessionID:     sess.ID,
			ContactID:     c.ID,
			Name:          c.DisplayName(),
			Avatar:        c.Avatar,
			Preview:       preview,
			Time:          DisplayTime(sess.LastTimestamp, now),
			LastTimestamp: sess.LastTimestamp,
			UnreadCount:   sess.UnreadCount,
		})
	}
	return items
}

// DisplayTime formats a millisecond timestamp as HH:MM when it falls on the
// same calendar day as now, otherwise as M/D. now's location is used.
func DisplayTime(ts int64, now time.Time) string {
	t := time.UnixMilli(ts).In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}
	return fmt.Sprintf("%d/%d", int(tm), td)
}
