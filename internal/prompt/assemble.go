// Package prompt turns a contact, a session and the user's profile into the
// message list sent to the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/llm"
)

// ErrSessionNotFound is returned when the session or its contact is missing.
var ErrSessionNotFound = domain.ErrSessionNotFound

// DefaultPersona is used when neither the contact nor the device supplies one.
const DefaultPersona = domain.DefaultPersona

const rulesHeader = "\n\n[Chat Rules]\nFollow these rules strictly:\n"

// Options carries device-level fallbacks.
type Options struct {
	// SystemPrompt replaces a blank contact persona.
	SystemPrompt string
}

// Assemble builds [system, history..., user] for the next request.
// History is the last memoryDepth messages of the session as it stands, so
// callers must assemble before appending userText. Nothing passed in is modified.
func Assemble(contact *domain.Contact, session *domain.ChatSession, profile domain.UserProfile, userText string, opts Options) ([]llm.Message, error) {
	if contact == nil || session == nil {
		return nil, ErrSessionNotFound
	}

	history := session.RecentMessages(contact.EffectiveMemoryDepth())
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, llm.Message{Role: string(domain.RoleSystem), Content: SystemText(contact, profile, opts)})
	for _, m := range history {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	out = append(out, llm.Message{Role: string(domain.RoleUser), Content: userText})
	return out, nil
}

// SystemText renders the persona, rules and mask blocks into one string.
func SystemText(contact *domain.Contact, profile domain.UserProfile, opts Options) string {
	var b strings.Builder
	b.WriteString(persona(contact, opts))

	if len(contact.ChatRules) > 0 {
		b.WriteString(rulesHeader)
		for i, rule := range contact.ChatRules {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rule.Content)
		}
	}

	if mask := profile.ActiveMask(); mask != nil {
		fmt.Fprintf(&b, "\n\n[User Identity]\nThe user you are talking to is: %s\nUser description: %s\nTailor your replies to this identity.",
			mask.Name, mask.Description)
	}
	return b.String()
}

func persona(contact *domain.Contact, opts Options) string {
	if strings.TrimSpace(contact.SystemPrompt) != "" {
		return contact.SystemPrompt
	}
	if strings.TrimSpace(opts.SystemPrompt) != "" {
		return opts.SystemPrompt
	}
	return DefaultPersona
}
