// Package seed imports contact rosters from YAML files.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/state"
)

// File is the top-level document of a roster file.
//
//	contacts:
//	  - name: Luna
//	    system_prompt: You are a night-owl poet.
//	    memory_depth: 6
//	    chat_rules:
//	      - Answer in verse.
type File struct {
	Contacts []state.ContactDraft `yaml:"contacts"`
}

// Parse decodes a roster. Unknown keys and contacts without a name are errors.
func Parse(r io.Reader) ([]state.ContactDraft, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	for i, c := range f.Contacts {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("contact %d: %w", i+1, state.ErrNameRequired)
		}
	}
	return f.Contacts, nil
}

// Import adds every draft to the container in one update and returns the
// new contact ids. Nothing is added if any draft is rejected.
func Import(ctx context.Context, c *state.Container, r *state.Reducer, drafts []state.ContactDraft) ([]string, error) {
	ids := make([]string, 0, len(drafts))
	_, err := c.UpdateApp(ctx, "import_contacts", func(s domain.AppState) (domain.AppState, error) {
		for i, d := range drafts {
			var id string
			var err error
			s, id, err = r.AddContact(s, d)
			if err != nil {
				return s, fmt.Errorf("contact %d: %w", i+1, err)
			}
			ids = append(ids, id)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Export renders the contacts of s as a roster file.
func Export(w io.Writer, s domain.AppState) error {
	f := File{Contacts: make([]state.ContactDraft, 0, len(s.Contacts))}
	for _, c := range s.Contacts {
		rules := make([]string, len(c.ChatRules))
		for i, rule := range c.ChatRules {
			rules[i] = rule.Content
		}
		f.Contacts = append(f.Contacts, state.ContactDraft{
			Name:         c.Name,
			Nickname:     c.Nickname,
			Avatar:       c.Avatar,
			SystemPrompt: c.SystemPrompt,
			Bio:          c.Bio,
			MemoryDepth:  c.MemoryDepth,
			ChatRules:    rules,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	return enc.Close()
}
