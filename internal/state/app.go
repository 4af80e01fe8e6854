// Package state holds the application-state container and the named,
// total transition functions that are the only way its contents change.
//
// Every transition takes the current state and returns the next one without
// modifying its input, so earlier snapshots stay valid after a mutation.
package state

import (
	"errors"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ashureev/pocketos/internal/domain"
)

var (
	ErrSessionNotFound   = domain.ErrSessionNotFound
	ErrContactNotFound   = errors.New("contact not found")
	ErrMaskNotFound      = errors.New("mask not found")
	ErrNameRequired      = errors.New("name is required")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimals")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidRole       = errors.New("invalid message role")
)

// DefaultPersona is the fallback assistant persona.
const DefaultPersona = domain.DefaultPersona

// AvatarColors is the palette offered when creating a contact.
var AvatarColors = []string{
	"#007aff", "#ff3b30", "#4cd964", "#ffcc00", "#5856d6", "#ff9500", "#8e8e93", "#ff2d55",
}

// Reducer carries the id and clock sources used by transitions.
type Reducer struct {
	NewID func() string
	Now   func() int64
}

// NewReducer returns a Reducer backed by random UUIDs and the wall clock.
func NewReducer() *Reducer {
	return &Reducer{
		NewID: func() string { return uuid.New().String() },
		Now:   domain.NowMillis,
	}
}

// DefaultAppState returns the state of a device that has never saved anything.
func DefaultAppState() domain.AppState {
	return domain.AppState{
		UserProfile: domain.UserProfile{
			Name:     "User",
			WechatID: "ai_user_001",
			Balance:  8888.88,
			Masks:    []domain.UserMask{},
		},
		Contacts: []domain.Contact{
			{
				ID:           "default-ai",
				Name:         "AI Assistant",
				Nickname:     "Assistant",
				Avatar:       AvatarColors[0],
				SystemPrompt: DefaultPersona,
				Bio:          "The default assistant",
				MemoryDepth:  domain.DefaultMemoryDepth,
				ChatRules:    []domain.ChatRule{},
			},
		},
		Sessions: []domain.ChatSession{},
	}
}

// ProfilePatch holds the profile fields a caller may overwrite.
type ProfilePatch struct {
	Name     *string `json:"name"`
	WechatID *string `json:"wechatId"`
	Avatar   *string `json:"avatar"`
}

// UpdateUserProfile applies the non-nil fields of patch.
func (r *Reducer) UpdateUserProfile(s domain.AppState, patch ProfilePatch) domain.AppState {
	p := s.UserProfile
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.WechatID != nil {
		p.WechatID = *patch.WechatID
	}
	if patch.Avatar != nil {
		p.Avatar = *patch.Avatar
	}
	s.UserProfile = p
	return s
}

// AddUserMask appends a new mask and returns its id.
func (r *Reducer) AddUserMask(s domain.AppState, name, description string) (domain.AppState, string) {
	id := r.NewID()
	masks := slices.Clone(s.UserProfile.Masks)
	masks = append(masks, domain.UserMask{ID: id, Name: name, Description: description})
	s.UserProfile.Masks = masks
	return s, id
}

// DeleteUserMask removes the mask. If it was active the active pointer is cleared.
func (r *Reducer) DeleteUserMask(s domain.AppState, id string) domain.AppState {
	masks := slices.DeleteFunc(slices.Clone(s.UserProfile.Masks), func(m domain.UserMask) bool {
		return m.ID == id
	})
	s.UserProfile.Masks = masks
	if s.UserProfile.ActiveMaskID != nil && *s.UserProfile.ActiveMaskID == id {
		s.UserProfile.ActiveMaskID = nil
	}
	return s
}

// SetActiveMask points the profile at a mask. An empty id clears the pointer.
func (r *Reducer) SetActiveMask(s domain.AppState, id string) (domain.AppState, error) {
	if id == "" {
		s.UserProfile.ActiveMaskID = nil
		return s, nil
	}
	if s.UserProfile.FindMask(id) < 0 {
		return s, ErrMaskNotFound
	}
	s.UserProfile.ActiveMaskID = &id
	return s, nil
}

// Charge adds amount to the wallet balance.
func (r *Reducer) Charge(s domain.AppState, amount float64) (domain.AppState, error) {
	if !validAmount(amount) {
		return s, ErrInvalidAmount
	}
	s.UserProfile.Balance = roundCents(s.UserProfile.Balance + amount)
	return s, nil
}

// Withdraw subtracts amount from the wallet balance.
func (r *Reducer) Withdraw(s domain.AppState, amount float64) (domain.AppState, error) {
	if !validAmount(amount) {
		return s, ErrInvalidAmount
	}
	if amount > s.UserProfile.Balance {
		return s, ErrInsufficientFunds
	}
	s.UserProfile.Balance = roundCents(s.UserProfile.Balance - amount)
	return s, nil
}

func validAmount(v float64) bool {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	cents := v * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ContactDraft is the input for creating a contact.
type ContactDraft struct {
	Name         string   `json:"name" yaml:"name"`
	Nickname     string   `json:"nickname" yaml:"nickname"`
	Avatar       string   `json:"avatar" yaml:"avatar"`
	SystemPrompt string   `json:"systemPrompt" yaml:"system_prompt"`
	Bio          string   `json:"bio" yaml:"bio"`
	MemoryDepth  int      `json:"memoryDepth" yaml:"memory_depth"`
	ChatRules    []string `json:"chatRules" yaml:"chat_rules"`
}

// AddContact normalizes draft and appends it as a new contact.
func (r *Reducer) AddContact(s domain.AppState, draft ContactDraft) (domain.AppState, string, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return s, "", ErrNameRequired
	}
	nickname := strings.TrimSpace(draft.Nickname)
	if nickname == "" {
		nickname = name
	}
	persona := strings.TrimSpace(draft.SystemPrompt)
	if persona == "" {
		persona = DefaultPersona
	}
	avatar := strings.TrimSpace(draft.Avatar)
	if avatar == "" {
		avatar = AvatarColors[0]
	}
	depth := draft.MemoryDepth
	if depth <= 0 {
		depth = domain.DefaultMemoryDepth
	}

	c := domain.Contact{
		ID:           r.NewID(),
		Name:         name,
		Nickname:     nickname,
		Avatar:       avatar,
		SystemPrompt: persona,
		Bio:          strings.TrimSpace(draft.Bio),
		MemoryDepth:  depth,
		ChatRules:    r.buildRules(draft.ChatRules),
	}
	contacts := slices.Clone(s.Contacts)
	s.Contacts = append(contacts, c)
	return s, c.ID, nil
}

func (r *Reducer) buildRules(contents []string) []domain.ChatRule {
	rules := make([]domain.ChatRule, 0, len(contents))
	for _, content := range contents {
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		rules = append(rules, domain.ChatRule{ID: r.NewID(), Content: content})
	}
	return rules
}

// ContactPatch holds the contact fields a caller may overwrite.
type ContactPatch struct {
	Name         *string   `json:"name"`
	Nickname     *string   `json:"nickname"`
	Avatar       *string   `json:"avatar"`
	SystemPrompt *string   `json:"systemPrompt"`
	Bio          *string   `json:"bio"`
	MemoryDepth  *int      `json:"memoryDepth"`
	ChatRules    *[]string `json:"chatRules"`
}

// UpdateContact applies the non-nil fields of patch to contact id.
func (r *Reducer) UpdateContact(s domain.AppState, id string, patch ContactPatch) (domain.AppState, error) {
	idx := slices.IndexFunc(s.Contacts, func(c domain.Contact) bool { return c.ID == id })
	if idx < 0 {
		return s, ErrContactNotFound
	}
	c := s.Contacts[idx]
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return s, ErrNameRequired
		}
		c.Name = name
	}
	if patch.Nickname != nil {
		c.Nickname = strings.TrimSpace(*patch.Nickname)
	}
	if patch.Avatar != nil {
		c.Avatar = *patch.Avatar
	}
	if patch.SystemPrompt != nil {
		c.SystemPrompt = *patch.SystemPrompt
	}
	if patch.Bio != nil {
		c.Bio = *patch.Bio
	}
	if patch.MemoryDepth != nil {
		c.MemoryDepth = *patch.MemoryDepth
		if c.MemoryDepth <= 0 {
			c.MemoryDepth = domain.DefaultMemoryDepth
		}
	}
	if patch.ChatRules != nil {
		c.ChatRules = r.buildRules(*patch.ChatRules)
	}
	contacts := slices.Clone(s.Contacts)
	contacts[idx] = c
	s.Contacts = contacts
	return s, nil
}

// DeleteContact removes the contact. Its sessions are left in place.
func (r *Reducer) DeleteContact(s domain.AppState, id string) domain.AppState {
	s.Contacts = slices.DeleteFunc(slices.Clone(s.Contacts), func(c domain.Contact) bool {
		return c.ID == id
	})
	return s
}

// CreateSession prepends a new empty session for contactID.
func (r *Reducer) CreateSession(s domain.AppState, contactID string) (domain.AppState, string) {
	sess := domain.ChatSession{
		ID:            r.NewID(),
		ContactID:     contactID,
		Messages:      []domain.Message{},
		LastTimestamp: r.Now(),
	}
	sessions := make([]domain.ChatSession, 0, len(s.Sessions)+1)
	sessions = append(sessions, sess)
	s.Sessions = append(sessions, s.Sessions...)
	return s, sess.ID
}

// GetOrCreateSession returns the existing session for contactID, creating one
// only if none exists.
func (r *Reducer) GetOrCreateSession(s domain.AppState, contactID string) (domain.AppState, string) {
	for _, sess := range s.Sessions {
		if sess.ContactID == contactID {
			return s, sess.ID
		}
	}
	return r.CreateSession(s, contactID)
}

// DeleteSession removes the session.
func (r *Reducer) DeleteSession(s domain.AppState, id string) domain.AppState {
	s.Sessions = slices.DeleteFunc(slices.Clone(s.Sessions), func(sess domain.ChatSession) bool {
		return sess.ID == id
	})
	return s
}

// ClearSessionMessages empties the session history.
func (r *Reducer) ClearSessionMessages(s domain.AppState, id string) (domain.AppState, error) {
	idx := slices.IndexFunc(s.Sessions, func(sess domain.ChatSession) bool { return sess.ID == id })
	if idx < 0 {
		return s, ErrSessionNotFound
	}
	sessions := slices.Clone(s.Sessions)
	sessions[idx].Messages = []domain.Message{}
	sessions[idx].LastMessage = ""
	sessions[idx].LastTimestamp = r.Now()
	s.Sessions = sessions
	return s, nil
}

// AddMessage appends a timestamped message to the session and then re-sorts
// the whole session list by last activity, most recent first.
func (r *Reducer) AddMessage(s domain.AppState, sessionID string, role domain.Role, content string) (domain.AppState, error) {
	if !role.Valid() {
		return s, ErrInvalidRole
	}
	idx := slices.IndexFunc(s.Sessions, func(sess domain.ChatSession) bool { return sess.ID == sessionID })
	if idx < 0 {
		return s, ErrSessionNotFound
	}

	// Stamp strictly after every other session so this one sorts first.
	now := r.Now()
	for i, other := range s.Sessions {
		if i != idx && other.LastTimestamp >= now {
			now = other.LastTimestamp + 1
		}
	}
	sessions := slices.Clone(s.Sessions)
	sess := sessions[idx]
	msgs := make([]domain.Message, len(sess.Messages), len(sess.Messages)+1)
	copy(msgs, sess.Messages)
	sess.Messages = append(msgs, domain.Message{Role: role, Content: content, Timestamp: now})
	sess.LastMessage = content
	sess.LastTimestamp = now
	sessions[idx] = sess

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastTimestamp > sessions[j].LastTimestamp
	})
	s.Sessions = sessions
	return s, nil
}
