// Package chat runs the send flow of a conversation: assemble the context,
// record the user's message, call the model and record the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/llm"
	"github.com/ashureev/pocketos/internal/prompt"
	"github.com/ashureev/pocketos/internal/settings"
	"github.com/ashureev/pocketos/internal/state"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrRateLimited is returned when a device sends too fast.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Completer performs a chat completion.
type Completer interface {
	ChatCompletion(ctx context.Context, creds llm.Credentials, messages []llm.Message) (string, error)
}

// SettingsLoader resolves the settings of a device.
type SettingsLoader interface {
	Load(ctx context.Context, deviceID string) (settings.Settings, error)
}

// Service sends chat messages on behalf of devices.
type Service struct {
	reducer  *state.Reducer
	client   Completer
	settings SettingsLoader
	limiter  *RateLimiter
	log      ConversationLogger
}

// NewService wires a Service. limiter and log may be nil.
func NewService(reducer *state.Reducer, client Completer, cfg SettingsLoader, limiter *RateLimiter, log ConversationLogger) *Service {
	if log == nil {
		log = nopConversationLogger{}
	}
	return &Service{
		reducer:  reducer,
		client:   client,
		settings: cfg,
		limiter:  limiter,
		log:      log,
	}
}

// Open returns the session for contactID, creating it on first use.
func (s *Service) Open(ctx context.Context, c *state.Container, contactID string) (string, error) {
	var id string
	_, err := c.UpdateApp(ctx, "open_session", func(app domain.AppState) (domain.AppState, error) {
		if app.FindContact(contactID) == nil {
			return app, state.ErrContactNotFound
		}
		app, id = s.reducer.GetOrCreateSession(app, contactID)
		return app, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// SendResult is what one send appended to the session.
type SendResult struct {
	SessionID string         `json:"sessionId"`
	User      domain.Message `json:"user"`
	Reply     domain.Message `json:"reply"`
	// Error is the model failure that produced Reply, if any.
	Error string `json:"error,omitempty"`
}

// Send appends text as the user's message, asks the model for a reply and
// appends it. A failed model call is not an error: its message is appended
// as the assistant's reply instead. Errors are returned only when nothing
// could be appended.
func (s *Service) Send(ctx context.Context, c *state.Container, sessionID, text string) (*SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	deviceID := c.DeviceID()
	if !s.limiter.Allow(deviceID) {
		return nil, ErrRateLimited
	}

	app := c.App()
	sess := app.FindSession(sessionID)
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}
	contact := app.FindContact(sess.ContactID)

	cfg, err := s.settings.Load(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	messages, err := prompt.Assemble(contact, sess, app.UserProfile, text, prompt.Options{SystemPrompt: cfg.SystemPrompt})
	if err != nil {
		return nil, err
	}

	userMsg, err := s.append(ctx, c, sessionID, domain.RoleUser, text, "user_message")
	if err != nil {
		return nil, err
	}
	s.log.Log(ConversationLogEvent{
		DeviceID:   deviceID,
		SessionID:  sessionID,
		ContactID:  contact.ID,
		Direction:  "outbound",
		EventType:  "chat_user_message",
		Model:      cfg.ModelName,
		ContentRaw: text,
	})

	result := &SendResult{SessionID: sessionID, User: userMsg}
	reply, callErr := s.client.ChatCompletion(ctx, cfg.Credentials(), messages)
	event := ConversationLogEvent{
		DeviceID:  deviceID,
		SessionID: sessionID,
		ContactID: contact.ID,
		Direction: "inbound",
		EventType: "chat_assistant_reply",
		Model:     cfg.ModelName,
	}
	if callErr != nil {
		slog.Warn("Chat completion failed",
			"device_id", deviceID, "session_id", sessionID, "contact_id", contact.ID, "error", callErr)
		reply = FailureText(callErr)
		result.Error = callErr.Error()
		event.EventType = "chat_error"
		event.Error = callErr.Error()
	}
	event.ContentRaw = reply
	s.log.Log(event)

	// The reply is recorded even when the caller has gone away.
	result.Reply, err = s.append(context.WithoutCancel(ctx), c, sessionID, domain.RoleAssistant, reply, "assistant_message")
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FailureText renders a model failure as the assistant message shown in chat.
func FailureText(err error) string {
	return fmt.Sprintf("(system) Something went wrong: %v.", err)
}

func (s *Service) append(ctx context.Context, c *state.Container, sessionID string, role domain.Role, content, reason string) (domain.Message, error) {
	next, err := c.UpdateApp(ctx, reason, func(app domain.AppState) (domain.AppState, error) {
		return s.reducer.AddMessage(app, sessionID, role, content)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append %s message: %w", role, err)
	}
	sess := next.FindSession(sessionID)
	return sess.Messages[len(sess.Messages)-1], nil
}
