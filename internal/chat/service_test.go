package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/llm"
	"github.com/ashureev/pocketos/internal/settings"
	"github.com/ashureev/pocketos/internal/state"
	"github.com/ashureev/pocketos/internal/store"
)

type fakeCompleter struct {
	reply string
	err   error
	calls atomic.Int32
	got   []llm.Message
	creds llm.Credentials
}

func (f *fakeCompleter) ChatCompletion(_ context.Context, creds llm.Credentials, messages []llm.Message) (string, error) {
	f.calls.Add(1)
	f.got = messages
	f.creds = creds
	return f.reply, f.err
}

type fixture struct {
	svc       *Service
	container *state.Container
	settings  *settings.Service
	sessionID string
}

func newFixture(t *testing.T, client Completer, limiter *RateLimiter) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemory()
	cfg := settings.NewService(repo, settings.Defaults{}, nil)
	c, err := state.Load(ctx, "anon_a", repo, nil)
	require.NoError(t, err)

	svc := NewService(state.NewReducer(), client, cfg, limiter, nil)
	id, err := svc.Open(ctx, c, "default-ai")
	require.NoError(t, err)
	return &fixture{svc: svc, container: c, settings: cfg, sessionID: id}
}

func setKey(t *testing.T, f *fixture, key string) {
	t.Helper()
	require.NoError(t, f.settings.Save(context.Background(), "anon_a", settings.Patch{APIKey: &key}))
}

func TestSendAppendsUserAndReply(t *testing.T) {
	client := &fakeCompleter{reply: "Hello!"}
	f := newFixture(t, client, nil)
	setKey(t, f, "sk-test")

	res, err := f.svc.Send(context.Background(), f.container, f.sessionID, "hi")
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, "Hello!", res.Reply.Content)

	app := f.container.App()
	sess := app.FindSession(f.sessionID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, domain.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "Hello!", sess.LastMessage)

	require.Len(t, client.got, 2, "system + new user message")
	assert.Equal(t, "hi", client.got[1].Content)
	assert.Equal(t, "sk-test", client.creds.APIKey)
}

func TestSendMissingKeyAppendsFailureWithoutRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	f := newFixture(t, llm.NewClient(llm.Config{BaseURL: server.URL}), nil)

	res, err := f.svc.Send(context.Background(), f.container, f.sessionID, "hi")
	require.NoError(t, err)
	assert.Equal(t, FailureText(llm.ErrMissingAPIKey), res.Reply.Content)
	assert.Zero(t, calls.Load())
}

func TestSendNon2xxAppendsAssistantMessageWithStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	f := newFixture(t, llm.NewClient(llm.Config{}), nil)
	base := server.URL
	require.NoError(t, f.settings.Save(context.Background(), "anon_a", settings.Patch{BaseURL: &base}))
	setKey(t, f, "sk-test")

	res, err := f.svc.Send(context.Background(), f.container, f.sessionID, "hi")
	require.NoError(t, err)

	app := f.container.App()
	sess := app.FindSession(f.sessionID)
	require.Len(t, sess.Messages, 2)
	last := sess.Messages[1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "429")
	assert.True(t, strings.HasPrefix(last.Content, "(system) Something went wrong: "))
	assert.Contains(t, res.Error, "Too Many Requests")
}

func TestSendUnknownSession(t *testing.T) {
	client := &fakeCompleter{reply: "x"}
	f := newFixture(t, client, nil)

	_, err := f.svc.Send(context.Background(), f.container, "nope", "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Zero(t, client.calls.Load())
}

func TestSendDeletedContact(t *testing.T) {
	client := &fakeCompleter{reply: "x"}
	f := newFixture(t, client, nil)
	r := state.NewReducer()
	_, err := f.container.UpdateApp(context.Background(), "delete_contact", func(s domain.AppState) (domain.AppState, error) {
		return r.DeleteContact(s, "default-ai"), nil
	})
	require.NoError(t, err)

	_, err = f.svc.Send(context.Background(), f.container, f.sessionID, "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	app := f.container.App()
	assert.Empty(t, app.FindSession(f.sessionID).Messages)
}

func TestSendRejectsBlankAndRateLimits(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Close()
	f := newFixture(t, &fakeCompleter{reply: "x"}, limiter)

	_, err := f.svc.Send(context.Background(), f.container, f.sessionID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.svc.Send(context.Background(), f.container, f.sessionID, "one")
	require.NoError(t, err)
	_, err = f.svc.Send(context.Background(), f.container, f.sessionID, "two")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSendUsesHistoryBeforeAppend(t *testing.T) {
	client := &fakeCompleter{reply: "r"}
	f := newFixture(t, client, nil)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.container, f.sessionID, "first")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.container, f.sessionID, "second")
	require.NoError(t, err)

	contents := make([]string, len(client.got))
	for i, m := range client.got {
		contents[i] = m.Content
	}
	assert.Equal(t, []string{"first", "r", "second"}, contents[1:])
}

func TestOpenUnknownContact(t *testing.T) {
	f := newFixture(t, &fakeCompleter{}, nil)
	_, err := f.svc.Open(context.Background(), f.container, "ghost")
	assert.True(t, errors.Is(err, state.ErrContactNotFound))
}
