package seed

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pocketos/internal/state"
	"github.com/ashureev/pocketos/internal/store"
)

const roster = `
contacts:
  - name: Luna
    system_prompt: You are a night-owl poet.
    memory_depth: 6
    chat_rules:
      - Answer in verse.
      - ""
  - name: Rex
    nickname: T-Rex
`

func TestParseAndImport(t *testing.T) {
	drafts, err := Parse(strings.NewReader(roster))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, 6, drafts[0].MemoryDepth)

	ctx := context.Background()
	c, err := state.Load(ctx, "anon_a", store.NewMemory(), nil)
	require.NoError(t, err)

	ids, err := Import(ctx, c, state.NewReducer(), drafts)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	app := c.App()
	assert.Len(t, app.Contacts, 3)
	luna := app.FindContact(ids[0])
	require.NotNil(t, luna)
	assert.Len(t, luna.ChatRules, 1)
	assert.Equal(t, state.DefaultPersona, app.FindContact(ids[1]).SystemPrompt)
}

func TestParseRejectsUnknownFieldsAndBlankNames(t *testing.T) {
	_, err := Parse(strings.NewReader("contacts:\n  - name: A\n    colour: red\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("contacts:\n  - nickname: nobody\n"))
	assert.ErrorIs(t, err, state.ErrNameRequired)

	drafts, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestExportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, state.DefaultAppState()))

	drafts, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "AI Assistant", drafts[0].Name)
	assert.Equal(t, state.DefaultPersona, drafts[0].SystemPrompt)
}
