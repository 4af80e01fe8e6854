package desktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pocketos/internal/domain"
)

func TestDisplayOrderAppendsMissingCatalogApps(t *testing.T) {
	got := IDs(DisplayOrder([]string{AppSettings, AppChat}))
	assert.Equal(t, []string{AppSettings, AppChat, AppTheme}, got)
}

func TestDisplayOrderDropsUnknownAndDuplicateIDs(t *testing.T) {
	got := IDs(DisplayOrder([]string{"weather", AppTheme, AppTheme, AppChat}))
	assert.Equal(t, []string{AppTheme, AppChat, AppSettings}, got)
}

func TestDisplayOrderEmptyLayoutIsCatalog(t *testing.T) {
	assert.Equal(t, DefaultLayout(), IDs(DisplayOrder(nil)))
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name    string
		order   []string
		dragged string
		target  string
		want    []string
		wantOK  bool
	}{
		{"move forward", []string{"a", "b", "c"}, "a", "c", []string{"b", "c", "a"}, true},
		{"move backward", []string{"a", "b", "c"}, "c", "a", []string{"c", "a", "b"}, true},
		{"same id", []string{"a", "b"}, "a", "a", []string{"a", "b"}, false},
		{"unknown target", []string{"a", "b"}, "a", "z", []string{"a", "b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Reorder(tt.order, tt.dragged, tt.target)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReorderDoesNotAliasInput(t *testing.T) {
	order := []string{"a", "b", "c"}
	_, ok := Reorder(order, "a", "c")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRenderUsesFallbackAndCustomIcons(t *testing.T) {
	app := domain.AppIcon{ID: "x", IconType: domain.IconTypeLucide, IconValue: "NoSuchGlyph"}
	got := Render(app, nil)
	assert.Equal(t, IconHelpCircle, got.Glyph)
	assert.Empty(t, got.ImageURL)

	got = Render(DefaultApps[0], map[string]string{AppChat: "https://img/chat.png"})
	assert.Equal(t, IconMessageSquare, got.Glyph)
	assert.Equal(t, "https://img/chat.png", got.ImageURL)
}

func TestChatDetailPath(t *testing.T) {
	assert.Equal(t, "/chat/chat-detail/abc", ChatDetailPath("abc"))
}
