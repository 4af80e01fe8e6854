package api

import (
	"net/http"
	"slices"
	"testing"

	"github.com/ashureev/pocketos/internal/desktop"
	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/state"
)

func decodeOS(t *testing.T, e *testEnv, method, path string, body any) domain.OSState {
	t.Helper()
	w := e.do(t, method, path, body)
	expectStatus(t, w, http.StatusOK)
	var s domain.OSState
	decodeBody(t, w, &s)
	return s
}

func TestWallpaper(t *testing.T) {
	e := newTestEnv(t)

	s := decodeOS(t, e, http.MethodPut, "/api/os/wallpaper", map[string]string{"url": "https://img.example/a.png"})
	if s.Wallpaper != "https://img.example/a.png" {
		t.Errorf("wallpaper = %q", s.Wallpaper)
	}

	s = decodeOS(t, e, http.MethodPut, "/api/os/wallpaper", map[string]string{"url": ""})
	if s.Wallpaper != state.DefaultWallpaper {
		t.Errorf("wallpaper = %q, want default", s.Wallpaper)
	}
}

func TestCustomIcons(t *testing.T) {
	e := newTestEnv(t)

	s := decodeOS(t, e, http.MethodPut, "/api/os/icons/chat", map[string]string{"url": "https://img.example/chat.png"})
	if s.CustomIcons["chat"] != "https://img.example/chat.png" {
		t.Errorf("custom icons = %v", s.CustomIcons)
	}

	w := e.do(t, http.MethodGet, "/api/desktop", nil)
	expectStatus(t, w, http.StatusOK)
	var icons []desktop.RenderedIcon
	decodeBody(t, w, &icons)
	if len(icons) != len(desktop.DefaultApps) || icons[0].ImageURL != "https://img.example/chat.png" {
		t.Errorf("desktop = %+v", icons)
	}

	s = decodeOS(t, e, http.MethodDelete, "/api/os/icons/chat", nil)
	if _, ok := s.CustomIcons["chat"]; ok {
		t.Errorf("override not removed: %v", s.CustomIcons)
	}

	expectError(t, e.do(t, http.MethodPut, "/api/os/icons/camera", map[string]string{"url": "x"}),
		http.StatusNotFound, "app not found")
}

func TestReorderLayout(t *testing.T) {
	e := newTestEnv(t)

	s := decodeOS(t, e, http.MethodPost, "/api/os/layout/reorder",
		map[string]string{"draggedId": desktop.AppSettings, "targetId": desktop.AppChat})
	want := []string{desktop.AppSettings, desktop.AppChat, desktop.AppTheme}
	if !slices.Equal(s.DesktopLayout, want) {
		t.Errorf("layout = %v, want %v", s.DesktopLayout, want)
	}

	s = decodeOS(t, e, http.MethodPost, "/api/os/layout/reorder",
		map[string]string{"draggedId": desktop.AppChat, "targetId": desktop.TargetDock})
	if !slices.Equal(s.DesktopLayout, want) {
		t.Errorf("drop on dock changed layout to %v", s.DesktopLayout)
	}

	s = decodeOS(t, e, http.MethodPost, "/api/os/layout/reorder",
		map[string]string{"draggedId": desktop.AppChat, "targetId": ""})
	if !slices.Equal(s.DesktopLayout, want) {
		t.Errorf("drop on nothing changed layout to %v", s.DesktopLayout)
	}

	s = decodeOS(t, e, http.MethodPost, "/api/os/layout/reset", nil)
	if !slices.Equal(s.DesktopLayout, desktop.DefaultLayout()) {
		t.Errorf("reset layout = %v", s.DesktopLayout)
	}
}

func TestUpdateLayoutHealsOnRender(t *testing.T) {
	e := newTestEnv(t)

	decodeOS(t, e, http.MethodPut, "/api/os/layout", map[string][]string{"order": {"ghost", desktop.AppTheme}})

	w := e.do(t, http.MethodGet, "/api/desktop", nil)
	expectStatus(t, w, http.StatusOK)
	var icons []desktop.RenderedIcon
	decodeBody(t, w, &icons)
	got := make([]string, len(icons))
	for i, icon := range icons {
		got[i] = icon.ID
	}
	want := []string{desktop.AppTheme, desktop.AppChat, desktop.AppSettings}
	if !slices.Equal(got, want) {
		t.Errorf("rendered order = %v, want %v", got, want)
	}
}

func TestResetThemeRestoresDefaults(t *testing.T) {
	e := newTestEnv(t)
	decodeOS(t, e, http.MethodPut, "/api/os/layout", map[string][]string{"order": {desktop.AppSettings, desktop.AppChat, desktop.AppTheme}})
	decodeOS(t, e, http.MethodPut, "/api/os/font", map[string]string{"url": "https://fonts.example/a.css", "family": "Inter"})
	decodeOS(t, e, http.MethodPut, "/api/os/status-bar", map[string]bool{"show": false})

	s := decodeOS(t, e, http.MethodPost, "/api/os/theme/reset", nil)

	if s.FontFamily != "" || s.FontURL != "" || s.Wallpaper != state.DefaultWallpaper {
		t.Errorf("theme not reset: %+v", s)
	}
	if want := desktop.DefaultLayout(); !slices.Equal(s.DesktopLayout, want) {
		t.Errorf("layout = %v, want %v", s.DesktopLayout, want)
	}
	if !s.ShowStatusBar {
		t.Error("status bar should be shown after a theme reset")
	}
}

func TestGetRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/routes", nil)
	expectStatus(t, w, http.StatusOK)
	var routes []string
	decodeBody(t, w, &routes)
	if !slices.Contains(routes, desktop.RouteChatDetail) || len(routes) != len(desktop.Routes) {
		t.Errorf("routes = %v", routes)
	}
}
