package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/pocketos/internal/desktop"
	"github.com/ashureev/pocketos/internal/domain"
)

func (h *Handler) registerOS(r chi.Router) {
	r.Get("/", h.GetOS)
	r.Put("/wallpaper", h.SetWallpaper)
	r.Put("/icons/{appID}", h.SetCustomIcon)
	r.Delete("/icons/{appID}", h.SetCustomIcon)
	r.Delete("/icons", h.ResetIcons)
	r.Put("/font", h.SetFont)
	r.Put("/layout", h.UpdateLayout)
	r.Post("/layout/reorder", h.ReorderLayout)
	r.Post("/layout/reset", h.ResetLayout)
	r.Put("/status-bar", h.ToggleStatusBar)
	r.Post("/theme/reset", h.ResetTheme)
}

// updateOS runs fn against the device's OS state and writes the new state.
func (h *Handler) updateOS(w http.ResponseWriter, r *http.Request, reason string, fn func(domain.OSState) domain.OSState) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	next, err := c.UpdateOS(r.Context(), reason, fn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, next)
}

// GetOS returns the OS store.
func (h *Handler) GetOS(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	JSON(w, http.StatusOK, c.OS())
}

type urlRequest struct {
	URL string `json:"url"`
}

// SetWallpaper replaces the wallpaper. An empty url restores the default.
func (h *Handler) SetWallpaper(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decode(w, r, &req) {
		return
	}
	h.updateOS(w, r, "set_wallpaper", func(s domain.OSState) domain.OSState {
		return h.reducer.SetWallpaper(s, req.URL)
	})
}

// SetCustomIcon overrides one app icon. DELETE, or PUT with an empty url,
// removes the override.
func (h *Handler) SetCustomIcon(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	if _, ok := desktop.LookupApp(appID); !ok {
		Error(w, http.StatusNotFound, "app not found")
		return
	}
	var req urlRequest
	if r.Method != http.MethodDelete && !decode(w, r, &req) {
		return
	}
	h.updateOS(w, r, "set_custom_icon", func(s domain.OSState) domain.OSState {
		return h.reducer.SetCustomIcon(s, appID, req.URL)
	})
}

// ResetIcons removes every icon override.
func (h *Handler) ResetIcons(w http.ResponseWriter, r *http.Request) {
	h.updateOS(w, r, "reset_icons", h.reducer.ResetIcons)
}

type fontRequest struct {
	URL    string `json:"url"`
	Family string `json:"family"`
}

// SetFont replaces the system font.
func (h *Handler) SetFont(w http.ResponseWriter, r *http.Request) {
	var req fontRequest
	if !decode(w, r, &req) {
		return
	}
	h.updateOS(w, r, "set_font", func(s domain.OSState) domain.OSState {
		return h.reducer.SetFont(s, req.URL, req.Family)
	})
}

type layoutRequest struct {
	Order []string `json:"order"`
}

// UpdateLayout stores a new desktop order. Unknown ids are kept in storage
// and dropped at render time.
func (h *Handler) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if !decode(w, r, &req) {
		return
	}
	h.updateOS(w, r, "update_layout", func(s domain.OSState) domain.OSState {
		return h.reducer.UpdateDesktopLayout(s, req.Order)
	})
}

type reorderRequest struct {
	DraggedID string `json:"draggedId"`
	TargetID  string `json:"targetId"`
}

// ReorderLayout moves one icon onto another's slot in the displayed order.
// Drops that change nothing leave the stored layout untouched.
func (h *Handler) ReorderLayout(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decode(w, r, &req) {
		return
	}
	h.updateOS(w, r, "reorder_layout", func(s domain.OSState) domain.OSState {
		order := desktop.IDs(desktop.DisplayOrder(s.DesktopLayout))
		drop := desktop.Action{Kind: desktop.ActionDrop, AppID: req.DraggedID, TargetID: req.TargetID}
		next, changed := desktop.ApplyDrop(order, drop)
		if !changed {
			return s
		}
		return h.reducer.UpdateDesktopLayout(s, next)
	})
}

// ResetLayout restores the default desktop order.
func (h *Handler) ResetLayout(w http.ResponseWriter, r *http.Request) {
	h.updateOS(w, r, "reset_layout", h.reducer.ResetLayout)
}

type statusBarRequest struct {
	Show bool `json:"show"`
}

// ToggleStatusBar shows or hides the status bar.
func (h *Handler) ToggleStatusBar(w http.ResponseWriter, r *http.Request) {
	var req statusBarRequest
	if !decode(w, r, &req) {
		return
	}
	h.updateOS(w, r, "toggle_status_bar", func(s domain.OSState) domain.OSState {
		return h.reducer.ToggleStatusBar(s, req.Show)
	})
}

// ResetTheme restores wallpaper, font and icons. The layout is kept.
func (h *Handler) ResetTheme(w http.ResponseWriter, r *http.Request) {
	h.updateOS(w, r, "reset_theme", h.reducer.ResetTheme)
}

// GetDesktop returns the home screen in display order with icons resolved.
func (h *Handler) GetDesktop(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	JSON(w, http.StatusOK, desktop.RenderDesktop(c.OS()))
}

// GetRoutes returns the navigable routes of the shell.
func (h *Handler) GetRoutes(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, desktop.Routes)
}
