package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/pocketos/internal/identity"
	"github.com/ashureev/pocketos/internal/llm"
	"github.com/ashureev/pocketos/internal/settings"
)

func (h *Handler) registerSettings(r chi.Router) {
	r.Get("/", h.GetSettings)
	r.Put("/", h.SaveSettings)
	r.Post("/test", h.TestConnection)
	r.Get("/models", h.GetModels)
	r.Get("/presets", h.GetPresets)
	r.Put("/style", h.SetCustomCSS)
	r.Post("/style/presets/{presetID}", h.ApplyPreset)
}

// deviceID returns the requesting device or writes a 401.
func deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := identity.DeviceIDFromContext(r.Context())
	if id == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return id, true
}

// GetSettings returns the device settings with defaults applied.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	s, err := h.settings.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s)
}

// SaveSettings writes the fields present in the body.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	var patch settings.Patch
	if !decode(w, r, &patch) {
		return
	}
	if err := h.settings.Save(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetSettings(w, r)
}

type testRequest struct {
	APIKey  *string `json:"apiKey"`
	BaseURL *string `json:"baseUrl"`
}

// testResponse reports a connection test. Unauthorized is set when the
// endpoint rejected the key itself.
type testResponse struct {
	OK           bool        `json:"ok"`
	Status       string      `json:"status"`
	Models       []llm.Model `json:"models"`
	Unauthorized bool        `json:"unauthorized,omitempty"`
}

// TestConnection lists the models of an endpoint and caches them. Fields
// missing from the body fall back to the stored settings. Failures are
// reported inline with a 200 so the settings screen can show them.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	var req testRequest
	if !decode(w, r, &req) {
		return
	}
	current, err := h.settings.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key, baseURL := current.APIKey, current.BaseURL
	if req.APIKey != nil {
		key = strings.TrimSpace(*req.APIKey)
	}
	if req.BaseURL != nil {
		baseURL = strings.TrimSpace(*req.BaseURL)
	}

	models, err := h.models.ListModels(r.Context(), key, baseURL)
	if err != nil {
		slog.Info("Connection test failed", "device_id", id, "error", err)
		JSON(w, http.StatusOK, testResponse{
			Status:       err.Error(),
			Models:       []llm.Model{},
			Unauthorized: llm.IsAuthError(err),
		})
		return
	}
	if err := h.settings.CacheModels(r.Context(), id, models); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, testResponse{OK: true, Status: "connected", Models: models})
}

// GetModels returns the cached model list.
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	s, err := h.settings.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s.ModelList)
}

// GetPresets returns the built-in chat style presets.
func (h *Handler) GetPresets(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, settings.Presets)
}

type cssRequest struct {
	CSS string `json:"css"`
}

// SetCustomCSS stores the chat stylesheet. An empty stylesheet removes it.
func (h *Handler) SetCustomCSS(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	var req cssRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.settings.SetCustomCSS(r.Context(), id, req.CSS); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetSettings(w, r)
}

// ApplyPreset stores the stylesheet of a built-in preset.
func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	if err := h.settings.ApplyPreset(r.Context(), id, chi.URLParam(r, "presetID")); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetSettings(w, r)
}
