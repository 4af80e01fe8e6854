// Package api provides HTTP handlers for the pocketos API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/pocketos/internal/chat"
	"github.com/ashureev/pocketos/internal/identity"
	"github.com/ashureev/pocketos/internal/llm"
	"github.com/ashureev/pocketos/internal/settings"
	"github.com/ashureev/pocketos/internal/state"
	"github.com/ashureev/pocketos/internal/store"
)

const maxBodyBytes = 1 << 20

// ModelLister fetches the models an endpoint offers.
type ModelLister interface {
	ListModels(ctx context.Context, apiKey, baseURL string) ([]llm.Model, error)
}

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	registry *state.Registry
	reducer  *state.Reducer
	chat     *chat.Service
	settings *settings.Service
	models   ModelLister
	now      func() time.Time
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, registry *state.Registry, reducer *state.Reducer, chatSvc *chat.Service, settingsSvc *settings.Service, models ModelLister) *Handler {
	return &Handler{
		repo:     repo,
		registry: registry,
		reducer:  reducer,
		chat:     chatSvc,
		settings: settingsSvc,
		models:   models,
		now:      time.Now,
	}
}

// RegisterRoutes registers every /api route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Route("/app", h.registerApp)
		r.Route("/os", h.registerOS)
		r.Route("/settings", h.registerSettings)
		r.Get("/desktop", h.GetDesktop)
		r.Get("/routes", h.GetRoutes)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrSessionNotFound),
		errors.Is(err, state.ErrContactNotFound),
		errors.Is(err, state.ErrMaskNotFound),
		errors.Is(err, settings.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, state.ErrNameRequired),
		errors.Is(err, state.ErrInvalidAmount),
		errors.Is(err, state.ErrInvalidRole),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, llm.ErrMissingAPIKey),
		errors.Is(err, llm.ErrMissingBaseURL):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, chat.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError renders err with the status statusFor picks. Internal errors
// are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"device_id", identity.DeviceIDFromContext(r.Context()))
		Error(w, status, "internal error")
		return
	}
	Error(w, status, rootMessage(err))
}

// rootMessage returns the text of the sentinel at the bottom of err's chain,
// so wrapped errors still render as e.g. "session not found".
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// decode reads a JSON body into v. It writes a 400 and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// container resolves the state container of the requesting device. It writes
// the error response and returns nil when none is available.
func (h *Handler) container(w http.ResponseWriter, r *http.Request) *state.Container {
	deviceID := identity.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	c, err := h.registry.Get(r.Context(), deviceID)
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	return c
}

// GetState returns both persisted stores of the device.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"app": c.App(),
		"os":  c.OS(),
		"versions": map[string]int{
			"app": state.AppChain.Version(),
			"os":  state.OSChain.Version(),
		},
	})
}
