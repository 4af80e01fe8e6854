package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/pocketos/internal/chat"
	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/seed"
	"github.com/ashureev/pocketos/internal/state"
)

func (h *Handler) registerApp(r chi.Router) {
	r.Get("/", h.GetApp)
	r.Patch("/profile", h.UpdateProfile)

	r.Post("/masks", h.AddMask)
	r.Delete("/masks/{maskID}", h.DeleteMask)
	r.Put("/masks/active", h.SetActiveMask)

	r.Post("/wallet/charge", h.Charge)
	r.Post("/wallet/withdraw", h.Withdraw)

	r.Get("/contacts", h.ListContacts)
	r.Post("/contacts", h.AddContact)
	r.Post("/contacts/import", h.ImportContacts)
	r.Get("/contacts/export", h.ExportContacts)
	r.Patch("/contacts/{contactID}", h.UpdateContact)
	r.Delete("/contacts/{contactID}", h.DeleteContact)
	r.Post("/contacts/{contactID}/session", h.OpenSession)

	r.Get("/chats", h.ListChats)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Delete("/sessions/{sessionID}", h.DeleteSession)
	r.Post("/sessions/{sessionID}/clear", h.ClearSession)
	r.Post("/sessions/{sessionID}/messages", h.SendMessage)
}

// update runs fn against the device's app state and writes the new state.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, reason string, status int, fn func(domain.AppState) (domain.AppState, error)) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	next, err := c.UpdateApp(r.Context(), reason, fn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, status, next)
}

// GetApp returns the app store.
func (h *Handler) GetApp(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	JSON(w, http.StatusOK, c.App())
}

// UpdateProfile overwrites the profile fields present in the body.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch state.ProfilePatch
	if !decode(w, r, &patch) {
		return
	}
	h.update(w, r, "update_profile", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.UpdateUserProfile(s, patch), nil
	})
}

type maskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AddMask creates a user mask and returns its id.
func (h *Handler) AddMask(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		Error(w, http.StatusBadRequest, state.ErrNameRequired.Error())
		return
	}
	c := h.container(w, r)
	if c == nil {
		return
	}
	var id string
	_, err := c.UpdateApp(r.Context(), "add_mask", func(s domain.AppState) (domain.AppState, error) {
		s, id = h.reducer.AddUserMask(s, name, strings.TrimSpace(req.Description))
		return s, nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// DeleteMask removes a mask, clearing the active pointer if it matched.
func (h *Handler) DeleteMask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "maskID")
	h.update(w, r, "delete_mask", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.DeleteUserMask(s, id), nil
	})
}

type activeMaskRequest struct {
	ID *string `json:"id"`
}

// SetActiveMask selects the mask presented to assistants. A null id clears it.
func (h *Handler) SetActiveMask(w http.ResponseWriter, r *http.Request) {
	var req activeMaskRequest
	if !decode(w, r, &req) {
		return
	}
	id := ""
	if req.ID != nil {
		id = *req.ID
	}
	h.update(w, r, "set_active_mask", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.SetActiveMask(s, id)
	})
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// Charge adds funds to the wallet.
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	h.update(w, r, "charge", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.Charge(s, req.Amount)
	})
}

// Withdraw removes funds from the wallet.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	h.update(w, r, "withdraw", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.Withdraw(s, req.Amount)
	})
}

// ListContacts returns the contact list.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	JSON(w, http.StatusOK, c.App().Contacts)
}

// AddContact creates a contact from a draft and returns its id.
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	var draft state.ContactDraft
	if !decode(w, r, &draft) {
		return
	}
	c := h.container(w, r)
	if c == nil {
		return
	}
	var id string
	_, err := c.UpdateApp(r.Context(), "add_contact", func(s domain.AppState) (domain.AppState, error) {
		var err error
		s, id, err = h.reducer.AddContact(s, draft)
		return s, err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateContact overwrites the contact fields present in the body.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contactID")
	var patch state.ContactPatch
	if !decode(w, r, &patch) {
		return
	}
	h.update(w, r, "update_contact", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.UpdateContact(s, id, patch)
	})
}

// DeleteContact removes a contact.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contactID")
	h.update(w, r, "delete_contact", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		if s.FindContact(id) == nil {
			return s, state.ErrContactNotFound
		}
		return h.reducer.DeleteContact(s, id), nil
	})
}

// ImportContacts adds every contact of a YAML roster in the body.
func (h *Handler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	drafts, err := seed.Parse(bytes.NewReader(body))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	c := h.container(w, r)
	if c == nil {
		return
	}
	ids, err := seed.Import(r.Context(), c, h.reducer, drafts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("Contacts imported", "device_id", c.DeviceID(), "count", len(ids))
	JSON(w, http.StatusCreated, map[string][]string{"ids": ids})
}

// ExportContacts renders the contacts as a YAML roster.
func (h *Handler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	var buf bytes.Buffer
	if err := seed.Export(&buf, c.App()); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.yaml"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("Failed to write export", "error", err)
	}
}

// OpenSession returns the session with a contact, creating it on first use.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	id, err := h.chat.Open(r.Context(), c, chi.URLParam(r, "contactID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

// ListChats returns the chat list, most recent first.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	JSON(w, http.StatusOK, chat.BuildList(c.App(), h.now()))
}

type sessionView struct {
	Session domain.ChatSession `json:"session"`
	Contact *domain.Contact    `json:"contact"`
}

// GetSession returns one session with its contact.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c := h.container(w, r)
	if c == nil {
		return
	}
	app := c.App()
	sess := app.FindSession(chi.URLParam(r, "sessionID"))
	if sess == nil {
		writeError(w, r, state.ErrSessionNotFound)
		return
	}
	contact := app.FindContact(sess.ContactID)
	if contact == nil {
		writeError(w, r, state.ErrSessionNotFound)
		return
	}
	JSON(w, http.StatusOK, sessionView{Session: *sess, Contact: contact})
}

// DeleteSession removes a session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	h.update(w, r, "delete_session", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		if s.FindSession(id) == nil {
			return s, state.ErrSessionNotFound
		}
		return h.reducer.DeleteSession(s, id), nil
	})
}

// ClearSession empties a session's history.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	h.update(w, r, "clear_session", http.StatusOK, func(s domain.AppState) (domain.AppState, error) {
		return h.reducer.ClearSessionMessages(s, id)
	})
}

type sendRequest struct {
	Content string `json:"content"`
}

// SendMessage records the user's message, asks the model and records the reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decode(w, r, &req) {
		return
	}
	c := h.container(w, r)
	if c == nil {
		return
	}
	res, err := h.chat.Send(r.Context(), c, chi.URLParam(r, "sessionID"), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}
