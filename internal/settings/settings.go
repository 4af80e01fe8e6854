// Package settings manages the unversioned per-device configuration: model
// credentials, the device persona and the chat stylesheet.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/pocketos/internal/llm"
)

// Storage keys.
const (
	KeyAPIKey       = "apiKey"
	KeyBaseURL      = "baseUrl"
	KeyModelName    = "modelName"
	KeyModelList    = "modelList"
	KeySystemPrompt = "systemPrompt"
	KeyCustomCSS    = "chat-custom-css"
)

// Name used for change notifications.
const StoreName = "settings"

// Store is the slice of the repository settings need.
type Store interface {
	ListSettings(ctx context.Context, deviceID string) (map[string]string, error)
	PutSetting(ctx context.Context, deviceID, key, value string) error
	DeleteSetting(ctx context.Context, deviceID, key string) error
}

// Notifier is told when a device's settings change.
type Notifier interface {
	Notify(deviceID, store, reason string)
}

// Settings is the resolved configuration of one device.
type Settings struct {
	APIKey       string      `json:"apiKey"`
	BaseURL      string      `json:"baseUrl"`
	ModelName    string      `json:"modelName"`
	SystemPrompt string      `json:"systemPrompt"`
	CustomCSS    string      `json:"customCss"`
	ModelList    []llm.Model `json:"modelList"`
}

// Credentials returns the model credentials carried by s.
func (s Settings) Credentials() llm.Credentials {
	return llm.Credentials{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.ModelName}
}

// HasAPIKey reports whether a non-blank key is stored.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Defaults fill blank base URL and model values on load.
type Defaults struct {
	BaseURL string
	Model   string
}

// Patch holds the fields written by the settings screen.
type Patch struct {
	APIKey       *string `json:"apiKey"`
	BaseURL      *string `json:"baseUrl"`
	ModelName    *string `json:"modelName"`
	SystemPrompt *string `json:"systemPrompt"`
}

// Service reads and writes device settings.
type Service struct {
	repo     Store
	defaults Defaults
	notifier Notifier
}

// NewService creates a Service. notifier may be nil.
func NewService(repo Store, defaults Defaults, notifier Notifier) *Service {
	if defaults.BaseURL == "" {
		defaults.BaseURL = llm.DefaultBaseURL
	}
	if defaults.Model == "" {
		defaults.Model = llm.DefaultModel
	}
	return &Service{repo: repo, defaults: defaults, notifier: notifier}
}

// Load returns the settings of deviceID with defaults applied.
func (s *Service) Load(ctx context.Context, deviceID string) (Settings, error) {
	raw, err := s.repo.ListSettings(ctx, deviceID)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	out := Settings{
		APIKey:       raw[KeyAPIKey],
		BaseURL:      raw[KeyBaseURL],
		ModelName:    raw[KeyModelName],
		SystemPrompt: raw[KeySystemPrompt],
		CustomCSS:    raw[KeyCustomCSS],
		ModelList:    []llm.Model{},
	}
	if out.BaseURL == "" {
		out.BaseURL = s.defaults.BaseURL
	}
	if out.ModelName == "" {
		out.ModelName = s.defaults.Model
	}
	if cached := raw[KeyModelList]; cached != "" {
		if err := json.Unmarshal([]byte(cached), &out.ModelList); err != nil {
			slog.Warn("Discarding unreadable cached model list", "device_id", deviceID, "error", err)
			out.ModelList = []llm.Model{}
		}
	}
	return out, nil
}

// Save writes every non-nil field of p.
func (s *Service) Save(ctx context.Context, deviceID string, p Patch) error {
	fields := []struct {
		key string
		val *string
	}{
		{KeyAPIKey, p.APIKey},
		{KeyBaseURL, p.BaseURL},
		{KeyModelName, p.ModelName},
		{KeySystemPrompt, p.SystemPrompt},
	}
	for _, f := range fields {
		if f.val == nil {
			continue
		}
		if err := s.repo.PutSetting(ctx, deviceID, f.key, strings.TrimSpace(*f.val)); err != nil {
			return fmt.Errorf("save %s: %w", f.key, err)
		}
	}
	s.notify(deviceID, "save")
	return nil
}

// CacheModels remembers the last successful model listing.
func (s *Service) CacheModels(ctx context.Context, deviceID string, models []llm.Model) error {
	data, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("encode model list: %w", err)
	}
	if err := s.repo.PutSetting(ctx, deviceID, KeyModelList, string(data)); err != nil {
		return fmt.Errorf("save model list: %w", err)
	}
	s.notify(deviceID, "models")
	return nil
}

// SetCustomCSS stores the chat stylesheet. An empty stylesheet removes the key.
func (s *Service) SetCustomCSS(ctx context.Context, deviceID, css string) error {
	var err error
	if strings.TrimSpace(css) == "" {
		err = s.repo.DeleteSetting(ctx, deviceID, KeyCustomCSS)
	} else {
		err = s.repo.PutSetting(ctx, deviceID, KeyCustomCSS, css)
	}
	if err != nil {
		return fmt.Errorf("save custom css: %w", err)
	}
	s.notify(deviceID, "style")
	return nil
}

// ApplyPreset stores the stylesheet of a named preset.
func (s *Service) ApplyPreset(ctx context.Context, deviceID, id string) error {
	p, ok := LookupPreset(id)
	if !ok {
		return ErrUnknownPreset
	}
	return s.SetCustomCSS(ctx, deviceID, p.CSS)
}

func (s *Service) notify(deviceID, reason string) {
	if s.notifier != nil {
		s.notifier.Notify(deviceID, StoreName, reason)
	}
}
