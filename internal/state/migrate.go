package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashureev/pocketos/internal/desktop"
	"github.com/ashureev/pocketos/internal/domain"
)

// ErrFutureVersion is returned when a stored blob was written by a newer build.
var ErrFutureVersion = errors.New("snapshot version is newer than supported")

// Step upgrades a decoded blob from version N to N+1.
type Step func(doc map[string]any) (map[string]any, error)

// Chain is the ordered list of upgrades for one named blob. Steps[i] moves a
// document from version i to i+1, so the current version is len(Steps).
type Chain struct {
	Name  string
	Steps []Step
}

// Version returns the version written by this build.
func (c Chain) Version() int {
	return len(c.Steps)
}

// Upgrade applies every step from version up to the current version.
func (c Chain) Upgrade(doc map[string]any, version int) (map[string]any, error) {
	if version > c.Version() {
		return nil, fmt.Errorf("%s v%d (current v%d): %w", c.Name, version, c.Version(), ErrFutureVersion)
	}
	if version < 0 {
		version = 0
	}
	for v := version; v < c.Version(); v++ {
		next, err := c.Steps[v](doc)
		if err != nil {
			return nil, fmt.Errorf("migrate %s v%d to v%d: %w", c.Name, v, v+1, err)
		}
		doc = next
	}
	return doc, nil
}

// Decode upgrades raw to the current version and unmarshals it into out.
// Empty data leaves out untouched.
func (c Chain) Decode(data []byte, version int, out any) error {
	if len(data) == 0 {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", c.Name, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	doc, err := c.Upgrade(doc, version)
	if err != nil {
		return err
	}
	upgraded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Name, err)
	}
	if err := json.Unmarshal(upgraded, out); err != nil {
		return fmt.Errorf("decode %s: %w", c.Name, err)
	}
	return nil
}

// AppChain upgrades the app-storage blob.
var AppChain = Chain{
	Name: domain.AppSnapshot,
	Steps: []Step{
		appAddMasks,
		appAddContactMemory,
	},
}

// OSChain upgrades the os-storage blob.
var OSChain = Chain{
	Name: domain.OSSnapshot,
	Steps: []Step{
		osAddIconsAndLayout,
		osAddStatusBar,
	},
}

func appAddMasks(doc map[string]any) (map[string]any, error) {
	profile, ok := doc["userProfile"].(map[string]any)
	if !ok {
		return doc, nil
	}
	if _, ok := profile["masks"]; !ok {
		profile["masks"] = []any{}
	}
	if _, ok := profile["activeMaskId"]; !ok {
		profile["activeMaskId"] = nil
	}
	return doc, nil
}

func appAddContactMemory(doc map[string]any) (map[string]any, error) {
	contacts, ok := doc["contacts"].([]any)
	if !ok {
		return doc, nil
	}
	for i, raw := range contacts {
		c, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("contact %d is %T, want object", i, raw)
		}
		if _, ok := c["memoryDepth"]; !ok {
			c["memoryDepth"] = domain.DefaultMemoryDepth
		}
		if _, ok := c["chatRules"]; !ok {
			c["chatRules"] = []any{}
		}
	}
	return doc, nil
}

func osAddIconsAndLayout(doc map[string]any) (map[string]any, error) {
	if _, ok := doc["customIcons"]; !ok {
		doc["customIcons"] = map[string]any{}
	}
	if _, ok := doc["desktopLayout"]; !ok {
		layout := desktop.DefaultLayout()
		ids := make([]any, len(layout))
		for i, id := range layout {
			ids[i] = id
		}
		doc["desktopLayout"] = ids
	}
	return doc, nil
}

func osAddStatusBar(doc map[string]any) (map[string]any, error) {
	if _, ok := doc["showStatusBar"]; !ok {
		doc["showStatusBar"] = true
	}
	return doc, nil
}
