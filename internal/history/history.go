// Package history keeps the bounded, most-recent-first list of generated
// images and persists it between runs.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/pysugar/visionary-studio/internal/db"
	"gorm.io/gorm"
)

const (
	// Limit is the maximum number of entries kept.
	Limit = 20

	// StorageKey is the settings key holding the serialized list.
	StorageKey = "visionary_history"
)

// ErrMalformedState means persisted history could not be parsed.
var ErrMalformedState = errors.New("malformed history state")

// GeneratedImage is one successful generation.
type GeneratedImage struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	Timestamp   int64  `json:"timestamp"`
}

// History is ordered most-recent-first and never exceeds Limit entries.
// It is not safe for concurrent use.
type History struct {
	items []GeneratedImage
}

// New builds a history from items, which are assumed most-recent-first.
// Entries beyond Limit are dropped.
func New(items []GeneratedImage) *History {
	if len(items) > Limit {
		items = items[:Limit]
	}
	return &History{items: append([]GeneratedImage(nil), items...)}
}

// Add prepends img and evicts the oldest entry past Limit.
func (h *History) Add(img GeneratedImage) {
	h.items = append([]GeneratedImage{img}, h.items...)
	if len(h.items) > Limit {
		h.items = h.items[:Limit]
	}
}

// Remove deletes the entry with id. It reports whether anything was removed.
func (h *History) Remove(id string) bool {
	for i, it := range h.items {
		if it.ID == id {
			h.items = append(h.items[:i], h.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the entry with id.
func (h *History) Get(id string) (GeneratedImage, bool) {
	for _, it := range h.items {
		if it.ID == id {
			return it, true
		}
	}
	return GeneratedImage{}, false
}

// Items returns a copy of the entries.
func (h *History) Items() []GeneratedImage {
	return append([]GeneratedImage(nil), h.items...)
}

func (h *History) Len() int { return len(h.items) }

// Store persists a History.
type Store interface {
	Load() (*History, error)
	Save(h *History) error
}

// SettingsStore keeps history as JSON in the settings table.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(database *gorm.DB) *SettingsStore {
	return &SettingsStore{db: database}
}

// Load returns the stored history. Malformed JSON is logged and discarded,
// yielding an empty history and no error.
func (s *SettingsStore) Load() (*History, error) {
	raw, ok, err := db.GetSetting(s.db, StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return New(nil), nil
	}

	items, err := Decode(raw)
	if err != nil {
		log.Printf("⚠️ [History] Discarding stored history: %v", err)
		return New(nil), nil
	}
	return New(items), nil
}

func (s *SettingsStore) Save(h *History) error {
	raw, err := json.Marshal(h.Items())
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return db.SetSetting(s.db, StorageKey, string(raw))
}

// Decode parses serialized history.
func Decode(raw string) ([]GeneratedImage, error) {
	var items []GeneratedImage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return items, nil
}
