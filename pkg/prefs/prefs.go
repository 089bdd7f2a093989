// Package prefs persists which notification categories the user wants
// surfaced. The record is a local display concern owned by the UI layer;
// the server never sees it.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/penhub/pushkit/pkg/dispatch"
)

// Category is a user-facing notification category.
type Category string

const (
	CategoryComments Category = "comments"
	CategoryLikes    Category = "likes"
	CategoryMentions Category = "mentions"
	CategoryArticles Category = "articles"
	CategorySystem   Category = "system"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryComments,
	CategoryLikes,
	CategoryMentions,
	CategoryArticles,
	CategorySystem,
}

// payload types → category. Unknown types are always surfaced.
var categoryOf = map[string]Category{
	dispatch.TypeComment:          CategoryComments,
	dispatch.TypeLike:             CategoryLikes,
	dispatch.TypeFollow:           CategoryMentions,
	dispatch.TypeArticlePublished: CategoryArticles,
	dispatch.TypeSystem:           CategorySystem,
}

// Record maps categories to enabled/disabled.
type Record map[Category]bool

// DefaultRecord enables every category.
func DefaultRecord() Record {
	r := make(Record, len(Categories))
	for _, c := range Categories {
		r[c] = true
	}
	return r
}

// Allows reports whether a payload of the given type should be surfaced.
func (r Record) Allows(payloadType string) bool {
	c, ok := categoryOf[payloadType]
	if !ok {
		return true
	}
	enabled, ok := r[c]
	if !ok {
		return true
	}
	return enabled
}

const fileName = "pushNotificationSettings.json"

// Store persists the record in the local state directory. Missing or
// unreadable state yields the default all-enabled record.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, fileName)}
}

// Load reads the persisted record, filling unknown categories with their
// defaults so a record written by an older version stays usable.
func (s *Store) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRecord(), nil
		}
		return DefaultRecord(), fmt.Errorf("failed to read preferences: %w", err)
	}

	var stored Record
	if err := json.Unmarshal(data, &stored); err != nil {
		return DefaultRecord(), fmt.Errorf("failed to decode preferences: %w", err)
	}

	r := DefaultRecord()
	for _, c := range Categories {
		if v, ok := stored[c]; ok {
			r[c] = v
		}
	}
	return r, nil
}

// Toggle sets one category and persists the full record, leaving all
// other categories at their prior values.
func (s *Store) Toggle(c Category, enabled bool) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.load()
	if err != nil {
		return nil, err
	}
	r[c] = enabled

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write preferences: %w", err)
	}
	return r, nil
}
