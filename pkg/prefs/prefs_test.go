package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/penhub/pushkit/pkg/dispatch"
)

func TestLoadDefaultsWhenNoRecordExists(t *testing.T) {
	s := NewStore(t.TempDir())

	r, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, c := range Categories {
		if !r[c] {
			t.Errorf("expected %s enabled by default", c)
		}
	}
}

func TestTogglePersistsOnlyThatChange(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if _, err := s.Toggle(CategoryLikes, false); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	// A reload through a fresh store models a new session.
	reloaded, err := NewStore(dir).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded[CategoryLikes] {
		t.Error("expected likes disabled after toggle")
	}
	for _, c := range Categories {
		if c == CategoryLikes {
			continue
		}
		if !reloaded[c] {
			t.Errorf("expected %s to retain its prior value", c)
		}
	}
}

func TestSequentialTogglesAccumulate(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if _, err := s.Toggle(CategoryComments, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Toggle(CategorySystem, false); err != nil {
		t.Fatal(err)
	}

	r, err := NewStore(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if r[CategoryComments] || r[CategorySystem] {
		t.Errorf("expected both toggles persisted, got %v", r)
	}
	if !r[CategoryLikes] || !r[CategoryMentions] || !r[CategoryArticles] {
		t.Errorf("expected untouched categories enabled, got %v", r)
	}
}

func TestLoadFillsMissingCategories(t *testing.T) {
	dir := t.TempDir()
	// A record from an older version that predates some categories.
	err := os.WriteFile(filepath.Join(dir, "pushNotificationSettings.json"),
		[]byte(`{"comments": false}`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	r, err := NewStore(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	if r[CategoryComments] {
		t.Error("expected stored comments=false to be honored")
	}
	if !r[CategoryArticles] {
		t.Error("expected missing categories to default to enabled")
	}
}

func TestAllows(t *testing.T) {
	r := DefaultRecord()
	r[CategoryLikes] = false

	if r.Allows(dispatch.TypeLike) {
		t.Error("expected disabled category to filter its payload type")
	}
	if !r.Allows(dispatch.TypeComment) {
		t.Error("expected enabled category to pass")
	}
	if !r.Allows("unknown_type") {
		t.Error("expected unknown payload types to always surface")
	}
}
