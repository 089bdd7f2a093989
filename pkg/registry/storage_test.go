package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/penhub/pushkit/pkg/platform"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreUpsertRefreshesInsteadOfDuplicating(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := &Mirror{Endpoint: "ep-1", Keys: platform.Keys{P256dh: "pk1", Auth: "ak1"}}
			if err := store.Upsert(ctx, first); err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
			if first.ID == "" {
				t.Fatal("expected an assigned ID")
			}

			second := &Mirror{Endpoint: "ep-1", Keys: platform.Keys{P256dh: "pk2", Auth: "ak2"}}
			if err := store.Upsert(ctx, second); err != nil {
				t.Fatalf("second Upsert failed: %v", err)
			}
			if second.ID != first.ID {
				t.Errorf("expected stable identity, got %s then %s", first.ID, second.ID)
			}

			all, err := store.List(ctx, false)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("expected 1 mirror, got %d", len(all))
			}
			if all[0].Keys.P256dh != "pk2" {
				t.Errorf("expected refreshed keys, got %s", all[0].Keys.P256dh)
			}
		})
	}
}

func TestStoreGetUnknownEndpoint(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			m, err := store.Get(context.Background(), "never-registered")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if m != nil {
				t.Errorf("expected nil for unknown endpoint, got %+v", m)
			}
		})
	}
}

func TestStoreInactiveLifecycle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, ep := range []string{"ep-1", "ep-2", "ep-3"} {
				if err := store.Upsert(ctx, &Mirror{Endpoint: ep, Keys: platform.Keys{P256dh: "p", Auth: "a"}}); err != nil {
					t.Fatal(err)
				}
			}
			if err := store.MarkInactive(ctx, "ep-2"); err != nil {
				t.Fatalf("MarkInactive failed: %v", err)
			}

			active, err := store.List(ctx, true)
			if err != nil {
				t.Fatal(err)
			}
			if len(active) != 2 {
				t.Errorf("expected 2 active mirrors, got %d", len(active))
			}

			removed, err := store.DeleteInactive(ctx)
			if err != nil {
				t.Fatalf("DeleteInactive failed: %v", err)
			}
			if removed != 1 {
				t.Errorf("expected 1 removed, got %d", removed)
			}

			all, err := store.List(ctx, false)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 2 {
				t.Errorf("expected 2 mirrors after sweep, got %d", len(all))
			}
		})
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Upsert(ctx, &Mirror{Endpoint: "ep-1", Keys: platform.Keys{P256dh: "p", Auth: "a"}}); err != nil {
				t.Fatal(err)
			}
			if err := store.Delete(ctx, "ep-1"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := store.Delete(ctx, "ep-1"); err != nil {
				t.Errorf("second Delete should be a no-op, got %v", err)
			}
		})
	}
}

func TestStoreRecordClose(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.RecordClose(context.Background(), "note-1", time.Now()); err != nil {
				t.Fatalf("RecordClose failed: %v", err)
			}
		})
	}
}

func TestNewStoreFactory(t *testing.T) {
	store, err := NewStore(StorageConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("memory factory failed: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected MemoryStore, got %T", store)
	}

	store, err = NewStore(StorageConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "f.db")})
	if err != nil {
		t.Fatalf("sqlite factory failed: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("expected SQLiteStore, got %T", store)
	}

	if _, err := NewStore(StorageConfig{Type: "bogus"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}
