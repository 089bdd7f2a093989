package registry

import (
	"context"
	"testing"

	"github.com/penhub/pushkit/pkg/platform"
)

func TestJanitorSweepRemovesOnlyInactive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Upsert(ctx, &Mirror{Endpoint: "live", Keys: platform.Keys{P256dh: "p", Auth: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, &Mirror{Endpoint: "dead", Keys: platform.Keys{P256dh: "p", Auth: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkInactive(ctx, "dead"); err != nil {
		t.Fatal(err)
	}

	j, err := NewJanitor(store, "@hourly")
	if err != nil {
		t.Fatalf("NewJanitor failed: %v", err)
	}
	j.Sweep()

	all, err := store.List(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Endpoint != "live" {
		t.Errorf("expected only the live mirror to remain, got %+v", all)
	}
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	if _, err := NewJanitor(NewMemoryStore(), "not a schedule"); err == nil {
		t.Error("expected invalid schedule to be rejected")
	}
}
