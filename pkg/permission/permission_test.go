package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/penhub/pushkit/pkg/capability"
	"github.com/penhub/pushkit/pkg/platform"
)

func TestCurrentWhenUnsupported(t *testing.T) {
	sim := platform.NewSim(platform.SimConfig{Permission: platform.PermissionGranted})
	n := NewNegotiator(capability.Detect(sim), sim)

	if got := n.Current(); got != platform.PermissionUndetermined {
		t.Errorf("expected undetermined on unsupported platform, got %s", got)
	}
}

func TestRequestWhenUnsupported(t *testing.T) {
	sim := platform.NewSim(platform.SimConfig{})
	n := NewNegotiator(capability.Detect(sim), sim)

	if _, err := n.Request(context.Background()); !errors.Is(err, capability.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestRequestGrantPublishesChange(t *testing.T) {
	sim := platform.NewSupportedSim()
	n := NewNegotiator(capability.Detect(sim), sim)

	var seen []platform.Permission
	cancel := n.Observe(func(p platform.Permission) { seen = append(seen, p) })
	defer cancel()

	perm, err := n.Request(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if perm != platform.PermissionGranted {
		t.Errorf("expected granted, got %s", perm)
	}
	if len(seen) != 1 || seen[0] != platform.PermissionGranted {
		t.Errorf("expected one granted change, got %v", seen)
	}

	// A second request of a decided permission is a no-op transition.
	if _, err := n.Request(context.Background()); err != nil {
		t.Fatalf("second Request failed: %v", err)
	}
	if len(seen) != 1 {
		t.Errorf("expected no further change events, got %v", seen)
	}
}

func TestRequestDenied(t *testing.T) {
	sim := platform.NewSim(platform.SimConfig{
		ServiceWorker:  true,
		PushManager:    true,
		PromptResponse: platform.PermissionDenied,
	})
	n := NewNegotiator(capability.Detect(sim), sim)

	perm, err := n.Request(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if perm != platform.PermissionDenied {
		t.Errorf("expected denied, got %s", perm)
	}
}

func TestRequestReReadsOutOfBandValue(t *testing.T) {
	sim := platform.NewSim(platform.SimConfig{
		ServiceWorker: true,
		PushManager:   true,
		Permission:    platform.PermissionGranted,
	})
	n := NewNegotiator(capability.Detect(sim), sim)

	// The user revokes in settings; the next request must report the
	// platform's value, not a cached grant.
	sim.SetPermission(platform.PermissionDenied)

	perm, err := n.Request(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if perm != platform.PermissionDenied {
		t.Errorf("expected denied after out-of-band revocation, got %s", perm)
	}
	if got := n.Current(); got != platform.PermissionDenied {
		t.Errorf("Current() = %s, want denied", got)
	}
}

func TestRequestPromptError(t *testing.T) {
	sim := platform.NewSupportedSim()
	sim.PromptErr = errors.New("prompt unavailable")
	n := NewNegotiator(capability.Detect(sim), sim)

	if _, err := n.Request(context.Background()); err == nil {
		t.Error("expected prompt error to propagate")
	}
}
