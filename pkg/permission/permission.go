// Package permission negotiates the user's notification permission with
// the platform and publishes every observed change.
package permission

import (
	"context"
	"sync"

	"github.com/penhub/pushkit/pkg/capability"
	"github.com/penhub/pushkit/pkg/observe"
	"github.com/penhub/pushkit/pkg/platform"
)

// Negotiator tracks the tri-state permission. The platform holds the
// authoritative value; the negotiator re-reads it after every prompt
// rather than assuming a transition, because the user can change it
// out-of-band in platform settings.
type Negotiator struct {
	detector *capability.Detector
	prompter platform.Prompter
	changes  *observe.Publisher[platform.Permission]

	mu   sync.Mutex
	last platform.Permission
}

// NewNegotiator creates a negotiator over the given platform prompter.
func NewNegotiator(d *capability.Detector, p platform.Prompter) *Negotiator {
	n := &Negotiator{
		detector: d,
		prompter: p,
		changes:  observe.NewPublisher[platform.Permission](),
		last:     platform.PermissionUndetermined,
	}
	if d.Supported() {
		n.last = p.Permission()
	}
	return n
}

// Current reads the platform permission without prompting. Side-effect
// free and safe to call anytime; returns undetermined when push is
// unsupported.
func (n *Negotiator) Current() platform.Permission {
	if !n.detector.Supported() {
		return platform.PermissionUndetermined
	}
	return n.prompter.Permission()
}

// Request prompts the user and returns the platform's value afterwards.
// It suspends until the user decides or ctx is cancelled. Prompting an
// already decided permission is not special-cased; the platform resolves
// it immediately. Fails with capability.ErrUnsupported when push is
// unavailable.
func (n *Negotiator) Request(ctx context.Context) (platform.Permission, error) {
	if err := n.detector.Check(); err != nil {
		return platform.PermissionUndetermined, err
	}

	if _, err := n.prompter.RequestPermission(ctx); err != nil {
		return platform.PermissionUndetermined, err
	}

	// Re-read the authoritative value rather than trusting the prompt
	// result: the user may have flipped it in settings meanwhile.
	current := n.prompter.Permission()
	n.publishIfChanged(current)
	return current, nil
}

// Observe registers fn for permission changes and returns a cancel
// function. Changes are delivered synchronously in the order they occur.
func (n *Negotiator) Observe(fn func(platform.Permission)) func() {
	return n.changes.Subscribe(fn)
}

func (n *Negotiator) publishIfChanged(p platform.Permission) {
	n.mu.Lock()
	changed := p != n.last
	n.last = p
	n.mu.Unlock()
	if changed {
		n.changes.Publish(p)
	}
}
