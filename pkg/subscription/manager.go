// Package subscription owns the lifecycle of the single push subscription
// for this installation: create, recover, revoke, and keep the remote
// registry's mirror in sync.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/penhub/pushkit/pkg/capability"
	"github.com/penhub/pushkit/pkg/observe"
	"github.com/penhub/pushkit/pkg/permission"
	"github.com/penhub/pushkit/pkg/platform"
)

var (
	// ErrPermissionDenied means the user declined notifications. Only a
	// change in platform settings recovers from this.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrCreationFailed wraps any failure while registering the delivery
	// context or exchanging keys with the push service. Recoverable by an
	// explicit user retry; never retried automatically.
	ErrCreationFailed = errors.New("push subscription could not be created")

	// ErrUnsubscribeFailed means the platform refused revocation. Local
	// state is kept: the platform still considers the subscription live.
	ErrUnsubscribeFailed = errors.New("push service refused to revoke the subscription")

	// ErrNoSubscription means there is nothing to unsubscribe.
	ErrNoSubscription = errors.New("no push subscription exists")

	// ErrOperationInProgress means another subscribe/unsubscribe holds
	// the lifecycle lock. A transient busy state, not a hard failure.
	ErrOperationInProgress = errors.New("another subscription operation is in progress")
)

// Registry mirrors the local subscription state remotely. Both calls are
// fire-and-forget for local correctness: the manager commits its state
// before calling and only logs failures.
type Registry interface {
	Register(ctx context.Context, sub platform.Subscription) error
	Deregister(ctx context.Context, endpoint string) error
}

// Manager is the single owner of the installation's subscription. The
// local copy is authoritative for "do we have a subscription"; the remote
// registry holds a mirror kept eventually consistent by push-on-change.
type Manager struct {
	detector   *capability.Detector
	negotiator *permission.Negotiator
	push       platform.PushService
	registry   Registry
	serverKey  string
	changes    *observe.Publisher[*platform.Subscription]

	// op serializes Subscribe and Unsubscribe. Acquired with TryLock so
	// a concurrent caller fails fast instead of queuing a second prompt
	// behind one the user may never answer.
	op sync.Mutex

	mu      sync.Mutex
	current *platform.Subscription
}

// NewManager wires the subscription state machine. serverKey is the fixed
// server identity (VAPID public) key; rotating it invalidates existing
// subscriptions and is out of scope here.
func NewManager(d *capability.Detector, n *permission.Negotiator, push platform.PushService, reg Registry, serverKey string) *Manager {
	return &Manager{
		detector:   d,
		negotiator: n,
		push:       push,
		registry:   reg,
		serverKey:  serverKey,
		changes:    observe.NewPublisher[*platform.Subscription](),
	}
}

// Current returns the live subscription, or nil.
func (m *Manager) Current() *platform.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	sub := *m.current
	return &sub
}

// Observe registers fn for subscription changes and returns a cancel
// function. A nil value means the subscription was removed.
func (m *Manager) Observe(fn func(*platform.Subscription)) func() {
	return m.changes.Subscribe(fn)
}

// Recover adopts a subscription the platform already holds for this
// installation, without contacting the registry (an existing subscription
// is assumed registered). It never fails: absence of a subscription is a
// normal state, so platform errors are reduced to a nil result plus a
// logged warning.
func (m *Manager) Recover(ctx context.Context) *platform.Subscription {
	if !m.detector.Supported() {
		return nil
	}
	sub, err := m.push.Existing(ctx)
	if err != nil {
		log.Printf("push: could not recover existing subscription: %v", err)
		return nil
	}
	if sub == nil {
		return nil
	}
	m.setCurrent(sub)
	return sub
}

// Subscribe establishes the subscription for this installation. It is
// idempotent: with a live subscription it returns it unchanged and makes
// no platform or registry call. Fails fast with ErrOperationInProgress
// when another lifecycle call is in flight.
func (m *Manager) Subscribe(ctx context.Context) (*platform.Subscription, error) {
	if err := m.detector.Check(); err != nil {
		return nil, err
	}
	if !m.op.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer m.op.Unlock()

	perm := m.negotiator.Current()
	if perm != platform.PermissionGranted {
		var err error
		perm, err = m.negotiator.Request(ctx)
		if err != nil {
			return nil, err
		}
	}
	if perm != platform.PermissionGranted {
		return nil, ErrPermissionDenied
	}

	if cur := m.Current(); cur != nil {
		return cur, nil
	}

	if err := m.push.RegisterWorker(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	sub, err := m.push.Subscribe(ctx, m.serverKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	m.setCurrent(sub)

	// Local state is committed; the mirror is best-effort.
	if err := m.registry.Register(ctx, *sub); err != nil {
		log.Printf("push: registry sync failed for %s: %v", sub.Endpoint, err)
	}
	return sub, nil
}

// Unsubscribe revokes the live subscription. The platform is asked first;
// local state is cleared only on its confirmation, so the manager never
// believes a subscription gone that the platform still considers live.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if !m.op.TryLock() {
		return ErrOperationInProgress
	}
	defer m.op.Unlock()

	cur := m.Current()
	if cur == nil {
		return ErrNoSubscription
	}

	if err := m.push.Unsubscribe(ctx, cur.Endpoint); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsubscribeFailed, err)
	}

	m.setCurrent(nil)

	if err := m.registry.Deregister(ctx, cur.Endpoint); err != nil {
		log.Printf("push: registry deregister failed for %s: %v", cur.Endpoint, err)
	}
	return nil
}

func (m *Manager) setCurrent(sub *platform.Subscription) {
	m.mu.Lock()
	same := (m.current == nil && sub == nil) ||
		(m.current != nil && sub != nil && m.current.Endpoint == sub.Endpoint)
	if sub == nil {
		m.current = nil
	} else {
		copied := *sub
		m.current = &copied
	}
	m.mu.Unlock()
	if !same {
		m.changes.Publish(sub)
	}
}
