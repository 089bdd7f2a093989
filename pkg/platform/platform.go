// Package platform defines the narrow interfaces the push core needs from
// its runtime environment: feature probing, the user permission prompt, the
// push service, notification display, and open-window enumeration. A
// browser supplies all of these natively; in this codebase they are
// satisfied by Sim, a deterministic in-process implementation used by the
// agent harness and the tests.
package platform

import (
	"context"
	"encoding/json"
)

// Permission is the tri-state notification permission. The platform is the
// only writer; callers always re-read it rather than assuming a transition.
type Permission string

const (
	PermissionUndetermined Permission = "undetermined"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

// Capabilities reports which push-related platform features exist. The
// result is fixed for the process lifetime.
type Capabilities struct {
	ServiceWorker bool
	PushManager   bool
}

// Keys is the client keypair a sender uses to encrypt payloads end-to-end
// to one subscriber.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is an active agreement with the push delivery service.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Action is a button attached to a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is a fully rendered notification handed to the platform for
// display. Data is carried opaquely and handed back on interaction events,
// so the background context can reconstruct routing state from it alone.
type Notification struct {
	ID                 string
	Title              string
	Body               string
	Tag                string
	Icon               string
	Badge              string
	Actions            []Action
	RequireInteraction bool
	Silent             bool
	Data               json.RawMessage
}

// EventType discriminates events delivered into the background context.
type EventType string

const (
	EventPush  EventType = "push"
	EventClick EventType = "click"
	EventClose EventType = "close"
	EventSync  EventType = "sync"
)

// Event is a platform occurrence delivered to the background context.
// Exactly one of the payload fields is meaningful per type: Body for push,
// Notification+Action for click, Notification for close, Tag for sync.
type Event struct {
	Type         EventType
	Body         []byte
	Notification *Notification
	Action       string
	Tag          string
}

// Prober reports feature availability. Evaluated once at startup.
type Prober interface {
	Capabilities() Capabilities
}

// Prompter exposes the platform's authoritative permission value and the
// user prompt. RequestPermission may suspend indefinitely while the user
// decides; it must only be called when push is supported.
type Prompter interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
}

// PushService is the platform half of the subscription lifecycle.
type PushService interface {
	// RegisterWorker ensures the background delivery context is
	// registered. Idempotent.
	RegisterWorker(ctx context.Context) error

	// Existing returns the subscription already held for this
	// installation, or nil if none exists.
	Existing(ctx context.Context) (*Subscription, error)

	// Subscribe creates a new subscription using the sender's public
	// identity key. The platform rejects this while permission is not
	// granted.
	Subscribe(ctx context.Context, serverKey string) (*Subscription, error)

	// Unsubscribe revokes the subscription for endpoint. An error means
	// the platform still considers it live.
	Unsubscribe(ctx context.Context, endpoint string) error
}

// Notifier displays and closes notifications.
type Notifier interface {
	ShowNotification(ctx context.Context, n Notification) error
	CloseNotification(ctx context.Context, id string) error
}

// Window is one open UI instance.
type Window struct {
	ID  string
	URL string
}

// WindowManager enumerates and manipulates open UI instances.
type WindowManager interface {
	Windows(ctx context.Context) ([]Window, error)
	Focus(ctx context.Context, id string) error
	Open(ctx context.Context, url string) error
}
