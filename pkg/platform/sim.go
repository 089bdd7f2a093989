package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SimConfig controls the starting state of a simulated platform.
type SimConfig struct {
	ServiceWorker bool
	PushManager   bool
	// Permission is the platform's value before any prompt.
	Permission Permission
	// PromptResponse is what the simulated user answers when prompted.
	// Prompting when Permission is already decided re-resolves to the
	// decided value without consulting PromptResponse.
	PromptResponse Permission
}

// Sim is an in-process platform: it stands in for the browser runtime and
// the push service at once. All interface methods are safe for concurrent
// use. The error fields inject failures for the next matching call; tests
// set them before invoking the operation under test.
type Sim struct {
	PromptErr      error
	ExistingErr    error
	SubscribeErr   error
	UnsubscribeErr error
	ShowErr        error

	mu               sync.Mutex
	caps             Capabilities
	permission       Permission
	promptResponse   Permission
	promptGate       chan struct{}
	promptWaiters    int
	workerRegistered bool
	current          *Subscription
	subscribeCalls   int
	shown            []Notification
	windows          []Window
	lastFocused      string
	events           chan Event
}

// NewSim creates a simulated platform from cfg.
func NewSim(cfg SimConfig) *Sim {
	perm := cfg.Permission
	if perm == "" {
		perm = PermissionUndetermined
	}
	resp := cfg.PromptResponse
	if resp == "" {
		resp = PermissionGranted
	}
	return &Sim{
		caps:           Capabilities{ServiceWorker: cfg.ServiceWorker, PushManager: cfg.PushManager},
		permission:     perm,
		promptResponse: resp,
		events:         make(chan Event, 16),
	}
}

// NewSupportedSim creates a fully capable platform whose user grants the
// permission prompt.
func NewSupportedSim() *Sim {
	return NewSim(SimConfig{ServiceWorker: true, PushManager: true})
}

func (s *Sim) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *Sim) Permission() Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// SetPermission models the user changing the decision out-of-band in the
// platform settings. Revoking a granted permission also invalidates any
// live subscription, as the real platform does.
func (s *Sim) SetPermission(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = p
	if p != PermissionGranted {
		s.current = nil
	}
}

// HoldPrompt makes the next prompts suspend until the returned release
// function is called, modeling a user who has not answered yet.
func (s *Sim) HoldPrompt() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.promptGate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

func (s *Sim) RequestPermission(ctx context.Context) (Permission, error) {
	s.mu.Lock()
	if s.PromptErr != nil {
		err := s.PromptErr
		s.mu.Unlock()
		return PermissionUndetermined, err
	}
	gate := s.promptGate
	if gate != nil {
		s.promptWaiters++
	}
	s.mu.Unlock()

	if gate != nil {
		defer func() {
			s.mu.Lock()
			s.promptWaiters--
			s.mu.Unlock()
		}()
		select {
		case <-gate:
		case <-ctx.Done():
			return PermissionUndetermined, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// An already decided permission resolves without a user choice.
	if s.permission == PermissionUndetermined {
		s.permission = s.promptResponse
	}
	return s.permission, nil
}

// PromptWaiters reports how many callers are currently parked in a held
// prompt.
func (s *Sim) PromptWaiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptWaiters
}

func (s *Sim) RegisterWorker(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.caps.ServiceWorker {
		return fmt.Errorf("service workers are not available")
	}
	s.workerRegistered = true
	return nil
}

func (s *Sim) Existing(ctx context.Context) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExistingErr != nil {
		return nil, s.ExistingErr
	}
	if s.current == nil {
		return nil, nil
	}
	sub := *s.current
	return &sub, nil
}

func (s *Sim) Subscribe(ctx context.Context, serverKey string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeCalls++
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	if !s.caps.PushManager {
		return nil, fmt.Errorf("push manager is not available")
	}
	if !s.workerRegistered {
		return nil, fmt.Errorf("no delivery context registered")
	}
	if s.permission != PermissionGranted {
		return nil, fmt.Errorf("permission is %s", s.permission)
	}
	if serverKey == "" {
		return nil, fmt.Errorf("server identity key is required")
	}
	if s.current != nil {
		sub := *s.current
		return &sub, nil
	}
	s.current = &Subscription{
		Endpoint: "https://push.sim.invalid/send/" + uuid.New().String(),
		Keys: Keys{
			P256dh: uuid.New().String(),
			Auth:   uuid.New().String(),
		},
	}
	sub := *s.current
	return &sub, nil
}

func (s *Sim) Unsubscribe(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UnsubscribeErr != nil {
		return s.UnsubscribeErr
	}
	if s.current == nil || s.current.Endpoint != endpoint {
		return fmt.Errorf("no subscription for endpoint %s", endpoint)
	}
	s.current = nil
	return nil
}

// SubscribeCalls reports how many times Subscribe was invoked, failures
// included.
func (s *Sim) SubscribeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeCalls
}

func (s *Sim) ShowNotification(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ShowErr != nil {
		return s.ShowErr
	}
	// Same tag replaces the prior notification instead of stacking.
	if n.Tag != "" {
		for i, prev := range s.shown {
			if prev.Tag == n.Tag {
				s.shown[i] = n
				return nil
			}
		}
	}
	s.shown = append(s.shown, n)
	return nil
}

func (s *Sim) CloseNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.shown {
		if n.ID == id {
			s.shown = append(s.shown[:i], s.shown[i+1:]...)
			return nil
		}
	}
	return nil
}

// Shown returns the currently displayed notifications in display order.
func (s *Sim) Shown() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.shown))
	copy(out, s.shown)
	return out
}

func (s *Sim) Windows(ctx context.Context) ([]Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Window, len(s.windows))
	copy(out, s.windows)
	return out, nil
}

func (s *Sim) Focus(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windows {
		if w.ID == id {
			s.lastFocused = id
			return nil
		}
	}
	return fmt.Errorf("no window %s", id)
}

func (s *Sim) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := Window{ID: uuid.New().String(), URL: url}
	s.windows = append(s.windows, w)
	s.lastFocused = w.ID
	return nil
}

// AddWindow registers an already open UI instance and returns its ID.
func (s *Sim) AddWindow(url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := Window{ID: uuid.New().String(), URL: url}
	s.windows = append(s.windows, w)
	return w.ID
}

// LastFocused returns the ID of the most recently focused or opened window.
func (s *Sim) LastFocused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFocused
}

// Events is the delivery channel into the background context.
func (s *Sim) Events() <-chan Event {
	return s.events
}

// Push delivers a raw payload as the push service would.
func (s *Sim) Push(body []byte) {
	s.events <- Event{Type: EventPush, Body: body}
}

// Click synthesizes a user click on a displayed notification.
func (s *Sim) Click(notificationID, action string) error {
	s.mu.Lock()
	var target *Notification
	for i := range s.shown {
		if s.shown[i].ID == notificationID {
			n := s.shown[i]
			target = &n
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return fmt.Errorf("no displayed notification %s", notificationID)
	}
	s.events <- Event{Type: EventClick, Notification: target, Action: action}
	return nil
}

// Dismiss synthesizes the user closing a notification without interacting.
func (s *Sim) Dismiss(notificationID string) error {
	s.mu.Lock()
	var target *Notification
	for i := range s.shown {
		if s.shown[i].ID == notificationID {
			n := s.shown[i]
			target = &n
			s.shown = append(s.shown[:i], s.shown[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return fmt.Errorf("no displayed notification %s", notificationID)
	}
	s.events <- Event{Type: EventClose, Notification: target}
	return nil
}

// TriggerSync fires a background reconciliation signal.
func (s *Sim) TriggerSync(tag string) {
	s.events <- Event{Type: EventSync, Tag: tag}
}
