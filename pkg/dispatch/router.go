package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/penhub/pushkit/pkg/platform"
)

// SyncTag is the reconciliation signal tag the platform fires when queued
// offline actions should be resynced.
const SyncTag = "penhub-resync"

// ActionClose is the reserved action that dismisses without navigating.
const ActionClose = "close"

// Telemetry records best-effort delivery signals. Failures are logged and
// never retried or surfaced.
type Telemetry interface {
	TrackClose(ctx context.Context, notificationID string, ts time.Time) error
}

// Router receives platform events in the background delivery context.
// Errors never escalate out of it: there is no synchronous caller waiting.
type Router struct {
	notifier  platform.Notifier
	windows   platform.WindowManager
	telemetry Telemetry
	resync    func(ctx context.Context) error
}

// NewRouter builds a router. telemetry and resync may be nil, disabling
// close tracking and offline resync respectively.
func NewRouter(notifier platform.Notifier, windows platform.WindowManager, telemetry Telemetry, resync func(ctx context.Context) error) *Router {
	return &Router{
		notifier:  notifier,
		windows:   windows,
		telemetry: telemetry,
		resync:    resync,
	}
}

// Run consumes events until the channel closes or ctx is cancelled.
func (r *Router) Run(ctx context.Context, events <-chan platform.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle dispatches one platform event.
func (r *Router) Handle(ctx context.Context, ev platform.Event) {
	switch ev.Type {
	case platform.EventPush:
		r.HandlePush(ctx, ev.Body)
	case platform.EventClick:
		r.HandleClick(ctx, ev.Notification, ev.Action)
	case platform.EventClose:
		r.HandleClose(ctx, ev.Notification)
	case platform.EventSync:
		r.HandleSync(ctx, ev.Tag)
	default:
		log.Printf("dispatch: ignoring unknown event type %q", ev.Type)
	}
}

// HandlePush renders exactly one notification per inbound payload,
// substituting the generic fallback when the body does not parse.
func (r *Router) HandlePush(ctx context.Context, body []byte) {
	payload, err := ParsePayload(body)
	if err != nil {
		log.Printf("dispatch: %v, showing fallback", err)
		payload = FallbackPayload()
	}
	if err := r.notifier.ShowNotification(ctx, Render(payload)); err != nil {
		log.Printf("dispatch: could not display notification: %v", err)
	}
}

// HandleClick closes the notification and navigates to its target unless
// the chosen action was the reserved close action. Navigation reuses an
// already open UI instance showing the target URL; otherwise exactly one
// new instance is opened.
func (r *Router) HandleClick(ctx context.Context, n *platform.Notification, action string) {
	if n == nil {
		return
	}
	if err := r.notifier.CloseNotification(ctx, n.ID); err != nil {
		log.Printf("dispatch: could not close notification %s: %v", n.ID, err)
	}
	if action == ActionClose {
		return
	}

	target := TargetURL(dataOf(n))

	windows, err := r.windows.Windows(ctx)
	if err != nil {
		log.Printf("dispatch: could not enumerate windows: %v", err)
		windows = nil
	}
	for _, w := range windows {
		if w.URL != target {
			continue
		}
		if err := r.windows.Focus(ctx, w.ID); err != nil {
			log.Printf("dispatch: could not focus window %s: %v", w.ID, err)
			continue
		}
		return
	}
	if err := r.windows.Open(ctx, target); err != nil {
		log.Printf("dispatch: could not open window for %s: %v", target, err)
	}
}

// HandleClose emits close telemetry when the payload asked for it.
func (r *Router) HandleClose(ctx context.Context, n *platform.Notification) {
	if n == nil || r.telemetry == nil {
		return
	}
	d := dataOf(n)
	if !d.TrackClose {
		return
	}
	id := d.ID
	if id == "" {
		id = n.ID
	}
	if err := r.telemetry.TrackClose(ctx, id, time.Now()); err != nil {
		log.Printf("dispatch: close tracking failed for %s: %v", id, err)
	}
}

// HandleSync runs the best-effort offline resync. Failure is logged only;
// the platform treats it as "retry later", which this core does not rely
// on for subscription-state correctness.
func (r *Router) HandleSync(ctx context.Context, tag string) {
	if tag != SyncTag || r.resync == nil {
		return
	}
	if err := r.resync(ctx); err != nil {
		log.Printf("dispatch: offline resync failed: %v", err)
	}
}
