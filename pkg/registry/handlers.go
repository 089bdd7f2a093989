package registry

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handlers serves the registry HTTP contract.
type Handlers struct {
	store  Store
	sender PushSender
}

// NewHandlers creates the handler set. sender may be nil, in which case
// publish requests are stored-only (mirrors kept, nothing delivered).
func NewHandlers(store Store, sender PushSender) *Handlers {
	return &Handlers{store: store, sender: sender}
}

// Mount registers all registry routes on g.
func (h *Handlers) Mount(g *echo.Group) {
	g.POST("/push/subscribe", h.Subscribe)
	g.POST("/push/unsubscribe", h.Unsubscribe)
	g.POST("/push/publish", h.Publish)
	g.POST("/notifications/track-close", h.TrackClose)
}

// Subscribe handles POST /push/subscribe.
func (h *Handlers) Subscribe(c echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Endpoint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Endpoint is required")
	}
	if req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Keys with p256dh and auth are required")
	}

	mirror := &Mirror{Endpoint: req.Endpoint, Keys: req.Keys}
	if claims, ok := c.Get("claims").(*Claims); ok {
		mirror.UserID = claims.UserID
	}
	if err := h.store.Upsert(c.Request().Context(), mirror); err != nil {
		log.Printf("registry: failed to store mirror for %s: %v", req.Endpoint, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store subscription")
	}

	return c.JSON(http.StatusOK, SubscribeResponse{
		Success:        true,
		SubscriptionID: mirror.ID,
	})
}

// Unsubscribe handles POST /push/unsubscribe. Unknown endpoints succeed:
// the device has already committed its local removal and the goal is only
// that no stale mirror remains.
func (h *Handlers) Unsubscribe(c echo.Context) error {
	var req UnsubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Endpoint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Endpoint is required")
	}

	if err := h.store.Delete(c.Request().Context(), req.Endpoint); err != nil {
		log.Printf("registry: failed to delete mirror for %s: %v", req.Endpoint, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete subscription")
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// TrackClose handles POST /notifications/track-close. Best-effort by
// contract: accepted as long as the body parses.
func (h *Handlers) TrackClose(c echo.Context) error {
	var req TrackCloseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.NotificationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "notificationId is required")
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if err := h.store.RecordClose(c.Request().Context(), req.NotificationID, ts); err != nil {
		// Telemetry loss is acceptable; the caller never retries.
		log.Printf("registry: failed to record close for %s: %v", req.NotificationID, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// Publish handles POST /push/publish: maps a blog event to a payload and
// fans it out to every active mirror. Per-endpoint failures never fail
// the request; endpoints the push service reports gone are marked
// inactive for the janitor.
func (h *Handlers) Publish(c echo.Context) error {
	var ev BlogEvent
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	payload, err := BuildPayload(ev)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to encode payload")
	}

	ctx := c.Request().Context()
	mirrors, err := h.store.List(ctx, true)
	if err != nil {
		log.Printf("registry: failed to list mirrors: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load subscriptions")
	}

	delivered := 0
	if h.sender != nil {
		for _, m := range mirrors {
			if err := h.sender.Send(ctx, m, body); err != nil {
				if errors.Is(err, ErrEndpointGone) {
					if markErr := h.store.MarkInactive(ctx, m.Endpoint); markErr != nil {
						log.Printf("registry: failed to mark %s inactive: %v", m.Endpoint, markErr)
					}
				} else {
					log.Printf("registry: delivery to %s failed: %v", m.Endpoint, err)
				}
				continue
			}
			delivered++
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"delivered": delivered,
		"mirrors":   len(mirrors),
	})
}
