// Package dispatch runs in the background delivery context: it turns
// inbound push payloads into displayed notifications and user clicks into
// navigation, holding no reference to main-application state.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/penhub/pushkit/pkg/platform"
)

// Fixed chrome used when a payload leaves assets unspecified.
const (
	DefaultIcon  = "/assets/icons/icon-192x192.png"
	DefaultBadge = "/assets/icons/badge-72x72.png"

	fallbackTitle = "Penhub"
	fallbackBody  = "You have a new notification"
)

// Known payload data types.
const (
	TypeComment          = "comment"
	TypeLike             = "like"
	TypeFollow           = "follow"
	TypeArticlePublished = "article_published"
	TypeSystem           = "system"
)

// Data is the routing context carried inside a payload. It is the only
// state available when the user later interacts with the notification.
type Data struct {
	Type       string `json:"type,omitempty"`
	ArticleID  string `json:"articleId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	URL        string `json:"url,omitempty"`
	TrackClose bool   `json:"trackClose,omitempty"`
	ID         string `json:"id,omitempty"`
}

// Payload is the inbound push wire format. Every field is optional;
// absent fields fall back to fixed defaults at render time.
type Payload struct {
	Title              string            `json:"title,omitempty"`
	Body               string            `json:"body,omitempty"`
	Tag                string            `json:"tag,omitempty"`
	Icon               string            `json:"icon,omitempty"`
	Badge              string            `json:"badge,omitempty"`
	Data               *Data             `json:"data,omitempty"`
	Actions            []platform.Action `json:"actions,omitempty"`
	RequireInteraction bool              `json:"requireInteraction,omitempty"`
	Silent             bool              `json:"silent,omitempty"`
}

// ParsePayload decodes an inbound payload body.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed push payload: %w", err)
	}
	return &p, nil
}

// FallbackPayload is shown when a payload cannot be parsed. Push delivery
// is at-most-once, so dropping a malformed event would lose it for good;
// a generic notification keeps the user aware at the cost of detail.
func FallbackPayload() *Payload {
	return &Payload{Title: fallbackTitle, Body: fallbackBody}
}

// Render merges a payload with the fixed platform chrome into a
// displayable notification.
func Render(p *Payload) platform.Notification {
	n := platform.Notification{
		ID:                 uuid.New().String(),
		Title:              p.Title,
		Body:               p.Body,
		Tag:                p.Tag,
		Icon:               p.Icon,
		Badge:              p.Badge,
		Actions:            p.Actions,
		RequireInteraction: p.RequireInteraction,
		Silent:             p.Silent,
	}
	if n.Title == "" {
		n.Title = fallbackTitle
	}
	if n.Body == "" {
		n.Body = fallbackBody
	}
	if n.Icon == "" {
		n.Icon = DefaultIcon
	}
	if n.Badge == "" {
		n.Badge = DefaultBadge
	}
	if p.Data != nil {
		if p.Data.ID != "" {
			n.ID = p.Data.ID
		}
		if raw, err := json.Marshal(p.Data); err == nil {
			n.Data = raw
		}
	}
	return n
}

// dataOf reconstructs routing context from a displayed notification.
func dataOf(n *platform.Notification) Data {
	var d Data
	if n == nil || len(n.Data) == 0 {
		return d
	}
	// Undecodable data degrades to the zero value, which routes to the
	// site root.
	_ = json.Unmarshal(n.Data, &d)
	return d
}
