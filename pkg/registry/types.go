// Package registry implements both ends of the subscription registry
// contract: the client the device core uses to mirror its subscription
// state, and the HTTP service holding the mirrors and fanning out pushes.
package registry

import (
	"time"

	"github.com/penhub/pushkit/pkg/platform"
)

// SubscribeRequest is the body of POST /push/subscribe.
type SubscribeRequest struct {
	Endpoint string        `json:"endpoint"`
	Keys     platform.Keys `json:"keys"`
}

// SubscribeResponse acknowledges a stored mirror.
type SubscribeResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscription_id"`
}

// UnsubscribeRequest is the body of POST /push/unsubscribe.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// TrackCloseRequest is the body of POST /notifications/track-close.
type TrackCloseRequest struct {
	NotificationID string    `json:"notificationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// Blog event names accepted by POST /push/publish.
const (
	EventCommentCreated   = "comment_created"
	EventArticleLiked     = "article_liked"
	EventUserFollowed     = "user_followed"
	EventArticlePublished = "article_published"
	EventSystem           = "system"
)

// BlogEvent is an application occurrence the registry turns into a push
// payload and fans out to every active mirror.
type BlogEvent struct {
	Event          string `json:"event"`
	ArticleID      string `json:"articleId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`
	Title          string `json:"title,omitempty"`
	Body           string `json:"body,omitempty"`
}

// Mirror is the registry's copy of one device subscription. The device is
// authoritative for existence; the mirror is authoritative for "can the
// server reach this device". Active turns false when the push service
// reports the endpoint gone.
type Mirror struct {
	ID         string        `json:"id"`
	Endpoint   string        `json:"endpoint"`
	Keys       platform.Keys `json:"keys"`
	UserID     string        `json:"user_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	LastSeenAt time.Time     `json:"last_seen_at"`
	Active     bool          `json:"active"`
}
