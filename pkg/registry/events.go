package registry

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/penhub/pushkit/pkg/dispatch"
	"github.com/penhub/pushkit/pkg/platform"
)

// BuildPayload turns a blog event into the push wire payload delivered to
// devices. Title and body default per event type; the event may override
// both.
func BuildPayload(ev BlogEvent) (*dispatch.Payload, error) {
	var title, body, payloadType, tag string

	switch ev.Event {
	case EventCommentCreated:
		title = "New comment"
		body = "Someone commented on your article"
		payloadType = dispatch.TypeComment
		tag = "comments"
	case EventArticleLiked:
		title = "New like"
		body = "Someone liked your article"
		payloadType = dispatch.TypeLike
		tag = "likes"
	case EventUserFollowed:
		title = "New follower"
		body = "Someone started following you"
		payloadType = dispatch.TypeFollow
		tag = "followers"
	case EventArticlePublished:
		title = "New article"
		body = "An author you follow published an article"
		payloadType = dispatch.TypeArticlePublished
		tag = "articles"
	case EventSystem:
		title = "Penhub"
		body = "You have a new notification"
		payloadType = dispatch.TypeSystem
		tag = "system"
	default:
		return nil, fmt.Errorf("unknown event type: %s", ev.Event)
	}

	if ev.Title != "" {
		title = ev.Title
	}
	if ev.Body != "" {
		body = ev.Body
	}

	notificationID := ev.NotificationID
	if notificationID == "" {
		notificationID = uuid.New().String()
	}

	return &dispatch.Payload{
		Title: title,
		Body:  body,
		Tag:   tag,
		Data: &dispatch.Data{
			Type:       payloadType,
			ArticleID:  ev.ArticleID,
			UserID:     ev.UserID,
			ID:         notificationID,
			TrackClose: true,
		},
		Actions: []platform.Action{
			{Action: "open", Title: "Open"},
			{Action: dispatch.ActionClose, Title: "Dismiss"},
		},
	}, nil
}
