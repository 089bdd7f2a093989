package registry

import (
	"testing"

	"github.com/penhub/pushkit/pkg/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayloadMapsEventTypes(t *testing.T) {
	tests := []struct {
		event     string
		wantType  string
		targetURL string
	}{
		{EventCommentCreated, dispatch.TypeComment, "/article/A1#comments"},
		{EventArticleLiked, dispatch.TypeLike, "/article/A1"},
		{EventUserFollowed, dispatch.TypeFollow, "/profile/U1"},
		{EventArticlePublished, dispatch.TypeArticlePublished, "/article/A1"},
		{EventSystem, dispatch.TypeSystem, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			p, err := BuildPayload(BlogEvent{Event: tt.event, ArticleID: "A1", UserID: "U1"})
			require.NoError(t, err)
			require.NotNil(t, p.Data)
			assert.Equal(t, tt.wantType, p.Data.Type)
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.Body)
			assert.NotEmpty(t, p.Data.ID, "payloads carry a notification ID for close tracking")
			assert.True(t, p.Data.TrackClose)

			// The device-side router must be able to route this payload.
			assert.Equal(t, tt.targetURL, dispatch.TargetURL(*p.Data))
		})
	}
}

func TestBuildPayloadOverrides(t *testing.T) {
	p, err := BuildPayload(BlogEvent{
		Event:          EventSystem,
		Title:          "Maintenance tonight",
		Body:           "Penhub will be briefly unavailable",
		NotificationID: "maint-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maintenance tonight", p.Title)
	assert.Equal(t, "Penhub will be briefly unavailable", p.Body)
	assert.Equal(t, "maint-42", p.Data.ID)
}

func TestBuildPayloadUnknownEvent(t *testing.T) {
	_, err := BuildPayload(BlogEvent{Event: "mystery"})
	assert.Error(t, err)
}
