package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/penhub/pushkit/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []string // endpoints
	perSend map[string]error
}

func (f *fakeSender) Send(ctx context.Context, m *Mirror, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m.Endpoint)
	if f.perSend != nil {
		return f.perSend[m.Endpoint]
	}
	return nil
}

func postJSON(t *testing.T, h echo.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestSubscribeUpsertsByEndpoint(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, nil)

	req := SubscribeRequest{
		Endpoint: "https://push.example/ep-1",
		Keys:     platform.Keys{P256dh: "pk1", Auth: "ak1"},
	}
	rec := postJSON(t, h.Subscribe, "/push/subscribe", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var first SubscribeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.Success)
	assert.NotEmpty(t, first.SubscriptionID)

	// Same endpoint again with fresh keys: no duplicate, same identity.
	req.Keys = platform.Keys{P256dh: "pk2", Auth: "ak2"}
	rec = postJSON(t, h.Subscribe, "/push/subscribe", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var second SubscribeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)

	mirrors, err := store.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, mirrors, 1)
	assert.Equal(t, "pk2", mirrors[0].Keys.P256dh)
}

func TestSubscribeValidation(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), nil)

	rec := postJSON(t, h.Subscribe, "/push/subscribe", SubscribeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Subscribe, "/push/subscribe", SubscribeRequest{
		Endpoint: "https://push.example/ep-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnsubscribeUnknownEndpointSucceeds(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), nil)

	rec := postJSON(t, h.Unsubscribe, "/push/unsubscribe", UnsubscribeRequest{
		Endpoint: "https://push.example/never-registered",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnsubscribeRemovesMirror(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, nil)

	postJSON(t, h.Subscribe, "/push/subscribe", SubscribeRequest{
		Endpoint: "https://push.example/ep-1",
		Keys:     platform.Keys{P256dh: "pk", Auth: "ak"},
	})
	rec := postJSON(t, h.Unsubscribe, "/push/unsubscribe", UnsubscribeRequest{
		Endpoint: "https://push.example/ep-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	mirrors, err := store.List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, mirrors)
}

func TestTrackClose(t *testing.T) {
	store := NewMemoryStore()
	h := NewHandlers(store, nil)

	rec := postJSON(t, h.TrackClose, "/notifications/track-close", TrackCloseRequest{
		NotificationID: "note-1",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, store.CloseCount())

	rec = postJSON(t, h.TrackClose, "/notifications/track-close", TrackCloseRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishFansOutToActiveMirrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, &Mirror{Endpoint: "ep-1", Keys: platform.Keys{P256dh: "p", Auth: "a"}}))
	require.NoError(t, store.Upsert(ctx, &Mirror{Endpoint: "ep-2", Keys: platform.Keys{P256dh: "p", Auth: "a"}}))
	require.NoError(t, store.Upsert(ctx, &Mirror{Endpoint: "ep-dead", Keys: platform.Keys{P256dh: "p", Auth: "a"}}))
	require.NoError(t, store.MarkInactive(ctx, "ep-dead"))

	sender := &fakeSender{}
	h := NewHandlers(store, sender)

	rec := postJSON(t, h.Publish, "/push/publish", BlogEvent{
		Event:     EventCommentCreated,
		ArticleID: "A1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.ElementsMatch(t, []string{"ep-1", "ep-2"}, sender.sent)
}

func TestPublishMarksGoneEndpointsInactive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, &Mirror{Endpoint: "ep-gone", Keys: platform.Keys{P256dh: "p", Auth: "a"}}))

	sender := &fakeSender{perSend: map[string]error{"ep-gone": ErrEndpointGone}}
	h := NewHandlers(store, sender)

	rec := postJSON(t, h.Publish, "/push/publish", BlogEvent{Event: EventSystem})
	require.Equal(t, http.StatusOK, rec.Code)

	m, err := store.Get(ctx, "ep-gone")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.False(t, m.Active)
}

func TestPublishRejectsUnknownEvent(t *testing.T) {
	h := NewHandlers(NewMemoryStore(), &fakeSender{})

	rec := postJSON(t, h.Publish, "/push/publish", BlogEvent{Event: "mystery"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeRecordsTokenUser(t *testing.T) {
	secret := "test-secret"
	store := NewMemoryStore()
	e := echo.New()
	g := e.Group("", BearerAuth(secret))
	NewHandlers(store, nil).Mount(g)

	token, err := IssueToken(secret, "user-7", time.Hour)
	require.NoError(t, err)

	body, _ := json.Marshal(SubscribeRequest{
		Endpoint: "https://push.example/ep-1",
		Keys:     platform.Keys{P256dh: "pk", Auth: "ak"},
	})
	req := httptest.NewRequest(http.MethodPost, "/push/subscribe", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	m, err := store.Get(context.Background(), "https://push.example/ep-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "user-7", m.UserID)
}

func TestBearerAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	e := echo.New()
	g := e.Group("", BearerAuth(secret))
	NewHandlers(NewMemoryStore(), nil).Mount(g)

	body, _ := json.Marshal(UnsubscribeRequest{Endpoint: "e"})

	// Missing header.
	req := httptest.NewRequest(http.MethodPost, "/push/unsubscribe", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	req = httptest.NewRequest(http.MethodPost, "/push/unsubscribe", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	token, err := IssueToken(secret, "device-1", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/push/unsubscribe", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
