package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveFrame struct {
	ID    string          `json:"id"`
	Docs  json.RawMessage `json:"docs"`
	Error string          `json:"error"`
}

func dialLive(t *testing.T, ts *testServer, token string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.engine)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads the next server frame for the given subscription id,
// skipping frames that belong to other subscriptions on the connection.
func readFrame(t *testing.T, conn *websocket.Conn, id string) liveFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var f liveFrame
		require.NoError(t, conn.ReadJSON(&f))
		if f.ID == id {
			return f
		}
		require.True(t, time.Now().Before(deadline), "no frame for subscription %s", id)
	}
}

func TestLiveFeedSubscription(t *testing.T) {
	ts := newTestServer(t)
	token, _, aliceID := ts.signup(t, "alice@example.com", "a-long-password")
	conn := dialLive(t, ts, token)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "feed", "collection": "posts", "descending": true,
	}))

	// eager initial snapshot: empty feed
	f := readFrame(t, conn, "feed")
	require.Empty(t, f.Error)
	var docs []models.Post
	require.NoError(t, json.Unmarshal(f.Docs, &docs))
	assert.Len(t, docs, 0)

	// a write through the mutation API shows up as a fresh full snapshot
	p, err := ts.postsSvc.Create(context.Background(), aliceID, "alice@example.com", "breaking news")
	require.NoError(t, err)

	for {
		f = readFrame(t, conn, "feed")
		require.NoError(t, json.Unmarshal(f.Docs, &docs))
		if len(docs) == 1 {
			break
		}
	}
	assert.Equal(t, p.ID, docs[0].ID)
	assert.Equal(t, "breaking news", docs[0].Content)
}

func TestLiveCommentFilterIsolation(t *testing.T) {
	ts := newTestServer(t)
	token, _, aliceID := ts.signup(t, "alice@example.com", "a-long-password")
	conn := dialLive(t, ts, token)

	target, err := ts.postsSvc.Create(context.Background(), aliceID, "alice@example.com", "watched post")
	require.NoError(t, err)
	other, err := ts.postsSvc.Create(context.Background(), aliceID, "alice@example.com", "other post")
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "detail", "collection": "comments",
		"filter": map[string]string{"postId": target.ID},
	}))
	f := readFrame(t, conn, "detail")
	require.Empty(t, f.Error)

	// comments on other posts invalidate the collection but never leak into
	// this subscription's snapshots
	_, err = ts.commentsSvc.Create(context.Background(), other.ID, aliceID, "alice@example.com", "elsewhere")
	require.NoError(t, err)
	_, err = ts.commentsSvc.Create(context.Background(), target.ID, aliceID, "alice@example.com", "on target")
	require.NoError(t, err)

	var docs []models.Comment
	for {
		f = readFrame(t, conn, "detail")
		require.NoError(t, json.Unmarshal(f.Docs, &docs))
		if len(docs) > 0 {
			break
		}
	}
	require.Len(t, docs, 1)
	assert.Equal(t, target.ID, docs[0].PostID)
	assert.Equal(t, "on target", docs[0].Content)
}

func TestLiveSinglePostDeletedSignal(t *testing.T) {
	ts := newTestServer(t)
	token, _, aliceID := ts.signup(t, "alice@example.com", "a-long-password")
	conn := dialLive(t, ts, token)

	p, err := ts.postsSvc.Create(context.Background(), aliceID, "alice@example.com", "short lived")
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "one", "collection": "posts",
		"filter": map[string]string{"id": p.ID},
	}))
	f := readFrame(t, conn, "one")
	var docs []models.Post
	require.NoError(t, json.Unmarshal(f.Docs, &docs))
	require.Len(t, docs, 1)

	// deletion produces an empty snapshot, not an error
	require.NoError(t, ts.postsSvc.Delete(context.Background(), p.ID))
	for {
		f = readFrame(t, conn, "one")
		require.Empty(t, f.Error)
		require.NoError(t, json.Unmarshal(f.Docs, &docs))
		if len(docs) == 0 {
			break
		}
	}
}

func TestLiveSubscriptionErrors(t *testing.T) {
	ts := newTestServer(t)
	token, _, _ := ts.signup(t, "alice@example.com", "a-long-password")
	conn := dialLive(t, ts, token)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "bad", "collection": "profiles",
	}))
	f := readFrame(t, conn, "bad")
	assert.Equal(t, "unknown collection", f.Error)

	// duplicate subscription ids are rejected
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "dup", "collection": "posts",
	}))
	f = readFrame(t, conn, "dup")
	require.Empty(t, f.Error)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "dup", "collection": "posts",
	}))
	f = readFrame(t, conn, "dup")
	assert.Equal(t, "subscription id already in use", f.Error)
}

func TestLiveRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.engine)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 401, resp.StatusCode)
}

func TestLiveUnsubscribeStopsFrames(t *testing.T) {
	ts := newTestServer(t)
	token, _, aliceID := ts.signup(t, "alice@example.com", "a-long-password")
	conn := dialLive(t, ts, token)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe", "id": "feed", "collection": "posts", "descending": true,
	}))
	_ = readFrame(t, conn, "feed")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "unsubscribe", "id": "feed",
	}))
	// give the cancel a moment to unregister before writing
	time.Sleep(50 * time.Millisecond)

	_, err := ts.postsSvc.Create(context.Background(), aliceID, "alice@example.com", "unseen")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var f liveFrame
	readErr := conn.ReadJSON(&f)
	assert.Error(t, readErr, fmt.Sprintf("expected no frame after unsubscribe, got %+v", f))
}
