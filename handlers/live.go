package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pulsewire/pulse/internal/comments"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/pulsewire/pulse/internal/posts"
	"github.com/pulsewire/pulse/pkg/logger"
)

// liveRequest is a client frame on the live socket.
type liveRequest struct {
	Action     string            `json:"action"` // "subscribe" | "unsubscribe"
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Filter     map[string]string `json:"filter,omitempty"`
	Descending bool              `json:"descending,omitempty"`
}

// liveSnapshot is a server frame: the full current result set for the
// subscription identified by ID. Deltas are never sent.
type liveSnapshot struct {
	ID   string      `json:"id"`
	Docs interface{} `json:"docs"`
}

var errUnknownCollection = errors.New("unknown collection")

type liveError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// LiveHandler upgrades /live to a WebSocket and multiplexes standing queries
// over it. Browser clients authenticate with ?token= since they cannot set
// headers on the WebSocket handshake; the auth middleware handles both forms.
type LiveHandler struct {
	postsSvc    *posts.Service
	commentsSvc *comments.Service
	upgrader    websocket.Upgrader
}

func NewLiveHandler(p *posts.Service, cm *comments.Service) *LiveHandler {
	return &LiveHandler{
		postsSvc:    p,
		commentsSvc: cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// bearer auth is the trust boundary, not the Origin header
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *LiveHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/live", h.Serve)
}

// Serve runs one live connection: a read loop dispatching subscribe and
// unsubscribe frames, with one forwarding goroutine per open subscription.
// Closing the connection cancels everything opened on it.
func (h *LiveHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("live upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	var writeMu sync.Mutex
	send := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	var subsMu sync.Mutex
	subs := map[string]func(){} // subscription id -> cancel
	defer func() {
		subsMu.Lock()
		for _, cancel := range subs {
			cancel()
		}
		subsMu.Unlock()
	}()

	for {
		var req liveRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		switch req.Action {
		case "subscribe":
			if req.ID == "" {
				_ = send(liveError{ID: req.ID, Error: "subscription id required"})
				continue
			}
			subsMu.Lock()
			_, dup := subs[req.ID]
			subsMu.Unlock()
			if dup {
				_ = send(liveError{ID: req.ID, Error: "subscription id already in use"})
				continue
			}
			cancel, err := h.open(ctx, req, send)
			if err != nil {
				_ = send(liveError{ID: req.ID, Error: err.Error()})
				continue
			}
			subsMu.Lock()
			subs[req.ID] = cancel
			subsMu.Unlock()
		case "unsubscribe":
			subsMu.Lock()
			if cancel, ok := subs[req.ID]; ok {
				cancel()
				delete(subs, req.ID)
			}
			subsMu.Unlock()
		default:
			_ = send(liveError{ID: req.ID, Error: "unknown action"})
		}
	}
}

// open starts the requested standing query and forwards its snapshots to the
// socket. Returns the cancel func for teardown.
func (h *LiveHandler) open(ctx context.Context, req liveRequest, send func(interface{}) error) (func(), error) {
	switch req.Collection {
	case models.CollectionPosts:
		if id := req.Filter["id"]; id != "" {
			sub := h.postsSvc.WatchOne(ctx, id)
			go forward(req.ID, sub.Snapshots(), send)
			return sub.Cancel, nil
		}
		if req.Descending {
			sub := h.postsSvc.WatchFeed(ctx)
			go forward(req.ID, sub.Snapshots(), send)
			return sub.Cancel, nil
		}
		sub := h.postsSvc.WatchAll(ctx)
		go forward(req.ID, sub.Snapshots(), send)
		return sub.Cancel, nil
	case models.CollectionComments:
		if postID := req.Filter["postId"]; postID != "" {
			sub := h.commentsSvc.WatchForPost(ctx, postID)
			go forward(req.ID, sub.Snapshots(), send)
			return sub.Cancel, nil
		}
		sub := h.commentsSvc.WatchAll(ctx)
		go forward(req.ID, sub.Snapshots(), send)
		return sub.Cancel, nil
	default:
		return nil, errUnknownCollection
	}
}

// forward relays full snapshots until the subscription channel closes. A
// write failure stops forwarding; the read loop will notice the broken
// connection and tear everything down.
func forward[T any](id string, snapshots <-chan []T, send func(interface{}) error) {
	for docs := range snapshots {
		if err := send(liveSnapshot{ID: id, Docs: docs}); err != nil {
			return
		}
	}
}
