// Package ws is the multiplayer event channel: one websocket per browser
// tab, routed to rooms through the lobby and bound to a durable participant
// identity through the session manager.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blackjack-server/ai"
	"blackjack-server/config"
	"blackjack-server/gameerrors"
	"blackjack-server/lobby"
	"blackjack-server/room"
	"blackjack-server/session"
	"blackjack-server/wsutil"
)

// submitTimeout bounds how long a client waits for its room to apply an action.
const submitTimeout = 5 * time.Second

// Hub maintains the set of active clients and routes messages.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client

	rooms    *lobby.Registry
	sessions *session.Manager
	bots     *ai.Pool
	upgrader websocket.Upgrader

	// mu guards active, the connection currently bound to each session token.
	mu     sync.Mutex
	active map[string]*Client

	log *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, rooms *lobby.Registry, sessions *session.Manager, bots *ai.Pool) *Hub {
	origins := cfg.Origins()
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      rooms,
		sessions:   sessions,
		bots:       bots,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return len(origins) == 0 || slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
		active: make(map[string]*Client),
		log:    slog.Default().With("tag", "ws"),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("shutdown signal received, stopping")
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.log.Info("client connected", "session", client.token, "clients", len(h.clients))

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Info("client disconnected", "session", client.token, "clients", len(h.clients))
				go h.release(client)
			}
		}
	}
}

// ServeWS upgrades the request and binds the connection to a session. A
// known session_id query parameter resumes that session and rebinds its
// room seat; anything else opens a new session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	sess, resumed := h.bind(client, r.URL.Query().Get("session_id"))
	client.token = sess.Token
	client.playerID = sess.ParticipantID
	client.log = h.log.With("session", sess.Token, "player", sess.ParticipantID)

	h.Register <- client
	go client.WritePump()

	client.reply(SetSessionMsg{Type: "set_session_id", SessionID: sess.Token})
	if resumed && sess.RoomID != "" {
		h.rejoin(client, sess.RoomID)
	}
	// Reading starts last so the connection cannot be released before its
	// seat has been rebound.
	go client.ReadPump()
}

// bind resumes token or opens a new session, and records client as the
// session's live connection.
func (h *Hub) bind(client *Client, token string) (session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var (
		sess    session.Session
		resumed bool
	)
	if token != "" {
		var err error
		sess, err = h.sessions.Resume(token)
		resumed = err == nil
	}
	if !resumed {
		sess = h.sessions.Open()
	}
	h.active[sess.Token] = client
	return sess, resumed
}

// rejoin rebinds a resumed session to its room seat.
func (h *Hub) rejoin(c *Client, roomID string) {
	rm, err := h.rooms.Get(roomID)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		err = rm.Submit(ctx, room.Action{Type: room.ActionReconnected, PlayerID: c.playerID, Send: c.send})
	}
	if err != nil {
		// The room is gone or the seat expired; the client starts over in the lobby.
		c.log.Info("could not restore seat", "room", roomID, "err", err)
		h.sessions.Leave(c.token)
		return
	}
	c.log.Info("seat restored", "room", roomID)
}

// release runs after a connection closed. If no newer connection took over
// the session, the session starts expiring and the room seat enters its
// reconnection window.
func (h *Hub) release(c *Client) {
	h.mu.Lock()
	if h.active[c.token] != c {
		h.mu.Unlock()
		return
	}
	delete(h.active, c.token)
	sess, err := h.sessions.Get(c.token)
	if err == nil {
		err = h.sessions.Detach(c.token)
	}
	h.mu.Unlock()
	if err != nil || sess.RoomID == "" {
		return
	}

	rm, err := h.rooms.Get(sess.RoomID)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	err = rm.Submit(ctx, room.Action{Type: room.ActionDisconnected, PlayerID: c.playerID, Send: c.send})
	if err != nil && !errors.Is(err, gameerrors.ErrNotFound) {
		c.log.Warn("disconnect not applied", "room", sess.RoomID, "err", err)
	}
}

// Active reports the number of sessions with a live connection.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode message failed", "tag", "ws", "err", err)
		return nil
	}
	return data
}

func deliver(ch chan []byte, v any) {
	if data := encode(v); data != nil {
		wsutil.SafeSend(ch, data)
	}
}
