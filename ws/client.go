package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"blackjack-server/dealer"
	"blackjack-server/gameerrors"
	"blackjack-server/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	token    string
	playerID string
	log      *slog.Logger
}

// ReadPump pumps messages from the websocket connection to the hub.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read error", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	var err error
	switch envelope.Type {
	case "join_room":
		err = c.handleJoinRoom(ctx, envelope.Raw)
	case "leave_room":
		err = c.handleLeaveRoom(ctx, envelope.Raw)
	case "player_ready":
		err = c.handleRoomAction(ctx, envelope.Raw, room.ActionReady)
	case "hit":
		err = c.handleRoomAction(ctx, envelope.Raw, room.ActionHit)
	case "stand":
		err = c.handleRoomAction(ctx, envelope.Raw, room.ActionStand)
	case "double_down":
		err = c.handleRoomAction(ctx, envelope.Raw, room.ActionDoubleDown)
	case "next_round":
		err = c.handleRoomAction(ctx, envelope.Raw, room.ActionNextRound)
	case "place_bet":
		err = c.handlePlaceBet(ctx, envelope.Raw)
	case "create_room":
		err = c.handleCreateRoom(envelope.Raw)
	case "list_rooms":
		err = c.handleListRooms()
	case "add_ai_player":
		err = c.handleAddAIPlayer(ctx, envelope.Raw)
	case "remove_ai_player":
		err = c.handleRemoveAIPlayer(ctx, envelope.Raw)
	default:
		c.sendError("Unknown message type: " + envelope.Type)
		return
	}
	if err != nil {
		c.log.Debug("action failed", "type", envelope.Type, "err", err)
		c.sendError(err.Error())
	}
}

func decodeMsg(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return gameerrors.Validation("Invalid message payload.")
	}
	return nil
}

func (c *Client) handleJoinRoom(ctx context.Context, raw json.RawMessage) error {
	var msg JoinRoomMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return err
	}
	sess, err := c.hub.sessions.Get(c.token)
	if err != nil {
		return err
	}
	if _, err := c.hub.rooms.Get(msg.RoomID); err != nil {
		return err
	}
	if sess.RoomID != "" && sess.RoomID != msg.RoomID {
		if prev, err := c.hub.rooms.Get(sess.RoomID); err == nil {
			if err := prev.Submit(ctx, room.Action{Type: room.ActionLeave, PlayerID: c.playerID}); err != nil {
				c.log.Debug("leave previous room failed", "room", sess.RoomID, "err", err)
			}
		}
		c.hub.sessions.Leave(c.token)
	}

	req := room.JoinRequest{PlayerID: c.playerID, Name: msg.PlayerName, Send: c.send}
	if _, err := c.hub.rooms.Join(ctx, msg.RoomID, req); err != nil {
		return err
	}
	return c.hub.sessions.Attach(c.token, msg.RoomID)
}

func (c *Client) handleLeaveRoom(ctx context.Context, raw json.RawMessage) error {
	rm, err := c.currentRoom(raw)
	if err != nil {
		return err
	}
	if err := rm.Submit(ctx, room.Action{Type: room.ActionLeave, PlayerID: c.playerID}); err != nil {
		return err
	}
	return c.hub.sessions.Leave(c.token)
}

func (c *Client) handleRoomAction(ctx context.Context, raw json.RawMessage, t room.ActionType) error {
	rm, err := c.currentRoom(raw)
	if err != nil {
		return err
	}
	return rm.Submit(ctx, room.Action{Type: t, PlayerID: c.playerID})
}

func (c *Client) handlePlaceBet(ctx context.Context, raw json.RawMessage) error {
	var msg PlaceBetMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return err
	}
	rm, err := c.currentRoom(raw)
	if err != nil {
		return err
	}
	return rm.Submit(ctx, room.Action{Type: room.ActionBet, PlayerID: c.playerID, Amount: msg.BetAmount})
}

// currentRoom returns the room the session is seated in. A room_id in the
// payload must name that room.
func (c *Client) currentRoom(raw json.RawMessage) (*room.Room, error) {
	var msg RoomMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return nil, err
	}
	sess, err := c.hub.sessions.Get(c.token)
	if err != nil {
		return nil, err
	}
	if sess.RoomID == "" {
		return nil, gameerrors.State("You are not in a room.")
	}
	if msg.RoomID != "" && msg.RoomID != sess.RoomID {
		return nil, gameerrors.State("You are not in that room.")
	}
	return c.hub.rooms.Get(sess.RoomID)
}

func (c *Client) handleCreateRoom(raw json.RawMessage) error {
	var msg CreateRoomMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return err
	}
	rm, err := c.hub.rooms.Create(msg.RoomName)
	if err != nil {
		return err
	}
	c.reply(RoomCreatedMsg{Type: "room_created", Success: true, RoomID: rm.ID, RoomName: rm.Name})
	return nil
}

func (c *Client) handleListRooms() error {
	rooms := []room.Summary{}
	for s := range c.hub.rooms.List() {
		rooms = append(rooms, s)
	}
	c.reply(RoomListMsg{Type: "room_list", Rooms: rooms})
	return nil
}

func (c *Client) handleAddAIPlayer(ctx context.Context, raw json.RawMessage) error {
	var msg AddAIPlayerMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return err
	}
	d, err := dealer.ParseDifficulty(msg.Difficulty)
	if err != nil {
		return err
	}
	rm, err := c.hub.rooms.Get(msg.RoomID)
	if err != nil {
		return err
	}
	seat, err := c.hub.bots.Add(ctx, rm, d)
	if err != nil {
		return err
	}
	c.reply(AIPlayerAddedMsg{Type: "ai_player_added", RoomID: rm.ID, PlayerID: seat.PlayerID, Name: seat.Name})
	return nil
}

func (c *Client) handleRemoveAIPlayer(ctx context.Context, raw json.RawMessage) error {
	var msg RemoveAIPlayerMsg
	if err := decodeMsg(raw, &msg); err != nil {
		return err
	}
	rm, err := c.hub.rooms.Get(msg.RoomID)
	if err != nil {
		return err
	}
	return c.hub.bots.Remove(ctx, rm, msg.PlayerID)
}

func (c *Client) reply(v any) {
	deliver(c.send, v)
}

func (c *Client) sendError(message string) {
	c.reply(ErrorMsg{Type: "error", Message: message})
}
