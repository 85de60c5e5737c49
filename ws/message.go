package ws

import (
	"encoding/json"

	"blackjack-server/room"
)

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// JoinRoomMsg seats the connection's participant in a room.
type JoinRoomMsg struct {
	Type       string `json:"type"`
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

// RoomMsg is the payload of every in-room action without arguments:
// player_ready, hit, stand, double_down, next_round and leave_room.
type RoomMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// PlaceBetMsg is sent during betting.
type PlaceBetMsg struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	BetAmount int    `json:"bet_amount"`
}

// CreateRoomMsg opens a new room.
type CreateRoomMsg struct {
	Type     string `json:"type"`
	RoomName string `json:"room_name"`
}

// AddAIPlayerMsg seats a bot in a room.
type AddAIPlayerMsg struct {
	Type       string `json:"type"`
	RoomID     string `json:"room_id"`
	Difficulty string `json:"difficulty"`
}

// RemoveAIPlayerMsg takes a bot out of a room.
type RemoveAIPlayerMsg struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent to the caller only when one of its actions fails.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SetSessionMsg hands the client its session token, once per connection.
type SetSessionMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// RoomCreatedMsg answers create_room.
type RoomCreatedMsg struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

// RoomListMsg answers list_rooms.
type RoomListMsg struct {
	Type  string         `json:"type"`
	Rooms []room.Summary `json:"rooms"`
}

// AIPlayerAddedMsg answers add_ai_player. The room itself announces the bot
// to every occupant with player_joined.
type AIPlayerAddedMsg struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}
