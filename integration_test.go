package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"blackjack-server/config"
	"blackjack-server/storage"
)

// setupTestServer runs the full server stack over an in-memory store.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.AI = config.AIParams{DelayMinMS: 1, DelayMaxMS: 2}

	ctx, cancel := context.WithCancel(context.Background())
	handler, wait := newServer(ctx, cfg, storage.NewMemoryStore(), nil)
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		cancel()
		wait()
	})
	return server
}

// connectWS dials the server and consumes the set_session_id greeting.
func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if msg := readMsg(t, conn); msg["type"] != "set_session_id" {
		t.Fatalf("expected set_session_id, got %v", msg)
	}
	return conn
}

// readMsg reads a JSON message from the WebSocket and returns it as a map.
func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to parse message: %v", err)
	}
	return msg
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for range 100 {
		if msg := readMsg(t, conn); msg["type"] == typ {
			return msg
		}
	}
	t.Fatalf("no %s message received", typ)
	return nil
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
}

func postJSON(t *testing.T, client *http.Client, url, body string, v any) int {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("POST %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestTwoPlayersPlayARoundAndItIsRecorded(t *testing.T) {
	server := setupTestServer(t)
	client := server.Client()

	var created struct {
		Success bool   `json:"success"`
		RoomID  string `json:"room_id"`
	}
	if code := postJSON(t, client, server.URL+"/api/create-room", `{"room_name":"Integration"}`, &created); code != http.StatusOK || !created.Success {
		t.Fatalf("create-room: status %d, %+v", code, created)
	}
	roomID := created.RoomID

	alice := connectWS(t, server)
	bob := connectWS(t, server)
	conns := map[string]*websocket.Conn{}

	sendMsg(t, alice, map[string]string{"type": "join_room", "room_id": roomID, "player_name": "Alice"})
	conns[readUntil(t, alice, "room_data")["you"].(string)] = alice
	sendMsg(t, bob, map[string]string{"type": "join_room", "room_id": roomID, "player_name": "Bob"})
	conns[readUntil(t, bob, "room_data")["you"].(string)] = bob

	for _, c := range []*websocket.Conn{alice, bob} {
		sendMsg(t, c, map[string]string{"type": "player_ready", "room_id": roomID})
	}
	for msg := readUntil(t, alice, "game_update"); msg["game_state"] != "betting"; msg = readUntil(t, alice, "game_update") {
	}
	for _, c := range []*websocket.Conn{alice, bob} {
		sendMsg(t, c, map[string]any{"type": "place_bet", "room_id": roomID, "bet_amount": 50})
	}

	// Alice watches the table and stands for whoever holds the turn.
	var final map[string]any
	for final == nil {
		msg := readUntil(t, alice, "game_update")
		switch msg["game_state"] {
		case "game_over":
			final = msg
		case "playing":
			id, _ := msg["current_player_id"].(string)
			if c, ok := conns[id]; ok {
				sendMsg(t, c, map[string]string{"type": "stand", "room_id": roomID})
			}
		}
	}
	players, _ := final["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("expected two players in the settled round, got %v", final["players"])
	}

	// Rounds are persisted asynchronously.
	var rounds []storage.RoomRound
	deadline := time.Now().Add(2 * time.Second)
	for len(rounds) == 0 && time.Now().Before(deadline) {
		getJSON(t, client, server.URL+"/api/game-records/"+roomID, &rounds)
		if len(rounds) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if len(rounds) != 1 || len(rounds[0].Players) != 2 || rounds[0].RoomName != "Integration" {
		t.Fatalf("unexpected game records %+v", rounds)
	}

	var stats storage.PlayerStats
	for stats.GamesPlayed == 0 && time.Now().Before(deadline) {
		getJSON(t, client, server.URL+"/api/player-stats/Alice", &stats)
		if stats.GamesPlayed == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if stats.GamesPlayed != 1 {
		t.Errorf("expected one game for Alice, got %+v", stats)
	}
}

func TestSoloAndMultiplayerShareOneServer(t *testing.T) {
	server := setupTestServer(t)
	client := server.Client()

	var state map[string]any
	getJSON(t, client, server.URL+"/api/game-state", &state)
	if state["game_state"] != "betting" || state["player_money"] != float64(1000) {
		t.Fatalf("unexpected solo state %v", state)
	}

	var rooms []map[string]any
	getJSON(t, client, server.URL+"/api/rooms", &rooms)
	if len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %v", rooms)
	}

	conn := connectWS(t, server)
	sendMsg(t, conn, map[string]string{"type": "create_room", "room_name": "Shared"})
	roomID := readUntil(t, conn, "room_created")["room_id"].(string)

	getJSON(t, client, server.URL+"/api/rooms", &rooms)
	if len(rooms) != 1 || rooms[0]["room_id"] != roomID {
		t.Errorf("expected the websocket room over HTTP, got %v", rooms)
	}
}

func TestShutdownWaitsForBackgroundWork(t *testing.T) {
	cfg := config.Defaults()
	cfg.AI = config.AIParams{DelayMinMS: 1, DelayMaxMS: 2}
	ctx, cancel := context.WithCancel(context.Background())
	handler, wait := newServer(ctx, cfg, storage.NewMemoryStore(), nil)
	server := httptest.NewServer(handler)
	defer server.Close()

	var created struct {
		RoomID string `json:"room_id"`
	}
	postJSON(t, server.Client(), server.URL+"/api/create-room", `{"room_name":"Bots"}`, &created)
	if code := postJSON(t, server.Client(), server.URL+"/api/add-ai-player", `{"room_id":"`+created.RoomID+`","difficulty":"easy"}`, nil); code != http.StatusOK {
		t.Fatalf("add-ai-player: status %d", code)
	}

	cancel()
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("wait did not return after shutdown")
	}
}
