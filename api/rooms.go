package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"blackjack-server/dealer"
	"blackjack-server/room"
	"blackjack-server/storage"
)

type createRoomRequest struct {
	RoomName string `json:"room_name"`
}

type addAIRequest struct {
	RoomID     string `json:"room_id"`
	Difficulty string `json:"difficulty"`
}

type removeAIRequest struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rm, err := h.rooms.Create(req.RoomName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "room_id": rm.ID})
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	list := slices.Collect(h.rooms.List())
	if list == nil {
		list = []room.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) addAIPlayer(w http.ResponseWriter, r *http.Request) {
	var req addAIRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	d, err := dealer.ParseDifficulty(req.Difficulty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rm, err := h.rooms.Get(req.RoomID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	seat, err := h.bots.Add(r.Context(), rm, d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"player_id":  seat.PlayerID,
		"name":       seat.Name,
		"difficulty": seat.Difficulty,
	})
}

func (h *Handler) removeAIPlayer(w http.ResponseWriter, r *http.Request) {
	var req removeAIRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rm, err := h.rooms.Get(req.RoomID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.bots.Remove(r.Context(), rm, req.PlayerID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) gameRecords(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.store.ListRoomRounds(r.Context(), chi.URLParam(r, "roomID"), 0)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rounds == nil {
		rounds = []storage.RoomRound{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (h *Handler) playerStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "playerName")
	stats, err := h.store.GetPlayerStats(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if stats == nil {
		stats = &storage.PlayerStats{PlayerKey: name, Name: name}
	}
	writeJSON(w, http.StatusOK, stats)
}
