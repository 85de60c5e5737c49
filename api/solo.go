package api

import (
	"net/http"

	"blackjack-server/solo"
)

type placeBetRequest struct {
	Amount     int    `json:"amount"`
	Difficulty string `json:"difficulty"`
}

func splitHit(hand int) func(*solo.Table) error {
	return func(t *solo.Table) error { return t.SplitHit(hand) }
}

func splitStand(hand int) func(*solo.Table) error {
	return func(t *solo.Table) error { return t.SplitStand(hand) }
}

func (h *Handler) gameState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.solo.Get(h.visitor(w, r)))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	stats, err := h.solo.History(r.Context(), h.visitor(w, r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) placeBet(w http.ResponseWriter, r *http.Request) {
	key := h.visitor(w, r)
	var req placeBetRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, key, func(t *solo.Table) error { return t.PlaceBet(req.Amount, req.Difficulty) })
}

// soloAction adapts a body-less table operation to a handler.
func (h *Handler) soloAction(fn func(*solo.Table) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, r, h.visitor(w, r), fn)
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, key string, fn func(*solo.Table) error) {
	snap, err := h.solo.Do(r.Context(), key, fn)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
