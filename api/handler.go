// Package api is the HTTP surface: the single-player endpoints, room
// creation and listing, AI seat management and the stats read-back.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blackjack-server/ai"
	"blackjack-server/auth"
	"blackjack-server/config"
	"blackjack-server/gameerrors"
	"blackjack-server/lobby"
	"blackjack-server/solo"
	"blackjack-server/storage"
)

const visitorCookie = "visitor_id"

// Handler holds dependencies for API handlers.
type Handler struct {
	cfg      *config.Config
	solo     *solo.Manager
	rooms    *lobby.Registry
	bots     *ai.Pool
	store    storage.StatsStore
	verifier *auth.Verifier
	log      *slog.Logger
}

// NewHandler creates a new API handler. A nil verifier serves everyone as an
// anonymous visitor.
func NewHandler(cfg *config.Config, sm *solo.Manager, rooms *lobby.Registry, bots *ai.Pool, store storage.StatsStore, verifier *auth.Verifier) *Handler {
	return &Handler{
		cfg:      cfg,
		solo:     sm,
		rooms:    rooms,
		bots:     bots,
		store:    store,
		verifier: verifier,
		log:      slog.Default().With("tag", "api"),
	}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.cors)
	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/game-state", h.gameState)
		r.Get("/history", h.history)
		r.Post("/place-bet", h.placeBet)
		r.Post("/start-game", h.soloAction((*solo.Table).Start))
		r.Post("/hit", h.soloAction((*solo.Table).Hit))
		r.Post("/stand", h.soloAction((*solo.Table).Stand))
		r.Post("/double-down", h.soloAction((*solo.Table).DoubleDown))
		r.Post("/split", h.soloAction((*solo.Table).Split))
		r.Post("/split-first-hit", h.soloAction(splitHit(1)))
		r.Post("/split-first-stand", h.soloAction(splitStand(1)))
		r.Post("/split-second-hit", h.soloAction(splitHit(2)))
		r.Post("/split-second-stand", h.soloAction(splitStand(2)))
		r.Post("/reset", h.soloAction(func(t *solo.Table) error {
			t.Reset()
			return nil
		}))

		r.Post("/create-room", h.createRoom)
		r.Get("/rooms", h.listRooms)
		r.Post("/add-ai-player", h.addAIPlayer)
		r.Post("/remove-ai-player", h.removeAIPlayer)
		r.Get("/game-records/{roomID}", h.gameRecords)
		r.Get("/player-stats/{playerName}", h.playerStats)
	})
}

// cors sets CORS headers and answers preflight requests.
func (h *Handler) cors(next http.Handler) http.Handler {
	origins := h.cfg.Origins()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(origins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": h.rooms.Len(), "tables": h.solo.Len()})
}

// visitor returns the stats key for the caller: the authenticated user id
// when a valid bearer token is present, otherwise the visitor cookie, which
// is issued on first contact.
func (h *Handler) visitor(w http.ResponseWriter, r *http.Request) string {
	if ident, ok := h.verifier.FromRequest(r); ok {
		return "user:" + ident.UserID
	}
	if c, err := r.Cookie(visitorCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return gameerrors.Validation("Invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response failed", "tag", "api", "err", err)
	}
}

// statusFor maps an error's Kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gameerrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, gameerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gameerrors.ErrState), errors.Is(err, gameerrors.ErrExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
		msg = "Internal server error"
	}
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
