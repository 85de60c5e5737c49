package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"blackjack-server/ai"
	"blackjack-server/api"
	"blackjack-server/auth"
	"blackjack-server/config"
	"blackjack-server/lobby"
	"blackjack-server/loghandler"
	"blackjack-server/room"
	"blackjack-server/session"
	"blackjack-server/solo"
	"blackjack-server/storage"
	"blackjack-server/ws"
)

const (
	recorderBuffer = 256
	sweepInterval  = time.Minute
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stderr, loghandler.ParseLevel(cfg.LogLevel))))
	log := slog.Default().With("tag", "main")
	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.StatsStore
	pg, err := storage.NewStore(ctx, cfg.DatabaseURL)
	switch {
	case err != nil:
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	case pg == nil:
		log.Info("DATABASE_URL is not set, keeping stats in memory")
		store = storage.NewMemoryStore()
	default:
		log.Info("stats persisted to postgres")
		store = pg
	}
	defer store.Close()

	verifier, err := auth.NewVerifier(cfg.AuthBaseURL)
	if err != nil {
		log.Error("auth setup failed", "err", err)
		os.Exit(1)
	}
	if verifier == nil {
		log.Info("AUTH_BASE_URL is not set, every request plays as an anonymous visitor")
	}

	log.Info("configuration",
		"max_players", cfg.MaxPlayersPerRoom, "starting_balance", cfg.StartingBalance,
		"min_bet", cfg.MinBet, "decks", cfg.DeckCount, "dealer", cfg.DealerDifficulty,
		"reconnect_grace_sec", cfg.ReconnectGraceSec, "port", cfg.Port)

	handler, wait := newServer(ctx, cfg, store, verifier)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", "err", err)
		}
	}()

	log.Info("blackjack server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
	// Queued round records are flushed before the store closes.
	wait()
	log.Info("server stopped")
}

// newServer wires every component and returns the root router. Background
// loops stop when ctx is cancelled; wait blocks until the round recorder has
// drained and every bot has exited.
func newServer(ctx context.Context, cfg *config.Config, store storage.StatsStore, verifier *auth.Verifier) (handler http.Handler, wait func()) {
	recorder := storage.NewRecorder(store, recorderBuffer)
	recorded := make(chan struct{})
	go func() {
		defer close(recorded)
		recorder.Run(ctx)
	}()

	roomOpts := room.OptionsFromConfig(cfg)
	roomOpts.OnRoundSettled = lobby.RoundSink(recorder)
	rooms := lobby.NewRegistry(cfg, roomOpts)
	go rooms.Run(ctx)

	sessions := session.NewManager(config.Seconds(cfg.SessionTTLSec))
	go sessions.Run(ctx, sweepInterval)

	tables := solo.NewManager(solo.OptionsFromConfig(cfg), store, config.Seconds(cfg.SoloIdleTimeoutSec))
	go tables.Run(ctx, sweepInterval)

	bots := ai.NewPool(ctx, cfg)

	hub := ws.NewHub(cfg, rooms, sessions, bots)
	go hub.Run(ctx)

	r := chi.NewRouter()
	api.NewHandler(cfg, tables, rooms, bots, store, verifier).Routes(r)
	r.Get("/ws", hub.ServeWS)
	return r, func() {
		<-recorded
		bots.Wait()
	}
}
