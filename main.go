package main

import (
	"context"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wordplay/config"
	"wordplay/game"
	"wordplay/hint"
	httpserver "wordplay/http"
	"wordplay/store"
	"wordplay/workers"
	"wordplay/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Info().Str("port", cfg.ServerPort).Str("db", cfg.DBPath).Msg("configuration loaded")

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	hub := ws.NewHub()
	opts := []game.Option{
		game.WithNotifier(hub),
		game.WithHintLimits(game.HintLimits{
			PerPlayerGame: cfg.HintPerPlayerGame,
			PerIPDay:      cfg.HintPerIPDay,
			Timeout:       cfg.HintTimeout,
		}),
	}
	if cfg.HintProviderURL != "" {
		opts = append(opts, game.WithHintProvider(hint.NewClient(cfg.HintProviderURL, cfg.HintProviderToken, cfg.HintTimeout)))
	} else {
		log.Warn().Msg("HINT_PROVIDER_URL not set, tier-3 hints will have no clue")
	}
	engine := game.NewEngine(db, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := workers.NewPhaseSweeper(db, engine, cfg.SweepInterval)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start phase sweeper")
	}

	wsManager := ws.NewManager(engine, hub, cfg.ActionRatePerSec, cfg.ActionBurst)
	server := httpserver.NewServer(ctx, engine, wsManager, httpserver.Options{
		GatewayToken:       cfg.GatewayToken,
		RatePerSec:         cfg.ActionRatePerSec,
		Burst:              cfg.ActionBurst,
		DefaultMaxMessages: cfg.DefaultMaxMessages,
	})
	srv := server.GetHTTPServer(cfg.ServerPort)

	go func() {
		log.Info().Msgf("server listening on http://localhost%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully")
	sweeper.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
