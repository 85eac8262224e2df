package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/ekoclu/aniparty/internal/adapters/http"
	"github.com/ekoclu/aniparty/internal/app"
	"github.com/ekoclu/aniparty/internal/app/orch"
	"github.com/ekoclu/aniparty/internal/config"
	"github.com/ekoclu/aniparty/internal/directory"
	"github.com/ekoclu/aniparty/internal/party"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	parties := party.NewManager()
	users := directory.NewInMemory()

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Parties:  parties,
		Channels: app.NewChannelManager(),
		Policy:   app.SimplePolicy{},
		Users:    users,
	}

	go parties.RunJanitor(ctx, cfg.JanitorInterval, cfg.PartyIdleTTL)

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("AniParty server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
