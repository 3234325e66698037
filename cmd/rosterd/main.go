package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/org/rostervault/internal/api"
	"github.com/org/rostervault/internal/config"
	"github.com/org/rostervault/internal/keystore"
	"github.com/org/rostervault/internal/session"
)

func main() {
	cfgFlag := flag.String("config", "", "path to roster.yaml (default $ROSTER_CONFIG or roster.yaml)")
	flag.Parse()

	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(config.Path(*cfgFlag))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	// The daemon never prompts; the keystore password must come from the
	// environment.
	sess, err := session.Open(cfg, keystore.EnvPassword(cfg.Keystore.PasswordEnv))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open roster session")
	}

	n, err := sess.Reload()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load roster from disk")
	}
	log.Info().Int("members", n).Str("dir", cfg.DataDir).Msg("roster loaded")

	srv := api.NewServer(sess, api.Config{
		ListenAddr: cfg.ListenAddr,
		APIToken:   cfg.APIToken,
	})
	if cfg.APIToken == "" {
		log.Warn().Msg("api_token not set: /v1 endpoints are unauthenticated")
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
