package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/wappgate/wappgate/internal/api"
	"github.com/wappgate/wappgate/internal/config"
	"github.com/wappgate/wappgate/internal/dispatch"
	"github.com/wappgate/wappgate/internal/provider/echo"
	"github.com/wappgate/wappgate/internal/realtime"
	"github.com/wappgate/wappgate/internal/registry"
	"github.com/wappgate/wappgate/internal/session"
	"github.com/wappgate/wappgate/internal/storage"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.Load(log)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("WAPP_JWT_SECRET is required")
	}

	store, err := storage.NewStore(cfg.StorageBackend, cfg.DataDir, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open session store")
	}
	defer store.Close()

	hub := realtime.NewHub()
	reg := registry.New(log)

	controller := session.NewController(session.Config{
		Registry:    reg,
		Store:       store,
		Hub:         hub,
		Factory:     echo.Factory(),
		Handler:     session.NewBroadcastHandler(hub, realtime.ConversationTopic),
		InitTimeout: cfg.InitTimeout,
		BacklogCap:  cfg.BacklogCap,
		Logger:      log,
	})

	dispatcher := dispatch.New(dispatch.Config{
		Registry:    reg,
		MaxAttempts: cfg.SendMaxAttempts,
		RetryDelay:  cfg.SendRetryDelay,
		DefectDelay: cfg.SendDefectDelay,
		Logger:      log,
	})

	handler := api.NewHandler(controller, dispatcher, hub, cfg.JWTSecret, log)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
