package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicevault/internal/app"
	"voicevault/internal/config"
	vaulthttp "voicevault/internal/http"
	"voicevault/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		os.Stderr.WriteString("startup: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer application.Close()
	logger := application.Logger

	api := &http.Server{
		Addr:         cfg.Service.HTTPAddr,
		Handler:      vaulthttp.NewRouter(application),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	obs := observability.NewServer(cfg.Service.MetricsAddr, application.Ready)
	obs.Start()

	go func() {
		logger.Info().Str("addr", cfg.Service.HTTPAddr).Msg("voicevault API listening")
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")

	// Finish whatever is live before the process exits: an open capture
	// and a running transcription both hold state worth keeping.
	if id := application.Identity.Current(); id != nil {
		if rec, err := application.Recorder.Stop(id.ID); err == nil {
			logger.Info().Str("recordingId", rec.ID).Msg("open capture finalized on shutdown")
		}
	}
	application.Transcriber.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("API shutdown error")
	}
	if err := obs.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("observability shutdown error")
	}
}
