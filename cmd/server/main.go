package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"expo-registration/internal/config"
	"expo-registration/internal/images"
	"expo-registration/internal/notify"
	"expo-registration/internal/payments"
	"expo-registration/internal/reconciler"
	"expo-registration/internal/server"
	"expo-registration/internal/sheets"
	"expo-registration/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}

	log := newLogger(cfg)

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	if err := st.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	sheetsClient, err := sheets.New(cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		log.Fatal().Err(err).Msg("sheets")
	}

	uploader, err := images.NewGCS(cfg.GoogleServiceAccountJSON, cfg.StorageBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("storage")
	}

	payProvider, err := payments.NewProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("payments")
	}

	notifier, err := notify.New(cfg.TelegramToken, cfg.AdminChatIDs, log)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}

	rec := reconciler.New(st, sheetsClient, cfg.SyncChunkSize, log)
	srv := server.New(cfg, st, rec, payProvider, uploader, notifier, log)
	httpSrv := srv.HTTPServer()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Scheduled incremental sync. The reconciler serializes itself against
	// manual admin triggers, so the ticker never overlaps a forced run.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		t := time.NewTicker(cfg.SyncInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := rec.Run(ctx); err != nil {
					log.Error().Err(err).Msg("scheduled sync failed")
					notifier.SyncFailed(err)
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	log.Info().Msg("bye")
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.Env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
