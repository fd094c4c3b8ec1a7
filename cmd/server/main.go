package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Huddle/internal/adapters/backplane"
	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/adapters/store"
	"github.com/dkeye/Huddle/internal/adapters/token"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/account"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/metrics"
)

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	// Console output until the config says otherwise.
	setupLogger(config.LogConfig{Level: "info"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	db, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}

	bp, err := backplane.New(cfg.Backplane)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Backplane.Driver).Msg("failed to connect backplane")
	}

	m := metrics.New()
	hub := app.NewHub(app.NewRegistry(), bp, app.PolicyFor(cfg.Hub.SlowConsumer), m)
	o := orch.New(hub, db, orch.Options{
		OfflinePolicy:    orch.OfflinePolicy(cfg.Calls.OfflinePolicy),
		RingTimeout:      cfg.Calls.RingTimeout,
		AckFailures:      cfg.Chat.AckFailures,
		MaxContentLength: cfg.Chat.MaxContentLength,
		HistoryLimit:     cfg.Chat.HistoryLimit,
	}, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Accounts: account.NewService(db, account.NewPasswordHasher(cfg.Auth.BcryptCost)),
		Tokens:   token.NewLiveKitIssuer(cfg.LiveKit),
		Metrics:  m,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("backplane", cfg.Backplane.Driver).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	go func() {
		if err := g.Wait(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			log.Info().Msg("Shutting down")
			// Hijacked WebSocket connections are not tracked by Shutdown; cancel closes them.
			cancel()
			return srv.Shutdown(ctx)
		},
		"backplane": func(context.Context) error {
			if bp == nil {
				return nil
			}
			return bp.Close()
		},
		"calls": func(context.Context) error {
			o.Close()
			return nil
		},
		"database": func(context.Context) error {
			return db.Close()
		},
	})

	code := <-wait
	log.Info().Int("code", code).Msg("Server exited")
	os.Exit(code)
}
