package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/holdoutgame/holdout/internal/config"
	"github.com/holdoutgame/holdout/internal/game"
	"github.com/holdoutgame/holdout/internal/gateway"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}
	setupLogger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	hub := gateway.NewHub()
	gm := game.New(gameRules(cfg.Game), hub, clockwork.NewRealClock())
	handler := gateway.NewHandler(hub, gm, gateway.DefaultConfig())

	srv := setupServer(cfg.Server, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func setupLogger() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func gameRules(gc config.GameConfig) game.Config {
	return game.Config{
		InitialTimeMs:    gc.InitialTimeMs,
		MinPlayers:       gc.MinPlayers,
		CountdownSeconds: gc.CountdownSeconds,
		TickInterval:     time.Duration(gc.TickIntervalMs) * time.Millisecond,
		SettleDelay:      time.Duration(gc.SettleDelayMs) * time.Millisecond,
		CarryHolding:     gc.CarryHolding,
	}
}

func setupServer(sc config.ServerConfig, handler *gateway.Handler) *http.Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	if sc.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(sc.StaticDir)))
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    ":" + sc.Port,
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}
}
