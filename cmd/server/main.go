package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "viewport-relay/internal/app"
	httpx "viewport-relay/internal/http"
	"viewport-relay/internal/relay"
	"viewport-relay/internal/store"
	ws "viewport-relay/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Optional Postgres persistence + migrations
	var pg *store.Postgres
	if cfg.PGURL != "" {
		var err error
		pg, err = store.NewPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Error("postgres connect", "err", err)
			log.Fatal(err)
		}
		defer pg.Close()
		if err := store.RunMigrations(ctx, pg, logger); err != nil {
			logger.Error("migrations", "err", err)
			log.Fatal(err)
		}
	} else {
		logger.Info("persistence.disabled")
	}

	// Optional Redis bus for cross-instance fanout
	var bus *ws.Bus
	if cfg.RedisAddr != "" {
		var err error
		bus, err = ws.NewBus(ctx, cfg, logger)
		if err != nil {
			logger.Error("redis connect", "err", err)
			log.Fatal(err)
		}
		defer bus.Close()
	} else {
		logger.Info("bus.disabled")
	}

	// Relay engine; interfaces stay nil unless backed
	var gw relay.Gateway
	if pg != nil {
		gw = pg
	}
	var rb relay.Bus
	if bus != nil {
		rb = bus
	}
	engine := relay.NewEngine(logger, gw, rb, relay.Config{
		ThrottleInterval: time.Duration(cfg.ThrottleMS) * time.Millisecond,
		Policy:           relay.Policy(cfg.PublisherPolicy),
	})

	// WebSocket hub
	hub := ws.NewHub(logger, engine, bus)
	go hub.Run(ctx)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, engine)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	// Let in-flight persistence and bus calls settle
	engine.Drain()

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
