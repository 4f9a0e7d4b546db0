package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/watchdesk/internal/auth"
	"github.com/HerbHall/watchdesk/internal/config"
	"github.com/HerbHall/watchdesk/internal/event"
	"github.com/HerbHall/watchdesk/internal/inventory"
	"github.com/HerbHall/watchdesk/internal/registry"
	"github.com/HerbHall/watchdesk/internal/rtc"
	"github.com/HerbHall/watchdesk/internal/server"
	"github.com/HerbHall/watchdesk/internal/store"
	"github.com/HerbHall/watchdesk/internal/ticketing"
	"github.com/HerbHall/watchdesk/internal/version"
	"github.com/HerbHall/watchdesk/internal/watch"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("WatchDesk server starting", zap.String("version", version.Short()))

	db, err := store.New(cfg.GetString("store.path"))
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer db.Close()

	bus := event.NewBus(logger.Named("bus"))
	reg := registry.New(logger.Named("registry"))

	// The rtc plugin is optional: without a JWT secret it fails Init and the
	// registry disables it instead of serving an unauthenticated socket.
	var verifier *auth.Verifier
	if secret := cfg.GetString("auth.jwt_secret"); secret != "" {
		verifier, err = auth.NewVerifier(secret)
		if err != nil {
			logger.Fatal("invalid auth configuration", zap.Error(err))
		}
	}

	// Compile-time plugin composition.
	inv := inventory.New()
	tk := ticketing.New()
	plugins := []plugin.Plugin{
		inv,
		tk,
		watch.New(inv, tk),
		rtc.New(verifier),
	}
	for _, p := range plugins {
		if err := reg.Register(p); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}

	if err := reg.Validate(); err != nil {
		logger.Fatal("plugin validation failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	depsFor := func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Logger: logger.Named(name),
			Config: cfg.Sub(name),
			Store:  db,
			Bus:    bus,
		}
	}
	if err := reg.InitAll(ctx, depsFor); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}
	reg.InstallSubscriptions(bus)

	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	srv := server.New(cfg.GetString("server.addr"), reg, logger.Named("http"))
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("WatchDesk server ready", zap.String("addr", cfg.GetString("server.addr")))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	reg.StopAll(shutdownCtx)

	logger.Info("WatchDesk server stopped")
}

// newLogger builds the root logger from log.level and log.format. The
// "console" format is for local development; everything else gets JSON.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zc zap.Config
	if cfg.GetString("log.format") == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
