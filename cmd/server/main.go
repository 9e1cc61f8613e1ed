package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Free-Rat/type-racer-wars/internal/bus"
	"github.com/Free-Rat/type-racer-wars/internal/config"
	"github.com/Free-Rat/type-racer-wars/internal/game"
	"github.com/Free-Rat/type-racer-wars/internal/server"
	"github.com/Free-Rat/type-racer-wars/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Optional .env for ${VAR} substitution in the config file.
	godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting type racer server",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"ws_path", cfg.Server.WSPath,
		"quorum", cfg.Race.Quorum,
		"text_len", len(cfg.Race.Text),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := bus.New(cfg.Bus.BufferSize, logger)
	defer eventBus.Close()

	registry := game.NewRegistry(cfg.Race.Text, logger)
	scheduler := game.NewScheduler(registry, eventBus, cfg.Race.CountdownSeconds, logger)
	srv := server.New(cfg, registry, eventBus, scheduler, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
