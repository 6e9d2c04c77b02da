// Command relayserver runs the Odyssey relay coordinator: it accepts
// game client connections, relays their state to every other connected
// player, and synchronizes the cooperative shine set (spec.md §2).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/marza-dev/odyssey-relay/internal/config"
	"github.com/marza-dev/odyssey-relay/internal/coordinator"
	"github.com/marza-dev/odyssey-relay/internal/listener"
	"github.com/marza-dev/odyssey-relay/internal/lobby"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := config.DefaultPath
	if p := os.Getenv(config.EnvOverride); p != "" {
		path = p
	}
	settings, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(settings.LogLevel),
	})))

	slog.Info("odyssey relay starting",
		"address", settings.Server.Address,
		"port", settings.Server.Port,
		"max_players", settings.Server.MaxPlayers,
		"log_level", settings.LogLevel)

	g, gctx := errgroup.WithContext(ctx)

	l := lobby.New(gctx, settings)

	if settings.PersistShines.Enabled {
		if err := coordinator.LoadPersistedShines(l); err != nil {
			slog.Warn("loading persisted shines", "error", err)
		}
	}

	coord := coordinator.New(l)
	listen := listener.New(l, slog.Default().With("component", "listener"))

	g.Go(func() error {
		return coord.Run(gctx)
	})

	g.Go(func() error {
		if err := listen.Run(gctx); err != nil {
			return fmt.Errorf("listener: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// parseLogLevel converts the settings log level string to slog.Level,
// defaulting to Info on anything unrecognized.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
