package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/s1natex/tasktree/internal/config"
)

func main() {
	var (
		configPath string
		cfg        *config.Config
		logger     *slog.Logger
	)

	app := &cli.Command{
		Name:           "tasktree",
		Usage:          "Hierarchical task tracking service",
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to a TOML config file",
				Sources:     cli.EnvVars("TASKTREE_CONFIG"),
				Destination: &configPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			logger = newLogger(cfg.LogLevel)
			slog.SetDefault(logger) // for third-party packages that use slog
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, cfg, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "upgrade persisted tasks to the current format and exit",
				Action: func(ctx context.Context, c *cli.Command) error {
					store, closeFn, err := openStore(ctx, cfg.Storage, logger)
					if err != nil {
						return err
					}
					defer closeFn()
					fmt.Fprintf(c.Root().Writer, "%d tasks in current format\n", store.Len())
					return nil
				},
			},
			{
				Name:  "tree",
				Usage: "print the task forest",
				Action: func(ctx context.Context, c *cli.Command) error {
					store, closeFn, err := openStore(ctx, cfg.Storage, logger)
					if err != nil {
						return err
					}
					defer closeFn()
					return writeTree(c.Root().Writer, store.Tasks())
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	store, closeFn, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(store, cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
