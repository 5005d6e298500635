package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreboss/internal/database"
	"github.com/dukerupert/choreboss/internal/server"
)

type ServeOptions struct {
	*RootOptions
	Port int

	// ready, when set, receives the bound listener address. Tests use it
	// with port 0.
	ready chan<- string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON API, live updates on /ws and Prometheus metrics on /metrics.

Example:
  choreboss serve --port 8080 --db ./choreboss.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				opts.Config.Port = opts.Port
			}
			if err := opts.Config.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid config", err)
			}
			return runServe(commandContext(cmd), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 8080, "listen port (default from CHOREBOSS_PORT)")

	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	cfg, logger := opts.Config, opts.Logger

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer db.Close()

	srv, err := server.New(db, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "build server", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv.RunBackground(ctx)

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return WrapExitError(ExitCommandError, "listen", err)
	}

	httpServer := &http.Server{
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("choreboss listening", "addr", addr, "db", cfg.DBPath)
	if opts.ready != nil {
		opts.ready <- addr
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "serve", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown", err)
	}
	return nil
}
