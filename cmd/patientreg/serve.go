package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/patientreg/internal/adapter/driving/http"
	"github.com/ericfisherdev/patientreg/internal/config"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
	Guard  string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry API",
		Long: `Serve the tab-scoped JSON API and change event streams until interrupted.

Every tab opened through the API shares one store and one broadcast channel,
so a patient registered in one tab appears in every other open tab.

Examples:
  patientreg serve
  patientreg serve --listen 0.0.0.0:9090 --guard anywhere`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Listen != "" {
				opts.cfg.ListenAddr = opts.Listen
			}
			if opts.Guard != "" {
				opts.cfg.GuardMode = opts.Guard
			}
			return runServe(cmd.Context(), opts.cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default $PATREG_LISTEN_ADDR or 127.0.0.1:8080)")
	cmd.Flags().StringVar(&opts.Guard, "guard", "", "query guard mode: leading or anywhere (default $PATREG_GUARD_MODE or leading)")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"channel", cfg.ChannelName,
		"guard_mode", cfg.GuardMode,
		"subscriber_buffer", cfg.SubscriberBuffer,
	)

	// Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open database, run migrations and wire the tab manager.
	a, err := openApp(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open registry", err)
	}
	defer a.Close()
	slog.Info("database opened", "path", a.db.Path())

	apiHandler := httphandler.NewHandler(a.tabs, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Event streams end when the process is asked to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("patientreg started", "listen_addr", cfg.ListenAddr, "channel", cfg.ChannelName)

	// Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return WrapExitError(ExitCommandError, "http server error", err)
		}
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
