package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// NewHealthcheckCommand creates the healthcheck command, used as a container
// health probe against a running server.
func NewHealthcheckCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:           "healthcheck",
		Short:         "Probe a running server's health endpoint",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = rootOpts.cfg.ListenAddr
			}
			return check(cmd.Context(), normalizeAddr(addr))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address (default $PATREG_LISTEN_ADDR)")

	return cmd
}

func check(ctx context.Context, addr string) error {
	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build health request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return WrapExitError(ExitCommandError, "health probe failed", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewExitError(ExitCommandError, fmt.Sprintf("health probe returned %d", resp.StatusCode))
	}

	return nil
}

// normalizeAddr ensures the probe connects to loopback rather than the
// bind-all address. The probe runs on the same host as the server, so
// loopback is reachable and more correct.
func normalizeAddr(raw string) string {
	if raw == "" {
		return "127.0.0.1:8080"
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return "127.0.0.1:8080"
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
