package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/amsctl/internal/server"
	"github.com/desertthunder/amsctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Proxy serves the local session gateway until interrupted.
func (r *Runner) Proxy(ctx context.Context, cmd *cli.Command) error {
	client, err := r.connect()
	if err != nil {
		return err
	}

	cfg := r.config.Proxy
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}

	gateway, err := server.NewGateway(server.GatewayOptions{
		Addr:     cfg.Addr(),
		Pipeline: client.Pipeline(),
		Logger:   shared.WithLogger(r.logger, "component", "gateway"),
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	r.writePlain("Forwarding http://%s to %s (Ctrl+C to stop)\n", gateway.Addr(), client.Pipeline().BaseURL())
	return gateway.ListenAndServe(ctx)
}
