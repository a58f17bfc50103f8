package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/auth"
)

const shutdownTimeout = 5 * time.Second

// GatewayOptions configures [NewGateway].
type GatewayOptions struct {
	Addr     string
	Pipeline *auth.Pipeline
	Logger   *log.Logger
}

// Gateway is the local HTTP server that proxies the API with the stored session.
type Gateway struct {
	router *BasicRouter
	server *http.Server
	logger *log.Logger
}

// NewGateway wires the router, middleware and handlers of the gateway.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("gateway requires a pipeline")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	proxy, err := NewProxyHandler(opts.Pipeline, logger)
	if err != nil {
		return nil, err
	}
	health := NewHealthHandler(opts.Pipeline.Store(), opts.Pipeline.BaseURL())

	router := NewBasicRouter()
	router.Use(
		RequestID(),
		Logging(logger),
		SessionGate(opts.Pipeline.Store(), opts.Pipeline.EntryPoint(), health.Routes()...),
	)
	router.Handler(health)
	router.Handler(proxy)

	return &Gateway{
		router: router,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Handler returns the root handler, for embedding the gateway in another server.
func (g *Gateway) Handler() http.Handler { return g.router }

// Addr is the configured listen address.
func (g *Gateway) Addr() string { return g.server.Addr }

// ListenAndServe listens on the configured address and serves until ctx is done.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.server.Addr, err)
	}
	return g.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String(), "routes", g.router.Patterns())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.server.Shutdown(shutdownCtx); err != nil {
		g.logger.Warn("error shutting down server", "error", err)
		return err
	}
	g.logger.Info("gateway stopped")
	return nil
}
