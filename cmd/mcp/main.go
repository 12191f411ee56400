package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/brief-service/internal/adapters/mcp"
	"github.com/kirillkom/brief-service/internal/bootstrap"
	"github.com/kirillkom/brief-service/internal/config"
	"github.com/kirillkom/brief-service/internal/observability/logging"
)

const (
	serviceName = "mcp"
	version     = "1.0.0"
)

// stdout carries the protocol, so logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(version, app.Jobs, app.Chat)
	slog.Info("mcp_serving_stdio")
	if err := server.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
