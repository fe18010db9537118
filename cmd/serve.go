package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/royalcat/cafemap/internal/telemetry"
	"github.com/royalcat/cafemap/markers"
	"github.com/royalcat/cafemap/server"
	"github.com/urfave/cli/v3"
)

func serve(ctx *cli.Context) error {
	cfg := configFromFlags(ctx)

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := telemetry.Setup(runCtx, telemetry.Config{
		AppName:  "cafemap",
		Endpoint: ctx.String("otel.endpoint"),
		Level:    logLevel(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer client.Shutdown(ctx.Context)

	cafes, err := loadFeatures(ctx)
	if err != nil {
		return err
	}

	s, err := server.New(markers.FromCafes(cafes), cfg, slog.Default())
	if err != nil {
		return err
	}
	return server.Run(runCtx, ctx.String("listen"), s)
}
