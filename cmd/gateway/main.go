package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkarpov/taskboard/internal/gateway/app"
	"github.com/dkarpov/taskboard/internal/gateway/config"
	"github.com/dkarpov/taskboard/pkg/logging"
)

func main() {
	cfg := config.MustLoadConfig()
	log := logging.SetupLogger(slog.LevelDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.NewServer(ctx, cfg, log)

	log.Info("starting gateway", "address", cfg.Address)
	if err := srv.Run(ctx); err != nil {
		log.Error("server run error", logging.Err(err))
		return
	}
}
