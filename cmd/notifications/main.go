package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkarpov/taskboard/internal/notifications/app"
	"github.com/dkarpov/taskboard/internal/notifications/config"
	"github.com/dkarpov/taskboard/pkg/logging"
)

func main() {
	cfg := config.MustLoadConfig()
	log := logging.SetupLogger(slog.LevelDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.NewServer(cfg, log)

	log.Info("starting notifications worker")
	if err := srv.Run(ctx); err != nil {
		log.Error("worker run error", logging.Err(err))
		return
	}
}
