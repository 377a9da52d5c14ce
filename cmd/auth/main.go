package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkarpov/taskboard/internal/auth/app"
	"github.com/dkarpov/taskboard/internal/auth/config"
	"github.com/dkarpov/taskboard/pkg/logging"
)

func main() {
	cfg := config.MustLoadConfig()
	log := logging.SetupLogger(slog.LevelDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.NewServer(cfg, log)
	defer srv.Close()

	log.Info("starting auth server", "address", cfg.Address)
	if err := srv.Run(ctx); err != nil {
		log.Error("server run error", logging.Err(err))
		return
	}
}
