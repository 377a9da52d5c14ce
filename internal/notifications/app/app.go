package app

import (
	"context"
	"log/slog"

	"github.com/dkarpov/taskboard/internal/broker"
	"github.com/dkarpov/taskboard/internal/notifications"
	"github.com/dkarpov/taskboard/internal/notifications/config"
	"github.com/dkarpov/taskboard/internal/notifications/email"
)

type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	consumer *broker.Consumer
}

func NewServer(cfg *config.Config, log *slog.Logger) *Server {
	emailService := email.NewSender(&cfg.SMTP, log)
	handler := notifications.NewTaskCreatedHandler(emailService, log)
	consumer := broker.NewConsumer(cfg.Consumer, handler, log)

	return &Server{cfg: cfg, log: log, consumer: consumer}
}

func (s *Server) Run(ctx context.Context) error {
	s.consumer.Start(ctx)

	<-ctx.Done()
	s.log.Info("shutting down server, stopping consumer")
	return s.consumer.Stop()
}
