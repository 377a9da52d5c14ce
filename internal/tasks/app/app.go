package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dkarpov/taskboard/internal/broker"
	"github.com/dkarpov/taskboard/internal/tasks/api"
	"github.com/dkarpov/taskboard/internal/tasks/config"
	"github.com/dkarpov/taskboard/internal/tasks/search"
	"github.com/dkarpov/taskboard/internal/tasks/service"
	"github.com/dkarpov/taskboard/internal/tasks/storage"
	"github.com/dkarpov/taskboard/internal/token"
	"github.com/dkarpov/taskboard/pkg/logging"
)

var shutdownTimeout = 10 * time.Second

type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	srv     *http.Server
	channel *broker.Channel
	db      *storage.PostgresStorage
}

func NewServer(cfg *config.Config, log *slog.Logger) *Server {
	p := cfg.DB
	db, err := storage.NewPostgresStorage(p.Host, p.Port, p.User, p.Password, p.DBName, log)
	if err != nil {
		panic(err)
	}

	channel := broker.NewChannel(cfg.Broker, log)

	var index service.TaskIndex
	if cfg.Search.Enabled {
		esClient, err := search.NewClient(cfg.Search.Addresses, cfg.Search.Index, log)
		if err != nil {
			panic(err)
		}
		index = esClient
	}

	verifier := token.NewVerifier(token.NewCodec(cfg.TokenSecret, token.DefaultTTL))
	tasksService := service.NewTasksService(cfg, log, db, channel, index)
	router := api.NewRouter(tasksService, verifier, log, cfg.Search.Enabled)

	srv := &http.Server{Addr: cfg.Address, Handler: router}

	return &Server{cfg: cfg, log: log, srv: srv, channel: channel, db: db}
}

func (s *Server) Run(ctx context.Context) error {
	// broker link is background work; requests never wait on it
	go s.channel.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", logging.Err(err))
		}
	}()

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Error("db close error", logging.Err(err))
	}
}
