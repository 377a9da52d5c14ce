package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dkarpov/taskboard/internal/auth/api"
	"github.com/dkarpov/taskboard/internal/auth/config"
	"github.com/dkarpov/taskboard/internal/auth/service"
	"github.com/dkarpov/taskboard/internal/auth/storage"
	"github.com/dkarpov/taskboard/internal/token"
	"github.com/dkarpov/taskboard/pkg/logging"
)

var shutdownTimeout = 10 * time.Second

type Server struct {
	cfg *config.Config
	log *slog.Logger
	srv *http.Server
	db  *storage.PostgresStorage
}

func NewServer(cfg *config.Config, log *slog.Logger) *Server {
	p := cfg.DB
	db, err := storage.NewPostgresStorage(p.Host, p.Port, p.User, p.Password, p.DBName)
	if err != nil {
		panic(err)
	}

	codec := token.NewCodec(cfg.TokenSecret, cfg.TokenTTL)
	authService := service.NewAuthService(log, db, codec)
	router := api.NewRouter(authService, log)

	srv := &http.Server{Addr: cfg.Address, Handler: router}

	return &Server{cfg: cfg, log: log, srv: srv, db: db}
}

func (s *Server) Run(ctx context.Context) error {
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
