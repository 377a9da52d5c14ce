package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkarpov/taskboard/internal/gateway/config"
	"github.com/dkarpov/taskboard/internal/gateway/middleware"
	"github.com/dkarpov/taskboard/pkg/logging"
)

var shutdownTimeout = 10 * time.Second

type Server struct {
	cfg *config.Config
	log *slog.Logger
	srv *http.Server
}

func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) *Server {
	rl := middleware.NewRateLimiter(ctx, log, &cfg.Redis, &cfg.RateLimiter)

	r := chi.NewRouter()
	r.Use(rl.Middleware(log))
	r.Handle("/api/auth/*", http.StripPrefix("/api/auth", newProxy(cfg.AuthURL)))
	r.Handle("/api/tasks", http.StripPrefix("/api", newProxy(cfg.TasksURL)))
	r.Handle("/api/tasks/*", http.StripPrefix("/api", newProxy(cfg.TasksURL)))

	srv := &http.Server{Addr: cfg.Address, Handler: r}

	return &Server{cfg: cfg, log: log, srv: srv}
}

func newProxy(target string) *httputil.ReverseProxy {
	u, err := url.Parse(target)
	if err != nil {
		panic(err)
	}
	return httputil.NewSingleHostReverseProxy(u)
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
