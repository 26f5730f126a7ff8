// Package httpapi exposes tasks and notification settings over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"dayplan/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr            string
	JWTSecret       string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg        Config
	tasks      *service.TaskService
	categories *service.CategoryService
	users      *service.UserService
	store      Pinger
	logger     *zap.Logger
	http       *http.Server
}

func NewServer(cfg Config, tasks *service.TaskService, categories *service.CategoryService, users *service.UserService, store Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:        cfg,
		tasks:      tasks,
		categories: categories,
		users:      users,
		store:      store,
		logger:     logger.Named("http"),
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	auth := NewAuthMiddleware(s.cfg.JWTSecret, s.users, s.logger)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Auth)
	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.updateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/me", s.me).Methods(http.MethodGet)
	api.HandleFunc("/me/notifications", s.updateNotifications).Methods(http.MethodPut)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
