// Пакет server — HTTP-сервер Roomstore с TLS и graceful shutdown.
// Маршруты собираются на chi; аутентификация различается по группам:
// API комнат — обязательный JWT, выдача файлов — необязательный
// (анонимный доступ решает AccessGate по настройке ProtectFiles),
// настройки — JWT + scope admin.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/roomstore/internal/api/handlers"
	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/config"
)

// Handlers — набор обработчиков, монтируемых на маршруты сервера.
type Handlers struct {
	Rooms    *handlers.RoomsHandler
	Files    *handlers.FilesHandler
	Settings *handlers.SettingsHandler
	Health   *handlers.HealthHandler
}

// Server — HTTP-сервер Roomstore.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, auth *middleware.JWTAuth, h Handlers) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Публичные endpoints
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API комнат — обязательная аутентификация
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())

			r.Post("/rooms", h.Rooms.CreateRoom)
			r.Post("/rooms/{roomId}/members", h.Rooms.AddMember)
			r.Delete("/rooms/{roomId}/members/{userId}", h.Rooms.RemoveMember)

			r.Post("/rooms.upload/{roomId}", h.Rooms.Upload)
			r.Post("/rooms.media/{roomId}", h.Rooms.Media)
			r.Post("/rooms.mediaConfirm/{roomId}/{fileId}", h.Rooms.MediaConfirm)
		})

		// Настройки — только scope admin
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())
			r.Use(middleware.RequireScope("admin"))

			r.Get("/settings", h.Settings.Get)
			r.Put("/settings", h.Settings.Update)
		})
	})

	// Выдача файлов — необязательная аутентификация:
	// запрос без токена обрабатывается как анонимный
	router.Group(func(r chi.Router) {
		r.Use(auth.OptionalMiddleware())

		r.Get("/file-upload/{fileId}/{filename}", h.Files.Download)
		r.Get("/ufs/GridFS:Uploads/{fileId}/{filename}", h.Files.Download)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// RS_SHUTDOWN_TIMEOUT.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
