// Точка входа Roomstore — сервиса файловых вложений комнат.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/roomstore/internal/api/handlers"
	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/config"
	"github.com/bigkaa/roomstore/internal/database"
	"github.com/bigkaa/roomstore/internal/repository"
	"github.com/bigkaa/roomstore/internal/server"
	"github.com/bigkaa/roomstore/internal/service"
	"github.com/bigkaa/roomstore/internal/settings"
	"github.com/bigkaa/roomstore/internal/storage/filestore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Roomstore запускается",
		slog.String("service_id", cfg.ServiceID),
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
	)

	// --- Инициализация компонентов ---

	ctx := context.Background()

	// 1. PostgreSQL: миграции и connection pool
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 2. Файловое хранилище blob-ов
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Репозитории
	rooms := repository.NewRoomRepository(pool)
	uploads := repository.NewUploadRepository(pool)
	messages := repository.NewMessageRepository(pool)

	// 4. Настройки: начальные значения из окружения,
	// дальше управляются через PUT /api/v1/settings
	settingsStore := settings.NewStore(settings.Snapshot{
		MediaTypeBlockList: cfg.MediaTypeBlockList,
		ProtectFiles:       cfg.ProtectFiles,
		MaxFileSize:        cfg.MaxFileSize,
	})

	// 5. Сервисы
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	thumbs := service.NewThumbnailService(logger)
	uploadSvc := service.NewUploadService(store, rooms, uploads, messages, settingsStore, thumbs, logger)
	mediaSvc := service.NewMediaService(uploadSvc, uploads, cache, logger)
	downloadSvc := service.NewDownloadService(store, rooms, uploads, settingsStore, cache, logger)

	// 6. Фоновые процессы

	// 6.1 GC — очистка брошенных резервирований
	gcSvc := service.NewGCService(store, uploads, cache, cfg.ReserveTTL, cfg.GCInterval, logger)
	gcSvc.Start(ctx)

	// 6.2 topologymetrics — мониторинг зависимостей (PostgreSQL + JWKS)
	db := stdlib.OpenDBFromPool(pool)
	pgConnURL := fmt.Sprintf("postgres://%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.ServiceID,
		cfg.DephealthGroup,
		db,
		pgConnURL,
		cfg.DephealthDepName,
		cfg.JWKSUrl,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 7. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWKSUrl,
		CACertPath:      cfg.JWKSCACert,
		TLSSkipVerify:   cfg.JWKSTLSSkipVerify,
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		JWTLeeway:       cfg.JWTLeeway,
	}, logger)
	if err != nil {
		logger.Error("Ошибка инициализации JWT JWKS",
			slog.String("jwks_url", cfg.JWKSUrl),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer jwtAuth.Close()

	// 8. Handlers
	h := server.Handlers{
		Rooms:    handlers.NewRoomsHandler(uploadSvc, mediaSvc, rooms, settingsStore),
		Files:    handlers.NewFilesHandler(downloadSvc),
		Settings: handlers.NewSettingsHandler(settingsStore),
		Health:   handlers.NewHealthHandlerFull(cfg.DataDir, database.NewReadinessChecker(pool)),
	}

	// 9. Запуск HTTP-сервера
	srv := server.New(cfg, logger, jwtAuth, h)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Остановка фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	gcSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Roomstore остановлен")
}
