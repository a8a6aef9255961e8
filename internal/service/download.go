// download.go — выдача файлов по /file-upload/ и /ufs/ с контролем доступа.
// Метаданные читаются через LRU-кэш; решение о доступе принимается
// на каждый запрос по текущим настройкам, без кэширования.
package service

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/domain/access"
	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/repository"
	"github.com/bigkaa/roomstore/internal/settings"
	"github.com/bigkaa/roomstore/internal/storage/filestore"
)

// DownloadResult — файл, готовый к отдаче клиенту.
type DownloadResult struct {
	// Upload — метаданные файла
	Upload *model.Upload
	// File — открытый файл; закрывает вызывающая сторона
	File *os.File
}

// DownloadService — сервис выдачи файлов с контролем доступа.
type DownloadService struct {
	store    *filestore.FileStore
	rooms    repository.RoomRepository
	uploads  repository.UploadRepository
	settings *settings.Store
	cache    *CacheService
	logger   *slog.Logger
}

// NewDownloadService создаёт сервис выдачи файлов.
func NewDownloadService(
	store *filestore.FileStore,
	rooms repository.RoomRepository,
	uploads repository.UploadRepository,
	settingsStore *settings.Store,
	cache *CacheService,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		store:    store,
		rooms:    rooms,
		uploads:  uploads,
		settings: settingsStore,
		cache:    cache,
		logger:   logger.With(slog.String("component", "download_service")),
	}
}

// Get возвращает файл по идентификатору после проверки доступа.
//
// Правила:
//   - неподтверждённый (reserved) файл видит только его владелец;
//     остальным возвращается 404, чтобы не раскрывать существование
//   - анонимный доступ управляется настройкой ProtectFiles
//   - ограничения членства применяются по снимку настроек на момент запроса
func (s *DownloadService) Get(ctx context.Context, fileID string, principal model.Principal) (*DownloadResult, *OpError) {
	upload, opErr := s.lookup(ctx, fileID)
	if opErr != nil {
		middleware.DownloadsTotal.WithLabelValues("not_found").Inc()
		return nil, opErr
	}

	if upload.Status == model.StatusReserved && upload.OwnerID != principal.UserID {
		middleware.DownloadsTotal.WithLabelValues("not_found").Inc()
		return nil, errFileNotFound()
	}

	if opErr := s.authorize(ctx, upload, principal); opErr != nil {
		middleware.DownloadsTotal.WithLabelValues("denied").Inc()
		return nil, opErr
	}

	file, err := s.store.ReadFile(upload.StoragePath)
	if err != nil {
		// Запись есть, blob-а нет: рассинхронизация диска и БД
		s.logger.Error("Blob не найден на диске",
			slog.String("file_id", upload.FileID),
			slog.String("storage_path", upload.StoragePath),
			slog.String("error", err.Error()),
		)
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, errFileNotFound()
	}

	middleware.DownloadsTotal.WithLabelValues("success").Inc()
	return &DownloadResult{Upload: upload, File: file}, nil
}

// lookup читает метаданные из кэша или БД.
func (s *DownloadService) lookup(ctx context.Context, fileID string) (*model.Upload, *OpError) {
	if upload, ok := s.cache.Get(fileID); ok {
		return upload, nil
	}

	upload, err := s.uploads.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errFileNotFound()
		}
		s.logger.Error("Ошибка загрузки метаданных",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal("Внутренняя ошибка")
	}

	// Резервирования не кэшируем: статус меняется при подтверждении
	if upload.Status == model.StatusConfirmed {
		s.cache.Set(fileID, upload)
	}
	return upload, nil
}

// authorize применяет правила доступа к файлу.
func (s *DownloadService) authorize(ctx context.Context, upload *model.Upload, principal model.Principal) *OpError {
	snap := s.settings.Snapshot()

	facts := access.Facts{}
	room, err := s.rooms.GetByID(ctx, upload.RoomID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Ошибка загрузки комнаты",
				slog.String("room_id", upload.RoomID),
				slog.String("error", err.Error()),
			)
			return errInternal("Внутренняя ошибка")
		}
		// Комната удалена: файл недоступен никому
		return errFileNotFound()
	}
	facts.IsAccessible = room.Type == model.RoomPublic

	if !principal.Anonymous() {
		isMember, err := s.rooms.IsMember(ctx, room.ID, principal.UserID)
		if err != nil {
			s.logger.Error("Ошибка проверки членства",
				slog.String("room_id", room.ID),
				slog.String("user_id", principal.UserID),
				slog.String("error", err.Error()),
			)
			return errInternal("Внутренняя ошибка")
		}
		facts.IsMember = isMember
	}

	if !access.CanRead(principal, facts, snap.Access()) {
		return errNotAllowed("Доступ к файлу запрещён [error-not-allowed]")
	}
	return nil
}
