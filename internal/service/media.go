// media.go — двухфазная загрузка: rooms.media резервирует файл,
// rooms.mediaConfirm подтверждает его и публикует сообщение.
// Неподтверждённые резервирования убирает GC по TTL.
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/domain/mediatype"
	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/repository"
)

// MediaParams — параметры резервирования файла.
type MediaParams struct {
	// RoomID — идентификатор комнаты
	RoomID string
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — оригинальное имя файла
	Filename string
	// DeclaredSize — размер из multipart part
	DeclaredSize int64
	// Principal — аутентифицированный пользователь
	Principal model.Principal
}

// ConfirmParams — параметры подтверждения загрузки.
type ConfirmParams struct {
	// RoomID — идентификатор комнаты
	RoomID string
	// FileID — идентификатор зарезервированного файла
	FileID string
	// Msg — текст сообщения (опционально)
	Msg string
	// Description — описание файла для вложения (опционально)
	Description string
	// Principal — аутентифицированный пользователь
	Principal model.Principal
}

// MediaService — двухфазная загрузка файлов.
// Переиспользует конвейер UploadService: валидация, сохранение,
// миниатюры и публикация сообщений общие для обоих путей.
type MediaService struct {
	pipeline *UploadService
	uploads  repository.UploadRepository
	cache    *CacheService
	logger   *slog.Logger
}

// NewMediaService создаёт сервис двухфазной загрузки.
func NewMediaService(
	pipeline *UploadService,
	uploads repository.UploadRepository,
	cache *CacheService,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		pipeline: pipeline,
		uploads:  uploads,
		cache:    cache,
		logger:   logger.With(slog.String("component", "media_service")),
	}
}

// Reserve сохраняет файл со статусом reserved, без сообщения.
// Описание и текст сообщения принимаются только на фазе подтверждения.
func (s *MediaService) Reserve(ctx context.Context, params MediaParams) (*model.Upload, *OpError) {
	snap := s.pipeline.settings.Snapshot()

	room, opErr := s.pipeline.resolveRoom(ctx, params.RoomID)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("media", "error").Inc()
		return nil, opErr
	}

	if opErr := s.pipeline.requireMember(ctx, room.ID, params.Principal); opErr != nil {
		middleware.UploadsTotal.WithLabelValues("media", "denied").Inc()
		return nil, opErr
	}

	if params.DeclaredSize > snap.MaxFileSize {
		middleware.UploadsTotal.WithLabelValues("media", "too_large").Inc()
		return nil, errFileTooLarge(params.DeclaredSize, snap.MaxFileSize)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(params.Reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errInternal("Ошибка чтения файла")
	}
	head = head[:n]
	if n == 0 {
		middleware.UploadsTotal.WithLabelValues("media", "empty").Inc()
		return nil, errFileEmpty()
	}

	contentType := mediatype.Resolve(params.Filename, head)
	if !mediatype.IsAllowed(contentType, snap.MediaTypeList()) {
		middleware.UploadsTotal.WithLabelValues("media", "blocked_type").Inc()
		s.logger.Warn("Тип файла запрещён политикой",
			slog.String("filename", params.Filename),
			slog.String("content_type", contentType),
		)
		return nil, errInvalidFileType()
	}

	upload, opErr := s.pipeline.saveUpload(ctx, room.ID, params.Principal.UserID,
		io.MultiReader(bytes.NewReader(head), params.Reader),
		params.Filename, contentType, snap.MaxFileSize, model.StatusReserved)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("media", "error").Inc()
		return nil, opErr
	}

	middleware.UploadsTotal.WithLabelValues("media", "success").Inc()
	middleware.StorageBytes.Add(float64(upload.Size))

	s.logger.Info("Файл зарезервирован",
		slog.String("file_id", upload.FileID),
		slog.String("room_id", upload.RoomID),
		slog.String("filename", upload.Name),
		slog.Int64("size", upload.Size),
		slog.String("uploaded_by", upload.OwnerID),
	)

	return upload, nil
}

// Confirm подтверждает зарезервированный файл и публикует сообщение.
// Подтверждать может только владелец резервирования.
// Повторное подтверждение публикует ещё одно сообщение: дедупликации
// по fileID нет, клиент обязан вызывать подтверждение один раз.
func (s *MediaService) Confirm(ctx context.Context, params ConfirmParams) (*model.Message, *OpError) {
	room, opErr := s.pipeline.resolveRoom(ctx, params.RoomID)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("media_confirm", "error").Inc()
		return nil, opErr
	}

	if opErr := s.pipeline.requireMember(ctx, room.ID, params.Principal); opErr != nil {
		middleware.UploadsTotal.WithLabelValues("media_confirm", "denied").Inc()
		return nil, opErr
	}

	upload, err := s.uploads.GetByID(ctx, params.FileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.UploadsTotal.WithLabelValues("media_confirm", "not_found").Inc()
			return nil, errFileNotFound()
		}
		s.logger.Error("Ошибка загрузки метаданных",
			slog.String("file_id", params.FileID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal("Внутренняя ошибка")
	}

	// Файл из другой комнаты не раскрываем
	if upload.RoomID != room.ID {
		middleware.UploadsTotal.WithLabelValues("media_confirm", "not_found").Inc()
		return nil, errFileNotFound()
	}

	if upload.OwnerID != params.Principal.UserID {
		middleware.UploadsTotal.WithLabelValues("media_confirm", "denied").Inc()
		return nil, errNotAllowed("Подтверждать загрузку может только её владелец [error-not-allowed]")
	}

	if err := s.uploads.Confirm(ctx, upload.FileID); err != nil {
		s.logger.Error("Ошибка подтверждения загрузки",
			slog.String("file_id", upload.FileID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal("Внутренняя ошибка")
	}
	upload.Status = model.StatusConfirmed
	s.cache.Delete(upload.FileID)

	// Миниатюра строится на фазе подтверждения; при повторном
	// подтверждении существующая привязка сохраняется
	var thumb *model.Upload
	if upload.ThumbnailID == nil {
		thumb = s.pipeline.generateThumbnail(ctx, upload)
	} else if t, err := s.uploads.GetByID(ctx, *upload.ThumbnailID); err == nil {
		thumb = t
	}

	message, opErr := s.pipeline.publishMessage(ctx, upload, thumb, params.Msg, params.Description)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("media_confirm", "error").Inc()
		return nil, opErr
	}

	middleware.UploadsTotal.WithLabelValues("media_confirm", "success").Inc()

	s.logger.Info("Загрузка подтверждена",
		slog.String("file_id", upload.FileID),
		slog.String("room_id", upload.RoomID),
		slog.String("filename", upload.Name),
		slog.String("confirmed_by", params.Principal.UserID),
	)

	return message, nil
}
