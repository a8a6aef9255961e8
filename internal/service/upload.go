// Пакет service — бизнес-логика Roomstore.
// upload.go — конвейер загрузки файла в комнату одним запросом:
// валидация, политика типов, сохранение blob-а, миниатюра, сообщение.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/domain/mediatype"
	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/repository"
	"github.com/bigkaa/roomstore/internal/settings"
	"github.com/bigkaa/roomstore/internal/storage/filestore"
)

// sniffLen — количество байт, читаемых для определения MIME-типа.
const sniffLen = 512

// UploadParams — параметры загрузки файла в комнату.
type UploadParams struct {
	// RoomID — идентификатор комнаты
	RoomID string
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — оригинальное имя файла
	Filename string
	// DeclaredSize — размер из multipart part (может быть 0, если неизвестен)
	DeclaredSize int64
	// Msg — текст сообщения (опционально)
	Msg string
	// Description — описание файла для вложения (опционально)
	Description string
	// Principal — аутентифицированный пользователь
	Principal model.Principal
}

// UploadService — конвейер загрузки файлов.
type UploadService struct {
	store    *filestore.FileStore
	rooms    repository.RoomRepository
	uploads  repository.UploadRepository
	messages repository.MessageRepository
	settings *settings.Store
	thumbs   *ThumbnailService
	logger   *slog.Logger
}

// NewUploadService создаёт конвейер загрузки файлов.
func NewUploadService(
	store *filestore.FileStore,
	rooms repository.RoomRepository,
	uploads repository.UploadRepository,
	messages repository.MessageRepository,
	settingsStore *settings.Store,
	thumbs *ThumbnailService,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:    store,
		rooms:    rooms,
		uploads:  uploads,
		messages: messages,
		settings: settingsStore,
		thumbs:   thumbs,
		logger:   logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает файл в комнату и публикует сообщение с вложением.
//
// Поток:
//  1. Проверка комнаты и членства
//  2. Определение MIME-типа (расширение → сигнатура → octet-stream)
//  3. Политика типов и лимит размера
//  4. Сохранение blob-а (streaming + SHA-256)
//  5. Запись uploads (status=confirmed)
//  6. Миниатюра (best effort, для изображений)
//  7. Сообщение с вложением
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*model.Message, *OpError) {
	snap := s.settings.Snapshot()

	room, opErr := s.resolveRoom(ctx, params.RoomID)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("upload", "error").Inc()
		return nil, opErr
	}

	// Отправлять файлы в комнату могут только её участники
	if opErr := s.requireMember(ctx, room.ID, params.Principal); opErr != nil {
		middleware.UploadsTotal.WithLabelValues("upload", "denied").Inc()
		return nil, opErr
	}

	if params.DeclaredSize > snap.MaxFileSize {
		middleware.UploadsTotal.WithLabelValues("upload", "too_large").Inc()
		return nil, errFileTooLarge(params.DeclaredSize, snap.MaxFileSize)
	}

	// Читаем первые байты для определения типа по сигнатуре
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(params.Reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errInternal("Ошибка чтения файла")
	}
	head = head[:n]
	if n == 0 {
		middleware.UploadsTotal.WithLabelValues("upload", "empty").Inc()
		return nil, errFileEmpty()
	}

	contentType := mediatype.Resolve(params.Filename, head)
	if !mediatype.IsAllowed(contentType, snap.MediaTypeList()) {
		middleware.UploadsTotal.WithLabelValues("upload", "blocked_type").Inc()
		s.logger.Warn("Тип файла запрещён политикой",
			slog.String("filename", params.Filename),
			slog.String("content_type", contentType),
		)
		return nil, errInvalidFileType()
	}

	upload, opErr := s.saveUpload(ctx, room.ID, params.Principal.UserID,
		io.MultiReader(bytes.NewReader(head), params.Reader),
		params.Filename, contentType, snap.MaxFileSize, model.StatusConfirmed)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("upload", "error").Inc()
		return nil, opErr
	}

	// Миниатюра не блокирует загрузку: при ошибке публикуется
	// сообщение без неё
	thumb := s.generateThumbnail(ctx, upload)

	message, opErr := s.publishMessage(ctx, upload, thumb, params.Msg, params.Description)
	if opErr != nil {
		middleware.UploadsTotal.WithLabelValues("upload", "error").Inc()
		return nil, opErr
	}

	middleware.UploadsTotal.WithLabelValues("upload", "success").Inc()
	middleware.StorageBytes.Add(float64(upload.Size))

	s.logger.Info("Файл загружен",
		slog.String("file_id", upload.FileID),
		slog.String("room_id", upload.RoomID),
		slog.String("filename", upload.Name),
		slog.String("content_type", upload.ContentType),
		slog.Int64("size", upload.Size),
		slog.String("uploaded_by", upload.OwnerID),
	)

	return message, nil
}

// resolveRoom валидирует идентификатор и загружает комнату.
func (s *UploadService) resolveRoom(ctx context.Context, roomID string) (*model.Room, *OpError) {
	if err := uuid.Validate(roomID); err != nil {
		return nil, errInvalidRoom()
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errRoomNotFound()
		}
		s.logger.Error("Ошибка загрузки комнаты",
			slog.String("room_id", roomID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal("Внутренняя ошибка")
	}
	return room, nil
}

// requireMember проверяет членство принципала в комнате.
func (s *UploadService) requireMember(ctx context.Context, roomID string, principal model.Principal) *OpError {
	if principal.Anonymous() {
		return errNotAllowed("Требуется аутентификация [error-not-allowed]")
	}
	isMember, err := s.rooms.IsMember(ctx, roomID, principal.UserID)
	if err != nil {
		s.logger.Error("Ошибка проверки членства",
			slog.String("room_id", roomID),
			slog.String("user_id", principal.UserID),
			slog.String("error", err.Error()),
		)
		return errInternal("Внутренняя ошибка")
	}
	if !isMember {
		return errNotAllowed("Загрузка доступна только участникам комнаты [error-not-allowed]")
	}
	return nil
}

// saveUpload сохраняет blob на диск и регистрирует запись uploads.
// При ошибке записи в БД blob удаляется.
func (s *UploadService) saveUpload(
	ctx context.Context,
	roomID, ownerID string,
	reader io.Reader,
	filename, contentType string,
	maxSize int64,
	status model.UploadStatus,
) (*model.Upload, *OpError) {
	fileID := uuid.New().String()

	// Лимит размера действует и на поток: multipart может не знать размер заранее
	saved, err := s.store.SaveFile(io.LimitReader(reader, maxSize+1), fileID, filename)
	if err != nil {
		s.logger.Error("Ошибка сохранения файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal("Ошибка сохранения файла на диск")
	}

	cleanup := func() {
		if delErr := s.store.DeleteFile(saved.StoragePath); delErr != nil {
			s.logger.Error("Ошибка удаления blob-а при откате",
				slog.String("file_id", fileID),
				slog.String("error", delErr.Error()),
			)
		}
	}

	if saved.Size == 0 {
		cleanup()
		return nil, errFileEmpty()
	}
	if saved.Size > maxSize {
		cleanup()
		return nil, errFileTooLarge(saved.Size, maxSize)
	}

	upload := &model.Upload{
		FileID:      fileID,
		RoomID:      roomID,
		OwnerID:     ownerID,
		Name:        filename,
		ContentType: contentType,
		Size:        saved.Size,
		Checksum:    saved.Checksum,
		StoragePath: saved.StoragePath,
		Status:      status,
		UploadedAt:  time.Now().UTC(),
	}

	if err := s.uploads.Insert(ctx, upload); err != nil {
		cleanup()
		s.logger.Error("Ошибка записи метаданных загрузки",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal("Ошибка записи метаданных")
	}

	return upload, nil
}

// generateThumbnail строит и сохраняет миниатюру для изображения.
// Ошибки логируются и не прерывают загрузку; возвращает nil при неудаче.
func (s *UploadService) generateThumbnail(ctx context.Context, original *model.Upload) *model.Upload {
	if !s.thumbs.Supported(original.ContentType) {
		return nil
	}

	reader, err := s.store.ReadFile(original.StoragePath)
	if err != nil {
		s.logger.Error("Ошибка чтения blob-а для миниатюры",
			slog.String("file_id", original.FileID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		s.logger.Error("Ошибка чтения blob-а для миниатюры",
			slog.String("file_id", original.FileID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	thumb, err := s.thumbs.Generate(data, original.ContentType, original.Name)
	if err != nil {
		s.logger.Warn("Миниатюра не построена",
			slog.String("file_id", original.FileID),
			slog.String("content_type", original.ContentType),
			slog.String("error", err.Error()),
		)
		return nil
	}

	thumbID := uuid.New().String()
	saved, err := s.store.SaveFile(bytes.NewReader(thumb.Data), thumbID, thumb.Name)
	if err != nil {
		s.logger.Error("Ошибка сохранения миниатюры",
			slog.String("file_id", original.FileID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	thumbUpload := &model.Upload{
		FileID:      thumbID,
		RoomID:      original.RoomID,
		OwnerID:     original.OwnerID,
		Name:        thumb.Name,
		ContentType: thumb.ContentType,
		Size:        saved.Size,
		Checksum:    saved.Checksum,
		StoragePath: saved.StoragePath,
		Status:      model.StatusConfirmed,
		UploadedAt:  time.Now().UTC(),
	}

	if err := s.uploads.Insert(ctx, thumbUpload); err != nil {
		_ = s.store.DeleteFile(saved.StoragePath)
		s.logger.Error("Ошибка записи метаданных миниатюры",
			slog.String("file_id", original.FileID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := s.uploads.SetThumbnail(ctx, original.FileID, thumbID); err != nil {
		s.logger.Error("Ошибка привязки миниатюры",
			slog.String("file_id", original.FileID),
			slog.String("thumb_id", thumbID),
			slog.String("error", err.Error()),
		)
	}
	original.ThumbnailID = &thumbID

	return thumbUpload
}

// publishMessage формирует и сохраняет сообщение с вложением.
func (s *UploadService) publishMessage(
	ctx context.Context,
	upload, thumb *model.Upload,
	msg, description string,
) (*model.Message, *OpError) {
	files := []model.FileRef{{
		ID:   upload.FileID,
		Name: upload.Name,
		Type: upload.ContentType,
		Size: upload.Size,
	}}
	if thumb != nil {
		files = append(files, model.FileRef{
			ID:   thumb.FileID,
			Name: thumb.Name,
			Type: thumb.ContentType,
			Size: thumb.Size,
		})
	}

	attachment := model.Attachment{
		Title:       upload.Name,
		TitleLink:   upload.URL(),
		Description: description,
	}
	if mediatype.IsImage(upload.ContentType) {
		attachment.ImageURL = upload.URL()
		attachment.ImageType = upload.ContentType
		attachment.ImageSize = upload.Size
	} else {
		attachment.Format = mediatype.FormatLabel(upload.Name)
	}

	message := &model.Message{
		ID:          uuid.New().String(),
		RoomID:      upload.RoomID,
		UserID:      upload.OwnerID,
		Text:        msg,
		Timestamp:   time.Now().UTC(),
		File:        &files[0],
		Files:       files,
		Attachments: []model.Attachment{attachment},
	}

	if err := s.messages.Insert(ctx, message); err != nil {
		s.logger.Error("Ошибка записи сообщения",
			slog.String("file_id", upload.FileID),
			slog.String("room_id", upload.RoomID),
			slog.String("error", err.Error()),
		)
		return nil, errInternal(fmt.Sprintf("Ошибка публикации сообщения для файла %s", upload.FileID))
	}

	return message, nil
}
