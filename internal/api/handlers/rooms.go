// rooms.go — HTTP handlers комнат: создание, участники и три операции
// загрузки файлов (rooms.upload, rooms.media, rooms.mediaConfirm).
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/roomstore/internal/api/errors"
	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/repository"
	"github.com/bigkaa/roomstore/internal/service"
	"github.com/bigkaa/roomstore/internal/settings"
)

// RoomsHandler — обработчик endpoints комнат.
type RoomsHandler struct {
	uploadSvc *service.UploadService
	mediaSvc  *service.MediaService
	rooms     repository.RoomRepository
	settings  *settings.Store
}

// NewRoomsHandler создаёт обработчик endpoints комнат.
func NewRoomsHandler(
	uploadSvc *service.UploadService,
	mediaSvc *service.MediaService,
	rooms repository.RoomRepository,
	settingsStore *settings.Store,
) *RoomsHandler {
	return &RoomsHandler{
		uploadSvc: uploadSvc,
		mediaSvc:  mediaSvc,
		rooms:     rooms,
		settings:  settingsStore,
	}
}

// messageResponse — успешный ответ с опубликованным сообщением.
type messageResponse struct {
	Success bool           `json:"success"`
	Message *model.Message `json:"message"`
}

// Upload обрабатывает POST /api/v1/rooms.upload/{roomId}.
// Multipart form: file (обязательно, ровно один), msg и description (опционально).
func (h *RoomsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	snap := h.settings.Snapshot()

	form, ok := parseUploadForm(w, r, snap.MaxFileSize)
	if !ok {
		return
	}

	file, err := form.File.Open()
	if err != nil {
		apierrors.Internal(w, "Ошибка чтения файла из формы")
		return
	}
	defer file.Close()

	message, opErr := h.uploadSvc.Upload(r.Context(), service.UploadParams{
		RoomID:       chi.URLParam(r, "roomId"),
		Reader:       file,
		Filename:     form.File.Filename,
		DeclaredSize: form.File.Size,
		Msg:          form.Msg,
		Description:  form.Description,
		Principal:    principal,
	})
	if opErr != nil {
		opErr.Write(w)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message})
}

// mediaResponse — успешный ответ резервирования файла.
type mediaResponse struct {
	Success bool      `json:"success"`
	File    mediaFile `json:"file"`
}

type mediaFile struct {
	ID  string `json:"_id"`
	URL string `json:"url"`
}

// Media обрабатывает POST /api/v1/rooms.media/{roomId}.
// Резервирует файл; сообщение публикуется отдельным вызовом mediaConfirm.
func (h *RoomsHandler) Media(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	snap := h.settings.Snapshot()

	form, ok := parseUploadForm(w, r, snap.MaxFileSize)
	if !ok {
		return
	}

	file, err := form.File.Open()
	if err != nil {
		apierrors.Internal(w, "Ошибка чтения файла из формы")
		return
	}
	defer file.Close()

	upload, opErr := h.mediaSvc.Reserve(r.Context(), service.MediaParams{
		RoomID:       chi.URLParam(r, "roomId"),
		Reader:       file,
		Filename:     form.File.Filename,
		DeclaredSize: form.File.Size,
		Principal:    principal,
	})
	if opErr != nil {
		opErr.Write(w)
		return
	}

	writeJSON(w, http.StatusOK, mediaResponse{
		Success: true,
		File: mediaFile{
			ID:  upload.FileID,
			URL: upload.URL(),
		},
	})
}

// mediaConfirmRequest — тело запроса подтверждения загрузки.
type mediaConfirmRequest struct {
	Msg         string `json:"msg"`
	Description string `json:"description"`
}

// MediaConfirm обрабатывает POST /api/v1/rooms.mediaConfirm/{roomId}/{fileId}.
// Тело JSON: msg и description (опционально).
func (h *RoomsHandler) MediaConfirm(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())

	var req mediaConfirmRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.InvalidField(w, "[invalid-field]")
			return
		}
	}

	message, opErr := h.mediaSvc.Confirm(r.Context(), service.ConfirmParams{
		RoomID:      chi.URLParam(r, "roomId"),
		FileID:      chi.URLParam(r, "fileId"),
		Msg:         req.Msg,
		Description: req.Description,
		Principal:   principal,
	})
	if opErr != nil {
		opErr.Write(w)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message})
}

// createRoomRequest — тело запроса создания комнаты.
type createRoomRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// roomResponse — успешный ответ с комнатой.
type roomResponse struct {
	Success bool        `json:"success"`
	Room    *model.Room `json:"room"`
}

// CreateRoom обрабатывает POST /api/v1/rooms.
// Создатель автоматически становится участником комнаты.
func (h *RoomsHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.InvalidField(w, "[invalid-field]")
		return
	}
	if req.Name == "" {
		apierrors.InvalidField(w, "Поле 'name' обязательно")
		return
	}

	roomType := model.RoomType(req.Type)
	if roomType != model.RoomPublic && roomType != model.RoomPrivate {
		apierrors.InvalidField(w, "Поле 'type' должно быть 'c' или 'p'")
		return
	}

	room := &model.Room{
		ID:   uuid.New().String(),
		Name: req.Name,
		Type: roomType,
	}
	if err := h.rooms.Create(r.Context(), room); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			apierrors.InvalidField(w, "Комната с таким именем уже существует")
			return
		}
		apierrors.Internal(w, "Ошибка создания комнаты")
		return
	}

	if err := h.rooms.AddMember(r.Context(), room.ID, principal.UserID); err != nil {
		apierrors.Internal(w, "Ошибка добавления создателя в комнату")
		return
	}

	writeJSON(w, http.StatusCreated, roomResponse{Success: true, Room: room})
}

// memberRequest — тело запроса добавления участника.
type memberRequest struct {
	UserID string `json:"userId"`
}

// successResponse — минимальный успешный ответ.
type successResponse struct {
	Success bool `json:"success"`
}

// AddMember обрабатывает POST /api/v1/rooms/{roomId}/members.
// Добавлять участников может только участник комнаты.
func (h *RoomsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	roomID := chi.URLParam(r, "roomId")

	room, opErr := h.resolveRoom(r, roomID)
	if opErr != nil {
		opErr.Write(w)
		return
	}

	isMember, err := h.rooms.IsMember(r.Context(), room.ID, principal.UserID)
	if err != nil {
		apierrors.Internal(w, "Ошибка проверки членства")
		return
	}
	if !isMember {
		apierrors.NotAllowed(w, "Добавлять участников может только участник комнаты [error-not-allowed]")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		apierrors.InvalidField(w, "Поле 'userId' обязательно")
		return
	}

	if err := h.rooms.AddMember(r.Context(), room.ID, req.UserID); err != nil {
		apierrors.Internal(w, "Ошибка добавления участника")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// RemoveMember обрабатывает DELETE /api/v1/rooms/{roomId}/members/{userId}.
func (h *RoomsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	roomID := chi.URLParam(r, "roomId")

	room, opErr := h.resolveRoom(r, roomID)
	if opErr != nil {
		opErr.Write(w)
		return
	}

	isMember, err := h.rooms.IsMember(r.Context(), room.ID, principal.UserID)
	if err != nil {
		apierrors.Internal(w, "Ошибка проверки членства")
		return
	}
	if !isMember {
		apierrors.NotAllowed(w, "Удалять участников может только участник комнаты [error-not-allowed]")
		return
	}

	if err := h.rooms.RemoveMember(r.Context(), room.ID, chi.URLParam(r, "userId")); err != nil {
		apierrors.Internal(w, "Ошибка удаления участника")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// roomError — локальная ошибка разрешения комнаты.
type roomError struct {
	write func(http.ResponseWriter)
}

func (e *roomError) Write(w http.ResponseWriter) { e.write(w) }

// resolveRoom валидирует идентификатор и загружает комнату.
func (h *RoomsHandler) resolveRoom(r *http.Request, roomID string) (*model.Room, *roomError) {
	if err := uuid.Validate(roomID); err != nil {
		return nil, &roomError{write: apierrors.InvalidRoom}
	}
	room, err := h.rooms.GetByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &roomError{write: apierrors.RoomNotFound}
		}
		return nil, &roomError{write: func(w http.ResponseWriter) {
			apierrors.Internal(w, "Внутренняя ошибка")
		}}
	}
	return room, nil
}
