// Пакет errors — конструкторы стандартных ошибок в формате Roomstore.
// Единый формат: {"success": false, "error": "...", "errorType": "..."}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые типы ошибок API.
const (
	TypeInvalidField    = "invalid-field"
	TypeFileEmpty       = "error-file-empty"
	TypeInvalidFileType = "error-invalid-file-type"
	TypeFileTooLarge    = "error-file-too-large"
	TypeRoomNotFound    = "error-room-not-found"
	TypeFileNotFound    = "error-file-not-found"
	TypeInvalidRoom     = "error-invalid-room"
	TypeUnauthorized    = "error-unauthorized"
	TypeNotAllowed      = "error-not-allowed"
	TypeInternal        = "error-internal"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
}

// WriteError записывает ответ ошибки в стандартном формате Roomstore.
// statusCode — HTTP статус-код, errorType — машиночитаемый тип,
// message — человекочитаемое описание.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Success:   false,
		Error:     message,
		ErrorType: errorType,
	})
}

// --- Конструкторы для типичных ошибок ---

// InvalidField — 400 некорректное или отсутствующее поле запроса.
func InvalidField(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, TypeInvalidField, message)
}

// FileEmpty — 400 загружен пустой файл.
func FileEmpty(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, TypeFileEmpty, "[error-file-empty]")
}

// TooManyFiles — 400 в запросе больше одного файла.
func TooManyFiles(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, TypeInvalidField, "Just 1 file is allowed")
}

// InvalidFileType — 400 MIME-тип файла запрещён политикой.
func InvalidFileType(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, TypeInvalidFileType, "[error-invalid-file-type]")
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter) {
	WriteError(w, http.StatusRequestEntityTooLarge, TypeFileTooLarge, "[error-file-too-large]")
}

// RoomNotFound — 404 комната не найдена.
func RoomNotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, TypeRoomNotFound, "[error-room-not-found]")
}

// FileNotFound — 404 файл не найден.
func FileNotFound(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, TypeFileNotFound, "[error-file-not-found]")
}

// InvalidRoom — 400 некорректный идентификатор комнаты.
func InvalidRoom(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, TypeInvalidRoom, "[error-invalid-room]")
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, TypeUnauthorized, message)
}

// NotAllowed — 403 доступ запрещён.
func NotAllowed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, TypeNotAllowed, message)
}

// Internal — 500 внутренняя ошибка.
func Internal(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, TypeInternal, message)
}
