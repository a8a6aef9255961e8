// errors.go — общий тип ошибки сервисного слоя с HTTP-кодом.
package service

import (
	"fmt"
	"net/http"

	apierrors "github.com/bigkaa/roomstore/internal/api/errors"
)

// OpError — ошибка операции сервисного слоя.
// Переносит HTTP статус-код и машиночитаемый тип до API-слоя.
type OpError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Write записывает ошибку в HTTP-ответ в стандартном формате.
func (e *OpError) Write(w http.ResponseWriter) {
	apierrors.WriteError(w, e.StatusCode, e.Type, e.Message)
}

// --- Конструкторы ---

func errRoomNotFound() *OpError {
	return &OpError{StatusCode: http.StatusNotFound, Type: apierrors.TypeRoomNotFound, Message: "[error-room-not-found]"}
}

func errFileNotFound() *OpError {
	return &OpError{StatusCode: http.StatusNotFound, Type: apierrors.TypeFileNotFound, Message: "[error-file-not-found]"}
}

func errInvalidRoom() *OpError {
	return &OpError{StatusCode: http.StatusBadRequest, Type: apierrors.TypeInvalidRoom, Message: "[error-invalid-room]"}
}

func errInvalidFileType() *OpError {
	return &OpError{StatusCode: http.StatusBadRequest, Type: apierrors.TypeInvalidFileType, Message: "[error-invalid-file-type]"}
}

func errFileEmpty() *OpError {
	return &OpError{StatusCode: http.StatusBadRequest, Type: apierrors.TypeFileEmpty, Message: "[error-file-empty]"}
}

func errFileTooLarge(size, limit int64) *OpError {
	return &OpError{
		StatusCode: http.StatusRequestEntityTooLarge,
		Type:       apierrors.TypeFileTooLarge,
		Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт [error-file-too-large]", size, limit),
	}
}

func errNotAllowed(message string) *OpError {
	return &OpError{StatusCode: http.StatusForbidden, Type: apierrors.TypeNotAllowed, Message: message}
}

func errInternal(message string) *OpError {
	return &OpError{StatusCode: http.StatusInternalServerError, Type: apierrors.TypeInternal, Message: message}
}
