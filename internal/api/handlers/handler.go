// Пакет handlers — HTTP handlers Roomstore.
// handler.go — общие помощники: JSON-ответы и разбор multipart-форм.
package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	apierrors "github.com/bigkaa/roomstore/internal/api/errors"
)

// multipartOverhead — запас к лимиту тела на заголовки и текстовые поля формы.
const multipartOverhead = 10 << 20

// writeJSON записывает успешный JSON-ответ.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// uploadForm — разобранная multipart-форма загрузки.
type uploadForm struct {
	// File — единственный файл формы
	File *multipart.FileHeader
	// Msg — текст сообщения (опционально)
	Msg string
	// Description — описание вложения (опционально)
	Description string
}

// parseUploadForm разбирает multipart-форму и валидирует её состав:
// ровно один файл, строго в поле "file". При нарушении пишет ответ
// ошибки и возвращает false.
func parseUploadForm(w http.ResponseWriter, r *http.Request, maxFileSize int64) (*uploadForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w)
			return nil, false
		}
		apierrors.InvalidField(w, "[invalid-field]")
		return nil, false
	}

	form := r.MultipartForm
	if form == nil {
		apierrors.InvalidField(w, "[invalid-field]")
		return nil, false
	}

	totalFiles := 0
	for field, headers := range form.File {
		if field != "file" && len(headers) > 0 {
			apierrors.InvalidField(w, "[invalid-field]")
			return nil, false
		}
		totalFiles += len(headers)
	}
	if totalFiles > 1 {
		apierrors.TooManyFiles(w)
		return nil, false
	}
	if totalFiles == 0 {
		apierrors.InvalidField(w, "[invalid-field]")
		return nil, false
	}

	return &uploadForm{
		File:        form.File["file"][0],
		Msg:         r.FormValue("msg"),
		Description: r.FormValue("description"),
	}, true
}
