// files.go — выдача загруженных файлов.
// Две схемы URL указывают на один и тот же файл:
//   GET /file-upload/{fileId}/{filename}
//   GET /ufs/GridFS:Uploads/{fileId}/{filename}
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/service"
)

// FilesHandler — обработчик выдачи файлов.
type FilesHandler struct {
	downloadSvc *service.DownloadService
}

// NewFilesHandler создаёт обработчик выдачи файлов.
func NewFilesHandler(downloadSvc *service.DownloadService) *FilesHandler {
	return &FilesHandler{downloadSvc: downloadSvc}
}

// Download обрабатывает обе схемы URL.
// Имя файла в URL декоративное: поиск идёт по fileId.
// http.ServeContent даёт поддержку Range requests и If-Modified-Since.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	result, opErr := h.downloadSvc.Get(r.Context(), fileID, principal)
	if opErr != nil {
		opErr.Write(w)
		return
	}
	defer result.File.Close()

	w.Header().Set("Content-Type", result.Upload.ContentType)
	http.ServeContent(w, r, result.Upload.Name, result.Upload.UploadedAt, result.File)
}
