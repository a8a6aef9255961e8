// metrics.go — Prometheus HTTP метрики для Roomstore.
// Регистрирует метрики: rs_http_requests_total, rs_http_request_duration_seconds.
// Бизнес-метрики (rs_uploads_total, rs_storage_bytes и др.) регистрируются
// в соответствующих пакетах и обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rs_http_requests_total",
			Help: "Общее количество HTTP-запросов к Roomstore",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rs_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Roomstore в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// UploadsTotal — общее количество загрузок файлов.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rs_uploads_total",
			Help: "Общее количество загрузок файлов",
		},
		[]string{"operation", "result"},
	)

	// StorageBytes — объём принятых байт (counter).
	StorageBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rs_storage_bytes_total",
			Help: "Объём принятых байт загрузок",
		},
	)

	// DownloadsTotal — общее количество запросов на скачивание.
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rs_downloads_total",
			Help: "Общее количество запросов на скачивание файлов",
		},
		[]string{"result"},
	)

	// ThumbnailsTotal — результаты генерации миниатюр.
	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rs_thumbnails_total",
			Help: "Результаты генерации миниатюр",
		},
		[]string{"result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы в сегментах пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
// /api/v1/rooms.upload/a1b2c3 → /api/v1/rooms.upload/{roomId}
// /file-upload/f1/photo.png  → /file-upload/{fileId}/{filename}
func normalizePath(path string) string {
	switch {
	case path == "/health/live", path == "/health/ready", path == "/metrics",
		path == "/api/v1/settings", path == "/api/v1/rooms":
		return path
	case strings.HasPrefix(path, "/api/v1/rooms.upload/"):
		return "/api/v1/rooms.upload/{roomId}"
	case strings.HasPrefix(path, "/api/v1/rooms.mediaConfirm/"):
		return "/api/v1/rooms.mediaConfirm/{roomId}/{fileId}"
	case strings.HasPrefix(path, "/api/v1/rooms.media/"):
		return "/api/v1/rooms.media/{roomId}"
	case strings.HasPrefix(path, "/api/v1/rooms/"):
		return "/api/v1/rooms/{roomId}/members"
	case strings.HasPrefix(path, "/file-upload/"):
		return "/file-upload/{fileId}/{filename}"
	case strings.HasPrefix(path, "/ufs/"):
		return "/ufs/GridFS:Uploads/{fileId}/{filename}"
	}
	return path
}
