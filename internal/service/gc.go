// gc.go — фоновая очистка брошенных резервирований.
//
// Резервирование (rooms.media без rooms.mediaConfirm) старше RS_RESERVE_TTL
// удаляется целиком: blob на диске, запись uploads и запись в кэше.
//
// Запускается как горутина с периодическим тикером (RS_GC_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/roomstore/internal/repository"
	"github.com/bigkaa/roomstore/internal/storage/filestore"
)

// Prometheus метрики GC
var (
	// gcRunsTotal — количество запусков GC.
	gcRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_gc_runs_total",
		Help: "Общее количество запусков GC",
	})

	// gcReservationsDeletedTotal — количество удалённых резервирований.
	gcReservationsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_gc_reservations_deleted_total",
		Help: "Общее количество брошенных резервирований, удалённых GC",
	})

	// gcDurationSeconds — длительность выполнения GC.
	gcDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rs_gc_duration_seconds",
		Help:    "Длительность выполнения GC в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// GCResult — результат одного запуска GC.
type GCResult struct {
	// DeletedCount — количество удалённых резервирований
	DeletedCount int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// GCService — фоновая очистка брошенных резервирований.
type GCService struct {
	store      *filestore.FileStore
	uploads    repository.UploadRepository
	cache      *CacheService
	reserveTTL time.Duration
	interval   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewGCService создаёт сервис GC.
func NewGCService(
	store *filestore.FileStore,
	uploads repository.UploadRepository,
	cache *CacheService,
	reserveTTL, interval time.Duration,
	logger *slog.Logger,
) *GCService {
	return &GCService{
		store:      store,
		uploads:    uploads,
		cache:      cache,
		reserveTTL: reserveTTL,
		interval:   interval,
		logger:     logger.With(slog.String("component", "gc")),
	}
}

// Start запускает фоновую горутину GC с периодическим тикером.
// Вызывается один раз при старте приложения.
func (gc *GCService) Start(ctx context.Context) {
	gcCtx, cancel := context.WithCancel(ctx)
	gc.cancel = cancel

	go gc.run(gcCtx)

	gc.logger.Info("GC запущен",
		slog.String("interval", gc.interval.String()),
		slog.String("reserve_ttl", gc.reserveTTL.String()),
	)
}

// Stop останавливает фоновый процесс GC.
func (gc *GCService) Stop() {
	if gc.cancel != nil {
		gc.cancel()
	}
	gc.logger.Info("GC остановлен")
}

// run — основной цикл фоновой горутины.
func (gc *GCService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	gc.RunOnce(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gc.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл GC.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (gc *GCService) RunOnce(ctx context.Context) *GCResult {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	start := time.Now()
	result := &GCResult{}

	gc.logger.Debug("GC запуск начат")

	cutoff := time.Now().UTC().Add(-gc.reserveTTL)
	stale, err := gc.uploads.ListReservedBefore(ctx, cutoff)
	if err != nil {
		gc.logger.Error("GC: ошибка выборки резервирований",
			slog.String("error", err.Error()),
		)
		result.Errors++
		result.Duration = time.Since(start)
		gcRunsTotal.Inc()
		return result
	}

	for _, upload := range stale {
		// Сначала blob: если диск недоступен, запись остаётся для
		// следующего запуска
		if err := gc.store.DeleteFile(upload.StoragePath); err != nil {
			gc.logger.Error("GC: ошибка удаления blob-а",
				slog.String("file_id", upload.FileID),
				slog.String("storage_path", upload.StoragePath),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		if err := gc.uploads.Delete(ctx, upload.FileID); err != nil {
			gc.logger.Error("GC: ошибка удаления записи",
				slog.String("file_id", upload.FileID),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		gc.cache.Delete(upload.FileID)

		gc.logger.Debug("GC: резервирование удалено",
			slog.String("file_id", upload.FileID),
			slog.String("filename", upload.Name),
			slog.Time("uploaded_at", upload.UploadedAt),
		)
		result.DeletedCount++
	}

	result.Duration = time.Since(start)

	gcRunsTotal.Inc()
	gcReservationsDeletedTotal.Add(float64(result.DeletedCount))
	gcDurationSeconds.Observe(result.Duration.Seconds())

	gc.logger.Info("GC завершён",
		slog.Int("deleted", result.DeletedCount),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
