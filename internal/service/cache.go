// cache.go — LRU-кэш метаданных загрузок с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable. Кэшируется только
// метаданные файла; решение о доступе принимается на каждый запрос заново.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/roomstore/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных загрузок.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rs_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных загрузок.",
	})
)

// CacheService — LRU-кэш метаданных загрузок с автоматическим TTL.
// Каждый экземпляр Roomstore имеет собственный in-memory кэш.
type CacheService struct {
	cache *expirable.LRU[string, *model.Upload]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.Upload](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает Upload из кэша по fileID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(fileID string) (*model.Upload, bool) {
	val, ok := c.cache.Get(fileID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(fileID string, upload *model.Upload) {
	c.cache.Add(fileID, upload)
}

// Delete удаляет запись из кэша (инвалидация при подтверждении или GC).
func (c *CacheService) Delete(fileID string) {
	c.cache.Remove(fileID)
}
