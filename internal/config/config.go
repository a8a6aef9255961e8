// Пакет config — загрузка и валидация конфигурации Roomstore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Roomstore.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уникальный идентификатор инстанса (например, "roomstore-01")
	ServiceID string
	// Путь к директории хранения blob-ов
	DataDir string

	// Параметры PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// URL JWKS endpoint провайдера токенов
	JWKSUrl string
	// Путь к CA-сертификату для проверки TLS JWKS endpoint (опционально)
	JWKSCACert string
	// Пропускать проверку TLS-сертификатов JWKS endpoint
	JWKSTLSSkipVerify bool
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// Максимальный размер файла в байтах (начальное значение настройки)
	MaxFileSize int64
	// Запрещённые MIME-типы через запятую (начальное значение настройки)
	MediaTypeBlockList string
	// Файлы закрыты для анонимного доступа (начальное значение настройки)
	ProtectFiles bool

	// TTL неподтверждённого резервирования (rooms.media без mediaConfirm)
	ReserveTTL time.Duration
	// Интервал запуска GC брошенных резервирований
	GCInterval time.Duration

	// Размер LRU-кэша метаданных загрузок
	CacheSize int
	// TTL записи кэша метаданных
	CacheTTL time.Duration

	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости (целевого сервиса) в метриках topologymetrics
	DephealthDepName string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// RS_PORT — порт HTTP-сервера (по умолчанию 8020)
	cfg.Port, err = getEnvInt("RS_PORT", 8020)
	if err != nil {
		return nil, fmt.Errorf("RS_PORT: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// RS_SERVICE_ID — идентификатор инстанса (по умолчанию "roomstore")
	cfg.ServiceID = getEnvDefault("RS_SERVICE_ID", "roomstore")

	// RS_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("RS_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// Параметры PostgreSQL
	cfg.DBHost = getEnvDefault("RS_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("RS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("RS_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("RS_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("RS_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("RS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("RS_DB_SSL_MODE", "disable")

	// RS_JWKS_URL — обязательный
	cfg.JWKSUrl, err = getEnvRequired("RS_JWKS_URL")
	if err != nil {
		return nil, err
	}
	cfg.JWKSCACert = getEnvDefault("RS_JWKS_CA_CERT", "")
	cfg.JWKSTLSSkipVerify = getEnvBool("RS_JWKS_TLS_SKIP_VERIFY", false)
	cfg.JWKSClientTimeout, err = getEnvDuration("RS_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("RS_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("RS_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("RS_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_JWT_LEEWAY: %w", err)
	}

	// RS_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	cfg.MaxFileSize, err = getEnvInt64("RS_MAX_FILE_SIZE", 104857600)
	if err != nil {
		return nil, fmt.Errorf("RS_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("RS_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// RS_MEDIA_TYPE_BLOCK_LIST — запрещённые MIME-типы
	cfg.MediaTypeBlockList = getEnvDefault("RS_MEDIA_TYPE_BLOCK_LIST", "image/svg+xml")

	// RS_PROTECT_FILES — анонимный доступ к файлам закрыт (по умолчанию true)
	cfg.ProtectFiles = getEnvBool("RS_PROTECT_FILES", true)

	// RS_RESERVE_TTL — TTL брошенных резервирований (по умолчанию 24h)
	cfg.ReserveTTL, err = getEnvDuration("RS_RESERVE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("RS_RESERVE_TTL: %w", err)
	}

	// RS_GC_INTERVAL — интервал GC (по умолчанию 1h)
	cfg.GCInterval, err = getEnvDuration("RS_GC_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("RS_GC_INTERVAL: %w", err)
	}

	// RS_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 10000)
	cfg.CacheSize, err = getEnvInt("RS_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("RS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("RS_CACHE_SIZE: значение должно быть положительным")
	}

	// RS_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("RS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RS_CACHE_TTL: %w", err)
	}

	// TLS (опционально, оба или ни одного)
	cfg.TLSCert = getEnvDefault("RS_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("RS_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("RS_TLS_CERT и RS_TLS_KEY должны задаваться вместе")
	}

	// RS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RS_LOG_LEVEL: %w", err)
	}

	// RS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// RS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("RS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// RS_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("RS_DEPHEALTH_GROUP", "roomstore")

	// RS_DEPHEALTH_DEP_NAME — имя зависимости в метриках topologymetrics
	cfg.DephealthDepName = getEnvDefault("RS_DEPHEALTH_DEP_NAME", "auth-jwks")

	// RS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("RS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
// Истинные значения: "true", "1", "yes".
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1" || val == "yes"
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
