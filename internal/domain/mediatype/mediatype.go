// Пакет mediatype — определение MIME-типа загружаемого файла и
// политика allow/block списков.
//
// Разрешённый тип (resolved type) вычисляется по расширению и содержимому,
// а не по Content-Type клиента. Неизвестное содержимое получает
// application/octet-stream, и этот fallback-тип проходит ту же проверку
// политики: если octet-stream заблокирован, неопознанные файлы отклоняются.
//
// Все функции чистые, без побочных эффектов.
package mediatype

import (
	"net/http"
	"path/filepath"
	"strings"
)

// FallbackType — тип по умолчанию для неопознанного содержимого.
const FallbackType = "application/octet-stream"

// knownExtensions — таблица расширений с однозначным типом.
// Проверяется до content sniffing: расширение надёжнее для текстовых
// и векторных форматов, которые sniffing различает плохо.
var knownExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".txt":  "text/plain",
	".lst":  "text/plain",
	".csv":  "text/csv",
	".json": "application/json",
	".xml":  "text/xml",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// sniffedTypes — закрытый набор типов, принимаемых от content sniffing.
// Текстовые результаты sniffing (text/plain, text/xml) не принимаются:
// без известного расширения текстовое содержимое остаётся неопознанным
// и получает FallbackType (.drawio — XML внутри, но тип octet-stream).
var sniffedTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/zip": true,
	"audio/mpeg":      true,
	"video/mp4":       true,
	"video/webm":      true,
}

// Resolve определяет MIME-тип файла по имени и первым байтам содержимого.
// head — до 512 байт начала файла (может быть короче или nil).
// Возвращает тип из закрытого набора известных либо FallbackType.
func Resolve(filename string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := knownExtensions[ext]; ok {
		return t
	}

	if len(head) > 0 {
		sniffed := http.DetectContentType(head)
		// Убираем параметры (charset и т.д.)
		if idx := strings.Index(sniffed, ";"); idx != -1 {
			sniffed = strings.TrimSpace(sniffed[:idx])
		}
		if sniffedTypes[sniffed] {
			return sniffed
		}
	}

	return FallbackType
}

// IsImage возвращает true для типов, поддерживаемых генератором миниатюр.
func IsImage(mimeType string) bool {
	switch mimeType {
	case "image/png", "image/jpeg", "image/svg+xml":
		return true
	}
	return false
}

// FormatLabel возвращает метку формата для поля format вложения:
// расширение файла в верхнем регистре (LST, DRAWIO, PDF).
// Для файлов без расширения возвращает пустую строку.
func FormatLabel(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return strings.ToUpper(ext)
}

// ListMode — режим списка типов.
type ListMode string

const (
	// ModeBlock — запрещено то, что в списке
	ModeBlock ListMode = "block"
	// ModeAllow — разрешено только то, что в списке
	ModeAllow ListMode = "allow"
)

// ListConfig — конфигурация allow/block списка MIME-типов.
type ListConfig struct {
	Mode ListMode
	// Patterns — точные типы ("text/plain") или wildcard ("image/*")
	Patterns []string
}

// ParseList строит ListConfig из строки с типами через запятую.
// Пустые элементы и пробелы игнорируются.
func ParseList(mode ListMode, csv string) ListConfig {
	var patterns []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return ListConfig{Mode: mode, Patterns: patterns}
}

// IsAllowed проверяет, допустим ли разрешённый MIME-тип по конфигурации.
// ModeBlock: разрешено всё, что не совпало с паттернами.
// ModeAllow: разрешено только совпавшее.
func IsAllowed(mimeType string, cfg ListConfig) bool {
	matched := false
	for _, p := range cfg.Patterns {
		if matchPattern(mimeType, p) {
			matched = true
			break
		}
	}

	if cfg.Mode == ModeAllow {
		return matched
	}
	return !matched
}

// matchPattern сравнивает тип с паттерном: точное совпадение
// или wildcard вида "type/*".
func matchPattern(mimeType, pattern string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(mimeType, prefix)
	}
	return mimeType == pattern
}
