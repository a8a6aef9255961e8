// Пакет model — доменные модели Roomstore.
// Upload — единая структура метаданных загруженного файла,
// используется как in-memory представление и как строка таблицы uploads.
package model

import (
	"time"
)

// UploadStatus — статус загрузки в двухфазном протоколе.
type UploadStatus string

const (
	// StatusReserved — blob сохранён, но attachment и сообщение ещё не созданы
	// (rooms.media без rooms.mediaConfirm)
	StatusReserved UploadStatus = "reserved"
	// StatusConfirmed — загрузка привязана к сообщению комнаты
	StatusConfirmed UploadStatus = "confirmed"
)

// Upload — метаданные загруженного файла (StoredFile).
// Поле StoragePath не возвращается в API, используется только
// для привязки к физическому файлу на диске.
type Upload struct {
	// FileID — уникальный идентификатор файла (UUID v4)
	FileID string `json:"_id"`

	// RoomID — комната, которой принадлежит файл
	RoomID string `json:"rid"`

	// OwnerID — идентификатор загрузившего пользователя (sub из JWT)
	OwnerID string `json:"userId"`

	// Name — оригинальное имя файла при загрузке
	Name string `json:"name"`

	// ContentType — разрешённый MIME-тип (по содержимому/расширению,
	// не по заголовку клиента)
	ContentType string `json:"type"`

	// Size — размер файла в байтах
	Size int64 `json:"size"`

	// Checksum — SHA-256 хэш содержимого
	Checksum string `json:"-"`

	// StoragePath — имя файла на диске (относительно RS_DATA_DIR)
	StoragePath string `json:"-"`

	// Status — reserved | confirmed
	Status UploadStatus `json:"-"`

	// ThumbnailID — идентификатор файла-миниатюры (nil если нет)
	ThumbnailID *string `json:"-"`

	// UploadedAt — момент загрузки (UTC)
	UploadedAt time.Time `json:"uploadedAt"`
}

// URL возвращает канонический URL скачивания файла.
func (u *Upload) URL() string {
	return "/file-upload/" + u.FileID + "/" + u.Name
}

// LegacyURL возвращает URL скачивания в старой схеме UFS.
// Обе схемы разрешаются в один и тот же файл и одно решение AccessGate.
func (u *Upload) LegacyURL() string {
	return "/ufs/GridFS:Uploads/" + u.FileID + "/" + u.Name
}
