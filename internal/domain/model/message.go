// message.go — сообщение комнаты с вложениями.
// Формат полей повторяет wire-формат клиентов: file, files, attachments.
package model

import (
	"time"
)

// FileRef — краткая ссылка на файл в сообщении.
type FileRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

// Attachment — дескриптор вложения. Ровно один Attachment
// на один загруженный файл (инвариант batch-of-1).
type Attachment struct {
	// Title — оригинальное имя файла
	Title string `json:"title"`
	// TitleLink — URL скачивания оригинала
	TitleLink string `json:"title_link"`
	// Description — описание, заданное при загрузке или подтверждении
	Description string `json:"description,omitempty"`
	// ImageURL/ImageType — только для растровых и векторных изображений
	ImageURL  string `json:"image_url,omitempty"`
	ImageType string `json:"image_type,omitempty"`
	ImageSize int64  `json:"image_size,omitempty"`
	// Format — метка формата для не-изображений (LST, DRAWIO, PDF...)
	Format string `json:"format,omitempty"`
}

// Message — сообщение комнаты, созданное загрузкой файла.
type Message struct {
	ID        string    `json:"_id"`
	RoomID    string    `json:"rid"`
	UserID    string    `json:"u"`
	Text      string    `json:"msg"`
	Timestamp time.Time `json:"ts"`

	// File — первый (основной) файл сообщения
	File *FileRef `json:"file,omitempty"`
	// Files — все файлы: оригинал и, если есть, миниатюра
	Files []FileRef `json:"files"`
	// Attachments — дескрипторы вложений (ровно один на загрузку)
	Attachments []Attachment `json:"attachments"`
}
