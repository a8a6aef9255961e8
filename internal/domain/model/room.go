// room.go — комната и принципал.
package model

import (
	"time"
)

// RoomType — тип комнаты.
type RoomType string

const (
	// RoomPublic — публичный канал: доступен без членства
	RoomPublic RoomType = "c"
	// RoomPrivate — приватная группа: доступ только участникам
	RoomPrivate RoomType = "p"
)

// Room — комната, владеющая файлами и сообщениями.
type Room struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Type      RoomType  `json:"t"`
	CreatedAt time.Time `json:"ts"`
}

// Principal — идентичность, выполняющая операцию.
// Пустой UserID означает анонимный доступ.
type Principal struct {
	// UserID — sub из JWT, пустой для анонима
	UserID string
	// Scopes — scope-ы токена
	Scopes []string
}

// Anonymous возвращает true, если принципал не аутентифицирован.
func (p Principal) Anonymous() bool {
	return p.UserID == ""
}
