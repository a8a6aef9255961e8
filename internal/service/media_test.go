package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/settings"
)

// mediaEnv — окружение для тестов двухфазной загрузки.
type mediaEnv struct {
	*uploadEnv
	media *MediaService
	cache *CacheService
}

func newMediaEnv(t *testing.T, snap settings.Snapshot) *mediaEnv {
	t.Helper()
	env := newUploadEnv(t, snap)
	cache := NewCacheService(100, time.Minute)
	media := NewMediaService(env.svc, env.uploads, cache, testLogger())
	return &mediaEnv{uploadEnv: env, media: media, cache: cache}
}

// TestMedia_ReserveThenConfirm проверяет двухфазный путь: файл резервируется
// без сообщения, подтверждение публикует сообщение с описанием.
func TestMedia_ReserveThenConfirm(t *testing.T) {
	env := newMediaEnv(t, defaultSnapshot())
	data := encodeTestImage(t, 800, 600, "png")

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader(data),
		Filename:     "photo.png",
		DeclaredSize: int64(len(data)),
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка резервирования: %v", opErr)
	}

	if upload.Status != model.StatusReserved {
		t.Errorf("статус: получено %s", upload.Status)
	}
	if upload.URL() == "" {
		t.Error("URL резервирования пуст")
	}

	// Резервирование не публикует сообщений
	if len(env.messages.messages) != 0 {
		t.Fatalf("сообщений быть не должно, есть %d", len(env.messages.messages))
	}

	msg, opErr := env.media.Confirm(context.Background(), ConfirmParams{
		RoomID:      env.roomID,
		FileID:      upload.FileID,
		Msg:         "готово",
		Description: "описание при подтверждении",
		Principal:   member(),
	})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка подтверждения: %v", opErr)
	}

	if msg.Attachments[0].Description != "описание при подтверждении" {
		t.Errorf("description: получено %q", msg.Attachments[0].Description)
	}
	// Миниатюра строится на фазе подтверждения
	if len(msg.Files) != 2 {
		t.Errorf("ожидалось 2 файла, получено %d", len(msg.Files))
	}

	confirmed, err := env.uploads.GetByID(context.Background(), upload.FileID)
	if err != nil {
		t.Fatalf("загрузка не найдена: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed {
		t.Errorf("статус после подтверждения: %s", confirmed.Status)
	}
}

// TestMedia_DoubleConfirmPublishesTwice проверяет, что повторное
// подтверждение публикует второе сообщение.
func TestMedia_DoubleConfirmPublishesTwice(t *testing.T) {
	env := newMediaEnv(t, defaultSnapshot())

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("содержимое")),
		Filename:     "note.txt",
		DeclaredSize: 10,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка: %v", opErr)
	}

	for i := 0; i < 2; i++ {
		if _, opErr := env.media.Confirm(context.Background(), ConfirmParams{
			RoomID:    env.roomID,
			FileID:    upload.FileID,
			Principal: member(),
		}); opErr != nil {
			t.Fatalf("подтверждение %d: %v", i+1, opErr)
		}
	}

	if len(env.messages.messages) != 2 {
		t.Errorf("ожидалось 2 сообщения, получено %d", len(env.messages.messages))
	}
}

// TestMedia_ConfirmForeignFile проверяет отказ чужому пользователю.
func TestMedia_ConfirmForeignFile(t *testing.T) {
	env := newMediaEnv(t, defaultSnapshot())
	_ = env.rooms.AddMember(context.Background(), env.roomID, "user2")

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("содержимое")),
		Filename:     "note.txt",
		DeclaredSize: 10,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка: %v", opErr)
	}

	_, opErr = env.media.Confirm(context.Background(), ConfirmParams{
		RoomID:    env.roomID,
		FileID:    upload.FileID,
		Principal: model.Principal{UserID: "user2"},
	})
	if opErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if opErr.StatusCode != 403 {
		t.Errorf("статус: получено %d", opErr.StatusCode)
	}
}

// TestMedia_ConfirmUnknownFile проверяет подтверждение несуществующего файла.
func TestMedia_ConfirmUnknownFile(t *testing.T) {
	env := newMediaEnv(t, defaultSnapshot())

	_, opErr := env.media.Confirm(context.Background(), ConfirmParams{
		RoomID:    env.roomID,
		FileID:    uuid.New().String(),
		Principal: member(),
	})
	if opErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if opErr.Type != "error-file-not-found" {
		t.Errorf("тип ошибки: получено %q", opErr.Type)
	}
}

// TestMedia_ConfirmWrongRoom проверяет, что файл из другой комнаты
// не раскрывается.
func TestMedia_ConfirmWrongRoom(t *testing.T) {
	env := newMediaEnv(t, defaultSnapshot())

	otherRoom := uuid.New().String()
	_ = env.rooms.Create(context.Background(), &model.Room{ID: otherRoom, Name: "other", Type: model.RoomPrivate})
	_ = env.rooms.AddMember(context.Background(), otherRoom, "user1")

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("содержимое")),
		Filename:     "note.txt",
		DeclaredSize: 10,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка: %v", opErr)
	}

	_, opErr = env.media.Confirm(context.Background(), ConfirmParams{
		RoomID:    otherRoom,
		FileID:    upload.FileID,
		Principal: member(),
	})
	if opErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if opErr.Type != "error-file-not-found" {
		t.Errorf("тип ошибки: получено %q", opErr.Type)
	}
}

// TestMedia_ReserveBlockedType проверяет, что политика типов действует
// уже на фазе резервирования.
func TestMedia_ReserveBlockedType(t *testing.T) {
	snap := defaultSnapshot()
	snap.MediaTypeBlockList = "image/svg+xml"
	env := newMediaEnv(t, snap)

	_, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)),
		Filename:     "pic.svg",
		DeclaredSize: 41,
		Principal:    member(),
	})
	if opErr == nil {
		t.Fatal("ожидалась ошибка политики типов")
	}
	if opErr.Type != "error-invalid-file-type" {
		t.Errorf("тип ошибки: получено %q", opErr.Type)
	}
}
