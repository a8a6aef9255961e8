package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/settings"
)

// downloadEnv — окружение для тестов выдачи файлов.
type downloadEnv struct {
	*mediaEnv
	download *DownloadService
	settings *settings.Store
}

func newDownloadEnv(t *testing.T, snap settings.Snapshot) *downloadEnv {
	t.Helper()
	env := newMediaEnv(t, snap)
	st := env.svc.settings
	download := NewDownloadService(env.store, env.rooms, env.uploads, st, env.cache, testLogger())
	return &downloadEnv{mediaEnv: env, download: download, settings: st}
}

// uploadFile загружает файл обычным конвейером и возвращает его fileID.
func (env *downloadEnv) uploadFile(t *testing.T, content string) string {
	t.Helper()
	msg, opErr := env.svc.Upload(context.Background(), UploadParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte(content)),
		Filename:     "doc.txt",
		DeclaredSize: int64(len(content)),
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("загрузка файла: %v", opErr)
	}
	return msg.File.ID
}

// TestDownload_MemberReadsFile проверяет выдачу файла участнику комнаты.
func TestDownload_MemberReadsFile(t *testing.T) {
	env := newDownloadEnv(t, defaultSnapshot())
	fileID := env.uploadFile(t, "содержимое файла")

	result, opErr := env.download.Get(context.Background(), fileID, member())
	if opErr != nil {
		t.Fatalf("неожиданная ошибка: %v", opErr)
	}
	defer result.File.Close()

	data, err := io.ReadAll(result.File)
	if err != nil {
		t.Fatalf("чтение файла: %v", err)
	}
	if string(data) != "содержимое файла" {
		t.Errorf("содержимое: получено %q", string(data))
	}
	if result.Upload.Name != "doc.txt" {
		t.Errorf("имя: получено %q", result.Upload.Name)
	}
}

// TestDownload_AnonymousProtectFiles проверяет запрет анонимного доступа
// при включённой защите файлов.
func TestDownload_AnonymousProtectFiles(t *testing.T) {
	snap := defaultSnapshot()
	snap.ProtectFiles = true
	env := newDownloadEnv(t, snap)
	fileID := env.uploadFile(t, "секрет")

	_, opErr := env.download.Get(context.Background(), fileID, model.Principal{})
	if opErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if opErr.StatusCode != 403 {
		t.Errorf("статус: получено %d", opErr.StatusCode)
	}
}

// TestDownload_AnonymousAllowedWhenUnprotected проверяет анонимный доступ
// при выключенной защите файлов.
func TestDownload_AnonymousAllowedWhenUnprotected(t *testing.T) {
	snap := defaultSnapshot()
	snap.ProtectFiles = false
	env := newDownloadEnv(t, snap)
	fileID := env.uploadFile(t, "открытые данные")

	result, opErr := env.download.Get(context.Background(), fileID, model.Principal{})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка: %v", opErr)
	}
	result.File.Close()
}

// TestDownload_RestrictToMembers проверяет ограничение выдачи участниками.
func TestDownload_RestrictToMembers(t *testing.T) {
	snap := defaultSnapshot()
	snap.RestrictToMembers = true
	env := newDownloadEnv(t, snap)
	fileID := env.uploadFile(t, "для участников")

	// Участник читает
	result, opErr := env.download.Get(context.Background(), fileID, member())
	if opErr != nil {
		t.Fatalf("участнику отказано: %v", opErr)
	}
	result.File.Close()

	// Аутентифицированный не-участник — нет
	_, opErr = env.download.Get(context.Background(), fileID, model.Principal{UserID: "чужак"})
	if opErr == nil {
		t.Fatal("ожидалась ошибка для не-участника")
	}
	if opErr.StatusCode != 403 {
		t.Errorf("статус: получено %d", opErr.StatusCode)
	}
}

// TestDownload_RestrictToAccessibleRoom проверяет доступ не-участника
// к файлу публичной комнаты.
func TestDownload_RestrictToAccessibleRoom(t *testing.T) {
	snap := defaultSnapshot()
	snap.RestrictToAccessibleRoom = true
	env := newDownloadEnv(t, snap)
	fileID := env.uploadFile(t, "из публичной комнаты")

	// Комната публичная ('c') — доступна и не-участнику
	result, opErr := env.download.Get(context.Background(), fileID, model.Principal{UserID: "чужак"})
	if opErr != nil {
		t.Fatalf("неожиданная ошибка: %v", opErr)
	}
	result.File.Close()

	// RestrictToMembers имеет приоритет над RestrictToAccessibleRoom
	snap.RestrictToMembers = true
	env.settings.Update(snap)

	_, opErr = env.download.Get(context.Background(), fileID, model.Principal{UserID: "чужак"})
	if opErr == nil {
		t.Fatal("ожидалась ошибка: ограничение участниками приоритетно")
	}
}

// TestDownload_PrivateRoomNotAccessible проверяет приватную комнату
// при ограничении доступными комнатами.
func TestDownload_PrivateRoomNotAccessible(t *testing.T) {
	snap := defaultSnapshot()
	snap.RestrictToAccessibleRoom = true
	env := newDownloadEnv(t, snap)

	privateRoom := uuid.New().String()
	_ = env.rooms.Create(context.Background(), &model.Room{ID: privateRoom, Name: "tajna", Type: model.RoomPrivate})
	_ = env.rooms.AddMember(context.Background(), privateRoom, "user1")

	msg, opErr := env.svc.Upload(context.Background(), UploadParams{
		RoomID:       privateRoom,
		Reader:       bytes.NewReader([]byte("приватно")),
		Filename:     "p.txt",
		DeclaredSize: 8,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("загрузка: %v", opErr)
	}

	_, opErr = env.download.Get(context.Background(), msg.File.ID, model.Principal{UserID: "чужак"})
	if opErr == nil {
		t.Fatal("ожидалась ошибка для приватной комнаты")
	}
	if opErr.StatusCode != 403 {
		t.Errorf("статус: получено %d", opErr.StatusCode)
	}
}

// TestDownload_ReservedVisibleToOwnerOnly проверяет, что резервирование
// видит только владелец, остальным — 404.
func TestDownload_ReservedVisibleToOwnerOnly(t *testing.T) {
	env := newDownloadEnv(t, defaultSnapshot())

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("черновик")),
		Filename:     "draft.txt",
		DeclaredSize: 8,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("резервирование: %v", opErr)
	}

	// Владелец видит
	result, dErr := env.download.Get(context.Background(), upload.FileID, member())
	if dErr != nil {
		t.Fatalf("владельцу отказано: %v", dErr)
	}
	result.File.Close()

	// Другой участник — 404, существование не раскрывается
	_ = env.rooms.AddMember(context.Background(), env.roomID, "user2")
	_, dErr = env.download.Get(context.Background(), upload.FileID, model.Principal{UserID: "user2"})
	if dErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if dErr.StatusCode != 404 {
		t.Errorf("статус: получено %d", dErr.StatusCode)
	}
}

// TestDownload_UnknownFile проверяет неизвестный идентификатор.
func TestDownload_UnknownFile(t *testing.T) {
	env := newDownloadEnv(t, defaultSnapshot())

	_, opErr := env.download.Get(context.Background(), uuid.New().String(), member())
	if opErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if opErr.Type != "error-file-not-found" {
		t.Errorf("тип ошибки: получено %q", opErr.Type)
	}
}

// TestDownload_CacheServesSecondRead проверяет, что повторное чтение
// идёт из кэша метаданных.
func TestDownload_CacheServesSecondRead(t *testing.T) {
	env := newDownloadEnv(t, defaultSnapshot())
	fileID := env.uploadFile(t, "кэшируемое")

	result, opErr := env.download.Get(context.Background(), fileID, member())
	if opErr != nil {
		t.Fatalf("первое чтение: %v", opErr)
	}
	result.File.Close()

	if _, ok := env.cache.Get(fileID); !ok {
		t.Fatal("метаданные не попали в кэш")
	}

	// Удаляем запись из БД: второе чтение обслуживает кэш
	_ = env.uploads.Delete(context.Background(), fileID)

	result, opErr = env.download.Get(context.Background(), fileID, member())
	if opErr != nil {
		t.Fatalf("второе чтение: %v", opErr)
	}
	result.File.Close()
}

// TestDownload_SettingsChangeTakesEffect проверяет, что смена настроек
// действует на уже закэшированные файлы.
func TestDownload_SettingsChangeTakesEffect(t *testing.T) {
	snap := defaultSnapshot()
	snap.ProtectFiles = false
	env := newDownloadEnv(t, snap)
	fileID := env.uploadFile(t, "данные")

	result, opErr := env.download.Get(context.Background(), fileID, model.Principal{})
	if opErr != nil {
		t.Fatalf("анонимное чтение: %v", opErr)
	}
	result.File.Close()

	snap.ProtectFiles = true
	env.settings.Update(snap)

	if _, opErr = env.download.Get(context.Background(), fileID, model.Principal{}); opErr == nil {
		t.Fatal("ожидалась ошибка после включения защиты")
	}
}

// TestCacheService проверяет базовое поведение LRU-кэша.
func TestCacheService(t *testing.T) {
	cache := NewCacheService(2, time.Minute)

	u1 := &model.Upload{FileID: "f1", Name: "a.txt"}
	cache.Set("f1", u1)

	got, ok := cache.Get("f1")
	if !ok || got.Name != "a.txt" {
		t.Fatalf("hit не сработал: %v %v", got, ok)
	}

	if _, ok := cache.Get("нет"); ok {
		t.Error("ожидался miss")
	}

	cache.Delete("f1")
	if _, ok := cache.Get("f1"); ok {
		t.Error("запись должна быть удалена")
	}

	// Вытеснение по размеру
	cache.Set("f1", u1)
	cache.Set("f2", &model.Upload{FileID: "f2"})
	cache.Set("f3", &model.Upload{FileID: "f3"})
	if _, ok := cache.Get("f1"); ok {
		t.Error("старейшая запись должна быть вытеснена")
	}
}
