package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/roomstore/internal/repository"
)

// gcEnv собирает GC на тех же фейках, что и двухфазная загрузка.
func newGCEnv(t *testing.T, reserveTTL time.Duration) (*mediaEnv, *GCService) {
	t.Helper()
	env := newMediaEnv(t, defaultSnapshot())
	gc := NewGCService(env.store, env.uploads, env.cache, reserveTTL, time.Hour, testLogger())
	return env, gc
}

// TestGC_DeletesStaleReservations проверяет удаление просроченного
// резервирования: blob, запись и кэш.
func TestGC_DeletesStaleReservations(t *testing.T) {
	env, gc := newGCEnv(t, time.Hour)

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("брошенный черновик")),
		Filename:     "draft.txt",
		DeclaredSize: 18,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("резервирование: %v", opErr)
	}

	// Старим резервирование за пределы TTL
	env.uploads.mu.Lock()
	env.uploads.uploads[upload.FileID].UploadedAt = time.Now().UTC().Add(-2 * time.Hour)
	env.uploads.mu.Unlock()
	env.cache.Set(upload.FileID, upload)

	result := gc.RunOnce(context.Background())

	if result.DeletedCount != 1 {
		t.Errorf("удалено: получено %d", result.DeletedCount)
	}
	if result.Errors != 0 {
		t.Errorf("ошибки: получено %d", result.Errors)
	}

	if _, err := env.uploads.GetByID(context.Background(), upload.FileID); !errors.Is(err, repository.ErrNotFound) {
		t.Error("запись должна быть удалена")
	}
	if env.store.FileExists(upload.StoragePath) {
		t.Error("blob должен быть удалён")
	}
	if _, ok := env.cache.Get(upload.FileID); ok {
		t.Error("запись кэша должна быть удалена")
	}
}

// TestGC_KeepsFreshReservations проверяет, что свежее резервирование
// переживает запуск GC.
func TestGC_KeepsFreshReservations(t *testing.T) {
	env, gc := newGCEnv(t, time.Hour)

	upload, opErr := env.media.Reserve(context.Background(), MediaParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("свежий черновик")),
		Filename:     "draft.txt",
		DeclaredSize: 15,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("резервирование: %v", opErr)
	}

	result := gc.RunOnce(context.Background())

	if result.DeletedCount != 0 {
		t.Errorf("удалено: получено %d", result.DeletedCount)
	}
	if _, err := env.uploads.GetByID(context.Background(), upload.FileID); err != nil {
		t.Errorf("резервирование пропало: %v", err)
	}
}

// TestGC_KeepsConfirmedUploads проверяет, что подтверждённые загрузки
// не затрагиваются GC независимо от возраста.
func TestGC_KeepsConfirmedUploads(t *testing.T) {
	env, gc := newGCEnv(t, time.Hour)

	msg, opErr := env.svc.Upload(context.Background(), UploadParams{
		RoomID:       env.roomID,
		Reader:       bytes.NewReader([]byte("постоянный файл")),
		Filename:     "keep.txt",
		DeclaredSize: 15,
		Principal:    member(),
	})
	if opErr != nil {
		t.Fatalf("загрузка: %v", opErr)
	}

	env.uploads.mu.Lock()
	env.uploads.uploads[msg.File.ID].UploadedAt = time.Now().UTC().Add(-48 * time.Hour)
	env.uploads.mu.Unlock()

	result := gc.RunOnce(context.Background())

	if result.DeletedCount != 0 {
		t.Errorf("удалено: получено %d", result.DeletedCount)
	}
	if _, err := env.uploads.GetByID(context.Background(), msg.File.ID); err != nil {
		t.Errorf("подтверждённая загрузка пропала: %v", err)
	}
}

// TestGC_StartStop проверяет запуск и остановку фоновой горутины.
func TestGC_StartStop(t *testing.T) {
	_, gc := newGCEnv(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gc.Start(ctx)
	// Даём горутине выполнить первый запуск
	time.Sleep(100 * time.Millisecond)
	gc.Stop()
}
