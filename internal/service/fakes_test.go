// fakes_test.go — in-memory реализации репозиториев для unit-тестов
// сервисного слоя.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/bigkaa/roomstore/internal/domain/model"
	"github.com/bigkaa/roomstore/internal/repository"
)

type fakeRoomRepo struct {
	mu      sync.Mutex
	rooms   map[string]*model.Room
	members map[string]map[string]bool
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:   make(map[string]*model.Room),
		members: make(map[string]map[string]bool),
	}
}

func (r *fakeRoomRepo) Create(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = room
	return nil
}

func (r *fakeRoomRepo) GetByID(_ context.Context, roomID string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return room, nil
}

func (r *fakeRoomRepo) Delete(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	delete(r.members, roomID)
	return nil
}

func (r *fakeRoomRepo) AddMember(_ context.Context, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]bool)
	}
	r.members[roomID][userID] = true
	return nil
}

func (r *fakeRoomRepo) RemoveMember(_ context.Context, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[roomID], userID)
	return nil
}

func (r *fakeRoomRepo) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[roomID][userID], nil
}

type fakeUploadRepo struct {
	mu       sync.Mutex
	uploads  map[string]*model.Upload
	failNext bool
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: make(map[string]*model.Upload)}
}

func (r *fakeUploadRepo) Insert(_ context.Context, u *model.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errFake
	}
	cp := *u
	r.uploads[u.FileID] = &cp
	return nil
}

func (r *fakeUploadRepo) GetByID(_ context.Context, fileID string) (*model.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[fileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUploadRepo) SetThumbnail(_ context.Context, fileID, thumbnailID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[fileID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ThumbnailID = &thumbnailID
	return nil
}

func (r *fakeUploadRepo) Confirm(_ context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[fileID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = model.StatusConfirmed
	return nil
}

func (r *fakeUploadRepo) Delete(_ context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.uploads, fileID)
	return nil
}

func (r *fakeUploadRepo) ListReservedBefore(_ context.Context, cutoff time.Time) ([]*model.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Upload
	for _, u := range r.uploads {
		if u.Status == model.StatusReserved && u.UploadedAt.Before(cutoff) {
			cp := *u
			result = append(result, &cp)
		}
	}
	return result, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*model.Message
	failNext bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Insert(_ context.Context, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errFake
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, messageID string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

// errFake — ошибка, возвращаемая фейками по запросу теста.
var errFake = &fakeError{}

type fakeError struct{}

func (e *fakeError) Error() string { return "искусственная ошибка хранилища" }
