package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/roomstore/internal/domain/model"
)

// RoomRepository — интерфейс CRUD для комнат и членства.
type RoomRepository interface {
	// Create создаёт комнату.
	Create(ctx context.Context, room *model.Room) error
	// GetByID возвращает комнату по идентификатору.
	GetByID(ctx context.Context, roomID string) (*model.Room, error)
	// Delete удаляет комнату. Файлы и сообщения удаляются каскадно (FK).
	Delete(ctx context.Context, roomID string) error
	// AddMember добавляет пользователя в комнату. Идемпотентна.
	AddMember(ctx context.Context, roomID, userID string) error
	// RemoveMember удаляет пользователя из комнаты.
	RemoveMember(ctx context.Context, roomID, userID string) error
	// IsMember возвращает true, если пользователь состоит в комнате.
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// roomRepo — реализация RoomRepository.
type roomRepo struct {
	db DBTX
}

// NewRoomRepository создаёт репозиторий комнат.
func NewRoomRepository(db DBTX) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	query := `
		INSERT INTO rooms (id, name, type)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, room.ID, room.Name, room.Type).Scan(&room.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: комната с таким именем уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания комнаты: %w", err)
	}
	return nil
}

func (r *roomRepo) GetByID(ctx context.Context, roomID string) (*model.Room, error) {
	query := `SELECT id, name, type, created_at FROM rooms WHERE id = $1`

	room := &model.Room{}
	err := r.db.QueryRow(ctx, query, roomID).Scan(&room.ID, &room.Name, &room.Type, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения комнаты: %w", err)
	}
	return room, nil
}

func (r *roomRepo) Delete(ctx context.Context, roomID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("ошибка удаления комнаты: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roomRepo) AddMember(ctx context.Context, roomID, userID string) error {
	query := `
		INSERT INTO room_members (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, roomID, userID); err != nil {
		return fmt.Errorf("ошибка добавления участника: %w", err)
	}
	return nil
}

func (r *roomRepo) RemoveMember(ctx context.Context, roomID, userID string) error {
	query := `DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`

	if _, err := r.db.Exec(ctx, query, roomID, userID); err != nil {
		return fmt.Errorf("ошибка удаления участника: %w", err)
	}
	return nil
}

func (r *roomRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, roomID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки членства: %w", err)
	}
	return exists, nil
}
