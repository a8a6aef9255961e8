package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/roomstore/internal/domain/model"
)

// UploadRepository — интерфейс CRUD для таблицы uploads (StoredFile).
type UploadRepository interface {
	// Insert регистрирует новую загрузку.
	Insert(ctx context.Context, u *model.Upload) error
	// GetByID возвращает загрузку по идентификатору файла.
	GetByID(ctx context.Context, fileID string) (*model.Upload, error)
	// SetThumbnail привязывает файл-миниатюру к оригиналу.
	SetThumbnail(ctx context.Context, fileID, thumbnailID string) error
	// Confirm переводит загрузку в статус confirmed.
	Confirm(ctx context.Context, fileID string) error
	// Delete удаляет запись загрузки.
	Delete(ctx context.Context, fileID string) error
	// ListReservedBefore возвращает reserved-загрузки старше cutoff
	// (кандидаты на очистку брошенных резервирований).
	ListReservedBefore(ctx context.Context, cutoff time.Time) ([]*model.Upload, error)
}

// uploadRepo — реализация UploadRepository.
type uploadRepo struct {
	db DBTX
}

// NewUploadRepository создаёт репозиторий загрузок.
func NewUploadRepository(db DBTX) UploadRepository {
	return &uploadRepo{db: db}
}

const uploadColumns = `id, room_id, owner_id, name, content_type, size, checksum,
	storage_path, status, thumbnail_id, uploaded_at`

func (r *uploadRepo) Insert(ctx context.Context, u *model.Upload) error {
	query := `
		INSERT INTO uploads (id, room_id, owner_id, name, content_type, size, checksum,
			storage_path, status, thumbnail_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		u.FileID, u.RoomID, u.OwnerID, u.Name, u.ContentType, u.Size, u.Checksum,
		u.StoragePath, u.Status, u.ThumbnailID, u.UploadedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким ID уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка регистрации загрузки: %w", err)
	}
	return nil
}

func (r *uploadRepo) GetByID(ctx context.Context, fileID string) (*model.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1`

	u := &model.Upload{}
	err := r.db.QueryRow(ctx, query, fileID).Scan(
		&u.FileID, &u.RoomID, &u.OwnerID, &u.Name, &u.ContentType, &u.Size, &u.Checksum,
		&u.StoragePath, &u.Status, &u.ThumbnailID, &u.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения загрузки: %w", err)
	}
	return u, nil
}

func (r *uploadRepo) SetThumbnail(ctx context.Context, fileID, thumbnailID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE uploads SET thumbnail_id = $2 WHERE id = $1`, fileID, thumbnailID)
	if err != nil {
		return fmt.Errorf("ошибка привязки миниатюры: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *uploadRepo) Confirm(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE uploads SET status = $2 WHERE id = $1`, fileID, model.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("ошибка подтверждения загрузки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *uploadRepo) Delete(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("ошибка удаления загрузки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *uploadRepo) ListReservedBefore(ctx context.Context, cutoff time.Time) ([]*model.Upload, error) {
	query := `SELECT ` + uploadColumns + `
		FROM uploads
		WHERE status = $1 AND uploaded_at < $2
		ORDER BY uploaded_at`

	rows, err := r.db.Query(ctx, query, model.StatusReserved, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки reserved-загрузок: %w", err)
	}
	defer rows.Close()

	var result []*model.Upload
	for rows.Next() {
		u := &model.Upload{}
		if err := rows.Scan(
			&u.FileID, &u.RoomID, &u.OwnerID, &u.Name, &u.ContentType, &u.Size, &u.Checksum,
			&u.StoragePath, &u.Status, &u.ThumbnailID, &u.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки загрузки: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода строк: %w", err)
	}
	return result, nil
}
