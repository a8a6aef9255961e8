package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/roomstore/internal/domain/model"
)

// MessageRepository — интерфейс для сообщений комнат.
// Вложения и файлы хранятся как JSONB в документ-ориентированном стиле:
// wire-формат сообщения совпадает с форматом хранения.
type MessageRepository interface {
	// Insert создаёт сообщение.
	Insert(ctx context.Context, m *model.Message) error
	// GetByID возвращает сообщение по идентификатору.
	GetByID(ctx context.Context, messageID string) (*model.Message, error)
}

// messageRepo — реализация MessageRepository.
type messageRepo struct {
	db DBTX
}

// NewMessageRepository создаёт репозиторий сообщений.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Insert(ctx context.Context, m *model.Message) error {
	fileJSON, err := marshalNullable(m.File)
	if err != nil {
		return fmt.Errorf("ошибка сериализации file: %w", err)
	}
	filesJSON, err := json.Marshal(m.Files)
	if err != nil {
		return fmt.Errorf("ошибка сериализации files: %w", err)
	}
	attachmentsJSON, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("ошибка сериализации attachments: %w", err)
	}

	query := `
		INSERT INTO messages (id, room_id, user_id, msg, file, files, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.Exec(ctx, query,
		m.ID, m.RoomID, m.UserID, m.Text, fileJSON, filesJSON, attachmentsJSON, m.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: сообщение с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания сообщения: %w", err)
	}
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, messageID string) (*model.Message, error) {
	query := `
		SELECT id, room_id, user_id, msg, file, files, attachments, created_at
		FROM messages WHERE id = $1`

	m := &model.Message{}
	var fileJSON, filesJSON, attachmentsJSON []byte
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&m.ID, &m.RoomID, &m.UserID, &m.Text, &fileJSON, &filesJSON, &attachmentsJSON, &m.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сообщения: %w", err)
	}

	if len(fileJSON) > 0 {
		if err := json.Unmarshal(fileJSON, &m.File); err != nil {
			return nil, fmt.Errorf("ошибка разбора file: %w", err)
		}
	}
	if err := json.Unmarshal(filesJSON, &m.Files); err != nil {
		return nil, fmt.Errorf("ошибка разбора files: %w", err)
	}
	if err := json.Unmarshal(attachmentsJSON, &m.Attachments); err != nil {
		return nil, fmt.Errorf("ошибка разбора attachments: %w", err)
	}
	return m, nil
}

// marshalNullable сериализует значение в JSON, nil остаётся NULL.
func marshalNullable(v *model.FileRef) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
