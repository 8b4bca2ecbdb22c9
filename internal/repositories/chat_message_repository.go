package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type ChatMessageRepository struct {
	DB *pgxpool.Pool
}

func NewChatMessageRepository(db *pgxpool.Pool) *ChatMessageRepository {
	return &ChatMessageRepository{DB: db}
}

func (r *ChatMessageRepository) Create(ctx context.Context, m *models.ChatMessage) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO chat_messages (property_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.PropertyID, m.SenderID, m.Body).Scan(&m.ID, &m.CreatedAt)
}

func (r *ChatMessageRepository) ListByProperty(ctx context.Context, propertyID int64, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT m.id, m.property_id, m.sender_id, COALESCE(u.name, ''), m.body, m.created_at
		FROM chat_messages m
		LEFT JOIN users u ON m.sender_id = u.id
		WHERE m.property_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`, propertyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.PropertyID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}
