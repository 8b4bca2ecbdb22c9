package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type SMSLogRepository struct {
	DB *pgxpool.Pool
}

func NewSMSLogRepository(db *pgxpool.Pool) *SMSLogRepository {
	return &SMSLogRepository{DB: db}
}

func (r *SMSLogRepository) Create(ctx context.Context, l *models.SMSLog) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO sms_logs (user_id, phone, message_type, message, status, error_message, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, l.UserID, l.Phone, l.MessageType, l.Message, l.Status, l.ErrorMessage, l.ReferenceID).
		Scan(&l.ID, &l.CreatedAt)
}
