package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type ProfileRepository struct {
	DB *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(bank_code, ''), COALESCE(account_number, ''),
		       COALESCE(account_name, ''), COALESCE(paystack_recipient_code, ''),
		       payout_verified, created_at, updated_at
		FROM profiles WHERE user_id = $1
	`, userID)

	p := &models.Profile{}
	err := row.Scan(&p.ID, &p.UserID, &p.BankCode, &p.AccountNumber,
		&p.AccountName, &p.PaystackRecipientCode, &p.PayoutVerified,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SavePayoutAccount upserts the resolved bank account and recipient code,
// marking the profile payout-verified.
func (r *ProfileRepository) SavePayoutAccount(ctx context.Context, userID int64, bankCode, accountNumber, accountName, recipientCode string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO profiles (user_id, bank_code, account_number, account_name, paystack_recipient_code, payout_verified)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (user_id) DO UPDATE
		SET bank_code = EXCLUDED.bank_code,
		    account_number = EXCLUDED.account_number,
		    account_name = EXCLUDED.account_name,
		    paystack_recipient_code = EXCLUDED.paystack_recipient_code,
		    payout_verified = TRUE,
		    updated_at = NOW()
	`, userID, bankCode, accountNumber, accountName, recipientCode)
	return err
}
