package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type LandlordPayoutRepository struct {
	DB *pgxpool.Pool
}

func NewLandlordPayoutRepository(db *pgxpool.Pool) *LandlordPayoutRepository {
	return &LandlordPayoutRepository{DB: db}
}

const payoutColumns = `
	id, payment_id, landlord_id, amount, currency, provider, status,
	COALESCE(transfer_reference, ''), COALESCE(failure_reason, ''),
	created_at, completed_at
`

func scanPayout(row pgx.Row) (*models.LandlordPayout, error) {
	p := &models.LandlordPayout{}
	err := row.Scan(
		&p.ID, &p.PaymentID, &p.LandlordID, &p.Amount, &p.Currency, &p.Provider,
		&p.Status, &p.TransferReference, &p.FailureReason,
		&p.CreatedAt, &p.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByPaymentID returns the payout row for a payment. payment_id carries a
// unique constraint, so retries always land on the same row.
func (r *LandlordPayoutRepository) GetByPaymentID(ctx context.Context, paymentID int64) (*models.LandlordPayout, error) {
	query := `SELECT ` + payoutColumns + ` FROM landlord_payouts WHERE payment_id = $1`
	return scanPayout(r.DB.QueryRow(ctx, query, paymentID))
}

func (r *LandlordPayoutRepository) Create(ctx context.Context, p *models.LandlordPayout) error {
	query := `
		INSERT INTO landlord_payouts (payment_id, landlord_id, amount, currency, provider, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (payment_id) DO NOTHING
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(ctx, query,
		p.PaymentID, p.LandlordID, p.Amount, p.Currency, p.Provider, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row already existed; load it so the caller sees the stored state
		existing, getErr := r.GetByPaymentID(ctx, p.PaymentID)
		if getErr != nil {
			return getErr
		}
		*p = *existing
		return nil
	}
	return err
}

// MarkProcessing transitions PENDING (or FAILED, on retry) to PROCESSING.
// Returns false when the payout is already in flight or completed.
func (r *LandlordPayoutRepository) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE landlord_payouts
		SET status = 'PROCESSING', failure_reason = ''
		WHERE id = $1 AND status IN ('PENDING', 'FAILED')
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LandlordPayoutRepository) MarkCompleted(ctx context.Context, id int64, transferReference string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE landlord_payouts
		SET status = 'COMPLETED', transfer_reference = $2, completed_at = NOW()
		WHERE id = $1
	`, id, transferReference)
	return err
}

func (r *LandlordPayoutRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE landlord_payouts
		SET status = 'FAILED', failure_reason = $2
		WHERE id = $1
	`, id, reason)
	return err
}

func (r *LandlordPayoutRepository) ListByLandlord(ctx context.Context, landlordID int64) ([]*models.LandlordPayout, error) {
	query := `SELECT ` + payoutColumns + `
		FROM landlord_payouts WHERE landlord_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, landlordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []*models.LandlordPayout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, nil
}
