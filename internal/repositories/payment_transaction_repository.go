package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("record not found")

type PaymentTransactionRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentTransactionRepository(db *pgxpool.Pool) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{DB: db}
}

func (r *PaymentTransactionRepository) Create(ctx context.Context, p *models.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions
			(provider, status, kind, tenant_id, property_id, landlord_id,
			 tenant_name, tenant_email, tenant_phone, amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		p.Provider, p.Status, p.Kind,
		p.TenantID, p.PropertyID, p.LandlordID,
		p.TenantName, p.TenantEmail, p.TenantPhone,
		p.Amount, p.Currency,
	).Scan(&p.ID, &p.CreatedAt)
}

// SetReference stores the gateway reference once the checkout is created.
// References embed the payment ID, so they can only exist after the insert.
func (r *PaymentTransactionRepository) SetReference(ctx context.Context, id int64, reference string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE payment_transactions SET reference = $2 WHERE id = $1`, id, reference)
	return err
}

const paymentColumns = `
	id, COALESCE(reference, ''), provider, status, kind, tenant_id, property_id, landlord_id,
	tenant_name, tenant_email, tenant_phone, amount, currency,
	COALESCE(checkout_url, ''), COALESCE(channel, ''), COALESCE(failure_reason, ''),
	receipt_id, created_at, verified_at
`

func scanPayment(row pgx.Row) (*models.PaymentTransaction, error) {
	p := &models.PaymentTransaction{}
	err := row.Scan(
		&p.ID, &p.Reference, &p.Provider, &p.Status, &p.Kind,
		&p.TenantID, &p.PropertyID, &p.LandlordID,
		&p.TenantName, &p.TenantEmail, &p.TenantPhone,
		&p.Amount, &p.Currency,
		&p.CheckoutURL, &p.Channel, &p.FailureReason,
		&p.ReceiptID, &p.CreatedAt, &p.VerifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentTransactionRepository) GetByID(ctx context.Context, id int64) (*models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE id = $1`
	return scanPayment(r.DB.QueryRow(ctx, query, id))
}

func (r *PaymentTransactionRepository) GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE reference = $1`
	return scanPayment(r.DB.QueryRow(ctx, query, reference))
}

func (r *PaymentTransactionRepository) SetCheckoutURL(ctx context.Context, id int64, checkoutURL string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE payment_transactions SET checkout_url = $2 WHERE id = $1`, id, checkoutURL)
	return err
}

// MarkVerified transitions a payment to VERIFIED only if it is not already
// verified. Returns true when this call won the transition; concurrent
// webhook deliveries observe false and skip the downstream chain.
func (r *PaymentTransactionRepository) MarkVerified(ctx context.Context, id int64, channel string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE payment_transactions
		SET status = 'VERIFIED', channel = $2, verified_at = NOW()
		WHERE id = $1 AND status <> 'VERIFIED'
	`, id, channel)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment verified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentTransactionRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payment_transactions
		SET status = 'FAILED', failure_reason = $2
		WHERE id = $1 AND status = 'PENDING'
	`, id, reason)
	return err
}

func (r *PaymentTransactionRepository) MarkRefunded(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE payment_transactions SET status = 'REFUNDED' WHERE id = $1`, id)
	return err
}

func (r *PaymentTransactionRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payment_transactions WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.PaymentTransaction
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}
