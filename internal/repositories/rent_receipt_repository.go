package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type RentReceiptRepository struct {
	DB *pgxpool.Pool
}

func NewRentReceiptRepository(db *pgxpool.Pool) *RentReceiptRepository {
	return &RentReceiptRepository{DB: db}
}

const receiptColumns = `
	id, tenant_id, property_id, reference_number, barcode_reference,
	rent_amount, amount_paid, remaining_balance, fully_paid, payment_context,
	cycle_start, cycle_end, payment_id, proof_id,
	pdf_status, COALESCE(receipt_path, ''), created_at, updated_at
`

func scanReceipt(row pgx.Row) (*models.RentReceipt, error) {
	rc := &models.RentReceipt{}
	err := row.Scan(
		&rc.ID, &rc.TenantID, &rc.PropertyID, &rc.ReferenceNumber, &rc.BarcodeReference,
		&rc.RentAmount, &rc.AmountPaid, &rc.RemainingBalance, &rc.FullyPaid, &rc.PaymentContext,
		&rc.CycleStart, &rc.CycleEnd, &rc.PaymentID, &rc.ProofID,
		&rc.PDFStatus, &rc.ReceiptPath, &rc.CreatedAt, &rc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *RentReceiptRepository) Create(ctx context.Context, rc *models.RentReceipt) error {
	query := `
		INSERT INTO rent_receipts
			(tenant_id, property_id, reference_number, barcode_reference,
			 rent_amount, amount_paid, remaining_balance, fully_paid, payment_context,
			 cycle_start, cycle_end, payment_id, proof_id, pdf_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		rc.TenantID, rc.PropertyID, rc.ReferenceNumber, rc.BarcodeReference,
		rc.RentAmount, rc.AmountPaid, rc.RemainingBalance, rc.FullyPaid, rc.PaymentContext,
		rc.CycleStart, rc.CycleEnd, rc.PaymentID, rc.ProofID, rc.PDFStatus,
	).Scan(&rc.ID, &rc.CreatedAt, &rc.UpdatedAt)
}

// SetBarcode stores the tamper-proof reference. The hash covers the row ID,
// so it can only be computed after the insert.
func (r *RentReceiptRepository) SetBarcode(ctx context.Context, id int64, barcode string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE rent_receipts SET barcode_reference = $2 WHERE id = $1`, id, barcode)
	return err
}

func (r *RentReceiptRepository) GetByID(ctx context.Context, id int64) (*models.RentReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM rent_receipts WHERE id = $1`
	return scanReceipt(r.DB.QueryRow(ctx, query, id))
}

func (r *RentReceiptRepository) GetByReference(ctx context.Context, reference string) (*models.RentReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM rent_receipts WHERE reference_number = $1`
	return scanReceipt(r.DB.QueryRow(ctx, query, reference))
}

// GetOpenByTenant returns the tenant's unsettled receipt, if any
func (r *RentReceiptRepository) GetOpenByTenant(ctx context.Context, tenantID int64) (*models.RentReceipt, error) {
	query := `SELECT ` + receiptColumns + `
		FROM rent_receipts
		WHERE tenant_id = $1 AND fully_paid = FALSE
		ORDER BY cycle_start DESC
		LIMIT 1`
	return scanReceipt(r.DB.QueryRow(ctx, query, tenantID))
}

func (r *RentReceiptRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*models.RentReceipt, error) {
	query := `SELECT ` + receiptColumns + `
		FROM rent_receipts WHERE tenant_id = $1 ORDER BY cycle_start DESC`

	rows, err := r.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*models.RentReceipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, rc)
	}
	return receipts, nil
}

// ReconcileAndRenew persists a reconciled receipt, stamps the folded payment
// with the receipt ID, and, when the cycle became fully paid, rolls the
// tenant's rent window forward and appends the ledger event, all in one
// transaction. The payment stamp is what makes reconciliation idempotent per
// payment: a redelivery finds receipt_id already set and stops.
func (r *RentReceiptRepository) ReconcileAndRenew(ctx context.Context, rc *models.RentReceipt, paymentID *int64, renewed *models.Tenant, ledger *models.RentLedger) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reconciliation: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE rent_receipts
		SET amount_paid = $2, remaining_balance = $3, fully_paid = $4,
		    payment_context = $5, payment_id = $6, proof_id = $7,
		    pdf_status = $8, updated_at = NOW()
		WHERE id = $1
	`, rc.ID, rc.AmountPaid, rc.RemainingBalance, rc.FullyPaid,
		rc.PaymentContext, rc.PaymentID, rc.ProofID, rc.PDFStatus)
	if err != nil {
		return err
	}

	if paymentID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE payment_transactions SET receipt_id = $2 WHERE id = $1
		`, *paymentID, rc.ID)
		if err != nil {
			return err
		}
	}

	if renewed != nil {
		_, err = tx.Exec(ctx, `
			UPDATE tenants
			SET rent_start = $2, rent_expiry = $3, is_active = TRUE, updated_at = NOW()
			WHERE id = $1
		`, renewed.ID, renewed.RentStart, renewed.RentExpiry)
		if err != nil {
			return err
		}
	}

	if ledger != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO rent_ledger (tenant_id, event, old_value, new_value)
			VALUES ($1, $2, $3, $4)
		`, ledger.TenantID, ledger.Event, ledger.OldValue, ledger.NewValue)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ClaimPDFGeneration locks the receipt row and moves PENDING or FAILED to
// GENERATING. Returns false when another worker holds the document.
func (r *RentReceiptRepository) ClaimPDFGeneration(ctx context.Context, receiptID int64) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var status models.PDFStatus
	err = tx.QueryRow(ctx,
		`SELECT pdf_status FROM rent_receipts WHERE id = $1 FOR UPDATE`, receiptID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if status != models.PDFStatusPending && status != models.PDFStatusFailed {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE rent_receipts SET pdf_status = 'GENERATING', updated_at = NOW() WHERE id = $1`, receiptID)
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// FinishPDFGeneration records the outcome. The path is only persisted on READY.
func (r *RentReceiptRepository) FinishPDFGeneration(ctx context.Context, receiptID int64, ready bool, path string) error {
	if ready {
		_, err := r.DB.Exec(ctx, `
			UPDATE rent_receipts
			SET pdf_status = 'READY', receipt_path = $2, updated_at = NOW()
			WHERE id = $1
		`, receiptID, path)
		return err
	}
	_, err := r.DB.Exec(ctx,
		`UPDATE rent_receipts SET pdf_status = 'FAILED', updated_at = NOW() WHERE id = $1`, receiptID)
	return err
}

// Verify resolves a reference number to public payment facts
func (r *RentReceiptRepository) Verify(ctx context.Context, reference string) (*models.ReceiptVerification, error) {
	query := `
		SELECT rc.reference_number, t.full_name, p.address,
		       rc.rent_amount, rc.amount_paid, rc.fully_paid, rc.payment_context,
		       rc.cycle_start, rc.cycle_end
		FROM rent_receipts rc
		JOIN tenants t ON rc.tenant_id = t.id
		JOIN properties p ON rc.property_id = p.id
		WHERE rc.reference_number = $1 OR rc.barcode_reference = $1
	`
	v := &models.ReceiptVerification{}
	err := r.DB.QueryRow(ctx, query, reference).Scan(
		&v.ReferenceNumber, &v.TenantName, &v.PropertyAddress,
		&v.RentAmount, &v.AmountPaid, &v.FullyPaid, &v.PaymentContext,
		&v.CycleStart, &v.CycleEnd,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
