package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type RentProofRepository struct {
	DB *pgxpool.Pool
}

func NewRentProofRepository(db *pgxpool.Pool) *RentProofRepository {
	return &RentProofRepository{DB: db}
}

const proofColumns = `
	id, tenant_id, property_id, amount, file_path, file_hash, COALESCE(note, ''),
	status, COALESCE(rejection_reason, ''), reviewed_by, created_at, reviewed_at
`

func scanProof(row pgx.Row) (*models.RentPaymentProof, error) {
	p := &models.RentPaymentProof{}
	err := row.Scan(
		&p.ID, &p.TenantID, &p.PropertyID, &p.Amount, &p.FilePath, &p.FileHash, &p.Note,
		&p.Status, &p.RejectionReason, &p.ReviewedBy, &p.CreatedAt, &p.ReviewedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *RentProofRepository) Create(ctx context.Context, p *models.RentPaymentProof) error {
	query := `
		INSERT INTO rent_payment_proofs (tenant_id, property_id, amount, file_path, file_hash, note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		p.TenantID, p.PropertyID, p.Amount, p.FilePath, p.FileHash, p.Note, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *RentProofRepository) GetByID(ctx context.Context, id int64) (*models.RentPaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM rent_payment_proofs WHERE id = $1`
	return scanProof(r.DB.QueryRow(ctx, query, id))
}

func (r *RentProofRepository) ListByTenant(ctx context.Context, tenantID int64) ([]*models.RentPaymentProof, error) {
	return r.list(ctx, `SELECT `+proofColumns+`
		FROM rent_payment_proofs WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
}

func (r *RentProofRepository) ListByLandlord(ctx context.Context, landlordID int64) ([]*models.RentPaymentProof, error) {
	return r.list(ctx, `SELECT `+proofColumns+`
		FROM rent_payment_proofs pr
		WHERE pr.property_id IN (SELECT id FROM properties WHERE landlord_id = $1)
		ORDER BY pr.created_at DESC`, landlordID)
}

func (r *RentProofRepository) list(ctx context.Context, query string, arg interface{}) ([]*models.RentPaymentProof, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []*models.RentPaymentProof
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, nil
}

// CountToday counts uploads by the tenant since midnight, for the daily quota
func (r *RentProofRepository) CountToday(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM rent_payment_proofs
		WHERE tenant_id = $1 AND created_at >= CURRENT_DATE
	`, tenantID).Scan(&count)
	return count, err
}

// CountPendingForProperty counts unreviewed proofs on a property
func (r *RentProofRepository) CountPendingForProperty(ctx context.Context, tenantID, propertyID int64) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM rent_payment_proofs
		WHERE tenant_id = $1 AND property_id = $2 AND status = 'PENDING'
	`, tenantID, propertyID).Scan(&count)
	return count, err
}

// ExistsByHash detects re-uploads of the same file by its SHA-256 digest
func (r *RentProofRepository) ExistsByHash(ctx context.Context, tenantID int64, fileHash string) (bool, error) {
	var count int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM rent_payment_proofs
		WHERE tenant_id = $1 AND file_hash = $2
	`, tenantID, fileHash).Scan(&count)
	return count > 0, err
}

// MarkApproved finalizes a pending proof. Returns false when the proof was
// already reviewed.
func (r *RentProofRepository) MarkApproved(ctx context.Context, id, reviewerID int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE rent_payment_proofs
		SET status = 'APPROVED', reviewed_by = $2, reviewed_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, id, reviewerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RentProofRepository) MarkRejected(ctx context.Context, id, reviewerID int64, reason string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE rent_payment_proofs
		SET status = 'REJECTED', rejection_reason = $3, reviewed_by = $2, reviewed_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, id, reviewerID, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an unreviewed proof owned by the tenant
func (r *RentProofRepository) Delete(ctx context.Context, id, tenantID int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM rent_payment_proofs
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING'
	`, id, tenantID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
