package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type TenantRepository struct {
	DB *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{DB: db}
}

const tenantColumns = `
	id, user_id, property_id, full_name, email, phone,
	rent_amount, rent_cycle, rent_start, rent_expiry, is_active,
	created_at, updated_at
`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.PropertyID, &t.FullName, &t.Email, &t.Phone,
		&t.RentAmount, &t.RentCycle, &t.RentStart, &t.RentExpiry, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *models.Tenant) error {
	query := `
		INSERT INTO tenants
			(user_id, property_id, full_name, email, phone,
			 rent_amount, rent_cycle, rent_start, rent_expiry, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		t.UserID, t.PropertyID, t.FullName, t.Email, t.Phone,
		t.RentAmount, t.RentCycle, t.RentStart, t.RentExpiry, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.DB.QueryRow(ctx, query, id))
}

func (r *TenantRepository) GetByUserID(ctx context.Context, userID int64) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE user_id = $1`
	return scanTenant(r.DB.QueryRow(ctx, query, userID))
}

func (r *TenantRepository) Update(ctx context.Context, t *models.Tenant) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE tenants
		SET property_id = $2, full_name = $3, email = $4, phone = $5,
		    rent_amount = $6, rent_cycle = $7, rent_start = $8, rent_expiry = $9,
		    is_active = $10, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.PropertyID, t.FullName, t.Email, t.Phone,
		t.RentAmount, t.RentCycle, t.RentStart, t.RentExpiry, t.IsActive)
	return err
}

func (r *TenantRepository) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE tenants SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	return err
}

// ListExpiringWithin returns active tenants whose rent expires in exactly
// `days` days (date granularity), for reminder sends.
func (r *TenantRepository) ListExpiringWithin(ctx context.Context, days int) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + `
		FROM tenants
		WHERE is_active = TRUE
		AND rent_expiry::date = (CURRENT_DATE + $1 * INTERVAL '1 day')::date`
	return r.listTenants(ctx, query, days)
}

// ListExpired returns active tenants whose rent window has passed
func (r *TenantRepository) ListExpired(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + `
		FROM tenants
		WHERE is_active = TRUE AND rent_expiry < NOW()`
	return r.listTenants(ctx, query)
}

func (r *TenantRepository) listTenants(ctx context.Context, query string, args ...interface{}) ([]*models.Tenant, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

// AppendLedger records a tenancy change event
func (r *TenantRepository) AppendLedger(ctx context.Context, l *models.RentLedger) error {
	query := `
		INSERT INTO rent_ledger (tenant_id, event, old_value, new_value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query, l.TenantID, l.Event, l.OldValue, l.NewValue).
		Scan(&l.ID, &l.CreatedAt)
}

// HasLedgerEventSince reports whether the event was already recorded for the
// tenant in the window, deduplicating reminder sends.
func (r *TenantRepository) HasLedgerEventSince(ctx context.Context, tenantID int64, event models.LedgerEvent, days int) (bool, error) {
	var count int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM rent_ledger
		WHERE tenant_id = $1 AND event = $2
		AND created_at > NOW() - $3 * INTERVAL '1 day'
	`, tenantID, event, days).Scan(&count)
	return count > 0, err
}

func (r *TenantRepository) ListLedger(ctx context.Context, tenantID int64) ([]*models.RentLedger, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, tenant_id, event, old_value, new_value, created_at
		FROM rent_ledger WHERE tenant_id = $1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.RentLedger
	for rows.Next() {
		l := &models.RentLedger{}
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Event, &l.OldValue, &l.NewValue, &l.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, l)
	}
	return entries, nil
}
