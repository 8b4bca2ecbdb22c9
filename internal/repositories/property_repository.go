package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estate-backend/internal/models"
)

type PropertyRepository struct {
	DB *pgxpool.Pool
}

func NewPropertyRepository(db *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{DB: db}
}

const propertyColumns = `
	id, landlord_id, title, address, city, state, rent_amount, rent_cycle,
	is_occupied, created_at, updated_at
`

func scanProperty(row pgx.Row) (*models.Property, error) {
	p := &models.Property{}
	err := row.Scan(
		&p.ID, &p.LandlordID, &p.Title, &p.Address, &p.City, &p.State,
		&p.RentAmount, &p.RentCycle, &p.IsOccupied, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (landlord_id, title, address, city, state, rent_amount, rent_cycle)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		p.LandlordID, p.Title, p.Address, p.City, p.State, p.RentAmount, p.RentCycle,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	return scanProperty(r.DB.QueryRow(ctx, query, id))
}

func (r *PropertyRepository) ListByLandlord(ctx context.Context, landlordID int64) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + `
		FROM properties WHERE landlord_id = $1 ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, landlordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, nil
}

func (r *PropertyRepository) SetOccupied(ctx context.Context, id int64, occupied bool) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE properties SET is_occupied = $2, updated_at = NOW() WHERE id = $1`, id, occupied)
	return err
}
