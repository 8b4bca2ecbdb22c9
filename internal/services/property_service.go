package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"estate-backend/internal/cache"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// PropertyRepo is the full property surface, creation included
type PropertyRepo interface {
	PropertyWriter
	Create(ctx context.Context, p *models.Property) error
	ListByLandlord(ctx context.Context, landlordID int64) ([]*models.Property, error)
}

type PropertyService struct {
	Properties PropertyRepo
}

func NewPropertyService(properties PropertyRepo) *PropertyService {
	return &PropertyService{Properties: properties}
}

// Create registers a new unit under the calling landlord
func (s *PropertyService) Create(ctx context.Context, landlordID int64, req *models.CreatePropertyRequest) (*models.Property, error) {
	amount, err := decimal.NewFromString(req.RentAmount)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("invalid rent amount %q", req.RentAmount)
	}
	cycle := models.RentCycle(req.RentCycle)
	if !cycle.Valid() {
		return nil, errors.New("rent cycle must be MONTHLY, QUARTERLY or YEARLY")
	}

	prop := &models.Property{
		LandlordID: landlordID,
		Title:      req.Title,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		RentAmount: amount,
		RentCycle:  cycle,
	}
	if err := s.Properties.Create(ctx, prop); err != nil {
		return nil, err
	}
	cache.InvalidatePropertyCaches(ctx)
	return prop, nil
}

// Get returns one property
func (s *PropertyService) Get(ctx context.Context, id int64) (*models.Property, error) {
	prop, err := s.Properties.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errors.New("property not found")
	}
	return prop, err
}

// ListMine returns the landlord's units
func (s *PropertyService) ListMine(ctx context.Context, landlordID int64) ([]*models.Property, error) {
	return s.Properties.ListByLandlord(ctx, landlordID)
}
