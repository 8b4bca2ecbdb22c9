package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"estate-backend/internal/cache"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
	"estate-backend/internal/timeutil"
)

// PropertyWriter extends PropertyStore with occupancy updates
type PropertyWriter interface {
	PropertyStore
	SetOccupied(ctx context.Context, id int64, occupied bool) error
}

// TenantService manages tenancies: landlord assigns a registered user to a
// property, the ledger records the terms, and reads serve the tenant portal.
type TenantService struct {
	Tenants    TenantStore
	Properties PropertyWriter
	Users      UserStore
}

func NewTenantService(tenants TenantStore, properties PropertyWriter, users UserStore) *TenantService {
	return &TenantService{Tenants: tenants, Properties: properties, Users: users}
}

// Create assigns a user to the landlord's property with the given rent terms
func (s *TenantService) Create(ctx context.Context, landlordID int64, req *models.CreateTenantRequest) (*models.Tenant, error) {
	prop, err := s.Properties.GetByID(ctx, req.PropertyID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errors.New("property not found")
	}
	if err != nil {
		return nil, err
	}
	if prop.LandlordID != landlordID {
		return nil, ErrNotAuthorized
	}
	if prop.IsOccupied {
		return nil, errors.New("property is already occupied")
	}

	user, err := s.Users.GetByEmail(ctx, req.UserEmail)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errors.New("no registered user with that email")
	}
	if err != nil {
		return nil, err
	}
	if existing, err := s.Tenants.GetByUserID(ctx, user.ID); err == nil && existing != nil {
		return nil, errors.New("user already has a tenancy")
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	amount, err := decimal.NewFromString(req.RentAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid rent amount: %w", err)
	}
	start, err := timeutil.ParseInLagos(timeutil.DateLayout, req.RentStart)
	if err != nil {
		return nil, fmt.Errorf("invalid rent start date: %w", err)
	}

	cycle := models.RentCycle(req.RentCycle)
	tenant := &models.Tenant{
		UserID:     user.ID,
		PropertyID: &prop.ID,
		FullName:   req.FullName,
		Email:      user.Email,
		Phone:      req.Phone,
		RentAmount: amount,
		RentCycle:  cycle,
		RentStart:  start,
		RentExpiry: start.AddDate(0, cycle.Months(), 0),
		IsActive:   true,
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := s.Tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	if err := s.Properties.SetOccupied(ctx, prop.ID, true); err != nil {
		log.Printf("[Tenant] Could not mark property %d occupied: %v", prop.ID, err)
	}

	terms, _ := json.Marshal(map[string]any{
		"rent_amount": tenant.RentAmount.String(),
		"rent_cycle":  tenant.RentCycle,
		"rent_start":  tenant.RentStart,
		"rent_expiry": tenant.RentExpiry,
	})
	if err := s.Tenants.AppendLedger(ctx, &models.RentLedger{
		TenantID: tenant.ID,
		Event:    models.LedgerRentCreated,
		NewValue: terms,
	}); err != nil {
		log.Printf("[Tenant] Could not append creation ledger for tenant %d: %v", tenant.ID, err)
	}

	cache.InvalidateTenantCaches(ctx, tenant.ID)
	cache.InvalidatePropertyCaches(ctx)
	log.Printf("[Tenant] Tenancy %d created on property %d", tenant.ID, prop.ID)
	return tenant, nil
}

// MyTenancy returns the calling user's tenancy
func (s *TenantService) MyTenancy(ctx context.Context, userID int64) (*models.Tenant, error) {
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotTenant
	}
	return tenant, err
}

// Ledger returns the tenancy's change history, newest first
func (s *TenantService) Ledger(ctx context.Context, userID int64) ([]*models.RentLedger, error) {
	tenant, err := s.MyTenancy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Tenants.ListLedger(ctx, tenant.ID)
}
