package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RentCycle is the billing period of a tenancy
type RentCycle string

const (
	CycleMonthly   RentCycle = "MONTHLY"
	CycleQuarterly RentCycle = "QUARTERLY"
	CycleYearly    RentCycle = "YEARLY"
)

// Months returns the cycle length in calendar months
func (c RentCycle) Months() int {
	switch c {
	case CycleQuarterly:
		return 3
	case CycleYearly:
		return 12
	default:
		return 1
	}
}

// Valid reports whether the cycle is a known value
func (c RentCycle) Valid() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleYearly:
		return true
	}
	return false
}

// Tenant is an occupant assigned to a property with an active rent window
type Tenant struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	PropertyID *int64 `json:"property_id,omitempty"`

	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`

	RentAmount decimal.Decimal `json:"rent_amount"`
	RentCycle  RentCycle       `json:"rent_cycle"`
	RentStart  time.Time       `json:"rent_start"`
	RentExpiry time.Time       `json:"rent_expiry"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate enforces the tenancy invariants before persistence
func (t *Tenant) Validate() error {
	if !t.RentAmount.IsPositive() {
		return errors.New("rent amount must be greater than zero")
	}
	if !t.RentCycle.Valid() {
		return errors.New("rent cycle must be MONTHLY, QUARTERLY or YEARLY")
	}
	if !t.RentExpiry.After(t.RentStart) {
		return errors.New("rent expiry must be after rent start")
	}
	return nil
}

// NextCycle returns the window immediately following the current one
func (t *Tenant) NextCycle() (start, end time.Time) {
	start = t.RentExpiry
	end = start.AddDate(0, t.RentCycle.Months(), 0)
	return start, end
}

// CreateTenantRequest assigns a registered user to a property as tenant
type CreateTenantRequest struct {
	UserEmail  string `json:"user_email" validate:"required,email"`
	PropertyID int64  `json:"property_id" validate:"required"`
	FullName   string `json:"full_name" validate:"required,min=2"`
	Phone      string `json:"phone" validate:"required"`
	RentAmount string `json:"rent_amount" validate:"required"`
	RentCycle  string `json:"rent_cycle" validate:"required,oneof=MONTHLY QUARTERLY YEARLY"`
	RentStart  string `json:"rent_start" validate:"required"` // YYYY-MM-DD
}

// LedgerEvent captures a change to a tenancy's rent terms
type LedgerEvent string

const (
	LedgerRentCreated       LedgerEvent = "RENT_CREATED"
	LedgerRentRenewed       LedgerEvent = "RENT_RENEWED"
	LedgerRentAmountChanged LedgerEvent = "RENT_AMOUNT_CHANGED"
	LedgerRentExpired       LedgerEvent = "RENT_EXPIRED"
	LedgerRentReminder      LedgerEvent = "RENT_REMINDER"
)

// RentLedger is the append-only history of tenancy changes
type RentLedger struct {
	ID        int64           `json:"id"`
	TenantID  int64           `json:"tenant_id"`
	Event     LedgerEvent     `json:"event"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
