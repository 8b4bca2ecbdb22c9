package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property is a rentable unit owned by a landlord
type Property struct {
	ID         int64 `json:"id"`
	LandlordID int64 `json:"landlord_id"`

	Title      string          `json:"title"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	State      string          `json:"state"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	RentCycle  RentCycle       `json:"rent_cycle"`

	IsOccupied bool      `json:"is_occupied"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreatePropertyRequest registers a new unit under the calling landlord
type CreatePropertyRequest struct {
	Title      string `json:"title" validate:"required,min=3"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	RentAmount string `json:"rent_amount" validate:"required"`
	RentCycle  string `json:"rent_cycle" validate:"required,oneof=MONTHLY QUARTERLY YEARLY"`
}
