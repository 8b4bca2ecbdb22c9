package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the transfer lifecycle state
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusCompleted  PayoutStatus = "COMPLETED"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// LandlordPayout tracks the transfer of a verified payment to the landlord.
// One payout per payment (unique payment_id); retries reuse the row.
type LandlordPayout struct {
	ID         int64 `json:"id"`
	PaymentID  int64 `json:"payment_id"`
	LandlordID int64 `json:"landlord_id"`

	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Provider string          `json:"provider"`

	Status            PayoutStatus `json:"status"`
	TransferReference string       `json:"transfer_reference,omitempty"`
	FailureReason     string       `json:"failure_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
