package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of an online rent payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentKind distinguishes a next-cycle payment from an outstanding-balance payment
type PaymentKind string

const (
	PaymentKindRent    PaymentKind = "RENT"
	PaymentKindBalance PaymentKind = "BALANCE"
)

// PaymentTransaction is one gateway charge attempt. Tenant identity is
// snapshotted at creation so receipts stay correct even if the tenant row
// changes later.
type PaymentTransaction struct {
	ID         int64         `json:"id"`
	Reference  string        `json:"reference"`
	Provider   string        `json:"provider"`
	Status     PaymentStatus `json:"status"`
	Kind       PaymentKind   `json:"kind"`

	TenantID   int64 `json:"tenant_id"`
	PropertyID int64 `json:"property_id"`
	LandlordID int64 `json:"landlord_id"`

	// Identity snapshot
	TenantName  string `json:"tenant_name"`
	TenantEmail string `json:"tenant_email"`
	TenantPhone string `json:"tenant_phone"`

	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	CheckoutURL   string `json:"checkout_url,omitempty"`
	Channel       string `json:"channel,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	// Receipt this payment was folded into, set at reconciliation
	ReceiptID *int64 `json:"receipt_id,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// CreateRentPaymentRequest initiates a checkout for the tenant's next cycle
type CreateRentPaymentRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=paystack flutterwave"`
}

// CreateRentPaymentResponse hands the checkout link back to the client
type CreateRentPaymentResponse struct {
	PaymentID   int64  `json:"payment_id"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Provider    string `json:"provider"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}
