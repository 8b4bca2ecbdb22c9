package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentContext classifies how a payment relates to the cycle's rent
type PaymentContext string

const (
	ContextFullRent           PaymentContext = "FULL_RENT"
	ContextHalfRent           PaymentContext = "HALF_RENT"
	ContextOutstandingBalance PaymentContext = "OUTSTANDING_BALANCE"
)

// PDFStatus is the receipt document generation state
type PDFStatus string

const (
	PDFStatusPending    PDFStatus = "PENDING"
	PDFStatusGenerating PDFStatus = "GENERATING"
	PDFStatusReady      PDFStatus = "READY"
	PDFStatusFailed     PDFStatus = "FAILED"
)

// RentReceipt accumulates every payment a tenant makes toward one rent
// cycle. AmountPaid only grows; FullyPaid flips once RemainingBalance
// reaches zero.
type RentReceipt struct {
	ID         int64 `json:"id"`
	TenantID   int64 `json:"tenant_id"`
	PropertyID int64 `json:"property_id"`

	ReferenceNumber  string `json:"reference_number"`
	BarcodeReference string `json:"barcode_reference"`

	RentAmount       decimal.Decimal `json:"rent_amount"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	FullyPaid        bool            `json:"fully_paid"`

	PaymentContext PaymentContext `json:"payment_context"`

	CycleStart time.Time `json:"cycle_start"`
	CycleEnd   time.Time `json:"cycle_end"`

	// Last payment folded into this receipt
	PaymentID *int64 `json:"payment_id,omitempty"`
	ProofID   *int64 `json:"proof_id,omitempty"`

	PDFStatus   PDFStatus `json:"pdf_status"`
	ReceiptPath string    `json:"receipt_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReceiptVerification is the public view behind the barcode lookup
type ReceiptVerification struct {
	ReferenceNumber string          `json:"reference_number"`
	TenantName      string          `json:"tenant_name"`
	PropertyAddress string          `json:"property_address"`
	RentAmount      decimal.Decimal `json:"rent_amount"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	FullyPaid       bool            `json:"fully_paid"`
	PaymentContext  PaymentContext  `json:"payment_context"`
	CycleStart      time.Time       `json:"cycle_start"`
	CycleEnd        time.Time       `json:"cycle_end"`
}
