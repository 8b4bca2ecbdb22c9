package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProofStatus is the review state of an uploaded payment proof
type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "PENDING"
	ProofStatusApproved ProofStatus = "APPROVED"
	ProofStatusRejected ProofStatus = "REJECTED"
)

// RentPaymentProof is manual payment evidence (bank transfer slip, teller)
// uploaded by a tenant for landlord review.
type RentPaymentProof struct {
	ID         int64 `json:"id"`
	TenantID   int64 `json:"tenant_id"`
	PropertyID int64 `json:"property_id"`

	Amount   decimal.Decimal `json:"amount"`
	FilePath string          `json:"file_path"`
	FileHash string          `json:"-"`
	Note     string          `json:"note,omitempty"`

	Status          ProofStatus `json:"status"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	ReviewedBy      *int64      `json:"reviewed_by,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// UploadProofRequest accompanies the multipart file upload
type UploadProofRequest struct {
	Amount string `json:"amount" validate:"required"`
	Note   string `json:"note"`
}

// RejectProofRequest carries the landlord's rejection reason
type RejectProofRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}
