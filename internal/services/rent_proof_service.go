package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"estate-backend/internal/idempotency"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// ProofReconciler folds an approved proof into the tenant's receipt
type ProofReconciler interface {
	MarkProofAsPaid(ctx context.Context, proof *models.RentPaymentProof) (*models.RentReceipt, error)
}

// ProofFileStore uploads the evidence file to object storage
type ProofFileStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// RentProofService handles offline payment evidence: tenants upload a bank
// slip, the landlord reviews it, and approval reconciles the amount into the
// rent receipt exactly like a gateway payment.
type RentProofService struct {
	Proofs     ProofStore
	Tenants    TenantStore
	Receipts   ReceiptStore
	Properties PropertyStore
	Reconciler ProofReconciler
	Files      ProofFileStore
	Guard      *idempotency.Guard

	dailyQuota      int
	pendingPerProp  int
	minimumFraction decimal.Decimal
}

func NewRentProofService(
	proofs ProofStore, tenants TenantStore, receipts ReceiptStore, properties PropertyStore,
	reconciler ProofReconciler, files ProofFileStore, guard *idempotency.Guard,
	dailyQuota, pendingPerProperty int,
) *RentProofService {
	if dailyQuota <= 0 {
		dailyQuota = 5
	}
	if pendingPerProperty <= 0 {
		pendingPerProperty = 3
	}
	return &RentProofService{
		Proofs:          proofs,
		Tenants:         tenants,
		Receipts:        receipts,
		Properties:      properties,
		Reconciler:      reconciler,
		Files:           files,
		Guard:           guard,
		dailyQuota:      dailyQuota,
		pendingPerProp:  pendingPerProperty,
		minimumFraction: decimal.NewFromFloat(0.5),
	}
}

// Upload stores a new payment proof for review. The first payment of a cycle
// must cover more than half of the rent and at most the rent; later payments
// may be any positive amount up to the remaining balance.
func (s *RentProofService) Upload(ctx context.Context, userID int64, amount decimal.Decimal, file []byte, filename, note string) (*models.RentPaymentProof, error) {
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotTenant
	}
	if err != nil {
		return nil, err
	}
	if tenant.PropertyID == nil {
		return nil, ErrNotTenant
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("proof amount must be greater than zero")
	}

	open, err := s.Receipts.GetOpenByTenant(ctx, tenant.ID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	firstPayment := errors.Is(err, repositories.ErrNotFound) || open.AmountPaid.IsZero()
	if firstPayment {
		if amount.LessThanOrEqual(tenant.RentAmount.Mul(s.minimumFraction)) {
			return nil, ErrProofBelowMinimum
		}
		if amount.GreaterThan(tenant.RentAmount) {
			return nil, ErrProofExceedsBalance
		}
	} else if amount.GreaterThan(open.RemainingBalance) {
		return nil, ErrProofExceedsBalance
	}

	count, err := s.Proofs.CountToday(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if count >= s.dailyQuota {
		return nil, ErrProofDailyQuota
	}

	pending, err := s.Proofs.CountPendingForProperty(ctx, tenant.ID, *tenant.PropertyID)
	if err != nil {
		return nil, err
	}
	if pending >= s.pendingPerProp {
		return nil, ErrProofPendingLimit
	}

	sum := sha256.Sum256(file)
	fileHash := hex.EncodeToString(sum[:])
	exists, err := s.Proofs.ExistsByHash(ctx, tenant.ID, fileHash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrProofDuplicate
	}

	ext := filepath.Ext(filename)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("proofs/%d/%s%s", tenant.ID, uuid.NewString(), ext)
	url, err := s.Files.UploadBytes(ctx, key, file, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store proof file: %w", err)
	}

	proof := &models.RentPaymentProof{
		TenantID:   tenant.ID,
		PropertyID: *tenant.PropertyID,
		Amount:     amount,
		FilePath:   url,
		FileHash:   fileHash,
		Note:       note,
		Status:     models.ProofStatusPending,
	}
	if err := s.Proofs.Create(ctx, proof); err != nil {
		return nil, err
	}
	log.Printf("[Proof] Tenant %d uploaded proof %d for %s", tenant.ID, proof.ID, amount.String())
	return proof, nil
}

// Approve accepts a proof and reconciles the amount into the rent receipt.
// The per-proof lock and the PENDING transition gate make double clicks and
// concurrent reviewers converge on a single reconciliation.
func (s *RentProofService) Approve(ctx context.Context, proofID, reviewerID int64) (*models.RentReceipt, error) {
	var receipt *models.RentReceipt
	key := idempotency.ProofLockKey(proofID)
	err := s.Guard.RunOnce(ctx, key, time.Minute, func(ctx context.Context) error {
		proof, err := s.getForReview(ctx, proofID, reviewerID)
		if err != nil {
			return err
		}

		claimed, err := s.Proofs.MarkApproved(ctx, proofID, reviewerID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrProofAlreadyHandled
		}

		receipt, err = s.Reconciler.MarkProofAsPaid(ctx, proof)
		return err
	})
	if errors.Is(err, idempotency.ErrDuplicateRequest) {
		return nil, ErrProofAlreadyHandled
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[Proof] Proof %d approved by user %d", proofID, reviewerID)
	return receipt, nil
}

// Reject declines a proof with a reason for the tenant
func (s *RentProofService) Reject(ctx context.Context, proofID, reviewerID int64, reason string) error {
	if _, err := s.getForReview(ctx, proofID, reviewerID); err != nil {
		return err
	}
	claimed, err := s.Proofs.MarkRejected(ctx, proofID, reviewerID, reason)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrProofAlreadyHandled
	}
	log.Printf("[Proof] Proof %d rejected by user %d: %s", proofID, reviewerID, reason)
	return nil
}

// getForReview loads a pending proof and checks the reviewer owns the property
func (s *RentProofService) getForReview(ctx context.Context, proofID, reviewerID int64) (*models.RentPaymentProof, error) {
	proof, err := s.Proofs.GetByID(ctx, proofID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProofNotFound
	}
	if err != nil {
		return nil, err
	}
	if proof.Status != models.ProofStatusPending {
		return nil, ErrProofAlreadyHandled
	}
	prop, err := s.Properties.GetByID(ctx, proof.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop.LandlordID != reviewerID {
		return nil, ErrNotAuthorized
	}
	return proof, nil
}

// Delete removes the tenant's own still-pending proof
func (s *RentProofService) Delete(ctx context.Context, proofID, userID int64) error {
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotTenant
	}
	if err != nil {
		return err
	}
	deleted, err := s.Proofs.Delete(ctx, proofID, tenant.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProofNotFound
	}
	return nil
}

// ListMine returns the tenant's own proofs
func (s *RentProofService) ListMine(ctx context.Context, userID int64) ([]*models.RentPaymentProof, error) {
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotTenant
	}
	if err != nil {
		return nil, err
	}
	return s.Proofs.ListByTenant(ctx, tenant.ID)
}

// ListForLandlord returns proofs across the landlord's properties
func (s *RentProofService) ListForLandlord(ctx context.Context, landlordID int64) ([]*models.RentPaymentProof, error) {
	return s.Proofs.ListByLandlord(ctx, landlordID)
}
