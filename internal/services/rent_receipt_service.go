package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"estate-backend/internal/cache"
	"estate-backend/internal/metrics"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// ReceiptRenderer produces the receipt document on local disk and returns
// its path. The caller owns cleanup.
type ReceiptRenderer interface {
	Render(rc *models.RentReceipt, tenant *models.Tenant, propertyAddress string) (string, error)
}

// DocumentUploader pushes a local file to object storage and returns the
// public URL.
type DocumentUploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// RentReceiptService reconciles payments into per-cycle receipts. A receipt
// accumulates partial payments until the cycle's rent is covered, at which
// point the tenancy rolls forward to the receipt's window.
type RentReceiptService struct {
	Receipts   ReceiptStore
	Tenants    TenantStore
	Payments   PaymentStore
	Properties PropertyStore
	Renderer   ReceiptRenderer
	Uploader   DocumentUploader
	Tasks      TaskQueue
	Notifier   Notifier

	secret []byte
}

func NewRentReceiptService(
	receipts ReceiptStore, tenants TenantStore, payments PaymentStore, properties PropertyStore,
	renderer ReceiptRenderer, uploader DocumentUploader, tasks TaskQueue, notifier Notifier,
	secret string,
) *RentReceiptService {
	return &RentReceiptService{
		Receipts:   receipts,
		Tenants:    tenants,
		Payments:   payments,
		Properties: properties,
		Renderer:   renderer,
		Uploader:   uploader,
		Tasks:      tasks,
		Notifier:   notifier,
		secret:     []byte(secret),
	}
}

// DeterminePaymentContext classifies a payment against the cycle's rent.
// The first payment is FULL_RENT when it covers the rent and HALF_RENT when
// it does not. Later payments are OUTSTANDING_BALANCE while a balance still
// remains afterwards, and FULL_RENT when they settle the cycle.
func DeterminePaymentContext(rentAmount, alreadyPaid, payment decimal.Decimal) models.PaymentContext {
	if alreadyPaid.IsZero() {
		if payment.LessThan(rentAmount) {
			return models.ContextHalfRent
		}
		return models.ContextFullRent
	}
	if alreadyPaid.Add(payment).LessThan(rentAmount) {
		return models.ContextOutstandingBalance
	}
	return models.ContextFullRent
}

// NewReceiptReference returns a human-facing receipt number
func NewReceiptReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("HMT-%s", strings.ToUpper(raw[:12]))
}

// BarcodeReference derives the tamper-proof lookup code printed on the
// receipt. Forging it requires the server secret.
func (s *RentReceiptService) BarcodeReference(receiptID int64, rentAmount decimal.Decimal) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d:%s", receiptID, rentAmount.String())
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateFromPayment folds a verified gateway payment into the tenant's open
// receipt, creating one for the upcoming cycle when none exists. Idempotent
// per payment: reconciliation stamps receipt_id onto the payment row, so a
// redelivered webhook resolves to the receipt it was already folded into.
func (s *RentReceiptService) CreateFromPayment(ctx context.Context, paymentID int64) (*models.RentReceipt, error) {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if payment.ReceiptID != nil {
		return s.Receipts.GetByID(ctx, *payment.ReceiptID)
	}
	if payment.Status != models.PaymentStatusVerified {
		return nil, ErrPaymentNotVerified
	}

	tenant, err := s.Tenants.GetByID(ctx, payment.TenantID)
	if err != nil {
		return nil, err
	}

	rc, err := s.openOrNewReceipt(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if err := s.applyPayment(ctx, rc, tenant, payment.Amount, &payment.ID, nil); err != nil {
		return nil, err
	}
	return rc, nil
}

// MarkProofAsPaid folds an approved offline payment proof into the tenant's
// open receipt, same as a gateway payment.
func (s *RentReceiptService) MarkProofAsPaid(ctx context.Context, proof *models.RentPaymentProof) (*models.RentReceipt, error) {
	tenant, err := s.Tenants.GetByID(ctx, proof.TenantID)
	if err != nil {
		return nil, err
	}
	rc, err := s.openOrNewReceipt(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if err := s.applyPayment(ctx, rc, tenant, proof.Amount, nil, &proof.ID); err != nil {
		return nil, err
	}
	return rc, nil
}

// openOrNewReceipt returns the tenant's unsettled receipt, or opens one for
// the window that follows the current tenancy.
func (s *RentReceiptService) openOrNewReceipt(ctx context.Context, tenant *models.Tenant) (*models.RentReceipt, error) {
	rc, err := s.Receipts.GetOpenByTenant(ctx, tenant.ID)
	if err == nil {
		return rc, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if tenant.PropertyID == nil {
		return nil, ErrNotTenant
	}
	start, end := tenant.NextCycle()
	rc = &models.RentReceipt{
		TenantID:         tenant.ID,
		PropertyID:       *tenant.PropertyID,
		ReferenceNumber:  NewReceiptReference(),
		RentAmount:       tenant.RentAmount,
		AmountPaid:       decimal.Zero,
		RemainingBalance: tenant.RentAmount,
		PaymentContext:   models.ContextFullRent,
		CycleStart:       start,
		CycleEnd:         end,
		PDFStatus:        models.PDFStatusPending,
	}
	if err := s.Receipts.Create(ctx, rc); err != nil {
		return nil, err
	}
	rc.BarcodeReference = s.BarcodeReference(rc.ID, rc.RentAmount)
	if err := s.Receipts.SetBarcode(ctx, rc.ID, rc.BarcodeReference); err != nil {
		return nil, err
	}
	return rc, nil
}

// applyPayment reconciles one payment into the receipt and, when the cycle
// becomes fully paid, renews the tenancy in the same transaction.
func (s *RentReceiptService) applyPayment(ctx context.Context, rc *models.RentReceipt, tenant *models.Tenant, amount decimal.Decimal, paymentID, proofID *int64) error {
	rc.PaymentContext = DeterminePaymentContext(rc.RentAmount, rc.AmountPaid, amount)
	rc.AmountPaid = rc.AmountPaid.Add(amount)
	rc.RemainingBalance = rc.RentAmount.Sub(rc.AmountPaid)
	if !rc.RemainingBalance.IsPositive() {
		rc.RemainingBalance = decimal.Zero
		rc.FullyPaid = true
	}
	if paymentID != nil {
		rc.PaymentID = paymentID
	}
	if proofID != nil {
		rc.ProofID = proofID
	}
	// The document must be regenerated with the new totals
	rc.PDFStatus = models.PDFStatusPending

	var renewed *models.Tenant
	var ledger *models.RentLedger
	if rc.FullyPaid {
		oldWindow, _ := json.Marshal(map[string]any{
			"rent_start":  tenant.RentStart,
			"rent_expiry": tenant.RentExpiry,
		})
		newWindow, _ := json.Marshal(map[string]any{
			"rent_start":  rc.CycleStart,
			"rent_expiry": rc.CycleEnd,
		})
		tenant.RentStart = rc.CycleStart
		tenant.RentExpiry = rc.CycleEnd
		tenant.IsActive = true
		renewed = tenant
		ledger = &models.RentLedger{
			TenantID: tenant.ID,
			Event:    models.LedgerRentRenewed,
			OldValue: oldWindow,
			NewValue: newWindow,
		}
	}

	if err := s.Receipts.ReconcileAndRenew(ctx, rc, paymentID, renewed, ledger); err != nil {
		return fmt.Errorf("failed to reconcile receipt %d: %w", rc.ID, err)
	}

	cache.InvalidateTenantCaches(ctx, rc.TenantID)
	if rc.FullyPaid {
		cache.PublishEvent(ctx, cache.ChannelReceiptFinalized, map[string]any{
			"receipt_id": rc.ID,
			"tenant_id":  rc.TenantID,
			"reference":  rc.ReferenceNumber,
		})
	}

	receiptID := rc.ID
	s.Tasks.Enqueue("receipt-pdf", func(taskCtx context.Context) error {
		return s.GeneratePDF(taskCtx, receiptID)
	})
	return nil
}

// GeneratePDF renders and uploads the receipt document. The row-level claim
// makes concurrent workers and repeat requests converge on one generation.
func (s *RentReceiptService) GeneratePDF(ctx context.Context, receiptID int64) error {
	claimed, err := s.Receipts.ClaimPDFGeneration(ctx, receiptID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	rc, err := s.Receipts.GetByID(ctx, receiptID)
	if err != nil {
		return err
	}
	tenant, err := s.Tenants.GetByID(ctx, rc.TenantID)
	if err != nil {
		s.failPDF(ctx, receiptID, err)
		return err
	}
	address := ""
	if prop, err := s.Properties.GetByID(ctx, rc.PropertyID); err == nil {
		address = prop.Address
	}

	localPath, err := s.Renderer.Render(rc, tenant, address)
	if err != nil {
		s.failPDF(ctx, receiptID, err)
		return err
	}

	url, err := s.Uploader.Upload(ctx, localPath, fmt.Sprintf("receipts/%s.pdf", rc.ReferenceNumber))
	if err != nil {
		s.failPDF(ctx, receiptID, err)
		return err
	}
	os.Remove(localPath)

	if err := s.Receipts.FinishPDFGeneration(ctx, receiptID, true, url); err != nil {
		return err
	}
	metrics.ReceiptPDFsGenerated.WithLabelValues("success").Inc()
	log.Printf("[Receipt] Document ready for %s: %s", rc.ReferenceNumber, url)
	if s.Notifier != nil {
		rc.ReceiptPath = url
		rc.PDFStatus = models.PDFStatusReady
		s.Notifier.ReceiptReady(rc, tenant.Phone, tenant.Email)
	}
	return nil
}

func (s *RentReceiptService) failPDF(ctx context.Context, receiptID int64, cause error) {
	metrics.ReceiptPDFsGenerated.WithLabelValues("failure").Inc()
	log.Printf("[Receipt] Document generation failed for receipt %d: %v", receiptID, cause)
	if err := s.Receipts.FinishPDFGeneration(ctx, receiptID, false, ""); err != nil {
		log.Printf("[Receipt] Could not record failed generation for receipt %d: %v", receiptID, err)
	}
}

// Get returns a receipt the user's tenancy owns
func (s *RentReceiptService) Get(ctx context.Context, receiptID, userID int64) (*models.RentReceipt, error) {
	rc, err := s.Receipts.GetByID(ctx, receiptID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, ErrNotTenant
	}
	if rc.TenantID != tenant.ID {
		return nil, ErrNotAuthorized
	}
	return rc, nil
}

// ListMine returns the caller's receipt history, newest cycle first
func (s *RentReceiptService) ListMine(ctx context.Context, userID int64) ([]*models.RentReceipt, error) {
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, ErrNotTenant
	}
	return s.Receipts.ListByTenant(ctx, tenant.ID)
}

// DownloadURL returns the stored document location once generation finished
func (s *RentReceiptService) DownloadURL(ctx context.Context, receiptID, userID int64) (string, error) {
	rc, err := s.Get(ctx, receiptID, userID)
	if err != nil {
		return "", err
	}
	if rc.PDFStatus != models.PDFStatusReady || rc.ReceiptPath == "" {
		return "", ErrReceiptNotReady
	}
	return rc.ReceiptPath, nil
}

// Verify resolves a reference or barcode to the public payment facts.
// No authentication: this backs the QR code on the printed receipt.
func (s *RentReceiptService) Verify(ctx context.Context, reference string) (*models.ReceiptVerification, error) {
	v, err := s.Receipts.Verify(ctx, reference)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrReceiptNotFound
	}
	return v, err
}
