package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"estate-backend/internal/fintech"
	"estate-backend/internal/idempotency"
	"estate-backend/internal/metrics"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// ReceiptCreator is the reconciliation step run after a payout settles
type ReceiptCreator interface {
	CreateFromPayment(ctx context.Context, paymentID int64) (*models.RentReceipt, error)
}

// AutoPayoutService forwards a verified rent payment to the landlord's bank
// account. One payout row exists per payment; a failed transfer leaves the
// row FAILED so the task queue can retry it, and a completed transfer is
// never repeated.
type AutoPayoutService struct {
	Payments PaymentStore
	Payouts  PayoutStore
	Profiles ProfileStore
	Users    UserStore
	Receipts ReceiptCreator
	Gateways map[string]fintech.Gateway
	Guard    *idempotency.Guard
	Notifier Notifier
}

func NewAutoPayoutService(
	payments PaymentStore, payouts PayoutStore, profiles ProfileStore, users UserStore,
	receipts ReceiptCreator, gateways map[string]fintech.Gateway,
	guard *idempotency.Guard, notifier Notifier,
) *AutoPayoutService {
	return &AutoPayoutService{
		Payments: payments,
		Payouts:  payouts,
		Profiles: profiles,
		Users:    users,
		Receipts: receipts,
		Gateways: gateways,
		Guard:    guard,
		Notifier: notifier,
	}
}

// ProcessPayout runs the full payout chain for one payment. Idempotent at
// three levels: a per-payment lock, the unique payout row, and the
// PROCESSING transition gate.
func (s *AutoPayoutService) ProcessPayout(ctx context.Context, paymentID int64) error {
	key := idempotency.PayoutLockKey(paymentID)
	err := s.Guard.RunOnce(ctx, key, 2*time.Minute, func(ctx context.Context) error {
		return s.process(ctx, paymentID)
	})
	if errors.Is(err, idempotency.ErrDuplicateRequest) {
		log.Printf("[Payout] Payment %d already being processed elsewhere", paymentID)
		return nil
	}
	return err
}

func (s *AutoPayoutService) process(ctx context.Context, paymentID int64) error {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	if payment.Status != models.PaymentStatusVerified {
		log.Printf("[Payout] Skipping payment %d: status %s", paymentID, payment.Status)
		return nil
	}

	profile, err := s.Profiles.GetByUserID(ctx, payment.LandlordID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrLandlordNotPayable
	}
	if err != nil {
		return err
	}
	if !profile.PayoutVerified {
		return ErrLandlordNotPayable
	}

	payout, err := s.Payouts.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, repositories.ErrNotFound) {
		payout = &models.LandlordPayout{
			PaymentID:  payment.ID,
			LandlordID: payment.LandlordID,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			Provider:   payment.Provider,
			Status:     models.PayoutStatusPending,
		}
		if err := s.Payouts.Create(ctx, payout); err != nil {
			return fmt.Errorf("failed to create payout record: %w", err)
		}
	} else if err != nil {
		return err
	}

	if payout.Status == models.PayoutStatusCompleted {
		// The transfer settled on an earlier attempt that may have died before
		// reconciling. CreateFromPayment is idempotent, so catch up here.
		log.Printf("[Payout] Payment %d already paid out (payout %d)", paymentID, payout.ID)
		if _, err := s.Receipts.CreateFromPayment(ctx, paymentID); err != nil {
			return fmt.Errorf("payout %d completed but reconciliation failed: %w", payout.ID, err)
		}
		return nil
	}

	claimed, err := s.Payouts.MarkProcessing(ctx, payout.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	result, err := s.transfer(ctx, payment, payout, profile)
	if err != nil {
		// Compensate: surface the failure on the row and hand the error to
		// the task queue for a bounded retry.
		if failErr := s.Payouts.MarkFailed(ctx, payout.ID, err.Error()); failErr != nil {
			log.Printf("[Payout] Could not mark payout %d failed: %v", payout.ID, failErr)
		}
		metrics.PayoutsProcessed.WithLabelValues(payment.Provider, "failed").Inc()
		return fmt.Errorf("transfer failed for payment %d: %w", paymentID, err)
	}

	if err := s.Payouts.MarkCompleted(ctx, payout.ID, result.Reference); err != nil {
		return err
	}
	metrics.PayoutsProcessed.WithLabelValues(payment.Provider, "completed").Inc()
	log.Printf("[Payout] Completed payout %d for payment %d (%s)", payout.ID, paymentID, result.Reference)

	// Settled funds reached the landlord: fold the payment into the receipt
	// and renew the tenancy.
	if _, err := s.Receipts.CreateFromPayment(ctx, paymentID); err != nil {
		return fmt.Errorf("payout %d completed but reconciliation failed: %w", payout.ID, err)
	}

	if s.Notifier != nil {
		if landlord, err := s.Users.Get(ctx, payment.LandlordID); err == nil {
			payout.Status = models.PayoutStatusCompleted
			payout.TransferReference = result.Reference
			s.Notifier.PayoutCompleted(payout, landlord.Phone, landlord.Email)
		}
	}
	return nil
}

func (s *AutoPayoutService) transfer(ctx context.Context, payment *models.PaymentTransaction, payout *models.LandlordPayout, profile *models.Profile) (*fintech.TransferResult, error) {
	gw, ok := s.Gateways[payment.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported payout provider %q", payment.Provider)
	}

	req := fintech.TransferRequest{
		Amount:    payment.Amount,
		Reference: fintech.NewPayoutReference(payment.ID),
		Reason:    fmt.Sprintf("Rent payout for %s", payment.Reference),
	}
	switch payment.Provider {
	case fintech.ProviderPaystack:
		if profile.PaystackRecipientCode == "" {
			return nil, ErrLandlordNotPayable
		}
		req.RecipientCode = profile.PaystackRecipientCode
	case fintech.ProviderFlutterwave:
		if profile.AccountNumber == "" || profile.BankCode == "" {
			return nil, ErrLandlordNotPayable
		}
		req.AccountNumber = profile.AccountNumber
		req.BankCode = profile.BankCode
	}
	return gw.Transfer(ctx, req)
}

// ListForLandlord returns the landlord's payout history
func (s *AutoPayoutService) ListForLandlord(ctx context.Context, landlordID int64) ([]*models.LandlordPayout, error) {
	return s.Payouts.ListByLandlord(ctx, landlordID)
}
