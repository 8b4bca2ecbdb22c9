package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"estate-backend/internal/cache"
	"estate-backend/internal/fintech"
	"estate-backend/internal/idempotency"
	"estate-backend/internal/metrics"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// PayoutProcessor is the downstream payout chain triggered once a payment
// verifies. Satisfied by AutoPayoutService.
type PayoutProcessor interface {
	ProcessPayout(ctx context.Context, paymentID int64) error
}

// RentPaymentService drives the two online payment flows: a checkout for the
// next rent cycle, and a checkout that clears the balance of a partly paid
// cycle. Duplicate submissions are suppressed per tenant and cycle.
type RentPaymentService struct {
	Payments   PaymentStore
	Receipts   ReceiptStore
	Tenants    TenantStore
	Properties PropertyStore
	Profiles   ProfileStore
	Gateways   map[string]fintech.Gateway
	Guard      *idempotency.Guard
	Tasks      TaskQueue
	Notifier   Notifier
	Payouts    PayoutProcessor

	defaultProvider string
	currency        string
	callbackURL     string
	lockTTL         time.Duration
}

func NewRentPaymentService(
	payments PaymentStore, receipts ReceiptStore, tenants TenantStore, properties PropertyStore,
	profiles ProfileStore, gateways map[string]fintech.Gateway, guard *idempotency.Guard,
	tasks TaskQueue, notifier Notifier, payouts PayoutProcessor,
	defaultProvider, currency, callbackURL string, lockTTLSeconds int,
) *RentPaymentService {
	if lockTTLSeconds <= 0 {
		lockTTLSeconds = 300
	}
	return &RentPaymentService{
		Payments:        payments,
		Receipts:        receipts,
		Tenants:         tenants,
		Properties:      properties,
		Profiles:        profiles,
		Gateways:        gateways,
		Guard:           guard,
		Tasks:           tasks,
		Notifier:        notifier,
		Payouts:         payouts,
		defaultProvider: defaultProvider,
		currency:        currency,
		callbackURL:     callbackURL,
		lockTTL:         time.Duration(lockTTLSeconds) * time.Second,
	}
}

func (s *RentPaymentService) gateway(provider string) (fintech.Gateway, error) {
	if provider == "" {
		provider = s.defaultProvider
	}
	gw, ok := s.Gateways[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported payment provider %q", provider)
	}
	return gw, nil
}

// ProcessRentPayment opens a checkout for the tenant's next rent cycle.
// Rejected while a partly paid cycle is still open: the balance flow must be
// used so one cycle is settled before the next begins.
func (s *RentPaymentService) ProcessRentPayment(ctx context.Context, userID int64, provider string) (*models.CreateRentPaymentResponse, error) {
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

	if open, err := s.Receipts.GetOpenByTenant(ctx, tenant.ID); err == nil && open.AmountPaid.IsPositive() {
		return nil, ErrOutstandingBalance
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	cycleStart, _ := tenant.NextCycle()
	key := idempotency.PaymentLockKey(tenant.ID, cycleStart)
	if err := s.Guard.Acquire(ctx, key, s.lockTTL); err != nil {
		if errors.Is(err, idempotency.ErrDuplicateRequest) {
			return nil, ErrPaymentInProgress
		}
		return nil, err
	}
	defer s.Guard.Release(ctx, key)

	return s.startCheckout(ctx, tenant, provider, models.PaymentKindRent, tenant.RentAmount)
}

// ProcessCompleteRentPayment opens a checkout for exactly the remaining
// balance of the tenant's open cycle.
func (s *RentPaymentService) ProcessCompleteRentPayment(ctx context.Context, userID int64, provider string) (*models.CreateRentPaymentResponse, error) {
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

	open, err := s.Receipts.GetOpenByTenant(ctx, tenant.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNoOutstanding
	}
	if err != nil {
		return nil, err
	}
	if !open.AmountPaid.IsPositive() || !open.RemainingBalance.IsPositive() {
		return nil, ErrNoOutstanding
	}

	key := idempotency.PaymentLockKey(tenant.ID, open.CycleStart)
	if err := s.Guard.Acquire(ctx, key, s.lockTTL); err != nil {
		if errors.Is(err, idempotency.ErrDuplicateRequest) {
			return nil, ErrPaymentInProgress
		}
		return nil, err
	}
	defer s.Guard.Release(ctx, key)

	return s.startCheckout(ctx, tenant, provider, models.PaymentKindBalance, open.RemainingBalance)
}

func (s *RentPaymentService) startCheckout(ctx context.Context, tenant *models.Tenant, provider string, kind models.PaymentKind, amount decimal.Decimal) (*models.CreateRentPaymentResponse, error) {
	gw, err := s.gateway(provider)
	if err != nil {
		return nil, err
	}

	prop, err := s.Properties.GetByID(ctx, *tenant.PropertyID)
	if err != nil {
		return nil, err
	}

	// Money is only collected when it can be forwarded
	profile, err := s.Profiles.GetByUserID(ctx, prop.LandlordID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrLandlordNotPayable
	}
	if err != nil {
		return nil, err
	}
	if !profile.PayoutVerified {
		return nil, ErrLandlordNotPayable
	}

	payment := &models.PaymentTransaction{
		Provider:    gw.Name(),
		Status:      models.PaymentStatusPending,
		Kind:        kind,
		TenantID:    tenant.ID,
		PropertyID:  prop.ID,
		LandlordID:  prop.LandlordID,
		TenantName:  tenant.FullName,
		TenantEmail: tenant.Email,
		TenantPhone: tenant.Phone,
		Amount:      amount,
		Currency:    s.currency,
	}
	if err := s.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	reference := fintech.NewPaymentReference(payment.ID)
	if gw.Name() == fintech.ProviderFlutterwave {
		reference = fintech.NewFlutterwaveReference()
	}
	if err := s.Payments.SetReference(ctx, payment.ID, reference); err != nil {
		return nil, err
	}
	payment.Reference = reference

	res, err := gw.InitializePayment(ctx, fintech.InitializeRequest{
		Email:       tenant.Email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Title:       "Rent Payment",
		Description: fmt.Sprintf("Rent for %s", prop.Address),
	})
	if err != nil {
		if mfErr := s.Payments.MarkFailed(ctx, payment.ID, err.Error()); mfErr != nil {
			log.Printf("[Payment] Could not mark payment %d failed: %v", payment.ID, mfErr)
		}
		return nil, fmt.Errorf("checkout initialization failed: %w", err)
	}

	if err := s.Payments.SetCheckoutURL(ctx, payment.ID, res.CheckoutURL); err != nil {
		log.Printf("[Payment] Could not store checkout url for payment %d: %v", payment.ID, err)
	}

	metrics.PaymentsInitiated.WithLabelValues(gw.Name(), string(kind)).Inc()
	log.Printf("[Payment] Checkout opened: payment=%d provider=%s kind=%s amount=%s",
		payment.ID, gw.Name(), kind, amount.String())

	return &models.CreateRentPaymentResponse{
		PaymentID:   payment.ID,
		Reference:   reference,
		CheckoutURL: res.CheckoutURL,
		Provider:    gw.Name(),
		Amount:      amount.String(),
		Currency:    s.currency,
	}, nil
}

// VerifyPayment confirms a charge against the provider and, when this call
// wins the VERIFIED transition, runs the downstream chain exactly once:
// notifications, the payout, and the payment.completed event. Safe to call
// from the callback page and from every webhook redelivery.
func (s *RentPaymentService) VerifyPayment(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	payment, err := s.Payments.GetByReference(ctx, reference)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusVerified {
		return payment, nil
	}

	gw, err := s.gateway(payment.Provider)
	if err != nil {
		return nil, err
	}
	res, err := gw.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("provider verification failed: %w", err)
	}
	if !res.Success {
		return nil, ErrPaymentNotVerified
	}

	won, err := s.Payments.MarkVerified(ctx, payment.ID, res.Channel)
	if err != nil {
		return nil, err
	}
	payment, err = s.Payments.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent verification already ran the chain
		return payment, nil
	}

	metrics.PaymentsVerified.WithLabelValues(payment.Provider).Inc()
	log.Printf("[Payment] Verified payment %d (%s) via %s", payment.ID, reference, payment.Provider)

	if s.Notifier != nil {
		s.Notifier.PaymentReceived(payment)
	}
	cache.InvalidatePaymentCaches(ctx, payment.TenantID)
	cache.PublishEvent(ctx, cache.ChannelPaymentCompleted, map[string]any{
		"payment_id": payment.ID,
		"tenant_id":  payment.TenantID,
		"reference":  payment.Reference,
		"amount":     payment.Amount.String(),
	})

	paymentID := payment.ID
	s.Tasks.Enqueue("auto-payout", func(taskCtx context.Context) error {
		return s.Payouts.ProcessPayout(taskCtx, paymentID)
	})
	return payment, nil
}

// FailPayment records a provider-reported failed charge
func (s *RentPaymentService) FailPayment(ctx context.Context, reference, reason string) error {
	payment, err := s.Payments.GetByReference(ctx, reference)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil
	}
	if err := s.Payments.MarkFailed(ctx, payment.ID, reason); err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.PaymentFailed(payment, reason)
	}
	return nil
}

// RefundPayment reverses a charge that never verified. Verified payments are
// settled business and cannot be refunded here.
func (s *RentPaymentService) RefundPayment(ctx context.Context, paymentID, userID int64) error {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}

	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if err != nil || tenant.ID != payment.TenantID {
		return ErrNotAuthorized
	}
	if payment.Status != models.PaymentStatusPending {
		return ErrRefundNotAllowed
	}

	gw, err := s.gateway(payment.Provider)
	if err != nil {
		return err
	}
	if err := gw.Refund(ctx, payment.Reference); err != nil {
		return fmt.Errorf("provider refund failed: %w", err)
	}
	if err := s.Payments.MarkRefunded(ctx, payment.ID); err != nil {
		return err
	}

	log.Printf("[Payment] Refunded payment %d (%s)", payment.ID, payment.Reference)
	cache.PublishEvent(ctx, cache.ChannelPaymentRefunded, map[string]any{
		"payment_id": payment.ID,
		"tenant_id":  payment.TenantID,
		"reference":  payment.Reference,
	})
	return nil
}

// ListMine returns the caller's payment history
func (s *RentPaymentService) ListMine(ctx context.Context, userID int64) ([]*models.PaymentTransaction, error) {
	tenant, err := s.Tenants.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotTenant
	}
	if err != nil {
		return nil, err
	}
	return s.Payments.ListByTenant(ctx, tenant.ID)
}
