package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-backend/internal/fintech"
	"estate-backend/internal/models"
)

type payoutFixture struct {
	svc      *AutoPayoutService
	payments *fakePayments
	payouts  *fakePayouts
	profiles *fakeProfiles
	users    *fakeUsers
	receipts *fakeReceiptCreator
	gw       *fakeGateway
	notifier *recordingNotifier
}

func newPayoutFixture() *payoutFixture {
	f := &payoutFixture{
		payments: newFakePayments(),
		payouts:  newFakePayouts(),
		profiles: newFakeProfiles(),
		users:    newFakeUsers(),
		receipts: &fakeReceiptCreator{},
		gw:       &fakeGateway{},
		notifier: &recordingNotifier{},
	}
	f.users.put(&models.User{ID: 99, Name: "Mr Bello", Email: "bello@example.com", Phone: "+2348020000001", Role: models.RoleLandlord})
	f.profiles.put(&models.Profile{
		UserID:                99,
		BankCode:              "058",
		AccountNumber:         "0123456789",
		AccountName:           "Mr Bello",
		PaystackRecipientCode: "RCP_abc123",
		PayoutVerified:        true,
	})
	f.svc = NewAutoPayoutService(
		f.payments, f.payouts, f.profiles, f.users, f.receipts,
		map[string]fintech.Gateway{f.gw.Name(): f.gw},
		newTestGuard(), f.notifier,
	)
	return f
}

func (f *payoutFixture) verifiedPayment(t *testing.T) *models.PaymentTransaction {
	t.Helper()
	p := &models.PaymentTransaction{
		Reference:  "PMT-1-abc",
		Provider:   fintech.ProviderPaystack,
		Status:     models.PaymentStatusVerified,
		Kind:       models.PaymentKindRent,
		TenantID:   1,
		PropertyID: 5,
		LandlordID: 99,
		Amount:     money("100000"),
		Currency:   "NGN",
	}
	require.NoError(t, f.payments.Create(context.Background(), p))
	return p
}

func TestProcessPayoutTransfersAndReconciles(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	require.NoError(t, f.svc.ProcessPayout(ctx, payment.ID))

	payout, err := f.payouts.GetByPaymentID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, payout.Status)
	assert.NotEmpty(t, payout.TransferReference)
	assert.Equal(t, int64(99), payout.LandlordID)

	assert.Equal(t, []int64{payment.ID}, f.receipts.calls)
	assert.Len(t, f.notifier.payouts, 1)
	assert.Equal(t, 1, f.gw.transferCalls)
}

func TestProcessPayoutSkipsUnverifiedPayment(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	p := &models.PaymentTransaction{Status: models.PaymentStatusPending, LandlordID: 99, Amount: money("100000")}
	require.NoError(t, f.payments.Create(ctx, p))

	require.NoError(t, f.svc.ProcessPayout(ctx, p.ID))

	_, err := f.payouts.GetByPaymentID(ctx, p.ID)
	assert.Error(t, err)
	assert.Zero(t, f.gw.transferCalls)
}

func TestProcessPayoutRequiresVerifiedAccount(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	f.profiles.put(&models.Profile{UserID: 99, PayoutVerified: false})
	assert.ErrorIs(t, f.svc.ProcessPayout(ctx, payment.ID), ErrLandlordNotPayable)

	f.profiles = newFakeProfiles()
	f.svc.Profiles = f.profiles
	assert.ErrorIs(t, f.svc.ProcessPayout(ctx, payment.ID), ErrLandlordNotPayable)
	assert.Zero(t, f.gw.transferCalls)
}

func TestProcessPayoutCompletedNeverTransfersAgain(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	f.payouts.put(&models.LandlordPayout{
		ID:         1,
		PaymentID:  payment.ID,
		LandlordID: 99,
		Amount:     payment.Amount,
		Status:     models.PayoutStatusCompleted,
	})

	// No second transfer, but reconciliation still runs in case the earlier
	// attempt died between the two steps
	require.NoError(t, f.svc.ProcessPayout(ctx, payment.ID))
	assert.Zero(t, f.gw.transferCalls)
	assert.Equal(t, []int64{payment.ID}, f.receipts.calls)
}

func TestProcessPayoutRetryReconcilesAfterCompletedTransfer(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	// Transfer settles but the reconciliation step fails
	f.receipts.err = errors.New("receipts unavailable")
	err := f.svc.ProcessPayout(ctx, payment.ID)
	require.Error(t, err)

	payout, getErr := f.payouts.GetByPaymentID(ctx, payment.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.PayoutStatusCompleted, payout.Status)

	// The retry must not transfer twice, but must finish reconciling
	f.receipts.err = nil
	require.NoError(t, f.svc.ProcessPayout(ctx, payment.ID))
	assert.Equal(t, 1, f.gw.transferCalls)
	assert.Equal(t, []int64{payment.ID, payment.ID}, f.receipts.calls)
}

func TestProcessPayoutProcessingRowIsNotClaimed(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	f.payouts.put(&models.LandlordPayout{
		ID:         1,
		PaymentID:  payment.ID,
		LandlordID: 99,
		Amount:     payment.Amount,
		Status:     models.PayoutStatusProcessing,
	})

	require.NoError(t, f.svc.ProcessPayout(ctx, payment.ID))
	assert.Zero(t, f.gw.transferCalls)
}

func TestProcessPayoutFailureLeavesRetryableRow(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	f.gw.transferErr = errors.New("insufficient gateway balance")
	err := f.svc.ProcessPayout(ctx, payment.ID)
	require.Error(t, err)

	payout, getErr := f.payouts.GetByPaymentID(ctx, payment.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	assert.Contains(t, payout.FailureReason, "insufficient")
	assert.Empty(t, f.receipts.calls)

	// The retry claims the FAILED row and completes
	f.gw.transferErr = nil
	require.NoError(t, f.svc.ProcessPayout(ctx, payment.ID))
	payout, _ = f.payouts.GetByPaymentID(ctx, payment.ID)
	assert.Equal(t, models.PayoutStatusCompleted, payout.Status)
	assert.Equal(t, []int64{payment.ID}, f.receipts.calls)
}

func TestTransferNeedsProviderAccountDetails(t *testing.T) {
	f := newPayoutFixture()
	ctx := context.Background()
	payment := f.verifiedPayment(t)

	// Paystack payouts require a registered recipient
	f.profiles.put(&models.Profile{
		UserID:         99,
		BankCode:       "058",
		AccountNumber:  "0123456789",
		PayoutVerified: true,
	})
	err := f.svc.ProcessPayout(ctx, payment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLandlordNotPayable)

	payout, _ := f.payouts.GetByPaymentID(ctx, payment.ID)
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
}
