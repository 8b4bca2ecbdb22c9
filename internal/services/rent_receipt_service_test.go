package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-backend/internal/models"
)

func TestDeterminePaymentContext(t *testing.T) {
	rent := money("100000")

	cases := []struct {
		name        string
		alreadyPaid decimal.Decimal
		payment     decimal.Decimal
		want        models.PaymentContext
	}{
		{"first payment covering rent", money("0"), money("100000"), models.ContextFullRent},
		{"first payment over rent", money("0"), money("120000"), models.ContextFullRent},
		{"first partial payment", money("0"), money("60000"), models.ContextHalfRent},
		{"later payment leaving balance", money("60000"), money("20000"), models.ContextOutstandingBalance},
		{"later payment settling cycle", money("60000"), money("40000"), models.ContextFullRent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeterminePaymentContext(rent, tc.alreadyPaid, tc.payment))
		})
	}
}

type receiptFixture struct {
	svc      *RentReceiptService
	receipts *fakeReceipts
	tenants  *fakeTenants
	payments *fakePayments
	props    *fakeProperties
	renderer *fakeRenderer
	uploader *fakeUploader
	tasks    *recordTasks
	notifier *recordingNotifier
}

func newReceiptFixture() *receiptFixture {
	f := &receiptFixture{
		receipts: newFakeReceipts(),
		tenants:  newFakeTenants(),
		payments: newFakePayments(),
		props:    newFakeProperties(),
		renderer: &fakeRenderer{},
		uploader: &fakeUploader{},
		tasks:    &recordTasks{},
		notifier: &recordingNotifier{},
	}
	f.receipts.tenants = f.tenants
	f.receipts.payments = f.payments
	f.tenants.put(activeTenant(1, 10))
	f.props.put(landlordProperty())
	f.svc = NewRentReceiptService(
		f.receipts, f.tenants, f.payments, f.props,
		f.renderer, f.uploader, f.tasks, f.notifier,
		"test-receipt-secret",
	)
	return f
}

func (f *receiptFixture) verifiedPayment(t *testing.T, amount string) *models.PaymentTransaction {
	t.Helper()
	p := &models.PaymentTransaction{
		Provider:   "paystack",
		Status:     models.PaymentStatusVerified,
		Kind:       models.PaymentKindRent,
		TenantID:   1,
		PropertyID: 5,
		LandlordID: 99,
		Amount:     money(amount),
		Currency:   "NGN",
	}
	require.NoError(t, f.payments.Create(context.Background(), p))
	return p
}

func TestCreateFromPaymentAccumulatesToFullRent(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	first := f.verifiedPayment(t, "60000")
	rc, err := f.svc.CreateFromPayment(ctx, first.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rc.ReferenceNumber, "HMT-"))
	assert.Equal(t, models.ContextHalfRent, rc.PaymentContext)
	assert.True(t, rc.AmountPaid.Equal(money("60000")))
	assert.True(t, rc.RemainingBalance.Equal(money("40000")))
	assert.False(t, rc.FullyPaid)

	// The cycle window follows the current tenancy
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), rc.CycleStart)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), rc.CycleEnd)

	// Tenancy untouched while a balance remains
	tenant, _ := f.tenants.GetByID(ctx, 1)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), tenant.RentExpiry)

	second := f.verifiedPayment(t, "40000")
	rc2, err := f.svc.CreateFromPayment(ctx, second.ID)
	require.NoError(t, err)

	assert.Equal(t, rc.ID, rc2.ID)
	assert.Equal(t, models.ContextFullRent, rc2.PaymentContext)
	assert.True(t, rc2.FullyPaid)
	assert.True(t, rc2.RemainingBalance.IsZero())

	// Settling the cycle rolls the tenancy forward and records it
	tenant, _ = f.tenants.GetByID(ctx, 1)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), tenant.RentStart)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), tenant.RentExpiry)
	assert.Equal(t, 1, f.tenants.ledgerEvents(1, models.LedgerRentRenewed))
}

func TestCreateFromPaymentIsIdempotentPerPayment(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	payment := f.verifiedPayment(t, "100000")
	rc, err := f.svc.CreateFromPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.True(t, rc.FullyPaid)

	// A redelivered webhook resolves to the same receipt untouched
	again, err := f.svc.CreateFromPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, rc.ID, again.ID)
	assert.True(t, again.AmountPaid.Equal(money("100000")))
	assert.Equal(t, 1, f.tenants.ledgerEvents(1, models.LedgerRentRenewed))
}

func TestCreateFromPaymentRedeliveryAfterLaterPayments(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	first := f.verifiedPayment(t, "60000")
	rc, err := f.svc.CreateFromPayment(ctx, first.ID)
	require.NoError(t, err)

	second := f.verifiedPayment(t, "40000")
	_, err = f.svc.CreateFromPayment(ctx, second.ID)
	require.NoError(t, err)

	// The first payment redelivers after the second settled the cycle. It must
	// resolve to the receipt it was folded into, not open a fresh cycle.
	again, err := f.svc.CreateFromPayment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, rc.ID, again.ID)
	assert.True(t, again.AmountPaid.Equal(money("100000")))

	all, err := f.receipts.ListByTenant(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, f.tenants.ledgerEvents(1, models.LedgerRentRenewed))
}

func TestCreateFromPaymentRejectsUnverified(t *testing.T) {
	f := newReceiptFixture()
	p := &models.PaymentTransaction{
		Status:   models.PaymentStatusPending,
		TenantID: 1,
		Amount:   money("100000"),
	}
	require.NoError(t, f.payments.Create(context.Background(), p))

	_, err := f.svc.CreateFromPayment(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrPaymentNotVerified)

	_, err = f.svc.CreateFromPayment(context.Background(), 404)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestMarkProofAsPaidReconcilesLikeAPayment(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	proof := &models.RentPaymentProof{
		ID:         3,
		TenantID:   1,
		PropertyID: 5,
		Amount:     money("100000"),
		Status:     models.ProofStatusApproved,
	}
	rc, err := f.svc.MarkProofAsPaid(ctx, proof)
	require.NoError(t, err)

	assert.True(t, rc.FullyPaid)
	require.NotNil(t, rc.ProofID)
	assert.Equal(t, int64(3), *rc.ProofID)
	assert.Nil(t, rc.PaymentID)
}

func TestGeneratePDFClaimsAndUploads(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	payment := f.verifiedPayment(t, "100000")
	rc, err := f.svc.CreateFromPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"receipt-pdf"}, f.tasks.names)

	require.NoError(t, f.tasks.drain(ctx))

	stored, _ := f.receipts.GetByID(ctx, rc.ID)
	assert.Equal(t, models.PDFStatusReady, stored.PDFStatus)
	assert.Contains(t, stored.ReceiptPath, "receipts/"+rc.ReferenceNumber)
	assert.Equal(t, []string{rc.ReferenceNumber}, f.notifier.receiptsReady)

	// Ready receipts are not regenerated
	require.NoError(t, f.svc.GeneratePDF(ctx, rc.ID))
	assert.Equal(t, 1, f.renderer.calls)
}

func TestGeneratePDFRecordsFailure(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	payment := f.verifiedPayment(t, "100000")
	rc, err := f.svc.CreateFromPayment(ctx, payment.ID)
	require.NoError(t, err)

	f.renderer.err = errors.New("font missing")
	assert.Error(t, f.svc.GeneratePDF(ctx, rc.ID))

	stored, _ := f.receipts.GetByID(ctx, rc.ID)
	assert.Equal(t, models.PDFStatusFailed, stored.PDFStatus)

	// FAILED rows can be claimed again once the cause is fixed
	f.renderer.err = nil
	require.NoError(t, f.svc.GeneratePDF(ctx, rc.ID))
	stored, _ = f.receipts.GetByID(ctx, rc.ID)
	assert.Equal(t, models.PDFStatusReady, stored.PDFStatus)
}

func TestBarcodeReferenceIsDeterministicPerSecret(t *testing.T) {
	f := newReceiptFixture()

	a := f.svc.BarcodeReference(7, money("100000"))
	b := f.svc.BarcodeReference(7, money("100000"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, f.svc.BarcodeReference(8, money("100000")))

	other := NewRentReceiptService(
		f.receipts, f.tenants, f.payments, f.props,
		f.renderer, f.uploader, f.tasks, nil, "another-secret",
	)
	assert.NotEqual(t, a, other.BarcodeReference(7, money("100000")))
}

func TestReceiptAccessIsScopedToOwningTenant(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	payment := f.verifiedPayment(t, "100000")
	rc, err := f.svc.CreateFromPayment(ctx, payment.ID)
	require.NoError(t, err)

	// Owner reads it
	got, err := f.svc.Get(ctx, rc.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, rc.ID, got.ID)

	// Another tenancy does not
	f.tenants.put(activeTenant(2, 11))
	_, err = f.svc.Get(ctx, rc.ID, 11)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Download needs a finished document
	_, err = f.svc.DownloadURL(ctx, rc.ID, 10)
	assert.ErrorIs(t, err, ErrReceiptNotReady)

	require.NoError(t, f.tasks.drain(ctx))
	url, err := f.svc.DownloadURL(ctx, rc.ID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestVerifyResolvesReferenceAndBarcode(t *testing.T) {
	f := newReceiptFixture()
	ctx := context.Background()

	payment := f.verifiedPayment(t, "100000")
	rc, err := f.svc.CreateFromPayment(ctx, payment.ID)
	require.NoError(t, err)

	v, err := f.svc.Verify(ctx, rc.ReferenceNumber)
	require.NoError(t, err)
	assert.True(t, v.FullyPaid)

	v, err = f.svc.Verify(ctx, rc.BarcodeReference)
	require.NoError(t, err)
	assert.Equal(t, rc.ReferenceNumber, v.ReferenceNumber)

	_, err = f.svc.Verify(ctx, "HMT-NOPE")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}
