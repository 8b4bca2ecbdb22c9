package services

import (
	"context"

	"estate-backend/internal/models"
)

// Storage interfaces consumed by the services. The pgx repositories satisfy
// them; tests substitute mocks.

type PaymentStore interface {
	Create(ctx context.Context, p *models.PaymentTransaction) error
	GetByID(ctx context.Context, id int64) (*models.PaymentTransaction, error)
	GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	SetReference(ctx context.Context, id int64, reference string) error
	SetCheckoutURL(ctx context.Context, id int64, checkoutURL string) error
	MarkVerified(ctx context.Context, id int64, channel string) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) error
	MarkRefunded(ctx context.Context, id int64) error
	ListByTenant(ctx context.Context, tenantID int64) ([]*models.PaymentTransaction, error)
}

type ReceiptStore interface {
	Create(ctx context.Context, rc *models.RentReceipt) error
	SetBarcode(ctx context.Context, id int64, barcode string) error
	GetByID(ctx context.Context, id int64) (*models.RentReceipt, error)
	GetByReference(ctx context.Context, reference string) (*models.RentReceipt, error)
	GetOpenByTenant(ctx context.Context, tenantID int64) (*models.RentReceipt, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*models.RentReceipt, error)
	ReconcileAndRenew(ctx context.Context, rc *models.RentReceipt, paymentID *int64, renewed *models.Tenant, ledger *models.RentLedger) error
	ClaimPDFGeneration(ctx context.Context, receiptID int64) (bool, error)
	FinishPDFGeneration(ctx context.Context, receiptID int64, ready bool, path string) error
	Verify(ctx context.Context, reference string) (*models.ReceiptVerification, error)
}

type TenantStore interface {
	Create(ctx context.Context, t *models.Tenant) error
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
	SetActive(ctx context.Context, id int64, active bool) error
	ListExpiringWithin(ctx context.Context, days int) ([]*models.Tenant, error)
	ListExpired(ctx context.Context) ([]*models.Tenant, error)
	AppendLedger(ctx context.Context, l *models.RentLedger) error
	HasLedgerEventSince(ctx context.Context, tenantID int64, event models.LedgerEvent, days int) (bool, error)
	ListLedger(ctx context.Context, tenantID int64) ([]*models.RentLedger, error)
}

type PropertyStore interface {
	GetByID(ctx context.Context, id int64) (*models.Property, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	SavePayoutAccount(ctx context.Context, userID int64, bankCode, accountNumber, accountName, recipientCode string) error
}

type PayoutStore interface {
	GetByPaymentID(ctx context.Context, paymentID int64) (*models.LandlordPayout, error)
	Create(ctx context.Context, p *models.LandlordPayout) error
	MarkProcessing(ctx context.Context, id int64) (bool, error)
	MarkCompleted(ctx context.Context, id int64, transferReference string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ListByLandlord(ctx context.Context, landlordID int64) ([]*models.LandlordPayout, error)
}

type ProofStore interface {
	Create(ctx context.Context, p *models.RentPaymentProof) error
	GetByID(ctx context.Context, id int64) (*models.RentPaymentProof, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*models.RentPaymentProof, error)
	ListByLandlord(ctx context.Context, landlordID int64) ([]*models.RentPaymentProof, error)
	CountToday(ctx context.Context, tenantID int64) (int, error)
	CountPendingForProperty(ctx context.Context, tenantID, propertyID int64) (int, error)
	ExistsByHash(ctx context.Context, tenantID int64, fileHash string) (bool, error)
	MarkApproved(ctx context.Context, id, reviewerID int64) (bool, error)
	MarkRejected(ctx context.Context, id, reviewerID int64, reason string) (bool, error)
	Delete(ctx context.Context, id, tenantID int64) (bool, error)
}

type UserStore interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// Notifier sends tenant/landlord notifications. Implementations fan out to
// SMS and email; failures are logged, never propagated into payment flows.
type Notifier interface {
	PaymentReceived(p *models.PaymentTransaction)
	PaymentFailed(p *models.PaymentTransaction, reason string)
	ReceiptReady(rc *models.RentReceipt, tenantPhone, tenantEmail string)
	PayoutCompleted(payout *models.LandlordPayout, landlordPhone, landlordEmail string)
	RentReminder(t *models.Tenant, daysLeft int)
	RentExpired(t *models.Tenant)
}

// TaskQueue runs named jobs in the background with bounded retries
type TaskQueue interface {
	Enqueue(name string, fn func(ctx context.Context) error)
}
