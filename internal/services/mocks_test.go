package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"estate-backend/internal/breaker"
	"estate-backend/internal/fintech"
	"estate-backend/internal/idempotency"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// Hand-rolled in-memory fakes for the storage interfaces. Rows live in maps
// keyed by ID; getters hand out copies so tests cannot mutate stored state by
// accident.

// ---- locker / guard ----

type testLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newTestLocker() *testLocker {
	return &testLocker{held: make(map[string]bool)}
}

func (m *testLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *testLocker) ReleaseLock(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

func newTestGuard() *idempotency.Guard {
	return idempotency.NewWithLocker(newTestLocker(), breaker.NewDefault("test"))
}

// ---- payments ----

type fakePayments struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.PaymentTransaction

	// when set, MarkVerified reports a lost race without touching the row
	loseVerifyRace bool
}

func newFakePayments() *fakePayments {
	return &fakePayments{rows: make(map[int64]*models.PaymentTransaction)}
}

func (f *fakePayments) Create(ctx context.Context, p *models.PaymentTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePayments) GetByID(ctx context.Context, id int64) (*models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePayments) SetReference(ctx context.Context, id int64, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.Reference = reference
	}
	return nil
}

func (f *fakePayments) SetCheckoutURL(ctx context.Context, id int64, checkoutURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.CheckoutURL = checkoutURL
	}
	return nil
}

func (f *fakePayments) MarkVerified(ctx context.Context, id int64, channel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loseVerifyRace {
		return false, nil
	}
	p, ok := f.rows[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if p.Status == models.PaymentStatusVerified {
		return false, nil
	}
	now := time.Now()
	p.Status = models.PaymentStatusVerified
	p.Channel = channel
	p.VerifiedAt = &now
	return true, nil
}

func (f *fakePayments) MarkFailed(ctx context.Context, id int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.Status = models.PaymentStatusFailed
		p.FailureReason = reason
	}
	return nil
}

func (f *fakePayments) MarkRefunded(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.Status = models.PaymentStatusRefunded
	}
	return nil
}

func (f *fakePayments) ListByTenant(ctx context.Context, tenantID int64) ([]*models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PaymentTransaction
	for _, p := range f.rows {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- receipts ----

type fakeReceipts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.RentReceipt

	// applied by ReconcileAndRenew when set
	tenants  *fakeTenants
	payments *fakePayments
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{rows: make(map[int64]*models.RentReceipt)}
}

func (f *fakeReceipts) Create(ctx context.Context, rc *models.RentReceipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rc.ID = f.nextID
	rc.CreatedAt = time.Now()
	cp := *rc
	f.rows[rc.ID] = &cp
	return nil
}

func (f *fakeReceipts) SetBarcode(ctx context.Context, id int64, barcode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rc, ok := f.rows[id]; ok {
		rc.BarcodeReference = barcode
	}
	return nil
}

func (f *fakeReceipts) GetByID(ctx context.Context, id int64) (*models.RentReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rc
	return &cp, nil
}

func (f *fakeReceipts) GetByReference(ctx context.Context, reference string) (*models.RentReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rc := range f.rows {
		if rc.ReferenceNumber == reference {
			cp := *rc
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeReceipts) GetOpenByTenant(ctx context.Context, tenantID int64) (*models.RentReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rc := range f.rows {
		if rc.TenantID == tenantID && !rc.FullyPaid {
			cp := *rc
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeReceipts) ListByTenant(ctx context.Context, tenantID int64) ([]*models.RentReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RentReceipt
	for _, rc := range f.rows {
		if rc.TenantID == tenantID {
			cp := *rc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReceipts) ReconcileAndRenew(ctx context.Context, rc *models.RentReceipt, paymentID *int64, renewed *models.Tenant, ledger *models.RentLedger) error {
	f.mu.Lock()
	cp := *rc
	f.rows[rc.ID] = &cp
	f.mu.Unlock()
	if paymentID != nil && f.payments != nil {
		f.payments.mu.Lock()
		if p, ok := f.payments.rows[*paymentID]; ok {
			receiptID := rc.ID
			p.ReceiptID = &receiptID
		}
		f.payments.mu.Unlock()
	}
	if f.tenants != nil {
		if renewed != nil {
			if err := f.tenants.Update(ctx, renewed); err != nil {
				return err
			}
		}
		if ledger != nil {
			if err := f.tenants.AppendLedger(ctx, ledger); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fakeReceipts) ClaimPDFGeneration(ctx context.Context, receiptID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.rows[receiptID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if rc.PDFStatus != models.PDFStatusPending && rc.PDFStatus != models.PDFStatusFailed {
		return false, nil
	}
	rc.PDFStatus = models.PDFStatusGenerating
	return true, nil
}

func (f *fakeReceipts) FinishPDFGeneration(ctx context.Context, receiptID int64, ready bool, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.rows[receiptID]
	if !ok {
		return repositories.ErrNotFound
	}
	if ready {
		rc.PDFStatus = models.PDFStatusReady
		rc.ReceiptPath = path
	} else {
		rc.PDFStatus = models.PDFStatusFailed
	}
	return nil
}

func (f *fakeReceipts) Verify(ctx context.Context, reference string) (*models.ReceiptVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rc := range f.rows {
		if rc.ReferenceNumber == reference || rc.BarcodeReference == reference {
			return &models.ReceiptVerification{
				ReferenceNumber: rc.ReferenceNumber,
				RentAmount:      rc.RentAmount,
				AmountPaid:      rc.AmountPaid,
				FullyPaid:       rc.FullyPaid,
				PaymentContext:  rc.PaymentContext,
				CycleStart:      rc.CycleStart,
				CycleEnd:        rc.CycleEnd,
			}, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// ---- tenants ----

type fakeTenants struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Tenant
	ledger []*models.RentLedger
}

func newFakeTenants() *fakeTenants {
	return &fakeTenants{rows: make(map[int64]*models.Tenant)}
}

func (f *fakeTenants) put(t *models.Tenant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.rows[t.ID] = &cp
}

func (f *fakeTenants) Create(ctx context.Context, t *models.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTenants) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenants) GetByUserID(ctx context.Context, userID int64) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeTenants) Update(ctx context.Context, t *models.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTenants) SetActive(ctx context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.rows[id]; ok {
		t.IsActive = active
	}
	return nil
}

func (f *fakeTenants) ListExpiringWithin(ctx context.Context, days int) ([]*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	cutoff := now.AddDate(0, 0, days)
	var out []*models.Tenant
	for _, t := range f.rows {
		if t.IsActive && t.RentExpiry.After(now) && !t.RentExpiry.After(cutoff) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTenants) ListExpired(ctx context.Context) ([]*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tenant
	for _, t := range f.rows {
		if t.RentExpiry.Before(time.Now()) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTenants) AppendLedger(ctx context.Context, l *models.RentLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	cp := *l
	f.ledger = append(f.ledger, &cp)
	return nil
}

func (f *fakeTenants) HasLedgerEventSince(ctx context.Context, tenantID int64, event models.LedgerEvent, days int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	since := time.Now().AddDate(0, 0, -days)
	for _, l := range f.ledger {
		if l.TenantID == tenantID && l.Event == event && l.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTenants) ListLedger(ctx context.Context, tenantID int64) ([]*models.RentLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RentLedger
	for _, l := range f.ledger {
		if l.TenantID == tenantID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTenants) ledgerEvents(tenantID int64, event models.LedgerEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.ledger {
		if l.TenantID == tenantID && l.Event == event {
			n++
		}
	}
	return n
}

// ---- properties ----

type fakeProperties struct {
	mu   sync.Mutex
	rows map[int64]*models.Property
}

func newFakeProperties() *fakeProperties {
	return &fakeProperties{rows: make(map[int64]*models.Property)}
}

func (f *fakeProperties) put(p *models.Property) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.rows[p.ID] = &cp
}

func (f *fakeProperties) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- profiles ----

type fakeProfiles struct {
	mu   sync.Mutex
	rows map[int64]*models.Profile // keyed by user ID
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: make(map[int64]*models.Profile)}
}

func (f *fakeProfiles) put(p *models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.rows[p.UserID] = &cp
}

func (f *fakeProfiles) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) SavePayoutAccount(ctx context.Context, userID int64, bankCode, accountNumber, accountName, recipientCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[userID] = &models.Profile{
		UserID:                userID,
		BankCode:              bankCode,
		AccountNumber:         accountNumber,
		AccountName:           accountName,
		PaystackRecipientCode: recipientCode,
		PayoutVerified:        true,
	}
	return nil
}

// ---- payouts ----

type fakePayouts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.LandlordPayout
}

func newFakePayouts() *fakePayouts {
	return &fakePayouts{rows: make(map[int64]*models.LandlordPayout)}
}

func (f *fakePayouts) put(p *models.LandlordPayout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID > f.nextID {
		f.nextID = p.ID
	}
	cp := *p
	f.rows[p.ID] = &cp
}

func (f *fakePayouts) GetByPaymentID(ctx context.Context, paymentID int64) (*models.LandlordPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.PaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePayouts) Create(ctx context.Context, p *models.LandlordPayout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePayouts) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if p.Status != models.PayoutStatusPending && p.Status != models.PayoutStatusFailed {
		return false, nil
	}
	p.Status = models.PayoutStatusProcessing
	return true, nil
}

func (f *fakePayouts) MarkCompleted(ctx context.Context, id int64, transferReference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		now := time.Now()
		p.Status = models.PayoutStatusCompleted
		p.TransferReference = transferReference
		p.CompletedAt = &now
	}
	return nil
}

func (f *fakePayouts) MarkFailed(ctx context.Context, id int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.Status = models.PayoutStatusFailed
		p.FailureReason = reason
	}
	return nil
}

func (f *fakePayouts) ListByLandlord(ctx context.Context, landlordID int64) ([]*models.LandlordPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LandlordPayout
	for _, p := range f.rows {
		if p.LandlordID == landlordID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- proofs ----

type fakeProofs struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.RentPaymentProof
}

func newFakeProofs() *fakeProofs {
	return &fakeProofs{rows: make(map[int64]*models.RentPaymentProof)}
}

func (f *fakeProofs) Create(ctx context.Context, p *models.RentPaymentProof) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProofs) GetByID(ctx context.Context, id int64) (*models.RentPaymentProof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProofs) ListByTenant(ctx context.Context, tenantID int64) ([]*models.RentPaymentProof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RentPaymentProof
	for _, p := range f.rows {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProofs) ListByLandlord(ctx context.Context, landlordID int64) ([]*models.RentPaymentProof, error) {
	return nil, nil
}

func (f *fakeProofs) CountToday(ctx context.Context, tenantID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	y, m, d := time.Now().Date()
	n := 0
	for _, p := range f.rows {
		py, pm, pd := p.CreatedAt.Date()
		if p.TenantID == tenantID && py == y && pm == m && pd == d {
			n++
		}
	}
	return n, nil
}

func (f *fakeProofs) CountPendingForProperty(ctx context.Context, tenantID, propertyID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.rows {
		if p.TenantID == tenantID && p.PropertyID == propertyID && p.Status == models.ProofStatusPending {
			n++
		}
	}
	return n, nil
}

func (f *fakeProofs) ExistsByHash(ctx context.Context, tenantID int64, fileHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.TenantID == tenantID && p.FileHash == fileHash {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProofs) MarkApproved(ctx context.Context, id, reviewerID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.ProofStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = models.ProofStatusApproved
	p.ReviewedBy = &reviewerID
	p.ReviewedAt = &now
	return true, nil
}

func (f *fakeProofs) MarkRejected(ctx context.Context, id, reviewerID int64, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.ProofStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = models.ProofStatusRejected
	p.RejectionReason = reason
	p.ReviewedBy = &reviewerID
	p.ReviewedAt = &now
	return true, nil
}

func (f *fakeProofs) Delete(ctx context.Context, id, tenantID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.TenantID != tenantID || p.Status != models.ProofStatusPending {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

// ---- users ----

type fakeUsers struct {
	mu   sync.Mutex
	rows map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[int64]*models.User)}
}

func (f *fakeUsers) put(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.rows[u.ID] = &cp
}

func (f *fakeUsers) Get(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = int64(len(f.rows) + 1)
	cp := *u
	f.rows[u.ID] = &cp
	return nil
}

// ---- notifier ----

type recordingNotifier struct {
	mu            sync.Mutex
	received      []int64 // payment IDs
	failed        []int64
	receiptsReady []string // reference numbers
	payouts       []int64  // payout IDs
	reminders     []int    // days left
	expired       []int64  // tenant IDs
}

func (n *recordingNotifier) PaymentReceived(p *models.PaymentTransaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, p.ID)
}

func (n *recordingNotifier) PaymentFailed(p *models.PaymentTransaction, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, p.ID)
}

func (n *recordingNotifier) ReceiptReady(rc *models.RentReceipt, tenantPhone, tenantEmail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receiptsReady = append(n.receiptsReady, rc.ReferenceNumber)
}

func (n *recordingNotifier) PayoutCompleted(payout *models.LandlordPayout, landlordPhone, landlordEmail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payouts = append(n.payouts, payout.ID)
}

func (n *recordingNotifier) RentReminder(t *models.Tenant, daysLeft int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, daysLeft)
}

func (n *recordingNotifier) RentExpired(t *models.Tenant) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, t.ID)
}

// ---- task queue ----

// recordTasks captures enqueued jobs without running them. Tests drain the
// queue explicitly when the background work matters.
type recordTasks struct {
	mu    sync.Mutex
	names []string
	fns   []func(ctx context.Context) error
}

func (q *recordTasks) Enqueue(name string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.names = append(q.names, name)
	q.fns = append(q.fns, fn)
}

func (q *recordTasks) drain(ctx context.Context) error {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ---- gateway ----

type fakeGateway struct {
	name        string
	initErr     error
	verifyRes   *fintech.VerificationResult
	verifyErr   error
	transferRes *fintech.TransferResult
	transferErr error
	refundErr   error

	mu            sync.Mutex
	initCalls     int
	verifyCalls   int
	transferCalls int
	refundCalls   int
}

func (g *fakeGateway) Name() string {
	if g.name == "" {
		return fintech.ProviderPaystack
	}
	return g.name
}

func (g *fakeGateway) InitializePayment(ctx context.Context, req fintech.InitializeRequest) (*fintech.InitializeResult, error) {
	g.mu.Lock()
	g.initCalls++
	g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &fintech.InitializeResult{
		CheckoutURL: "https://checkout.test/" + req.Reference,
		Reference:   req.Reference,
	}, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, reference string) (*fintech.VerificationResult, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyRes != nil {
		return g.verifyRes, nil
	}
	return &fintech.VerificationResult{Success: true, Reference: reference, Channel: "card"}, nil
}

func (g *fakeGateway) Transfer(ctx context.Context, req fintech.TransferRequest) (*fintech.TransferResult, error) {
	g.mu.Lock()
	g.transferCalls++
	g.mu.Unlock()
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	if g.transferRes != nil {
		return g.transferRes, nil
	}
	return &fintech.TransferResult{Provider: g.Name(), Reference: "TRF-" + req.Reference, Status: "success"}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, reference string) error {
	g.mu.Lock()
	g.refundCalls++
	g.mu.Unlock()
	return g.refundErr
}

func (g *fakeGateway) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*fintech.BankAccount, error) {
	return &fintech.BankAccount{
		AccountNumber: accountNumber,
		AccountName:   "Test Account",
		BankCode:      bankCode,
	}, nil
}

// ---- misc collaborators ----

type fakePayoutProcessor struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakePayoutProcessor) ProcessPayout(ctx context.Context, paymentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, paymentID)
	return f.err
}

type fakeReceiptCreator struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (f *fakeReceiptCreator) CreateFromPayment(ctx context.Context, paymentID int64) (*models.RentReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, paymentID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.RentReceipt{ID: paymentID}, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(rc *models.RentReceipt, tenant *models.Tenant, propertyAddress string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/" + rc.ReferenceNumber + ".pdf", nil
}

type fakeUploader struct {
	err error
}

func (f *fakeUploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://files.test/" + key, nil
}

type fakeFiles struct {
	err error
}

func (f *fakeFiles) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://files.test/" + key, nil
}

// ---- fixture helpers ----

func money(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// activeTenant builds a yearly tenancy on property 5 with 100k rent,
// currently inside its cycle.
func activeTenant(id, userID int64) *models.Tenant {
	propertyID := int64(5)
	return &models.Tenant{
		ID:         id,
		UserID:     userID,
		PropertyID: &propertyID,
		FullName:   "Ada Obi",
		Email:      "ada@example.com",
		Phone:      "+2348010000001",
		RentAmount: money("100000"),
		RentCycle:  models.CycleYearly,
		RentStart:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RentExpiry: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}
}

func landlordProperty() *models.Property {
	return &models.Property{
		ID:         5,
		LandlordID: 99,
		Title:      "2-bed flat",
		Address:    "12 Marina Rd",
		City:       "Lagos",
		State:      "Lagos",
		RentAmount: money("100000"),
		RentCycle:  models.CycleYearly,
	}
}
