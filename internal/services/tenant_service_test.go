package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-backend/internal/models"
)

// writableProperties adds occupancy updates on top of the property fake
type writableProperties struct {
	*fakeProperties
}

func (f *writableProperties) SetOccupied(ctx context.Context, id int64, occupied bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.IsOccupied = occupied
	}
	return nil
}

type tenantFixture struct {
	svc     *TenantService
	tenants *fakeTenants
	props   *writableProperties
	users   *fakeUsers
}

func newTenantFixture() *tenantFixture {
	f := &tenantFixture{
		tenants: newFakeTenants(),
		props:   &writableProperties{newFakeProperties()},
		users:   newFakeUsers(),
	}
	f.props.put(landlordProperty())
	f.users.put(&models.User{ID: 10, Name: "Ada Obi", Email: "ada@example.com", Phone: "+2348010000001", Role: models.RoleTenant, IsActive: true})
	f.svc = NewTenantService(f.tenants, f.props, f.users)
	return f
}

func createReq() *models.CreateTenantRequest {
	return &models.CreateTenantRequest{
		UserEmail:  "ada@example.com",
		PropertyID: 5,
		FullName:   "Ada Obi",
		Phone:      "+2348010000001",
		RentAmount: "100000",
		RentCycle:  "YEARLY",
		RentStart:  "2025-01-01",
	}
}

func TestCreateTenantAssignsPropertyAndLedger(t *testing.T) {
	f := newTenantFixture()

	tenant, err := f.svc.Create(context.Background(), 99, createReq())
	require.NoError(t, err)

	assert.Equal(t, int64(10), tenant.UserID)
	require.NotNil(t, tenant.PropertyID)
	assert.Equal(t, int64(5), *tenant.PropertyID)
	assert.True(t, tenant.RentAmount.Equal(money("100000")))
	assert.True(t, tenant.IsActive)

	// A yearly cycle runs start + 12 months
	assert.Equal(t, tenant.RentStart.AddDate(0, 12, 0), tenant.RentExpiry)
	assert.Equal(t, 2025, tenant.RentStart.Year())
	assert.Equal(t, time.January, tenant.RentStart.Month())

	prop, _ := f.props.GetByID(context.Background(), 5)
	assert.True(t, prop.IsOccupied)
	assert.Equal(t, 1, f.tenants.ledgerEvents(tenant.ID, models.LedgerRentCreated))
}

func TestCreateTenantOnlyByOwningLandlord(t *testing.T) {
	f := newTenantFixture()

	_, err := f.svc.Create(context.Background(), 42, createReq())
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCreateTenantRejectsOccupiedProperty(t *testing.T) {
	f := newTenantFixture()
	prop := landlordProperty()
	prop.IsOccupied = true
	f.props.put(prop)

	_, err := f.svc.Create(context.Background(), 99, createReq())
	assert.Error(t, err)
}

func TestCreateTenantRejectsSecondTenancy(t *testing.T) {
	f := newTenantFixture()

	_, err := f.svc.Create(context.Background(), 99, createReq())
	require.NoError(t, err)

	// Free the property again; the user constraint still blocks
	f.props.SetOccupied(context.Background(), 5, false)
	_, err = f.svc.Create(context.Background(), 99, createReq())
	assert.Error(t, err)
}

func TestCreateTenantRejectsUnregisteredEmail(t *testing.T) {
	f := newTenantFixture()
	req := createReq()
	req.UserEmail = "nobody@example.com"

	_, err := f.svc.Create(context.Background(), 99, req)
	assert.Error(t, err)
}

func TestCreateTenantValidatesTerms(t *testing.T) {
	f := newTenantFixture()

	req := createReq()
	req.RentAmount = "not-a-number"
	_, err := f.svc.Create(context.Background(), 99, req)
	assert.Error(t, err)

	req = createReq()
	req.RentAmount = "-5"
	_, err = f.svc.Create(context.Background(), 99, req)
	assert.Error(t, err)

	req = createReq()
	req.RentStart = "01/01/2025"
	_, err = f.svc.Create(context.Background(), 99, req)
	assert.Error(t, err)
}

func TestMyTenancyAndLedger(t *testing.T) {
	f := newTenantFixture()

	_, err := f.svc.MyTenancy(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotTenant)

	created, err := f.svc.Create(context.Background(), 99, createReq())
	require.NoError(t, err)

	tenant, err := f.svc.MyTenancy(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, created.ID, tenant.ID)

	entries, err := f.svc.Ledger(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerRentCreated, entries[0].Event)
}
