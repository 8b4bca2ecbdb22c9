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

type recipientGatewaySpy struct {
	resolveErr error
	createErr  error
	created    int
}

func (g *recipientGatewaySpy) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*fintech.BankAccount, error) {
	if g.resolveErr != nil {
		return nil, g.resolveErr
	}
	return &fintech.BankAccount{AccountNumber: accountNumber, AccountName: "BELLO MUSA", BankCode: bankCode}, nil
}

func (g *recipientGatewaySpy) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	g.created++
	if g.createErr != nil {
		return "", g.createErr
	}
	return "RCP_xyz789", nil
}

func newAccountService(bank RecipientGateway) (*PayoutAccountService, *fakeUsers, *fakeProfiles) {
	users := newFakeUsers()
	profiles := newFakeProfiles()
	users.put(&models.User{ID: 99, Name: "Mr Bello", Email: "bello@example.com", Role: models.RoleLandlord})
	users.put(&models.User{ID: 10, Name: "Ada Obi", Email: "ada@example.com", Role: models.RoleTenant})
	return NewPayoutAccountService(users, profiles, bank), users, profiles
}

func TestSetupPayoutAccountResolvesAndStores(t *testing.T) {
	bank := &recipientGatewaySpy{}
	svc, _, profiles := newAccountService(bank)

	profile, err := svc.Setup(context.Background(), 99, &models.SetupPayoutAccountRequest{
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	require.NoError(t, err)

	assert.Equal(t, "BELLO MUSA", profile.AccountName)
	assert.Equal(t, "RCP_xyz789", profile.PaystackRecipientCode)
	assert.True(t, profile.PayoutVerified)

	stored, err := profiles.GetByUserID(context.Background(), 99)
	require.NoError(t, err)
	assert.True(t, stored.PayoutVerified)
}

func TestSetupPayoutAccountLandlordsOnly(t *testing.T) {
	svc, _, _ := newAccountService(&recipientGatewaySpy{})

	_, err := svc.Setup(context.Background(), 10, &models.SetupPayoutAccountRequest{
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.Setup(context.Background(), 404, &models.SetupPayoutAccountRequest{
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestSetupPayoutAccountRequiresProvider(t *testing.T) {
	svc, _, _ := newAccountService(nil)

	_, err := svc.Setup(context.Background(), 99, &models.SetupPayoutAccountRequest{
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	assert.Error(t, err)
}

func TestSetupPayoutAccountStopsOnResolutionFailure(t *testing.T) {
	bank := &recipientGatewaySpy{resolveErr: errors.New("could not resolve account")}
	svc, _, profiles := newAccountService(bank)

	_, err := svc.Setup(context.Background(), 99, &models.SetupPayoutAccountRequest{
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	require.Error(t, err)
	assert.Zero(t, bank.created)

	_, err = profiles.GetByUserID(context.Background(), 99)
	assert.Error(t, err)
}

func TestGetPayoutAccountDefaultsToEmptyProfile(t *testing.T) {
	svc, _, profiles := newAccountService(&recipientGatewaySpy{})

	profile, err := svc.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, profile.PayoutVerified)
	assert.Equal(t, int64(99), profile.UserID)

	profiles.put(&models.Profile{UserID: 99, PayoutVerified: true})
	profile, err = svc.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.True(t, profile.PayoutVerified)
}
