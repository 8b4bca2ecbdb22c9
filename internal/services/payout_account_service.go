package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"estate-backend/internal/fintech"
	"estate-backend/internal/models"
	"estate-backend/internal/repositories"
)

// RecipientGateway is the provider surface needed to onboard a payout
// account. Satisfied by the Paystack client.
type RecipientGateway interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*fintech.BankAccount, error)
	CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
}

// PayoutAccountService onboards a landlord for automatic payouts: the bank
// account is resolved against the provider, registered as a transfer
// recipient, and stored on the profile as verified.
type PayoutAccountService struct {
	Users    UserStore
	Profiles ProfileStore
	Bank     RecipientGateway
}

func NewPayoutAccountService(users UserStore, profiles ProfileStore, bank RecipientGateway) *PayoutAccountService {
	return &PayoutAccountService{Users: users, Profiles: profiles, Bank: bank}
}

// Setup resolves and registers the landlord's bank account
func (s *PayoutAccountService) Setup(ctx context.Context, userID int64, req *models.SetupPayoutAccountRequest) (*models.Profile, error) {
	user, err := s.Users.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleLandlord && user.Role != models.RoleManager {
		return nil, ErrNotAuthorized
	}
	if s.Bank == nil {
		return nil, errors.New("payout provider not configured")
	}

	account, err := s.Bank.ResolveAccount(ctx, req.AccountNumber, req.BankCode)
	if err != nil {
		return nil, fmt.Errorf("account resolution failed: %w", err)
	}
	accountName := account.AccountName

	recipientCode, err := s.Bank.CreateTransferRecipient(ctx, accountName, req.AccountNumber, req.BankCode)
	if err != nil {
		return nil, fmt.Errorf("recipient registration failed: %w", err)
	}

	if err := s.Profiles.SavePayoutAccount(ctx, userID, req.BankCode, req.AccountNumber, accountName, recipientCode); err != nil {
		return nil, err
	}

	log.Printf("[Payout] Account verified for user %d (%s)", userID, accountName)
	return s.Profiles.GetByUserID(ctx, userID)
}

// Get returns the caller's payout profile
func (s *PayoutAccountService) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.Profiles.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.Profile{UserID: userID}, nil
	}
	return profile, err
}
