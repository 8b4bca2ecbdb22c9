package fintech

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// Provider names stored on transactions and payouts
const (
	ProviderPaystack    = "paystack"
	ProviderFlutterwave = "flutterwave"
)

// InitializeRequest starts a hosted checkout session
type InitializeRequest struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
	Title       string
	Description string
}

// InitializeResult carries the checkout handoff back to the client
type InitializeResult struct {
	CheckoutURL string
	Reference   string
}

// VerificationResult is the normalized server-side verification outcome.
// Success is true only when the provider reports a settled charge.
type VerificationResult struct {
	Success   bool
	Reference string
	Amount    decimal.Decimal
	Currency  string
	PaidAt    string
	Channel   string
}

// TransferRequest moves settled funds to a landlord account
type TransferRequest struct {
	Amount        decimal.Decimal
	Reference     string
	Reason        string
	RecipientCode string // paystack recipient
	AccountNumber string // flutterwave direct account
	BankCode      string
}

// TransferResult is the provider acknowledgement of a payout
type TransferResult struct {
	Provider  string
	Reference string
	Status    string
}

// BankAccount is a resolved NUBAN account
type BankAccount struct {
	AccountNumber string
	AccountName   string
	BankCode      string
}

// Gateway is the provider-neutral payment surface the services depend on
type Gateway interface {
	Name() string
	InitializePayment(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	VerifyPayment(ctx context.Context, reference string) (*VerificationResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Refund(ctx context.Context, reference string) error
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*BankAccount, error)
}

// ProviderError is a rejected or failed provider call
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (http %d)", e.Provider, e.Message, e.StatusCode)
}

func randomHex(n int) string {
	b := make([]byte, (n+1)/2)
	rand.Read(b)
	return hex.EncodeToString(b)[:n]
}

// NewPaymentReference builds the transaction reference persisted before the
// provider call, so webhooks can be matched back to the payment row.
func NewPaymentReference(paymentID int64) string {
	return fmt.Sprintf("PMT-%d-%s", paymentID, randomHex(12))
}

// NewFlutterwaveReference builds a tx_ref for Flutterwave checkouts
func NewFlutterwaveReference() string {
	return fmt.Sprintf("FLW-%s", randomHex(12))
}

// NewPayoutReference builds a transfer reference for landlord payouts
func NewPayoutReference(paymentID int64) string {
	return fmt.Sprintf("PAYOUT-%d-%s", paymentID, randomHex(8))
}
