package services

import "errors"

// Domain errors surfaced to the HTTP layer. Handlers map them to status codes.
var (
	ErrNotTenant           = errors.New("no tenancy found for user")
	ErrTenantInactive      = errors.New("tenancy is not active")
	ErrOutstandingBalance  = errors.New("outstanding balance must be cleared before the next rent cycle")
	ErrNoOutstanding       = errors.New("no outstanding balance to pay")
	ErrPaymentInProgress   = errors.New("a payment for this rent cycle is already in progress")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrReceiptNotReady     = errors.New("receipt document is not ready yet")
	ErrAlreadyVerified     = errors.New("payment already verified")
	ErrPaymentNotVerified  = errors.New("payment is not verified")
	ErrRefundNotAllowed    = errors.New("only pending payments can be refunded")
	ErrLandlordNotPayable  = errors.New("landlord has no verified payout account")
	ErrPayoutNotVerified   = errors.New("payment must be verified before payout")
	ErrProofNotFound       = errors.New("payment proof not found")
	ErrProofAlreadyHandled = errors.New("payment proof already reviewed")
	ErrProofDuplicate      = errors.New("this file was already submitted")
	ErrProofDailyQuota     = errors.New("daily proof upload limit reached")
	ErrProofPendingLimit   = errors.New("too many pending proofs for this property")
	ErrProofBelowMinimum   = errors.New("first payment must cover more than half of the rent")
	ErrProofExceedsBalance = errors.New("proof amount exceeds what is owed for the cycle")
	ErrNotAuthorized       = errors.New("not authorized for this resource")
)
