package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"estate-backend/internal/services"
	"estate-backend/pkg/utils"
)

var validate = validator.New()

// writeServiceError maps domain errors to HTTP status codes
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotTenant),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrReceiptNotFound),
		errors.Is(err, services.ErrProofNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrPaymentInProgress),
		errors.Is(err, services.ErrProofAlreadyHandled),
		errors.Is(err, services.ErrAlreadyVerified):
		status = http.StatusConflict
	case errors.Is(err, services.ErrOutstandingBalance),
		errors.Is(err, services.ErrNoOutstanding),
		errors.Is(err, services.ErrRefundNotAllowed),
		errors.Is(err, services.ErrPaymentNotVerified),
		errors.Is(err, services.ErrReceiptNotReady),
		errors.Is(err, services.ErrLandlordNotPayable),
		errors.Is(err, services.ErrProofDuplicate),
		errors.Is(err, services.ErrProofBelowMinimum),
		errors.Is(err, services.ErrProofExceedsBalance),
		errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrProofDailyQuota),
		errors.Is(err, services.ErrProofPendingLimit):
		status = http.StatusTooManyRequests
	}
	utils.Error(w, status, err.Error())
}
