package handlers

import (
	"encoding/json"
	"net/http"

	"estate-backend/internal/middleware"
	"estate-backend/internal/models"
	"estate-backend/internal/services"
	"estate-backend/pkg/utils"
)

type PayoutHandler struct {
	Accounts *services.PayoutAccountService
	Payouts  *services.AutoPayoutService
}

func NewPayoutHandler(accounts *services.PayoutAccountService, payouts *services.AutoPayoutService) *PayoutHandler {
	return &PayoutHandler{Accounts: accounts, Payouts: payouts}
}

// SetupAccount resolves and stores the landlord's bank account for payouts
func (h *PayoutHandler) SetupAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req models.SetupPayoutAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.Accounts.Setup(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, profile)
}

// GetAccount returns the caller's payout profile
func (h *PayoutHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	profile, err := h.Accounts.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, profile)
}

// List returns the landlord's payout history
func (h *PayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	payouts, err := h.Payouts.ListForLandlord(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payouts)
}
