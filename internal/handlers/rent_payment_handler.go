package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"estate-backend/internal/middleware"
	"estate-backend/internal/models"
	"estate-backend/internal/services"
	"estate-backend/pkg/utils"
)

type RentPaymentHandler struct {
	Service *services.RentPaymentService
}

func NewRentPaymentHandler(service *services.RentPaymentService) *RentPaymentHandler {
	return &RentPaymentHandler{Service: service}
}

// CreateRentPayment opens a checkout for the tenant's next rent cycle
func (h *RentPaymentHandler) CreateRentPayment(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, h.Service.ProcessRentPayment)
}

// CreateBalancePayment opens a checkout for the remaining cycle balance
func (h *RentPaymentHandler) CreateBalancePayment(w http.ResponseWriter, r *http.Request) {
	h.createPayment(w, r, h.Service.ProcessCompleteRentPayment)
}

type paymentFlow func(ctx context.Context, userID int64, provider string) (*models.CreateRentPaymentResponse, error)

func (h *RentPaymentHandler) createPayment(w http.ResponseWriter, r *http.Request, flow paymentFlow) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	provider, err := decodeProvider(r)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := flow(r.Context(), userID, provider)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// Verify confirms a payment after the checkout redirect
func (h *RentPaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		reference = r.URL.Query().Get("tx_ref")
	}
	if reference == "" {
		utils.Error(w, http.StatusBadRequest, "reference parameter required")
		return
	}

	payment, err := h.Service.VerifyPayment(r.Context(), reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// List returns the caller's payment history
func (h *RentPaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	payments, err := h.Service.ListMine(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// Refund reverses a pending payment
func (h *RentPaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	paymentID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid payment ID")
		return
	}

	if err := h.Service.RefundPayment(r.Context(), paymentID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

func decodeProvider(r *http.Request) (string, error) {
	var req models.CreateRentPaymentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		if err := validate.Struct(&req); err != nil {
			return "", err
		}
	}
	return req.Provider, nil
}
