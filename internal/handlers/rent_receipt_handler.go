package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"estate-backend/internal/middleware"
	"estate-backend/internal/services"
	"estate-backend/pkg/utils"
)

type RentReceiptHandler struct {
	Service *services.RentReceiptService
}

func NewRentReceiptHandler(service *services.RentReceiptService) *RentReceiptHandler {
	return &RentReceiptHandler{Service: service}
}

// List returns the caller's receipts, newest first
func (h *RentReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	receipts, err := h.Service.ListMine(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipts)
}

// Get returns a single receipt owned by the caller
func (h *RentReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	receiptID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid receipt ID")
		return
	}

	receipt, err := h.Service.Get(r.Context(), receiptID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipt)
}

// Download redirects to the stored PDF once generation has finished
func (h *RentReceiptHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	receiptID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid receipt ID")
		return
	}

	url, err := h.Service.DownloadURL(r.Context(), receiptID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Verify resolves a scanned barcode reference. Public: the QR code on a
// printed receipt must be checkable without an account.
func (h *RentReceiptHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	if reference == "" {
		utils.Error(w, http.StatusBadRequest, "reference required")
		return
	}

	result, err := h.Service.Verify(r.Context(), reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
