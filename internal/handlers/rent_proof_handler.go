package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"estate-backend/internal/middleware"
	"estate-backend/internal/services"
	"estate-backend/pkg/utils"
)

type RentProofHandler struct {
	Service *services.RentProofService
}

func NewRentProofHandler(service *services.RentProofService) *RentProofHandler {
	return &RentProofHandler{Service: service}
}

const maxProofUpload = 10 << 20 // 10MB

// Upload accepts a multipart bank-transfer proof: an image or PDF plus the
// transferred amount.
func (h *RentProofHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofUpload)
	if err := r.ParseMultipartForm(maxProofUpload); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}

	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil || !amount.IsPositive() {
		utils.Error(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Could not read upload")
		return
	}

	proof, err := h.Service.Upload(r.Context(), userID, amount, data, header.Filename, r.FormValue("note"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, proof)
}

// ListMine returns the caller's uploaded proofs
func (h *RentProofHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	proofs, err := h.Service.ListMine(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, proofs)
}

// ListForReview returns pending proofs across the landlord's properties
func (h *RentProofHandler) ListForReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	proofs, err := h.Service.ListForLandlord(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, proofs)
}

// Approve applies a pending proof to the tenant's open receipt
func (h *RentProofHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	proofID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid proof ID")
		return
	}

	receipt, err := h.Service.Approve(r.Context(), proofID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipt)
}

// Reject declines a pending proof with a reason
func (h *RentProofHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	proofID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid proof ID")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.Service.Reject(r.Context(), proofID, userID, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// Delete removes the caller's own pending proof
func (h *RentProofHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	proofID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid proof ID")
		return
	}

	if err := h.Service.Delete(r.Context(), proofID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
