package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/tidwall/gjson"

	"estate-backend/internal/fintech"
	"estate-backend/internal/metrics"
	"estate-backend/internal/services"
	"estate-backend/pkg/utils"
)

// WebhookHandler receives provider callbacks. Payloads are authenticated by
// HMAC signature before anything is parsed; unverifiable requests get a 401
// so the provider retries, everything else gets a 200 to stop redelivery.
type WebhookHandler struct {
	Service           *services.RentPaymentService
	PaystackSecret    string
	FlutterwaveSecret string
}

func NewWebhookHandler(service *services.RentPaymentService, paystackSecret, flutterwaveSecret string) *WebhookHandler {
	return &WebhookHandler{
		Service:           service,
		PaystackSecret:    paystackSecret,
		FlutterwaveSecret: flutterwaveSecret,
	}
}

const maxWebhookBody = 1 << 20 // 1MB

// Paystack handles charge events from Paystack
func (h *WebhookHandler) Paystack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Could not read body")
		return
	}

	signature := r.Header.Get(fintech.PaystackSignatureHeader)
	if !fintech.VerifyPaystackSignature(h.PaystackSecret, body, signature) {
		metrics.WebhooksReceived.WithLabelValues(fintech.ProviderPaystack, "rejected").Inc()
		utils.Error(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event := gjson.GetBytes(body, "event").String()
	reference := gjson.GetBytes(body, "data.reference").String()
	log.Printf("[Webhook] Paystack event=%s reference=%s", event, reference)

	switch event {
	case "charge.success":
		h.verify(w, r, fintech.ProviderPaystack, reference)
	case "charge.failed":
		h.fail(w, r, fintech.ProviderPaystack, reference, gjson.GetBytes(body, "data.gateway_response").String())
	default:
		metrics.WebhooksReceived.WithLabelValues(fintech.ProviderPaystack, "ignored").Inc()
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// Flutterwave handles charge events from Flutterwave
func (h *WebhookHandler) Flutterwave(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Could not read body")
		return
	}

	signature := r.Header.Get(fintech.FlutterwaveSignatureHeader)
	if !fintech.VerifyFlutterwaveSignature(h.FlutterwaveSecret, body, signature) {
		metrics.WebhooksReceived.WithLabelValues(fintech.ProviderFlutterwave, "rejected").Inc()
		utils.Error(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event := gjson.GetBytes(body, "event").String()
	status := gjson.GetBytes(body, "data.status").String()
	reference := gjson.GetBytes(body, "data.tx_ref").String()
	log.Printf("[Webhook] Flutterwave event=%s status=%s reference=%s", event, status, reference)

	if event != "charge.completed" {
		metrics.WebhooksReceived.WithLabelValues(fintech.ProviderFlutterwave, "ignored").Inc()
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if status == "successful" {
		h.verify(w, r, fintech.ProviderFlutterwave, reference)
		return
	}
	h.fail(w, r, fintech.ProviderFlutterwave, reference, status)
}

func (h *WebhookHandler) verify(w http.ResponseWriter, r *http.Request, provider, reference string) {
	if reference == "" {
		utils.Error(w, http.StatusBadRequest, "Missing reference")
		return
	}
	// VerifyPayment re-checks the charge against the provider API, so a forged
	// but correctly signed payload still cannot mark a payment verified.
	if _, err := h.Service.VerifyPayment(r.Context(), reference); err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			// Reference belongs to another system sharing the account
			metrics.WebhooksReceived.WithLabelValues(provider, "unknown").Inc()
			utils.JSON(w, http.StatusOK, map[string]string{"status": "unknown reference"})
			return
		}
		log.Printf("[Webhook] Verification failed for %s: %v", reference, err)
		metrics.WebhooksReceived.WithLabelValues(provider, "error").Inc()
		// 200 regardless: the callback page retries verification on its own
		utils.JSON(w, http.StatusOK, map[string]string{"status": "verification failed"})
		return
	}
	metrics.WebhooksReceived.WithLabelValues(provider, "processed").Inc()
	utils.JSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *WebhookHandler) fail(w http.ResponseWriter, r *http.Request, provider, reference, reason string) {
	if reference == "" {
		utils.Error(w, http.StatusBadRequest, "Missing reference")
		return
	}
	if err := h.Service.FailPayment(r.Context(), reference, reason); err != nil && !errors.Is(err, services.ErrPaymentNotFound) {
		log.Printf("[Webhook] Could not mark %s failed: %v", reference, err)
	}
	metrics.WebhooksReceived.WithLabelValues(provider, "processed").Inc()
	utils.JSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
