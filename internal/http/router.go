package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"estate-backend/internal/handlers"
	"estate-backend/internal/middleware"
	"estate-backend/internal/models"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	propertyHandler *handlers.PropertyHandler,
	tenantHandler *handlers.TenantHandler,
	paymentHandler *handlers.RentPaymentHandler,
	receiptHandler *handlers.RentReceiptHandler,
	proofHandler *handlers.RentProofHandler,
	payoutHandler *handlers.PayoutHandler,
	webhookHandler *handlers.WebhookHandler,
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Public API routes - Provider webhooks (authenticated by HMAC signature)
	r.HandleFunc("/webhooks/paystack", webhookHandler.Paystack).Methods("POST")
	r.HandleFunc("/webhooks/flutterwave", webhookHandler.Flutterwave).Methods("POST")

	// Public API routes - Checkout callback and receipt barcode verification
	r.HandleFunc("/api/payments/verify", paymentHandler.Verify).Methods("GET")
	r.HandleFunc("/api/receipts/verify/{reference}", receiptHandler.Verify).Methods("GET")

	// Protected API routes - Current user
	meAPI := r.PathPrefix("/api/me").Subrouter()
	meAPI.Use(authMiddleware.Authenticate)
	meAPI.HandleFunc("", authHandler.Me).Methods("GET")

	// Protected API routes - Properties (landlords manage, any member can view)
	propertiesAPI := r.PathPrefix("/api/properties").Subrouter()
	propertiesAPI.Use(authMiddleware.Authenticate)
	propertiesAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(propertyHandler.Create)).ServeHTTP).Methods("POST")
	propertiesAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(propertyHandler.List)).ServeHTTP).Methods("GET")
	propertiesAPI.HandleFunc("/{id}", propertyHandler.Get).Methods("GET")
	propertiesAPI.HandleFunc("/{id}/chat", chatHandler.History).Methods("GET")
	propertiesAPI.HandleFunc("/{id}/chat/ws", chatHandler.Connect).Methods("GET")

	// Protected API routes - Tenancies
	tenantsAPI := r.PathPrefix("/api/tenants").Subrouter()
	tenantsAPI.Use(authMiddleware.Authenticate)
	tenantsAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(tenantHandler.Create)).ServeHTTP).Methods("POST")
	tenantsAPI.HandleFunc("/me", tenantHandler.Me).Methods("GET")
	tenantsAPI.HandleFunc("/me/ledger", tenantHandler.Ledger).Methods("GET")

	// Protected API routes - Rent payments
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("/rent", paymentHandler.CreateRentPayment).Methods("POST")
	paymentsAPI.HandleFunc("/balance", paymentHandler.CreateBalancePayment).Methods("POST")
	paymentsAPI.HandleFunc("", paymentHandler.List).Methods("GET")
	paymentsAPI.HandleFunc("/{id}/refund", paymentHandler.Refund).Methods("POST")

	// Protected API routes - Receipts
	receiptsAPI := r.PathPrefix("/api/receipts").Subrouter()
	receiptsAPI.Use(authMiddleware.Authenticate)
	receiptsAPI.HandleFunc("", receiptHandler.List).Methods("GET")
	receiptsAPI.HandleFunc("/{id}", receiptHandler.Get).Methods("GET")
	receiptsAPI.HandleFunc("/{id}/download", receiptHandler.Download).Methods("GET")

	// Protected API routes - Bank transfer proofs
	proofsAPI := r.PathPrefix("/api/proofs").Subrouter()
	proofsAPI.Use(authMiddleware.Authenticate)
	proofsAPI.HandleFunc("", proofHandler.Upload).Methods("POST")
	proofsAPI.HandleFunc("", proofHandler.ListMine).Methods("GET")
	proofsAPI.HandleFunc("/review", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(proofHandler.ListForReview)).ServeHTTP).Methods("GET")
	proofsAPI.HandleFunc("/{id}/approve", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(proofHandler.Approve)).ServeHTTP).Methods("POST")
	proofsAPI.HandleFunc("/{id}/reject", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(proofHandler.Reject)).ServeHTTP).Methods("POST")
	proofsAPI.HandleFunc("/{id}", proofHandler.Delete).Methods("DELETE")

	// Protected API routes - Payouts (landlords only)
	payoutsAPI := r.PathPrefix("/api/payouts").Subrouter()
	payoutsAPI.Use(authMiddleware.Authenticate)
	payoutsAPI.HandleFunc("/account", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(payoutHandler.SetupAccount)).ServeHTTP).Methods("POST")
	payoutsAPI.HandleFunc("/account", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(payoutHandler.GetAccount)).ServeHTTP).Methods("GET")
	payoutsAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleLandlord, models.RoleManager)(http.HandlerFunc(payoutHandler.List)).ServeHTTP).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
