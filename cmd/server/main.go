package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-backend/internal/auth"
	"estate-backend/internal/breaker"
	"estate-backend/internal/cache"
	"estate-backend/internal/config"
	"estate-backend/internal/database"
	"estate-backend/internal/db"
	"estate-backend/internal/email"
	"estate-backend/internal/fintech"
	"estate-backend/internal/handlers"
	"estate-backend/internal/health"
	h "estate-backend/internal/http"
	"estate-backend/internal/idempotency"
	"estate-backend/internal/middleware"
	"estate-backend/internal/monitoring"
	"estate-backend/internal/pdf"
	"estate-backend/internal/realtime"
	"estate-backend/internal/repositories"
	"estate-backend/internal/services"
	"estate-backend/internal/sms"
	"estate-backend/internal/storage"
	"estate-backend/internal/tasks"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	monitorPort := flag.Int("monitor-port", 9090, "Internal monitoring dashboard port (0 disables)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	// Redis is optional: payment locks fail closed and caches fall back to
	// the database when it is down
	if err := cache.Init(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (running degraded)", err)
	} else {
		log.Println("[Redis] Connected successfully")
	}

	migrator := database.NewMigrator(pool)
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrator.RunMigrations(migrateCtx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cancelMigrate()

	// Circuit breakers: one per provider plus one guarding the Redis locks
	paystackBreaker := breaker.NewDefault("paystack")
	flutterwaveBreaker := breaker.NewDefault("flutterwave")
	lockBreaker := breaker.NewDefault("redis-locks")

	gateways := map[string]fintech.Gateway{}
	var paystackClient *fintech.PaystackClient
	if cfg.Paystack.SecretKey != "" {
		paystackClient = fintech.NewPaystackClient(cfg.Paystack.SecretKey, paystackBreaker)
		gateways[fintech.ProviderPaystack] = paystackClient
	}
	if cfg.Flutterwave.SecretKey != "" {
		gateways[fintech.ProviderFlutterwave] = fintech.NewFlutterwaveClient(cfg.Flutterwave.SecretKey, cfg.Flutterwave.RedirectURL, flutterwaveBreaker)
	}
	if len(gateways) == 0 {
		log.Println("[Payments] WARNING: no provider keys configured, online payments will fail")
	}

	guard := idempotency.New(lockBreaker)

	taskQueue := tasks.New(4, 256, cfg.Payments.PayoutMaxRetries, 2*time.Second)
	defer taskQueue.Shutdown()

	// Object storage for receipt PDFs and proof uploads
	r2Ctx, cancelR2 := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.NewR2Store(r2Ctx, cfg.R2.Endpoint, cfg.R2.AccessKey, cfg.R2.SecretKey,
		cfg.R2.Bucket, cfg.R2.Region, cfg.R2.PublicURL)
	cancelR2()
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	renderer := pdf.NewReceiptRenderer(cfg.Payments.ReceiptPDFDir, cfg.Server.BaseURL)
	mailer := email.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
		cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.FromName)

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	profileRepo := repositories.NewProfileRepository(pool)
	propertyRepo := repositories.NewPropertyRepository(pool)
	tenantRepo := repositories.NewTenantRepository(pool)
	paymentRepo := repositories.NewPaymentTransactionRepository(pool)
	receiptRepo := repositories.NewRentReceiptRepository(pool)
	payoutRepo := repositories.NewLandlordPayoutRepository(pool)
	proofRepo := repositories.NewRentProofRepository(pool)
	chatRepo := repositories.NewChatMessageRepository(pool)
	smsLogRepo := repositories.NewSMSLogRepository(pool)

	// SMS falls back to the mock provider when Termii is not configured
	var smsProvider sms.SMSProvider
	if cfg.Termii.APIKey != "" {
		smsProvider = sms.NewTermiiService(cfg.Termii.APIKey, cfg.Termii.SenderID)
	} else {
		log.Println("[SMS] TERMII_API_KEY not set, using mock provider (messages print to logs)")
		smsProvider = sms.NewMockSMSService()
	}
	smsProvider.SetLogRepository(smsLogRepo)

	notifier := services.NewNotificationService(smsProvider, mailer)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	userService := services.NewUserService(userRepo, jwtManager)
	propertyService := services.NewPropertyService(propertyRepo)
	tenantService := services.NewTenantService(tenantRepo, propertyRepo, userRepo)

	receiptService := services.NewRentReceiptService(
		receiptRepo, tenantRepo, paymentRepo, propertyRepo,
		renderer, store, taskQueue, notifier,
		cfg.Payments.ReceiptSecret,
	)
	payoutService := services.NewAutoPayoutService(
		paymentRepo, payoutRepo, profileRepo, userRepo,
		receiptService, gateways, guard, notifier,
	)
	paymentService := services.NewRentPaymentService(
		paymentRepo, receiptRepo, tenantRepo, propertyRepo, profileRepo,
		gateways, guard, taskQueue, notifier, payoutService,
		cfg.Payments.Provider, cfg.Payments.Currency,
		cfg.Server.BaseURL+"/api/payments/verify", cfg.Payments.LockTTLSeconds,
	)
	proofService := services.NewRentProofService(
		proofRepo, tenantRepo, receiptRepo, propertyRepo,
		receiptService, store, guard,
		cfg.Payments.ProofDailyQuota, cfg.Payments.ProofPerProperty,
	)

	var accountService *services.PayoutAccountService
	if paystackClient != nil {
		accountService = services.NewPayoutAccountService(userRepo, profileRepo, paystackClient)
	} else {
		accountService = services.NewPayoutAccountService(userRepo, profileRepo, nil)
	}

	reminderService := services.NewRentReminderService(tenantRepo, notifier)
	if err := reminderService.Start(); err != nil {
		log.Fatalf("Failed to start rent reminder scheduler: %v", err)
	}
	defer reminderService.Stop()

	hub := realtime.NewHub(chatRepo)

	// Handlers
	healthChecker := health.NewHealthChecker(pool)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	authHandler := handlers.NewAuthHandler(userService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	tenantHandler := handlers.NewTenantHandler(tenantService)
	paymentHandler := handlers.NewRentPaymentHandler(paymentService)
	receiptHandler := handlers.NewRentReceiptHandler(receiptService)
	proofHandler := handlers.NewRentProofHandler(proofService)
	payoutHandler := handlers.NewPayoutHandler(accountService, payoutService)
	webhookHandler := handlers.NewWebhookHandler(paymentService, cfg.Paystack.SecretKey, cfg.Flutterwave.WebhookSecret)
	chatHandler := handlers.NewChatHandler(hub, chatRepo, tenantRepo, propertyRepo, userRepo)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	router := h.NewRouter(
		authHandler, propertyHandler, tenantHandler, paymentHandler,
		receiptHandler, proofHandler, payoutHandler, webhookHandler,
		chatHandler, healthHandler, authMiddleware,
	)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(
		middleware.RequestLogging(
			middleware.MetricsMiddleware(
				corsMiddleware(router))))

	if *monitorPort > 0 {
		go monitoring.NewServer(pool, *monitorPort).Start()
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
