package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ruralpay/supplycredit/docs"
	"github.com/ruralpay/supplycredit/internal/audit"
	"github.com/ruralpay/supplycredit/internal/config"
	"github.com/ruralpay/supplycredit/internal/database"
	"github.com/ruralpay/supplycredit/internal/handlers"
	"github.com/ruralpay/supplycredit/internal/logger"
	"github.com/ruralpay/supplycredit/internal/metrics"
	mW "github.com/ruralpay/supplycredit/internal/middleware"
	"github.com/ruralpay/supplycredit/internal/services"
	"github.com/ruralpay/supplycredit/internal/store"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Supply Credit API
// @version 1.0
// @description Prepaid supply credit ledger for NFC and code based terminals
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("database schema applied")
	}

	redisClient := database.OpenRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	st := store.NewPostgres(db)
	collector := metrics.New()
	auditLog := audit.NewLogger(log)

	renderer, err := services.NewRenderer(cfg.Mail.Language)
	if err != nil {
		return err
	}
	var mailer services.Mailer = services.NewLogMailer(log)
	if cfg.Mail.Host != "" {
		mailer = services.NewSMTPMailer(cfg.Mail)
	}

	hasher := services.NewCredentialHasher(cfg.Argon2)
	identityService := services.NewIdentityService(st, hasher, cfg.Identity.CodeLength, log)
	notificationService := services.NewNotificationService(st, renderer, mailer, cfg.Mail.OperatorAddress, collector, log)
	transactionService := services.NewTransactionService(st, identityService, notificationService, auditLog, collector, log)
	ledgerService := services.NewLedgerService(st, notificationService, auditLog, log)

	var idempotency mW.IdempotencyStore
	if redisClient != nil {
		idempotency = services.NewIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTL)
	}

	transactionHandler := handlers.NewTransactionHandler(transactionService)
	accountHandler := handlers.NewAccountHandler(ledgerService, log)
	healthHandler := handlers.NewHealthHandler(st, redisClient)

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", mW.IdempotencyKeyHeader},
		ExposedHeaders:   []string{mW.ReplayedHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", collector.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Terminals
		r.Group(func(r chi.Router) {
			r.Use(mW.APIKeyAuth(identityService, log))
			r.Use(mW.Idempotency(idempotency, log))

			r.Post("/transactions/code", transactionHandler.DebitByCode)
			r.Post("/transactions/token", transactionHandler.DebitByToken)
		})

		// Operators
		r.Group(func(r chi.Router) {
			r.Use(mW.OperatorAuth(cfg.JWT.SecretKey, cfg.JWT.Issuer))

			r.Get("/summary", accountHandler.Summary)
			r.Get("/accounts", accountHandler.ListAccounts)
			r.Get("/accounts/{id}", accountHandler.GetAccount)
			r.Get("/accounts/{id}/entries", accountHandler.ListEntries)
			r.Post("/accounts/{id}/credits", accountHandler.Credit)
			r.Put("/accounts/{id}/lock", accountHandler.Lock)
			r.Put("/accounts/{id}/unlock", accountHandler.Unlock)
			r.Put("/accounts/{id}/threshold", accountHandler.SetThreshold)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
