package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cardvault/card-service/internal/cardutil"
	"github.com/cardvault/card-service/internal/config"
	"github.com/cardvault/card-service/internal/handler"
	"github.com/cardvault/card-service/internal/integrations/cbr"
	"github.com/cardvault/card-service/internal/middleware"
	"github.com/cardvault/card-service/internal/notify"
	"github.com/cardvault/card-service/internal/repository"
	"github.com/cardvault/card-service/internal/service"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	cipher, err := cardutil.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		logger.Fatalf("Failed to initialize cipher: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	clock := service.RealClock{}
	auditSvc := service.NewAuditService(repo, clock, logger)
	cardSvc := service.NewCardService(repo, repo, auditSvc, cipher, cardutil.CryptoRand{}, clock, logger,
		cfg.CardValidityYears, cfg.CardNumberPrefix)
	authSvc := service.NewAuthService(repo, auditSvc, clock, logger, cfg.JWTSecret)
	h := handler.NewHandler(cardSvc, authSvc, auditSvc, logger)
	sender := notify.NewSender(cfg, logger)
	ratesClient := cbr.NewClient(cfg, logger)

	// Expiry sweep, also reachable for an external scheduler via POST below
	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		expired, err := cardSvc.SweepExpiredCards(ctx)
		if err != nil {
			logger.Errorf("Expiry sweep failed: %v", err)
			return
		}
		for _, card := range expired {
			if !sender.Enabled() {
				continue
			}
			user, err := repo.FindUserByID(ctx, card.UserID)
			if err != nil {
				logger.Errorf("Failed to look up user %d for expiry notice: %v", card.UserID, err)
				continue
			}
			_ = sender.SendExpiryNotice(user, card)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepCron, sweep); err != nil {
		logger.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/exchange-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := ratesClient.GetDailyRate(cfg.Currency)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get exchange rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"rate": rate})
	}).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	authRouter.HandleFunc("/cards", h.ListCards).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}", h.GetCard).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/block", h.BlockCard).Methods("POST")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/activate", h.ActivateCard).Methods("POST")
	authRouter.HandleFunc("/cards/transfer", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/cards/balance", h.TotalBalance).Methods("GET")
	authRouter.HandleFunc("/audit/my", h.MyAuditLogs).Methods("GET")

	// Admin routes
	adminRouter := authRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminOnly)
	adminRouter.HandleFunc("/cards", h.AdminListCards).Methods("GET")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}/block", h.AdminBlockCard).Methods("POST")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}/activate", h.AdminActivateCard).Methods("POST")
	adminRouter.HandleFunc("/cards/{id:[0-9]+}", h.AdminDeleteCard).Methods("DELETE")
	adminRouter.HandleFunc("/audit", h.AdminListAuditLogs).Methods("GET")
	adminRouter.HandleFunc("/cards/sweep-expired", func(w http.ResponseWriter, r *http.Request) {
		sweep()
		w.WriteHeader(http.StatusAccepted)
	}).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
