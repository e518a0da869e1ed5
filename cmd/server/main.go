package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Paulagot/bingo-sub014/internal/config"
	"github.com/Paulagot/bingo-sub014/internal/database"
	"github.com/Paulagot/bingo-sub014/internal/handlers"
	"github.com/Paulagot/bingo-sub014/internal/middleware"
	"github.com/Paulagot/bingo-sub014/internal/notify"
	"github.com/Paulagot/bingo-sub014/internal/repositories"
	"github.com/Paulagot/bingo-sub014/internal/services"
	syncproto "github.com/Paulagot/bingo-sub014/internal/sync"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize logger
	logger.Init()
	defer logger.Sync()

	logger.Info("Starting reconciliation server...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	// Run GORM auto-migration
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Repositories
	ledgerRepo := repositories.NewLedgerRepository(db)
	adjustmentRepo := repositories.NewAdjustmentRepository(db)
	reconciliationRepo := repositories.NewReconciliationRepository(db)

	// Host notifications (disabled when no token is configured)
	notifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramHostChatID)
	if err != nil {
		logger.Warn("Telegram notifier unavailable", "error", err)
	}

	// Aggregator service
	reconciliationService := services.NewReconciliationService(
		ledgerRepo, adjustmentRepo, reconciliationRepo, notifier)

	// Sync channel
	hub := syncproto.NewHub()
	syncHandler := syncproto.NewHandler(hub, reconciliationRepo, cfg.GetSyncRequestTimeout())

	// HTTP handlers
	ledgerHandler := handlers.NewLedgerHandler(ledgerRepo, reconciliationService)
	adjustmentHandler := handlers.NewAdjustmentHandler(reconciliationService, adjustmentRepo)
	reconciliationHandler := handlers.NewReconciliationHandler(
		reconciliationService, ledgerRepo, adjustmentRepo)

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerIP, cfg.GetRateLimitWindow())
	r.Use(limiter.Middleware())

	admin := r.Group("")
	admin.Use(middleware.JWTAuth([]byte(cfg.JWTSecret)))
	admin.GET("/unpaid", ledgerHandler.ListUnpaid)
	admin.POST("/mark-late-paid", ledgerHandler.MarkLatePaid)
	admin.POST("/ledger", ledgerHandler.CreateEntry)
	admin.POST("/ledger/status", ledgerHandler.UpdateStatus)
	admin.POST("/adjustments", adjustmentHandler.Append)
	admin.GET("/adjustments", adjustmentHandler.List)
	admin.GET("/reconciliation", reconciliationHandler.Get)
	admin.POST("/reconciliation/recompute", reconciliationHandler.Recompute)
	admin.POST("/reconciliation/approve", reconciliationHandler.Approve)
	admin.POST("/reconciliation/archive", reconciliationHandler.Archive)
	admin.GET("/reconciliation/export", reconciliationHandler.Export)
	admin.GET("/sync", gin.WrapH(syncHandler))

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
