package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/config"
	"github.com/Lixing-Zhang/tailortech/internal/coupon"
	"github.com/Lixing-Zhang/tailortech/internal/database"
	"github.com/Lixing-Zhang/tailortech/internal/handlers"
	"github.com/Lixing-Zhang/tailortech/internal/middleware"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
	"github.com/Lixing-Zhang/tailortech/internal/repository/postgres"
	"github.com/Lixing-Zhang/tailortech/internal/service"
	"github.com/Lixing-Zhang/tailortech/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	log.Info("starting tailortech api server",
		zap.String("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx := context.Background()

	// Initialize promo catalog
	promos := coupon.NewBuiltinCatalog()
	if len(cfg.Coupon.CatalogFiles) > 0 {
		log.Info("loading promo catalog...", zap.Strings("files", cfg.Coupon.CatalogFiles))
		if err := promos.LoadFromFiles(ctx, cfg.Coupon.CatalogFiles); err != nil {
			log.Fatal("failed to load promo catalog", zap.Error(err))
		}
	}
	log.Info("promo catalog ready", zap.Any("total_promos", promos.GetStats()["total_promos"]))

	// Initialize storage
	store, db, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize services
	payout := service.Payout{
		PlatformFeePercent: cfg.Pricing.PlatformFeePercent,
		PointsDivisor:      cfg.Pricing.PointsDivisor,
	}
	services := handlers.Services{
		Auth:         service.NewAuthService(store, store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Users:        service.NewUserService(store),
		Catalog:      service.NewCatalogService(store, store),
		Coupons:      service.NewCouponService(store, promos),
		Payments:     service.NewPaymentService(store),
		Requests:     service.NewRequestService(store, store),
		Transactions: service.NewTransactionService(store, payout),
		Orders:       service.NewOrderService(store),
		Promos:       promos,
	}
	if db != nil {
		services.DB = db
	}

	idempotency := middleware.NewMemoryIdempotencyStore()
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go cleanupIdempotency(cleanupCtx, idempotency, time.Hour, log)

	router := handlers.NewRouter(services, handlers.RouterConfig{
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Server.IdempotencyTTL,
		RequestTimeout: 60 * time.Second,
		Pricing: models.PricingInfo{
			ShippingFee:        cfg.Pricing.ShippingFee,
			PlatformFeePercent: cfg.Pricing.PlatformFeePercent,
			PointsDivisor:      cfg.Pricing.PointsDivisor,
		},
	}, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server stopped gracefully")
}

// openStore returns the Postgres store when DATABASE_URL is set and the
// seeded in-memory store otherwise. db is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (repository.Store, *sql.DB, error) {
	if cfg.URL == "" {
		log.Info("DATABASE_URL not set, using in-memory store with demo data")
		return repository.NewSeededInMemoryStore(), nil, nil
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	store := postgres.NewStore(db)
	if cfg.Seed {
		if err := store.Seed(ctx, repository.DefaultSeed()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("seed database: %w", err)
		}
		log.Info("database seeded with demo data")
	}

	log.Info("connected to postgres")
	return store, db, nil
}

func cleanupIdempotency(ctx context.Context, store middleware.IdempotencyStore, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.CleanupExpired(ctx, now)
			if err != nil {
				log.Warn("idempotency cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				log.Debug("idempotency keys expired", zap.Int("removed", removed))
			}
		}
	}
}
