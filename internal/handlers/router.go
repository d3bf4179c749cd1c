package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/middleware"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// Services are the business services behind the API
type Services struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Catalog      *service.CatalogService
	Coupons      *service.CouponService
	Payments     *service.PaymentService
	Requests     *service.RequestService
	Transactions *service.TransactionService
	Orders       *service.OrderService
	Promos       PromoValidator
	DB           Pinger
}

// RouterConfig tunes the HTTP layer
type RouterConfig struct {
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	RequestTimeout time.Duration
	Pricing        models.PricingInfo
}

// NewRouter wires every endpoint under /api plus /health
func NewRouter(s Services, cfg RouterConfig, log *zap.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Idempotency == nil {
		cfg.Idempotency = middleware.NewMemoryIdempotencyStore()
	}

	healthHandler := NewHealthHandler(log, s.DB)
	authHandler := NewAuthHandler(s.Auth, log)
	userHandler := NewUserHandler(s.Users, log)
	catalogHandler := NewCatalogHandler(s.Catalog, log)
	couponHandler := NewCouponHandler(s.Coupons, s.Promos, log)
	paymentHandler := NewPaymentHandler(s.Payments, log)
	requestHandler := NewRequestHandler(s.Requests, log)
	orderHandler := NewOrderHandler(s.Orders, log)
	requestTxns := NewTransactionHandler(s.Transactions, repository.KindRequest, log)
	orderTxns := NewTransactionHandler(s.Transactions, repository.KindOrder, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"Link", middleware.ReplayHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)

	idempotent := middleware.Idempotency(cfg.Idempotency, log, cfg.IdempotencyTTL)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/login/user", authHandler.LoginUser)
		r.Post("/login/tailor", authHandler.LoginTailor)
		r.Get("/tailors/get-all", catalogHandler.ListTailors)
		r.Get("/tailors/{id}", catalogHandler.GetTailor)
		r.Get("/products/get-all", catalogHandler.ListProducts)
		r.Get("/coupons/promos", couponHandler.Promos)
		r.Get("/coupons/validate/{code}", couponHandler.ValidatePromo)
		r.Get("/coupons/stats", couponHandler.GetStats)
		r.Get("/pricing", func(w http.ResponseWriter, _ *http.Request) {
			WriteJSON(w, http.StatusOK, cfg.Pricing, log)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(s.Auth))

			r.Get("/validate", authHandler.Validate)
			r.Get("/logout", authHandler.Logout)

			r.Get("/users/{id}", userHandler.GetUser)
			r.Post("/users/update", userHandler.UpdateProfile)
			r.Post("/users/topup/{id}", userHandler.TopUp)

			r.Get("/coupons/code", couponHandler.ListCoupons)
			r.Post("/coupons/exchange", couponHandler.Exchange)

			r.With(idempotent).Post("/payment", paymentHandler.Pay)

			r.With(idempotent).Post("/requests/create", requestHandler.Create)
			r.Get("/requests/{id}", requestHandler.GetRequest)
			r.Get("/requests/get-user-request/{id}", requestTxns.ListForUser)
			r.Get("/requests/get-tailor-request/{id}", requestTxns.ListForTailor)
			r.Post("/requests/update-status", requestTxns.UpdateStatus)
			r.Post("/requests/confirm-received", requestTxns.ConfirmReceived)

			r.Post("/measurements/{category}", requestHandler.SaveMeasurement)

			r.With(idempotent).Post("/orders/create", orderHandler.CreateOrder)
			r.Get("/orders/get-user-order/{id}", orderTxns.ListForUser)
			r.Get("/orders/get-tailor-order/{id}", orderTxns.ListForTailor)
			r.Post("/orders/update-status", orderTxns.UpdateStatus)
			r.Post("/orders/confirm-received", orderTxns.ConfirmReceived)

			r.Post("/carts/add-to-cart", orderHandler.AddToCart)
			r.Get("/carts/get-cart/{id}", orderHandler.GetCart)
			r.Delete("/carts/remove", orderHandler.RemoveFromCart)
		})
	})

	return r
}
