package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/negativepl/checkout-gateway/internal/checkout"
	"github.com/negativepl/checkout-gateway/internal/config"
	customMW "github.com/negativepl/checkout-gateway/internal/middleware"
	"github.com/negativepl/checkout-gateway/internal/observability"
	"github.com/negativepl/checkout-gateway/internal/payments"
	"github.com/negativepl/checkout-gateway/internal/shipping"
)

type RouterDeps struct {
	RedisClient      *redis.Client
	CheckoutService  *checkout.Service
	PaymentRegistry  *payments.Registry
	ShippingRegistry *shipping.Registry
	IdempotencyStore customMW.IdempotencyStore
	Metrics          *observability.Metrics
	CORSConfig       config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.RedisClient)
	checkoutH := NewCheckoutController(deps.CheckoutService)
	paymentH := NewPaymentController(deps.PaymentRegistry, deps.Metrics)
	webhookH := NewWebhookController(deps.PaymentRegistry, deps.Metrics)
	shippingH := NewShippingController(deps.ShippingRegistry, deps.Metrics)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	idempotencyMW := customMW.Idempotency(deps.IdempotencyStore)

	r.With(idempotencyMW).Post("/api/checkout", checkoutH.PlaceOrder)

	r.Route("/api/v1", func(r chi.Router) {
		// Payments
		r.With(idempotencyMW).Post("/payments", paymentH.CreatePayment)
		r.Get("/payments/{provider}/{externalId}/status", paymentH.GetStatus)
		r.Post("/payments/{provider}/refund", paymentH.Refund)

		// Provider webhooks (signature-verified, never idempotency-wrapped)
		r.Post("/webhooks/stripe", webhookH.Stripe)
		r.Post("/webhooks/payu", webhookH.PayU)

		// Shipping
		r.Get("/shipping/points", shippingH.FindPoints)
		r.Post("/shipping/rates", shippingH.CalculateRate)
		r.With(idempotencyMW).Post("/shipping/shipments", shippingH.CreateShipment)
		r.Get("/shipping/tracking/{provider}/{trackingNumber}", shippingH.GetTracking)
		r.Get("/shipping/labels/{provider}/{shipmentId}", shippingH.GetLabel)
	})

	return r
}
