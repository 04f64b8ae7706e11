package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/negativepl/checkout-gateway/internal/bootstrap"
	"github.com/negativepl/checkout-gateway/internal/checkout"
	"github.com/negativepl/checkout-gateway/internal/controller"
	infraRedis "github.com/negativepl/checkout-gateway/internal/infrastructure/redis"
	customMW "github.com/negativepl/checkout-gateway/internal/middleware"
	"github.com/negativepl/checkout-gateway/internal/payments"
	"github.com/negativepl/checkout-gateway/internal/prestashop"
	"github.com/negativepl/checkout-gateway/internal/shipping"
)

// pointFallbackRecorder feeds shipping adapter fallback events into metrics.
type pointFallbackRecorder struct {
	app *bootstrap.App
}

func (r pointFallbackRecorder) PointLookupFallback(provider, fallback string) {
	r.app.Metrics.PointLookupFallbacks.WithLabelValues(provider, fallback).Inc()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "checkout-gateway", "checkout_gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Payment providers ---
	stripe := payments.NewStripe(payments.StripeConfig{
		SecretKey:      cfg.Stripe.SecretKey,
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
	}, app.Logger)
	payu := payments.NewPayU(payments.PayUConfig{
		PosID:             cfg.PayU.PosID,
		SecondKey:         cfg.PayU.SecondKey,
		OAuthClientID:     cfg.PayU.OAuthClientID,
		OAuthClientSecret: cfg.PayU.OAuthClientSecret,
		Sandbox:           cfg.PayU.Sandbox,
		Production:        cfg.IsProduction(),
		NotifyURL:         cfg.AppURL + "/api/v1/webhooks/payu",
	}, app.Logger)
	paymentRegistry := payments.NewRegistry(stripe, payu)

	// --- Shipping providers ---
	recorder := pointFallbackRecorder{app: app}
	inpost := shipping.NewInPost(shipping.InPostConfig{
		APIToken:       cfg.InPost.APIToken,
		OrganizationID: cfg.InPost.OrganizationID,
		Sandbox:        cfg.InPost.Sandbox,
	}, app.Logger)
	inpost.SetObserver(recorder)
	furgonetka := shipping.NewFurgonetka(shipping.FurgonetkaConfig{
		ClientID:     cfg.Furgonetka.ClientID,
		ClientSecret: cfg.Furgonetka.ClientSecret,
		Username:     cfg.Furgonetka.Username,
		Password:     cfg.Furgonetka.Password,
		Sandbox:      cfg.Furgonetka.Sandbox,
	}, app.Logger)
	furgonetka.SetObserver(recorder)
	shippingRegistry := shipping.NewRegistry(inpost, furgonetka)

	// --- PrestaShop client and checkout service ---
	psClient := prestashop.New(prestashop.Config{
		URL:     cfg.PrestaShop.URL,
		APIKey:  cfg.PrestaShop.APIKey,
		Timeout: cfg.PrestaShop.Timeout,
	}, app.Logger)

	checkoutService := checkout.NewService(psClient, shippingRegistry, checkout.Config{
		DefaultShippingMethod: cfg.Checkout.DefaultShippingMethod,
		DefaultCarrierID:      cfg.Checkout.DefaultCarrierID,
		CarrierIDs:            cfg.Checkout.CarrierIDs,
		CountryID:             cfg.PrestaShop.CountryID,
		CurrencyID:            cfg.PrestaShop.CurrencyID,
		LanguageID:            cfg.PrestaShop.LanguageID,
	}, app.Logger, app.Metrics)

	var idempotencyStore customMW.IdempotencyStore
	if app.Redis != nil {
		idempotencyStore = infraRedis.NewIdempotencyStore(app.Redis, cfg.Checkout.IdempotencyTTL)
	}

	router := controller.NewRouter(controller.RouterDeps{
		RedisClient:      app.Redis,
		CheckoutService:  checkoutService,
		PaymentRegistry:  paymentRegistry,
		ShippingRegistry: shippingRegistry,
		IdempotencyStore: idempotencyStore,
		Metrics:          app.Metrics,
		CORSConfig:       cfg.Server.CORS,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
