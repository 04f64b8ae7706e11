package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeCreatePayment_MockWhenUnconfigured(t *testing.T) {
	provider := NewStripe(StripeConfig{}, zerolog.Nop())

	result, err := provider.CreatePayment(context.Background(), CreateParams{
		OrderID: 1001,
		Amount:  49.99,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StatusPending, result.Status)
	assert.Contains(t, result.ExternalID, "mock_pi_")
	assert.Contains(t, result.ClientSecret, "mock_secret_")
	assert.NotEmpty(t, result.TransactionID)
}

func TestStripeCreatePayment_SendsMinorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "4999", r.FormValue("amount"))
		assert.Equal(t, "pln", r.FormValue("currency"))
		assert.Equal(t, "true", r.FormValue("automatic_payment_methods[enabled]"))
		assert.Equal(t, "1001", r.FormValue("metadata[order_id]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret","status":"requires_payment_method"}`)
	}))
	defer srv.Close()

	provider := NewStripe(StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL}, zerolog.Nop())

	result, err := provider.CreatePayment(context.Background(), CreateParams{
		OrderID: 1001,
		Amount:  49.99,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "pi_123", result.ExternalID)
	assert.Equal(t, StatusPending, result.Status)
}

func TestStripeCreatePayment_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	}))
	defer srv.Close()

	provider := NewStripe(StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL}, zerolog.Nop())

	result, err := provider.CreatePayment(context.Background(), CreateParams{OrderID: 1, Amount: 10})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, StatusFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, "card_declined", result.Error.Code)
}

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		status string
		want   Status
	}{
		{"requires_payment_method", StatusPending},
		{"requires_confirmation", StatusPending},
		{"requires_action", StatusPending},
		{"processing", StatusProcessing},
		{"requires_capture", StatusProcessing},
		{"succeeded", StatusCompleted},
		{"canceled", StatusCancelled},
		{"something_new", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, mapStripeStatus(tt.status))
		})
	}
}

func stripeSign(secret string, ts time.Time, payload []byte) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeHandleWebhook_ValidSignature(t *testing.T) {
	provider := NewStripe(StripeConfig{SecretKey: "sk", WebhookSecret: "whsec_test"}, zerolog.Nop())
	now := time.Now()
	provider.now = func() time.Time { return now }

	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	header := stripeSign("whsec_test", now, payload)

	result, err := provider.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Handled)
	assert.Equal(t, "pi_123", result.ExternalID)
	assert.Equal(t, StatusCompleted, result.Status)
}

func TestStripeHandleWebhook_RejectsBadSignature(t *testing.T) {
	provider := NewStripe(StripeConfig{SecretKey: "sk", WebhookSecret: "whsec_test"}, zerolog.Nop())

	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	header := stripeSign("wrong_secret", time.Now(), payload)

	result, err := provider.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "invalid signature", result.Error)
}

func TestStripeHandleWebhook_RejectsStaleTimestamp(t *testing.T) {
	provider := NewStripe(StripeConfig{SecretKey: "sk", WebhookSecret: "whsec_test"}, zerolog.Nop())
	now := time.Now()
	provider.now = func() time.Time { return now }

	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	header := stripeSign("whsec_test", now.Add(-10*time.Minute), payload)

	result, err := provider.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)

	assert.False(t, result.Success)
}

func TestStripeHandleWebhook_UnverifiedWithoutSecret(t *testing.T) {
	provider := NewStripe(StripeConfig{SecretKey: "sk"}, zerolog.Nop())

	payload := []byte(`{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_9"}}}`)
	result, err := provider.HandleWebhook(context.Background(), payload, "")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestStripeHandleWebhook_ChargeRefundedUsesPaymentIntent(t *testing.T) {
	provider := NewStripe(StripeConfig{SecretKey: "sk"}, zerolog.Nop())

	payload := []byte(`{"type":"charge.refunded","data":{"object":{"id":"ch_1","payment_intent":"pi_55"}}}`)
	result, err := provider.HandleWebhook(context.Background(), payload, "")
	require.NoError(t, err)

	assert.True(t, result.Handled)
	assert.Equal(t, "pi_55", result.ExternalID)
	assert.Equal(t, StatusRefunded, result.Status)
}

func TestStripeHandleWebhook_IgnoresUnknownEvents(t *testing.T) {
	provider := NewStripe(StripeConfig{SecretKey: "sk"}, zerolog.Nop())

	payload := []byte(`{"type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	result, err := provider.HandleWebhook(context.Background(), payload, "")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.Handled)
}
