package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/negativepl/checkout-gateway/internal/domain/errors"
)

func TestRegistryGet(t *testing.T) {
	stripe := NewStripe(StripeConfig{}, zerolog.Nop())
	payu := NewPayU(PayUConfig{}, zerolog.Nop())
	registry := NewRegistry(stripe, payu)

	provider, breaker, err := registry.Get("stripe")
	require.NoError(t, err)
	assert.Equal(t, "stripe", provider.Code())
	assert.NotNil(t, breaker)

	provider, _, err = registry.Get("payu")
	require.NoError(t, err)
	assert.Equal(t, "payu", provider.Code())
}

func TestRegistryGet_Unknown(t *testing.T) {
	registry := NewRegistry(NewStripe(StripeConfig{}, zerolog.Nop()))

	_, _, err := registry.Get("przelewy24")
	assert.True(t, errors.Is(err, domainErrors.ErrProviderNotFound))
}

func TestRegistryCodes(t *testing.T) {
	registry := NewRegistry(
		NewStripe(StripeConfig{}, zerolog.Nop()),
		NewPayU(PayUConfig{}, zerolog.Nop()),
	)

	assert.ElementsMatch(t, []string{"stripe", "payu"}, registry.Codes())
}

func TestRegistryBreaker_PassesThroughResults(t *testing.T) {
	registry := NewRegistry(NewStripe(StripeConfig{}, zerolog.Nop()))

	_, breaker, err := registry.Get("stripe")
	require.NoError(t, err)

	result, err := breaker.Execute(func() (*Result, error) {
		return &Result{Success: true, Status: StatusPending}, nil
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = breaker.Execute(func() (*Result, error) {
		return nil, context.DeadlineExceeded
	})
	assert.Error(t, err)
}
