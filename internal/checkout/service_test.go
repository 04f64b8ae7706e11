package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negativepl/checkout-gateway/internal/checkout"
	domainErrors "github.com/negativepl/checkout-gateway/internal/domain/errors"
	"github.com/negativepl/checkout-gateway/internal/prestashop"
	"github.com/negativepl/checkout-gateway/internal/shipping"
	"github.com/negativepl/checkout-gateway/internal/testutil"
)

func testConfig() checkout.Config {
	return checkout.Config{
		DefaultShippingMethod: "dpd_courier",
		DefaultCarrierID:      1,
		CarrierIDs:            map[string]int{"dpd_courier": 2, "inpost_locker": 3},
		CountryID:             14,
		CurrencyID:            1,
		LanguageID:            1,
	}
}

func newService(backend checkout.Backend, registry *shipping.Registry) *checkout.Service {
	return checkout.NewService(backend, registry, testConfig(), zerolog.Nop(), nil)
}

func registryWith(provider shipping.Provider) *shipping.Registry {
	return shipping.NewRegistry(provider)
}

func courierProvider(price float64) *testutil.MockShippingProvider {
	return &testutil.MockShippingProvider{
		ProviderCode: "furgonetka",
		ProviderName: "Furgonetka",
		CalculateRateFunc: func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
			return &shipping.Rate{ProviderID: "furgonetka", Code: params.Code, Price: price}, nil
		},
	}
}

func TestPlaceOrder_HappyPathCOD(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)

	service := newService(backend, registryWith(courierProvider(14.99)))

	result, err := service.PlaceOrder(context.Background(), testutil.NewCheckoutRequest())
	require.NoError(t, err)

	// 2 * 49.99 + 19.99 products, 14.99 shipping
	assert.Equal(t, "134.960000", result.TotalPaid)
	assert.InDelta(t, 14.99, result.ShippingCost, 0.001)
	assert.NotZero(t, result.OrderID)
	assert.NotZero(t, result.CustomerID)
	assert.NotZero(t, result.CartID)

	require.Len(t, backend.Orders, 1)
	order := backend.Orders[0]
	assert.Equal(t, "ps_cashondelivery", order.Module)
	assert.Equal(t, "119.970000", order.TotalProducts)
	assert.Equal(t, "14.990000", order.TotalShipping)
	assert.Equal(t, 2, order.CarrierID)
	assert.Len(t, order.SecureKey, 32)
}

func TestPlaceOrder_OnlineMethodsUseWirePayment(t *testing.T) {
	for _, method := range []string{"card", "blik", "transfer", "installments", ""} {
		t.Run("method_"+method, func(t *testing.T) {
			backend := testutil.NewMockBackend()
			backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
			backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)

			service := newService(backend, registryWith(courierProvider(14.99)))

			req := testutil.NewCheckoutRequest()
			req.PaymentMethod = method
			_, err := service.PlaceOrder(context.Background(), req)
			require.NoError(t, err)

			require.Len(t, backend.Orders, 1)
			assert.Equal(t, "ps_wirepayment", backend.Orders[0].Module)
		})
	}
}

func TestPlaceOrder_ReusesExistingCustomer(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)
	backend.Customers["jan.kowalski@example.com"] = &prestashop.Customer{ID: 777, Email: "jan.kowalski@example.com"}

	service := newService(backend, registryWith(courierProvider(10)))

	result, err := service.PlaceOrder(context.Background(), testutil.NewCheckoutRequest())
	require.NoError(t, err)
	assert.Equal(t, 777, result.CustomerID)
}

func TestPlaceOrder_SessionCustomerSkipsLookup(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)
	backend.FindCustomerByEmailFunc = func(ctx context.Context, email string) (*prestashop.Customer, error) {
		t.Fatal("lookup must not run for a session customer")
		return nil, nil
	}

	service := newService(backend, registryWith(courierProvider(10)))

	req := testutil.NewCheckoutRequest()
	req.CustomerID = 500
	result, err := service.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 500, result.CustomerID)
}

func TestPlaceOrder_SkipsFailedProductFetches(t *testing.T) {
	backend := testutil.NewMockBackend()
	// Product 2 is missing: its line item is skipped, totals cover product 1 only.
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)

	service := newService(backend, registryWith(courierProvider(14.99)))

	result, err := service.PlaceOrder(context.Background(), testutil.NewCheckoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "114.970000", result.TotalPaid)
	require.Len(t, backend.Orders, 1)
	assert.Equal(t, "99.980000", backend.Orders[0].TotalProducts)
}

func TestPlaceOrder_CustomerStepFailure(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.CreateCustomerFunc = func(ctx context.Context, input prestashop.CustomerInput) (int, error) {
		return 0, errors.New("webservice down")
	}

	service := newService(backend, registryWith(courierProvider(10)))

	_, err := service.PlaceOrder(context.Background(), testutil.NewCheckoutRequest())
	require.Error(t, err)

	var domainErr *domainErrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "checkout_failed", domainErr.Code)
	assert.Equal(t, "Nie udało się utworzyć konta klienta. Spróbuj ponownie.", domainErr.Message)
	assert.Empty(t, backend.Orders, "no order may be created after a failed step")
}

func TestPlaceOrder_UnknownShippingMethod(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)

	service := newService(backend, registryWith(courierProvider(10)))

	req := testutil.NewCheckoutRequest()
	req.ShippingMethod = "poczta_polska"
	_, err := service.PlaceOrder(context.Background(), req)
	require.Error(t, err)

	var domainErr *domainErrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "Wybrana metoda dostawy jest niedostępna.", domainErr.Message)
}

func TestPlaceOrder_ShippingUnavailable(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)

	provider := courierProvider(0)
	provider.CalculateRateFunc = func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
		return nil, nil // over weight limit
	}
	service := newService(backend, registryWith(provider))

	_, err := service.PlaceOrder(context.Background(), testutil.NewCheckoutRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrMethodUnavailable))
}

func TestPlaceOrder_PointRequired(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)

	provider := courierProvider(0)
	provider.CalculateRateFunc = func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
		return &shipping.Rate{Code: params.Code, Price: 11.99, RequiresPoint: true}, nil
	}
	service := newService(backend, registryWith(provider))

	req := testutil.NewCheckoutRequest()
	req.ShippingMethod = "inpost_locker"
	req.ShippingPoint = ""
	_, err := service.PlaceOrder(context.Background(), req)
	require.Error(t, err)

	var validationErr *domainErrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "shippingPoint", validationErr.Field)

	// With a point supplied the same request succeeds.
	req.ShippingPoint = "KRA010"
	_, err = service.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
}

func TestPlaceOrder_CODPassedToRateCalculation(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.Products[1] = testutil.NewTestProduct(1, "Koszulka", 49.99)
	backend.Products[2] = testutil.NewTestProduct(2, "Kubek", 19.99)

	var gotCOD float64
	provider := courierProvider(0)
	provider.CalculateRateFunc = func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
		gotCOD = params.CODAmount
		return &shipping.Rate{Code: params.Code, Price: 17.99}, nil
	}
	service := newService(backend, registryWith(provider))

	_, err := service.PlaceOrder(context.Background(), testutil.NewCheckoutRequest())
	require.NoError(t, err)
	assert.InDelta(t, 119.97, gotCOD, 0.001)
}

func TestFormatTotal(t *testing.T) {
	assert.Equal(t, "134.960000", checkout.FormatTotal(134.96))
	assert.Equal(t, "0.000000", checkout.FormatTotal(0))
	assert.Equal(t, "12.990000", checkout.FormatTotal(12.99))
}
