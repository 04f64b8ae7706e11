package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/negativepl/checkout-gateway/internal/payments"
	"github.com/negativepl/checkout-gateway/internal/prestashop"
	"github.com/negativepl/checkout-gateway/internal/shipping"
)

// --- Payment provider mock ---

// MockPaymentProvider is a hand-rolled payments.Provider. Per-call behavior
// is overridden through the *Func fields; unset funcs return benign defaults.
type MockPaymentProvider struct {
	ProviderCode string
	ProviderName string

	CreatePaymentFunc func(ctx context.Context, params payments.CreateParams) (*payments.Result, error)
	HandleWebhookFunc func(ctx context.Context, payload []byte, signature string) (*payments.WebhookResult, error)
	RefundFunc        func(ctx context.Context, params payments.RefundParams) (*payments.RefundResult, error)
	GetStatusFunc     func(ctx context.Context, externalID string) (payments.Status, error)
}

func (m *MockPaymentProvider) Name() string { return m.ProviderName }
func (m *MockPaymentProvider) Code() string { return m.ProviderCode }

func (m *MockPaymentProvider) CreatePayment(ctx context.Context, params payments.CreateParams) (*payments.Result, error) {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, params)
	}
	return &payments.Result{Success: true, ExternalID: "mock_" + m.ProviderCode, Status: payments.StatusPending}, nil
}

func (m *MockPaymentProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*payments.WebhookResult, error) {
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(ctx, payload, signature)
	}
	return &payments.WebhookResult{Success: true, Handled: true, Status: payments.StatusCompleted}, nil
}

func (m *MockPaymentProvider) Refund(ctx context.Context, params payments.RefundParams) (*payments.RefundResult, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, params)
	}
	return &payments.RefundResult{Success: true, RefundID: "mock_refund", Status: payments.StatusRefunded}, nil
}

func (m *MockPaymentProvider) GetStatus(ctx context.Context, externalID string) (payments.Status, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, externalID)
	}
	return payments.StatusPending, nil
}

// --- Shipping provider mock ---

type MockShippingProvider struct {
	ProviderCode string
	ProviderName string

	FindPointsFunc     func(ctx context.Context, query shipping.PointQuery) ([]shipping.Point, error)
	CalculateRateFunc  func(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error)
	CreateShipmentFunc func(ctx context.Context, params shipping.ShipmentParams) (*shipping.ShipmentResult, error)
	GetTrackingFunc    func(ctx context.Context, trackingNumber string) (*shipping.TrackingInfo, error)
	GetLabelFunc       func(ctx context.Context, shipmentID string) (string, error)
}

func (m *MockShippingProvider) Name() string { return m.ProviderName }
func (m *MockShippingProvider) Code() string { return m.ProviderCode }

func (m *MockShippingProvider) FindPoints(ctx context.Context, query shipping.PointQuery) ([]shipping.Point, error) {
	if m.FindPointsFunc != nil {
		return m.FindPointsFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockShippingProvider) CalculateRate(ctx context.Context, params shipping.RateParams) (*shipping.Rate, error) {
	if m.CalculateRateFunc != nil {
		return m.CalculateRateFunc(ctx, params)
	}
	return &shipping.Rate{ProviderID: m.ProviderCode, Code: params.Code, Price: 9.99, DeliveryTime: "1-2 dni"}, nil
}

func (m *MockShippingProvider) CreateShipment(ctx context.Context, params shipping.ShipmentParams) (*shipping.ShipmentResult, error) {
	if m.CreateShipmentFunc != nil {
		return m.CreateShipmentFunc(ctx, params)
	}
	return &shipping.ShipmentResult{Success: true, ShipmentID: "mock_shipment", TrackingNumber: "MOCK123"}, nil
}

func (m *MockShippingProvider) GetTracking(ctx context.Context, trackingNumber string) (*shipping.TrackingInfo, error) {
	if m.GetTrackingFunc != nil {
		return m.GetTrackingFunc(ctx, trackingNumber)
	}
	return nil, nil
}

func (m *MockShippingProvider) GetLabel(ctx context.Context, shipmentID string) (string, error) {
	if m.GetLabelFunc != nil {
		return m.GetLabelFunc(ctx, shipmentID)
	}
	return "https://example.com/labels/" + shipmentID, nil
}

// --- Checkout backend mock ---

// MockBackend fakes the PrestaShop webservice for saga tests. IDs are assigned
// sequentially; every call is recorded for assertions.
type MockBackend struct {
	mu     sync.Mutex
	nextID int

	Customers map[string]*prestashop.Customer
	Products  map[int]*prestashop.Product
	Orders    []prestashop.OrderInput
	Addresses []prestashop.AddressInput
	Carts     []prestashop.CartInput

	FindCustomerByEmailFunc func(ctx context.Context, email string) (*prestashop.Customer, error)
	CreateCustomerFunc      func(ctx context.Context, input prestashop.CustomerInput) (int, error)
	CreateAddressFunc       func(ctx context.Context, input prestashop.AddressInput) (int, error)
	CreateCartFunc          func(ctx context.Context, input prestashop.CartInput) (int, error)
	GetProductFunc          func(ctx context.Context, id int) (*prestashop.Product, error)
	CreateOrderFunc         func(ctx context.Context, input prestashop.OrderInput) (int, string, error)
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		nextID:    100,
		Customers: make(map[string]*prestashop.Customer),
		Products:  make(map[int]*prestashop.Product),
	}
}

func (m *MockBackend) next() int {
	m.nextID++
	return m.nextID
}

func (m *MockBackend) FindCustomerByEmail(ctx context.Context, email string) (*prestashop.Customer, error) {
	if m.FindCustomerByEmailFunc != nil {
		return m.FindCustomerByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Customers[email], nil
}

func (m *MockBackend) CreateCustomer(ctx context.Context, input prestashop.CustomerInput) (int, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, input)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next()
	m.Customers[input.Email] = &prestashop.Customer{ID: id, Email: input.Email, FirstName: input.FirstName, LastName: input.LastName}
	return id, nil
}

func (m *MockBackend) CreateAddress(ctx context.Context, input prestashop.AddressInput) (int, error) {
	if m.CreateAddressFunc != nil {
		return m.CreateAddressFunc(ctx, input)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Addresses = append(m.Addresses, input)
	return m.next(), nil
}

func (m *MockBackend) CreateCart(ctx context.Context, input prestashop.CartInput) (int, error) {
	if m.CreateCartFunc != nil {
		return m.CreateCartFunc(ctx, input)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Carts = append(m.Carts, input)
	return m.next(), nil
}

func (m *MockBackend) GetProduct(ctx context.Context, id int) (*prestashop.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Products[id]; ok {
		return p, nil
	}
	return nil, errors.New("product not found")
}

func (m *MockBackend) CreateOrder(ctx context.Context, input prestashop.OrderInput) (int, string, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, input)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders = append(m.Orders, input)
	id := m.next()
	return id, fmt.Sprintf("REF%03d", len(m.Orders)), nil
}
