package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	domainErrors "github.com/negativepl/checkout-gateway/internal/domain/errors"
	"github.com/negativepl/checkout-gateway/internal/observability"
	"github.com/negativepl/checkout-gateway/internal/prestashop"
	"github.com/negativepl/checkout-gateway/internal/shipping"
	"github.com/negativepl/checkout-gateway/pkg/saga"
)

// Polish user-facing messages, one per saga step.
const (
	msgCustomerFailed = "Nie udało się utworzyć konta klienta. Spróbuj ponownie."
	msgAddressFailed  = "Nie udało się zapisać adresu dostawy. Spróbuj ponownie."
	msgCartFailed     = "Nie udało się utworzyć koszyka. Spróbuj ponownie."
	msgShippingFailed = "Wybrana metoda dostawy jest niedostępna."
	msgOrderFailed    = "Nie udało się złożyć zamówienia. Spróbuj ponownie."
)

// defaultItemWeightKg approximates parcel weight per ordered unit; the
// storefront does not collect real product weights.
const defaultItemWeightKg = 0.5

// Backend is the subset of the PrestaShop client the checkout saga uses.
type Backend interface {
	FindCustomerByEmail(ctx context.Context, email string) (*prestashop.Customer, error)
	CreateCustomer(ctx context.Context, input prestashop.CustomerInput) (int, error)
	CreateAddress(ctx context.Context, input prestashop.AddressInput) (int, error)
	CreateCart(ctx context.Context, input prestashop.CartInput) (int, error)
	GetProduct(ctx context.Context, id int) (*prestashop.Product, error)
	CreateOrder(ctx context.Context, input prestashop.OrderInput) (int, string, error)
}

type Config struct {
	DefaultShippingMethod string
	DefaultCarrierID      int
	CarrierIDs            map[string]int
	CountryID             int
	CurrencyID            int
	LanguageID            int
}

type CustomerForm struct {
	Email     string
	FirstName string
	LastName  string
	Address   string
	City      string
	Postcode  string
	Phone     string
}

type Item struct {
	ProductID          int
	Quantity           int
	ProductAttributeID int
}

type Request struct {
	// CustomerID is the session customer when logged in, zero for guests.
	CustomerID     int
	Customer       CustomerForm
	Items          []Item
	ShippingMethod string
	ShippingPoint  string
	PaymentMethod  string
}

type Result struct {
	OrderID        int
	OrderReference string
	CustomerID     int
	CartID         int
	ShippingCost   float64
	TotalPaid      string
}

// Service assembles an order against the PrestaShop webservice: customer,
// address, cart and order are created in sequence, with shipping cost coming
// from the shipping registry. Steps carry no compensation: a failure aborts
// the request and leaves earlier remote objects in place, matching the
// storefront's established behavior. Adding compensating deletes is a
// product decision, not a code gap; the saga structure keeps it a local
// change if it is ever made.
type Service struct {
	backend  Backend
	shipping *shipping.Registry
	cfg      Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

func NewService(backend Backend, shippingRegistry *shipping.Registry, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		backend:  backend,
		shipping: shippingRegistry,
		cfg:      cfg,
		logger:   logger.With().Str("component", "checkout").Logger(),
		metrics:  metrics,
	}
}

type fetchedItem struct {
	product  *prestashop.Product
	quantity int
}

type orderState struct {
	customerID    int
	addressID     int
	cartID        int
	items         []fetchedItem
	totalProducts float64
	carrierID     int
	shippingCost  float64
	orderID       int
	orderRef      string
	totalPaid     string
}

func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	st := &orderState{}

	sg := saga.New("checkout").
		AddStep(saga.Step{
			Name:    "resolve_customer",
			Execute: func(ctx context.Context) error { return s.resolveCustomer(ctx, req, st) },
		}).
		AddStep(saga.Step{
			Name:    "create_address",
			Execute: func(ctx context.Context) error { return s.createAddress(ctx, req, st) },
		}).
		AddStep(saga.Step{
			Name:    "create_cart",
			Execute: func(ctx context.Context) error { return s.createCart(ctx, req, st) },
		}).
		AddStep(saga.Step{
			Name:    "fetch_products",
			Execute: func(ctx context.Context) error { return s.fetchProducts(ctx, req, st) },
		}).
		AddStep(saga.Step{
			Name:    "resolve_shipping",
			Execute: func(ctx context.Context) error { return s.resolveShipping(ctx, req, st) },
		}).
		AddStep(saga.Step{
			Name:    "create_order",
			Execute: func(ctx context.Context) error { return s.createOrder(ctx, req, st) },
		})

	failedStep, err := sg.Execute(ctx)
	if s.metrics != nil {
		s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "failure"
			s.metrics.CheckoutStepErrors.WithLabelValues(failedStep).Inc()
		}
		s.metrics.CheckoutsTotal.WithLabelValues(outcome, paymentMethodLabel(req.PaymentMethod)).Inc()
	}
	if err != nil {
		s.logger.Error().Err(err).Str("step", failedStep).Msg("checkout failed")
		return nil, err
	}

	s.logger.Info().
		Int("order_id", st.orderID).
		Int("customer_id", st.customerID).
		Int("cart_id", st.cartID).
		Str("total_paid", st.totalPaid).
		Msg("order created")

	return &Result{
		OrderID:        st.orderID,
		OrderReference: st.orderRef,
		CustomerID:     st.customerID,
		CartID:         st.cartID,
		ShippingCost:   st.shippingCost,
		TotalPaid:      st.totalPaid,
	}, nil
}

// resolveCustomer uses the session customer when present, otherwise finds an
// existing account by email or creates a fresh one with a random password.
func (s *Service) resolveCustomer(ctx context.Context, req Request, st *orderState) error {
	if req.CustomerID > 0 {
		st.customerID = req.CustomerID
		return nil
	}

	existing, err := s.backend.FindCustomerByEmail(ctx, req.Customer.Email)
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgCustomerFailed, err)
	}
	if existing != nil {
		st.customerID = existing.ID
		return nil
	}

	id, err := s.backend.CreateCustomer(ctx, prestashop.CustomerInput{
		FirstName: req.Customer.FirstName,
		LastName:  req.Customer.LastName,
		Email:     req.Customer.Email,
		Password:  randomHex(16),
	})
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgCustomerFailed, err)
	}
	st.customerID = id
	return nil
}

func (s *Service) createAddress(ctx context.Context, req Request, st *orderState) error {
	id, err := s.backend.CreateAddress(ctx, prestashop.AddressInput{
		CustomerID: st.customerID,
		FirstName:  req.Customer.FirstName,
		LastName:   req.Customer.LastName,
		Address1:   req.Customer.Address,
		City:       req.Customer.City,
		PostCode:   req.Customer.Postcode,
		Phone:      req.Customer.Phone,
		CountryID:  s.cfg.CountryID,
	})
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgAddressFailed, err)
	}
	st.addressID = id
	return nil
}

func (s *Service) createCart(ctx context.Context, req Request, st *orderState) error {
	items := make([]prestashop.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, prestashop.CartItem{
			ProductID:          item.ProductID,
			ProductAttributeID: item.ProductAttributeID,
			Quantity:           item.Quantity,
		})
	}

	id, err := s.backend.CreateCart(ctx, prestashop.CartInput{
		CustomerID: st.customerID,
		AddressID:  st.addressID,
		CurrencyID: s.cfg.CurrencyID,
		LanguageID: s.cfg.LanguageID,
		Items:      items,
	})
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgCartFailed, err)
	}
	st.cartID = id
	return nil
}

// fetchProducts loads authoritative pricing for every line item. Fetches run
// concurrently; a single item's failure is logged and the item skipped, so
// totals cover only the items that resolved.
func (s *Service) fetchProducts(ctx context.Context, req Request, st *orderState) error {
	results := make([]*fetchedItem, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, item := range req.Items {
		g.Go(func() error {
			product, err := s.backend.GetProduct(gctx, item.ProductID)
			if err != nil {
				s.logger.Warn().Err(err).Int("product_id", item.ProductID).Msg("product fetch failed, skipping line item")
				if s.metrics != nil {
					s.metrics.SkippedProductFetches.Inc()
				}
				return nil
			}
			results[i] = &fetchedItem{product: product, quantity: item.Quantity}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgOrderFailed, err)
	}

	for _, item := range results {
		if item == nil {
			continue
		}
		st.items = append(st.items, *item)
		st.totalProducts += item.product.Price * float64(item.quantity)
	}
	return nil
}

func (s *Service) resolveShipping(ctx context.Context, req Request, st *orderState) error {
	method := req.ShippingMethod
	if method == "" {
		method = s.cfg.DefaultShippingMethod
	}

	provider, err := s.shipping.Resolve(method)
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgShippingFailed, err)
	}

	var codAmount float64
	if req.PaymentMethod == "cod" {
		codAmount = st.totalProducts
	}
	totalQty := 0
	for _, item := range req.Items {
		totalQty += item.Quantity
	}

	rate, err := provider.CalculateRate(ctx, shipping.RateParams{
		Code:      method,
		WeightKg:  defaultItemWeightKg * float64(totalQty),
		CODAmount: codAmount,
	})
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgShippingFailed, err)
	}
	if rate == nil {
		return domainErrors.NewDomainError("checkout_failed", msgShippingFailed, domainErrors.ErrMethodUnavailable)
	}
	if rate.RequiresPoint && req.ShippingPoint == "" {
		return domainErrors.NewValidationError("shippingPoint", "required for "+method)
	}

	st.shippingCost = rate.Price
	st.carrierID = s.carrierIDFor(method)
	return nil
}

func (s *Service) carrierIDFor(method string) int {
	if id, ok := s.cfg.CarrierIDs[method]; ok {
		return id
	}
	return s.cfg.DefaultCarrierID
}

// paymentModuleFor selects the PrestaShop payment module recorded on the
// order. Online methods (card, BLIK, transfer, installments) are provisionally
// booked under the wire-payment module; the actual capture arrives later via
// the Stripe/PayU webhook.
func paymentModuleFor(method string) (module, display string) {
	switch method {
	case "cod":
		return "ps_cashondelivery", "Płatność przy odbiorze"
	case "card":
		return "ps_wirepayment", "Karta płatnicza"
	case "blik":
		return "ps_wirepayment", "BLIK"
	case "installments":
		return "ps_wirepayment", "Raty"
	default:
		return "ps_wirepayment", "Przelew bankowy"
	}
}

func (s *Service) createOrder(ctx context.Context, req Request, st *orderState) error {
	module, display := paymentModuleFor(req.PaymentMethod)
	st.totalPaid = FormatTotal(st.totalProducts + st.shippingCost)

	orderID, reference, err := s.backend.CreateOrder(ctx, prestashop.OrderInput{
		CartID:        st.cartID,
		CustomerID:    st.customerID,
		AddressID:     st.addressID,
		CarrierID:     st.carrierID,
		CurrencyID:    s.cfg.CurrencyID,
		LanguageID:    s.cfg.LanguageID,
		Module:        module,
		Payment:       display,
		TotalPaid:     st.totalPaid,
		TotalProducts: FormatTotal(st.totalProducts),
		TotalShipping: FormatTotal(st.shippingCost),
		SecureKey:     randomHex(16),
	})
	if err != nil {
		return domainErrors.NewDomainError("checkout_failed", msgOrderFailed, err)
	}
	st.orderID = orderID
	st.orderRef = reference
	return nil
}

func paymentMethodLabel(method string) string {
	if method == "" {
		return "transfer"
	}
	return method
}

// FormatTotal renders an amount the way the PrestaShop webservice expects
// its totals: a fixed 6-decimal string.
func FormatTotal(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// randomHex returns n random bytes hex-encoded, used for generated customer
// passwords and the order secure key.
func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
