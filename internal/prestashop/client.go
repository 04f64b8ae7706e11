package prestashop

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the PrestaShop webservice. Writes are XML POST bodies in a
// <prestashop> envelope, reads request output_format=JSON. Authentication is
// HTTP Basic with the API key as username and an empty password.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/") + "/api").
		SetBasicAuth(cfg.APIKey, "").
		SetTimeout(timeout)

	return &Client{
		http:   client,
		logger: logger.With().Str("component", "prestashop").Logger(),
	}
}

// FindCustomerByEmail looks up a customer by exact email. Returns (nil, nil)
// when no customer matches.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	var result customerListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"output_format": "JSON",
			"display":       "full",
			"filter[email]": "[" + email + "]",
		}).
		SetResult(&result).
		Get("/customers")
	if err != nil {
		return nil, fmt.Errorf("prestashop: find customer: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("prestashop: find customer: status %d", resp.StatusCode())
	}
	if len(result.Customers) == 0 {
		return nil, nil
	}
	found := result.Customers[0]
	return &Customer{
		ID:        int(found.ID),
		Email:     found.Email,
		FirstName: found.FirstName,
		LastName:  found.LastName,
	}, nil
}

func (c *Client) CreateCustomer(ctx context.Context, input CustomerInput) (int, error) {
	var req customerRequest
	req.Customer.FirstName = input.FirstName
	req.Customer.LastName = input.LastName
	req.Customer.Email = input.Email
	req.Customer.Password = input.Password

	var created customerCreateResponse
	if err := c.postXML(ctx, "/customers", &req, &created); err != nil {
		return 0, fmt.Errorf("prestashop: create customer: %w", err)
	}
	return created.Customer.ID, nil
}

func (c *Client) CreateAddress(ctx context.Context, input AddressInput) (int, error) {
	var req addressRequest
	req.Address.CustomerID = input.CustomerID
	req.Address.CountryID = input.CountryID
	req.Address.Alias = input.Alias
	if req.Address.Alias == "" {
		req.Address.Alias = "Adres dostawy"
	}
	req.Address.FirstName = input.FirstName
	req.Address.LastName = input.LastName
	req.Address.Address1 = input.Address1
	req.Address.City = input.City
	req.Address.PostCode = input.PostCode
	req.Address.Phone = input.Phone

	var created addressCreateResponse
	if err := c.postXML(ctx, "/addresses", &req, &created); err != nil {
		return 0, fmt.Errorf("prestashop: create address: %w", err)
	}
	return created.Address.ID, nil
}

func (c *Client) CreateCart(ctx context.Context, input CartInput) (int, error) {
	var req cartRequest
	req.Cart.CustomerID = input.CustomerID
	req.Cart.AddressDeliveryID = input.AddressID
	req.Cart.AddressInvoiceID = input.AddressID
	req.Cart.CurrencyID = input.CurrencyID
	req.Cart.LanguageID = input.LanguageID
	for _, item := range input.Items {
		req.Cart.Associations.CartRows.Rows = append(req.Cart.Associations.CartRows.Rows, cartRow{
			ProductID:          item.ProductID,
			ProductAttributeID: item.ProductAttributeID,
			AddressID:          input.AddressID,
			Quantity:           item.Quantity,
		})
	}

	var created cartCreateResponse
	if err := c.postXML(ctx, "/carts", &req, &created); err != nil {
		return 0, fmt.Errorf("prestashop: create cart: %w", err)
	}
	return created.Cart.ID, nil
}

// GetProduct fetches authoritative product details (name, reference, EAN,
// price) for a single product.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var result productResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("output_format", "JSON").
		SetResult(&result).
		Get("/products/" + strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("prestashop: get product %d: %w", id, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("prestashop: get product %d: status %d", id, resp.StatusCode())
	}

	price, err := strconv.ParseFloat(result.Product.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("prestashop: get product %d: bad price %q", id, result.Product.Price)
	}

	return &Product{
		ID:        int(result.Product.ID),
		Name:      string(result.Product.Name),
		Reference: result.Product.Reference,
		EAN13:     result.Product.EAN13,
		Price:     price,
	}, nil
}

// CreateOrder creates the final order. Totals are pre-formatted 6-decimal
// strings matching the webservice convention.
func (c *Client) CreateOrder(ctx context.Context, input OrderInput) (int, string, error) {
	var req orderRequest
	req.Order.CartID = input.CartID
	req.Order.CustomerID = input.CustomerID
	req.Order.AddressDeliveryID = input.AddressID
	req.Order.AddressInvoiceID = input.AddressID
	req.Order.CarrierID = input.CarrierID
	req.Order.CurrencyID = input.CurrencyID
	req.Order.LanguageID = input.LanguageID
	req.Order.Module = input.Module
	req.Order.Payment = input.Payment
	req.Order.TotalPaid = input.TotalPaid
	req.Order.TotalPaidTaxIncl = input.TotalPaid
	req.Order.TotalPaidTaxExcl = input.TotalPaid
	req.Order.TotalPaidReal = "0.000000"
	req.Order.TotalProducts = input.TotalProducts
	req.Order.TotalProductsWT = input.TotalProducts
	req.Order.TotalShipping = input.TotalShipping
	req.Order.ConversionRate = "1.000000"
	req.Order.SecureKey = input.SecureKey

	var created orderCreateResponse
	if err := c.postXML(ctx, "/orders", &req, &created); err != nil {
		return 0, "", fmt.Errorf("prestashop: create order: %w", err)
	}
	return created.Order.ID, created.Order.Reference, nil
}

func (c *Client) postXML(ctx context.Context, path string, body any, out any) error {
	payload, err := xml.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/xml").
		SetBody(append([]byte(xml.Header), payload...)).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		c.logger.Error().
			Str("path", path).
			Int("status", resp.StatusCode()).
			Str("body", truncate(resp.String(), 512)).
			Msg("webservice write rejected")
		return fmt.Errorf("status %d", resp.StatusCode())
	}

	if err := xml.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
