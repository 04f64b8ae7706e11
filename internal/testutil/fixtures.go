package testutil

import (
	"github.com/negativepl/checkout-gateway/internal/checkout"
	"github.com/negativepl/checkout-gateway/internal/prestashop"
)

func NewTestProduct(id int, name string, price float64) *prestashop.Product {
	return &prestashop.Product{
		ID:        id,
		Name:      name,
		Reference: "REF-TEST",
		Price:     price,
	}
}

// NewCheckoutRequest builds a two-line-item COD checkout request with the
// standard test customer.
func NewCheckoutRequest() checkout.Request {
	return checkout.Request{
		Customer: checkout.CustomerForm{
			Email:     "jan.kowalski@example.com",
			FirstName: "Jan",
			LastName:  "Kowalski",
			Address:   "ul. Długa 1",
			City:      "Warszawa",
			Postcode:  "00-001",
			Phone:     "+48123456789",
		},
		Items: []checkout.Item{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ShippingMethod: "dpd_courier",
		PaymentMethod:  "cod",
	}
}
