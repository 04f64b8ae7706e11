package controller

import (
	"errors"
	"net/http"

	domainErrors "github.com/negativepl/checkout-gateway/internal/domain/errors"

	"github.com/negativepl/checkout-gateway/internal/checkout"
)

// CheckoutController handles the storefront order-assembly endpoint.
type CheckoutController struct {
	service *checkout.Service
}

func NewCheckoutController(service *checkout.Service) *CheckoutController {
	return &CheckoutController{service: service}
}

// PlaceOrder handles POST /api/checkout.
//
// The error contract is fixed by the storefront: any saga failure returns
// HTTP 500 with {"error": "<Polish message>"}. Validation failures keep the
// usual 400 shape.
func (h *CheckoutController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := make([]checkout.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, checkout.Item{
			ProductID:          item.ProductID,
			Quantity:           item.Quantity,
			ProductAttributeID: item.ProductAttributeID,
		})
	}

	result, err := h.service.PlaceOrder(r.Context(), checkout.Request{
		CustomerID: req.CustomerID,
		Customer: checkout.CustomerForm{
			Email:     req.Customer.Email,
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Address:   req.Customer.Address,
			City:      req.Customer.City,
			Postcode:  req.Customer.Postcode,
			Phone:     req.Customer.Phone,
		},
		Items:          items,
		ShippingMethod: req.ShippingMethod,
		ShippingPoint:  req.ShippingPoint,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		var validationErr *domainErrors.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, err)
			return
		}
		var domainErr *domainErrors.DomainError
		if errors.As(err, &domainErr) {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: domainErr.Message})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Wystąpił błąd podczas składania zamówienia."})
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		Success:        true,
		OrderID:        result.OrderID,
		OrderReference: result.OrderReference,
		CustomerID:     result.CustomerID,
		CartID:         result.CartID,
		ShippingCost:   result.ShippingCost,
		TotalPaid:      result.TotalPaid,
	})
}
