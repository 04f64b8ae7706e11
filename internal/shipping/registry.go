package shipping

import (
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/negativepl/checkout-gateway/internal/domain/errors"
)

// aggregatorSubstrings are the carrier fragments the Furgonetka aggregator
// claims. Any composite method code containing one of these routes to the
// aggregator.
var aggregatorSubstrings = []string{"inpost", "dhl", "zabka", "orlen", "dpd", "gls", "furgonetka"}

// Registry resolves shipping method codes to providers.
//
// Resolution order is deliberate and tested:
//  1. exact provider code match ("inpost" reaches the dedicated InPost
//     adapter, "furgonetka" the aggregator);
//  2. aggregator substring match for composite codes ("inpost_locker",
//     "zabka_courier", "dpd_courier" all route to the aggregator).
//
// The exact-match tier is what keeps the standalone InPost adapter reachable;
// without it the aggregator's "inpost" substring would intercept every InPost
// code.
type Registry struct {
	providers map[string]Provider
	breakers  map[string]*gobreaker.CircuitBreaker[*ShipmentResult]
}

func NewRegistry(providersList ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[*ShipmentResult]),
	}
	for _, p := range providersList {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Code()] = p
	r.breakers[p.Code()] = gobreaker.NewCircuitBreaker[*ShipmentResult](gobreaker.Settings{
		Name:        "shipping_" + p.Code(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Resolve returns the provider responsible for a shipping method code.
func (r *Registry) Resolve(code string) (Provider, error) {
	normalized := strings.ToLower(code)

	if p, ok := r.providers[normalized]; ok {
		return p, nil
	}

	if aggregator, ok := r.providers["furgonetka"]; ok {
		for _, fragment := range aggregatorSubstrings {
			if strings.Contains(normalized, fragment) {
				return aggregator, nil
			}
		}
	}

	return nil, fmt.Errorf("unknown shipping method %q: %w", code, domainErrors.ErrProviderNotFound)
}

// Breaker returns the circuit breaker guarding a provider's shipment calls.
func (r *Registry) Breaker(providerCode string) *gobreaker.CircuitBreaker[*ShipmentResult] {
	return r.breakers[providerCode]
}
