package payments

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/negativepl/checkout-gateway/internal/domain/errors"
)

// Registry holds the configured payment providers keyed by exact code.
// Providers are constructor-injected; there is no lazy module-level state.
type Registry struct {
	providers map[string]Provider
	breakers  map[string]*gobreaker.CircuitBreaker[*Result]
}

func NewRegistry(providersList ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}
	for _, p := range providersList {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Code()] = p
	r.breakers[p.Code()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        p.Code(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get resolves a provider by exact code along with its circuit breaker.
func (r *Registry) Get(code string) (Provider, *gobreaker.CircuitBreaker[*Result], error) {
	p, ok := r.providers[code]
	if !ok {
		return nil, nil, fmt.Errorf("unknown payment provider %q: %w", code, domainErrors.ErrProviderNotFound)
	}
	return p, r.breakers[code], nil
}

// Codes lists the registered provider codes.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}
	return codes
}
