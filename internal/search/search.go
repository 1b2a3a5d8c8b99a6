// Package search resolves a pasted identifier to the console page that shows
// it. Two strategies exist and configuration picks exactly one.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"qbadmin/internal/admin"
	"qbadmin/internal/config"
)

// ErrUnrecognized means the input matched no known id shape.
var ErrUnrecognized = errors.New("unrecognized id")

// Target is where a resolved id should be opened.
type Target struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
	Route      string `json:"route"`
}

type Resolver interface {
	Resolve(ctx context.Context, input string) (Target, error)
	Strategy() string
}

// Console routes that search can land on.
const (
	RouteLedger        = "/finance/ledger/"
	RouteCashout       = "/finance/cashouts/"
	RoutePaymentIntent = "/finance/payment-intents/"
	RouteKYC           = "/kyc/"
)

// LocalHeuristic guesses from the id's shape and never calls the network.
type LocalHeuristic struct{}

func (LocalHeuristic) Strategy() string { return config.StrategyLocal }

func (LocalHeuristic) Resolve(_ context.Context, input string) (Target, error) {
	id := strings.TrimSpace(input)
	if id == "" {
		return Target{}, ErrUnrecognized
	}
	if _, err := uuid.Parse(id); err == nil && len(id) == 36 {
		return target("ledger", id, RouteLedger), nil
	}
	lower := strings.ToLower(id)
	switch {
	case strings.HasPrefix(lower, "co_"):
		return target("cashout", id, RouteCashout), nil
	case strings.HasPrefix(lower, "pay_"):
		return target("paymentIntent", id, RoutePaymentIntent), nil
	case strings.HasPrefix(lower, "kyc_"):
		return target("kyc", id, RouteKYC), nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrUnrecognized, id)
}

func target(kind, id, prefix string) Target {
	return Target{EntityType: kind, ID: id, Route: prefix + url.PathEscape(id)}
}

// Lookup is the backend call BackendResolved depends on.
type Lookup interface {
	SearchByID(ctx context.Context, id string) (admin.SearchResult, error)
}

// BackendResolved asks the backend and trusts its answer.
type BackendResolved struct {
	API Lookup
}

func (BackendResolved) Strategy() string { return config.StrategyBackend }

func (b BackendResolved) Resolve(ctx context.Context, input string) (Target, error) {
	id := strings.TrimSpace(input)
	if id == "" {
		return Target{}, ErrUnrecognized
	}
	res, err := b.API.SearchByID(ctx, id)
	if err != nil {
		return Target{}, err
	}
	if res.Route == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrUnrecognized, id)
	}
	return Target{EntityType: res.EntityType, ID: res.ID, Route: res.Route}, nil
}

// New returns the resolver for a configured strategy.
func New(strategy string, api Lookup) (Resolver, error) {
	switch strategy {
	case config.StrategyLocal:
		return LocalHeuristic{}, nil
	case config.StrategyBackend, "":
		if api == nil {
			return nil, errors.New("backend search needs an api client")
		}
		return BackendResolved{API: api}, nil
	}
	return nil, fmt.Errorf("unknown search strategy %q", strategy)
}
