package app

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"qbadmin/internal/authz"
	"qbadmin/internal/config"
	"qbadmin/internal/search"
	"qbadmin/internal/session"
)

func TestOpenWiresConfiguredStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Strategy = config.StrategyLocal
	a, err := Open(context.Background(), t.TempDir(), cfg, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	if _, ok := a.Search.(search.LocalHeuristic); !ok {
		t.Fatalf("expected local resolver, got %T", a.Search)
	}
	if a.Gateway.Timeout != cfg.API.Timeout.Std() {
		t.Fatalf("timeout not applied")
	}
}

func TestCapabilitiesFollowSession(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	if _, err := a.Capabilities(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         "op-1",
		"permissions": []string{"finance_view"},
	}).SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Session.Set(ctx, token); err != nil {
		t.Fatal(err)
	}
	caps, err := a.Capabilities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !caps.Has(authz.FinanceView) || caps.Has(authz.FinanceManage) {
		t.Fatalf("capabilities = %v", caps.List())
	}
}
