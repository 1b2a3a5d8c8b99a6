package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"qbadmin/internal/admin"
	"qbadmin/internal/config"
	"qbadmin/internal/gateway"
)

const ledgerID = "3f2b8c1e-9a4d-4c7b-8e21-5d6f7a8b9c0d"

func TestLocalHeuristicRoutes(t *testing.T) {
	tests := []struct {
		input string
		route string
	}{
		{ledgerID, "/finance/ledger/" + ledgerID},
		{"  co_81KX  ", "/finance/cashouts/co_81KX"},
		{"pay_77", "/finance/payment-intents/pay_77"},
		{"KYC_12", "/kyc/KYC_12"},
	}
	for _, tt := range tests {
		got, err := LocalHeuristic{}.Resolve(context.Background(), tt.input)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.input, err)
		}
		if got.Route != tt.route {
			t.Fatalf("Resolve(%q) = %q, want %q", tt.input, got.Route, tt.route)
		}
	}
}

func TestLocalHeuristicRejectsUnknownShapes(t *testing.T) {
	for _, in := range []string{"", "hello", "{" + ledgerID + "}", "task_1"} {
		if _, err := (LocalHeuristic{}).Resolve(context.Background(), in); !errors.Is(err, ErrUnrecognized) {
			t.Fatalf("Resolve(%q) err = %v", in, err)
		}
	}
}

// A UUID goes to the ledger locally with no request, while the backend
// strategy asks and follows the answer.
func TestStrategiesDivergeOnUUID(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/admin/search" || r.URL.Query().Get("id") != ledgerID {
			t.Errorf("unexpected lookup %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entityType":"user","id":"` + ledgerID + `","route":"/users/` + ledgerID + `"}`))
	}))
	defer srv.Close()
	api := admin.New(gateway.New(srv.URL, time.Second, nil, nil))

	local, err := New(config.StrategyLocal, api)
	if err != nil {
		t.Fatal(err)
	}
	got, err := local.Resolve(context.Background(), ledgerID)
	if err != nil || got.Route != "/finance/ledger/"+ledgerID {
		t.Fatalf("local = %+v, %v", got, err)
	}
	if hits.Load() != 0 {
		t.Fatalf("local strategy made %d requests", hits.Load())
	}

	backend, err := New(config.StrategyBackend, api)
	if err != nil {
		t.Fatal(err)
	}
	got, err = backend.Resolve(context.Background(), ledgerID)
	if err != nil || got.Route != "/users/"+ledgerID || got.EntityType != "user" {
		t.Fatalf("backend = %+v, %v", got, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("backend strategy made %d requests", hits.Load())
	}
}

type emptyLookup struct{}

func (emptyLookup) SearchByID(context.Context, string) (admin.SearchResult, error) {
	return admin.SearchResult{}, nil
}

func TestBackendWithoutRouteIsUnrecognized(t *testing.T) {
	_, err := BackendResolved{API: emptyLookup{}}.Resolve(context.Background(), "zzz")
	if !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New("regex", nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := New(config.StrategyBackend, nil); err == nil {
		t.Fatalf("expected error without api")
	}
}
