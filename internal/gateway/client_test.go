package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestBearerInjectedWhenTokenPresent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, StaticToken("abc"), nil)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Do(context.Background(), http.MethodGet, "/admin/health", nil, nil, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if !out.OK {
		t.Fatalf("response not decoded")
	}
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var sawHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	for _, tokens := range []TokenSource{nil, StaticToken("")} {
		c := New(srv.URL, time.Second, tokens, nil)
		if err := c.Do(context.Background(), http.MethodGet, "admin/health", nil, nil, nil); err != nil {
			t.Fatalf("do: %v", err)
		}
		if sawHeader {
			t.Fatalf("unauthenticated request carried Authorization")
		}
	}
}

func TestAPIErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"error":"KYC already approved"}`, "KYC already approved"},
		{`{"message":"cashout not found"}`, "cashout not found"},
		{`{"error":{"code":"forbidden","message":"missing FINANCE_MANAGE"}}`, "missing FINANCE_MANAGE"},
		{`<html>bad gateway</html>`, ""},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(tc.body))
		}))
		c := New(srv.URL, time.Second, nil, nil)
		err := c.Do(context.Background(), http.MethodPost, "/admin/x", nil, map[string]string{"a": "b"}, nil)
		srv.Close()
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusConflict || apiErr.Message != tc.want {
			t.Fatalf("body %s: got status %d message %q", tc.body, apiErr.StatusCode, apiErr.Message)
		}
	}
}

func TestSingleAttemptNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second, nil, nil)
	if err := c.Do(context.Background(), http.MethodGet, "/admin/jobs", nil, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestTimeoutApplies(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	c := New(srv.URL, 50*time.Millisecond, nil, nil)
	err := c.Do(context.Background(), http.MethodGet, "/slow", nil, nil, nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("timeout must surface as a transport error, got %v", err)
	}
}

func TestDownloadAndQueryEncoding(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="cashouts.xlsx"`)
		w.Write([]byte("PK\x03\x04"))
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second, nil, nil)
	blob, err := c.Download(context.Background(), "/admin/finance/cashouts/export", url.Values{"status": {"PAID"}})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if rawQuery != "status=PAID" {
		t.Fatalf("query = %q", rawQuery)
	}
	if blob.Filename != "cashouts.xlsx" || string(blob.Data) != "PK\x03\x04" {
		t.Fatalf("blob = %+v", blob)
	}
}

func TestURLJoin(t *testing.T) {
	c := &Client{BaseURL: "https://api.example.com/"}
	if got := c.URL("/admin/kyc", nil); got != "https://api.example.com/admin/kyc" {
		t.Fatalf("URL = %q", got)
	}
	if got := c.URL("admin/kyc", url.Values{}); got != "https://api.example.com/admin/kyc" {
		t.Fatalf("URL with empty query = %q", got)
	}
}

func TestCallerCancellationAbortsRequest(t *testing.T) {
	arrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer srv.Close()
	c := New(srv.URL, 5*time.Second, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-arrived
		cancel()
	}()
	err := c.Do(ctx, http.MethodGet, "/admin/kyc/submissions", nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
