package console

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"qbadmin/internal/app"
	"qbadmin/internal/authz"
	"qbadmin/internal/config"
)

type backendCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// backend is a fake QuickBee API that records every request.
type backend struct {
	mu     sync.Mutex
	calls  []backendCall
	routes map[string]http.HandlerFunc
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.calls = append(b.calls, backendCall{r.Method, r.URL.EscapedPath(), r.URL.RawQuery, string(body)})
	h, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[],"page":1}`))
		return
	}
	h(w, r)
}

func (b *backend) recorded() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

func (b *backend) handle(pattern string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[pattern] = h
}

type testConsole struct {
	URL     string
	server  *Server
	app     *app.App
	backend *backend
	client  *http.Client
}

func newTestConsole(t *testing.T, strategy string) *testConsole {
	t.Helper()
	be := &backend{routes: map[string]http.HandlerFunc{}}
	upstream := httptest.NewServer(be)
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.API.BaseURL = upstream.URL
	if strategy != "" {
		cfg.Search.Strategy = strategy
	}
	a, err := app.Open(context.Background(), t.TempDir(), cfg, nil)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	s, handler, err := newServer(Config{App: a})
	if err != nil {
		t.Fatalf("build console: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testConsole{
		URL:     srv.URL,
		server:  s,
		app:     a,
		backend: be,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-verified-here"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func (c *testConsole) login(t *testing.T, perms ...string) {
	t.Helper()
	token := signToken(t, jwt.MapClaims{"sub": "op-1", "permissions": perms})
	if err := c.app.Session.Set(context.Background(), token); err != nil {
		t.Fatalf("set session: %v", err)
	}
}

func (c *testConsole) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	res, err := c.client.Get(c.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func (c *testConsole) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	res, err := c.client.PostForm(c.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGuardRedirectsToLoginCarryingPath(t *testing.T) {
	c := newTestConsole(t, "")
	res, _ := c.get(t, "/finance/cashouts?status=PAID&methodType=UPI")
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d", res.StatusCode)
	}
	loc, err := url.Parse(res.Header.Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Path != "/login" || loc.Query().Get("next") != "/finance/cashouts?status=PAID&methodType=UPI" {
		t.Fatalf("location = %s", loc)
	}
	if n := len(c.backend.recorded()); n != 0 {
		t.Fatalf("guard let %d requests through", n)
	}
}

func TestLoginReturnsToCapturedPath(t *testing.T) {
	c := newTestConsole(t, "")
	_, body := c.get(t, "/login?next="+url.QueryEscape("/tasks?status=OPEN"))
	if !strings.Contains(body, `name="next" value="/tasks?status=OPEN"`) {
		t.Fatalf("login form lost next:\n%s", body)
	}
	token := signToken(t, jwt.MapClaims{"sub": "op-1", "permissions": []string{"TASK_MANAGE"}})
	res, _ := c.post(t, "/login", url.Values{"token": {token}, "next": {"/tasks?status=OPEN"}})
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/tasks?status=OPEN" {
		t.Fatalf("login redirect = %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	if got, err := c.app.Session.Get(context.Background()); err != nil || got != token {
		t.Fatalf("session not stored: %v", err)
	}
}

func TestLoginIgnoresForeignNext(t *testing.T) {
	c := newTestConsole(t, "")
	token := signToken(t, jwt.MapClaims{"sub": "op-1"})
	for _, next := range []string{"//evil.example/x", "https://evil.example/", "/login", ""} {
		res, _ := c.post(t, "/login", url.Values{"token": {token}, "next": {next}})
		if loc := res.Header.Get("Location"); loc != "/dashboard" {
			t.Fatalf("next %q redirected to %q", next, loc)
		}
	}
}

func TestLoginRejectsGarbage(t *testing.T) {
	c := newTestConsole(t, "")
	res, body := c.post(t, "/login", url.Values{"token": {"not a jwt"}})
	if res.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(body, "does not look like a JWT") {
		t.Fatalf("status = %d body = %s", res.StatusCode, body)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.Admin)
	res, _ := c.post(t, "/logout", nil)
	if res.Header.Get("Location") != "/login" {
		t.Fatalf("logout location = %q", res.Header.Get("Location"))
	}
	res, _ = c.get(t, "/dashboard")
	if !strings.HasPrefix(res.Header.Get("Location"), "/login") {
		t.Fatalf("expected login redirect after logout, got %q", res.Header.Get("Location"))
	}
}

func TestPermissionGuardFailsClosed(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.FinanceView)
	res, _ := c.get(t, "/kyc")
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/dashboard" {
		t.Fatalf("got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	res, body := c.get(t, "/finance/cashouts")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("finance page status %d", res.StatusCode)
	}
	if strings.Contains(body, `href="/kyc"`) {
		t.Fatalf("nav shows a page the session cannot open")
	}
}

func TestAdminOpensEveryPage(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, "admin")
	for _, e := range navEntries {
		res, _ := c.get(t, e.Href)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", e.Href, res.StatusCode)
		}
	}
}

func TestKYCApproveIssuesOneRequestAndLeaves(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.KYCReview)
	c.backend.handle("POST /admin/kyc/submissions/k1/approve", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "k1", "status": "APPROVED"})
	})
	res, _ := c.post(t, "/kyc/k1/approve", url.Values{"reason": {"Documents verified"}})
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/kyc" {
		t.Fatalf("got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
	calls := c.backend.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected one backend request, got %+v", calls)
	}
	if calls[0].Method != http.MethodPost || calls[0].Path != "/admin/kyc/submissions/k1/approve" {
		t.Fatalf("request = %+v", calls[0])
	}
	if strings.TrimSpace(calls[0].Body) != `{"reason":"Documents verified"}` {
		t.Fatalf("body = %s", calls[0].Body)
	}
}

var nextLink = regexp.MustCompile(`rel="next" href="([^"]+)"`)

func TestNextLinkAdvancesOnePage(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.TaskManage)
	c.backend.handle("GET /admin/tasks", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "page": page, "hasMore": true})
	})
	_, body := c.get(t, "/tasks?status=open")
	if strings.Contains(body, `rel="prev"`) {
		t.Fatalf("prev must be disabled on page 1")
	}
	m := nextLink.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no next link in:\n%s", body)
	}
	next := html.UnescapeString(m[1])
	if next != "/tasks?status=OPEN&page=2&pageSize=20" {
		t.Fatalf("next link = %q", next)
	}
	c.get(t, next)
	calls := c.backend.recorded()
	if len(calls) != 2 || calls[0].Query != "status=OPEN&page=1&pageSize=20" || calls[1].Query != "status=OPEN&page=2&pageSize=20" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestCashoutExportDownload(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.FinanceView)
	c.backend.handle("GET /admin/finance/cashouts/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK"))
	})
	res, body := c.get(t, "/finance/cashouts/export?status=PAID&methodType=UPI")
	if res.StatusCode != http.StatusOK || body != "PK" {
		t.Fatalf("status = %d body = %q", res.StatusCode, body)
	}
	cd := res.Header.Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, ".xlsx") {
		t.Fatalf("content-disposition = %q", cd)
	}
	calls := c.backend.recorded()
	if len(calls) != 1 || calls[0].Path != "/admin/finance/cashouts/export" || calls[0].Query != "status=PAID&methodType=UPI" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestCashoutButtonsFollowAdvisoryMirror(t *testing.T) {
	c := newTestConsole(t, "")
	c.backend.handle("GET /admin/finance/cashouts/co_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "co_1", "status": "PROCESSING", "amount": 50000, "methodType": "UPI"})
	})
	caps := authz.New([]string{authz.FinanceManage})
	view, err := c.server.cashoutDetail().Load(context.Background(), "co_1", caps)
	if err != nil {
		t.Fatal(err)
	}
	enabled := map[string]bool{}
	for _, a := range view.Actions {
		enabled[a.Label] = a.Enabled
	}
	want := map[string]bool{"Mark Processing": false, "Mark Paid": true, "Mark Failed": true, "Cancel": false}
	for label, on := range want {
		if enabled[label] != on {
			t.Fatalf("%s enabled = %v, want %v", label, enabled[label], on)
		}
	}
	view, _ = c.server.cashoutDetail().Load(context.Background(), "co_1", authz.New([]string{authz.FinanceView}))
	for _, a := range view.Actions {
		if a.Enabled {
			t.Fatalf("%s enabled without FINANCE_MANAGE", a.Label)
		}
	}
}

func TestPermissionsButtonNeedsBothGuards(t *testing.T) {
	c := newTestConsole(t, "")
	c.backend.handle("GET /admin/users/u1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "name": "Asha", "role": "HELPER"})
	})
	cases := []struct {
		perms []string
		want  bool
	}{
		{[]string{authz.PermissionGrant}, false},
		{[]string{authz.UserManage}, false},
		{[]string{authz.UserManage, authz.PermissionGrant}, true},
		{[]string{authz.Admin}, true},
	}
	for _, tc := range cases {
		view, err := c.server.userDetail().Load(context.Background(), "u1", authz.New(tc.perms))
		if err != nil {
			t.Fatal(err)
		}
		for _, a := range view.Actions {
			if a.Label == "Save permissions" && a.Enabled != tc.want {
				t.Fatalf("%v: permissions enabled = %v, want %v", tc.perms, a.Enabled, tc.want)
			}
		}
	}

	c.login(t, authz.PermissionGrant)
	res, _ := c.post(t, "/users/u1/permissions", url.Values{"permissions": {"KYC_REVIEW"}})
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/dashboard" {
		t.Fatalf("grant-only post = %d %s", res.StatusCode, res.Header.Get("Location"))
	}
	for _, call := range c.backend.recorded() {
		if call.Method == http.MethodPut {
			t.Fatalf("permissions sent without USER_MANAGE: %+v", call)
		}
	}
}

func TestActionErrorRendersInline(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.FinanceManage)
	c.backend.handle("POST /admin/finance/cashouts/co_1/paid", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cashout is not PROCESSING"})
	})
	c.backend.handle("GET /admin/finance/cashouts/co_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "co_1", "status": "REQUESTED", "amount": 50000})
	})
	res, body := c.post(t, "/finance/cashouts/co_1/paid", url.Values{"reference": {"UTR1"}})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if !strings.Contains(body, "cashout is not PROCESSING") || !strings.Contains(body, "₹500.00") {
		t.Fatalf("page lacks inline error or entity:\n%s", body)
	}
}

func TestSearchRedirects(t *testing.T) {
	c := newTestConsole(t, config.StrategyLocal)
	c.login(t)
	const id = "3f2b8c1e-9a4d-4c7b-8e21-5d6f7a8b9c0d"
	res, _ := c.get(t, "/search?q="+id)
	if res.Header.Get("Location") != "/finance/ledger/"+id {
		t.Fatalf("location = %q", res.Header.Get("Location"))
	}
	if n := len(c.backend.recorded()); n != 0 {
		t.Fatalf("local search made %d requests", n)
	}
	res, _ = c.get(t, "/search?q=hello")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unrecognized id status = %d", res.StatusCode)
	}
}

func TestDashboardPanelsFailIndependently(t *testing.T) {
	c := newTestConsole(t, "")
	c.login(t, authz.KYCReview, authz.JobsManage)
	c.backend.handle("GET /admin/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": map[string]string{"message": "db down"}})
	})
	c.backend.handle("GET /admin/kyc/submissions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "total": 7})
	})
	res, body := c.get(t, "/dashboard")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if !strings.Contains(body, "db down") || !strings.Contains(body, "7 pending") {
		t.Fatalf("dashboard:\n%s", body)
	}
	if strings.Contains(body, "Cashouts</h2>") {
		t.Fatalf("cashout panel shown without FINANCE_VIEW")
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/users/u1":          "/users/u1",
		"/tasks?status=OPEN": "/tasks?status=OPEN",
		"//evil":             "/x",
		"/\\evil":            "/x",
		"http://evil/":       "/x",
		"users":              "/x",
		"/logout":            "/x",
	}
	for in, want := range tests {
		if got := SafeNext(in, "/x"); got != want {
			t.Fatalf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
