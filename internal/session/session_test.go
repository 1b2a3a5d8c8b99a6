package session

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"qbadmin/internal/db"
)

func newStore(t *testing.T) Store {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return Store{DB: conn}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestSetGetClear(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Get(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := s.Set(ctx, "  tok-1  "); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(ctx)
	if err != nil || got != "tok-1" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if err := s.Set(ctx, "tok-2"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ := s.Get(ctx); got != "tok-2" {
		t.Fatalf("expected replaced token, got %q", got)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.Get(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
	tok, err := s.Token(ctx)
	if err != nil || tok != "" {
		t.Fatalf("Token without session = %q, %v; want empty, nil", tok, err)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	s := newStore(t)
	if err := s.Set(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank token")
	}
}

func TestPermissionsDecodedOnceAndCached(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	token := signToken(t, jwt.MapClaims{
		"sub":         "admin-7",
		"permissions": []string{"KYC_REVIEW", "finance_view", "KYC_REVIEW"},
		"role":        "SUPPORT",
	})
	if err := s.Set(ctx, token); err != nil {
		t.Fatal(err)
	}
	perms, err := s.Permissions(ctx)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	want := []string{"KYC_REVIEW", "finance_view", "SUPPORT"}
	if len(perms) != len(want) {
		t.Fatalf("perms = %v, want %v", perms, want)
	}
	for i := range want {
		if perms[i] != want[i] {
			t.Fatalf("perms = %v, want %v", perms, want)
		}
	}
	var cached string
	if err := s.DB.QueryRowContext(ctx, `SELECT permissions FROM kv WHERE key=?`, Key).Scan(&cached); err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if cached == "" {
		t.Fatalf("expected cached permission json")
	}
	if Subject(token) != "admin-7" {
		t.Fatalf("subject = %q", Subject(token))
	}
}

func TestSetDropsCachedPermissions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, signToken(t, jwt.MapClaims{"perms": []string{"USER_MANAGE"}})); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Permissions(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, signToken(t, jwt.MapClaims{"role": "ADMIN"})); err != nil {
		t.Fatal(err)
	}
	perms, err := s.Permissions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 1 || perms[0] != "ADMIN" {
		t.Fatalf("expected fresh claims [ADMIN], got %v", perms)
	}
}

func TestPermissionsWithoutSession(t *testing.T) {
	s := newStore(t)
	if _, err := s.Permissions(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestPermissionsMalformedToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, "not-a-jwt"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Permissions(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
}
