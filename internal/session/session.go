// Package session persists the operator's bearer token and the permission
// claims derived from it.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Key is the single row the session lives under.
const Key = "admin_session"

var ErrNoSession = errors.New("no admin session; log in with a bearer token")

type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s Store) now() string {
	if s.Now == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return s.Now().UTC().Format(time.RFC3339)
}

// Set stores a new token and drops any permission set cached for the old one.
func (s Store) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO kv(key,value,permissions,updated_at) VALUES (?,?,NULL,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, permissions=NULL, updated_at=excluded.updated_at`,
		Key, token, s.now())
	return err
}

// Get returns the stored token or ErrNoSession.
func (s Store) Get(ctx context.Context) (string, error) {
	var token string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, Key).Scan(&token)
	if err == sql.ErrNoRows || (err == nil && token == "") {
		return "", ErrNoSession
	}
	return token, err
}

// Token satisfies gateway.TokenSource: a missing session is not an error,
// the request simply goes out unauthenticated.
func (s Store) Token(ctx context.Context) (string, error) {
	token, err := s.Get(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	return token, err
}

func (s Store) Clear(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, Key)
	return err
}

// Permissions returns the cached permission set, decoding and caching it from
// the token's claims on first use. The signature is not checked; the backend
// verifies every request.
func (s Store) Permissions(ctx context.Context) ([]string, error) {
	var token string
	var cached sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT value, permissions FROM kv WHERE key=?`, Key).Scan(&token, &cached)
	if err == sql.ErrNoRows {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if cached.Valid {
		var perms []string
		if err := json.Unmarshal([]byte(cached.String), &perms); err == nil {
			return perms, nil
		}
	}
	perms, err := ClaimsPermissions(token)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(perms)
	if _, err := s.DB.ExecContext(ctx, `UPDATE kv SET permissions=? WHERE key=? AND value=?`, string(data), Key, token); err != nil {
		return nil, fmt.Errorf("cache permissions: %w", err)
	}
	return perms, nil
}

type claims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions,omitempty"`
	Perms       []string `json:"perms,omitempty"`
	Role        string   `json:"role,omitempty"`
}

// ClaimsPermissions decodes the permission claims embedded in a JWT. The role
// claim counts as a permission so a role of ADMIN grants the wildcard.
func ClaimsPermissions(token string) ([]string, error) {
	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	seen := map[string]bool{}
	perms := []string{}
	add := func(p string) {
		p = strings.TrimSpace(p)
		key := strings.ToUpper(p)
		if p == "" || seen[key] {
			return
		}
		seen[key] = true
		perms = append(perms, p)
	}
	for _, p := range c.Permissions {
		add(p)
	}
	for _, p := range c.Perms {
		add(p)
	}
	add(c.Role)
	return perms, nil
}

// Subject returns the token's sub claim, or "" when it has none.
func Subject(token string) string {
	c := &claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return ""
	}
	return c.Subject
}
