package admin

import (
	"context"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

const (
	RoleHelper   = "HELPER"
	RoleConsumer = "CONSUMER"
	RoleAdmin    = "ADMIN"
	RoleSupport  = "SUPPORT"
)

const usersPath = "/admin/users"

type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Disabled    bool     `json:"disabled"`
	KYCStatus   string   `json:"kycStatus,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

var UserFilters = listing.Schema{Fields: []listing.Field{
	{Key: "role", Label: "Role", Choices: []string{RoleHelper, RoleConsumer, RoleAdmin, RoleSupport}},
	{Key: "disabled", Label: "Disabled", Choices: []string{"TRUE", "FALSE"}},
	{Key: "q", Label: "Name / phone"},
}}

func (s *Service) ListUsers(ctx context.Context, q gateway.Query) (Page[User], error) {
	var page Page[User]
	err := s.list(ctx, usersPath, q, &page)
	return page, err
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	if err := requireID("user", id); err != nil {
		return u, err
	}
	err := s.get(ctx, resource(usersPath, id), &u)
	return u, err
}

// DisableUser is idempotent; Already reports a user that was disabled before.
func (s *Service) DisableUser(ctx context.Context, id, reason string) (ToggleResult, error) {
	var res ToggleResult
	if err := requireID("user", id); err != nil {
		return res, err
	}
	err := s.post(ctx, resource(usersPath, id, "disable"), reasonBody{Reason: reason}, &res)
	return res, err
}

func (s *Service) EnableUser(ctx context.Context, id string) (ToggleResult, error) {
	var res ToggleResult
	if err := requireID("user", id); err != nil {
		return res, err
	}
	err := s.post(ctx, resource(usersPath, id, "enable"), struct{}{}, &res)
	return res, err
}

// SetUserPermissions replaces the user's permission grants.
func (s *Service) SetUserPermissions(ctx context.Context, id string, perms []string) (User, error) {
	var u User
	if err := requireID("user", id); err != nil {
		return u, err
	}
	if perms == nil {
		perms = []string{}
	}
	body := struct {
		Permissions []string `json:"permissions"`
	}{perms}
	err := s.put(ctx, resource(usersPath, id, "permissions"), body, &u)
	return u, err
}
