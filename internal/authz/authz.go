// Package authz evaluates an operator's permission set against the
// capabilities a page or action requires.
package authz

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Admin satisfies every check.
const Admin = "ADMIN"

const (
	KYCReview       = "KYC_REVIEW"
	TaskManage      = "TASK_MANAGE"
	UserManage      = "USER_MANAGE"
	PermissionGrant = "PERMISSION_GRANT"
	IssueManage     = "ISSUE_MANAGE"
	RatingModerate  = "RATING_MODERATE"
	FinanceView     = "FINANCE_VIEW"
	FinanceManage   = "FINANCE_MANAGE"
	TaxonomyManage  = "TAXONOMY_MANAGE"
	AuditView       = "AUDIT_VIEW"
	JobsManage      = "JOBS_MANAGE"
	ConfigManage    = "CONFIG_MANAGE"
)

// ForbiddenError indicates none of the required permissions are held.
type ForbiddenError struct {
	Required []string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("one of permissions %s required", strings.Join(e.Required, ", "))
}

// Capabilities is an immutable, case-folded permission set.
type Capabilities struct {
	set map[string]struct{}
}

func New(perms []string) Capabilities {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return Capabilities{set: set}
}

// Has reports whether any of required is held (logical OR), or ADMIN is.
// An empty required list only asks for a session.
func (c Capabilities) Has(required ...string) bool {
	if _, ok := c.set[Admin]; ok {
		return true
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if _, ok := c.set[strings.ToUpper(strings.TrimSpace(r))]; ok {
			return true
		}
	}
	return false
}

// Require returns ForbiddenError when Has(required...) is false.
func (c Capabilities) Require(required ...string) error {
	if c.Has(required...) {
		return nil
	}
	return ForbiddenError{Required: required}
}

func (c Capabilities) IsAdmin() bool {
	_, ok := c.set[Admin]
	return ok
}

// List returns the held permissions, sorted.
func (c Capabilities) List() []string {
	out := make([]string, 0, len(c.set))
	for p := range c.set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type capabilitiesKey struct{}

func WithCapabilities(ctx context.Context, c Capabilities) context.Context {
	return context.WithValue(ctx, capabilitiesKey{}, c)
}

// FromContext returns the request's capabilities; an empty set when none were
// attached, so checks fail closed.
func FromContext(ctx context.Context) Capabilities {
	if c, ok := ctx.Value(capabilitiesKey{}).(Capabilities); ok {
		return c
	}
	return Capabilities{}
}
