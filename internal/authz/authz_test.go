package authz

import (
	"context"
	"errors"
	"testing"
)

var allPermissions = []string{
	KYCReview, TaskManage, UserManage, PermissionGrant, IssueManage, RatingModerate,
	FinanceView, FinanceManage, TaxonomyManage, AuditView, JobsManage, ConfigManage,
}

func TestHasIsCaseInsensitiveMembership(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		required []string
		want     bool
	}{
		{"exact match", []string{KYCReview}, []string{KYCReview}, true},
		{"lower-case held", []string{"kyc_review"}, []string{KYCReview}, true},
		{"lower-case required", []string{KYCReview}, []string{"kyc_review"}, true},
		{"any of list", []string{FinanceView}, []string{FinanceManage, FinanceView}, true},
		{"disjoint", []string{FinanceView}, []string{FinanceManage, UserManage}, false},
		{"no permissions", nil, []string{AuditView}, false},
		{"empty requirement", nil, nil, true},
		{"admin lower-case", []string{"admin"}, []string{ConfigManage}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.held).Has(tt.required...); got != tt.want {
				t.Fatalf("Has(%v) with %v = %v, want %v", tt.required, tt.held, got, tt.want)
			}
		})
	}
}

// Adding ADMIN to any permission set makes every requirement pass.
func TestAdminSatisfiesEveryRequirement(t *testing.T) {
	heldSets := [][]string{nil, {}, {KYCReview}, {"audit_view", "jobs_manage"}}
	for _, held := range heldSets {
		caps := New(append(append([]string{}, held...), "Admin"))
		for i := range allPermissions {
			for j := i; j < len(allPermissions); j++ {
				req := allPermissions[i : j+1]
				if !caps.Has(req...) {
					t.Fatalf("admin with %v failed %v", held, req)
				}
			}
		}
		if !caps.Has("SOMETHING_NEW") {
			t.Fatalf("admin should satisfy unknown permissions")
		}
	}
}

// Without ADMIN, Has(R) is true iff the sets intersect.
func TestHasMatchesIntersection(t *testing.T) {
	for i, p := range allPermissions {
		caps := New([]string{p})
		for j, q := range allPermissions {
			if got := caps.Has(q); got != (i == j) {
				t.Fatalf("Has(%s) with %s = %v", q, p, got)
			}
		}
	}
}

func TestRequireAndContext(t *testing.T) {
	caps := New([]string{AuditView})
	err := caps.Require(JobsManage)
	var fe ForbiddenError
	if !errors.As(err, &fe) || fe.Required[0] != JobsManage {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	ctx := WithCapabilities(context.Background(), caps)
	if !FromContext(ctx).Has(AuditView) {
		t.Fatalf("capabilities lost in context")
	}
	if FromContext(context.Background()).Has(AuditView) {
		t.Fatalf("missing capabilities must fail closed")
	}
	if got := New([]string{"b", "A"}).List(); got[0] != "A" || got[1] != "B" {
		t.Fatalf("List = %v", got)
	}
}
