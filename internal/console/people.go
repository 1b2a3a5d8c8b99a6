package console

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/admin"
	"qbadmin/internal/authz"
)

func (s *Server) kycList() listSpec[admin.KYCSubmission] {
	return listSpec[admin.KYCSubmission]{
		Title:  "KYC submissions",
		Path:   "/kyc",
		Schema: admin.KYCFilters,
		Fetch:  s.app.Admin.ListKYC,
		Link:   func(k admin.KYCSubmission) string { return "/kyc/" + url.PathEscape(k.ID) },
		Columns: []column[admin.KYCSubmission]{
			{"ID", func(k admin.KYCSubmission) string { return k.ID }},
			{"User", func(k admin.KYCSubmission) string { return orDash(k.UserName) }},
			{"Phone", func(k admin.KYCSubmission) string { return orDash(k.Phone) }},
			{"Status", func(k admin.KYCSubmission) string { return k.Status }},
			{"Submitted", func(k admin.KYCSubmission) string { return orDash(k.SubmittedAt) }},
		},
	}
}

func (s *Server) kycDetail() detailSpec {
	return detailSpec{
		Title: "KYC submission",
		Back:  "/kyc",
		Load: func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error) {
			k, err := s.app.Admin.GetKYC(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			v := detailView{Fields: []fieldView{
				{Label: "ID", Value: k.ID},
				{Label: "User", Value: orDash(k.UserName), Link: "/users/" + url.PathEscape(k.UserID)},
				{Label: "Phone", Value: orDash(k.Phone)},
				{Label: "Status", Value: k.Status},
				{Label: "Document type", Value: orDash(k.DocumentType)},
				{Label: "Submitted", Value: orDash(k.SubmittedAt)},
				{Label: "Reviewed by", Value: orDash(k.ReviewedBy)},
				{Label: "Review reason", Value: orDash(k.ReviewReason)},
			}}
			for i, doc := range k.DocumentURLs {
				v.Fields = append(v.Fields, fieldView{Label: fmt.Sprintf("Document %d", i+1), Value: doc, Link: doc})
			}
			if k.SelfieURL != "" {
				v.Fields = append(v.Fields, fieldView{Label: "Selfie", Value: k.SelfieURL, Link: k.SelfieURL})
			}
			enabled := k.Reviewable() && caps.Has(authz.KYCReview)
			base := "/kyc/" + url.PathEscape(k.ID)
			v.Actions = []actionView{
				{Label: "Approve", URL: base + "/approve", Enabled: enabled, Inputs: []inputView{reasonInput(true)}},
				{Label: "Reject", URL: base + "/reject", Enabled: enabled, Inputs: []inputView{reasonInput(true)}},
			}
			return v, nil
		},
	}
}

func (s *Server) routeKYC(r chi.Router) {
	list, detail := s.kycList(), s.kycDetail()
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.KYCReview))
		r.Get("/kyc", serveList(s, list))
		r.Get("/kyc/{id}", s.serveDetail(detail))
		// A reviewed submission leaves the queue, so both go back to the list.
		r.Post("/kyc/{id}/approve", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.ApproveKYC(ctx, id, form.Get("reason"))
			return "/kyc", err
		}))
		r.Post("/kyc/{id}/reject", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.RejectKYC(ctx, id, form.Get("reason"))
			return "/kyc", err
		}))
	})
}

func (s *Server) userList() listSpec[admin.User] {
	return listSpec[admin.User]{
		Title:  "Users",
		Path:   "/users",
		Schema: admin.UserFilters,
		Fetch:  s.app.Admin.ListUsers,
		Link:   func(u admin.User) string { return "/users/" + url.PathEscape(u.ID) },
		Columns: []column[admin.User]{
			{"ID", func(u admin.User) string { return u.ID }},
			{"Name", func(u admin.User) string { return u.Name }},
			{"Phone", func(u admin.User) string { return orDash(u.Phone) }},
			{"Role", func(u admin.User) string { return u.Role }},
			{"KYC", func(u admin.User) string { return orDash(u.KYCStatus) }},
			{"Disabled", func(u admin.User) string { return yesNo(u.Disabled) }},
		},
	}
}

func (s *Server) userDetail() detailSpec {
	return detailSpec{
		Title: "User",
		Back:  "/users",
		Load: func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error) {
			u, err := s.app.Admin.GetUser(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			base := "/users/" + url.PathEscape(u.ID)
			v := detailView{Fields: []fieldView{
				{Label: "ID", Value: u.ID},
				{Label: "Name", Value: u.Name},
				{Label: "Phone", Value: orDash(u.Phone)},
				{Label: "Email", Value: orDash(u.Email)},
				{Label: "Role", Value: u.Role},
				{Label: "KYC", Value: orDash(u.KYCStatus)},
				{Label: "Disabled", Value: yesNo(u.Disabled)},
				{Label: "Permissions", Value: orDash(strings.Join(u.Permissions, ", "))},
				{Label: "Created", Value: orDash(u.CreatedAt)},
			}}
			manage := caps.Has(authz.UserManage)
			v.Actions = []actionView{
				{Label: "Disable", URL: base + "/disable", Enabled: manage && !u.Disabled, Inputs: []inputView{reasonInput(true)}},
				{Label: "Enable", URL: base + "/enable", Enabled: manage && u.Disabled},
				{Label: "Save permissions", URL: base + "/permissions", Enabled: manage && caps.Has(authz.PermissionGrant), Inputs: []inputView{
					{Name: "permissions", Label: "Comma-separated permissions", Value: strings.Join(u.Permissions, ",")},
				}},
			}
			return v, nil
		},
	}
}

func (s *Server) routeUsers(r chi.Router) {
	list, detail := s.userList(), s.userDetail()
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.UserManage))
		r.Get("/users", serveList(s, list))
		r.Get("/users/{id}", s.serveDetail(detail))
		r.Post("/users/{id}/disable", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.DisableUser(ctx, id, form.Get("reason"))
			return "", err
		}))
		r.Post("/users/{id}/enable", s.detailAction(detail, func(ctx context.Context, id string, _ url.Values) (string, error) {
			_, err := s.app.Admin.EnableUser(ctx, id)
			return "", err
		}))
		r.With(s.RequirePermission(authz.PermissionGrant)).Post("/users/{id}/permissions", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.SetUserPermissions(ctx, id, splitList(form.Get("permissions")))
			return "", err
		}))
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// splitList parses a comma or whitespace separated list, dropping blanks.
func splitList(s string) []string {
	out := []string{}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' }) {
		out = append(out, strings.ToUpper(strings.TrimSpace(f)))
	}
	return out
}
