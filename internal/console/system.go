package console

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/admin"
	"qbadmin/internal/authz"
	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

var errUnknownAction = errors.New("unknown action")

func (s *Server) routeTaxonomy(r chi.Router) {
	list := listSpec[admin.Category]{
		Title:  "Taxonomy",
		Path:   "/taxonomy",
		Schema: admin.CategoryFilters,
		Fetch:  s.app.Admin.ListCategories,
		Columns: []column[admin.Category]{
			{"ID", func(c admin.Category) string { return c.ID }},
			{"Name", func(c admin.Category) string { return c.Name }},
			{"Slug", func(c admin.Category) string { return c.Slug }},
			{"Parent", func(c admin.Category) string { return orDash(c.ParentID) }},
			{"Active", func(c admin.Category) string { return yesNo(c.Active) }},
		},
		Forms: func(caps authz.Capabilities) []actionView {
			return []actionView{{Label: "Create category", URL: "/taxonomy", Enabled: caps.Has(authz.TaxonomyManage), Inputs: []inputView{
				{Name: "name", Label: "Name", Required: true},
				{Name: "slug", Label: "Slug"},
				{Name: "parentId", Label: "Parent id"},
			}}}
		},
		RowActions: func(c admin.Category, caps authz.Capabilities) []actionView {
			base := "/taxonomy/" + url.PathEscape(c.ID)
			toggle := actionView{Label: "Deactivate", URL: base + "/deactivate", Enabled: caps.Has(authz.TaxonomyManage)}
			if !c.Active {
				toggle = actionView{Label: "Activate", URL: base + "/activate", Enabled: caps.Has(authz.TaxonomyManage)}
			}
			return []actionView{
				{Label: "Rename", URL: base, Enabled: caps.Has(authz.TaxonomyManage), Inputs: []inputView{
					{Name: "name", Label: "Name", Value: c.Name, Required: true},
				}},
				toggle,
			}
		},
	}
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.TaxonomyManage))
		r.Get("/taxonomy", serveList(s, list))
		r.Post("/taxonomy", listAction(s, list, func(ctx context.Context, _ string, form url.Values) (string, error) {
			in := admin.CategoryInput{Name: optional(form.Get("name")), Slug: optional(form.Get("slug")), ParentID: optional(form.Get("parentId"))}
			_, err := s.app.Admin.CreateCategory(ctx, in)
			return "", err
		}))
		r.Post("/taxonomy/{id}", listAction(s, list, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.UpdateCategory(ctx, id, admin.CategoryInput{Name: optional(form.Get("name"))})
			return "", err
		}))
		r.Post("/taxonomy/{id}/activate", listAction(s, list, s.setCategoryActive(true)))
		r.Post("/taxonomy/{id}/deactivate", listAction(s, list, s.setCategoryActive(false)))
	})
}

func (s *Server) setCategoryActive(active bool) formFunc {
	return func(ctx context.Context, id string, _ url.Values) (string, error) {
		_, err := s.app.Admin.UpdateCategory(ctx, id, admin.CategoryInput{Active: &active})
		return "", err
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) routeAudit(r chi.Router) {
	list := listSpec[admin.AuditEntry]{
		Title:  "Audit log",
		Path:   "/audit",
		Schema: admin.AuditFilters,
		Fetch:  s.app.Admin.ListAudit,
		Columns: []column[admin.AuditEntry]{
			{"At", func(e admin.AuditEntry) string { return e.At }},
			{"Actor", func(e admin.AuditEntry) string { return e.ActorID }},
			{"Action", func(e admin.AuditEntry) string { return e.Action }},
			{"Entity", func(e admin.AuditEntry) string { return e.EntityType + " " + e.EntityID }},
			{"Metadata", func(e admin.AuditEntry) string { return orDash(string(e.Metadata)) }},
		},
	}
	r.With(s.RequirePermission(authz.AuditView)).Get("/audit", serveList(s, list))
}

func (s *Server) routeJobs(r chi.Router) {
	list := listSpec[admin.Job]{
		Title:  "Jobs",
		Path:   "/jobs",
		Schema: admin.JobFilters,
		Fetch:  s.app.Admin.ListJobs,
		Link:   func(j admin.Job) string { return "/jobs/" + url.PathEscape(j.ID) },
		Columns: []column[admin.Job]{
			{"Name", func(j admin.Job) string { return j.Name }},
			{"Status", func(j admin.Job) string { return j.Status }},
			{"Schedule", func(j admin.Job) string { return orDash(j.Schedule) }},
			{"Last run", func(j admin.Job) string { return orDash(j.LastRunAt) }},
			{"Next run", func(j admin.Job) string { return orDash(j.NextRunAt) }},
			{"Last error", func(j admin.Job) string { return orDash(j.LastError) }},
		},
		RowActions: func(j admin.Job, caps authz.Capabilities) []actionView {
			return []actionView{{Label: "Run now", URL: "/jobs/" + url.PathEscape(j.Name) + "/run", Enabled: caps.Has(authz.JobsManage) && j.Status != admin.JobRunning}}
		},
	}
	detail := detailSpec{
		Title: "Job",
		Back:  "/jobs",
		Load: func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error) {
			j, err := s.app.Admin.GetJob(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			return detailView{
				Fields: []fieldView{
					{Label: "ID", Value: j.ID},
					{Label: "Name", Value: j.Name},
					{Label: "Status", Value: j.Status},
					{Label: "Schedule", Value: orDash(j.Schedule)},
					{Label: "Last run", Value: orDash(j.LastRunAt)},
					{Label: "Next run", Value: orDash(j.NextRunAt)},
					{Label: "Last error", Value: orDash(j.LastError)},
				},
				Actions: []actionView{{Label: "Run now", URL: "/jobs/" + url.PathEscape(j.Name) + "/run", Enabled: caps.Has(authz.JobsManage) && j.Status != admin.JobRunning}},
			}, nil
		},
	}
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.JobsManage))
		r.Get("/jobs", serveList(s, list))
		r.Get("/jobs/{id}", s.serveDetail(detail))
		r.Post("/jobs/{id}/run", listAction(s, list, func(ctx context.Context, name string, _ url.Values) (string, error) {
			_, err := s.app.Admin.RunJob(ctx, name)
			return "", err
		}))
	})
}

func (s *Server) routeConfig(r chi.Router) {
	list := listSpec[admin.ConfigEntry]{
		Title:  "Backend config",
		Path:   "/config",
		Schema: listing.Schema{},
		Fetch: func(ctx context.Context, _ gateway.Query) (admin.Page[admin.ConfigEntry], error) {
			entries, err := s.app.Admin.ListConfig(ctx)
			return admin.Page[admin.ConfigEntry]{Items: entries, Page: 1}, err
		},
		Columns: []column[admin.ConfigEntry]{
			{"Key", func(e admin.ConfigEntry) string { return e.Key }},
			{"Value", func(e admin.ConfigEntry) string { return e.Value }},
			{"Updated", func(e admin.ConfigEntry) string { return orDash(e.UpdatedAt) }},
		},
		RowActions: func(e admin.ConfigEntry, caps authz.Capabilities) []actionView {
			return []actionView{{Label: "Save", URL: "/config/" + url.PathEscape(e.Key), Enabled: caps.Has(authz.ConfigManage), Inputs: []inputView{
				{Name: "value", Label: "Value", Value: e.Value},
			}}}
		},
	}
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.ConfigManage))
		r.Get("/config", serveList(s, list))
		r.Post("/config/{id}", listAction(s, list, func(ctx context.Context, key string, form url.Values) (string, error) {
			_, err := s.app.Admin.SetConfig(ctx, key, form.Get("value"))
			return "", err
		}))
	})
}
