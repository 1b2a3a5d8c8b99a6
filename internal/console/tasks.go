package console

import (
	"context"
	"net/url"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/admin"
	"qbadmin/internal/authz"
	"qbadmin/internal/money"
)

func (s *Server) taskList() listSpec[admin.Task] {
	return listSpec[admin.Task]{
		Title:  "Tasks",
		Path:   "/tasks",
		Schema: admin.TaskFilters,
		Fetch:  s.app.Admin.ListTasks,
		Link:   func(t admin.Task) string { return "/tasks/" + url.PathEscape(t.ID) },
		Columns: []column[admin.Task]{
			{"ID", func(t admin.Task) string { return t.ID }},
			{"Title", func(t admin.Task) string { return t.Title }},
			{"Status", func(t admin.Task) string { return t.Status }},
			{"Payment", func(t admin.Task) string { return t.PaymentMode }},
			{"Amount", func(t admin.Task) string { return money.Format(t.Amount) }},
			{"Created", func(t admin.Task) string { return orDash(t.CreatedAt) }},
		},
	}
}

func (s *Server) taskDetail() detailSpec {
	return detailSpec{
		Title: "Task",
		Back:  "/tasks",
		Load: func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error) {
			t, err := s.app.Admin.GetTask(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			base := "/tasks/" + url.PathEscape(t.ID)
			v := detailView{Fields: []fieldView{
				{Label: "ID", Value: t.ID},
				{Label: "Title", Value: t.Title},
				{Label: "Status", Value: t.Status},
				{Label: "Payment mode", Value: t.PaymentMode},
				{Label: "Amount", Value: money.Format(t.Amount)},
				{Label: "Poster", Value: t.PosterID, Link: "/users/" + url.PathEscape(t.PosterID)},
				{Label: "Helper", Value: orDash(t.HelperID), Link: userLink(t.HelperID)},
				{Label: "Escrow", Value: orDash(t.EscrowID)},
				{Label: "Escrow status", Value: orDash(t.EscrowStatus)},
				{Label: "Created", Value: orDash(t.CreatedAt)},
				{Label: "Updated", Value: orDash(t.UpdatedAt)},
			}}
			manage := caps.Has(authz.TaskManage)
			v.Actions = []actionView{
				{Label: "Cancel task", URL: base + "/cancel", Enabled: manage && t.Cancellable(), Inputs: []inputView{reasonInput(true)}},
				{Label: "Refund", URL: base + "/refund", Enabled: manage && t.Refundable(), Inputs: []inputView{reasonInput(true)}},
				{Label: "Set status", URL: base + "/status", Enabled: manage, Inputs: []inputView{
					{Name: "status", Label: "Status", Value: t.Status, Required: true, Choices: admin.TaskStatuses},
					reasonInput(false),
				}},
			}
			return v, nil
		},
	}
}

func (s *Server) routeTasks(r chi.Router) {
	list, detail := s.taskList(), s.taskDetail()
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.TaskManage))
		r.Get("/tasks", serveList(s, list))
		r.Get("/tasks/{id}", s.serveDetail(detail))
		r.Post("/tasks/{id}/cancel", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.CancelTask(ctx, id, form.Get("reason"))
			return "", err
		}))
		r.Post("/tasks/{id}/refund", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.RefundTask(ctx, id, form.Get("reason"))
			return "", err
		}))
		r.Post("/tasks/{id}/status", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.SetTaskStatus(ctx, id, form.Get("status"), form.Get("reason"))
			return "", err
		}))
	})
}

func userLink(id string) string {
	if id == "" {
		return ""
	}
	return "/users/" + url.PathEscape(id)
}
