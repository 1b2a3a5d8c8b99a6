package console

import (
	"context"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/admin"
	"qbadmin/internal/authz"
)

func (s *Server) issueList() listSpec[admin.Issue] {
	return listSpec[admin.Issue]{
		Title:  "Issues",
		Path:   "/issues",
		Schema: admin.IssueFilters,
		Fetch:  s.app.Admin.ListIssues,
		Link:   func(i admin.Issue) string { return "/issues/" + url.PathEscape(i.ID) },
		Columns: []column[admin.Issue]{
			{"ID", func(i admin.Issue) string { return i.ID }},
			{"Status", func(i admin.Issue) string { return i.Status }},
			{"Severity", func(i admin.Issue) string { return i.Severity }},
			{"Category", func(i admin.Issue) string { return i.Category }},
			{"Reason", func(i admin.Issue) string { return i.Reason }},
			{"Created", func(i admin.Issue) string { return orDash(i.CreatedAt) }},
		},
	}
}

func (s *Server) issueDetail() detailSpec {
	return detailSpec{
		Title: "Issue",
		Back:  "/issues",
		Load: func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error) {
			i, err := s.app.Admin.GetIssue(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			comments, err := s.app.Admin.ListIssueComments(ctx, id)
			if err != nil {
				return detailView{}, err
			}
			base := "/issues/" + url.PathEscape(i.ID)
			v := detailView{Fields: []fieldView{
				{Label: "ID", Value: i.ID},
				{Label: "Status", Value: i.Status},
				{Label: "Severity", Value: i.Severity},
				{Label: "Category", Value: i.Category},
				{Label: "Reason", Value: i.Reason},
				{Label: "Description", Value: orDash(i.Description)},
				{Label: "Task", Value: orDash(i.TaskID), Link: taskLink(i.TaskID)},
				{Label: "Reporter", Value: orDash(i.ReporterID), Link: userLink(i.ReporterID)},
				{Label: "Reported user", Value: orDash(i.ReportedUserID), Link: userLink(i.ReportedUserID)},
				{Label: "Outcome", Value: orDash(i.Outcome)},
				{Label: "Resolution note", Value: orDash(i.ResolutionNote)},
			}}
			manage := caps.Has(authz.IssueManage)
			v.Actions = []actionView{
				{Label: "Start review", URL: base + "/review", Enabled: manage && i.CanStartReview()},
				{Label: "Resolve", URL: base + "/resolve", Enabled: manage && i.CanResolve(), Inputs: []inputView{
					{Name: "outcome", Label: "Outcome", Required: true, Choices: admin.IssueOutcomes},
					{Name: "note", Label: "Note"},
				}},
				{Label: "Close", URL: base + "/close", Enabled: manage && i.CanClose(), Inputs: []inputView{{Name: "note", Label: "Note"}}},
			}
			thread := sectionView{Title: "Comments (" + strconv.Itoa(len(comments)) + ")"}
			for _, c := range comments {
				thread.Items = append(thread.Items, itemView{Meta: c.AuthorID + " at " + c.CreatedAt, Body: c.Body})
			}
			thread.Actions = []actionView{{Label: "Add comment", URL: base + "/comments", Enabled: manage, Inputs: []inputView{
				{Name: "body", Label: "Comment", Required: true},
			}}}
			v.Sections = []sectionView{thread}
			return v, nil
		},
	}
}

func (s *Server) routeIssues(r chi.Router) {
	list, detail := s.issueList(), s.issueDetail()
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.IssueManage))
		r.Get("/issues", serveList(s, list))
		r.Get("/issues/{id}", s.serveDetail(detail))
		r.Post("/issues/{id}/comments", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.AddIssueComment(ctx, id, form.Get("body"))
			return "", err
		}))
		r.Post("/issues/{id}/review", s.detailAction(detail, func(ctx context.Context, id string, _ url.Values) (string, error) {
			_, err := s.app.Admin.StartIssueReview(ctx, id)
			return "", err
		}))
		r.Post("/issues/{id}/resolve", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.ResolveIssue(ctx, id, form.Get("outcome"), form.Get("note"))
			return "", err
		}))
		r.Post("/issues/{id}/close", s.detailAction(detail, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.CloseIssue(ctx, id, form.Get("note"))
			return "", err
		}))
	})
}

func (s *Server) ratingList() listSpec[admin.Rating] {
	return listSpec[admin.Rating]{
		Title:  "Ratings",
		Path:   "/ratings",
		Schema: admin.RatingFilters,
		Fetch:  s.app.Admin.ListRatings,
		Columns: []column[admin.Rating]{
			{"ID", func(r admin.Rating) string { return r.ID }},
			{"Task", func(r admin.Rating) string { return r.TaskID }},
			{"Rater", func(r admin.Rating) string { return r.RaterID }},
			{"Ratee", func(r admin.Rating) string { return r.RateeID }},
			{"Stars", func(r admin.Rating) string { return strconv.Itoa(r.Stars) }},
			{"Comment", func(r admin.Rating) string { return orDash(r.Comment) }},
			{"Hidden", func(r admin.Rating) string { return yesNo(r.Hidden) }},
		},
	}
}

func (s *Server) routeRatings(r chi.Router) {
	list := s.ratingList()
	list.RowActions = func(rt admin.Rating, caps authz.Capabilities) []actionView {
		base := "/ratings/" + url.PathEscape(rt.ID)
		if rt.Hidden {
			return []actionView{{Label: "Unhide", URL: base + "/unhide", Enabled: caps.Has(authz.RatingModerate)}}
		}
		return []actionView{{Label: "Hide", URL: base + "/hide", Enabled: caps.Has(authz.RatingModerate), Inputs: []inputView{reasonInput(false)}}}
	}
	r.Group(func(r chi.Router) {
		r.Use(s.RequirePermission(authz.RatingModerate))
		r.Get("/ratings", serveList(s, list))
		r.Post("/ratings/{id}/hide", listAction(s, list, func(ctx context.Context, id string, form url.Values) (string, error) {
			_, err := s.app.Admin.HideRating(ctx, id, form.Get("reason"))
			return "", err
		}))
		r.Post("/ratings/{id}/unhide", listAction(s, list, func(ctx context.Context, id string, _ url.Values) (string, error) {
			_, err := s.app.Admin.UnhideRating(ctx, id)
			return "", err
		}))
	})
}

func taskLink(id string) string {
	if id == "" {
		return ""
	}
	return "/tasks/" + url.PathEscape(id)
}
