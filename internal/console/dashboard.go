package console

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qbadmin/internal/admin"
	"qbadmin/internal/apierr"
	"qbadmin/internal/authz"
	"qbadmin/internal/gateway"
	"qbadmin/internal/search"
)

type dashboardView struct {
	Health      admin.Health
	HealthError string

	ShowKYC    bool
	PendingKYC int
	KYCError   string

	ShowCashouts      bool
	RequestedCashouts int
	CashoutError      string

	ShowJobs  bool
	Jobs      []admin.Job
	JobsError string
}

// dashboard fetches its panels in parallel under the request context. A
// failing panel reports its own error; the others still render.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caps := authz.FromContext(ctx)
	api := s.app.Admin
	view := dashboardView{
		ShowKYC:      caps.Has(authz.KYCReview),
		ShowCashouts: caps.Has(authz.FinanceView, authz.FinanceManage),
		ShowJobs:     caps.Has(authz.JobsManage),
	}
	var g errgroup.Group
	g.Go(func() error {
		h, err := api.Health(ctx)
		view.Health, view.HealthError = h, apierr.Message(err)
		return nil
	})
	if view.ShowKYC {
		g.Go(func() error {
			n, err := countWhere(ctx, api.ListKYC, "status", admin.KYCPending)
			view.PendingKYC, view.KYCError = n, apierr.Message(err)
			return nil
		})
	}
	if view.ShowCashouts {
		g.Go(func() error {
			n, err := countWhere(ctx, api.ListCashouts, "status", admin.CashoutRequested)
			view.RequestedCashouts, view.CashoutError = n, apierr.Message(err)
			return nil
		})
	}
	if view.ShowJobs {
		g.Go(func() error {
			jobs, err := api.ListJobs(ctx, nil)
			view.Jobs, view.JobsError = jobs.Items, apierr.Message(err)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", page{Title: "Dashboard", Data: &view})
}

// countWhere asks for a one-item page and reads the reported total.
func countWhere[T any](ctx context.Context, list func(context.Context, gateway.Query) (admin.Page[T], error), key, value string) (int, error) {
	p, err := list(ctx, url.Values{key: {value}, "pageSize": {"1"}})
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}

// search resolves the pasted id with the configured strategy and redirects
// to the resulting route.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	target, err := s.app.Search.Resolve(r.Context(), q)
	if err != nil {
		if errors.Is(err, search.ErrUnrecognized) {
			s.render(w, r, http.StatusNotFound, "message", page{Title: "Search", Error: "no console page for " + q})
			return
		}
		s.logger.Debug("search failed", zap.String("strategy", s.app.Search.Strategy()), zap.Error(err))
		s.renderMessage(w, r, "Search", err)
		return
	}
	http.Redirect(w, r, SafeNext(target.Route, s.landing), http.StatusSeeOther)
}
