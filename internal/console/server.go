// Package console serves the operator web console: server-rendered list and
// detail pages over the admin API plus a small JSON API under /v0.
package console

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"qbadmin/internal/apierr"
	"qbadmin/internal/app"
	"qbadmin/internal/authz"
	"qbadmin/internal/money"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config for the console handler.
type Config struct {
	App      *app.App
	BasePath string
	Landing  string
}

type Server struct {
	app       *app.App
	logger    *zap.Logger
	landing   string
	templates map[string]*template.Template
	now       func() time.Time
}

var pageTemplates = []string{"login", "dashboard", "list", "detail", "message"}

var funcs = template.FuncMap{
	"money": money.Format,
	"join":  strings.Join,
}

// New returns the console handler.
func New(cfg Config) (http.Handler, error) {
	_, h, err := newServer(cfg)
	return h, err
}

func newServer(cfg Config) (*Server, http.Handler, error) {
	if cfg.App == nil {
		return nil, nil, errors.New("console needs an app")
	}
	landing := cfg.Landing
	if landing == "" {
		landing = cfg.App.Config.Console.Landing
	}
	if landing == "" {
		landing = "/dashboard"
	}
	s := &Server{
		app:       cfg.App,
		logger:    cfg.App.Logger.Named("console"),
		landing:   landing,
		templates: map[string]*template.Template{},
		now:       time.Now,
	}
	for _, name := range pageTemplates {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, nil, err
		}
		s.templates[name] = t
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.logRequests)

	if err := registerAPI(router, s, cfg.BasePath); err != nil {
		return nil, nil, err
	}

	router.Get("/login", s.loginPage)
	router.Post("/login", s.login)
	router.Post("/logout", s.logout)
	router.Get("/logout", s.logout)

	router.Group(func(r chi.Router) {
		r.Use(s.RequireSession)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, s.landing, http.StatusSeeOther)
		})
		r.Get("/dashboard", s.dashboard)
		r.Get("/search", s.search)
		s.routeKYC(r)
		s.routeTasks(r)
		s.routeUsers(r)
		s.routeIssues(r)
		s.routeRatings(r)
		s.routeFinance(r)
		s.routeTaxonomy(r)
		s.routeAudit(r)
		s.routeJobs(r)
		s.routeConfig(r)
	})
	return s, router, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// page is the data every template renders.
type page struct {
	Title  string
	Nav    []navLink
	Error  string
	Notice string
	Data   any
}

type navLink struct {
	Label  string
	Href   string
	Active bool
}

type navEntry struct {
	Label string
	Href  string
	Perms []string
}

var navEntries = []navEntry{
	{"Dashboard", "/dashboard", nil},
	{"KYC", "/kyc", []string{authz.KYCReview}},
	{"Tasks", "/tasks", []string{authz.TaskManage}},
	{"Users", "/users", []string{authz.UserManage}},
	{"Issues", "/issues", []string{authz.IssueManage}},
	{"Ratings", "/ratings", []string{authz.RatingModerate}},
	{"Cashouts", "/finance/cashouts", []string{authz.FinanceView, authz.FinanceManage}},
	{"Ledger", "/finance/ledger", []string{authz.FinanceView, authz.FinanceManage}},
	{"Payments", "/finance/payment-intents", []string{authz.FinanceView, authz.FinanceManage}},
	{"Platform fees", "/finance/platform-fees", []string{authz.FinanceView, authz.FinanceManage}},
	{"Taxonomy", "/taxonomy", []string{authz.TaxonomyManage}},
	{"Audit", "/audit", []string{authz.AuditView}},
	{"Jobs", "/jobs", []string{authz.JobsManage}},
	{"Config", "/config", []string{authz.ConfigManage}},
}

// nav lists the entries the capabilities allow; the rest are not shown.
func nav(caps authz.Capabilities, current string) []navLink {
	var out []navLink
	for _, e := range navEntries {
		if !caps.Has(e.Perms...) {
			continue
		}
		active := current == e.Href || strings.HasPrefix(current, e.Href+"/")
		out = append(out, navLink{Label: e.Label, Href: e.Href, Active: active})
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	t, ok := s.templates[name]
	if !ok {
		http.Error(w, "unknown template "+name, http.StatusInternalServerError)
		return
	}
	if name != "login" {
		p.Nav = nav(authz.FromContext(r.Context()), r.URL.Path)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", p); err != nil {
		s.logger.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

// renderMessage shows an error on an otherwise empty page.
func (s *Server) renderMessage(w http.ResponseWriter, r *http.Request, title string, err error) {
	s.render(w, r, errorStatus(err), "message", page{Title: title, Error: apierr.Message(err)})
}

// errorStatus maps a failed upstream call to the console's response code.
// Pages still render; the code only helps scripts and logs.
func errorStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	e := apierr.Normalize(err)
	switch e.Kind {
	case apierr.API:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		return http.StatusBadGateway
	case apierr.Network:
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}
