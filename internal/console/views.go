package console

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"qbadmin/internal/admin"
	"qbadmin/internal/apierr"
	"qbadmin/internal/authz"
	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

type column[T any] struct {
	Header string
	Value  func(T) string
}

// listSpec describes one list page. The URL query is parsed into the
// canonical listing.Query on every request; nothing else holds filter state.
type listSpec[T any] struct {
	Title      string
	Path       string
	Schema     listing.Schema
	Columns    []column[T]
	Fetch      func(context.Context, gateway.Query) (admin.Page[T], error)
	Link       func(T) string
	Export     func(context.Context, gateway.Query) (gateway.Blob, error)
	RowActions func(T, authz.Capabilities) []actionView
	Forms      func(authz.Capabilities) []actionView
}

type listView struct {
	Path      string
	Filters   []filterView
	PageSize  int
	Headers   []string
	Rows      []rowView
	Pager     pagerView
	ExportURL string
	Forms     []actionView
	Loaded    bool
}

type filterView struct {
	Key     string
	Label   string
	Value   string
	Choices []string
}

type rowView struct {
	Link    string
	Cells   []string
	Actions []actionView
}

type pagerView struct {
	Page       int
	TotalPages int
	FirstURL   string
	PrevURL    string
	NextURL    string
	LastURL    string
}

// actionView is one POST form. Disabled forms render a disabled button.
type actionView struct {
	Label   string
	URL     string
	Enabled bool
	Inputs  []inputView
	Return  string
}

type inputView struct {
	Name     string
	Label    string
	Value    string
	Required bool
	Choices  []string
}

func reasonInput(required bool) inputView {
	return inputView{Name: "reason", Label: "Reason", Required: required}
}

// pageURL is the canonical link for q on base.
func pageURL(base string, q listing.Query) string {
	return base + "?" + q.Encode()
}

func buildPager(base string, q listing.Query, p listing.Pager) pagerView {
	v := pagerView{Page: p.Page, TotalPages: p.TotalPages}
	if p.HasPrev() {
		v.PrevURL = pageURL(base, q.WithPage(p.Prev()))
		v.FirstURL = pageURL(base, q.WithPage(1))
	}
	if p.HasNext() {
		v.NextURL = pageURL(base, q.WithPage(p.Next()))
		if last, ok := p.Last(); ok && last != p.Page {
			v.LastURL = pageURL(base, q.WithPage(last))
		}
	}
	return v
}

func serveList[T any](s *Server, l listSpec[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderList(s, w, r, l, nil)
	}
}

// renderList fetches and renders the page for the request's query. actionErr
// is a failed list-level action, shown inline above the table.
func renderList[T any](s *Server, w http.ResponseWriter, r *http.Request, l listSpec[T], actionErr error) {
	ctx := r.Context()
	caps := authz.FromContext(ctx)
	q := l.Schema.Parse(r.URL.Query())
	view := listView{Path: l.Path, PageSize: q.PageSize}
	for _, f := range l.Schema.Fields {
		view.Filters = append(view.Filters, filterView{Key: f.Key, Label: f.Label, Value: q.Get(f.Key), Choices: f.Choices})
	}
	for _, c := range l.Columns {
		view.Headers = append(view.Headers, c.Header)
	}
	if l.Export != nil {
		view.ExportURL = l.Path + "/export"
		if enc := q.FilterValues().Encode(); enc != "" {
			view.ExportURL += "?" + enc
		}
	}
	if l.Forms != nil {
		view.Forms = l.Forms(caps)
	}
	p := page{Title: l.Title, Data: &view}
	status := errorStatus(actionErr)
	if actionErr != nil {
		p.Error = apierr.Message(actionErr)
	}
	res, err := l.Fetch(ctx, q)
	if err != nil {
		s.logger.Debug("list fetch failed", zap.String("path", l.Path), zap.Error(err))
		if p.Error == "" {
			p.Error = apierr.Message(err)
			status = errorStatus(err)
		}
		s.render(w, r, status, "list", p)
		return
	}
	view.Loaded = true
	for _, item := range res.Items {
		row := rowView{}
		if l.Link != nil {
			row.Link = l.Link(item)
		}
		for _, c := range l.Columns {
			row.Cells = append(row.Cells, c.Value(item))
		}
		if l.RowActions != nil {
			row.Actions = l.RowActions(item, caps)
			for i := range row.Actions {
				row.Actions[i].Return = q.Encode()
			}
		}
		view.Rows = append(view.Rows, row)
	}
	q = q.WithPage(res.Page)
	view.Pager = buildPager(l.Path, q, res.Pager())
	s.render(w, r, status, "list", p)
}

// serveExport streams the export for the request's filters as an .xlsx
// attachment.
func serveExport[T any](s *Server, l listSpec[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := l.Schema.Parse(r.URL.Query())
		blob, err := l.Export(r.Context(), q.FilterValues())
		if err != nil {
			renderList(s, w, r, l, err)
			return
		}
		w.Header().Set("Content-Type", blob.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": blob.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
		_, _ = w.Write(blob.Data)
	}
}

// formFunc runs one mutation from a submitted form and returns where to go
// on success.
type formFunc func(ctx context.Context, id string, form url.Values) (string, error)

// listAction runs fn and redirects; on failure the list re-renders with the
// error. The list query survives through the form's return parameter.
func listAction[T any](s *Server, l listSpec[T], fn formFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			renderList(s, w, r, l, err)
			return
		}
		to, err := fn(r.Context(), chi.URLParam(r, "id"), r.PostForm)
		if err != nil {
			s.logger.Info("action failed", zap.String("path", r.URL.Path), zap.Error(err))
			r.URL.RawQuery = r.PostForm.Get("return")
			renderList(s, w, r, l, err)
			return
		}
		if to == "" {
			to = l.Path
			if ret := r.PostForm.Get("return"); ret != "" {
				to += "?" + ret
			}
		}
		http.Redirect(w, r, to, http.StatusSeeOther)
	}
}

// detailSpec describes one detail page.
type detailSpec struct {
	Title string
	Back  string
	Load  func(ctx context.Context, id string, caps authz.Capabilities) (detailView, error)
}

type detailView struct {
	Back     string
	Fields   []fieldView
	Actions  []actionView
	Sections []sectionView
}

type fieldView struct {
	Label string
	Value string
	Link  string
}

type sectionView struct {
	Title   string
	Items   []itemView
	Actions []actionView
}

type itemView struct {
	Meta string
	Body string
}

func (s *Server) serveDetail(d detailSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderDetail(w, r, d, chi.URLParam(r, "id"), nil)
	}
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, d detailSpec, id string, actionErr error) {
	ctx := r.Context()
	p := page{Title: d.Title}
	status := errorStatus(actionErr)
	if actionErr != nil {
		p.Error = apierr.Message(actionErr)
	}
	view, err := d.Load(ctx, id, authz.FromContext(ctx))
	if err != nil {
		if p.Error == "" {
			p.Error = apierr.Message(err)
			status = errorStatus(err)
		}
		p.Data = &detailView{Back: d.Back}
		s.render(w, r, status, "detail", p)
		return
	}
	if view.Back == "" {
		view.Back = d.Back
	}
	p.Data = &view
	s.render(w, r, status, "detail", p)
}

// detailAction runs fn, then redirects to the returned path (the entity
// itself, to reload it) or re-renders the detail page with the error.
func (s *Server) detailAction(d detailSpec, fn formFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			s.renderDetail(w, r, d, id, err)
			return
		}
		to, err := fn(r.Context(), id, r.PostForm)
		if err != nil {
			s.logger.Info("action failed", zap.String("path", r.URL.Path), zap.Error(err))
			s.renderDetail(w, r, d, id, err)
			return
		}
		if to == "" {
			to = path.Dir(r.URL.EscapedPath())
		}
		http.Redirect(w, r, to, http.StatusSeeOther)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
