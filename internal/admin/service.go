// Package admin wraps each QuickBee admin endpoint in a typed function. Every
// function is exactly one HTTP call through the shared gateway client; no
// filtering, sorting or caching happens here.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"qbadmin/internal/gateway"
	"qbadmin/internal/listing"
)

type Service struct {
	Client *gateway.Client
}

func New(c *gateway.Client) *Service {
	return &Service{Client: c}
}

// Page is a list response. Endpoints name the slice "items" or "data" and
// report either hasMore or totalPages.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	HasMore    bool `json:"hasMore"`
	TotalPages int  `json:"totalPages"`
}

func (p *Page[T]) UnmarshalJSON(b []byte) error {
	var raw struct {
		Items      []T  `json:"items"`
		Data       []T  `json:"data"`
		Page       int  `json:"page"`
		PageSize   int  `json:"pageSize"`
		Total      int  `json:"total"`
		HasMore    bool `json:"hasMore"`
		TotalPages int  `json:"totalPages"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	items := raw.Items
	if items == nil {
		items = raw.Data
	}
	if items == nil {
		items = []T{}
	}
	*p = Page[T]{
		Items:      items,
		Page:       raw.Page,
		PageSize:   raw.PageSize,
		Total:      raw.Total,
		HasMore:    raw.HasMore,
		TotalPages: raw.TotalPages,
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return nil
}

// HasNext honours whichever of totalPages or hasMore the endpoint sent.
func (p Page[T]) HasNext() bool { return p.Pager().HasNext() }

func (p Page[T]) Pager() listing.Pager {
	return listing.Pager{Page: p.Page, TotalPages: p.TotalPages, HasMore: p.HasMore}
}

// Ack is the {ok, ...} envelope some mutations return.
type Ack struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ToggleResult reports idempotent toggles; Already is true when the target
// was already in the requested state.
type ToggleResult struct {
	OK      bool `json:"ok"`
	Already bool `json:"already"`
}

func (t *ToggleResult) UnmarshalJSON(b []byte) error {
	var raw struct {
		OK              bool `json:"ok"`
		Already         bool `json:"already"`
		AlreadyDisabled bool `json:"alreadyDisabled"`
		AlreadyEnabled  bool `json:"alreadyEnabled"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.OK = raw.OK
	t.Already = raw.Already || raw.AlreadyDisabled || raw.AlreadyEnabled
	return nil
}

type reasonBody struct {
	Reason string `json:"reason,omitempty"`
}

type noteBody struct {
	Note string `json:"note,omitempty"`
}

func (s *Service) list(ctx context.Context, p string, q gateway.Query, out any) error {
	return s.Client.Do(ctx, http.MethodGet, p, q, nil, out)
}

func (s *Service) get(ctx context.Context, p string, out any) error {
	return s.Client.Do(ctx, http.MethodGet, p, nil, nil, out)
}

func (s *Service) post(ctx context.Context, p string, body, out any) error {
	return s.Client.Do(ctx, http.MethodPost, p, nil, body, out)
}

func (s *Service) patch(ctx context.Context, p string, body, out any) error {
	return s.Client.Do(ctx, http.MethodPatch, p, nil, body, out)
}

func (s *Service) put(ctx context.Context, p string, body, out any) error {
	return s.Client.Do(ctx, http.MethodPut, p, nil, body, out)
}

// resource appends escaped segments to base. Dot segments are percent-encoded
// so no id can climb out of base.
func resource(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		switch s {
		case ".":
			b.WriteString("%2E")
		case "..":
			b.WriteString("%2E%2E")
		default:
			b.WriteString(url.PathEscape(s))
		}
	}
	return b.String()
}

func requireID(kind, id string) error {
	switch strings.TrimSpace(id) {
	case "":
		return fmt.Errorf("%s id required", kind)
	case ".", "..":
		return fmt.Errorf("invalid %s id %q", kind, id)
	}
	return nil
}

// safeFilename keeps only the base name of a server-supplied filename.
func safeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	switch base {
	case ".", "..", "/", "":
		return ""
	}
	return base
}

// ExportFilename names an export download when the server sent no filename.
func ExportFilename(resource string, now time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", resource, now.UTC().Format("20060102-150405"))
}

func (s *Service) export(ctx context.Context, p, name string, q gateway.Query) (gateway.Blob, error) {
	blob, err := s.Client.Download(ctx, p, q)
	if err != nil {
		return gateway.Blob{}, err
	}
	blob.Filename = safeFilename(blob.Filename)
	if blob.Filename == "" || !strings.HasSuffix(strings.ToLower(blob.Filename), ".xlsx") {
		blob.Filename = ExportFilename(name, time.Now())
	}
	if blob.ContentType == "" {
		blob.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return blob, nil
}
