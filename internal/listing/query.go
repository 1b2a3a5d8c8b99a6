// Package listing holds list-page filter state. A Query is the canonical,
// serialisable form and its URL encoding is the persisted representation;
// a Draft is the editable copy that becomes a Query on Apply.
package listing

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	ParamPage     = "page"
	ParamPageSize = "pageSize"

	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Field declares one filter key. With Choices the value is upper-cased and
// must be one of them.
type Field struct {
	Key     string
	Label   string
	Choices []string
}

// Schema declares the filters a list page accepts, in display order.
type Schema struct {
	Fields   []Field
	PageSize int
}

func (s Schema) field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) defaultPageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return DefaultPageSize
}

func (s Schema) normalize(key, value string) (string, bool) {
	f, ok := s.field(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if len(f.Choices) > 0 {
		value = strings.ToUpper(value)
		if !slices.Contains(f.Choices, value) {
			return "", false
		}
	}
	return value, true
}

// Parse builds the canonical Query from URL values. Unknown keys, empty
// values and out-of-range choices are dropped; page and pageSize are clamped.
func (s Schema) Parse(v url.Values) Query {
	q := s.Empty()
	for _, f := range s.Fields {
		if val, ok := s.normalize(f.Key, v.Get(f.Key)); ok {
			q.values[f.Key] = val
		}
	}
	if p, err := strconv.Atoi(v.Get(ParamPage)); err == nil && p > 1 {
		q.Page = p
	}
	if ps, err := strconv.Atoi(v.Get(ParamPageSize)); err == nil && ps > 0 {
		q.PageSize = min(ps, MaxPageSize)
	}
	return q
}

// Empty is the unfiltered first page.
func (s Schema) Empty() Query {
	return Query{schema: s, values: map[string]string{}, Page: 1, PageSize: s.defaultPageSize()}
}

// Query is an immutable filter value plus page position.
type Query struct {
	schema   Schema
	values   map[string]string
	Page     int
	PageSize int
}

func (q Query) Get(key string) string { return q.values[key] }

// Filters returns the active filters as ordered key/value pairs.
func (q Query) Filters() [][2]string {
	var out [][2]string
	for _, f := range q.schema.Fields {
		if v, ok := q.values[f.Key]; ok {
			out = append(out, [2]string{f.Key, v})
		}
	}
	return out
}

// FilterValues is the filters without page position, for export endpoints.
func (q Query) FilterValues() Encoded {
	var out Encoded
	for _, kv := range q.Filters() {
		out = append(out, kv)
	}
	return out
}

// Values is the full request form: filters then page and pageSize.
func (q Query) Values() Encoded {
	out := q.FilterValues()
	out = append(out,
		[2]string{ParamPage, strconv.Itoa(q.Page)},
		[2]string{ParamPageSize, strconv.Itoa(q.PageSize)},
	)
	return out
}

// Encode is the canonical URL query string.
func (q Query) Encode() string { return q.Values().Encode() }

// WithPage returns a copy positioned at page n (min 1).
func (q Query) WithPage(n int) Query {
	q.values = cloneMap(q.values)
	q.Page = max(n, 1)
	return q
}

// Draft opens an editable copy of q.
func (q Query) Draft() *Draft {
	return &Draft{schema: q.schema, values: cloneMap(q.values), pageSize: q.PageSize}
}

// Encoded is an ordered key/value list that encodes like url.Values but
// keeps insertion order.
type Encoded [][2]string

func (e Encoded) Encode() string {
	var b strings.Builder
	for i, kv := range e {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String()
}

// Draft stages filter edits. Nothing is canonical until Apply.
type Draft struct {
	schema   Schema
	values   map[string]string
	pageSize int
}

// NewDraft starts an empty draft for s.
func NewDraft(s Schema) *Draft {
	return s.Empty().Draft()
}

// Set stages key=value; an empty value clears the key.
func (d *Draft) Set(key, value string) *Draft {
	if strings.TrimSpace(value) == "" {
		delete(d.values, key)
		return d
	}
	d.values[key] = value
	return d
}

func (d *Draft) Clear(key string) *Draft {
	delete(d.values, key)
	return d
}

func (d *Draft) Get(key string) string { return d.values[key] }

// SetPageSize stages a page size; it is clamped on Apply.
func (d *Draft) SetPageSize(n int) *Draft {
	d.pageSize = n
	return d
}

// Apply reconciles the draft into a canonical Query on its first page.
func (d *Draft) Apply() Query {
	v := url.Values{}
	for k, val := range d.values {
		v.Set(k, val)
	}
	if d.pageSize > 0 {
		v.Set(ParamPageSize, strconv.Itoa(d.pageSize))
	}
	return d.schema.Parse(v)
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
