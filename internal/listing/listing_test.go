package listing

import (
	"net/url"
	"testing"
)

var cashoutSchema = Schema{Fields: []Field{
	{Key: "status", Choices: []string{"REQUESTED", "PROCESSING", "PAID", "FAILED", "CANCELLED"}},
	{Key: "methodType", Choices: []string{"UPI", "BANK"}},
	{Key: "userId"},
}}

func TestParseCanonicalises(t *testing.T) {
	v, _ := url.ParseQuery("methodType=upi&status=paid&junk=1&userId=+&page=0&pageSize=9999")
	q := cashoutSchema.Parse(v)
	if got := q.Encode(); got != "status=PAID&methodType=UPI&page=1&pageSize=200" {
		t.Fatalf("Encode = %q", got)
	}
	if q.Get("junk") != "" || q.Get("userId") != "" {
		t.Fatalf("unknown and blank keys must be dropped")
	}
}

func TestParseDropsInvalidChoice(t *testing.T) {
	q := cashoutSchema.Parse(url.Values{"status": {"LOST"}})
	if q.Get("status") != "" {
		t.Fatalf("invalid choice kept: %q", q.Get("status"))
	}
}

// Encoding then parsing reproduces the same query, so links and
// back/forward navigation restore the exact list.
func TestURLRoundTrip(t *testing.T) {
	q := NewDraft(cashoutSchema).Set("userId", "u 1&2").Set("status", "FAILED").Apply().WithPage(4)
	parsed, err := url.ParseQuery(q.Encode())
	if err != nil {
		t.Fatal(err)
	}
	back := cashoutSchema.Parse(parsed)
	if back.Encode() != q.Encode() {
		t.Fatalf("round trip changed query: %q vs %q", back.Encode(), q.Encode())
	}
	if back.Page != 4 || back.Get("userId") != "u 1&2" {
		t.Fatalf("round trip lost values: %+v", back)
	}
}

func TestDraftIsStagedUntilApply(t *testing.T) {
	q := cashoutSchema.Parse(url.Values{"status": {"PAID"}, "page": {"3"}})
	d := q.Draft()
	d.Set("status", "requested").Set("methodType", "BANK")
	if q.Get("status") != "PAID" || q.Get("methodType") != "" {
		t.Fatalf("editing the draft mutated the canonical query")
	}
	applied := d.Apply()
	if applied.Get("status") != "REQUESTED" || applied.Get("methodType") != "BANK" {
		t.Fatalf("apply lost edits: %q", applied.Encode())
	}
	if applied.Page != 1 {
		t.Fatalf("apply must reset to page 1, got %d", applied.Page)
	}
	if applied.PageSize != q.PageSize {
		t.Fatalf("apply must keep page size")
	}
	d.Clear("status")
	if d.Apply().Get("status") != "" {
		t.Fatalf("clear did not drop filter")
	}
}

func TestFilterValuesExcludePaging(t *testing.T) {
	q := NewDraft(cashoutSchema).Set("status", "PAID").Set("methodType", "UPI").Apply().WithPage(2)
	if got := q.FilterValues().Encode(); got != "status=PAID&methodType=UPI" {
		t.Fatalf("FilterValues = %q", got)
	}
}

func TestPager(t *testing.T) {
	tests := []struct {
		name             string
		p                Pager
		prev, next       bool
		prevPage, nxPage int
	}{
		{"first page has more", Pager{Page: 1, HasMore: true}, false, true, 1, 2},
		{"middle by total", Pager{Page: 2, TotalPages: 5}, true, true, 1, 3},
		{"last by total", Pager{Page: 5, TotalPages: 5, HasMore: true}, true, false, 4, 5},
		{"no more", Pager{Page: 3}, true, false, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.HasPrev() != tt.prev || tt.p.HasNext() != tt.next {
				t.Fatalf("prev/next = %v/%v", tt.p.HasPrev(), tt.p.HasNext())
			}
			if tt.p.Prev() != tt.prevPage || tt.p.Next() != tt.nxPage {
				t.Fatalf("Prev/Next = %d/%d", tt.p.Prev(), tt.p.Next())
			}
		})
	}
	if last, ok := (Pager{Page: 1, TotalPages: 7}).Last(); !ok || last != 7 {
		t.Fatalf("Last = %d, %v", last, ok)
	}
	if _, ok := (Pager{Page: 1, HasMore: true}).Last(); ok {
		t.Fatalf("Last unknown without TotalPages")
	}
}
