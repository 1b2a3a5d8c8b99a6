package listing

// Pager derives pagination controls from a list response. Endpoints report
// either TotalPages or HasMore; TotalPages wins when it is set.
type Pager struct {
	Page       int
	TotalPages int
	HasMore    bool
}

func (p Pager) HasPrev() bool { return p.Page > 1 }

func (p Pager) HasNext() bool {
	if p.TotalPages > 0 {
		return p.Page < p.TotalPages
	}
	return p.HasMore
}

// Next is the page the Next control requests, or the current page when
// there is none.
func (p Pager) Next() int {
	if p.HasNext() {
		return p.Page + 1
	}
	return p.Page
}

// Prev is the page the Prev control requests; page 1 stays at 1.
func (p Pager) Prev() int {
	if p.HasPrev() {
		return p.Page - 1
	}
	return p.Page
}

// Last is known only when the endpoint reports TotalPages.
func (p Pager) Last() (int, bool) {
	if p.TotalPages > 0 {
		return p.TotalPages, true
	}
	return 0, false
}
