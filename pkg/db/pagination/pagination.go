package pagination

// Pagination carries offset paging parameters bound from query strings.
type Pagination struct {
	Page     int `form:"page,default=1" validate:"gte=1"`
	PageSize int `form:"page_size,default=10" validate:"gte=1,lte=250"` // Min 1, Max 250
}

const (
	defaultPageSize = 10
	maxPageSize     = 250
)

// Normalize clamps the parameters into their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Limit returns the row limit for the current page.
func (p Pagination) Limit() int {
	return p.Normalize().PageSize
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}
