package tableservice

// Paging is a page-size/offset window. Pages are numbered from 1.
type Paging struct {
	page         int
	itemsPerPage int
}

// NewPaging creates a window; page is clamped to 1 and itemsPerPage to at least 1.
func NewPaging(page, itemsPerPage int) *Paging {
	return &Paging{
		page:         max(page, 1),
		itemsPerPage: max(itemsPerPage, 1),
	}
}

func (p *Paging) Page() int {
	return p.page
}

func (p *Paging) ItemsPerPage() int {
	return p.itemsPerPage
}

// Offset returns the number of rows skipped before the current page.
func (p *Paging) Offset() int {
	return (p.page - 1) * p.itemsPerPage
}

// PageCount returns the number of pages needed for itemCount rows.
func (p *Paging) PageCount(itemCount int64) int {
	if itemCount <= 0 {
		return 0
	}

	return int((itemCount + int64(p.itemsPerPage) - 1) / int64(p.itemsPerPage))
}
