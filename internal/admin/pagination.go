package admin

// Page holds the derived bounds of one list page.
type Page struct {
	Number     int
	Size       int
	Offset     int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Paginate computes page bounds. It performs no clamping: callers pass a
// page of at least 1.
func Paginate(page, pageSize, totalCount int) Page {
	totalPages := 1
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
		if totalPages < 1 {
			totalPages = 1
		}
	}
	return Page{
		Number:     page,
		Size:       pageSize,
		Offset:     (page - 1) * pageSize,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
