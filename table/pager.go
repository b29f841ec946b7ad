package table

// PageItemKind identifies one control of the pagination bar.
type PageItemKind string

const (
	PageFirst    PageItemKind = "first"
	PagePrev     PageItemKind = "prev"
	PageNumber   PageItemKind = "page"
	PageEllipsis PageItemKind = "ellipsis"
	PageNext     PageItemKind = "next"
	PageLast     PageItemKind = "last"
)

// PageItem is a rendered pagination control. Page is the target page;
// Disabled controls point at the current page.
type PageItem struct {
	Kind     PageItemKind
	Page     int
	Active   bool
	Disabled bool
}

// Pager builds first/prev, a window of three pages around current,
// next/last. An ellipsis marks a gap of more than one page between the
// window and page 1 or the last page.
func Pager(current, totalPages int) []PageItem {
	if totalPages < 1 {
		totalPages = 1
	}
	if current < 1 {
		current = 1
	}
	if current > totalPages {
		current = totalPages
	}

	start := max(current-1, 1)
	end := min(current+1, totalPages)

	items := []PageItem{
		{Kind: PageFirst, Page: 1, Disabled: current == 1},
		{Kind: PagePrev, Page: max(current-1, 1), Disabled: current == 1},
	}
	if start > 2 {
		items = append(items, PageItem{Kind: PageEllipsis, Disabled: true})
	}
	for p := start; p <= end; p++ {
		items = append(items, PageItem{Kind: PageNumber, Page: p, Active: p == current})
	}
	if end < totalPages-1 {
		items = append(items, PageItem{Kind: PageEllipsis, Disabled: true})
	}
	items = append(items,
		PageItem{Kind: PageNext, Page: min(current+1, totalPages), Disabled: current == totalPages},
		PageItem{Kind: PageLast, Page: totalPages, Disabled: current == totalPages},
	)
	return items
}
