package table

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortDir is the direction of the active sort column.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// ParseSortDir maps anything other than "desc" to Asc.
func ParseSortDir(s string) SortDir {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// State is the per-table view state carried between requests.
type State struct {
	Search   string
	SortKey  string
	SortDir  SortDir
	Page     int
	PageSize int
}

// NewState returns page 1 with the given page size and no sort.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize, SortDir: Asc}
}

// ToggleSort applies a click on column key: the active column flips
// direction, any other column becomes active ascending.
func (s State) ToggleSort(key string) State {
	if key == "" {
		return s
	}
	if s.SortKey == key {
		if s.SortDir == Asc {
			s.SortDir = Desc
		} else {
			s.SortDir = Asc
		}
		return s
	}
	s.SortKey = key
	s.SortDir = Asc
	return s
}

// WithSearch sets the query. A different query resets the view to page 1.
func (s State) WithSearch(q string) State {
	q = strings.TrimSpace(q)
	if q != s.Search {
		s.Page = 1
	}
	s.Search = q
	return s
}

// WithPage moves to page n; pages below 1 become 1.
func (s State) WithPage(n int) State {
	if n < 1 {
		n = 1
	}
	s.Page = n
	return s
}

// Options tune derivation.
type Options struct {
	IDKey  string
	Locale string
	// MaxPageSize caps State.PageSize. Zero means MaxPageSize.
	MaxPageSize int
}

// View is the derived, paginated slice of rows.
type View struct {
	State      State
	Rows       []Row
	Matched    []Row
	Total      int
	TotalPages int
	Offset     int
	Pager      []PageItem
}

// Derive runs filter, sort and paginate over rows. Every row must carry an
// identity under opts.IDKey.
func Derive(rows []Row, s State, opts Options) (View, error) {
	for i, r := range rows {
		if _, err := r.ID(opts.IDKey); err != nil {
			return View{}, fmt.Errorf("row %d: %w", i, err)
		}
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	limit := opts.MaxPageSize
	if limit <= 0 {
		limit = MaxPageSize
	}
	if s.PageSize > limit {
		s.PageSize = limit
	}

	matched := Filter(rows, s.Search)
	matched = Sort(matched, s.SortKey, s.SortDir, opts.Locale)

	page, totalPages := clampPage(s.Page, len(matched), s.PageSize)
	s.Page = page

	return View{
		State:      s,
		Rows:       Paginate(matched, page, s.PageSize),
		Matched:    matched,
		Total:      len(matched),
		TotalPages: totalPages,
		Offset:     (page - 1) * s.PageSize,
		Pager:      Pager(page, totalPages),
	}, nil
}

// Filter keeps rows where q appears, case-insensitively, in at least one
// string value. Non-string values never match.
func Filter(rows []Row, q string) []Row {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return slices.Clone(rows)
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if rowMatches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func rowMatches(r Row, q string) bool {
	for _, v := range r {
		s, ok := v.(string)
		if ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy of rows by key. Two strings compare with
// the locale's collation and two numbers by subtraction; any other pairing
// compares equal and keeps its input order.
func Sort(rows []Row, key string, dir SortDir, locale string) []Row {
	out := slices.Clone(rows)
	if key == "" {
		return out
	}
	coll := collate.New(languageTag(locale))
	slices.SortStableFunc(out, func(a, b Row) int {
		c := compareValues(coll, a[key], b[key])
		if dir == Desc {
			return -c
		}
		return c
	})
	return out
}

func languageTag(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}

func compareValues(coll *collate.Collator, a, b any) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return coll.CompareString(as, bs)
		}
		return 0
	}
	an, aok := numeric(a)
	bn, bok := numeric(b)
	if !aok || !bok {
		return 0
	}
	d := an - bn
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Paginate returns page (1-based) of rows.
func Paginate(rows []Row, page, pageSize int) []Row {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []Row{}
	}
	end := min(start+pageSize, len(rows))
	return rows[start:end]
}

// PageCount is ceil(total / pageSize), never below 1.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	n := int(math.Ceil(float64(total) / float64(pageSize)))
	if n < 1 {
		n = 1
	}
	return n
}

func clampPage(page, total, pageSize int) (int, int) {
	totalPages := PageCount(total, pageSize)
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}
