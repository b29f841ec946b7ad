package views

import (
	"context"
	"net/url"

	"github.com/a-h/templ"

	"contractadmin/table"
)

// RowAction is a button rendered in a row's action cell.
type RowAction struct {
	Label   string
	Method  string // get, post, delete, or link for a plain anchor
	URL     string
	Target  string // defaults to #dialog
	Confirm string // browser confirm prompt before sending
	Danger  bool
}

// TableConfig is shared by TableView, AccordionView and SAMTable.
type TableConfig struct {
	ID        string // DOM id of the table wrapper
	Columns   table.Columns
	IDKey     string
	BaseURL   string // endpoint returning the loaded table fragment
	Refresh   string // client event that reloads the table
	EmptyText string
	Actions   func(table.Row) []RowAction
	RowURL    func(table.Row) string // row click opens this in the dialog
	Format    map[string]func(table.Row) string
}

func (c TableConfig) cell(r table.Row, key string) string {
	if f, ok := c.Format[key]; ok {
		if s := f(r); s != "" {
			return s
		}
		return table.Placeholder
	}
	return r.Cell(key)
}

func (c TableConfig) rowID(r table.Row) string {
	id, _ := r.ID(c.IDKey)
	return id
}

func (c TableConfig) stateURL(s table.State, extra url.Values) string {
	q := url.Values{}
	if s.Search != "" {
		q.Set("q", s.Search)
	}
	if s.SortKey != "" {
		q.Set("sort", s.SortKey)
		q.Set("dir", string(s.SortDir))
	}
	q.Set("page", itoa(s.Page))
	if s.PageSize > 0 {
		q.Set("size", itoa(s.PageSize))
	}
	for k, v := range extra {
		q[k] = v
	}
	return withQuery(c.BaseURL, q)
}

// SAMTable renders a loading placeholder that fetches the table, or the
// loaded table: TableView on medium screens and up, AccordionView below.
func SAMTable(cfg TableConfig, v table.View, loading bool) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		if loading {
			h.raw(`<div`, attr("id", cfg.ID), attr("hx-get", cfg.BaseURL), ` hx-trigger="load" hx-swap="outerHTML"`,
				` class="rounded border bg-white p-8 text-center text-sm text-gray-500" aria-busy="true">`,
				`<span class="animate-pulse">Loading…</span></div>`)
			return
		}
		h.raw(`<div`, attr("id", cfg.ID))
		if cfg.Refresh != "" {
			h.raw(attr("hx-get", cfg.stateURL(v.State, nil)), attr("hx-trigger", cfg.Refresh+" from:body"), ` hx-swap="outerHTML"`)
		}
		h.raw(`>`)
		h.raw(`<div class="hidden md:block">`)
		h.render(ctx, TableView(cfg, v))
		h.raw(`</div><div class="md:hidden">`)
		h.render(ctx, AccordionView(cfg, v.Matched))
		h.raw(`</div></div>`)
	})
}

// TableView renders the search box, sortable headers, the current page of
// rows and the pagination bar.
func TableView(cfg TableConfig, v table.View) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		target := "#" + cfg.ID
		s := v.State

		h.raw(`<form class="mb-3" role="search" onsubmit="return false">`)
		h.raw(`<input type="search" name="q" placeholder="Search…" class="w-full rounded border px-3 py-2 text-sm"`,
			attr("value", s.Search), attr("hx-get", cfg.BaseURL), attr("hx-target", target),
			` hx-swap="outerHTML" hx-trigger="input changed delay:300ms, search" hx-include="closest form">`)
		h.raw(`<input type="hidden" name="q_prev"`, attr("value", s.Search), `>`)
		h.raw(`<input type="hidden" name="sort"`, attr("value", s.SortKey), `>`)
		h.raw(`<input type="hidden" name="dir"`, attr("value", string(s.SortDir)), `>`)
		h.raw(`<input type="hidden" name="page"`, attr("value", itoa(s.Page)), `>`)
		h.raw(`<input type="hidden" name="size"`, attr("value", itoa(s.PageSize)), `>`)
		h.raw(`</form>`)

		h.raw(`<table class="min-w-full divide-y rounded border bg-white text-sm"><thead class="bg-gray-100"><tr>`)
		for _, col := range cfg.Columns {
			sort := "none"
			marker := ""
			if s.SortKey == col.Key {
				if s.SortDir == table.Desc {
					sort, marker = "descending", " ▼"
				} else {
					sort, marker = "ascending", " ▲"
				}
			}
			click := url.Values{"click": {col.Key}}
			h.raw(`<th scope="col" class="px-3 py-2 text-left font-medium"`, attr("aria-sort", sort), `>`)
			h.raw(`<button type="button" class="hover:underline"`, attr("hx-get", cfg.stateURL(s, click)),
				attr("hx-target", target), ` hx-swap="outerHTML">`)
			h.text(col.Label)
			h.raw(marker, `</button></th>`)
		}
		if cfg.Actions != nil {
			h.raw(`<th scope="col" class="px-3 py-2 text-right font-medium">Actions</th>`)
		}
		h.raw(`</tr></thead><tbody class="divide-y">`)

		if len(v.Rows) == 0 {
			span := len(cfg.Columns)
			if cfg.Actions != nil {
				span++
			}
			h.raw(`<tr><td class="px-3 py-6 text-center text-gray-500"`, attr("colspan", itoa(span)), `>`)
			h.text(emptyText(cfg))
			h.raw(`</td></tr>`)
		}
		for _, r := range v.Rows {
			id := cfg.rowID(r)
			h.raw(`<tr`, attr("id", cfg.ID+"-row-"+id))
			if cfg.RowURL != nil {
				h.raw(` class="cursor-pointer hover:bg-gray-50"`, attr("hx-get", cfg.RowURL(r)), ` hx-target="#dialog"`)
			}
			h.raw(`>`)
			for _, col := range cfg.Columns {
				h.raw(`<td class="px-3 py-2">`)
				h.text(cfg.cell(r, col.Key))
				h.raw(`</td>`)
			}
			if cfg.Actions != nil {
				h.raw(`<td class="whitespace-nowrap px-3 py-2 text-right">`)
				renderActions(h, cfg, id, cfg.Actions(r))
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		renderPager(h, cfg, v)
	})
}

// AccordionView renders one collapsible panel per row with every column as a
// label/value pair. Rows arrive already filtered and sorted.
func AccordionView(cfg TableConfig, rows []table.Row) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		if len(rows) == 0 {
			h.raw(`<p class="py-6 text-center text-sm text-gray-500">`)
			h.text(emptyText(cfg))
			h.raw(`</p>`)
			return
		}
		h.raw(`<div class="space-y-2">`)
		for _, r := range rows {
			id := cfg.rowID(r)
			summary := table.Placeholder
			if len(cfg.Columns) > 0 {
				summary = cfg.cell(r, cfg.Columns[0].Key)
			}
			h.raw(`<details class="rounded border bg-white"`, attr("id", cfg.ID+"-panel-"+id), `>`)
			h.raw(`<summary class="cursor-pointer px-3 py-2 font-medium">`)
			h.text(summary)
			h.raw(`</summary><dl class="grid grid-cols-2 gap-1 px-3 pb-3 text-sm">`)
			for _, col := range cfg.Columns {
				h.raw(`<dt class="text-gray-500">`)
				h.text(col.Label)
				h.raw(`</dt><dd>`)
				h.text(cfg.cell(r, col.Key))
				h.raw(`</dd>`)
			}
			h.raw(`</dl>`)
			if cfg.Actions != nil || cfg.RowURL != nil {
				h.raw(`<div class="flex flex-wrap gap-2 border-t px-3 py-2">`)
				if cfg.RowURL != nil {
					renderActions(h, cfg, id, []RowAction{{Label: "Open", Method: "get", URL: cfg.RowURL(r)}})
				}
				if cfg.Actions != nil {
					renderActions(h, cfg, id, cfg.Actions(r))
				}
				h.raw(`</div>`)
			}
			h.raw(`</details>`)
		}
		h.raw(`</div>`)
	})
}

func emptyText(cfg TableConfig) string {
	if cfg.EmptyText != "" {
		return cfg.EmptyText
	}
	return "No records found."
}

// renderActions writes the row buttons. Clicks stop propagating so the row
// click does not fire too; each row has its own busy indicator.
func renderActions(h *htmlWriter, cfg TableConfig, rowID string, actions []RowAction) {
	indicator := cfg.ID + "-busy-" + rowID
	for _, a := range actions {
		method := a.Method
		if method == "" {
			method = "get"
		}
		target := a.Target
		if target == "" {
			target = "#dialog"
		}
		class := "rounded px-2 py-1 text-xs border hover:bg-gray-100"
		if a.Danger {
			class = "rounded px-2 py-1 text-xs border border-red-300 text-red-700 hover:bg-red-50"
		}
		if method == "link" {
			h.raw(`<a`, attr("class", class), attr("href", a.URL), ` onclick="event.stopPropagation()">`)
			h.text(a.Label)
			h.raw(`</a> `)
			continue
		}
		h.raw(`<button type="button"`, attr("class", class), attr("hx-"+method, a.URL), attr("hx-target", target),
			attr("hx-confirm", a.Confirm), attr("hx-indicator", "#"+indicator),
			` hx-on:click="event.stopPropagation()">`)
		h.text(a.Label)
		h.raw(`</button> `)
	}
	h.raw(`<span class="htmx-indicator text-xs text-gray-400"`, attr("id", indicator), `>…</span>`)
}

func renderPager(h *htmlWriter, cfg TableConfig, v table.View) {
	if v.Total == 0 {
		return
	}
	first := v.Offset + 1
	last := v.Offset + len(v.Rows)
	h.raw(`<nav class="mt-3 flex items-center justify-between text-sm" aria-label="Pagination"><span class="text-gray-500">`)
	h.text(itoa(first) + "–" + itoa(last) + " of " + itoa(v.Total))
	h.raw(`</span><div class="flex gap-1">`)
	for _, item := range v.Pager {
		label := pagerLabel(item)
		if item.Kind == table.PageEllipsis {
			h.raw(`<span class="px-2">…</span>`)
			continue
		}
		class := "rounded border px-2 py-1"
		if item.Active {
			class += " bg-blue-600 text-white"
		}
		h.raw(`<button type="button"`, attr("class", class), boolAttr("disabled", item.Disabled),
			boolAttr(`aria-current="page"`, item.Active),
			attr("hx-get", cfg.stateURL(v.State.WithPage(item.Page), nil)),
			attr("hx-target", "#"+cfg.ID), ` hx-swap="outerHTML">`)
		h.text(label)
		h.raw(`</button>`)
	}
	h.raw(`</div></nav>`)
}

func pagerLabel(item table.PageItem) string {
	switch item.Kind {
	case table.PageFirst:
		return "«"
	case table.PagePrev:
		return "‹"
	case table.PageNext:
		return "›"
	case table.PageLast:
		return "»"
	}
	return itoa(item.Page)
}
