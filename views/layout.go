package views

import (
	"context"

	"github.com/a-h/templ"
)

// NavItem is one entry of the top navigation.
type NavItem struct {
	Label string
	Href  string
}

// Nav is the application menu.
var Nav = []NavItem{
	{"Contracts", "/contracts"},
	{"New contract", "/contracts/new"},
	{"Cost codes", "/cost-codes"},
}

// Page wraps content in the HTML shell: htmx, the toast host and the shared
// dialog container every modal swaps into.
func Page(title, activePath string, content templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.text(title)
		h.raw(` · Contract Admin</title>`,
			`<link rel="stylesheet" href="/static/css/output.css">`,
			`<script src="/static/js/htmx.min.js"></script>`,
			`<script src="/static/js/toast.js" defer></script>`,
			`</head><body class="bg-gray-50 text-gray-900">`)

		h.raw(`<header class="border-b bg-white"><nav class="mx-auto flex max-w-7xl gap-6 px-4 py-3">`)
		for _, item := range Nav {
			active := item.Href == activePath
			h.raw(`<a`, attr("href", item.Href), attr("class", classes("text-sm", activeClass(active))), boolAttr(`aria-current="page"`, active), `>`)
			h.text(item.Label)
			h.raw(`</a>`)
		}
		h.raw(`</nav></header>`)

		h.raw(`<main class="mx-auto max-w-7xl px-4 py-6">`)
		h.render(ctx, content)
		h.raw(`</main>`)
		h.raw(`<div id="dialog"></div><div id="toast-container" class="fixed bottom-4 right-4 space-y-2"></div>`)
		h.raw(`</body></html>`)
	})
}

func activeClass(active bool) string {
	if active {
		return "font-semibold text-blue-700"
	}
	return "text-gray-600 hover:text-gray-900"
}

// Fragment renders either the bare content (htmx partial) or the full page.
func Fragment(partial bool, title, activePath string, content templ.Component) templ.Component {
	if partial {
		return content
	}
	return Page(title, activePath, content)
}
