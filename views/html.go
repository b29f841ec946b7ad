// Package views renders the back-office screens as templ components: the
// SAMTable family, the dialog modes and the contract wizard. Components are
// plain templ.Component values so handlers can render full pages or htmx
// partials the same way.
package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// htmlWriter writes markup and keeps the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// component adapts a writer callback into a templ.Component.
func component(fn func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		fn(ctx, h)
		return h.err
	})
}

// attr renders ` name="value"` with value escaped, or nothing when value is
// empty.
func attr(name, value string) string {
	if value == "" {
		return ""
	}
	return " " + name + `="` + templ.EscapeString(value) + `"`
}

// boolAttr renders ` name` when on.
func boolAttr(name string, on bool) string {
	if !on {
		return ""
	}
	return " " + name
}

// withQuery appends params to base, keeping existing query values.
func withQuery(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

func classes(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func itoa(n int) string {
	return fmt.Sprint(n)
}
