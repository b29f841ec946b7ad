package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"contractadmin/dialog"
	"contractadmin/services"
	"contractadmin/table"
	"contractadmin/views"
)

func isHTMX(e *core.RequestEvent) bool {
	return e.Request.Header.Get("HX-Request") == "true"
}

// renderPage renders content as an htmx partial or inside the page shell.
func renderPage(e *core.RequestEvent, title, activePath string, content templ.Component) error {
	return views.Fragment(isHTMX(e), title, activePath, content).Render(e.Request.Context(), e.Response)
}

func renderComponent(e *core.RequestEvent, c templ.Component) error {
	e.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
	return c.Render(e.Request.Context(), e.Response)
}

// tableState rebuilds the table state from the query: sort, dir and page
// are the state the request was made from, q_prev the query it showed.
// A changed q resets to page 1 and click toggles the sort column.
func tableState(e *core.RequestEvent) table.State {
	cfg := GetConfig(e.Request)
	q := e.Request.URL.Query()

	s := table.NewState(cfg.Table.PageSize)
	if n, err := strconv.Atoi(q.Get("size")); err == nil && n > 0 {
		s.PageSize = min(n, cfg.Table.MaxPageSize)
	}
	s.SortKey = q.Get("sort")
	s.SortDir = table.ParseSortDir(q.Get("dir"))
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		s = s.WithPage(n)
	}
	prev := q.Get("q_prev")
	if !q.Has("q_prev") {
		prev = q.Get("q")
	}
	s.Search = strings.TrimSpace(prev)
	s = s.WithSearch(q.Get("q"))
	return s.ToggleSort(q.Get("click"))
}

func deriveTable(e *core.RequestEvent, rows []table.Row) (table.View, error) {
	cfg := GetConfig(e.Request)
	return table.Derive(rows, tableState(e), table.Options{Locale: cfg.Table.Locale, MaxPageSize: cfg.Table.MaxPageSize})
}

type backend interface {
	dialog.Mutator
	dialog.Reviewer
}

// backendFor picks the write backend: the remote REST API when one is
// configured, the local store otherwise.
func backendFor(app *pocketbase.PocketBase, e *core.RequestEvent) backend {
	if url := GetConfig(e.Request).Backend.BaseURL; url != "" {
		return dialog.NewHTTPMutator(url)
	}
	return services.NewRecordMutator(app)
}

// newController builds the dialog controller for one request.
func newController(app *pocketbase.PocketBase, e *core.RequestEvent) *dialog.Controller {
	b := backendFor(app, e)
	return dialog.NewController(dialog.Env{
		Notifier:       toastNotifier{e},
		Mutator:        b,
		Reviewer:       b,
		Logger:         app.Logger(),
		CloseOnFailure: GetConfig(e.Request).ClosePolicy(),
	})
}

// deleteRecord removes id through the configured backend and fires refresh.
func deleteRecord(app *pocketbase.PocketBase, e *core.RequestEvent, endpoint, id, refresh string) error {
	res, err := backendFor(app, e).Delete(e.Request.Context(), endpoint, id)
	if err != nil {
		app.Logger().Error("delete: request failed", "kind", "transport", "endpoint", endpoint, "id", id, "error", err)
		return ErrorToast(e, http.StatusInternalServerError, dialog.GenericFailure)
	}
	if !res.Success {
		app.Logger().Warn("delete: rejected", "kind", "business", "endpoint", endpoint, "id", id, "message", res.Message)
		return ErrorToast(e, http.StatusConflict, res.Message)
	}
	SetToast(e, "success", res.Message)
	TriggerEvent(e, refresh)
	return e.String(http.StatusOK, "")
}

// redirect sends the browser to url, through HX-Redirect for htmx requests.
func redirect(e *core.RequestEvent, url string) error {
	if isHTMX(e) {
		e.Response.Header().Set("HX-Redirect", url)
		return e.String(http.StatusOK, "")
	}
	return e.Redirect(http.StatusFound, url)
}

// formValues collects the submitted values of fields.
func formValues(e *core.RequestEvent, fields []dialog.InputField) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.Name] = e.Request.FormValue(f.Name)
	}
	return values
}

// finishDialog renders d after a controller call. A dialog that closed on
// success also fires refresh so the owning table reloads.
func finishDialog(e *core.RequestEvent, d *dialog.Dialog, succeeded bool, refresh string) error {
	if succeeded && refresh != "" {
		TriggerEvent(e, refresh)
	}
	return renderComponent(e, views.Dialog(d))
}

// sendFile writes an attachment, sniffing its content type.
func sendFile(e *core.RequestEvent, filename string, data []byte) error {
	e.Response.Header().Set("Content-Type", mimetype.Detect(data).String())
	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	e.Response.WriteHeader(http.StatusOK)
	_, err := e.Response.Write(data)
	return err
}
