package handlers

import (
	"net/http"
	"net/url"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"contractadmin/dialog"
	"contractadmin/services"
	"contractadmin/table"
	"contractadmin/views"
	"contractadmin/wizard"
)

// HandleCostCodeList renders the cost code screen.
func HandleCostCodeList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return renderPage(e, "Cost codes", "/cost-codes", views.CostCodesPage(table.View{}, true))
	}
}

// HandleCostCodeTable renders the loaded cost code table.
func HandleCostCodeTable(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rows, err := services.CostCodeRows(app)
		if err != nil {
			app.Logger().Error("cost_code_table: could not load cost codes", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load cost codes")
		}
		v, err := deriveTable(e, rows)
		if err != nil {
			return ErrorToast(e, http.StatusInternalServerError, "Could not load cost codes")
		}
		return renderComponent(e, views.SAMTable(views.CostCodesTable(), v, false))
	}
}

// HandleCostCodeNew opens (GET) and submits (POST) the Add dialog.
func HandleCostCodeNew(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		fields := services.CostCodeFields()
		d := dialog.Open(dialog.Add{
			Title:     "New cost code",
			Endpoint:  "cost_codes",
			Fields:    fields,
			Values:    map[string]string{},
			SubmitURL: "/cost-codes/new",
		})
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(d))
		}
		return submitDialog(app, e, d, fields, views.RefreshCostCodes)
	}
}

// HandleCostCodeEdit opens (GET) and submits (POST) the Edit dialog.
func HandleCostCodeEdit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		rec, err := app.FindRecordById("cost_codes", id)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Cost code not found")
		}
		fields := services.CostCodeFields()
		d := dialog.Open(dialog.Edit{
			Title:     "Edit cost code " + rec.GetString("code"),
			Endpoint:  "cost_codes",
			ID:        id,
			Fields:    fields,
			Values:    map[string]string{"code": rec.GetString("code"), "label": rec.GetString("label")},
			SubmitURL: "/cost-codes/" + id + "/edit",
		})
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(d))
		}
		return submitDialog(app, e, d, fields, views.RefreshCostCodes)
	}
}

// HandleCostCodeDelete deletes a cost code.
func HandleCostCodeDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return deleteRecord(app, e, "cost_codes", e.Request.PathValue("id"), views.RefreshCostCodes)
	}
}

// HandleCostCodeSelect opens the cost code picker for one wizard line (GET)
// and writes the picked code into that line (POST). The response closes the
// dialog and swaps the wizard out of band.
func HandleCostCodeSelect(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		q := e.Request.URL.Query()
		draftID, buildingID, itemID := q.Get("draft"), q.Get("building"), q.Get("item")

		rows, err := services.CostCodeRows(app)
		if err != nil {
			app.Logger().Error("cost_code_select: could not load cost codes", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load cost codes")
		}
		d := dialog.Open(dialog.Select{
			Title:     "Select a cost code",
			Columns:   services.CostCodeColumns,
			Rows:      rows,
			IDKey:     "id",
			SelectURL: "/cost-codes/select?" + url.Values{"draft": {draftID}, "building": {buildingID}, "item": {itemID}}.Encode(),
		})
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(d))
		}

		draft, err := services.LoadDraft(app, draftID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "This draft no longer exists")
		}
		var picked table.Row
		if err := newController(app, e).Select(d, e.Request.FormValue("id"), func(r table.Row) { picked = r }); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Unknown cost code")
		}
		if err := renderComponent(e, views.Dialog(d)); err != nil {
			return err
		}
		return applyEvent(app, e, draftID, draft, wizard.UpdateItem{
			BuildingID: buildingID,
			ItemID:     itemID,
			Field:      "costCode",
			Value:      picked.Text("code"),
		}, true)
	}
}
