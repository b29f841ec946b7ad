package handlers

import (
	"net/http"
	"slices"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"contractadmin/dialog"
	"contractadmin/policy"
	"contractadmin/services"
	"contractadmin/table"
	"contractadmin/views"
)

var voPreviewColumns = slices.Concat(services.VariationOrderColumns, table.NewColumns("rejection_reason", "Rejection reason"))

func voRow(vo *core.Record) table.Row {
	return table.Row{
		"id":               vo.Id,
		"vo_number":        vo.GetString("vo_number"),
		"description":      vo.GetString("description"),
		"amount":           services.FormatAmount(vo.GetFloat("amount"), ""),
		"status":           vo.GetString("status"),
		"rejection_reason": vo.GetString("rejection_reason"),
	}
}

func contractHeader(app *pocketbase.PocketBase, id string) (views.ContractHeader, error) {
	contract, err := app.FindRecordById("contracts", id)
	if err != nil {
		return views.ContractHeader{}, err
	}
	return views.ContractHeader{ID: contract.Id, Number: contract.GetString("contract_number"), Status: contract.GetString("status")}, nil
}

// HandleVariationOrderList renders the variation order screen of a contract.
func HandleVariationOrderList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		c, err := contractHeader(app, e.Request.PathValue("id"))
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		return renderPage(e, "Variation orders", "/contracts", views.VariationOrdersPage(c, table.View{}, true))
	}
}

// HandleVariationOrderTable renders the loaded variation order table.
func HandleVariationOrderTable(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		c, err := contractHeader(app, e.Request.PathValue("id"))
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		rows, err := services.VariationOrderRows(app, c.ID)
		if err != nil {
			app.Logger().Error("vo_table: could not load variation orders", "contract", c.ID, "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load variation orders")
		}
		v, err := deriveTable(e, rows)
		if err != nil {
			return ErrorToast(e, http.StatusInternalServerError, "Could not load variation orders")
		}
		return renderComponent(e, views.SAMTable(views.VariationOrdersTable(c.ID, c.Status), v, false))
	}
}

// HandleVariationOrderPreview shows one variation order read-only.
func HandleVariationOrderPreview(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		vo, err := app.FindRecordById("variation_orders", e.Request.PathValue("id"))
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Variation order not found")
		}
		d := dialog.Open(dialog.Preview{
			Title:   "Variation order " + vo.GetString("vo_number"),
			Columns: voPreviewColumns,
			Rows:    []table.Row{voRow(vo)},
		})
		return renderComponent(e, views.Dialog(d))
	}
}

// submitDialog runs an Add or Edit dialog through the controller on POST.
func submitDialog(app *pocketbase.PocketBase, e *core.RequestEvent, d *dialog.Dialog, fields []dialog.InputField, refresh string) error {
	succeeded := false
	err := newController(app, e).Submit(e.Request.Context(), d, formValues(e, fields), func(dialog.Result) { succeeded = true })
	if err != nil {
		app.Logger().Error("dialog_submit: controller error", "dialog", string(d.Kind()), "error", err)
		return ErrorToast(e, http.StatusInternalServerError, dialog.GenericFailure)
	}
	return finishDialog(e, d, succeeded, refresh)
}

// HandleVariationOrderNew opens (GET) and submits (POST) the Add dialog.
func HandleVariationOrderNew(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		contractID := e.Request.PathValue("id")
		c, err := contractHeader(app, contractID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		if !policy.CanAddVariationOrder(c.Status) {
			return ErrorToast(e, http.StatusConflict, "Variation orders can only be added to active contracts")
		}
		fields := services.VariationOrderFields()
		d := dialog.Open(dialog.Add{
			Title:     "New variation order",
			Endpoint:  "contracts/" + contractID + "/variation_orders",
			Fields:    fields,
			Values:    map[string]string{},
			SubmitURL: "/contracts/" + contractID + "/variation-orders/new",
		})
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(d))
		}
		return submitDialog(app, e, d, fields, views.RefreshVariationOrders)
	}
}

// HandleVariationOrderEdit opens (GET) and submits (POST) the Edit dialog.
func HandleVariationOrderEdit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		vo, err := app.FindRecordById("variation_orders", id)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Variation order not found")
		}
		fields := services.VariationOrderFields()
		d := dialog.Open(dialog.Edit{
			Title:    "Edit " + vo.GetString("vo_number"),
			Endpoint: "variation_orders",
			ID:       id,
			Fields:   fields,
			Values: map[string]string{
				"vo_number":   vo.GetString("vo_number"),
				"description": vo.GetString("description"),
				"amount":      vo.GetString("amount"),
			},
			SubmitURL: "/variation-orders/" + id + "/edit",
		})
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(d))
		}
		return submitDialog(app, e, d, fields, views.RefreshVariationOrders)
	}
}

// HandleVariationOrderReview opens the approve/reject dialog (GET) and
// applies a decision (POST). Reject is two-phase: the first click reveals
// the reason field, the second submits it.
func HandleVariationOrderReview(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		vo, err := app.FindRecordById("variation_orders", id)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Variation order not found")
		}
		m := dialog.Approve{
			Title:     "Review " + vo.GetString("vo_number"),
			Endpoint:  "variation_orders",
			EntityID:  id,
			Columns:   services.VariationOrderColumns,
			Rows:      []table.Row{voRow(vo)},
			ActionURL: "/variation-orders/" + id + "/review",
		}
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(dialog.Open(m)))
		}

		m.RejectRevealed = e.Request.FormValue("revealed") == "1"
		d := dialog.Open(m)
		ctrl := newController(app, e)
		succeeded := false
		onSuccess := func(dialog.Result) { succeeded = true }

		switch e.Request.FormValue("action") {
		case "approve":
			err = ctrl.Approve(e.Request.Context(), d, onSuccess)
		case "reject":
			err = ctrl.Reject(e.Request.Context(), d, e.Request.FormValue("reason"), onSuccess)
		default:
			return ErrorToast(e, http.StatusBadRequest, "Unknown review action")
		}
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		return finishDialog(e, d, succeeded, views.RefreshVariationOrders)
	}
}

// HandleVariationOrderDelete deletes a pending variation order.
func HandleVariationOrderDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return deleteRecord(app, e, "variation_orders", e.Request.PathValue("id"), views.RefreshVariationOrders)
	}
}
