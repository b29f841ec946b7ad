package handlers

import (
	"context"
	"net/http"
	"regexp"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"contractadmin/dialog"
	"contractadmin/policy"
	"contractadmin/services"
	"contractadmin/table"
	"contractadmin/views"
	"contractadmin/wizard"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func exportFilename(number, ext string) string {
	name := unsafeFileChars.ReplaceAllString(number, "_")
	if name == "" {
		name = "contract"
	}
	return name + "." + ext
}

// HandleContractList renders the contract screen. The table loads itself.
func HandleContractList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return renderPage(e, "Contracts", "/contracts", views.ContractsPage(table.View{}, true))
	}
}

// HandleContractTable renders the loaded contract table for the requested
// search, sort and page.
func HandleContractTable(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		rows, err := services.ContractRows(app)
		if err != nil {
			app.Logger().Error("contract_table: could not load contracts", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load contracts")
		}
		v, err := deriveTable(e, rows)
		if err != nil {
			app.Logger().Error("contract_table: invalid rows", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load contracts")
		}
		return renderComponent(e, views.SAMTable(views.ContractsTable(), v, false))
	}
}

func contractPreview(app *pocketbase.PocketBase, id string) (*dialog.Dialog, error) {
	contract, err := app.FindRecordById("contracts", id)
	if err != nil {
		return nil, err
	}
	rows, err := services.ContractBOQRows(app, id)
	if err != nil {
		return nil, err
	}
	return dialog.Open(dialog.Preview{
		Title:     "Contract " + contract.GetString("contract_number"),
		Columns:   services.ContractBOQColumns,
		Rows:      rows,
		ExportURL: "/contracts/" + id + "/preview/export",
	}), nil
}

// HandleContractPreview opens the BOQ preview dialog of a contract.
func HandleContractPreview(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, err := contractPreview(app, e.Request.PathValue("id"))
		if err != nil {
			app.Logger().Warn("contract_preview: could not load contract", "id", e.Request.PathValue("id"), "error", err)
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		return renderComponent(e, views.Dialog(d))
	}
}

// HandleContractPreviewExport downloads the rows shown in the preview dialog.
func HandleContractPreviewExport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, err := contractPreview(app, e.Request.PathValue("id"))
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		m := d.Mode.(dialog.Preview)

		delivered := false
		err = newController(app, e).Export(e.Request.Context(), d,
			func(context.Context) (dialog.Blob, error) {
				data, err := services.GenerateRowsExcel(m.Title, m.Columns, m.Rows)
				return dialog.Blob{Name: exportFilename(m.Title, "xlsx"), Data: data}, err
			},
			func(b dialog.Blob) error {
				delivered = true
				return sendFile(e, b.Name, b.Data)
			})
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		if !delivered {
			return ErrorToast(e, http.StatusInternalServerError, d.Message)
		}
		return nil
	}
}

// HandleContractExport downloads a contract as xlsx or pdf.
func HandleContractExport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		data, err := services.BuildContractExport(app, id)
		if err != nil {
			app.Logger().Warn("contract_export: could not build export", "id", id, "error", err)
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		return sendContractExport(app, e, data, e.Request.PathValue("format"))
	}
}

func sendContractExport(app *pocketbase.PocketBase, e *core.RequestEvent, data services.ContractExport, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "xlsx":
		out, err = services.GenerateContractExcel(data)
	case "pdf":
		out, err = services.GenerateContractPDF(data)
	default:
		return ErrorToast(e, http.StatusBadRequest, "Unknown export format")
	}
	if err != nil {
		app.Logger().Error("contract_export: generation failed", "format", format, "error", err)
		return ErrorToast(e, http.StatusInternalServerError, "Could not generate export")
	}
	return sendFile(e, exportFilename(data.ContractNumber, format), out)
}

func terminateDialog(contract *core.Record) *dialog.Dialog {
	return dialog.Open(dialog.Confirm{
		Title:        "Terminate contract",
		Message:      "Terminate contract " + contract.GetString("contract_number") + "?",
		Consequences: services.TerminationConsequences,
		ActionURL:    "/contracts/" + contract.Id + "/terminate",
	})
}

// HandleContractTerminate opens the termination confirmation (GET) and runs
// its two phases (POST): the first discloses the consequences, the second
// terminates.
func HandleContractTerminate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		contract, err := app.FindRecordById("contracts", id)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		if !policy.ContractActions(contract.GetString("status")).Allows(policy.Terminate) {
			return ErrorToast(e, http.StatusConflict, "Only active contracts can be terminated")
		}

		d := terminateDialog(contract)
		if e.Request.Method == http.MethodGet {
			return renderComponent(e, views.Dialog(d))
		}

		m := d.Mode.(dialog.Confirm)
		m.Disclosed = e.Request.FormValue("disclosed") == "1"
		d.Mode = m
		reason := e.Request.FormValue("reason")

		succeeded := false
		err = newController(app, e).Confirm(e.Request.Context(), d,
			func(context.Context) (dialog.Result, error) { return services.TerminateContract(app, id, reason) },
			func(dialog.Result) { succeeded = true })
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		return finishDialog(e, d, succeeded, views.RefreshContracts)
	}
}

// HandleContractDelete deletes a draft contract.
func HandleContractDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return deleteRecord(app, e, "contracts", e.Request.PathValue("id"), views.RefreshContracts)
	}
}

// HandleContractEdit opens the wizard on a saved contract.
func HandleContractEdit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		contract, err := app.FindRecordById("contracts", id)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "Contract not found")
		}
		if !policy.ContractActions(contract.GetString("status")).Allows(policy.Edit) {
			return ErrorToast(e, http.StatusConflict, services.ErrContractLocked.Error())
		}
		payload, err := services.LoadContractPayload(app, id)
		if err != nil {
			app.Logger().Error("contract_edit: could not load contract", "id", id, "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load contract")
		}
		draftID, err := services.SaveDraft(app, "", wizard.FromPayload(payload))
		if err != nil {
			app.Logger().Error("contract_edit: could not create draft", "id", id, "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not open the contract for editing")
		}
		app.Logger().Info("contract_edit: opened draft", "contract", id, "draft", draftID)
		return redirect(e, "/wizard/"+draftID)
	}
}
