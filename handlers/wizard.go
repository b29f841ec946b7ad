package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"contractadmin/services"
	"contractadmin/views"
	"contractadmin/wizard"
)

// maxImportSize caps BOQ uploads.
const maxImportSize = 10 << 20

// loadWizardModel assembles what the wizard screen renders for draft d.
func loadWizardModel(app *pocketbase.PocketBase, e *core.RequestEvent, draftID string, d wizard.Draft) views.WizardModel {
	m := views.WizardModel{
		DraftID:  draftID,
		Draft:    d,
		Lists:    services.LoadReferenceData(e.Request.Context(), app),
		Currency: GetConfig(e.Request).Export.Currency,
	}
	if d.ProjectID != "" {
		ref, err := services.LoadProjectReference(app, d.ProjectID)
		if err != nil {
			app.Logger().Error("wizard: could not load project reference", "project", d.ProjectID, "error", err)
		}
		m.Ref = ref
	}
	if d.Details.CurrencyID != "" {
		if cur, err := app.FindRecordById("currencies", d.Details.CurrencyID); err == nil {
			m.Currency = cur.GetString("code")
		}
	}
	p := wizard.Serialize(d)
	var lineTotals []float64
	for _, b := range p.Buildings {
		for _, it := range b.BOQItems {
			lineTotals = append(lineTotals, it.TotalPrice)
		}
	}
	m.Totals = services.CalcContractTotals(lineTotals, nil, p.AdvancePayment, p.Retention)
	return m
}

func loadDraftOr404(app *pocketbase.PocketBase, e *core.RequestEvent) (string, wizard.Draft, error) {
	draftID := e.Request.PathValue("draftId")
	d, err := services.LoadDraft(app, draftID)
	if err != nil {
		app.Logger().Warn("wizard: draft not found", "draft", draftID, "error", err)
		return draftID, d, ErrorToast(e, http.StatusNotFound, "This draft no longer exists")
	}
	return draftID, d, nil
}

// HandleWizardNew starts a new contract draft.
func HandleWizardNew(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		draftID, err := services.SaveDraft(app, "", wizard.NewDraft(wizard.ModeNew))
		if err != nil {
			app.Logger().Error("wizard_new: could not create draft", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not start a new contract")
		}
		return redirect(e, "/wizard/"+draftID)
	}
}

// HandleWizardShow renders the wizard on its current step.
func HandleWizardShow(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		draftID, d, err := loadDraftOr404(app, e)
		if err != nil {
			return err
		}
		return renderPage(e, "Contract wizard", "/contracts/new", views.WizardPage(loadWizardModel(app, e, draftID, d)))
	}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	n, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number", field)
	}
	return n, nil
}

// parseEvent maps the posted form to a wizard event.
func parseEvent(r *http.Request) (wizard.Event, error) {
	v := r.FormValue
	switch v("type") {
	case "select_project":
		return wizard.SelectProject{ProjectID: v("project_id")}, nil
	case "select_trade":
		return wizard.SelectTrade{TradeID: v("trade_id")}, nil
	case "toggle_building":
		return wizard.ToggleBuilding{BuildingID: v("building_id")}, nil
	case "select_subcontractor":
		return wizard.SelectSubcontractor{SubcontractorID: v("subcontractor_id")}, nil
	case "set_details":
		return wizard.SetDetails{Details: wizard.Details{
			ContractNumber: strings.TrimSpace(v("contract_number")),
			ContractDate:   v("contract_date"),
			StartDate:      v("start_date"),
			CompletionDate: v("completion_date"),
			CurrencyID:     v("currency"),
			TemplateID:     v("template"),
			AdvancePayment: strings.TrimSpace(v("advance_payment")),
			Retention:      strings.TrimSpace(v("retention")),
			Description:    v("description"),
		}}, nil
	case "confirm":
		return wizard.ConfirmPending{}, nil
	case "cancel":
		return wizard.CancelPending{}, nil
	case "next":
		return wizard.Next{}, nil
	case "previous":
		return wizard.Previous{}, nil
	case "add_item":
		qte, err := parseDecimal("Qty", v("qte"))
		if err != nil {
			return nil, err
		}
		pu, err := parseDecimal("Unit price", v("pu"))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(v("key")) == "" {
			return nil, errors.New("Description is required")
		}
		return wizard.AddItem{BuildingID: v("building_id"), Item: wizard.BOQItem{
			No:       strings.TrimSpace(v("no")),
			Key:      strings.TrimSpace(v("key")),
			CostCode: strings.TrimSpace(v("costCode")),
			Unite:    strings.TrimSpace(v("unite")),
			Qte:      qte,
			PU:       pu,
		}}, nil
	case "update_item":
		return wizard.UpdateItem{BuildingID: v("building_id"), ItemID: v("item_id"), Field: v("field"), Value: v("value")}, nil
	case "remove_item":
		return wizard.RemoveItem{BuildingID: v("building_id"), ItemID: v("item_id")}, nil
	case "load_budget":
		ev := wizard.LoadBudget{SheetName: v("sheet_name")}
		if id := v("building_id"); id != "" {
			ev.BuildingIDs = []string{id}
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown wizard event %q", v("type"))
}

// applyEvent reduces ev over the stored draft, saves it when it changed and
// renders the result. oob renders the wizard as an out-of-band swap.
func applyEvent(app *pocketbase.PocketBase, e *core.RequestEvent, draftID string, d wizard.Draft, ev wizard.Event, oob bool) error {
	return applyEventWith(app, e, draftID, d, ev, func(m *views.WizardModel) { m.OOB = oob })
}

// applyEventWith is applyEvent with a hook to adjust the rendered model.
func applyEventWith(app *pocketbase.PocketBase, e *core.RequestEvent, draftID string, d wizard.Draft, ev wizard.Event, decorate func(*views.WizardModel)) error {
	var ref wizard.Reference
	if d.ProjectID != "" {
		var err error
		if ref, err = services.LoadProjectReference(app, d.ProjectID); err != nil {
			app.Logger().Error("wizard_event: could not load project reference", "project", d.ProjectID, "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not load project data")
		}
	}

	next, out := wizard.Reduce(d, ref, ev)
	if out.Err != nil && !errors.Is(out.Err, wizard.ErrStepInvalid) && len(out.FieldErrors) == 0 {
		app.Logger().Warn("wizard_event: rejected", "kind", "business", "draft", draftID, "event", fmt.Sprintf("%T", ev), "error", out.Err)
		return ErrorToast(e, http.StatusConflict, out.Err.Error())
	}
	if out.Changed {
		if _, err := services.SaveDraft(app, draftID, next); err != nil {
			app.Logger().Error("wizard_event: could not save draft", "draft", draftID, "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not save your changes")
		}
	}
	if out.Warning != "" {
		SetToast(e, "warning", out.Warning)
	}
	if errors.Is(out.Err, wizard.ErrStepInvalid) {
		SetToast(e, "error", "Complete this step before continuing")
	}

	m := loadWizardModel(app, e, draftID, next)
	m.FieldErrors = out.FieldErrors
	m.Warning = out.Warning
	if decorate != nil {
		decorate(&m)
	}
	return renderComponent(e, views.WizardPage(m))
}

// HandleWizardEvent applies one posted wizard event.
func HandleWizardEvent(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		draftID, d, err := loadDraftOr404(app, e)
		if err != nil {
			return err
		}
		ev, err := parseEvent(e.Request)
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		return applyEvent(app, e, draftID, d, ev, false)
	}
}

// HandleWizardImport appends the valid lines of an uploaded BOQ file to a
// building. Rows that fail validation are reported and skipped.
func HandleWizardImport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		draftID, d, err := loadDraftOr404(app, e)
		if err != nil {
			return err
		}
		if err := e.Request.ParseMultipartForm(maxImportSize); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Could not read the upload")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Choose a file to import")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Could not read the upload")
		}

		result, err := services.ParseBOQFile(data, header.Filename)
		if err != nil {
			app.Logger().Warn("wizard_import: parse failed", "file", header.Filename, "error", err)
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		app.Logger().Info("wizard_import: parsed file", "file", header.Filename, "valid", result.ValidRows, "errors", result.ErrorRows)
		withErrors := func(m *views.WizardModel) { m.ImportErrors = result.Errors }

		if result.ValidRows == 0 {
			if len(result.Errors) == 0 {
				return ErrorToast(e, http.StatusBadRequest, fmt.Sprintf("No rows to import in %s", header.Filename))
			}
			SetToast(e, "error", fmt.Sprintf("No valid rows in %s (%d errors)", header.Filename, result.ErrorRows))
			m := loadWizardModel(app, e, draftID, d)
			withErrors(&m)
			return renderComponent(e, views.WizardPage(m))
		}
		if result.ErrorRows > 0 {
			SetToast(e, "warning", fmt.Sprintf("Imported %d rows, skipped %d with errors", result.ValidRows, result.ErrorRows))
		} else {
			SetToast(e, "success", fmt.Sprintf("Imported %d rows", result.ValidRows))
		}
		ev := wizard.ImportItems{BuildingID: e.Request.FormValue("building_id"), Items: result.Items}
		return applyEventWith(app, e, draftID, d, ev, withErrors)
	}
}

// HandleWizardImportErrors downloads the rows rejected by the last import
// as a spreadsheet. The rows come back from the form the BOQ step rendered.
func HandleWizardImportErrors(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if _, _, err := loadDraftOr404(app, e); err != nil {
			return err
		}
		var rows []services.ValidationError
		if err := json.Unmarshal([]byte(e.Request.FormValue("errors")), &rows); err != nil || len(rows) == 0 {
			return ErrorToast(e, http.StatusBadRequest, "No import errors to report")
		}
		data, err := services.GenerateErrorReport(rows)
		if err != nil {
			app.Logger().Error("wizard_import_errors: generation failed", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not generate the error report")
		}
		return sendFile(e, "boq_import_errors.xlsx", data)
	}
}

// HandleWizardTemplate downloads the BOQ import template.
func HandleWizardTemplate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, err := services.GenerateBOQTemplate()
		if err != nil {
			app.Logger().Error("wizard_template: generation failed", "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not generate template")
		}
		return sendFile(e, "boq_template.xlsx", data)
	}
}

// HandleWizardExport downloads the draft as it would be saved.
func HandleWizardExport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		_, d, err := loadDraftOr404(app, e)
		if err != nil {
			return err
		}
		if err := wizard.Ready(d); err != nil {
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}
		data := services.BuildPayloadExport(app, wizard.Serialize(d))
		return sendContractExport(app, e, data, e.Request.URL.Query().Get("format"))
	}
}

// HandleWizardSubmit saves the draft as a contract. On failure the draft is
// kept so nothing typed is lost.
func HandleWizardSubmit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		draftID, d, err := loadDraftOr404(app, e)
		if err != nil {
			return err
		}
		if d.Pending != nil {
			return ErrorToast(e, http.StatusConflict, wizard.ErrConfirmationPending.Error())
		}
		if err := wizard.Ready(d); err != nil {
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}

		id, err := services.SaveContract(app, wizard.Serialize(d))
		switch {
		case errors.Is(err, services.ErrDuplicateNumber), errors.Is(err, services.ErrContractLocked):
			app.Logger().Warn("wizard_submit: rejected", "kind", "business", "draft", draftID, "error", err)
			return ErrorToast(e, http.StatusConflict, err.Error())
		case err != nil:
			app.Logger().Error("wizard_submit: save failed", "kind", "transport", "draft", draftID, "error", err)
			return ErrorToast(e, http.StatusInternalServerError, "Could not save the contract. Please try again.")
		}

		if err := services.DeleteDraft(app, draftID); err != nil {
			app.Logger().Warn("wizard_submit: could not delete draft", "draft", draftID, "error", err)
		}
		app.Logger().Info("wizard_submit: saved contract", "contract", id, "number", d.Details.ContractNumber)
		msg := "Contract " + d.Details.ContractNumber + " created"
		if d.Mode == wizard.ModeEdit {
			msg = "Contract " + d.Details.ContractNumber + " saved"
		}
		SetToast(e, "success", msg)
		return redirect(e, "/contracts")
	}
}
