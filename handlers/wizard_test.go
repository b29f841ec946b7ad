package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/shopspring/decimal"

	"contractadmin/services"
	"contractadmin/testhelpers"
	"contractadmin/wizard"
)

// readyDraft returns a draft on the review step that passes every check.
func readyDraft(f testhelpers.ContractFixture, number string) wizard.Draft {
	d := wizard.NewDraft(wizard.ModeNew)
	d.Step = wizard.StepReview
	d.ProjectID = f.Project.Id
	d.TradeID = f.Trade.Id
	d.BuildingIDs = []string{f.Building.Id}
	d.SubcontractorID = f.Subcontractor.Id
	d.Details = wizard.Details{
		ContractNumber: number,
		ContractDate:   "2025-03-01",
		StartDate:      "2025-03-15",
		CompletionDate: "2025-12-31",
		CurrencyID:     f.Currency.Id,
		AdvancePayment: "10",
		Retention:      "5",
	}
	d.BOQ = []wizard.BuildingBOQ{{BuildingID: f.Building.Id, Items: []wizard.BOQItem{{
		ID:         "item-1",
		No:         "1",
		Key:        "Trench excavation",
		CostCode:   "01.200",
		Unite:      "m3",
		Qte:        decimal.NewFromInt(100),
		PU:         decimal.NewFromInt(45),
		TotalPrice: decimal.NewFromInt(4500),
	}}}}
	return d
}

func saveDraft(t *testing.T, app *pocketbase.PocketBase, d wizard.Draft) string {
	t.Helper()
	id, err := services.SaveDraft(app, "", d)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	return id
}

func loadDraft(t *testing.T, app *pocketbase.PocketBase, id string) wizard.Draft {
	t.Helper()
	d, err := services.LoadDraft(app, id)
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	return d
}

func postEvent(t *testing.T, app *pocketbase.PocketBase, draftID string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, app, HandleWizardEvent(app), postForm("/wizard/"+draftID+"/event", form), "draftId", draftID)
}

func TestHandleWizardNew_RedirectsToDraft(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	rec := serve(t, app, HandleWizardNew(app), httptest.NewRequest(http.MethodPost, "/wizard/new", nil))

	target := rec.Header().Get("HX-Redirect")
	if !strings.HasPrefix(target, "/wizard/") {
		t.Fatalf("expected redirect to a draft, got %q", target)
	}
	d := loadDraft(t, app, strings.TrimPrefix(target, "/wizard/"))
	if d.Mode != wizard.ModeNew || d.Step != wizard.StepProject {
		t.Errorf("draft mode %q step %d", d.Mode, d.Step)
	}
}

func TestHandleWizardShow(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateContractFixture(t, app)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := serve(t, app, HandleWizardShow(app), httptest.NewRequest(http.MethodGet, "/wizard/"+id, nil), "draftId", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), `id="wizard"`, `aria-current="step"`, "Test Project")

	rec = serve(t, app, HandleWizardShow(app), httptest.NewRequest(http.MethodGet, "/wizard/gone", nil), "draftId", "gone")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing draft: expected 404, got %d", rec.Code)
	}
}

func TestHandleWizardEvent_NextBlockedByValidation(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := postEvent(t, app, id, url.Values{"type": {"next"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "Select a project")
	if toastOf(t, rec)["type"] != "error" {
		t.Errorf("expected an error toast, got %v", toastOf(t, rec))
	}
	if d := loadDraft(t, app, id); d.Step != wizard.StepProject {
		t.Errorf("step advanced to %d", d.Step)
	}
}

func TestHandleWizardEvent_SelectProjectThenNext(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	postEvent(t, app, id, url.Values{"type": {"select_project"}, "project_id": {f.Project.Id}})
	rec := postEvent(t, app, id, url.Values{"type": {"next"}})

	d := loadDraft(t, app, id)
	if d.ProjectID != f.Project.Id || d.Step != wizard.StepTrade {
		t.Fatalf("project %q step %d", d.ProjectID, d.Step)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "Earth Works", `name="trade_id"`)
}

func TestHandleWizardEvent_ProjectChangeNeedsConfirmation(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	other := testhelpers.CreateTestProject(t, app, "Other Project")
	id := saveDraft(t, app, readyDraft(f, "EW-100"))

	rec := postEvent(t, app, id, url.Values{"type": {"select_project"}, "project_id": {other.Id}})
	testhelpers.AssertHTMLContains(t, rec.Body.String(), `id="wizard-pending"`)
	if toastOf(t, rec)["type"] != "warning" {
		t.Errorf("expected a warning toast, got %v", toastOf(t, rec))
	}
	d := loadDraft(t, app, id)
	if d.Pending == nil || d.ProjectID != f.Project.Id {
		t.Fatalf("change must wait for confirmation: pending %v project %q", d.Pending, d.ProjectID)
	}

	// Saving is refused while a change is pending.
	rec = serve(t, app, HandleWizardSubmit(app), httptest.NewRequest(http.MethodPost, "/wizard/"+id+"/submit", nil), "draftId", id)
	if rec.Code != http.StatusConflict {
		t.Fatalf("submit while pending: expected 409, got %d", rec.Code)
	}

	postEvent(t, app, id, url.Values{"type": {"confirm"}})
	d = loadDraft(t, app, id)
	if d.Pending != nil || d.ProjectID != other.Id || d.TradeID != "" || len(d.BuildingIDs) != 0 || d.ItemCount() != 0 {
		t.Errorf("confirmed change should clear dependents: %+v", d)
	}
}

func TestHandleWizardEvent_CancelWithoutPending(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := postEvent(t, app, id, url.Values{"type": {"cancel"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleWizardEvent_UnknownType(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := postEvent(t, app, id, url.Values{"type": {"teleport"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWizardEvent_LoadBudgetLocksImport(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	d := readyDraft(f, "EW-100")
	d.Step = wizard.StepBOQ
	d.BOQ = []wizard.BuildingBOQ{}
	id := saveDraft(t, app, d)

	rec := postEvent(t, app, id, url.Values{"type": {"load_budget"}})
	body := rec.Body.String()
	testhelpers.AssertHTMLContains(t, body, "Excavation", "Backfill", "File import is disabled while budget lines are present.")

	got := loadDraft(t, app, id)
	if got.ItemCount() != 2 || !got.HasBudgetItems() {
		t.Fatalf("expected 2 budget lines, got %d", got.ItemCount())
	}

	item := got.Items(f.Building.Id)[0]
	rec = postEvent(t, app, id, url.Values{
		"type": {"update_item"}, "building_id": {f.Building.Id}, "item_id": {item.ID}, "field": {"key"}, "value": {"Renamed"},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("locked field update: expected 409, got %d", rec.Code)
	}

	rec = postEvent(t, app, id, url.Values{
		"type": {"update_item"}, "building_id": {f.Building.Id}, "item_id": {item.ID}, "field": {"qte"}, "value": {"120"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("quantity update: expected 200, got %d", rec.Code)
	}
	updated := loadDraft(t, app, id).Items(f.Building.Id)[0]
	if !updated.Qte.Equal(decimal.NewFromInt(120)) || !updated.TotalPrice.Equal(decimal.NewFromInt(5400)) {
		t.Errorf("qte %s total %s", updated.Qte, updated.TotalPrice)
	}
}

func TestHandleWizardEvent_AddItemValidation(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	d := readyDraft(f, "EW-100")
	d.Step = wizard.StepBOQ
	id := saveDraft(t, app, d)

	rec := postEvent(t, app, id, url.Values{"type": {"add_item"}, "building_id": {f.Building.Id}, "key": {"Fence"}, "qte": {"ten"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad quantity: expected 400, got %d", rec.Code)
	}

	postEvent(t, app, id, url.Values{"type": {"add_item"}, "building_id": {f.Building.Id}, "key": {"Fence"}, "unite": {"ml"}, "qte": {"40"}, "pu": {"12.5"}})
	items := loadDraft(t, app, id).Items(f.Building.Id)
	if len(items) != 2 || items[1].Key != "Fence" || !items[1].TotalPrice.Equal(decimal.NewFromInt(500)) {
		t.Errorf("items = %+v", items)
	}
}

func TestHandleWizardImport_CSV(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	d := readyDraft(f, "EW-100")
	d.Step = wizard.StepBOQ
	d.BOQ = []wizard.BuildingBOQ{}
	id := saveDraft(t, app, d)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("building_id", f.Building.Id)
	part, err := w.CreateFormFile("file", "boq.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("No,Description,Cost Code,Unit,Qty,Unit Price\n" +
		"1.1,Site clearance,01.100,m2,1200,8.5\n" +
		"1.2,Excavation,01.200,m3,850,45\n"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/wizard/"+id+"/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := serve(t, app, HandleWizardImport(app), req, "draftId", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if toastOf(t, rec)["message"] != "Imported 2 rows" {
		t.Errorf("toast = %v", toastOf(t, rec))
	}
	items := loadDraft(t, app, id).Items(f.Building.Id)
	if len(items) != 2 || items[0].BudgetSource {
		t.Errorf("imported items = %+v", items)
	}
}

// importRequest builds a multipart BOQ upload of a CSV body.
func importRequest(t *testing.T, draftID, buildingID, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("building_id", buildingID)
	part, err := w.CreateFormFile("file", "boq.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(body))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/wizard/"+draftID+"/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleWizardImport_RowErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantToast string
		wantItems int
		wantRows  []string
	}{
		{
			name: "partial import lists rejected rows",
			body: "No,Description,Cost Code,Unit,Qty,Unit Price\n" +
				"1.1,Site clearance,01.100,m2,1200,8.5\n" +
				"1.2,Excavation,01.200,m3,-4,45\n" +
				"1.3,,01.300,m3,10,45\n",
			wantCode:  http.StatusOK,
			wantToast: "Imported 1 rows, skipped 2 with errors",
			wantItems: 1,
			wantRows:  []string{"Qty must be a non-negative number", "Description is required"},
		},
		{
			name: "no valid rows still shows the rejected rows",
			body: "No,Description,Cost Code,Unit,Qty,Unit Price\n" +
				"1.1,Site clearance,01.100,m2,abc,8.5\n",
			wantCode:  http.StatusOK,
			wantToast: "No valid rows in boq.csv (1 errors)",
			wantItems: 0,
			wantRows:  []string{"Qty must be a non-negative number"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			f := testhelpers.CreateContractFixture(t, app)
			d := readyDraft(f, "EW-101")
			d.Step = wizard.StepBOQ
			d.BOQ = []wizard.BuildingBOQ{}
			id := saveDraft(t, app, d)

			rec := serve(t, app, HandleWizardImport(app), importRequest(t, id, f.Building.Id, tt.body), "draftId", id)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if got := toastOf(t, rec)["message"]; got != tt.wantToast {
				t.Errorf("toast = %q, want %q", got, tt.wantToast)
			}
			body := rec.Body.String()
			if !strings.Contains(body, `id="wizard-import-errors"`) {
				t.Fatalf("import errors not rendered: %s", body)
			}
			for _, msg := range tt.wantRows {
				if !strings.Contains(body, msg) {
					t.Errorf("body missing %q", msg)
				}
			}
			if !strings.Contains(body, "/wizard/"+id+"/import/errors") {
				t.Error("error report download form not rendered")
			}
			if got := len(loadDraft(t, app, id).Items(f.Building.Id)); got != tt.wantItems {
				t.Errorf("items = %d, want %d", got, tt.wantItems)
			}
		})
	}
}

func TestHandleWizardImport_EmptyFile(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	d := readyDraft(f, "EW-102")
	d.Step = wizard.StepBOQ
	id := saveDraft(t, app, d)

	req := importRequest(t, id, f.Building.Id, "No,Description,Cost Code,Unit,Qty,Unit Price\n")
	rec := serve(t, app, HandleWizardImport(app), req, "draftId", id)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "wizard-import-errors") {
		t.Error("empty file should not render an error list")
	}
}

func TestHandleWizardImportErrors(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	t.Run("downloads the report", func(t *testing.T) {
		form := url.Values{"errors": {`[{"row":3,"field":"Qty","message":"Qty must be a non-negative number"}]`}}
		rec := serve(t, app, HandleWizardImportErrors(app), postForm("/wizard/"+id+"/import/errors", form), "draftId", id)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "boq_import_errors.xlsx") {
			t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
			t.Error("body is not an xlsx archive")
		}
	})

	for _, raw := range []string{"", "not json", "[]"} {
		t.Run("rejects "+strconv.Quote(raw), func(t *testing.T) {
			form := url.Values{"errors": {raw}}
			rec := serve(t, app, HandleWizardImportErrors(app), postForm("/wizard/"+id+"/import/errors", form), "draftId", id)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleWizardTemplate(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := serve(t, app, HandleWizardTemplate(app), httptest.NewRequest(http.MethodGet, "/wizard/"+id+"/template", nil), "draftId", id)
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "boq_template.xlsx") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "spreadsheetml") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestHandleWizardExport(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	ready := saveDraft(t, app, readyDraft(f, "EW-100"))
	empty := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := serve(t, app, HandleWizardExport(app), httptest.NewRequest(http.MethodGet, "/wizard/"+ready+"/export?format=pdf", nil), "draftId", ready)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "EW-100.pdf") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	rec = serve(t, app, HandleWizardExport(app), httptest.NewRequest(http.MethodGet, "/wizard/"+empty+"/export?format=pdf", nil), "draftId", empty)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete draft: expected 400, got %d", rec.Code)
	}
}

func TestHandleWizardSubmit_CreatesContract(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	id := saveDraft(t, app, readyDraft(f, "EW-100"))

	rec := serve(t, app, HandleWizardSubmit(app), httptest.NewRequest(http.MethodPost, "/wizard/"+id+"/submit", nil), "draftId", id)
	testhelpers.AssertHXRedirect(t, rec.Header().Get("HX-Redirect"), "/contracts")
	if toastOf(t, rec)["message"] != "Contract EW-100 created" {
		t.Errorf("toast = %v", toastOf(t, rec))
	}

	c, err := app.FindFirstRecordByFilter("contracts", "contract_number = 'EW-100'")
	if err != nil {
		t.Fatalf("contract not saved: %v", err)
	}
	if c.GetString("status") != "Draft" || c.GetFloat("total_amount") != 4500 {
		t.Errorf("status %q total %v", c.GetString("status"), c.GetFloat("total_amount"))
	}
	if _, err := services.LoadDraft(app, id); err == nil {
		t.Error("draft should be removed after saving")
	}
}

func TestHandleWizardSubmit_DuplicateKeepsDraft(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	testhelpers.CreateTestContract(t, app, f, "EW-100", "Active")
	id := saveDraft(t, app, readyDraft(f, "EW-100"))

	rec := serve(t, app, HandleWizardSubmit(app), httptest.NewRequest(http.MethodPost, "/wizard/"+id+"/submit", nil), "draftId", id)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if _, err := services.LoadDraft(app, id); err != nil {
		t.Error("draft must survive a failed save")
	}
}

func TestHandleWizardSubmit_Incomplete(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	id := saveDraft(t, app, wizard.NewDraft(wizard.ModeNew))

	rec := serve(t, app, HandleWizardSubmit(app), httptest.NewRequest(http.MethodPost, "/wizard/"+id+"/submit", nil), "draftId", id)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
