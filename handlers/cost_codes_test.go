package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"contractadmin/testhelpers"
	"contractadmin/views"
	"contractadmin/wizard"
)

func TestHandleCostCodeNewAndTable(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serve(t, app, HandleCostCodeNew(app), postForm("/cost-codes/new", url.Values{"code": {""}}))
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "Code is required")

	rec = serve(t, app, HandleCostCodeNew(app), postForm("/cost-codes/new", url.Values{"code": {"07.100"}, "label": {"Waterproofing"}}))
	if _, ok := parseTrigger(t, rec)[views.RefreshCostCodes]; !ok {
		t.Error("expected refresh trigger")
	}

	rec = serve(t, app, HandleCostCodeTable(app), httptest.NewRequest(http.MethodGet, "/cost-codes/table", nil))
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "07.100", "Waterproofing")
}

func TestHandleCostCodeEditAndDelete(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	cc := testhelpers.CreateTestCostCode(t, app, "01.100", "Preparation")

	rec := serve(t, app, HandleCostCodeEdit(app), httptest.NewRequest(http.MethodGet, "/cost-codes/"+cc.Id+"/edit", nil), "id", cc.Id)
	testhelpers.AssertHTMLContains(t, rec.Body.String(), `data-dialog-kind="edit"`, `value="01.100"`)

	serve(t, app, HandleCostCodeEdit(app), postForm("/cost-codes/"+cc.Id+"/edit", url.Values{"code": {"01.100"}, "label": {"Site preparation"}}), "id", cc.Id)
	got, _ := app.FindRecordById("cost_codes", cc.Id)
	if got.GetString("label") != "Site preparation" {
		t.Errorf("label = %q", got.GetString("label"))
	}

	rec = serve(t, app, HandleCostCodeDelete(app), httptest.NewRequest(http.MethodDelete, "/cost-codes/"+cc.Id, nil), "id", cc.Id)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, err := app.FindRecordById("cost_codes", cc.Id); err == nil {
		t.Error("cost code should be deleted")
	}
}

func TestHandleCostCodeSelect_WritesIntoWizardLine(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	cc := testhelpers.CreateTestCostCode(t, app, "09.900", "Miscellaneous")
	d := readyDraft(f, "EW-100")
	d.Step = wizard.StepBOQ
	draftID := saveDraft(t, app, d)
	query := url.Values{"draft": {draftID}, "building": {f.Building.Id}, "item": {"item-1"}}.Encode()

	rec := serve(t, app, HandleCostCodeSelect(app), httptest.NewRequest(http.MethodGet, "/cost-codes/select?"+query, nil))
	testhelpers.AssertHTMLContains(t, rec.Body.String(), `data-dialog-kind="select"`, "09.900", "Miscellaneous")

	rec = serve(t, app, HandleCostCodeSelect(app), postForm("/cost-codes/select?"+query, url.Values{"id": {cc.Id}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	testhelpers.AssertHTMLContains(t, body, `id="wizard"`, `hx-swap-oob="true"`)
	testhelpers.AssertHTMLNotContains(t, body, `data-dialog-kind="select"`)
	if got := loadDraft(t, app, draftID).Items(f.Building.Id)[0].CostCode; got != "09.900" {
		t.Errorf("cost code = %q", got)
	}
}

func TestHandleCostCodeSelect_UnknownRow(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	draftID := saveDraft(t, app, readyDraft(f, "EW-100"))
	query := url.Values{"draft": {draftID}, "building": {f.Building.Id}, "item": {"item-1"}}.Encode()

	rec := serve(t, app, HandleCostCodeSelect(app), postForm("/cost-codes/select?"+query, url.Values{"id": {"nope"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(toastOf(t, rec)["message"], "Unknown cost code") {
		t.Errorf("toast = %v", toastOf(t, rec))
	}
}
