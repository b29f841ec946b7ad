package services

import (
	"errors"
	"testing"

	"github.com/pocketbase/pocketbase/core"

	"contractadmin/testhelpers"
	"contractadmin/wizard"
)

func samplePayload(f testhelpers.ContractFixture) wizard.ContractPayload {
	return wizard.ContractPayload{
		ProjectID:       f.Project.Id,
		TradeID:         f.Trade.Id,
		SubcontractorID: f.Subcontractor.Id,
		ContractNumber:  "TP-EW-001",
		ContractDate:    "2025-01-10",
		StartDate:       "2025-02-01",
		CompletionDate:  "2025-09-30",
		CurrencyID:      f.Currency.Id,
		AdvancePayment:  10,
		Retention:       5,
		Buildings: []wizard.BuildingPayload{{
			BuildingID: f.Building.Id,
			BOQItems: []wizard.ItemPayload{
				{No: "1.1", Key: "Excavation", CostCode: "01.200", Unite: "m3", Qte: 100, PU: 45, TotalPrice: 1, BudgetSource: true},
				{No: "1.2", Key: "Extra haulage", Unite: "m3", Qte: 2.5, PU: 10.1},
			},
		}},
	}
}

func TestLoadProjectReference(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	testhelpers.CreateTestTrade(t, app, "Plumbing")
	empty := testhelpers.CreateTestBuilding(t, app, f.Project.Id, "Block B")
	testhelpers.CreateTestSheet(t, app, empty.Id, "Plumbing")

	ref, err := LoadProjectReference(app, f.Project.Id)
	if err != nil {
		t.Fatalf("LoadProjectReference() error = %v", err)
	}
	if len(ref.Trades) != 2 {
		t.Errorf("expected 2 trades, got %d", len(ref.Trades))
	}
	if len(ref.Buildings) != 2 {
		t.Fatalf("expected 2 buildings, got %d", len(ref.Buildings))
	}
	a, ok := ref.Building(f.Building.Id)
	if !ok {
		t.Fatal("Block A missing")
	}
	if len(a.Sheets) != 1 || len(a.Sheets[0].Items) != 2 {
		t.Fatalf("Block A sheets = %+v", a.Sheets)
	}
	if a.Sheets[0].Items[0].Key != "Excavation" || a.Sheets[0].Items[1].PU.String() != "60" {
		t.Errorf("items out of order: %+v", a.Sheets[0].Items)
	}

	// Only Block A has populated Earth Works lines.
	d := wizard.NewDraft(wizard.ModeNew)
	d.ProjectID = f.Project.Id
	avail := ref.AvailableBuildings(d, f.Trade.Id)
	if len(avail) != 1 || avail[0].ID != f.Building.Id {
		t.Errorf("available buildings = %+v", avail)
	}
}

func TestSaveContract_NewThenEdit(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	p := samplePayload(f)

	id, err := SaveContract(app, p)
	if err != nil {
		t.Fatalf("SaveContract() error = %v", err)
	}
	contract, err := app.FindRecordById("contracts", id)
	if err != nil {
		t.Fatal(err)
	}
	if contract.GetString("status") != "Draft" {
		t.Errorf("status = %q, want Draft", contract.GetString("status"))
	}
	// 100*45 + 2.5*10.1; the client total is ignored.
	if got := contract.GetFloat("total_amount"); got != 4525.25 {
		t.Errorf("total_amount = %v, want 4525.25", got)
	}

	loaded, err := LoadContractPayload(app, id)
	if err != nil {
		t.Fatalf("LoadContractPayload() error = %v", err)
	}
	if loaded.ContractDate != "2025-01-10" || loaded.Retention != 5 {
		t.Errorf("header = %+v", loaded)
	}
	if len(loaded.Buildings) != 1 || len(loaded.Buildings[0].BOQItems) != 2 {
		t.Fatalf("buildings = %+v", loaded.Buildings)
	}
	first := loaded.Buildings[0].BOQItems[0]
	if first.Key != "Excavation" || !first.BudgetSource || first.TotalPrice != 4500 {
		t.Errorf("first line = %+v", first)
	}

	// Edit replaces the BOQ.
	loaded.Buildings[0].BOQItems = loaded.Buildings[0].BOQItems[:1]
	if _, err := SaveContract(app, loaded); err != nil {
		t.Fatalf("SaveContract(edit) error = %v", err)
	}
	lines, err := app.FindRecordsByFilter("contract_boq_items", "contract_building.contract = {:c}", "", 0, 0,
		map[string]any{"c": id})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Errorf("expected 1 line after edit, got %d", len(lines))
	}
	contract, _ = app.FindRecordById("contracts", id)
	if contract.GetFloat("total_amount") != 4500 {
		t.Errorf("total after edit = %v", contract.GetFloat("total_amount"))
	}
}

func TestSaveContract_DuplicateNumberRollsBack(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	testhelpers.CreateTestContract(t, app, f, "TP-EW-001", "Active")

	_, err := SaveContract(app, samplePayload(f))
	if !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}
	buildings, _ := app.FindAllRecords("contract_buildings")
	if len(buildings) != 0 {
		t.Errorf("nothing should be written, found %d contract buildings", len(buildings))
	}
}

// dropField removes a field from a collection so filters on it fail.
func dropField(t *testing.T, app core.App, collection, field string) {
	t.Helper()
	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		t.Fatal(err)
	}
	col.Fields.RemoveByName(field)
	if err := app.Save(col); err != nil {
		t.Fatalf("drop %s.%s: %v", collection, field, err)
	}
}

func TestSaveContract_NumberCheckFailureAborts(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	dropField(t, app, "contracts", "contract_number")

	_, err := SaveContract(app, samplePayload(f))
	if err == nil {
		t.Fatal("expected the failed number check to abort the save")
	}
	if errors.Is(err, ErrDuplicateNumber) {
		t.Errorf("a failed lookup is not a duplicate: %v", err)
	}
	contracts, _ := app.FindAllRecords("contracts")
	if len(contracts) != 0 {
		t.Errorf("nothing should be written, found %d contracts", len(contracts))
	}
}

func TestSaveContract_TerminatedIsLocked(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	c := testhelpers.CreateTestContract(t, app, f, "TP-EW-009", "Terminated")

	p := samplePayload(f)
	p.ID = c.Id
	p.ContractNumber = "TP-EW-009"
	if _, err := SaveContract(app, p); !errors.Is(err, ErrContractLocked) {
		t.Errorf("expected ErrContractLocked, got %v", err)
	}
}

func TestBuildContractExport(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	c := testhelpers.CreateTestContract(t, app, f, "TP-EW-002", "Active")
	testhelpers.CreateTestContractLine(t, app, c.Id, f.Building.Id, "Excavation", 100, 45)
	testhelpers.CreateTestVariationOrder(t, app, c.Id, "VO-001", 500, "Approved")
	testhelpers.CreateTestVariationOrder(t, app, c.Id, "VO-002", 900, "Pending")

	data, err := BuildContractExport(app, c.Id)
	if err != nil {
		t.Fatalf("BuildContractExport() error = %v", err)
	}
	if data.ProjectName != "Test Project" || data.TradeName != "Earth Works" || data.Currency != "MAD" {
		t.Errorf("header = %+v", data)
	}
	if len(data.Buildings) != 1 || data.Buildings[0].Name != "Block A" || data.Buildings[0].Subtotal != 4500 {
		t.Errorf("buildings = %+v", data.Buildings)
	}
	if len(data.Variations) != 2 {
		t.Errorf("expected 2 variations, got %d", len(data.Variations))
	}
	want := CalcContractTotals([]float64{4500}, []float64{500}, 10, 5)
	if data.Totals != want {
		t.Errorf("totals = %+v, want %+v", data.Totals, want)
	}
	if _, err := GenerateContractExcel(data); err != nil {
		t.Errorf("GenerateContractExcel() error = %v", err)
	}
}

func TestBuildPayloadExport_Draft(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)

	data := BuildPayloadExport(app, samplePayload(f))
	if data.Status != "Draft" || data.ContractNumber != "TP-EW-001" || data.SubcontractorName != "Test Sub" {
		t.Errorf("header = %+v", data)
	}
	// line totals are recomputed, the submitted TotalPrice is ignored
	if got := data.Buildings[0].Lines[0].Total; got != 4500 {
		t.Errorf("line total = %v, want 4500", got)
	}
	if data.Buildings[0].Subtotal != 4525.25 {
		t.Errorf("subtotal = %v", data.Buildings[0].Subtotal)
	}
	if len(data.Variations) != 0 || data.Totals.ApprovedVariations != 0 {
		t.Errorf("drafts carry no variations: %+v", data.Totals)
	}
	if data.Totals.Gross != 4525.25 {
		t.Errorf("gross = %v", data.Totals.Gross)
	}
}

func TestTerminateContract(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	f := testhelpers.CreateContractFixture(t, app)
	active := testhelpers.CreateTestContract(t, app, f, "TP-1", "Active")
	draft := testhelpers.CreateTestContract(t, app, f, "TP-2", "Draft")

	res, err := TerminateContract(app, active.Id, "Subcontractor default")
	if err != nil || !res.Success {
		t.Fatalf("TerminateContract(active) = %+v, %v", res, err)
	}
	rec, _ := app.FindRecordById("contracts", active.Id)
	if rec.GetString("status") != "Terminated" || rec.GetString("termination_reason") != "Subcontractor default" {
		t.Errorf("record = %v / %v", rec.GetString("status"), rec.GetString("termination_reason"))
	}

	res, err = TerminateContract(app, draft.Id, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("draft contracts cannot be terminated")
	}
}

func TestDraftLifecycle(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	d := wizard.NewDraft(wizard.ModeNew)
	d.ProjectID = "p1"
	d.Step = wizard.StepTrade

	id, err := SaveDraft(app, "", d)
	if err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}
	d.TradeID = "t1"
	if again, err := SaveDraft(app, id, d); err != nil || again != id {
		t.Fatalf("SaveDraft(update) = %q, %v", again, err)
	}

	loaded, err := LoadDraft(app, id)
	if err != nil {
		t.Fatalf("LoadDraft() error = %v", err)
	}
	if loaded.ProjectID != "p1" || loaded.TradeID != "t1" || loaded.Step != wizard.StepTrade {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := DeleteDraft(app, id); err != nil {
		t.Fatalf("DeleteDraft() error = %v", err)
	}
	if _, err := LoadDraft(app, id); err == nil {
		t.Error("expected error loading deleted draft")
	}
	if err := DeleteDraft(app, id); err != nil {
		t.Errorf("deleting a missing draft should be a no-op, got %v", err)
	}
}
