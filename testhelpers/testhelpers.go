// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"contractadmin/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateRecord saves a record with fields into collection and returns it.
func CreateRecord(t *testing.T, app core.App, collection string, fields map[string]any) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collection)
	if err != nil {
		t.Fatalf("failed to find %s collection: %v", collection, err)
	}

	record := core.NewRecord(col)
	for k, v := range fields {
		record.Set(k, v)
	}
	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test %s record: %v", collection, err)
	}
	return record
}

// CreateTestProject creates a project record with the given name and returns it.
func CreateTestProject(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "projects", map[string]any{"name": name, "code": strings.ToUpper(name[:min(3, len(name))])})
}

// CreateTestTrade creates a catalog trade.
func CreateTestTrade(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "trades", map[string]any{"name": name})
}

// CreateTestBuilding creates a building in a project.
func CreateTestBuilding(t *testing.T, app core.App, projectID, name string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "buildings", map[string]any{"project": projectID, "name": name})
}

// CreateTestSheet creates a budget sheet on a building.
func CreateTestSheet(t *testing.T, app core.App, buildingID, name string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "budget_sheets", map[string]any{"building": buildingID, "name": name})
}

// CreateTestBudgetItem creates a budget line on a sheet.
func CreateTestBudgetItem(t *testing.T, app core.App, sheetID string, sortOrder int, key, costCode string, qte, pu float64) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "budget_items", map[string]any{
		"sheet":      sheetID,
		"sort_order": sortOrder,
		"no":         fmt.Sprintf("1.%d", sortOrder),
		"key":        key,
		"cost_code":  costCode,
		"unite":      "m3",
		"qte":        qte,
		"pu":         pu,
	})
}

// CreateTestSubcontractor creates a subcontractor.
func CreateTestSubcontractor(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "subcontractors", map[string]any{"name": name, "email": "test@example.com", "phone": "+212 600 000 000"})
}

// CreateTestCurrency creates a currency.
func CreateTestCurrency(t *testing.T, app core.App, code string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "currencies", map[string]any{"code": code, "name": code})
}

// CreateTestTemplate creates a contract template.
func CreateTestTemplate(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "contract_templates", map[string]any{"name": name})
}

// CreateTestCostCode creates a cost code.
func CreateTestCostCode(t *testing.T, app core.App, code, label string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "cost_codes", map[string]any{"code": code, "label": label})
}

// ContractFixture bundles the records a contract hangs off.
type ContractFixture struct {
	Project       *core.Record
	Trade         *core.Record
	Building      *core.Record
	Sheet         *core.Record
	Subcontractor *core.Record
	Currency      *core.Record
}

// CreateContractFixture creates a project with one building whose sheet
// "Earth Works" carries two budget lines, plus the matching trade,
// a subcontractor and a currency.
func CreateContractFixture(t *testing.T, app core.App) ContractFixture {
	t.Helper()
	f := ContractFixture{
		Project:       CreateTestProject(t, app, "Test Project"),
		Trade:         CreateTestTrade(t, app, "Earth Works"),
		Subcontractor: CreateTestSubcontractor(t, app, "Test Sub"),
		Currency:      CreateTestCurrency(t, app, "MAD"),
	}
	f.Building = CreateTestBuilding(t, app, f.Project.Id, "Block A")
	f.Sheet = CreateTestSheet(t, app, f.Building.Id, "Earth Works")
	CreateTestBudgetItem(t, app, f.Sheet.Id, 1, "Excavation", "01.200", 100, 45)
	CreateTestBudgetItem(t, app, f.Sheet.Id, 2, "Backfill", "01.300", 50, 60)
	return f
}

// CreateTestContract creates a contract with the given number and status.
func CreateTestContract(t *testing.T, app core.App, f ContractFixture, number, status string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "contracts", map[string]any{
		"project":         f.Project.Id,
		"trade":           f.Trade.Id,
		"subcontractor":   f.Subcontractor.Id,
		"currency":        f.Currency.Id,
		"contract_number": number,
		"contract_date":   "2025-01-10",
		"start_date":      "2025-02-01",
		"completion_date": "2025-09-30",
		"advance_payment": 10,
		"retention":       5,
		"status":          status,
	})
}

// CreateTestContractLine links building to contract (once) and adds a line.
func CreateTestContractLine(t *testing.T, app core.App, contractID, buildingID, key string, qte, pu float64) *core.Record {
	t.Helper()
	cb, err := app.FindFirstRecordByFilter("contract_buildings",
		"contract = {:c} && building = {:b}", map[string]any{"c": contractID, "b": buildingID})
	if err != nil {
		cb = CreateRecord(t, app, "contract_buildings", map[string]any{"contract": contractID, "building": buildingID, "sort_order": 1})
	}
	return CreateRecord(t, app, "contract_boq_items", map[string]any{
		"contract_building": cb.Id,
		"sort_order":        1,
		"no":                "1",
		"key":               key,
		"cost_code":         "01.100",
		"unite":             "m3",
		"qte":               qte,
		"pu":                pu,
		"total_price":       qte * pu,
	})
}

// CreateTestVariationOrder creates a variation order on a contract.
func CreateTestVariationOrder(t *testing.T, app core.App, contractID, number string, amount float64, status string) *core.Record {
	t.Helper()
	return CreateRecord(t, app, "variation_orders", map[string]any{
		"contract":    contractID,
		"vo_number":   number,
		"description": "Test variation " + number,
		"amount":      amount,
		"status":      status,
	})
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

// AssertHTMLNotContains checks that body contains none of the fragments.
func AssertHTMLNotContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if strings.Contains(body, frag) {
			t.Errorf("expected HTML not to contain %q\nbody (first 500 chars): %s", frag, truncate(body, 500))
		}
	}
}

// AssertHXRedirect checks that the response has an HX-Redirect header with the expected URL.
func AssertHXRedirect(t *testing.T, headerVal, expectedURL string) {
	t.Helper()

	if headerVal != expectedURL {
		t.Errorf("expected HX-Redirect %q, got %q", expectedURL, headerVal)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
