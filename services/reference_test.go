package services

import (
	"context"
	"testing"

	"contractadmin/testhelpers"
)

func TestLoadReferenceData(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestProject(t, app, "Zeta Tower")
	testhelpers.CreateTestProject(t, app, "alpha Park")
	testhelpers.CreateTestSubcontractor(t, app, "Atlas")
	testhelpers.CreateTestCurrency(t, app, "MAD")
	testhelpers.CreateTestTemplate(t, app, "Standard")

	data := LoadReferenceData(context.Background(), app)
	if !data.Ready() {
		t.Fatalf("expected all lists to load, errors = %v", data.Errors)
	}
	if len(data.Projects) != 2 || data.Projects[0].Label != "alpha Park" {
		t.Errorf("projects = %+v, want case-insensitive order", data.Projects)
	}
	if len(data.Subcontractors) != 1 || len(data.Currencies) != 1 || len(data.Templates) != 1 {
		t.Errorf("data = %+v", data)
	}
	if data.Currencies[0].Label != "MAD" {
		t.Errorf("currency label = %q", data.Currencies[0].Label)
	}
}

func TestLoadReferenceData_ReportsEachFailure(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestProject(t, app, "Only Project")
	// Contracts reference the collection, so drop the table underneath it.
	if _, err := app.DB().NewQuery("DROP TABLE contract_templates").Execute(); err != nil {
		t.Fatal(err)
	}

	data := LoadReferenceData(context.Background(), app)
	if data.Ready() {
		t.Fatal("expected templates to fail")
	}
	if _, ok := data.Errors[RefTemplates]; !ok || len(data.Errors) != 1 {
		t.Errorf("errors = %v, want only %q", data.Errors, RefTemplates)
	}
	if len(data.Projects) != 1 {
		t.Errorf("other lists should still load, projects = %+v", data.Projects)
	}
	if data.Templates == nil {
		t.Error("failed list should be empty, not nil")
	}
}
