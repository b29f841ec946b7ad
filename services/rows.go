package services

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"

	"contractadmin/table"
)

// Table column sets. Amount columns carry float64 values so they sort
// numerically; views format them for display.
var (
	ContractColumns = table.NewColumns(
		"contract_number", "Contract",
		"project", "Project",
		"trade", "Trade",
		"subcontractor", "Subcontractor",
		"start_date", "Start",
		"total_amount", "Amount",
		"status", "Status",
	)
	VariationOrderColumns = table.NewColumns(
		"vo_number", "VO",
		"description", "Description",
		"amount", "Amount",
		"status", "Status",
	)
	CostCodeColumns = table.NewColumns(
		"code", "Code",
		"label", "Label",
	)
	ContractBOQColumns = table.NewColumns(
		"building", "Building",
		"no", "No",
		"key", "Description",
		"cost_code", "Cost Code",
		"unite", "Unit",
		"qte", "Qty",
		"pu", "Unit Price",
		"total_price", "Total",
	)
)

// names loads collection into an id -> field lookup.
func names(app core.App, collection, field string) (map[string]string, error) {
	records, err := app.FindAllRecords(collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.Id] = r.GetString(field)
	}
	return out, nil
}

// ContractRows lists every contract with its related names resolved.
func ContractRows(app core.App) ([]table.Row, error) {
	lookups := map[string]map[string]string{}
	for _, l := range []struct{ key, collection, field string }{
		{"project", "projects", "name"},
		{"trade", "trades", "name"},
		{"subcontractor", "subcontractors", "name"},
		{"currency", "currencies", "code"},
	} {
		m, err := names(app, l.collection, l.field)
		if err != nil {
			return nil, err
		}
		lookups[l.key] = m
	}

	contracts, err := app.FindRecordsByFilter("contracts", "id != ''", "-created", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	rows := make([]table.Row, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, table.Row{
			"id":              c.Id,
			"contract_number": c.GetString("contract_number"),
			"project":         lookups["project"][c.GetString("project")],
			"trade":           lookups["trade"][c.GetString("trade")],
			"subcontractor":   lookups["subcontractor"][c.GetString("subcontractor")],
			"currency":        lookups["currency"][c.GetString("currency")],
			"start_date":      FormatDate(c.GetDateTime("start_date")),
			"total_amount":    c.GetFloat("total_amount"),
			"status":          c.GetString("status"),
		})
	}
	return rows, nil
}

// VariationOrderRows lists the variation orders of a contract.
func VariationOrderRows(app core.App, contractID string) ([]table.Row, error) {
	vos, err := app.FindRecordsByFilter("variation_orders", "contract = {:c}", "vo_number", 0, 0,
		map[string]any{"c": contractID})
	if err != nil {
		return nil, fmt.Errorf("query variation orders: %w", err)
	}
	rows := make([]table.Row, 0, len(vos))
	for _, vo := range vos {
		rows = append(rows, table.Row{
			"id":               vo.Id,
			"contract":         contractID,
			"vo_number":        vo.GetString("vo_number"),
			"description":      vo.GetString("description"),
			"amount":           vo.GetFloat("amount"),
			"status":           vo.GetString("status"),
			"rejection_reason": vo.GetString("rejection_reason"),
		})
	}
	return rows, nil
}

// CostCodeRows lists the cost code catalog.
func CostCodeRows(app core.App) ([]table.Row, error) {
	codes, err := app.FindRecordsByFilter("cost_codes", "id != ''", "code", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("query cost codes: %w", err)
	}
	rows := make([]table.Row, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, table.Row{"id": c.Id, "code": c.GetString("code"), "label": c.GetString("label")})
	}
	return rows, nil
}

// ContractBOQRows flattens a contract's BOQ for the preview dialog, in
// building then line order.
func ContractBOQRows(app core.App, contractID string) ([]table.Row, error) {
	payload, err := LoadContractPayload(app, contractID)
	if err != nil {
		return nil, err
	}
	rows := []table.Row{}
	for _, b := range payload.Buildings {
		building := relatedField(app, "buildings", b.BuildingID, "name")
		for i, it := range b.BOQItems {
			rows = append(rows, table.Row{
				"id":          fmt.Sprintf("%s-%d", b.BuildingID, i+1),
				"building":    building,
				"no":          it.No,
				"key":         it.Key,
				"cost_code":   it.CostCode,
				"unite":       it.Unite,
				"qte":         it.Qte,
				"pu":          it.PU,
				"total_price": it.TotalPrice,
				"budget":      it.BudgetSource,
			})
		}
	}
	return rows, nil
}
