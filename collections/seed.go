package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// ── Definition structs ───────────────────────────────────────────────────

type lineDef struct {
	no       string
	key      string
	costCode string
	unite    string
	qte      float64
	pu       float64
}

type sheetDef struct {
	trade string
	lines []lineDef
}

type buildingDef struct {
	name   string
	sheets []sheetDef
}

type voDef struct {
	number      string
	description string
	amount      float64
	status      string
	reason      string
}

var earthWorks = []lineDef{
	{"1.1", "Site clearance", "01.100", "m2", 1200, 8.5},
	{"1.2", "Excavation in ordinary soil", "01.200", "m3", 850, 45},
	{"1.3", "Backfill with selected material", "01.300", "m3", 420, 60},
}

var plumbing = []lineDef{
	{"2.1", "PVC drainage pipe 110mm", "04.100", "ml", 320, 95},
	{"2.2", "Manhole 80x80", "04.200", "u", 6, 3200},
}

var electricity = []lineDef{
	{"3.1", "Distribution board", "05.100", "u", 4, 7800},
}

var seedBuildings = []buildingDef{
	{"Block A", []sheetDef{{"Earth Works", earthWorks}, {"Plumbing", plumbing}, {"Electricity", electricity}}},
	{"Block B", []sheetDef{{"Earth Works", earthWorks[:2]}, {"Plumbing", nil}}},
	{"Block C", []sheetDef{{"Electricity", electricity}}},
}

var seedCostCodes = [][2]string{
	{"01.100", "Preparation"},
	{"01.200", "Excavation"},
	{"01.300", "Backfill"},
	{"04.100", "Drainage"},
	{"04.200", "Manholes"},
	{"05.100", "Low voltage"},
}

var seedVariationOrders = []voDef{
	{"VO-001", "Additional excavation at ramp", 18500, "Approved", ""},
	{"VO-002", "Rock breaking allowance", 42000, "Pending", ""},
	{"VO-003", "Extra site fence", 7600, "Rejected", "Included in preliminaries"},
}

// Seed inserts demo catalog data, one project with budget sheets and an
// active contract. It is a no-op when projects already exist.
func Seed(app core.App) error {
	// ── idempotency: skip if projects already exist ──────────────────
	projectsCol, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		return fmt.Errorf("seed: could not find projects collection: %w", err)
	}
	existing, err := app.FindAllRecords(projectsCol)
	if err != nil {
		return fmt.Errorf("seed: could not query projects: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Println("seed: projects collection is empty - inserting seed data")

	return app.RunInTransaction(func(txApp core.App) error {
		create := func(collection string, fields map[string]any) (*core.Record, error) {
			col, err := txApp.FindCollectionByNameOrId(collection)
			if err != nil {
				return nil, fmt.Errorf("seed: could not find %s collection: %w", collection, err)
			}
			record := core.NewRecord(col)
			for k, v := range fields {
				record.Set(k, v)
			}
			if err := txApp.Save(record); err != nil {
				return nil, fmt.Errorf("seed: save %s: %w", collection, err)
			}
			return record, nil
		}

		// ── catalogs ─────────────────────────────────────────────────
		mad, err := create("currencies", map[string]any{"code": "MAD", "name": "Moroccan dirham"})
		if err != nil {
			return err
		}
		if _, err := create("currencies", map[string]any{"code": "EUR", "name": "Euro"}); err != nil {
			return err
		}
		template, err := create("contract_templates", map[string]any{"name": "Standard subcontract"})
		if err != nil {
			return err
		}
		if _, err := create("contract_templates", map[string]any{"name": "Lump sum subcontract"}); err != nil {
			return err
		}

		tradeIDs := map[string]string{}
		for _, name := range []string{"Earth Works", "Plumbing", "Electricity", "Painting"} {
			rec, err := create("trades", map[string]any{"name": name})
			if err != nil {
				return err
			}
			tradeIDs[name] = rec.Id
		}

		sub, err := create("subcontractors", map[string]any{"name": "Atlas Terrassement", "email": "contact@atlas-tp.ma", "phone": "+212 522 000 111"})
		if err != nil {
			return err
		}
		if _, err := create("subcontractors", map[string]any{"name": "Hydro Plomberie", "email": "devis@hydro.ma", "phone": "+212 522 000 222"}); err != nil {
			return err
		}

		for _, cc := range seedCostCodes {
			if _, err := create("cost_codes", map[string]any{"code": cc[0], "label": cc[1]}); err != nil {
				return err
			}
		}

		// ── project, buildings, budget sheets ────────────────────────
		project, err := create("projects", map[string]any{"name": "Residence Al Amal", "code": "RAA-01"})
		if err != nil {
			return err
		}

		buildingIDs := make([]string, 0, len(seedBuildings))
		for _, b := range seedBuildings {
			building, err := create("buildings", map[string]any{"project": project.Id, "name": b.name})
			if err != nil {
				return err
			}
			buildingIDs = append(buildingIDs, building.Id)
			for _, s := range b.sheets {
				sheet, err := create("budget_sheets", map[string]any{"building": building.Id, "name": s.trade})
				if err != nil {
					return err
				}
				for i, l := range s.lines {
					if _, err := create("budget_items", lineFields("sheet", sheet.Id, i+1, l)); err != nil {
						return err
					}
				}
			}
		}

		// ── active earth works contract on Block A ───────────────────
		total := 0.0
		for _, l := range earthWorks {
			total += l.qte * l.pu
		}
		contract, err := create("contracts", map[string]any{
			"project":         project.Id,
			"trade":           tradeIDs["Earth Works"],
			"subcontractor":   sub.Id,
			"currency":        mad.Id,
			"template":        template.Id,
			"contract_number": "RAA-EW-001",
			"contract_date":   "2025-01-10",
			"start_date":      "2025-02-01",
			"completion_date": "2025-09-30",
			"advance_payment": 10,
			"retention":       5,
			"description":     "Earth works for Block A",
			"status":          "Active",
			"total_amount":    total,
		})
		if err != nil {
			return err
		}
		cb, err := create("contract_buildings", map[string]any{"contract": contract.Id, "building": buildingIDs[0], "sort_order": 1})
		if err != nil {
			return err
		}
		for i, l := range earthWorks {
			fields := lineFields("contract_building", cb.Id, i+1, l)
			fields["total_price"] = l.qte * l.pu
			fields["budget_source"] = true
			if _, err := create("contract_boq_items", fields); err != nil {
				return err
			}
		}
		for _, vo := range seedVariationOrders {
			if _, err := create("variation_orders", map[string]any{
				"contract":         contract.Id,
				"vo_number":        vo.number,
				"description":      vo.description,
				"amount":           vo.amount,
				"status":           vo.status,
				"rejection_reason": vo.reason,
			}); err != nil {
				return err
			}
		}

		log.Printf("seed: inserted project %q with %d buildings and contract %s\n", "Residence Al Amal", len(buildingIDs), "RAA-EW-001")
		return nil
	})
}

func lineFields(parentField, parentID string, sortOrder int, l lineDef) map[string]any {
	return map[string]any{
		parentField:  parentID,
		"sort_order": sortOrder,
		"no":         l.no,
		"key":        l.key,
		"cost_code":  l.costCode,
		"unite":      l.unite,
		"qte":        l.qte,
		"pu":         l.pu,
	}
}
