package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"contractadmin/dialog"
	"contractadmin/policy"
	"contractadmin/wizard"
)

var (
	// ErrContractLocked is returned when saving a terminated contract.
	ErrContractLocked = errors.New("contract is terminated and read-only")
	// ErrDuplicateNumber is returned when a contract number is already used.
	ErrDuplicateNumber = errors.New("contract number already exists")
)

// LoadProjectReference returns the trade catalog and the project's buildings
// with their budget sheets and lines.
func LoadProjectReference(app core.App, projectID string) (wizard.Reference, error) {
	var ref wizard.Reference

	trades, err := app.FindRecordsByFilter("trades", "id != ''", "name", 0, 0)
	if err != nil {
		return ref, fmt.Errorf("load trades: %w", err)
	}
	for _, t := range trades {
		ref.Trades = append(ref.Trades, wizard.Trade{ID: t.Id, Name: t.GetString("name")})
	}
	if projectID == "" {
		return ref, nil
	}

	buildings, err := app.FindRecordsByFilter("buildings", "project = {:p}", "name", 0, 0,
		map[string]any{"p": projectID})
	if err != nil {
		return ref, fmt.Errorf("load buildings: %w", err)
	}
	for _, b := range buildings {
		building := wizard.Building{ID: b.Id, Name: b.GetString("name")}
		sheets, err := app.FindRecordsByFilter("budget_sheets", "building = {:b}", "", 0, 0,
			map[string]any{"b": b.Id})
		if err != nil {
			return ref, fmt.Errorf("load sheets of %s: %w", b.Id, err)
		}
		for _, s := range sheets {
			items, err := app.FindRecordsByFilter("budget_items", "sheet = {:s}", "sort_order", 0, 0,
				map[string]any{"s": s.Id})
			if err != nil {
				return ref, fmt.Errorf("load items of sheet %s: %w", s.Id, err)
			}
			sheet := wizard.Sheet{Name: s.GetString("name"), Items: make([]wizard.SheetItem, 0, len(items))}
			for _, it := range items {
				sheet.Items = append(sheet.Items, wizard.SheetItem{
					No:       it.GetString("no"),
					Key:      it.GetString("key"),
					CostCode: it.GetString("cost_code"),
					Unite:    it.GetString("unite"),
					Qte:      decimal.NewFromFloat(it.GetFloat("qte")),
					PU:       decimal.NewFromFloat(it.GetFloat("pu")),
				})
			}
			building.Sheets = append(building.Sheets, sheet)
		}
		ref.Buildings = append(ref.Buildings, building)
	}
	return ref, nil
}

// SaveContract stores p in one transaction and returns the contract id. New
// contracts start as Draft. The BOQ of an existing contract is replaced
// wholesale and line totals are recomputed server side.
func SaveContract(app core.App, p wizard.ContractPayload) (string, error) {
	var id string
	err := app.RunInTransaction(func(txApp core.App) error {
		var contract *core.Record
		if p.ID == "" {
			col, err := txApp.FindCollectionByNameOrId("contracts")
			if err != nil {
				return err
			}
			contract = core.NewRecord(col)
			contract.Set("status", policy.ContractDraft)
		} else {
			existing, err := txApp.FindRecordById("contracts", p.ID)
			if err != nil {
				return fmt.Errorf("load contract %s: %w", p.ID, err)
			}
			if strings.EqualFold(existing.GetString("status"), policy.ContractTerminated) {
				return ErrContractLocked
			}
			contract = existing
		}

		dup, err := txApp.FindFirstRecordByFilter("contracts",
			"contract_number = {:n} && id != {:id}",
			map[string]any{"n": strings.TrimSpace(p.ContractNumber), "id": p.ID})
		switch {
		case err == nil && dup != nil:
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, p.ContractNumber)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check contract number: %w", err)
		}

		contract.Set("project", p.ProjectID)
		contract.Set("trade", p.TradeID)
		contract.Set("subcontractor", p.SubcontractorID)
		contract.Set("currency", p.CurrencyID)
		contract.Set("template", p.TemplateID)
		contract.Set("contract_number", strings.TrimSpace(p.ContractNumber))
		contract.Set("contract_date", p.ContractDate)
		contract.Set("start_date", p.StartDate)
		contract.Set("completion_date", p.CompletionDate)
		contract.Set("advance_payment", p.AdvancePayment)
		contract.Set("retention", p.Retention)
		contract.Set("description", p.Description)

		total := decimal.Zero
		for _, b := range p.Buildings {
			for _, it := range b.BOQItems {
				total = total.Add(decimal.NewFromFloat(CalcLineTotal(it.Qte, it.PU)))
			}
		}
		contract.Set("total_amount", total.InexactFloat64())
		if err := txApp.Save(contract); err != nil {
			return fmt.Errorf("save contract: %w", err)
		}

		old, err := txApp.FindRecordsByFilter("contract_buildings", "contract = {:c}", "", 0, 0,
			map[string]any{"c": contract.Id})
		if err != nil {
			return fmt.Errorf("load contract buildings: %w", err)
		}
		for _, cb := range old {
			if err := txApp.Delete(cb); err != nil {
				return fmt.Errorf("delete contract building: %w", err)
			}
		}

		cbCol, err := txApp.FindCollectionByNameOrId("contract_buildings")
		if err != nil {
			return err
		}
		itemCol, err := txApp.FindCollectionByNameOrId("contract_boq_items")
		if err != nil {
			return err
		}
		for i, b := range p.Buildings {
			cb := core.NewRecord(cbCol)
			cb.Set("contract", contract.Id)
			cb.Set("building", b.BuildingID)
			cb.Set("sort_order", i+1)
			if err := txApp.Save(cb); err != nil {
				return fmt.Errorf("save contract building %s: %w", b.BuildingID, err)
			}
			for j, it := range b.BOQItems {
				item := core.NewRecord(itemCol)
				item.Set("contract_building", cb.Id)
				item.Set("sort_order", j+1)
				item.Set("no", it.No)
				item.Set("key", it.Key)
				item.Set("cost_code", it.CostCode)
				item.Set("unite", it.Unite)
				item.Set("qte", it.Qte)
				item.Set("pu", it.PU)
				item.Set("total_price", CalcLineTotal(it.Qte, it.PU))
				item.Set("budget_source", it.BudgetSource)
				if err := txApp.Save(item); err != nil {
					return fmt.Errorf("save line %d of building %s: %w", j+1, b.BuildingID, err)
				}
			}
		}
		id = contract.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// LoadContractPayload reads a saved contract back into the save shape.
func LoadContractPayload(app core.App, id string) (wizard.ContractPayload, error) {
	contract, err := app.FindRecordById("contracts", id)
	if err != nil {
		return wizard.ContractPayload{}, fmt.Errorf("load contract %s: %w", id, err)
	}
	p := wizard.ContractPayload{
		ID:              contract.Id,
		ProjectID:       contract.GetString("project"),
		TradeID:         contract.GetString("trade"),
		SubcontractorID: contract.GetString("subcontractor"),
		ContractNumber:  contract.GetString("contract_number"),
		ContractDate:    FormatDate(contract.GetDateTime("contract_date")),
		StartDate:       FormatDate(contract.GetDateTime("start_date")),
		CompletionDate:  FormatDate(contract.GetDateTime("completion_date")),
		CurrencyID:      contract.GetString("currency"),
		TemplateID:      contract.GetString("template"),
		AdvancePayment:  contract.GetFloat("advance_payment"),
		Retention:       contract.GetFloat("retention"),
		Description:     contract.GetString("description"),
		TotalAmount:     contract.GetFloat("total_amount"),
		Buildings:       []wizard.BuildingPayload{},
	}

	cbs, err := app.FindRecordsByFilter("contract_buildings", "contract = {:c}", "sort_order", 0, 0,
		map[string]any{"c": id})
	if err != nil {
		return p, fmt.Errorf("load contract buildings: %w", err)
	}
	for _, cb := range cbs {
		items, err := app.FindRecordsByFilter("contract_boq_items", "contract_building = {:cb}", "sort_order", 0, 0,
			map[string]any{"cb": cb.Id})
		if err != nil {
			return p, fmt.Errorf("load contract lines: %w", err)
		}
		bp := wizard.BuildingPayload{BuildingID: cb.GetString("building"), BOQItems: make([]wizard.ItemPayload, 0, len(items))}
		for _, it := range items {
			bp.BOQItems = append(bp.BOQItems, wizard.ItemPayload{
				No:           it.GetString("no"),
				Key:          it.GetString("key"),
				CostCode:     it.GetString("cost_code"),
				Unite:        it.GetString("unite"),
				Qte:          it.GetFloat("qte"),
				PU:           it.GetFloat("pu"),
				TotalPrice:   it.GetFloat("total_price"),
				BudgetSource: it.GetBool("budget_source"),
			})
		}
		p.Buildings = append(p.Buildings, bp)
	}
	return p, nil
}

// BuildContractExport assembles the export document of contract id.
// Approved variation orders feed the revised totals.
func BuildContractExport(app core.App, id string) (ContractExport, error) {
	contract, err := app.FindRecordById("contracts", id)
	if err != nil {
		return ContractExport{}, fmt.Errorf("load contract %s: %w", id, err)
	}
	payload, err := LoadContractPayload(app, id)
	if err != nil {
		return ContractExport{}, err
	}
	data := BuildPayloadExport(app, payload)
	data.Status = contract.GetString("status")

	vos, err := app.FindRecordsByFilter("variation_orders", "contract = {:c}", "vo_number", 0, 0,
		map[string]any{"c": id})
	if err != nil {
		return data, fmt.Errorf("load variation orders: %w", err)
	}
	var approved []float64
	for _, vo := range vos {
		v := ExportVariation{
			Number:      vo.GetString("vo_number"),
			Description: vo.GetString("description"),
			Status:      vo.GetString("status"),
			Amount:      vo.GetFloat("amount"),
		}
		if strings.EqualFold(v.Status, policy.VOApproved) {
			approved = append(approved, v.Amount)
		}
		data.Variations = append(data.Variations, v)
	}
	data.Totals = CalcContractTotals(data.lineTotals(), approved, data.AdvancePercent, data.RetentionPercent)
	return data, nil
}

// BuildPayloadExport assembles the export document of an unsaved contract,
// such as a wizard draft being previewed.
func BuildPayloadExport(app core.App, p wizard.ContractPayload) ContractExport {
	data := ContractExport{
		Title:             "Subcontract " + p.ContractNumber,
		ContractNumber:    p.ContractNumber,
		Status:            policy.ContractDraft,
		ProjectName:       relatedField(app, "projects", p.ProjectID, "name"),
		TradeName:         relatedField(app, "trades", p.TradeID, "name"),
		SubcontractorName: relatedField(app, "subcontractors", p.SubcontractorID, "name"),
		Currency:          relatedField(app, "currencies", p.CurrencyID, "code"),
		ContractDate:      p.ContractDate,
		StartDate:         p.StartDate,
		CompletionDate:    p.CompletionDate,
		AdvancePercent:    p.AdvancePayment,
		RetentionPercent:  p.Retention,
		CreatedDate:       types.NowDateTime().Time().Format(DateLayout),
	}
	for _, b := range p.Buildings {
		eb := ExportBuilding{Name: relatedField(app, "buildings", b.BuildingID, "name")}
		subtotal := decimal.Zero
		for _, it := range b.BOQItems {
			total := CalcLineTotal(it.Qte, it.PU)
			eb.Lines = append(eb.Lines, ExportLine{
				No: it.No, Key: it.Key, CostCode: it.CostCode, Unite: it.Unite,
				Qte: it.Qte, PU: it.PU, Total: total, Budget: it.BudgetSource,
			})
			subtotal = subtotal.Add(decimal.NewFromFloat(total))
		}
		eb.Subtotal = subtotal.InexactFloat64()
		data.Buildings = append(data.Buildings, eb)
	}
	data.Totals = CalcContractTotals(data.lineTotals(), nil, data.AdvancePercent, data.RetentionPercent)
	return data
}

func (d ContractExport) lineTotals() []float64 {
	var out []float64
	for _, b := range d.Buildings {
		for _, l := range b.Lines {
			out = append(out, l.Total)
		}
	}
	return out
}

// relatedField returns field of the record id in collection, "" when absent.
func relatedField(app core.App, collection, id, field string) string {
	if id == "" {
		return ""
	}
	rec, err := app.FindRecordById(collection, id)
	if err != nil {
		return ""
	}
	return rec.GetString(field)
}

// TerminateContract moves an active contract to Terminated.
func TerminateContract(app core.App, id, reason string) (dialog.Result, error) {
	contract, err := app.FindRecordById("contracts", id)
	if err != nil {
		return dialog.Result{}, fmt.Errorf("load contract %s: %w", id, err)
	}
	if !policy.ContractActions(contract.GetString("status")).Allows(policy.Terminate) {
		return dialog.Failed("Only active contracts can be terminated"), nil
	}
	contract.Set("status", policy.ContractTerminated)
	contract.Set("termination_reason", strings.TrimSpace(reason))
	if err := app.Save(contract); err != nil {
		return dialog.Result{}, fmt.Errorf("terminate contract: %w", err)
	}
	return dialog.OK("Contract " + contract.GetString("contract_number") + " terminated"), nil
}

// SaveDraft stores d under draftID, creating a draft when draftID is empty,
// and returns the draft id.
func SaveDraft(app core.App, draftID string, d wizard.Draft) (string, error) {
	var rec *core.Record
	if draftID != "" {
		existing, err := app.FindRecordById("contract_drafts", draftID)
		if err == nil {
			rec = existing
		}
	}
	if rec == nil {
		col, err := app.FindCollectionByNameOrId("contract_drafts")
		if err != nil {
			return "", err
		}
		rec = core.NewRecord(col)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	rec.Set("mode", string(d.Mode))
	rec.Set("contract", d.ContractID)
	rec.Set("data", types.JSONRaw(raw))
	if err := app.Save(rec); err != nil {
		return "", fmt.Errorf("save draft: %w", err)
	}
	return rec.Id, nil
}

// LoadDraft returns the draft stored under draftID.
func LoadDraft(app core.App, draftID string) (wizard.Draft, error) {
	rec, err := app.FindRecordById("contract_drafts", draftID)
	if err != nil {
		return wizard.Draft{}, fmt.Errorf("load draft %s: %w", draftID, err)
	}
	var d wizard.Draft
	if err := rec.UnmarshalJSONField("data", &d); err != nil {
		return wizard.Draft{}, fmt.Errorf("decode draft %s: %w", draftID, err)
	}
	return d, nil
}

// DeleteDraft removes a draft. A missing draft is not an error.
func DeleteDraft(app core.App, draftID string) error {
	rec, err := app.FindRecordById("contract_drafts", draftID)
	if err != nil {
		return nil
	}
	return app.Delete(rec)
}
