package wizard

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ContractPayload is the nested save shape: contract header plus buildings,
// each with its BOQ lines.
type ContractPayload struct {
	ID              string            `json:"id,omitempty"`
	ProjectID       string            `json:"projectId"`
	TradeID         string            `json:"tradeId"`
	SubcontractorID string            `json:"subcontractorId"`
	ContractNumber  string            `json:"contractNumber"`
	ContractDate    string            `json:"contractDate"`
	StartDate       string            `json:"startDate"`
	CompletionDate  string            `json:"completionDate"`
	CurrencyID      string            `json:"currencyId"`
	TemplateID      string            `json:"templateId,omitempty"`
	AdvancePayment  float64           `json:"advancePayment"`
	Retention       float64           `json:"retention"`
	Description     string            `json:"description,omitempty"`
	TotalAmount     float64           `json:"totalAmount"`
	Buildings       []BuildingPayload `json:"buildings"`
}

// BuildingPayload is one building of a ContractPayload.
type BuildingPayload struct {
	BuildingID string        `json:"buildingId"`
	BOQItems   []ItemPayload `json:"boqItems"`
}

// ItemPayload is one BOQ line of a BuildingPayload.
type ItemPayload struct {
	No           string  `json:"no"`
	Key          string  `json:"key"`
	CostCode     string  `json:"costCode"`
	Unite        string  `json:"unite"`
	Qte          float64 `json:"qte"`
	PU           float64 `json:"pu"`
	TotalPrice   float64 `json:"totalPrice"`
	BudgetSource bool    `json:"budgetSource"`
}

// Ready reports the first incomplete step of d, if any.
func Ready(d Draft) error {
	for s := StepProject; s < StepReview; s++ {
		if errs := Validate(s, d); len(errs) > 0 {
			return fmt.Errorf("%w: %s", ErrStepInvalid, s.Title())
		}
	}
	return nil
}

// Serialize flattens d into the save payload. Buildings follow selection
// order; lines of deselected buildings are not sent.
func Serialize(d Draft) ContractPayload {
	p := ContractPayload{
		ID:              d.ContractID,
		ProjectID:       d.ProjectID,
		TradeID:         d.TradeID,
		SubcontractorID: d.SubcontractorID,
		ContractNumber:  d.Details.ContractNumber,
		ContractDate:    d.Details.ContractDate,
		StartDate:       d.Details.StartDate,
		CompletionDate:  d.Details.CompletionDate,
		CurrencyID:      d.Details.CurrencyID,
		TemplateID:      d.Details.TemplateID,
		AdvancePayment:  parseFloat(d.Details.AdvancePayment),
		Retention:       parseFloat(d.Details.Retention),
		Description:     d.Details.Description,
		Buildings:       make([]BuildingPayload, 0, len(d.BuildingIDs)),
	}
	total := decimal.Zero
	for _, id := range d.BuildingIDs {
		items := d.Items(id)
		bp := BuildingPayload{BuildingID: id, BOQItems: make([]ItemPayload, 0, len(items))}
		for _, it := range items {
			bp.BOQItems = append(bp.BOQItems, ItemPayload{
				No:           it.No,
				Key:          it.Key,
				CostCode:     it.CostCode,
				Unite:        it.Unite,
				Qte:          it.Qte.InexactFloat64(),
				PU:           it.PU.InexactFloat64(),
				TotalPrice:   it.TotalPrice.InexactFloat64(),
				BudgetSource: it.BudgetSource,
			})
			total = total.Add(it.TotalPrice)
		}
		p.Buildings = append(p.Buildings, bp)
	}
	p.TotalAmount = total.InexactFloat64()
	return p
}

// FromPayload rebuilds an edit draft from a saved contract.
func FromPayload(p ContractPayload) Draft {
	d := NewDraft(ModeEdit)
	d.ContractID = p.ID
	d.ProjectID = p.ProjectID
	d.TradeID = p.TradeID
	d.ContractTradeID = p.TradeID
	d.SubcontractorID = p.SubcontractorID
	d.Details = Details{
		ContractNumber: p.ContractNumber,
		ContractDate:   p.ContractDate,
		StartDate:      p.StartDate,
		CompletionDate: p.CompletionDate,
		CurrencyID:     p.CurrencyID,
		TemplateID:     p.TemplateID,
		AdvancePayment: formatFloat(p.AdvancePayment),
		Retention:      formatFloat(p.Retention),
		Description:    p.Description,
	}
	for _, b := range p.Buildings {
		d.BuildingIDs = append(d.BuildingIDs, b.BuildingID)
		items := make([]BOQItem, 0, len(b.BOQItems))
		for i, it := range b.BOQItems {
			items = append(items, BOQItem{
				ID:           fmt.Sprintf("%s-%d", b.BuildingID, i+1),
				No:           it.No,
				Key:          it.Key,
				CostCode:     it.CostCode,
				Unite:        it.Unite,
				Qte:          decimal.NewFromFloat(it.Qte),
				PU:           decimal.NewFromFloat(it.PU),
				BudgetSource: it.BudgetSource,
			}.withTotal())
		}
		d.BOQ = append(d.BOQ, BuildingBOQ{BuildingID: b.BuildingID, Items: items})
	}
	return d
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
