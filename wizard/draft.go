package wizard

import (
	"slices"

	"github.com/shopspring/decimal"
)

// BOQItem is one bill-of-quantities line. Items copied from a budget sheet
// carry BudgetSource and have No, Key, CostCode and Unite locked.
type BOQItem struct {
	ID           string          `json:"id"`
	No           string          `json:"no"`
	Key          string          `json:"key"`
	CostCode     string          `json:"costCode"`
	Unite        string          `json:"unite"`
	Qte          decimal.Decimal `json:"qte"`
	PU           decimal.Decimal `json:"pu"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	BudgetSource bool            `json:"_budgetBOQSource"`
}

// withTotal returns item with TotalPrice recomputed from Qte and PU.
func (item BOQItem) withTotal() BOQItem {
	item.TotalPrice = item.Qte.Mul(item.PU).Round(2)
	return item
}

// BuildingBOQ holds the lines entered for one selected building.
type BuildingBOQ struct {
	BuildingID string    `json:"buildingId"`
	Items      []BOQItem `json:"items"`
}

// Details is the contract header as typed into the details form.
type Details struct {
	ContractNumber string `json:"contract_number"`
	ContractDate   string `json:"contract_date"`
	StartDate      string `json:"start_date"`
	CompletionDate string `json:"completion_date"`
	CurrencyID     string `json:"currency"`
	TemplateID     string `json:"template"`
	AdvancePayment string `json:"advance_payment"`
	Retention      string `json:"retention"`
	Description    string `json:"description"`
}

// PendingKind names the change awaiting confirmation.
type PendingKind string

const (
	PendingProject  PendingKind = "project"
	PendingBuilding PendingKind = "building"
)

// Pending is a destructive change held until the user confirms it.
type Pending struct {
	Kind       PendingKind `json:"kind"`
	ProjectID  string      `json:"projectId,omitempty"`
	BuildingID string      `json:"buildingId,omitempty"`
	Message    string      `json:"message"`
}

// Draft is the accumulated wizard state. The empty string means unset.
// ContractTradeID is the trade the edited contract was saved with.
type Draft struct {
	Mode            Mode          `json:"mode"`
	ContractID      string        `json:"contractId,omitempty"`
	Step            Step          `json:"step"`
	ProjectID       string        `json:"projectId"`
	TradeID         string        `json:"tradeId"`
	BuildingIDs     []string      `json:"buildingIds"`
	SubcontractorID string        `json:"subcontractorId"`
	Details         Details       `json:"details"`
	BOQ             []BuildingBOQ `json:"boqData"`
	Pending         *Pending      `json:"pending,omitempty"`
	ContractTradeID string        `json:"contractTradeId,omitempty"`
}

// NewDraft returns an empty draft on the first step.
func NewDraft(mode Mode) Draft {
	return Draft{Mode: mode, Step: StepProject, BuildingIDs: []string{}, BOQ: []BuildingBOQ{}}
}

func (d Draft) clone() Draft {
	out := d
	out.BuildingIDs = slices.Clone(d.BuildingIDs)
	if out.BuildingIDs == nil {
		out.BuildingIDs = []string{}
	}
	out.BOQ = make([]BuildingBOQ, len(d.BOQ))
	for i, b := range d.BOQ {
		out.BOQ[i] = BuildingBOQ{BuildingID: b.BuildingID, Items: slices.Clone(b.Items)}
	}
	if d.Pending != nil {
		p := *d.Pending
		out.Pending = &p
	}
	return out
}

// HasBuilding reports whether id is selected.
func (d Draft) HasBuilding(id string) bool {
	return slices.Contains(d.BuildingIDs, id)
}

// Items returns the lines of building id.
func (d Draft) Items(buildingID string) []BOQItem {
	for _, b := range d.BOQ {
		if b.BuildingID == buildingID {
			return b.Items
		}
	}
	return nil
}

// ItemCount is the number of lines across buildings.
func (d Draft) ItemCount() int {
	n := 0
	for _, b := range d.BOQ {
		n += len(b.Items)
	}
	return n
}

// HasBudgetItems reports whether any line came from a budget sheet.
func (d Draft) HasBudgetItems() bool {
	for _, b := range d.BOQ {
		for _, item := range b.Items {
			if item.BudgetSource {
				return true
			}
		}
	}
	return false
}

// Total sums TotalPrice over every line.
func (d Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range d.BOQ {
		for _, item := range b.Items {
			total = total.Add(item.TotalPrice)
		}
	}
	return total
}

func (d *Draft) setItems(buildingID string, items []BOQItem) {
	for i := range d.BOQ {
		if d.BOQ[i].BuildingID == buildingID {
			d.BOQ[i].Items = items
			return
		}
	}
	d.BOQ = append(d.BOQ, BuildingBOQ{BuildingID: buildingID, Items: items})
}

func (d *Draft) dropBOQ(buildingID string) {
	d.BOQ = slices.DeleteFunc(d.BOQ, func(b BuildingBOQ) bool { return b.BuildingID == buildingID })
}
