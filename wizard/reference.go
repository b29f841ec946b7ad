package wizard

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Trade is a catalog trade.
type Trade struct {
	ID   string
	Name string
}

// SheetItem is one budget line of a building sheet.
type SheetItem struct {
	No       string
	Key      string
	CostCode string
	Unite    string
	Qte      decimal.Decimal
	PU       decimal.Decimal
}

// Sheet is a building's budget sheet for one trade, matched by name.
type Sheet struct {
	Name  string
	Items []SheetItem
}

// Building is a project building with its budget sheets.
type Building struct {
	ID     string
	Name   string
	Sheets []Sheet
}

// Reference is the catalog data of one project the reducer filters against.
type Reference struct {
	Trades    []Trade
	Buildings []Building
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// sheet returns the first sheet of b named name; populated restricts the
// match to sheets with at least one item.
func (b Building) sheet(name string, populated bool) (Sheet, bool) {
	for _, s := range b.Sheets {
		if sameName(s.Name, name) && (!populated || len(s.Items) > 0) {
			return s, true
		}
	}
	return Sheet{}, false
}

// Trade looks up a catalog trade by id.
func (r Reference) Trade(id string) (Trade, bool) {
	for _, t := range r.Trades {
		if t.ID == id {
			return t, true
		}
	}
	return Trade{}, false
}

// Building looks up a building by id.
func (r Reference) Building(id string) (Building, bool) {
	for _, b := range r.Buildings {
		if b.ID == id {
			return b, true
		}
	}
	return Building{}, false
}

// AvailableTrades lists trades some building has a populated sheet for.
// In edit mode the draft's contract trade is always listed, named after the
// first sheet carrying its name, or after the catalog entry when no sheet
// remains.
func (r Reference) AvailableTrades(d Draft) []Trade {
	var out []Trade
	for _, t := range r.Trades {
		if r.hasPopulatedSheet(t.Name) {
			out = append(out, t)
			continue
		}
		if d.Mode == ModeEdit && t.ID == d.ContractTradeID {
			out = append(out, r.reconstruct(t))
		}
	}
	return out
}

func (r Reference) hasPopulatedSheet(name string) bool {
	for _, b := range r.Buildings {
		if _, ok := b.sheet(name, true); ok {
			return true
		}
	}
	return false
}

func (r Reference) reconstruct(t Trade) Trade {
	for _, b := range r.Buildings {
		if s, ok := b.sheet(t.Name, false); ok {
			return Trade{ID: t.ID, Name: strings.TrimSpace(s.Name)}
		}
	}
	return t
}

// AvailableBuildings lists buildings exposing a populated sheet named after
// tradeID. For the edited contract's own trade, an empty same-name sheet is
// enough.
func (r Reference) AvailableBuildings(d Draft, tradeID string) []Building {
	t, ok := r.Trade(tradeID)
	if !ok {
		return nil
	}
	lenient := d.Mode == ModeEdit && tradeID == d.ContractTradeID
	var out []Building
	for _, b := range r.Buildings {
		if _, ok := b.sheet(t.Name, !lenient); ok {
			out = append(out, b)
		}
	}
	return out
}

func (r Reference) tradeAvailable(d Draft, id string) bool {
	for _, t := range r.AvailableTrades(d) {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (r Reference) buildingAvailable(d Draft, tradeID, buildingID string) bool {
	for _, b := range r.AvailableBuildings(d, tradeID) {
		if b.ID == buildingID {
			return true
		}
	}
	return false
}
