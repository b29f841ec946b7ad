package wizard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrConfirmationPending = errors.New("a change is waiting for confirmation")
	ErrNothingPending      = errors.New("no change is waiting for confirmation")
	ErrUnavailable         = errors.New("selection is not available")
	ErrBuildingNotSelected = errors.New("building is not selected")
	ErrUnknownItem         = errors.New("line item not found")
	ErrUnknownField        = errors.New("unknown line item field")
	ErrFieldLocked         = errors.New("field is locked on budget lines")
	ErrImportLocked        = errors.New("file import is disabled while budget lines are present")
	ErrNoTrade             = errors.New("select a trade first")
	ErrStepInvalid         = errors.New("current step is incomplete")
)

// Event is one user action applied by Reduce.
type Event interface {
	event()
}

type (
	SelectProject       struct{ ProjectID string }
	SelectTrade         struct{ TradeID string }
	ToggleBuilding      struct{ BuildingID string }
	SelectSubcontractor struct{ SubcontractorID string }
	SetDetails          struct{ Details Details }
	ConfirmPending      struct{}
	CancelPending       struct{}
	Next                struct{}
	Previous            struct{}

	// AddItem appends a manual line to a selected building.
	AddItem struct {
		BuildingID string
		Item       BOQItem
	}

	// UpdateItem sets one field of a line from its form value.
	UpdateItem struct {
		BuildingID string
		ItemID     string
		Field      string
		Value      string
	}

	RemoveItem struct {
		BuildingID string
		ItemID     string
	}

	// LoadBudget replaces the lines of BuildingIDs (all selected buildings
	// when empty) with the items of their sheet named SheetName, which
	// defaults to the selected trade's name.
	LoadBudget struct {
		SheetName   string
		BuildingIDs []string
	}

	// ImportItems appends lines read from an uploaded file.
	ImportItems struct {
		BuildingID string
		Items      []BOQItem
	}
)

func (SelectProject) event()       {}
func (SelectTrade) event()         {}
func (ToggleBuilding) event()      {}
func (SelectSubcontractor) event() {}
func (SetDetails) event()          {}
func (ConfirmPending) event()      {}
func (CancelPending) event()       {}
func (Next) event()                {}
func (Previous) event()            {}
func (AddItem) event()             {}
func (UpdateItem) event()          {}
func (RemoveItem) event()          {}
func (LoadBudget) event()          {}
func (ImportItems) event()         {}

// Outcome describes what Reduce did. Warning is set when the event was held
// as a pending confirmation.
type Outcome struct {
	Changed     bool
	Warning     string
	Err         error
	FieldErrors map[string]string
}

func rejected(err error) Outcome { return Outcome{Err: err} }

var lockedFields = map[string]bool{"no": true, "key": true, "costCode": true, "unite": true}

// Reduce applies ev to d and returns the next draft. d itself is never
// modified; on error the returned draft equals d.
func Reduce(d Draft, ref Reference, ev Event) (Draft, Outcome) {
	if d.Pending != nil {
		switch ev.(type) {
		case ConfirmPending, CancelPending, Previous:
		default:
			return d, rejected(ErrConfirmationPending)
		}
	}

	next := d.clone()
	var out Outcome
	switch e := ev.(type) {
	case SelectProject:
		out = next.selectProject(e.ProjectID)
	case SelectTrade:
		out = next.selectTrade(ref, e.TradeID)
	case ToggleBuilding:
		out = next.toggleBuilding(ref, e.BuildingID)
	case SelectSubcontractor:
		if next.SubcontractorID != e.SubcontractorID {
			next.SubcontractorID = e.SubcontractorID
			out.Changed = true
		}
	case SetDetails:
		next.Details = e.Details
		out = Outcome{Changed: true, FieldErrors: ValidateDetails(e.Details)}
	case ConfirmPending:
		out = next.confirm()
	case CancelPending:
		if next.Pending == nil {
			return d, rejected(ErrNothingPending)
		}
		next.Pending = nil
		out.Changed = true
	case AddItem:
		out = next.addItem(e.BuildingID, e.Item)
	case UpdateItem:
		out = next.updateItem(e)
	case RemoveItem:
		out = next.removeItem(e.BuildingID, e.ItemID)
	case LoadBudget:
		out = next.loadBudget(ref, e)
	case ImportItems:
		out = next.importItems(e)
	case Next:
		if errs := Validate(next.Step, next); len(errs) > 0 {
			return d, Outcome{Err: ErrStepInvalid, FieldErrors: errs}
		}
		if next.Step < LastStep(next.Mode) {
			next.Step++
			out.Changed = true
		}
	case Previous:
		if next.Step > StepProject {
			next.Step--
			out.Changed = true
		}
	default:
		return d, rejected(fmt.Errorf("unsupported event %T", ev))
	}

	if out.Err != nil {
		return d, out
	}
	return next, out
}

func (d *Draft) selectProject(id string) Outcome {
	if id == d.ProjectID {
		return Outcome{}
	}
	if len(d.BuildingIDs) > 0 || d.ItemCount() > 0 {
		msg := "Changing the project clears the selected trade, buildings and all BOQ lines."
		d.Pending = &Pending{Kind: PendingProject, ProjectID: id, Message: msg}
		return Outcome{Changed: true, Warning: msg}
	}
	d.ProjectID = id
	d.TradeID = ""
	d.BOQ = []BuildingBOQ{}
	return Outcome{Changed: true}
}

func (d *Draft) selectTrade(ref Reference, id string) Outcome {
	if id == d.TradeID {
		return Outcome{}
	}
	if id != "" && !ref.tradeAvailable(*d, id) {
		return rejected(fmt.Errorf("%w: trade %s", ErrUnavailable, id))
	}
	d.TradeID = id

	kept := d.BuildingIDs[:0]
	for _, b := range d.BuildingIDs {
		if id != "" && ref.buildingAvailable(*d, id, b) {
			kept = append(kept, b)
			continue
		}
		d.dropBOQ(b)
	}
	d.BuildingIDs = kept
	return Outcome{Changed: true}
}

func (d *Draft) toggleBuilding(ref Reference, id string) Outcome {
	if !d.HasBuilding(id) && !ref.buildingAvailable(*d, d.TradeID, id) {
		return rejected(fmt.Errorf("%w: building %s", ErrUnavailable, id))
	}
	if d.ItemCount() > 0 {
		msg := "Changing the building selection clears the BOQ lines of that building."
		d.Pending = &Pending{Kind: PendingBuilding, BuildingID: id, Message: msg}
		return Outcome{Changed: true, Warning: msg}
	}
	d.applyToggle(id)
	return Outcome{Changed: true}
}

func (d *Draft) applyToggle(id string) {
	if d.HasBuilding(id) {
		d.BuildingIDs = slices.DeleteFunc(d.BuildingIDs, func(b string) bool { return b == id })
	} else {
		d.BuildingIDs = append(d.BuildingIDs, id)
	}
	d.dropBOQ(id)
}

func (d *Draft) confirm() Outcome {
	p := d.Pending
	if p == nil {
		return rejected(ErrNothingPending)
	}
	d.Pending = nil
	switch p.Kind {
	case PendingProject:
		d.ProjectID = p.ProjectID
		d.TradeID = ""
		d.BuildingIDs = []string{}
		d.BOQ = []BuildingBOQ{}
	case PendingBuilding:
		d.applyToggle(p.BuildingID)
	}
	return Outcome{Changed: true}
}

func (d *Draft) addItem(buildingID string, item BOQItem) Outcome {
	if !d.HasBuilding(buildingID) {
		return rejected(fmt.Errorf("%w: %s", ErrBuildingNotSelected, buildingID))
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.BudgetSource = false
	items := append(slices.Clone(d.Items(buildingID)), item.withTotal())
	d.setItems(buildingID, items)
	return Outcome{Changed: true}
}

func (d *Draft) updateItem(e UpdateItem) Outcome {
	items := slices.Clone(d.Items(e.BuildingID))
	i := slices.IndexFunc(items, func(it BOQItem) bool { return it.ID == e.ItemID })
	if i < 0 {
		return rejected(fmt.Errorf("%w: %s", ErrUnknownItem, e.ItemID))
	}
	item := items[i]
	if item.BudgetSource && lockedFields[e.Field] {
		return rejected(fmt.Errorf("%w: %s", ErrFieldLocked, e.Field))
	}

	value := strings.TrimSpace(e.Value)
	switch e.Field {
	case "no":
		item.No = value
	case "key":
		item.Key = value
	case "costCode":
		item.CostCode = value
	case "unite":
		item.Unite = value
	case "qte", "pu":
		n := decimal.Zero
		if value != "" {
			var err error
			if n, err = decimal.NewFromString(value); err != nil {
				return Outcome{Err: fmt.Errorf("%s: %w", e.Field, err), FieldErrors: map[string]string{e.Field: "Must be a number"}}
			}
		}
		if e.Field == "qte" {
			item.Qte = n
		} else {
			item.PU = n
		}
	default:
		return rejected(fmt.Errorf("%w: %s", ErrUnknownField, e.Field))
	}
	items[i] = item.withTotal()
	d.setItems(e.BuildingID, items)
	return Outcome{Changed: true}
}

func (d *Draft) removeItem(buildingID, itemID string) Outcome {
	items := d.Items(buildingID)
	i := slices.IndexFunc(items, func(it BOQItem) bool { return it.ID == itemID })
	if i < 0 {
		return rejected(fmt.Errorf("%w: %s", ErrUnknownItem, itemID))
	}
	d.setItems(buildingID, slices.Delete(slices.Clone(items), i, i+1))
	return Outcome{Changed: true}
}

func (d *Draft) loadBudget(ref Reference, e LoadBudget) Outcome {
	name := e.SheetName
	if name == "" {
		t, ok := ref.Trade(d.TradeID)
		if !ok {
			return rejected(ErrNoTrade)
		}
		name = t.Name
	}
	targets := e.BuildingIDs
	if len(targets) == 0 {
		targets = d.BuildingIDs
	}
	for _, id := range targets {
		if !d.HasBuilding(id) {
			return rejected(fmt.Errorf("%w: %s", ErrBuildingNotSelected, id))
		}
	}

	changed := false
	for _, id := range targets {
		b, ok := ref.Building(id)
		if !ok {
			continue
		}
		sheet, ok := b.sheet(name, false)
		if !ok {
			continue
		}
		items := make([]BOQItem, 0, len(sheet.Items))
		for _, si := range sheet.Items {
			items = append(items, BOQItem{
				ID:           uuid.NewString(),
				No:           si.No,
				Key:          si.Key,
				CostCode:     si.CostCode,
				Unite:        si.Unite,
				Qte:          si.Qte,
				PU:           si.PU,
				BudgetSource: true,
			}.withTotal())
		}
		d.setItems(id, items)
		changed = true
	}
	return Outcome{Changed: changed}
}

func (d *Draft) importItems(e ImportItems) Outcome {
	if d.HasBudgetItems() {
		return rejected(ErrImportLocked)
	}
	if !d.HasBuilding(e.BuildingID) {
		return rejected(fmt.Errorf("%w: %s", ErrBuildingNotSelected, e.BuildingID))
	}
	items := slices.Clone(d.Items(e.BuildingID))
	for _, item := range e.Items {
		item.ID = uuid.NewString()
		item.BudgetSource = false
		items = append(items, item.withTotal())
	}
	d.setItems(e.BuildingID, items)
	return Outcome{Changed: len(e.Items) > 0}
}
