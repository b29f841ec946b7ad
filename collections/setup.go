package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// Setup programmatically creates/ensures the catalog, contract and draft
// collections exist.
func Setup(app core.App) {
	projects := ensureCollection(app, "projects", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "code"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	trades := ensureCollection(app, "trades", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
	})

	buildings := ensureCollection(app, "buildings", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
	})

	// A sheet is matched to a trade by name.
	sheets := ensureCollection(app, "budget_sheets", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "building",
			Required:      true,
			CollectionId:  buildings.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
	})

	ensureCollection(app, "budget_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "sheet",
			Required:      true,
			CollectionId:  sheets.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		addLineFields(c)
	})

	subcontractors := ensureCollection(app, "subcontractors", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.EmailField{Name: "email"})
		c.Fields.Add(&core.TextField{Name: "phone"})
	})

	currencies := ensureCollection(app, "currencies", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "code", Required: true, Max: 3})
		c.Fields.Add(&core.TextField{Name: "name"})
	})

	templates := ensureCollection(app, "contract_templates", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
	})

	ensureCollection(app, "cost_codes", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "label"})
	})

	contracts := ensureCollection(app, "contracts", func(c *core.Collection) {
		c.Fields.Add(relation("project", projects.Id, true))
		c.Fields.Add(relation("trade", trades.Id, true))
		c.Fields.Add(relation("subcontractor", subcontractors.Id, true))
		c.Fields.Add(relation("currency", currencies.Id, true))
		c.Fields.Add(relation("template", templates.Id, false))
		c.Fields.Add(&core.TextField{Name: "contract_number", Required: true})
		c.Fields.Add(&core.DateField{Name: "contract_date"})
		c.Fields.Add(&core.DateField{Name: "start_date"})
		c.Fields.Add(&core.DateField{Name: "completion_date"})
		c.Fields.Add(&core.NumberField{Name: "advance_payment"})
		c.Fields.Add(&core.NumberField{Name: "retention"})
		c.Fields.Add(&core.TextField{Name: "description"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"Draft", "Active", "Terminated"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "termination_reason"})
		c.Fields.Add(&core.NumberField{Name: "total_amount"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	contractBuildings := ensureCollection(app, "contract_buildings", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "contract",
			Required:      true,
			CollectionId:  contracts.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(relation("building", buildings.Id, true))
		c.Fields.Add(&core.NumberField{Name: "sort_order"})
	})

	ensureCollection(app, "contract_boq_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "contract_building",
			Required:      true,
			CollectionId:  contractBuildings.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		addLineFields(c)
		c.Fields.Add(&core.NumberField{Name: "total_price"})
		c.Fields.Add(&core.BoolField{Name: "budget_source"})
	})

	ensureCollection(app, "variation_orders", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "contract",
			Required:      true,
			CollectionId:  contracts.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "vo_number", Required: true})
		c.Fields.Add(&core.TextField{Name: "description"})
		c.Fields.Add(&core.NumberField{Name: "amount"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"Pending", "Approved", "Rejected"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "rejection_reason"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "contract_drafts", func(c *core.Collection) {
		c.Fields.Add(&core.SelectField{
			Name:      "mode",
			Required:  true,
			Values:    []string{"new", "edit"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "contract"})
		c.Fields.Add(&core.JSONField{Name: "data", MaxSize: 2 << 20})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
}

// addLineFields adds the BOQ line columns shared by budget and contract items.
func addLineFields(c *core.Collection) {
	c.Fields.Add(&core.NumberField{Name: "sort_order"})
	c.Fields.Add(&core.TextField{Name: "no"})
	c.Fields.Add(&core.TextField{Name: "key", Required: true})
	c.Fields.Add(&core.TextField{Name: "cost_code"})
	c.Fields.Add(&core.TextField{Name: "unite"})
	c.Fields.Add(&core.NumberField{Name: "qte"})
	c.Fields.Add(&core.NumberField{Name: "pu"})
}

func relation(name, collectionID string, required bool) *core.RelationField {
	return &core.RelationField{
		Name:         name,
		Required:     required,
		CollectionId: collectionID,
		MaxSelect:    1,
	}
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app core.App, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
