package views

import (
	"context"
	"fmt"

	"github.com/a-h/templ"

	"contractadmin/policy"
	"contractadmin/services"
	"contractadmin/table"
)

// Client events that reload a table after a dialog write.
const (
	RefreshContracts       = "contracts-changed"
	RefreshVariationOrders = "variation-orders-changed"
	RefreshCostCodes       = "cost-codes-changed"
)

func amountFormat(key string) func(table.Row) string {
	return func(r table.Row) string {
		f, ok := r[key].(float64)
		if !ok {
			return r.Text(key)
		}
		return services.FormatAmount(f, r.Text("currency"))
	}
}

// ContractsTable configures the contract list.
func ContractsTable() TableConfig {
	return TableConfig{
		ID:        "contracts-table",
		Columns:   services.ContractColumns,
		BaseURL:   "/contracts/table",
		Refresh:   RefreshContracts,
		EmptyText: "No contracts yet.",
		Format:    map[string]func(table.Row) string{"total_amount": amountFormat("total_amount")},
		RowURL:    func(r table.Row) string { return "/contracts/" + r.Text("id") + "/preview" },
		Actions:   contractActions,
	}
}

func contractActions(r table.Row) []RowAction {
	id := r.Text("id")
	allowed := policy.ContractActions(r.Text("status"))
	var out []RowAction
	if allowed.Allows(policy.Edit) {
		out = append(out, RowAction{Label: "Edit", URL: "/contracts/" + id + "/edit"})
	}
	if allowed.Allows(policy.VariationOrders) {
		out = append(out, RowAction{Label: "VOs", Method: "link", URL: "/contracts/" + id + "/variation-orders"})
	}
	if allowed.Allows(policy.Export) {
		out = append(out,
			RowAction{Label: "Excel", Method: "link", URL: "/contracts/" + id + "/export/xlsx"},
			RowAction{Label: "PDF", Method: "link", URL: "/contracts/" + id + "/export/pdf"})
	}
	if allowed.Allows(policy.Terminate) {
		out = append(out, RowAction{Label: "Terminate", URL: "/contracts/" + id + "/terminate", Danger: true})
	}
	if allowed.Allows(policy.Delete) {
		out = append(out, RowAction{Label: "Delete", Method: "delete", URL: "/contracts/" + id,
			Confirm: fmt.Sprintf("Delete contract %s?", r.Text("contract_number")), Danger: true})
	}
	return out
}

// VariationOrdersTable configures the variation orders of one contract.
func VariationOrdersTable(contractID, contractStatus string) TableConfig {
	return TableConfig{
		ID:        "vo-table",
		Columns:   services.VariationOrderColumns,
		BaseURL:   "/contracts/" + contractID + "/variation-orders/table",
		Refresh:   RefreshVariationOrders,
		EmptyText: "No variation orders on this contract.",
		Format:    map[string]func(table.Row) string{"amount": amountFormat("amount")},
		RowURL:    func(r table.Row) string { return "/variation-orders/" + r.Text("id") },
		Actions: func(r table.Row) []RowAction {
			id := r.Text("id")
			allowed := policy.VariationOrderActions(r.Text("status"), contractStatus)
			var out []RowAction
			if allowed.Allows(policy.Approve) {
				out = append(out, RowAction{Label: "Review", URL: "/variation-orders/" + id + "/review"})
			}
			if allowed.Allows(policy.Edit) {
				out = append(out, RowAction{Label: "Edit", URL: "/variation-orders/" + id + "/edit"})
			}
			if allowed.Allows(policy.Delete) {
				out = append(out, RowAction{Label: "Delete", Method: "delete", URL: "/variation-orders/" + id,
					Confirm: fmt.Sprintf("Delete %s?", r.Text("vo_number")), Danger: true})
			}
			return out
		},
	}
}

// CostCodesTable configures the cost code catalog.
func CostCodesTable() TableConfig {
	return TableConfig{
		ID:        "cost-codes-table",
		Columns:   services.CostCodeColumns,
		BaseURL:   "/cost-codes/table",
		Refresh:   RefreshCostCodes,
		EmptyText: "No cost codes.",
		Actions: func(r table.Row) []RowAction {
			id := r.Text("id")
			return []RowAction{
				{Label: "Edit", URL: "/cost-codes/" + id + "/edit"},
				{Label: "Delete", Method: "delete", URL: "/cost-codes/" + id,
					Confirm: fmt.Sprintf("Delete cost code %s?", r.Text("code")), Danger: true},
			}
		},
	}
}

func pageHeader(h *htmlWriter, title string, buttons ...RowAction) {
	h.raw(`<div class="mb-4 flex items-center justify-between"><h1 class="text-xl font-semibold">`)
	h.text(title)
	h.raw(`</h1><div class="flex gap-2">`)
	for _, b := range buttons {
		if b.Method == "link" {
			h.raw(`<a class="rounded bg-blue-600 px-3 py-2 text-sm text-white"`, attr("href", b.URL), `>`)
		} else {
			h.raw(`<button type="button" class="rounded bg-blue-600 px-3 py-2 text-sm text-white"`, attr("hx-get", b.URL), ` hx-target="#dialog">`)
		}
		h.text(b.Label)
		if b.Method == "link" {
			h.raw(`</a>`)
		} else {
			h.raw(`</button>`)
		}
	}
	h.raw(`</div></div>`)
}

// ContractsPage is the contract list screen.
func ContractsPage(v table.View, loading bool) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		pageHeader(h, "Contracts", RowAction{Label: "New contract", Method: "link", URL: "/contracts/new"})
		h.render(ctx, SAMTable(ContractsTable(), v, loading))
	})
}

// ContractHeader summarizes the contract a variation order screen belongs to.
type ContractHeader struct {
	ID     string
	Number string
	Status string
}

// VariationOrdersPage lists the variation orders of one contract.
func VariationOrdersPage(c ContractHeader, v table.View, loading bool) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		var buttons []RowAction
		if policy.CanAddVariationOrder(c.Status) {
			buttons = append(buttons, RowAction{Label: "New variation order", URL: "/contracts/" + c.ID + "/variation-orders/new"})
		}
		pageHeader(h, "Variation orders · "+c.Number, buttons...)
		h.raw(`<p class="mb-3 text-sm text-gray-500">Contract status: `)
		h.text(c.Status)
		h.raw(` · <a class="text-blue-700 hover:underline" href="/contracts">Back to contracts</a></p>`)
		h.render(ctx, SAMTable(VariationOrdersTable(c.ID, c.Status), v, loading))
	})
}

// CostCodesPage is the cost code catalog screen.
func CostCodesPage(v table.View, loading bool) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		pageHeader(h, "Cost codes", RowAction{Label: "New cost code", URL: "/cost-codes/new"})
		h.render(ctx, SAMTable(CostCodesTable(), v, loading))
	})
}
