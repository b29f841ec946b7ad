package views

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/a-h/templ"

	"contractadmin/dialog"
	"contractadmin/services"
	"contractadmin/wizard"
)

// WizardModel is everything the wizard screen renders from.
type WizardModel struct {
	DraftID     string
	Draft       wizard.Draft
	Ref         wizard.Reference
	Lists       services.ReferenceData
	Currency    string // code of the selected currency, for amounts
	Totals      services.ContractTotals
	FieldErrors map[string]string
	Warning     string
	OOB         bool // render as an out-of-band swap of #wizard

	// ImportErrors are the rejected rows of the last file import.
	ImportErrors []services.ValidationError
}

func (m WizardModel) url(suffix string) string {
	return "/wizard/" + m.DraftID + suffix
}

// hxEvent returns hx-post and hx-vals attributes posting an event of typ.
func (m WizardModel) hxEvent(typ string, vals map[string]string) string {
	payload := map[string]string{"type": typ}
	for k, v := range vals {
		payload[k] = v
	}
	b, _ := json.Marshal(payload)
	return attr("hx-post", m.url("/event")) + ` hx-target="#wizard" hx-swap="outerHTML"` + attr("hx-vals", string(b))
}

func optionLabel(opts []dialog.Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	if value == "" {
		return "-"
	}
	return value
}

// WizardPage renders the contract wizard.
func WizardPage(m WizardModel) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		d := m.Draft
		title := "New contract"
		if d.Mode == wizard.ModeEdit {
			title = "Edit contract " + d.Details.ContractNumber
		}
		h.raw(`<div id="wizard" class="space-y-4"`, attr("data-step", itoa(int(d.Step))), boolAttr(`hx-swap-oob="true"`, m.OOB), `>`)
		h.raw(`<h1 class="text-xl font-semibold">`)
		h.text(title)
		h.raw(`</h1>`)
		renderStepper(h, d)

		for name, msg := range m.Lists.Errors {
			h.raw(`<div class="rounded bg-red-50 px-3 py-2 text-sm text-red-700" role="alert">`)
			h.text("Could not load " + name + ": " + msg)
			h.raw(`</div>`)
		}
		if d.Pending != nil {
			h.raw(`<div class="flex items-center justify-between rounded border border-amber-300 bg-amber-50 px-3 py-2 text-sm" role="alert" id="wizard-pending"><span>`)
			h.text(d.Pending.Message)
			h.raw(`</span><span class="flex gap-2">`)
			h.raw(`<button type="button" class="rounded border px-3 py-1"`, m.hxEvent("cancel", nil), `>Cancel</button>`)
			h.raw(`<button type="button" class="rounded bg-amber-600 px-3 py-1 text-white"`, m.hxEvent("confirm", nil), `>Continue</button>`)
			h.raw(`</span></div>`)
		} else if m.Warning != "" {
			h.raw(`<div class="rounded bg-amber-50 px-3 py-2 text-sm text-amber-900" role="status">`)
			h.text(m.Warning)
			h.raw(`</div>`)
		}
		renderFieldErrors(h, m.FieldErrors)

		h.raw(`<section class="rounded border bg-white p-4">`)
		switch d.Step {
		case wizard.StepProject:
			renderProjectStep(h, m)
		case wizard.StepTrade:
			renderTradeStep(h, m)
		case wizard.StepBuilding:
			renderBuildingStep(h, m)
		case wizard.StepSubcontractor:
			renderSubcontractorStep(h, m)
		case wizard.StepDetails:
			renderDetailsStep(h, m)
		case wizard.StepBOQ:
			renderBOQStep(h, m)
		case wizard.StepReview:
			renderReview(h, m)
		case wizard.StepPreview:
			renderPreview(h, m)
		}
		h.raw(`</section>`)
		renderWizardNav(h, m)
		h.raw(`</div>`)
	})
}

func renderStepper(h *htmlWriter, d wizard.Draft) {
	h.raw(`<ol class="flex flex-wrap gap-2 text-sm">`)
	for i, s := range wizard.Steps(d.Mode) {
		class := "rounded-full border px-3 py-1 text-gray-500"
		switch {
		case s == d.Step:
			class = "rounded-full bg-blue-600 px-3 py-1 text-white"
		case s < d.Step:
			class = "rounded-full border border-blue-600 px-3 py-1 text-blue-700"
		}
		h.raw(`<li`, attr("class", class), boolAttr(`aria-current="step"`, s == d.Step), `>`)
		h.text(itoa(i+1) + ". " + s.Title())
		h.raw(`</li>`)
	}
	h.raw(`</ol>`)
}

func renderFieldErrors(h *htmlWriter, errs map[string]string) {
	if len(errs) == 0 {
		return
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	h.raw(`<ul class="list-disc rounded bg-red-50 py-2 pl-8 pr-3 text-sm text-red-700" role="alert">`)
	for _, k := range keys {
		h.raw(`<li`, attr("data-field", k), `>`)
		h.text(errs[k])
		h.raw(`</li>`)
	}
	h.raw(`</ul>`)
}

func renderSelect(h *htmlWriter, m WizardModel, name, label, event string, opts []dialog.Option, value string) {
	h.raw(`<label class="block text-sm font-medium"`, attr("for", "wz-"+name), `>`)
	h.text(label)
	h.raw(`</label><select class="mt-1 w-full rounded border px-3 py-2 text-sm"`, attr("id", "wz-"+name), attr("name", name),
		boolAttr("disabled", m.Draft.Pending != nil), ` hx-trigger="change"`, m.hxEvent(event, nil), `>`)
	h.raw(`<option value="">Select…</option>`)
	for _, o := range opts {
		h.raw(`<option`, attr("value", o.Value), boolAttr("selected", o.Value == value), `>`)
		h.text(o.Label)
		h.raw(`</option>`)
	}
	h.raw(`</select>`)
}

func renderProjectStep(h *htmlWriter, m WizardModel) {
	renderSelect(h, m, "project_id", "Project", "select_project", m.Lists.Projects, m.Draft.ProjectID)
}

func renderTradeStep(h *htmlWriter, m WizardModel) {
	trades := m.Ref.AvailableTrades(m.Draft)
	if len(trades) == 0 {
		h.raw(`<p class="text-sm text-gray-500">No trade has a budget sheet in this project.</p>`)
		return
	}
	h.raw(`<fieldset><legend class="mb-2 text-sm font-medium">Trade</legend><div class="grid gap-2 md:grid-cols-3">`)
	for _, t := range trades {
		h.raw(`<label class="flex items-center gap-2 rounded border px-3 py-2 text-sm"><input type="radio" name="trade_id"`,
			attr("value", t.ID), boolAttr("checked", t.ID == m.Draft.TradeID), boolAttr("disabled", m.Draft.Pending != nil),
			` hx-trigger="change"`, m.hxEvent("select_trade", nil), `>`)
		h.text(t.Name)
		h.raw(`</label>`)
	}
	h.raw(`</div></fieldset>`)
}

func renderBuildingStep(h *htmlWriter, m WizardModel) {
	d := m.Draft
	available := m.Ref.AvailableBuildings(d, d.TradeID)
	if len(available) == 0 {
		h.raw(`<p class="text-sm text-gray-500">No building has a budget sheet for this trade.</p>`)
		return
	}
	h.raw(`<fieldset><legend class="mb-2 text-sm font-medium">Buildings</legend><div class="grid gap-2 md:grid-cols-3">`)
	for _, b := range available {
		h.raw(`<label class="flex items-center gap-2 rounded border px-3 py-2 text-sm"><input type="checkbox" name="building_id"`,
			attr("value", b.ID), boolAttr("checked", d.HasBuilding(b.ID)), boolAttr("disabled", d.Pending != nil),
			` hx-trigger="change"`, m.hxEvent("toggle_building", map[string]string{"building_id": b.ID}), `>`)
		h.text(b.Name)
		if n := len(d.Items(b.ID)); n > 0 {
			h.raw(` <span class="text-xs text-gray-500">(`, itoa(n), ` lines)</span>`)
		}
		h.raw(`</label>`)
	}
	h.raw(`</div></fieldset>`)
}

func renderSubcontractorStep(h *htmlWriter, m WizardModel) {
	renderSelect(h, m, "subcontractor_id", "Subcontractor", "select_subcontractor", m.Lists.Subcontractors, m.Draft.SubcontractorID)
}

func renderDetailsStep(h *htmlWriter, m WizardModel) {
	det := m.Draft.Details
	h.raw(`<form class="grid gap-3 md:grid-cols-2" hx-trigger="change"`, m.hxEvent("set_details", nil), `>`)
	input := func(name, label, typ, value string) {
		h.raw(`<div><label class="block text-sm font-medium"`, attr("for", "wz-"+name), `>`)
		h.text(label)
		h.raw(`</label><input class="mt-1 w-full rounded border px-3 py-2 text-sm"`, attr("type", typ), attr("id", "wz-"+name),
			attr("name", name), attr("value", value), boolAttr(`aria-invalid="true"`, m.FieldErrors[name] != ""), `>`)
		fieldMessage(h, m.FieldErrors, name)
		h.raw(`</div>`)
	}
	choose := func(name, label string, opts []dialog.Option, value string) {
		h.raw(`<div><label class="block text-sm font-medium"`, attr("for", "wz-"+name), `>`)
		h.text(label)
		h.raw(`</label><select class="mt-1 w-full rounded border px-3 py-2 text-sm"`, attr("id", "wz-"+name), attr("name", name), `>`)
		h.raw(`<option value="">Select…</option>`)
		for _, o := range opts {
			h.raw(`<option`, attr("value", o.Value), boolAttr("selected", o.Value == value), `>`)
			h.text(o.Label)
			h.raw(`</option>`)
		}
		h.raw(`</select>`)
		fieldMessage(h, m.FieldErrors, name)
		h.raw(`</div>`)
	}
	input("contract_number", "Contract number", "text", det.ContractNumber)
	input("contract_date", "Contract date", "date", det.ContractDate)
	input("start_date", "Start date", "date", det.StartDate)
	input("completion_date", "Completion date", "date", det.CompletionDate)
	choose("currency", "Currency", m.Lists.Currencies, det.CurrencyID)
	choose("template", "Template", m.Lists.Templates, det.TemplateID)
	input("advance_payment", "Advance payment (%)", "number", det.AdvancePayment)
	input("retention", "Retention (%)", "number", det.Retention)
	h.raw(`<div class="md:col-span-2"><label class="block text-sm font-medium" for="wz-description">Description</label>`,
		`<textarea id="wz-description" name="description" rows="3" class="mt-1 w-full rounded border px-3 py-2 text-sm">`)
	h.text(det.Description)
	h.raw(`</textarea></div></form>`)
}

func fieldMessage(h *htmlWriter, errs map[string]string, name string) {
	if msg := errs[name]; msg != "" {
		h.raw(`<p class="mt-1 text-xs text-red-600">`)
		h.text(msg)
		h.raw(`</p>`)
	}
}

func renderBOQStep(h *htmlWriter, m WizardModel) {
	d := m.Draft
	budgetLocked := d.HasBudgetItems()
	h.raw(`<div class="mb-3 flex items-center justify-between"><h2 class="font-medium">Bill of quantities</h2><span class="flex gap-2">`)
	h.raw(`<button type="button" class="rounded border px-3 py-1 text-sm"`, m.hxEvent("load_budget", nil), `>Load budget</button>`)
	h.raw(`<a class="rounded border px-3 py-1 text-sm"`, attr("href", m.url("/template")), `>Download template</a>`)
	h.raw(`</span></div>`)

	for _, id := range d.BuildingIDs {
		name := id
		if b, ok := m.Ref.Building(id); ok {
			name = b.Name
		}
		items := d.Items(id)
		h.raw(`<div class="mb-6"`, attr("id", "boq-"+id), `><h3 class="mb-2 text-sm font-semibold">`)
		h.text(name)
		h.raw(`</h3>`)

		h.raw(`<table class="min-w-full divide-y text-sm"><thead class="bg-gray-100"><tr>`,
			`<th class="px-2 py-1 text-left">No</th><th class="px-2 py-1 text-left">Description</th>`,
			`<th class="px-2 py-1 text-left">Cost code</th><th class="px-2 py-1 text-left">Unit</th>`,
			`<th class="px-2 py-1 text-right">Qty</th><th class="px-2 py-1 text-right">Unit price</th>`,
			`<th class="px-2 py-1 text-right">Total</th><th></th></tr></thead><tbody class="divide-y">`)
		if len(items) == 0 {
			h.raw(`<tr><td colspan="8" class="px-2 py-3 text-center text-gray-500">No lines yet.</td></tr>`)
		}
		for _, it := range items {
			renderItemRow(h, m, id, it)
		}
		h.raw(`</tbody></table>`)

		h.raw(`<form class="mt-2 flex flex-wrap gap-2 text-sm"`, m.hxEvent("add_item", map[string]string{"building_id": id}), `>`)
		for _, f := range [][2]string{{"no", "No"}, {"key", "Description"}, {"costCode", "Cost code"}, {"unite", "Unit"}, {"qte", "Qty"}, {"pu", "Unit price"}} {
			h.raw(`<input class="w-28 rounded border px-2 py-1"`, attr("name", f[0]), attr("placeholder", f[1]), attr("aria-label", f[1]), `>`)
		}
		h.raw(`<button type="submit" class="rounded bg-blue-600 px-3 py-1 text-white">Add line</button></form>`)

		if !budgetLocked {
			h.raw(`<form class="mt-2 flex items-center gap-2 text-sm" hx-encoding="multipart/form-data"`,
				attr("hx-post", m.url("/import")), ` hx-target="#wizard" hx-swap="outerHTML">`,
				`<input type="hidden" name="building_id"`, attr("value", id), `>`,
				`<input type="file" name="file" accept=".csv,.xlsx" required>`,
				`<button type="submit" class="rounded border px-3 py-1">Import</button></form>`)
		}
		h.raw(`</div>`)
	}
	if budgetLocked {
		h.raw(`<p class="text-xs text-gray-500">File import is disabled while budget lines are present.</p>`)
	}
	renderImportErrors(h, m)
	h.raw(`<p class="text-right text-sm font-semibold">Total: `)
	h.text(services.FormatAmount(d.Total().InexactFloat64(), m.Currency))
	h.raw(`</p>`)
}

// renderImportErrors lists the rows skipped by the last import and offers
// them as a spreadsheet.
func renderImportErrors(h *htmlWriter, m WizardModel) {
	if len(m.ImportErrors) == 0 {
		return
	}
	h.raw(`<div id="wizard-import-errors" class="mb-4 rounded border border-red-200 bg-red-50 p-3 text-sm" role="alert">`)
	h.raw(`<p class="mb-2 font-medium text-red-800">`)
	h.text(itoa(len(m.ImportErrors)) + " problems in the imported file")
	h.raw(`</p><table class="min-w-full text-left"><thead><tr><th class="pr-3">Row</th><th class="pr-3">Field</th><th>Error</th></tr></thead><tbody>`)
	for _, e := range m.ImportErrors {
		h.raw(`<tr><td class="pr-3">`)
		h.text(itoa(e.Row))
		h.raw(`</td><td class="pr-3">`)
		h.text(e.Field)
		h.raw(`</td><td>`)
		h.text(e.Message)
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table>`)
	if raw, err := json.Marshal(m.ImportErrors); err == nil {
		h.raw(`<form method="post" class="mt-2"`, attr("action", m.url("/import/errors")), `>`,
			`<input type="hidden" name="errors"`, attr("value", string(raw)), `>`,
			`<button type="submit" class="rounded border px-3 py-1">Download error report</button></form>`)
	}
	h.raw(`</div>`)
}

func renderItemRow(h *htmlWriter, m WizardModel, buildingID string, it wizard.BOQItem) {
	cell := func(field, value string, numeric bool) {
		locked := it.BudgetSource && (field == "no" || field == "key" || field == "costCode" || field == "unite")
		class := "w-full rounded border px-2 py-1"
		if numeric {
			class += " text-right"
		}
		h.raw(`<td class="px-2 py-1"><input`, attr("class", class), attr("name", "value"), attr("value", value),
			attr("aria-label", field), boolAttr("readonly", locked))
		if !locked {
			h.raw(` hx-trigger="change"`, m.hxEvent("update_item", map[string]string{"building_id": buildingID, "item_id": it.ID, "field": field}))
		}
		h.raw(`>`)
		if field == "costCode" && !locked {
			h.raw(`<button type="button" class="text-xs text-blue-700 hover:underline"`,
				attr("hx-get", "/cost-codes/select?draft="+m.DraftID+"&building="+buildingID+"&item="+it.ID),
				` hx-target="#dialog">Pick</button>`)
		}
		h.raw(`</td>`)
	}
	h.raw(`<tr`, attr("id", "item-"+it.ID), attr("data-budget", boolString(it.BudgetSource)), `>`)
	cell("no", it.No, false)
	cell("key", it.Key, false)
	cell("costCode", it.CostCode, false)
	cell("unite", it.Unite, false)
	cell("qte", it.Qte.String(), true)
	cell("pu", it.PU.String(), true)
	h.raw(`<td class="px-2 py-1 text-right">`)
	h.text(services.FormatAmount(it.TotalPrice.InexactFloat64(), ""))
	h.raw(`</td><td class="px-2 py-1"><button type="button" class="text-xs text-red-700 hover:underline"`,
		m.hxEvent("remove_item", map[string]string{"building_id": buildingID, "item_id": it.ID}), `>Remove</button></td></tr>`)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return ""
}

func renderSummary(h *htmlWriter, m WizardModel) {
	d := m.Draft
	trade := d.TradeID
	if t, ok := m.Ref.Trade(d.TradeID); ok {
		trade = t.Name
	}
	pairs := [][2]string{
		{"Project", optionLabel(m.Lists.Projects, d.ProjectID)},
		{"Trade", trade},
		{"Subcontractor", optionLabel(m.Lists.Subcontractors, d.SubcontractorID)},
		{"Contract number", d.Details.ContractNumber},
		{"Contract date", d.Details.ContractDate},
		{"Start date", d.Details.StartDate},
		{"Completion date", d.Details.CompletionDate},
		{"Currency", optionLabel(m.Lists.Currencies, d.Details.CurrencyID)},
		{"Template", optionLabel(m.Lists.Templates, d.Details.TemplateID)},
		{"Advance payment", d.Details.AdvancePayment + "%"},
		{"Retention", d.Details.Retention + "%"},
	}
	h.raw(`<dl class="grid grid-cols-2 gap-x-6 gap-y-1 text-sm md:grid-cols-4">`)
	for _, p := range pairs {
		h.raw(`<dt class="text-gray-500">`)
		h.text(p[0])
		h.raw(`</dt><dd>`)
		h.text(p[1])
		h.raw(`</dd>`)
	}
	h.raw(`</dl>`)

	for _, id := range d.BuildingIDs {
		name := id
		if b, ok := m.Ref.Building(id); ok {
			name = b.Name
		}
		h.raw(`<h3 class="mt-4 text-sm font-semibold">`)
		h.text(name)
		h.raw(`</h3><table class="min-w-full divide-y text-sm"><tbody class="divide-y">`)
		for _, it := range d.Items(id) {
			h.raw(`<tr><td class="px-2 py-1">`)
			h.text(it.No)
			h.raw(`</td><td class="px-2 py-1">`)
			h.text(it.Key)
			h.raw(`</td><td class="px-2 py-1">`)
			h.text(it.CostCode)
			h.raw(`</td><td class="px-2 py-1 text-right">`)
			h.text(services.FormatQty(it.Qte.InexactFloat64()) + " " + it.Unite)
			h.raw(`</td><td class="px-2 py-1 text-right">`)
			h.text(services.FormatAmount(it.TotalPrice.InexactFloat64(), m.Currency))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
	}
	renderTotals(h, m.Totals, m.Currency)
}

func renderTotals(h *htmlWriter, t services.ContractTotals, currency string) {
	rows := [][2]string{
		{"Contract amount", services.FormatAmount(t.Gross, currency)},
		{"Advance payment", services.FormatAmount(t.Advance, currency)},
		{"Retention", services.FormatAmount(t.Retention, currency)},
		{"Net payable", services.FormatAmount(t.Net, currency)},
	}
	h.raw(`<dl class="ml-auto mt-4 grid max-w-sm grid-cols-2 gap-1 text-sm" id="wizard-totals">`)
	for _, r := range rows {
		h.raw(`<dt class="text-gray-500">`)
		h.text(r[0])
		h.raw(`</dt><dd class="text-right font-medium">`)
		h.text(r[1])
		h.raw(`</dd>`)
	}
	h.raw(`</dl>`)
}

func renderReview(h *htmlWriter, m WizardModel) {
	h.raw(`<h2 class="mb-3 font-medium">Review</h2>`)
	renderSummary(h, m)
}

func renderPreview(h *htmlWriter, m WizardModel) {
	h.raw(`<div class="mb-3 flex items-center justify-between"><h2 class="font-medium">Preview</h2><span class="flex gap-2">`)
	h.raw(`<a class="rounded border px-3 py-1 text-sm"`, attr("href", m.url("/export?format=xlsx")), `>Excel</a>`)
	h.raw(`<a class="rounded border px-3 py-1 text-sm"`, attr("href", m.url("/export?format=pdf")), `>PDF</a>`)
	h.raw(`</span></div>`)
	renderSummary(h, m)
}

func renderWizardNav(h *htmlWriter, m WizardModel) {
	d := m.Draft
	h.raw(`<div class="flex justify-between">`)
	if d.Step > wizard.StepProject {
		h.raw(`<button type="button" class="rounded border px-4 py-2 text-sm"`, m.hxEvent("previous", nil), `>Previous</button>`)
	} else {
		h.raw(`<span></span>`)
	}
	switch {
	case d.Step == wizard.LastStep(d.Mode):
		label := "Create contract"
		if d.Mode == wizard.ModeEdit {
			label = "Save contract"
		}
		h.raw(`<button type="button" class="rounded bg-green-600 px-4 py-2 text-sm text-white"`,
			attr("hx-post", m.url("/submit")), ` hx-target="#wizard" hx-swap="outerHTML" hx-disabled-elt="this"`,
			boolAttr("disabled", d.Pending != nil), `>`)
		h.text(label)
		h.raw(`</button>`)
	default:
		h.raw(`<button type="button" class="rounded bg-blue-600 px-4 py-2 text-sm text-white"`, m.hxEvent("next", nil),
			boolAttr("disabled", d.Pending != nil), `>Next</button>`)
	}
	h.raw(`</div>`)
}
