package views

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"contractadmin/dialog"
	"contractadmin/table"
)

const closeDialogJS = `document.getElementById('dialog').innerHTML=''`

// Dialog renders the open dialog into the #dialog container. A closed or nil
// dialog renders nothing.
func Dialog(d *dialog.Dialog) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		if d == nil || !d.Open || d.Mode == nil {
			return
		}
		h.raw(`<div class="fixed inset-0 z-40 flex items-center justify-center bg-black/40" role="dialog" aria-modal="true"`,
			attr("data-dialog-kind", string(d.Kind())), boolAttr(`aria-busy="true"`, d.Loading), `>`)
		h.raw(`<div class="max-h-[90vh] w-full max-w-2xl overflow-y-auto rounded-lg bg-white p-6 shadow-xl">`)
		h.raw(`<div class="mb-4 flex items-start justify-between"><h2 class="text-lg font-semibold">`)
		h.text(d.Mode.DialogTitle())
		h.raw(`</h2><button type="button" class="text-gray-400 hover:text-gray-700" aria-label="Close"`, attr("onclick", closeDialogJS), `>×</button></div>`)
		if d.Message != "" {
			h.raw(`<div class="mb-3 rounded bg-red-50 px-3 py-2 text-sm text-red-700" role="alert">`)
			h.text(d.Message)
			h.raw(`</div>`)
		}

		switch m := d.Mode.(type) {
		case dialog.Add:
			renderForm(h, d, m.Fields, m.Values, m.SubmitURL, "Create")
		case dialog.Edit:
			renderForm(h, d, m.Fields, m.Values, m.SubmitURL, "Save")
		case dialog.Preview:
			renderStaticRows(h, m.Columns, m.Rows, "")
			h.raw(`<div class="mt-4 flex justify-end gap-2">`)
			if m.ExportURL != "" {
				h.raw(`<a class="rounded bg-blue-600 px-3 py-2 text-sm text-white"`, attr("href", m.ExportURL), ` download>Export</a>`)
			}
			closeButton(h)
			h.raw(`</div>`)
		case dialog.Select:
			renderStaticRows(h, m.Columns, m.Rows, m.SelectURL, m.IDKey)
			h.raw(`<div class="mt-4 flex justify-end">`)
			closeButton(h)
			h.raw(`</div>`)
		case dialog.Approve:
			renderApprove(h, d, m)
		case dialog.Confirm:
			renderConfirm(h, d, m)
		}
		h.raw(`</div></div>`)
	})
}

// DialogOOB renders d as an out-of-band swap of the #dialog container, for
// responses whose main target is elsewhere.
func DialogOOB(d *dialog.Dialog) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<div id="dialog" hx-swap-oob="true">`)
		h.render(ctx, Dialog(d))
		h.raw(`</div>`)
	})
}

func closeButton(h *htmlWriter) {
	h.raw(`<button type="button" class="rounded border px-3 py-2 text-sm"`, attr("onclick", closeDialogJS), `>Close</button>`)
}

func submitButton(h *htmlWriter, d *dialog.Dialog, label, name, value string, danger bool) {
	class := "rounded bg-blue-600 px-3 py-2 text-sm text-white disabled:opacity-50"
	if danger {
		class = "rounded bg-red-600 px-3 py-2 text-sm text-white disabled:opacity-50"
	}
	h.raw(`<button type="submit"`, attr("class", class), attr("name", name), attr("value", value), boolAttr("disabled", d.Loading), `>`)
	h.text(label)
	h.raw(`</button>`)
}

func fieldError(h *htmlWriter, d *dialog.Dialog, name string) {
	if msg := d.Errors[name]; msg != "" {
		h.raw(`<p class="mt-1 text-xs text-red-600"`, attr("id", "err-"+name), `>`)
		h.text(msg)
		h.raw(`</p>`)
	}
}

func renderForm(h *htmlWriter, d *dialog.Dialog, fields []dialog.InputField, values map[string]string, submitURL, label string) {
	enctype := ""
	for _, f := range fields {
		if f.Type == dialog.FieldFile {
			enctype = "multipart/form-data"
		}
	}
	h.raw(`<form class="space-y-3"`, attr("hx-post", submitURL), ` hx-target="#dialog" hx-disabled-elt="find button[type=submit]"`,
		attr("hx-encoding", enctype), `>`)
	for _, f := range fields {
		id := "field-" + f.Name
		value := values[f.Name]
		h.raw(`<div><label class="block text-sm font-medium"`, attr("for", id), `>`)
		h.text(labelOf(f))
		if f.Required {
			h.raw(` <span class="text-red-600">*</span>`)
		}
		h.raw(`</label>`)
		invalid := d.Errors[f.Name] != ""
		common := attr("id", id) + attr("name", f.Name) + boolAttr("required", f.Required) +
			boolAttr(`aria-invalid="true"`, invalid) + ` class="mt-1 w-full rounded border px-3 py-2 text-sm"`
		switch f.Type {
		case dialog.FieldTextarea:
			h.raw(`<textarea rows="3"`, common, `>`)
			h.text(value)
			h.raw(`</textarea>`)
		case dialog.FieldSelect:
			h.raw(`<select`, common, `><option value="">Select…</option>`)
			for _, o := range f.Options {
				h.raw(`<option`, attr("value", o.Value), boolAttr("selected", o.Value == value), `>`)
				h.text(o.Label)
				h.raw(`</option>`)
			}
			h.raw(`</select>`)
		case dialog.FieldNumber:
			h.raw(`<input type="number" step="any"`, common, attr("value", value), `>`)
		case dialog.FieldDate:
			h.raw(`<input type="date"`, common, attr("value", value), `>`)
		case dialog.FieldFile:
			h.raw(`<input type="file"`, common, `>`)
		default:
			h.raw(`<input type="text"`, common, attr("value", value), `>`)
		}
		fieldError(h, d, f.Name)
		h.raw(`</div>`)
	}
	fieldError(h, d, "_form")
	h.raw(`<div class="flex justify-end gap-2 pt-2">`)
	closeButton(h)
	submitButton(h, d, label, "", "", false)
	h.raw(`</div></form>`)
}

func labelOf(f dialog.InputField) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// renderStaticRows writes rows as a plain table. With selectURL set each
// row posts its id there.
func renderStaticRows(h *htmlWriter, cols table.Columns, rows []table.Row, selectURL string, idKey ...string) {
	key := table.DefaultIDKey
	if len(idKey) > 0 && idKey[0] != "" {
		key = idKey[0]
	}
	h.raw(`<table class="min-w-full divide-y text-sm"><thead class="bg-gray-100"><tr>`)
	for _, c := range cols {
		h.raw(`<th scope="col" class="px-2 py-1 text-left font-medium">`)
		h.text(c.Label)
		h.raw(`</th>`)
	}
	h.raw(`</tr></thead><tbody class="divide-y">`)
	if len(rows) == 0 {
		h.raw(`<tr><td class="px-2 py-4 text-center text-gray-500"`, attr("colspan", itoa(len(cols))), `>No records found.</td></tr>`)
	}
	for _, r := range rows {
		h.raw(`<tr`)
		if selectURL != "" {
			id, _ := r.ID(key)
			vals, _ := json.Marshal(map[string]string{"id": id})
			h.raw(` class="cursor-pointer hover:bg-blue-50"`, attr("hx-post", selectURL), attr("hx-vals", string(vals)), ` hx-target="#dialog"`)
		}
		h.raw(`>`)
		for _, c := range cols {
			h.raw(`<td class="px-2 py-1">`)
			h.text(r.Cell(c.Key))
			h.raw(`</td>`)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table>`)
}

func renderApprove(h *htmlWriter, d *dialog.Dialog, m dialog.Approve) {
	if len(m.Rows) > 0 {
		renderStaticRows(h, m.Columns, m.Rows, "")
	}
	h.raw(`<form class="mt-4 space-y-3"`, attr("hx-post", m.ActionURL), ` hx-target="#dialog" hx-disabled-elt="find button[type=submit]">`)
	revealed := "0"
	if m.RejectRevealed {
		revealed = "1"
	}
	h.raw(`<input type="hidden" name="revealed"`, attr("value", revealed), `>`)
	if m.RejectRevealed {
		h.raw(`<div><label class="block text-sm font-medium" for="reason">Rejection reason <span class="text-red-600">*</span></label>`)
		h.raw(`<textarea id="reason" name="reason" rows="3" class="mt-1 w-full rounded border px-3 py-2 text-sm"`,
			boolAttr(`aria-invalid="true"`, d.Errors["reason"] != ""), `>`)
		h.text(m.Reason)
		h.raw(`</textarea>`)
		fieldError(h, d, "reason")
		h.raw(`</div>`)
	}
	h.raw(`<div class="flex justify-end gap-2">`)
	closeButton(h)
	if m.RejectRevealed {
		submitButton(h, d, "Confirm rejection", "action", "reject", true)
	} else {
		submitButton(h, d, "Reject", "action", "reject", true)
	}
	submitButton(h, d, "Approve", "action", "approve", false)
	h.raw(`</div></form>`)
}

func renderConfirm(h *htmlWriter, d *dialog.Dialog, m dialog.Confirm) {
	h.raw(`<p class="text-sm">`)
	h.text(m.Message)
	h.raw(`</p>`)
	h.raw(`<form class="mt-4 space-y-3"`, attr("hx-post", m.ActionURL), ` hx-target="#dialog" hx-disabled-elt="find button[type=submit]">`)
	if !m.Disclosed {
		h.raw(`<input type="hidden" name="disclosed" value="0">`)
		h.raw(`<div class="flex justify-end gap-2">`)
		closeButton(h)
		submitButton(h, d, "Continue", "", "", false)
		h.raw(`</div></form>`)
		return
	}
	h.raw(`<input type="hidden" name="disclosed" value="1">`)
	if len(m.Consequences) > 0 {
		h.raw(`<ul class="list-disc space-y-1 rounded bg-amber-50 py-2 pl-8 pr-3 text-sm text-amber-900">`)
		for _, c := range m.Consequences {
			h.raw(`<li>`)
			h.text(c)
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
	}
	h.raw(`<div><label class="block text-sm font-medium" for="confirm-reason">Note</label>`,
		`<textarea id="confirm-reason" name="reason" rows="2" class="mt-1 w-full rounded border px-3 py-2 text-sm"></textarea></div>`)
	h.raw(`<div class="flex justify-end gap-2">`)
	closeButton(h)
	submitButton(h, d, "Confirm", "", "", true)
	h.raw(`</div></form>`)
}
