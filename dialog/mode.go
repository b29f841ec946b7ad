// Package dialog implements the polymorphic modal used by every table:
// Add/Edit forms, Preview and Select tables, Approve/Reject review and
// two-step Confirm. Each mode is its own type carrying only the data it
// needs; Controller performs the side effect a mode submits.
package dialog

import "contractadmin/table"

// Kind names a dialog mode.
type Kind string

const (
	KindAdd     Kind = "add"
	KindEdit    Kind = "edit"
	KindPreview Kind = "preview"
	KindSelect  Kind = "select"
	KindApprove Kind = "approve"
	KindConfirm Kind = "confirm"
)

// Kinds lists every mode in display order.
var Kinds = []Kind{KindAdd, KindEdit, KindPreview, KindSelect, KindApprove, KindConfirm}

// Mode is implemented by the six dialog variants.
type Mode interface {
	Kind() Kind
	DialogTitle() string
}

// Add creates a record at Endpoint.
type Add struct {
	Title     string
	Endpoint  string
	Fields    []InputField
	Values    map[string]string
	SubmitURL string
}

// Edit updates record ID at Endpoint.
type Edit struct {
	Title     string
	Endpoint  string
	ID        string
	Fields    []InputField
	Values    map[string]string
	SubmitURL string
}

// Preview shows Rows read-only and offers an export.
type Preview struct {
	Title     string
	Columns   table.Columns
	Rows      []table.Row
	IDKey     string
	ExportURL string
}

// Select shows Rows and reports the clicked one.
type Select struct {
	Title     string
	Columns   table.Columns
	Rows      []table.Row
	IDKey     string
	SelectURL string
}

// Approve reviews EntityID: approve directly, or reject with a reason.
// RejectRevealed is set by the first Reject click.
type Approve struct {
	Title          string
	Endpoint       string
	EntityID       string
	Columns        table.Columns
	Rows           []table.Row
	RejectRevealed bool
	Reason         string
	ActionURL      string
}

// Confirm guards an irreversible action. Disclosed is set by the first
// interaction; the second commits.
type Confirm struct {
	Title        string
	Message      string
	Consequences []string
	Disclosed    bool
	ActionURL    string
}

func (Add) Kind() Kind     { return KindAdd }
func (Edit) Kind() Kind    { return KindEdit }
func (Preview) Kind() Kind { return KindPreview }
func (Select) Kind() Kind  { return KindSelect }
func (Approve) Kind() Kind { return KindApprove }
func (Confirm) Kind() Kind { return KindConfirm }

func (m Add) DialogTitle() string     { return m.Title }
func (m Edit) DialogTitle() string    { return m.Title }
func (m Preview) DialogTitle() string { return m.Title }
func (m Select) DialogTitle() string  { return m.Title }
func (m Approve) DialogTitle() string { return m.Title }
func (m Confirm) DialogTitle() string { return m.Title }

// Dialog is an open modal. Errors holds inline field messages; Message the
// last failure shown to the user.
type Dialog struct {
	Mode    Mode
	Open    bool
	Loading bool
	Errors  map[string]string
	Message string
}

// Open returns an open dialog in mode m.
func Open(m Mode) *Dialog {
	return &Dialog{Mode: m, Open: true, Errors: map[string]string{}}
}

// Kind is the kind of the current mode.
func (d *Dialog) Kind() Kind {
	if d == nil || d.Mode == nil {
		return ""
	}
	return d.Mode.Kind()
}

// Close closes the dialog without side effects.
func (d *Dialog) Close() {
	d.Open = false
	d.Loading = false
}
