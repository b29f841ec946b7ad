package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"contractadmin/table"
)

// ErrWrongMode is returned when an operation does not apply to the open mode.
var ErrWrongMode = errors.New("operation not available in this dialog mode")

// ErrUnknownRow is returned when Select receives an id not in the dialog.
var ErrUnknownRow = errors.New("row not found in dialog")

// GenericFailure is shown for transport errors.
const GenericFailure = "Something went wrong. Please try again."

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Mutator performs record writes against endpoint, a collection or REST
// resource name.
type Mutator interface {
	Create(ctx context.Context, endpoint string, values map[string]any) (Result, error)
	Update(ctx context.Context, endpoint, id string, values map[string]any) (Result, error)
	Delete(ctx context.Context, endpoint, id string) (Result, error)
}

// Reviewer performs approval decisions.
type Reviewer interface {
	Approve(ctx context.Context, endpoint, id string) (Result, error)
	Reject(ctx context.Context, endpoint, id, reason string) (Result, error)
}

// Blob is an exported document handed to the caller untouched.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// ClosePolicy says, per kind, whether a failed action closes the dialog.
// Kinds not present stay open.
type ClosePolicy map[Kind]bool

// Env carries the capabilities a Controller needs.
type Env struct {
	Notifier       Notifier
	Mutator        Mutator
	Reviewer       Reviewer
	Logger         *slog.Logger
	CloseOnFailure ClosePolicy
}

// Controller runs dialog submissions.
type Controller struct {
	env Env
}

// NewController returns a Controller over env. A nil logger discards.
func NewController(env Env) *Controller {
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}
	if env.Notifier == nil {
		env.Notifier = nopNotifier{}
	}
	return &Controller{env: env}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}

// Submit validates values for an Add or Edit dialog and performs the create
// or update. onSuccess runs once after a successful write, before the dialog
// closes.
func (c *Controller) Submit(ctx context.Context, d *Dialog, values map[string]string, onSuccess func(Result)) error {
	var (
		fields   []InputField
		endpoint string
		id       string
	)
	switch m := d.Mode.(type) {
	case Add:
		m.Values = values
		d.Mode = m
		fields, endpoint = m.Fields, m.Endpoint
	case Edit:
		m.Values = values
		d.Mode = m
		fields, endpoint, id = m.Fields, m.Endpoint, m.ID
	default:
		return fmt.Errorf("%w: submit in %q", ErrWrongMode, d.Kind())
	}
	if c.env.Mutator == nil {
		return errors.New("dialog: no mutator configured")
	}

	d.Errors = ValidateValues(fields, values)
	if len(d.Errors) > 0 {
		return nil
	}
	payload, err := Coerce(fields, values)
	if err != nil {
		d.Errors = map[string]string{"_form": err.Error()}
		return nil
	}

	d.Loading = true
	defer func() { d.Loading = false }()

	var res Result
	if d.Kind() == KindEdit {
		res, err = c.env.Mutator.Update(ctx, endpoint, id, payload)
	} else {
		res, err = c.env.Mutator.Create(ctx, endpoint, payload)
	}
	c.finish(d, "save", res, err, "Saved successfully", onSuccess)
	return nil
}

// Approve approves the entity under review.
func (c *Controller) Approve(ctx context.Context, d *Dialog, onSuccess func(Result)) error {
	m, ok := d.Mode.(Approve)
	if !ok {
		return fmt.Errorf("%w: approve in %q", ErrWrongMode, d.Kind())
	}
	if c.env.Reviewer == nil {
		return errors.New("dialog: no reviewer configured")
	}
	d.Loading = true
	defer func() { d.Loading = false }()

	res, err := c.env.Reviewer.Approve(ctx, m.Endpoint, m.EntityID)
	c.finish(d, "approve", res, err, "Approved", onSuccess)
	return nil
}

// Reject is two-phase: the first call only reveals the reason field. Once
// revealed, an empty reason is an inline error and a non-empty reason calls
// the reviewer.
func (c *Controller) Reject(ctx context.Context, d *Dialog, reason string, onSuccess func(Result)) error {
	m, ok := d.Mode.(Approve)
	if !ok {
		return fmt.Errorf("%w: reject in %q", ErrWrongMode, d.Kind())
	}
	if !m.RejectRevealed {
		m.RejectRevealed = true
		d.Mode = m
		return nil
	}

	m.Reason = strings.TrimSpace(reason)
	d.Mode = m
	if m.Reason == "" {
		d.Errors = map[string]string{"reason": "A rejection reason is required"}
		return nil
	}
	if c.env.Reviewer == nil {
		return errors.New("dialog: no reviewer configured")
	}
	d.Errors = map[string]string{}
	d.Loading = true
	defer func() { d.Loading = false }()

	res, err := c.env.Reviewer.Reject(ctx, m.Endpoint, m.EntityID, m.Reason)
	c.finish(d, "reject", res, err, "Rejected", onSuccess)
	return nil
}

// Confirm is two-phase: the first call discloses the consequences, the
// second runs commit.
func (c *Controller) Confirm(ctx context.Context, d *Dialog, commit func(context.Context) (Result, error), onSuccess func(Result)) error {
	m, ok := d.Mode.(Confirm)
	if !ok {
		return fmt.Errorf("%w: confirm in %q", ErrWrongMode, d.Kind())
	}
	if !m.Disclosed {
		m.Disclosed = true
		d.Mode = m
		return nil
	}
	d.Loading = true
	defer func() { d.Loading = false }()

	res, err := commit(ctx)
	c.finish(d, "confirm", res, err, "Done", onSuccess)
	return nil
}

// Select reports the row with rowID to onSelect and closes the dialog.
func (c *Controller) Select(d *Dialog, rowID string, onSelect func(table.Row)) error {
	m, ok := d.Mode.(Select)
	if !ok {
		return fmt.Errorf("%w: select in %q", ErrWrongMode, d.Kind())
	}
	row, found := table.FindByID(m.Rows, m.IDKey, rowID)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownRow, rowID)
	}
	if onSelect != nil {
		onSelect(row)
	}
	d.Close()
	return nil
}

// Export fetches the preview's document and hands it to deliver. A failed
// export follows the close-on-failure policy for previews.
func (c *Controller) Export(ctx context.Context, d *Dialog, exporter func(context.Context) (Blob, error), deliver func(Blob) error) error {
	if _, ok := d.Mode.(Preview); !ok {
		return fmt.Errorf("%w: export in %q", ErrWrongMode, d.Kind())
	}
	d.Loading = true
	defer func() { d.Loading = false }()

	blob, err := exporter(ctx)
	if err == nil {
		err = deliver(blob)
	}
	if err != nil {
		c.env.Logger.Error("dialog: export failed", "kind", "transport", "error", err)
		d.Message = GenericFailure
		c.env.Notifier.Notify(LevelError, d.Message)
		c.afterFailure(d)
	}
	return nil
}

func (c *Controller) finish(d *Dialog, op string, res Result, err error, successMsg string, onSuccess func(Result)) {
	switch {
	case err != nil:
		c.env.Logger.Error("dialog: "+op+" failed", "kind", "transport", "dialog", string(d.Kind()), "error", err)
		d.Message = GenericFailure
		c.env.Notifier.Notify(LevelError, d.Message)
		c.afterFailure(d)
	case !res.Success:
		msg := res.Message
		if msg == "" {
			msg = "The request was not accepted."
		}
		c.env.Logger.Warn("dialog: "+op+" rejected", "kind", "business", "dialog", string(d.Kind()), "message", res.Message)
		d.Message = msg
		c.env.Notifier.Notify(LevelError, msg)
		c.afterFailure(d)
	default:
		if res.Message != "" {
			successMsg = res.Message
		}
		d.Message = ""
		c.env.Notifier.Notify(LevelSuccess, successMsg)
		if onSuccess != nil {
			onSuccess(res)
		}
		d.Open = false
	}
}

func (c *Controller) afterFailure(d *Dialog) {
	if c.env.CloseOnFailure[d.Kind()] {
		d.Open = false
	}
}
