package dialog

import (
	"context"
	"errors"
	"testing"

	"contractadmin/table"
)

type call struct {
	op       string
	endpoint string
	id       string
	values   map[string]any
	reason   string
}

type stubBackend struct {
	calls  []call
	result Result
	err    error
}

func (s *stubBackend) record(c call) (Result, error) {
	s.calls = append(s.calls, c)
	return s.result, s.err
}

func (s *stubBackend) Create(_ context.Context, endpoint string, values map[string]any) (Result, error) {
	return s.record(call{op: "create", endpoint: endpoint, values: values})
}

func (s *stubBackend) Update(_ context.Context, endpoint, id string, values map[string]any) (Result, error) {
	return s.record(call{op: "update", endpoint: endpoint, id: id, values: values})
}

func (s *stubBackend) Delete(_ context.Context, endpoint, id string) (Result, error) {
	return s.record(call{op: "delete", endpoint: endpoint, id: id})
}

func (s *stubBackend) Approve(_ context.Context, endpoint, id string) (Result, error) {
	return s.record(call{op: "approve", endpoint: endpoint, id: id})
}

func (s *stubBackend) Reject(_ context.Context, endpoint, id, reason string) (Result, error) {
	return s.record(call{op: "reject", endpoint: endpoint, id: id, reason: reason})
}

type recordingNotifier struct {
	levels   []Level
	messages []string
}

func (n *recordingNotifier) Notify(level Level, message string) {
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}

func voFields() []InputField {
	return []InputField{
		{Name: "vo_number", Label: "VO Number", Type: FieldText, Required: true},
		{Name: "amount", Label: "Amount", Type: FieldNumber, Required: true},
		{Name: "date", Label: "Date", Type: FieldDate},
		{Name: "kind", Label: "Kind", Type: FieldSelect, Options: []Option{{Value: "addition", Label: "Addition"}, {Value: "omission", Label: "Omission"}}},
	}
}

func newTestController(b *stubBackend, n *recordingNotifier, policy ClosePolicy) *Controller {
	return NewController(Env{Notifier: n, Mutator: b, Reviewer: b, CloseOnFailure: policy})
}

func TestSubmit_AddRoundTrip(t *testing.T) {
	backend := &stubBackend{result: OK("")}
	notifier := &recordingNotifier{}
	c := newTestController(backend, notifier, nil)
	d := Open(Add{Title: "New VO", Endpoint: "variation_orders", Fields: voFields()})

	successCalls := 0
	err := c.Submit(context.Background(), d, map[string]string{
		"vo_number": "VO-01",
		"amount":    "1500.50",
		"kind":      "addition",
	}, func(Result) { successCalls++ })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if successCalls != 1 {
		t.Errorf("expected exactly one onSuccess call, got %d", successCalls)
	}
	if d.Open {
		t.Error("dialog should be closed after success")
	}
	if d.Loading {
		t.Error("loading flag should be cleared")
	}
	if len(backend.calls) != 1 || backend.calls[0].op != "create" {
		t.Fatalf("expected one create call, got %+v", backend.calls)
	}
	if got := backend.calls[0].values["amount"]; got != 1500.50 {
		t.Errorf("amount should be coerced to float64, got %#v", got)
	}
	if len(notifier.levels) != 1 || notifier.levels[0] != LevelSuccess {
		t.Errorf("expected one success notification, got %v", notifier.levels)
	}
}

func TestSubmit_EditCallsUpdate(t *testing.T) {
	backend := &stubBackend{result: OK("Updated")}
	notifier := &recordingNotifier{}
	c := newTestController(backend, notifier, nil)
	d := Open(Edit{Endpoint: "variation_orders", ID: "vo1", Fields: voFields()})

	if err := c.Submit(context.Background(), d, map[string]string{"vo_number": "VO-02", "amount": "10"}, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(backend.calls) != 1 || backend.calls[0].op != "update" || backend.calls[0].id != "vo1" {
		t.Fatalf("expected update of vo1, got %+v", backend.calls)
	}
	if notifier.messages[0] != "Updated" {
		t.Errorf("backend message should be shown, got %q", notifier.messages[0])
	}
}

func TestSubmit_ValidationBlocksDispatch(t *testing.T) {
	backend := &stubBackend{result: OK("")}
	c := newTestController(backend, &recordingNotifier{}, nil)
	d := Open(Add{Endpoint: "variation_orders", Fields: voFields()})

	err := c.Submit(context.Background(), d, map[string]string{
		"amount": "abc",
		"date":   "31/12/2025",
		"kind":   "other",
	}, func(Result) { t.Error("onSuccess must not run") })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(backend.calls) != 0 {
		t.Errorf("no network call expected, got %d", len(backend.calls))
	}
	for _, field := range []string{"vo_number", "amount", "date", "kind"} {
		if d.Errors[field] == "" {
			t.Errorf("expected inline error for %s", field)
		}
	}
	if !d.Open {
		t.Error("dialog should stay open")
	}
	if got := d.Mode.(Add).Values["amount"]; got != "abc" {
		t.Errorf("submitted values should be kept for re-render, got %q", got)
	}
}

func TestSubmit_FailurePolicy(t *testing.T) {
	tests := []struct {
		name       string
		result     Result
		err        error
		policy     ClosePolicy
		wantOpen   bool
		wantNotice string
	}{
		{"business failure keeps open", Failed("Duplicate VO number"), nil, nil, true, "Duplicate VO number"},
		{"transport failure keeps open", Result{}, errors.New("connection refused"), nil, true, GenericFailure},
		{"configured close on failure", Failed("nope"), nil, ClosePolicy{KindAdd: true}, false, "nope"},
		{"other kind policy ignored", Failed("nope"), nil, ClosePolicy{KindEdit: true}, true, "nope"},
		{"falsy flag without message", Result{Success: false}, nil, nil, true, "The request was not accepted."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{result: tt.result, err: tt.err}
			notifier := &recordingNotifier{}
			c := newTestController(backend, notifier, tt.policy)
			d := Open(Add{Endpoint: "variation_orders", Fields: voFields()})

			calls := 0
			_ = c.Submit(context.Background(), d, map[string]string{"vo_number": "VO-1", "amount": "1"}, func(Result) { calls++ })

			if calls != 0 {
				t.Error("onSuccess must not run on failure")
			}
			if d.Open != tt.wantOpen {
				t.Errorf("open = %v, want %v", d.Open, tt.wantOpen)
			}
			if d.Loading {
				t.Error("loading must be cleared so the user can retry")
			}
			if len(notifier.messages) != 1 || notifier.messages[0] != tt.wantNotice {
				t.Errorf("notifications = %v, want [%q]", notifier.messages, tt.wantNotice)
			}
		})
	}
}

func TestSubmit_WrongMode(t *testing.T) {
	c := newTestController(&stubBackend{}, &recordingNotifier{}, nil)
	d := Open(Preview{})
	if err := c.Submit(context.Background(), d, nil, nil); !errors.Is(err, ErrWrongMode) {
		t.Errorf("expected ErrWrongMode, got %v", err)
	}
}

func TestReject_TwoPhase(t *testing.T) {
	backend := &stubBackend{result: OK("")}
	c := newTestController(backend, &recordingNotifier{}, nil)
	d := Open(Approve{Endpoint: "variation_orders", EntityID: "vo7"})

	if err := c.Reject(context.Background(), d, "", nil); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if !d.Open {
		t.Fatal("first reject click must keep the dialog open")
	}
	if !d.Mode.(Approve).RejectRevealed {
		t.Fatal("first reject click must reveal the reason field")
	}
	if len(backend.calls) != 0 {
		t.Fatalf("first reject click must not call the backend, got %+v", backend.calls)
	}

	if err := c.Reject(context.Background(), d, "   ", nil); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if d.Errors["reason"] == "" || len(backend.calls) != 0 {
		t.Fatal("empty reason after reveal must be an inline error without a call")
	}

	done := 0
	if err := c.Reject(context.Background(), d, "Rates not agreed", func(Result) { done++ }); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if len(backend.calls) != 1 {
		t.Fatalf("expected exactly one reject call, got %d", len(backend.calls))
	}
	got := backend.calls[0]
	if got.op != "reject" || got.id != "vo7" || got.reason != "Rates not agreed" {
		t.Errorf("unexpected call %+v", got)
	}
	if done != 1 || d.Open {
		t.Errorf("success should close and call back once: done=%d open=%v", done, d.Open)
	}
}

func TestApprove_AlwaysEnabled(t *testing.T) {
	backend := &stubBackend{result: OK("")}
	c := newTestController(backend, &recordingNotifier{}, nil)
	d := Open(Approve{Endpoint: "variation_orders", EntityID: "vo7"})

	if err := c.Approve(context.Background(), d, nil); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(backend.calls) != 1 || backend.calls[0].op != "approve" {
		t.Fatalf("expected approve call, got %+v", backend.calls)
	}
	if d.Open {
		t.Error("dialog should close after approval")
	}
}

func TestConfirm_DisclosesThenCommits(t *testing.T) {
	c := newTestController(&stubBackend{}, &recordingNotifier{}, nil)
	d := Open(Confirm{Message: "Terminate contract C-001?", Consequences: []string{"No further variation orders"}})

	commits := 0
	commit := func(context.Context) (Result, error) {
		commits++
		return OK("Contract terminated"), nil
	}

	if err := c.Confirm(context.Background(), d, commit, nil); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if commits != 0 || !d.Mode.(Confirm).Disclosed || !d.Open {
		t.Fatalf("first interaction must only disclose: commits=%d mode=%+v", commits, d.Mode)
	}

	if err := c.Confirm(context.Background(), d, commit, nil); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if commits != 1 || d.Open {
		t.Errorf("second interaction must commit once and close: commits=%d open=%v", commits, d.Open)
	}
}

func TestSelect(t *testing.T) {
	c := newTestController(&stubBackend{}, &recordingNotifier{}, nil)
	rows := []table.Row{{"id": "cc1", "code": "01.100"}, {"id": "cc2", "code": "02.200"}}
	d := Open(Select{Rows: rows})

	var picked table.Row
	if err := c.Select(d, "missing", func(r table.Row) { picked = r }); !errors.Is(err, ErrUnknownRow) {
		t.Fatalf("expected ErrUnknownRow, got %v", err)
	}
	if err := c.Select(d, "cc2", func(r table.Row) { picked = r }); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if picked.Text("code") != "02.200" {
		t.Errorf("picked %v", picked)
	}
	if d.Open {
		t.Error("select should close the dialog")
	}
}

func TestExport_FailurePolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   ClosePolicy
		wantOpen bool
	}{
		{"default keeps open", nil, true},
		{"configured close on failure", ClosePolicy{KindPreview: true}, false},
		{"other kind policy ignored", ClosePolicy{KindAdd: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			c := newTestController(&stubBackend{}, notifier, tt.policy)
			d := Open(Preview{})

			err := c.Export(context.Background(), d,
				func(context.Context) (Blob, error) { return Blob{}, errors.New("boom") },
				func(Blob) error { return nil },
			)
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if d.Open != tt.wantOpen {
				t.Errorf("open = %v, want %v", d.Open, tt.wantOpen)
			}
			if d.Loading || d.Message != GenericFailure {
				t.Errorf("loading=%v message=%q", d.Loading, d.Message)
			}
		})
	}
}

func TestExport_HandsBlobToCaller(t *testing.T) {
	notifier := &recordingNotifier{}
	c := newTestController(&stubBackend{}, notifier, nil)
	d := Open(Preview{})

	var delivered Blob
	err := c.Export(context.Background(), d,
		func(context.Context) (Blob, error) {
			return Blob{Name: "boq.xlsx", ContentType: "application/octet-stream", Data: []byte("x")}, nil
		},
		func(b Blob) error { delivered = b; return nil },
	)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if delivered.Name != "boq.xlsx" || !d.Open {
		t.Errorf("delivered=%+v open=%v", delivered, d.Open)
	}

	_ = c.Export(context.Background(), d,
		func(context.Context) (Blob, error) { return Blob{}, errors.New("boom") },
		func(Blob) error { t.Error("deliver must not run on failure"); return nil },
	)
	if len(notifier.levels) != 1 || notifier.levels[0] != LevelError {
		t.Errorf("expected one error notification, got %v", notifier.levels)
	}
}
