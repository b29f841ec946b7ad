package dialog

import (
	"errors"
	"testing"
)

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		fields  []InputField
		wantErr bool
	}{
		{"valid", voFields(), false},
		{"select without options", []InputField{{Name: "status", Type: FieldSelect}}, true},
		{"unknown type", []InputField{{Name: "x", Type: "color"}}, true},
		{"duplicate", []InputField{{Name: "a", Type: FieldText}, {Name: "a", Type: FieldNumber}}, true},
		{"missing name", []InputField{{Type: FieldText}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(tt.fields)
			if tt.wantErr && !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("expected ErrInvalidSchema, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateValues_OptionalEmptyPasses(t *testing.T) {
	errs := ValidateValues(voFields(), map[string]string{"vo_number": "VO-1", "amount": "0"})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestCoerce(t *testing.T) {
	got, err := Coerce(voFields(), map[string]string{"vo_number": " VO-1 ", "amount": "12.5", "date": ""})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if got["vo_number"] != "VO-1" {
		t.Errorf("text should be trimmed, got %#v", got["vo_number"])
	}
	if got["amount"] != 12.5 {
		t.Errorf("amount = %#v", got["amount"])
	}
	if _, ok := got["date"]; !ok {
		t.Error("empty date should still be written")
	}
}
