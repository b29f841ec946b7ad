package dialog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DateLayout is the wire format of date inputs.
const DateLayout = "2006-01-02"

// ErrInvalidSchema is returned by ValidateSchema.
var ErrInvalidSchema = errors.New("invalid field schema")

// FieldType is the input control rendered for a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldFile     FieldType = "file"
)

var knownTypes = map[FieldType]bool{
	FieldText: true, FieldNumber: true, FieldDate: true,
	FieldSelect: true, FieldTextarea: true, FieldFile: true,
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// InputField describes one editable attribute of an Add/Edit dialog.
type InputField struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	Options  []Option
}

// ValidateSchema checks field definitions: names are unique and non-empty,
// types are known, and select fields carry options.
func ValidateSchema(fields []InputField) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = true
		if !knownTypes[f.Type] {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("%w: select field %q requires options", ErrInvalidSchema, f.Name)
		}
	}
	return nil
}

// ValidateValues checks submitted form values against fields and returns a
// message per failing field name. An empty map means the values are valid.
func ValidateValues(fields []InputField, values map[string]string) map[string]string {
	errs := make(map[string]string)
	for _, f := range fields {
		if f.Type == FieldFile {
			continue
		}
		value := strings.TrimSpace(values[f.Name])
		if err := validation.Validate(value, fieldRules(f)...); err != nil {
			errs[f.Name] = err.Error()
		}
	}
	return errs
}

func fieldRules(f InputField) []validation.Rule {
	label := f.Label
	if label == "" {
		label = f.Name
	}
	var rules []validation.Rule
	if f.Required {
		rules = append(rules, validation.Required.Error(label+" is required"))
	}
	switch f.Type {
	case FieldNumber:
		rules = append(rules, is.Float.Error(label+" must be a number"))
	case FieldDate:
		rules = append(rules, validation.Date(DateLayout).Error(label+" must be a date (YYYY-MM-DD)"))
	case FieldSelect:
		allowed := make([]any, len(f.Options))
		for i, o := range f.Options {
			allowed[i] = o.Value
		}
		rules = append(rules, validation.In(allowed...).Error(label+" has an unknown value"))
	}
	return rules
}

// Coerce converts validated form values to the types the mutator stores.
// Number fields become float64; empty optional numbers are omitted.
func Coerce(fields []InputField, values map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Type == FieldFile {
			continue
		}
		value := strings.TrimSpace(values[f.Name])
		switch f.Type {
		case FieldNumber:
			if value == "" {
				continue
			}
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[f.Name] = n
		default:
			out[f.Name] = value
		}
	}
	return out, nil
}
