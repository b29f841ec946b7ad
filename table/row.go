// Package table derives the visible slice of a row collection: search
// filtering, single-column sorting and pagination. It holds no state beyond
// the State value the caller round-trips through the request.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// DefaultIDKey is the identity field used when a table does not name one.
const DefaultIDKey = "id"

// Placeholder is rendered for a column the row does not carry.
const Placeholder = "-"

// ErrMissingIdentity is returned when a row has no value for the table's
// identity field.
var ErrMissingIdentity = errors.New("row has no identity")

// Row is an open-ended record. Columns pick which keys are displayed.
type Row map[string]any

// Column maps a field key to its display label.
type Column struct {
	Key   string
	Label string
}

// Columns is ordered: index 0 is the leftmost column.
type Columns []Column

// NewColumns builds Columns from alternating key, label pairs.
func NewColumns(pairs ...string) Columns {
	cols := make(Columns, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		cols = append(cols, Column{Key: pairs[i], Label: pairs[i+1]})
	}
	return cols
}

// Keys returns the column keys in display order.
func (c Columns) Keys() []string {
	keys := make([]string, len(c))
	for i, col := range c {
		keys[i] = col.Key
	}
	return keys
}

// Has reports whether key is one of the columns.
func (c Columns) Has(key string) bool {
	for _, col := range c {
		if col.Key == key {
			return true
		}
	}
	return false
}

// ID returns the row identity stored under key.
func (r Row) ID(key string) (string, error) {
	if key == "" {
		key = DefaultIDKey
	}
	v, ok := r[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: field %q", ErrMissingIdentity, key)
	}
	id := strings.TrimSpace(cast.ToString(v))
	if id == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrMissingIdentity, key)
	}
	return id, nil
}

// Cell returns the display text for key, or Placeholder when the row does
// not carry a value for it.
func (r Row) Cell(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return Placeholder
	}
	s := cast.ToString(v)
	if s == "" {
		return Placeholder
	}
	return s
}

// Text returns the raw string form of key, empty when absent.
func (r Row) Text(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// FindByID returns the first row whose identity equals id.
func FindByID(rows []Row, idKey, id string) (Row, bool) {
	for _, r := range rows {
		rid, err := r.ID(idKey)
		if err == nil && rid == id {
			return r, true
		}
	}
	return nil, false
}
