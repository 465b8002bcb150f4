package core

import (
	"fmt"
	"strings"
)

// IDField is the reserved field holding a document's identifier.
const IDField = "_id"

// Document is a self-describing record of named field values.
// The identifier is stored under IDField.
type Document map[string]any

// ID returns the document identifier, or "" if it has none.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Lookup resolves a field path. Dotted paths ("address.city") descend into
// nested mappings. The boolean is false when any step is missing.
func (d Document) Lookup(path string) (any, bool) {
	if !strings.Contains(path, ".") {
		v, ok := d[path]
		return v, ok
	}

	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Value is Lookup without the presence flag; missing fields read as nil.
func (d Document) Value(path string) any {
	v, _ := d.Lookup(path)
	return v
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// Validate checks the identifier (if present) and every field value.
func (d Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidArgument)
	}
	if raw, ok := d[IDField]; ok && raw != nil {
		id, isString := raw.(string)
		if !isString {
			return fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidArgument, IDField, raw)
		}
		if id == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, IDField)
		}
	}
	for field, v := range d {
		if field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidArgument)
		}
		if err := ValidateValue(v); err != nil {
			return fmt.Errorf("field '%s': %w", field, err)
		}
	}
	return nil
}
