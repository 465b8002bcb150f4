package core

import "fmt"

// Patch describes a partial modification of a document.
//
// Set replaces top-level fields (adding the ones that are missing). When Deep
// is true, a nested mapping in Set is merged recursively into an existing
// nested mapping instead of replacing it. Unset removes fields and Inc adds a
// numeric amount to a field, creating it when absent.
type Patch struct {
	Set   map[string]any
	Unset []string
	Inc   map[string]any
	Deep  bool
}

// Set is shorthand for a shallow Patch that only sets fields.
func Set(fields map[string]any) Patch {
	return Patch{Set: fields}
}

// Validate rejects empty patches, attempts to touch the identifier and
// unsupported values.
func (p Patch) Validate() error {
	if len(p.Set) == 0 && len(p.Unset) == 0 && len(p.Inc) == 0 {
		return fmt.Errorf("%w: empty patch", ErrInvalidArgument)
	}
	for field, v := range p.Set {
		if field == IDField {
			return fmt.Errorf("%w: %s is immutable", ErrInvalidArgument, IDField)
		}
		if field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidArgument)
		}
		if err := ValidateValue(v); err != nil {
			return fmt.Errorf("set '%s': %w", field, err)
		}
	}
	for _, field := range p.Unset {
		if field == IDField {
			return fmt.Errorf("%w: %s is immutable", ErrInvalidArgument, IDField)
		}
	}
	for field, v := range p.Inc {
		if field == IDField {
			return fmt.Errorf("%w: %s is immutable", ErrInvalidArgument, IDField)
		}
		if !IsNumber(v) {
			return fmt.Errorf("%w: inc '%s' needs a number, got %T", ErrInvalidArgument, field, v)
		}
	}
	return nil
}

// apply returns a new document with the patch applied. doc is left untouched.
func (p Patch) apply(doc Document) (Document, error) {
	next := make(Document, len(doc)+len(p.Set))
	for k, v := range doc {
		next[k] = v
	}

	for field, v := range p.Set {
		if p.Deep {
			if dst, ok := asMap(next[field]); ok {
				if src, ok := asMap(v); ok {
					next[field] = mergeDeep(dst, src)
					continue
				}
			}
		}
		next[field] = CloneValue(v)
	}

	for field, delta := range p.Inc {
		cur, exists := next[field]
		if !exists || cur == nil {
			next[field] = delta
			continue
		}
		if !IsNumber(cur) {
			return nil, fmt.Errorf("%w: cannot increment non-numeric field '%s' (%T)", ErrInvalidArgument, field, cur)
		}
		next[field] = addNumbers(cur, delta)
	}

	for _, field := range p.Unset {
		delete(next, field)
	}

	return next, nil
}

// mergeDeep builds a new mapping from dst with src merged over it.
func mergeDeep(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if d, ok := asMap(out[k]); ok {
			if s, ok := asMap(v); ok {
				out[k] = mergeDeep(d, s)
				continue
			}
		}
		out[k] = CloneValue(v)
	}
	return out
}

// addNumbers keeps integer arithmetic when both operands are ints and the
// sum fits, otherwise falls back to float64.
func addNumbers(a, b any) any {
	ia, aInt := a.(int)
	ib, bInt := b.(int)
	if aInt && bInt {
		sum := ia + ib
		if (sum > ia) == (ib > 0) {
			return sum
		}
	}
	fa, _ := ToFloat(a)
	fb, _ := ToFloat(b)
	return fa + fb
}
