package core

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// kind is a value's type class. The numeric order of the constants is the
// natural type order used when values of different classes are compared.
type kind int

const (
	kindNull kind = iota
	kindNumber
	kindString
	kindObject
	kindArray
	kindBool
	kindInvalid
)

func kindOf(v any) kind {
	switch v.(type) {
	case nil:
		return kindNull
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return kindNumber
	case string:
		return kindString
	case map[string]any, Document:
		return kindObject
	case []any:
		return kindArray
	case bool:
		return kindBool
	}
	return kindInvalid
}

// ToFloat converts any Go numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// IsNumber reports whether v is one of the supported numeric kinds.
func IsNumber(v any) bool {
	return kindOf(v) == kindNumber
}

// SameKind reports whether a and b belong to the same type class, which is
// the precondition for range comparisons ($gt, $lt, ...).
func SameKind(a, b any) bool {
	return kindOf(a) == kindOf(b)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// CompareValues returns -1, 0 or +1 ordering a against b.
//
// Values of different type classes are ordered null < numbers < strings <
// mappings < sequences < booleans. Within a class numbers compare
// numerically, strings byte-wise, mappings by sorted key then value,
// sequences element-wise then by length, and false < true.
func CompareValues(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}

	switch ka {
	case kindNumber:
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		return cmp.Compare(fa, fb)
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case kindArray:
		sa, sb := a.([]any), b.([]any)
		for i := 0; i < len(sa) && i < len(sb); i++ {
			if c := CompareValues(sa[i], sb[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(sa), len(sb))
	case kindObject:
		ma, _ := asMap(a)
		mb, _ := asMap(b)
		keysA, keysB := sortedKeys(ma), sortedKeys(mb)
		for i := 0; i < len(keysA) && i < len(keysB); i++ {
			if c := strings.Compare(keysA[i], keysB[i]); c != 0 {
				return c
			}
			if c := CompareValues(ma[keysA[i]], mb[keysB[i]]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(keysA), len(keysB))
	}
	return 0
}

// Equal reports whether a and b are equal under CompareValues.
func Equal(a, b any) bool {
	return CompareValues(a, b) == 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CanonicalKey encodes v into a string such that two values produce the same
// key exactly when they are Equal. It is used to bucket group keys.
func CanonicalKey(v any) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any) {
	switch kindOf(v) {
	case kindNull:
		sb.WriteString("n")
	case kindNumber:
		f, _ := ToFloat(v)
		sb.WriteString("d")
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case kindString:
		sb.WriteString("s")
		sb.WriteString(strconv.Quote(v.(string)))
	case kindBool:
		if v.(bool) {
			sb.WriteString("b1")
		} else {
			sb.WriteString("b0")
		}
	case kindArray:
		sb.WriteString("[")
		for i, e := range v.([]any) {
			if i > 0 {
				sb.WriteString(",")
			}
			writeCanonical(sb, e)
		}
		sb.WriteString("]")
	case kindObject:
		m, _ := asMap(v)
		sb.WriteString("{")
		for i, k := range sortedKeys(m) {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(":")
			writeCanonical(sb, m[k])
		}
		sb.WriteString("}")
	default:
		fmt.Fprintf(sb, "?%v", v)
	}
}

// CloneValue returns a deep copy of v. Nested mappings come back as
// map[string]any and sequences as []any.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case Document:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	}
	return v
}

// ValidateValue checks that v and everything nested in it is a supported
// document value.
func ValidateValue(v any) error {
	switch kindOf(v) {
	case kindInvalid:
		return fmt.Errorf("%w: unsupported value type %T", ErrInvalidArgument, v)
	case kindArray:
		for _, e := range v.([]any) {
			if err := ValidateValue(e); err != nil {
				return err
			}
		}
	case kindObject:
		m, _ := asMap(v)
		for _, e := range m {
			if err := ValidateValue(e); err != nil {
				return err
			}
		}
	}
	return nil
}
