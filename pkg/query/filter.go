// Package query implements filter predicates, sort specifications,
// projections and the evaluator that runs query descriptors against a
// core.Store.
//
// Filters are built programmatically:
//
//	f := query.And(query.Eq("in_stock", true), query.Gt("published_year", 2010))
package query

import (
	"github.com/sanonone/shelfdb/pkg/core"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
)

// Filter is a predicate over documents.
type Filter interface {
	Match(doc core.Document) bool
}

// FieldFilter compares one field against a value.
type FieldFilter struct {
	Field    string
	Operator Operator
	Value    any
}

// Match implements Filter.
//
// Equality against nil matches a null or missing field. Range operators only
// match when the field is present and holds a value of the same type class as
// the operand.
func (f *FieldFilter) Match(doc core.Document) bool {
	actual, ok := doc.Lookup(f.Field)

	switch f.Operator {
	case OpEq:
		return equalsField(actual, ok, f.Value)
	case OpNe:
		return !equalsField(actual, ok, f.Value)
	}

	if !ok || !core.SameKind(actual, f.Value) {
		return false
	}
	c := core.CompareValues(actual, f.Value)
	switch f.Operator {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

func equalsField(actual any, present bool, want any) bool {
	if !present {
		return want == nil
	}
	return core.Equal(actual, want)
}

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter {
	return &FieldFilter{Field: field, Operator: OpEq, Value: value}
}

// Ne matches documents whose field does not equal value.
func Ne(field string, value any) Filter {
	return &FieldFilter{Field: field, Operator: OpNe, Value: value}
}

func Gt(field string, value any) Filter {
	return &FieldFilter{Field: field, Operator: OpGt, Value: value}
}

func Gte(field string, value any) Filter {
	return &FieldFilter{Field: field, Operator: OpGte, Value: value}
}

func Lt(field string, value any) Filter {
	return &FieldFilter{Field: field, Operator: OpLt, Value: value}
}

func Lte(field string, value any) Filter {
	return &FieldFilter{Field: field, Operator: OpLte, Value: value}
}

// InFilter matches when the field equals any of the values.
type InFilter struct {
	Field  string
	Values []any
}

func (f *InFilter) Match(doc core.Document) bool {
	actual, ok := doc.Lookup(f.Field)
	for _, v := range f.Values {
		if equalsField(actual, ok, v) {
			return true
		}
	}
	return false
}

// In matches documents whose field equals one of values.
func In(field string, values ...any) Filter {
	return &InFilter{Field: field, Values: values}
}

// ExistsFilter matches on field presence.
type ExistsFilter struct {
	Field  string
	Exists bool
}

func (f *ExistsFilter) Match(doc core.Document) bool {
	_, ok := doc.Lookup(f.Field)
	return ok == f.Exists
}

// Exists matches documents that have (or, with false, lack) the field.
func Exists(field string, exists bool) Filter {
	return &ExistsFilter{Field: field, Exists: exists}
}

// AndFilter is a conjunction. An empty conjunction matches everything.
type AndFilter struct {
	Children []Filter
}

func (f *AndFilter) Match(doc core.Document) bool {
	for _, child := range f.Children {
		if !child.Match(doc) {
			return false
		}
	}
	return true
}

// OrFilter is a disjunction. An empty disjunction matches nothing.
type OrFilter struct {
	Children []Filter
}

func (f *OrFilter) Match(doc core.Document) bool {
	for _, child := range f.Children {
		if child.Match(doc) {
			return true
		}
	}
	return false
}

// NotFilter negates its child.
type NotFilter struct {
	Child Filter
}

func (f *NotFilter) Match(doc core.Document) bool {
	return !f.Child.Match(doc)
}

// And combines filters with logical AND. Nested conjunctions are flattened
// and nil filters are dropped.
func And(filters ...Filter) Filter {
	out := &AndFilter{}
	for _, f := range filters {
		switch t := f.(type) {
		case nil:
		case *AndFilter:
			out.Children = append(out.Children, t.Children...)
		default:
			out.Children = append(out.Children, f)
		}
	}
	return out
}

// Or combines filters with logical OR. Nil filters are dropped.
func Or(filters ...Filter) Filter {
	out := &OrFilter{}
	for _, f := range filters {
		if f != nil {
			out.Children = append(out.Children, f)
		}
	}
	return out
}

// Not negates a filter.
func Not(f Filter) Filter {
	if f == nil {
		f = All()
	}
	return &NotFilter{Child: f}
}

// All matches every document.
func All() Filter {
	return &AndFilter{}
}

// equalityTerms extracts the field = value terms of a top-level conjunction.
// Only these are considered for index selection; the full filter is always
// re-applied to the candidates.
func equalityTerms(f Filter) []core.EqualityTerm {
	switch t := f.(type) {
	case *FieldFilter:
		if t.Operator == OpEq {
			return []core.EqualityTerm{{Field: t.Field, Value: t.Value}}
		}
	case *AndFilter:
		var terms []core.EqualityTerm
		for _, child := range t.Children {
			terms = append(terms, equalityTerms(child)...)
		}
		return terms
	}
	return nil
}
