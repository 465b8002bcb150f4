package query

import (
	"fmt"
	"slices"

	"github.com/sanonone/shelfdb/pkg/core"
)

// SortKey is one (field, direction) pair of a sort specification.
type SortKey struct {
	Field     string
	Direction core.Direction
}

// Asc sorts by field in ascending order.
func Asc(field string) SortKey { return SortKey{Field: field, Direction: core.Ascending} }

// Desc sorts by field in descending order.
func Desc(field string) SortKey { return SortKey{Field: field, Direction: core.Descending} }

func validateSortKeys(keys []SortKey) error {
	for _, k := range keys {
		if k.Field == "" {
			return fmt.Errorf("%w: empty sort field", core.ErrInvalidArgument)
		}
		if k.Direction != core.Ascending && k.Direction != core.Descending {
			return fmt.Errorf("%w: sort field '%s' has direction %d", core.ErrInvalidArgument, k.Field, k.Direction)
		}
	}
	return nil
}

// CompareByKeys compares two documents lexicographically over keys, each
// field in natural type order. Missing fields compare as null.
func CompareByKeys(a, b core.Document, keys []SortKey) int {
	for _, k := range keys {
		c := core.CompareValues(a.Value(k.Field), b.Value(k.Field))
		if k.Direction == core.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// SortDocuments sorts docs in place. The sort is stable: documents with equal
// keys keep their incoming order.
func SortDocuments(docs []core.Document, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b core.Document) int {
		return CompareByKeys(a, b, keys)
	})
}
