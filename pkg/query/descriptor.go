package query

import (
	"fmt"
	"slices"

	"github.com/sanonone/shelfdb/pkg/core"
)

// Descriptor is an immutable read specification: filter, projection, sort,
// skip and limit. Builder methods return modified copies, so a Descriptor
// can be shared and reused freely.
//
//	d := query.Find(query.Eq("genre", "Fiction")).Sort(query.Desc("price")).Limit(5)
type Descriptor struct {
	filter     Filter
	projection *Projection
	sort       []SortKey
	skip       int
	limit      int
	err        error
}

// Find starts a descriptor with the given filter. A nil filter matches all
// documents.
func Find(filter Filter) Descriptor {
	return Descriptor{filter: filter}
}

// Sort replaces the sort specification.
func (d Descriptor) Sort(keys ...SortKey) Descriptor {
	d.sort = slices.Clone(keys)
	return d
}

// Skip sets how many matching documents are skipped after sorting.
func (d Descriptor) Skip(n int) Descriptor {
	d.sort = slices.Clone(d.sort)
	d.skip = n
	return d
}

// Limit caps the number of returned documents. Zero means no limit.
func (d Descriptor) Limit(n int) Descriptor {
	d.sort = slices.Clone(d.sort)
	d.limit = n
	return d
}

// Page sets skip and limit for a 1-based page of the given size.
func (d Descriptor) Page(page, size int) Descriptor {
	d.sort = slices.Clone(d.sort)
	if page < 1 || size < 1 {
		d.err = fmt.Errorf("%w: page %d of size %d", core.ErrInvalidArgument, page, size)
		return d
	}
	d.skip = (page - 1) * size
	d.limit = size
	return d
}

// Project sets the projection applied to every result.
func (d Descriptor) Project(p Projection) Descriptor {
	d.sort = slices.Clone(d.sort)
	d.projection = &p
	return d
}

// Filter returns the descriptor's filter (never nil).
func (d Descriptor) Filter() Filter {
	if d.filter == nil {
		return All()
	}
	return d.filter
}

// SortKeys returns a copy of the sort specification.
func (d Descriptor) SortKeys() []SortKey { return slices.Clone(d.sort) }

// SkipCount returns the skip count.
func (d Descriptor) SkipCount() int { return d.skip }

// LimitCount returns the limit, zero meaning unlimited.
func (d Descriptor) LimitCount() int { return d.limit }

// Validate reports malformed descriptors (negative skip or limit, bad sort
// keys or projection fields).
func (d Descriptor) Validate() error {
	if d.err != nil {
		return d.err
	}
	if d.skip < 0 {
		return fmt.Errorf("%w: negative skip %d", core.ErrInvalidArgument, d.skip)
	}
	if d.limit < 0 {
		return fmt.Errorf("%w: negative limit %d", core.ErrInvalidArgument, d.limit)
	}
	if err := validateSortKeys(d.sort); err != nil {
		return err
	}
	if d.projection != nil {
		return d.projection.validate()
	}
	return nil
}
