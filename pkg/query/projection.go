package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sanonone/shelfdb/pkg/core"
)

// Projection restricts the fields of result documents.
//
// An inclusion projection keeps the listed fields plus _id; an exclusion
// projection drops the listed fields. ExcludeID removes _id in either mode.
type Projection struct {
	fields    []string
	exclude   bool
	excludeID bool
}

// Include keeps only the given fields (and _id).
func Include(fields ...string) Projection {
	return Projection{fields: slices.Clone(fields)}
}

// Exclude drops the given fields.
func Exclude(fields ...string) Projection {
	return Projection{fields: slices.Clone(fields), exclude: true}
}

// ExcludeID returns a copy of the projection that also drops _id.
func (p Projection) ExcludeID() Projection {
	p.fields = slices.Clone(p.fields)
	p.excludeID = true
	return p
}

// Fields returns the projected field paths.
func (p Projection) Fields() []string { return slices.Clone(p.fields) }

func (p Projection) validate() error {
	for _, f := range p.fields {
		if f == "" {
			return fmt.Errorf("%w: empty projection field", core.ErrInvalidArgument)
		}
	}
	return nil
}

// Apply builds the projected copy of doc. doc itself is not modified.
func (p Projection) Apply(doc core.Document) core.Document {
	var out core.Document
	if p.exclude {
		out = doc.Clone()
		for _, path := range p.fields {
			deletePath(out, path)
		}
	} else {
		out = make(core.Document, len(p.fields)+1)
		if id, ok := doc[core.IDField]; ok {
			out[core.IDField] = core.CloneValue(id)
		}
		for _, path := range p.fields {
			if v, ok := doc.Lookup(path); ok {
				setPath(out, path, core.CloneValue(v))
			}
		}
	}
	if p.excludeID {
		delete(out, core.IDField)
	}
	return out
}

// setPath writes v at a dotted path, creating intermediate mappings.
func setPath(doc core.Document, path string, v any) {
	parts := strings.Split(path, ".")
	cur := map[string]any(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// deletePath removes a dotted path. doc must own its nested mappings.
func deletePath(doc core.Document, path string) {
	parts := strings.Split(path, ".")
	cur := map[string]any(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}
