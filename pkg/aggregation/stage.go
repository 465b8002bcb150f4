package aggregation

import (
	"fmt"
	"slices"

	"github.com/sanonone/shelfdb/pkg/core"
	"github.com/sanonone/shelfdb/pkg/query"
)

// Stage is one transformation step of a pipeline.
type Stage interface {
	// Name identifies the stage kind ("group", "sort", ...).
	Name() string

	validate() error
	apply(in []core.Document) ([]core.Document, error)
}

// --- match ---

type matchStage struct{ filter query.Filter }

// Match keeps the documents matching filter. As the first stage of a
// pipeline run through the engine it is evaluated with index support.
func Match(filter query.Filter) Stage { return &matchStage{filter: filter} }

func (s *matchStage) Name() string { return "match" }

func (s *matchStage) validate() error {
	if s.filter == nil {
		return fmt.Errorf("%w: match needs a filter", core.ErrInvalidArgument)
	}
	return nil
}

func (s *matchStage) apply(in []core.Document) ([]core.Document, error) {
	out := make([]core.Document, 0, len(in))
	for _, doc := range in {
		if s.filter.Match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// --- group ---

type groupStage struct {
	key  Expr
	accs []Accumulator
}

// Group partitions documents by the value of key and produces one record per
// bucket: {"_id": key, <accumulator name>: value, ...}. Buckets are emitted
// in order of first appearance.
func Group(key Expr, accs ...Accumulator) Stage {
	return &groupStage{key: key, accs: slices.Clone(accs)}
}

func (s *groupStage) Name() string { return "group" }

func (s *groupStage) validate() error {
	if s.key == nil {
		return fmt.Errorf("%w: group needs a key expression", core.ErrInvalidArgument)
	}
	if f, ok := s.key.(fieldExpr); ok && f == "" {
		return fmt.Errorf("%w: empty group key field", core.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(s.accs))
	for _, a := range s.accs {
		if err := a.validate(); err != nil {
			return err
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: duplicate accumulator '%s'", core.ErrInvalidArgument, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}

type bucket struct {
	key    any
	states []*accState
}

func (s *groupStage) apply(in []core.Document) ([]core.Document, error) {
	buckets := make(map[string]*bucket)
	var order []*bucket

	for _, doc := range in {
		key, err := s.key.Eval(doc)
		if err != nil {
			return nil, fmt.Errorf("group key: %w", err)
		}
		ck := core.CanonicalKey(key)
		b, ok := buckets[ck]
		if !ok {
			b = &bucket{key: core.CloneValue(key), states: make([]*accState, len(s.accs))}
			for i, a := range s.accs {
				b.states[i] = &accState{acc: a}
			}
			buckets[ck] = b
			order = append(order, b)
		}
		for _, st := range b.states {
			if err := st.add(doc); err != nil {
				return nil, fmt.Errorf("accumulator '%s': %w", st.acc.Name, err)
			}
		}
	}

	out := make([]core.Document, 0, len(order))
	for _, b := range order {
		rec := core.Document{core.IDField: b.key}
		for _, st := range b.states {
			v, err := st.result()
			if err != nil {
				return nil, err
			}
			rec[st.acc.Name] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// --- sort ---

type sortStage struct{ keys []query.SortKey }

// Sort orders records with the same semantics as query sorting (stable,
// natural type order, missing as null).
func Sort(keys ...query.SortKey) Stage { return &sortStage{keys: slices.Clone(keys)} }

func (s *sortStage) Name() string { return "sort" }

func (s *sortStage) validate() error {
	if len(s.keys) == 0 {
		return fmt.Errorf("%w: sort needs at least one key", core.ErrInvalidArgument)
	}
	return query.Find(nil).Sort(s.keys...).Validate()
}

func (s *sortStage) apply(in []core.Document) ([]core.Document, error) {
	out := slices.Clone(in)
	query.SortDocuments(out, s.keys)
	return out, nil
}

// --- limit / skip ---

type limitStage struct{ n int }

// Limit keeps the first n records.
func Limit(n int) Stage { return &limitStage{n: n} }

func (s *limitStage) Name() string { return "limit" }

func (s *limitStage) validate() error {
	if s.n < 0 {
		return fmt.Errorf("%w: negative limit %d", core.ErrInvalidArgument, s.n)
	}
	return nil
}

func (s *limitStage) apply(in []core.Document) ([]core.Document, error) {
	if s.n < len(in) {
		return in[:s.n], nil
	}
	return in, nil
}

type skipStage struct{ n int }

// Skip drops the first n records.
func Skip(n int) Stage { return &skipStage{n: n} }

func (s *skipStage) Name() string { return "skip" }

func (s *skipStage) validate() error {
	if s.n < 0 {
		return fmt.Errorf("%w: negative skip %d", core.ErrInvalidArgument, s.n)
	}
	return nil
}

func (s *skipStage) apply(in []core.Document) ([]core.Document, error) {
	if s.n >= len(in) {
		return in[:0], nil
	}
	return in[s.n:], nil
}

// --- project ---

type projectStage struct{ p query.Projection }

// Project applies a projection to every record.
func Project(p query.Projection) Stage { return &projectStage{p: p} }

func (s *projectStage) Name() string { return "project" }

func (s *projectStage) validate() error {
	return query.Find(nil).Project(s.p).Validate()
}

func (s *projectStage) apply(in []core.Document) ([]core.Document, error) {
	out := make([]core.Document, len(in))
	for i, doc := range in {
		out[i] = s.p.Apply(doc)
	}
	return out, nil
}

// --- addFields ---

type addFieldsStage struct {
	names []string
	exprs map[string]Expr
}

// AddFields computes new top-level fields. Every expression sees the
// incoming record, not fields added by the same stage.
func AddFields(fields map[string]Expr) Stage {
	s := &addFieldsStage{exprs: make(map[string]Expr, len(fields))}
	for name, e := range fields {
		s.names = append(s.names, name)
		s.exprs[name] = e
	}
	slices.Sort(s.names)
	return s
}

func (s *addFieldsStage) Name() string { return "addFields" }

func (s *addFieldsStage) validate() error {
	if len(s.names) == 0 {
		return fmt.Errorf("%w: addFields needs at least one field", core.ErrInvalidArgument)
	}
	for _, name := range s.names {
		if name == "" || s.exprs[name] == nil {
			return fmt.Errorf("%w: addFields field '%s'", core.ErrInvalidArgument, name)
		}
	}
	return nil
}

func (s *addFieldsStage) apply(in []core.Document) ([]core.Document, error) {
	out := make([]core.Document, len(in))
	for i, doc := range in {
		next := doc.Clone()
		for _, name := range s.names {
			v, err := s.exprs[name].Eval(doc)
			if err != nil {
				return nil, fmt.Errorf("field '%s': %w", name, err)
			}
			next[name] = v
		}
		out[i] = next
	}
	return out, nil
}
