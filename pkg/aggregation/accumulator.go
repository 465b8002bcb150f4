package aggregation

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sanonone/shelfdb/pkg/core"
)

type accKind int

const (
	accCount accKind = iota
	accSum
	accAvg
	accPush
	accMin
	accMax
)

// Accumulator is a per-bucket aggregate written to the output field Name.
type Accumulator struct {
	Name string
	kind accKind
	expr Expr
}

// Count counts the documents of the bucket.
func Count(name string) Accumulator {
	return Accumulator{Name: name, kind: accCount}
}

// Sum adds the numeric values of expr. Non-numeric values are ignored and an
// empty sum is 0.
func Sum(name string, expr Expr) Accumulator {
	return Accumulator{Name: name, kind: accSum, expr: expr}
}

// Avg averages the numeric values of expr, ignoring documents where it is
// missing or non-numeric. A bucket with no numeric value fails with
// core.ErrEmptyAccumulator.
func Avg(name string, expr Expr) Accumulator {
	return Accumulator{Name: name, kind: accAvg, expr: expr}
}

// Push collects the values of expr in input order, skipping nulls.
func Push(name string, expr Expr) Accumulator {
	return Accumulator{Name: name, kind: accPush, expr: expr}
}

// Min keeps the smallest non-null value in natural type order.
func Min(name string, expr Expr) Accumulator {
	return Accumulator{Name: name, kind: accMin, expr: expr}
}

// Max keeps the largest non-null value in natural type order.
func Max(name string, expr Expr) Accumulator {
	return Accumulator{Name: name, kind: accMax, expr: expr}
}

func (a Accumulator) validate() error {
	if a.Name == "" || a.Name == core.IDField {
		return fmt.Errorf("%w: accumulator name '%s'", core.ErrInvalidArgument, a.Name)
	}
	if a.kind != accCount && a.expr == nil {
		return fmt.Errorf("%w: accumulator '%s' has no expression", core.ErrInvalidArgument, a.Name)
	}
	return nil
}

// accState is the running state of one accumulator in one bucket.
type accState struct {
	acc    Accumulator
	count  int
	nums   []float64
	values []any
	best   any
}

func (s *accState) add(doc core.Document) error {
	if s.acc.kind == accCount {
		s.count++
		return nil
	}

	v, err := s.acc.expr.Eval(doc)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}

	switch s.acc.kind {
	case accSum, accAvg:
		if f, ok := core.ToFloat(v); ok {
			s.nums = append(s.nums, f)
		}
	case accPush:
		s.values = append(s.values, core.CloneValue(v))
	case accMin:
		if s.best == nil || core.CompareValues(v, s.best) < 0 {
			s.best = v
		}
	case accMax:
		if s.best == nil || core.CompareValues(v, s.best) > 0 {
			s.best = v
		}
	}
	return nil
}

func (s *accState) result() (any, error) {
	switch s.acc.kind {
	case accCount:
		return s.count, nil
	case accSum:
		return floats.Sum(s.nums), nil
	case accAvg:
		if len(s.nums) == 0 {
			return nil, fmt.Errorf("%w: '%s' has no numeric values", core.ErrEmptyAccumulator, s.acc.Name)
		}
		return stat.Mean(s.nums, nil), nil
	case accPush:
		if s.values == nil {
			return []any{}, nil
		}
		return s.values, nil
	default:
		return core.CloneValue(s.best), nil
	}
}
