package aggregation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sanonone/shelfdb/pkg/core"
)

// Expr computes a value from a document. Group keys, accumulator inputs and
// computed fields are all expressions.
//
// Null propagates: an arithmetic or string operator with a null (or missing)
// operand yields null.
type Expr interface {
	Eval(doc core.Document) (any, error)
}

// Field references a (possibly dotted) field path. A leading "$" is accepted
// and ignored, so Field("$genre") and Field("genre") are the same.
func Field(path string) Expr {
	return fieldExpr(strings.TrimPrefix(path, "$"))
}

type fieldExpr string

func (f fieldExpr) Eval(doc core.Document) (any, error) {
	return doc.Value(string(f)), nil
}

// Literal is a constant.
func Literal(v any) Expr {
	return literalExpr{v}
}

type literalExpr struct{ v any }

func (l literalExpr) Eval(core.Document) (any, error) {
	return l.v, nil
}

type arithOp int

const (
	opAdd arithOp = iota
	opSubtract
	opMultiply
	opDivide
)

func (op arithOp) String() string {
	switch op {
	case opAdd:
		return "add"
	case opSubtract:
		return "subtract"
	case opMultiply:
		return "multiply"
	default:
		return "divide"
	}
}

type arithExpr struct {
	op   arithOp
	args []Expr
}

// Add sums its operands.
func Add(args ...Expr) Expr { return &arithExpr{op: opAdd, args: args} }

// Multiply multiplies its operands.
func Multiply(args ...Expr) Expr { return &arithExpr{op: opMultiply, args: args} }

// Subtract computes a - b.
func Subtract(a, b Expr) Expr { return &arithExpr{op: opSubtract, args: []Expr{a, b}} }

// Divide computes a / b. Dividing by zero is an invalid argument.
func Divide(a, b Expr) Expr { return &arithExpr{op: opDivide, args: []Expr{a, b}} }

func (e *arithExpr) Eval(doc core.Document) (any, error) {
	if len(e.args) == 0 {
		return nil, fmt.Errorf("%w: %s needs operands", core.ErrInvalidArgument, e.op)
	}

	vals := make([]float64, len(e.args))
	for i, arg := range e.args {
		v, err := arg.Eval(doc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		f, ok := core.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s only supports numbers, got %T", core.ErrInvalidArgument, e.op, v)
		}
		vals[i] = f
	}

	acc := vals[0]
	for _, v := range vals[1:] {
		switch e.op {
		case opAdd:
			acc += v
		case opSubtract:
			acc -= v
		case opMultiply:
			acc *= v
		case opDivide:
			if v == 0 {
				return nil, fmt.Errorf("%w: division by zero", core.ErrInvalidArgument)
			}
			acc /= v
		}
	}
	return acc, nil
}

// Floor rounds a number down.
func Floor(arg Expr) Expr { return floorExpr{arg} }

type floorExpr struct{ arg Expr }

func (e floorExpr) Eval(doc core.Document) (any, error) {
	v, err := e.arg.Eval(doc)
	if err != nil || v == nil {
		return nil, err
	}
	f, ok := core.ToFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: floor only supports numbers, got %T", core.ErrInvalidArgument, v)
	}
	return math.Floor(f), nil
}

// ToString converts a number, string or boolean to its string form.
// Integral numbers render without a fractional part ("1950").
func ToString(arg Expr) Expr { return toStringExpr{arg} }

type toStringExpr struct{ arg Expr }

func (e toStringExpr) Eval(doc core.Document) (any, error) {
	v, err := e.arg.Eval(doc)
	if err != nil || v == nil {
		return nil, err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	if f, ok := core.ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T to string", core.ErrInvalidArgument, v)
}

// Concat joins string operands.
func Concat(args ...Expr) Expr { return concatExpr(args) }

type concatExpr []Expr

func (e concatExpr) Eval(doc core.Document) (any, error) {
	var sb strings.Builder
	for _, arg := range e {
		v, err := arg.Eval(doc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: concat only supports strings, got %T", core.ErrInvalidArgument, v)
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}
