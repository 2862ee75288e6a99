// Package eval computes values from expression ASTs: pattern dispatch on
// node variant, truthiness-driven short-circuit logic, and operator
// semantics per variant pairing rather than coercion-at-a-distance.
package eval

import (
	"strings"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/filter"
	"github.com/aledsdavies/liquidcore/internal/invariant"
	"github.com/aledsdavies/liquidcore/lqerr"
	"github.com/aledsdavies/liquidcore/value"
)

// DefaultMaxDepth bounds expression recursion when an Evaluator's MaxDepth
// is zero.
const DefaultMaxDepth = 200

// Scope resolves a variable's head identifier against a render context's
// scope stack, innermost binding first. render.Context implements this;
// eval does not import render to avoid a cycle.
type Scope interface {
	Lookup(name string) (value.Value, bool)
}

// Evaluator computes Values from expression ASTs. It is not safe for
// concurrent use — a render owns exactly one Evaluator, matching the
// context's single-owner lifecycle.
type Evaluator struct {
	Filters *filter.Registry

	// Strict makes a missing variable head raise UndefinedVariable instead
	// of resolving to Nil. Property and index misses always resolve to Nil
	// regardless of this flag.
	Strict bool

	// MaxDepth bounds expression nesting depth. Zero uses DefaultMaxDepth.
	MaxDepth int

	depth int
}

// Eval computes expr's value against scope.
func (e *Evaluator) Eval(expr ast.Expr, scope Scope) (value.Value, error) {
	leave, err := e.enter(expr.Pos())
	if err != nil {
		return nil, err
	}
	defer leave()

	switch n := expr.(type) {
	case *ast.Literal:
		return literalValue(n), nil
	case *ast.Variable:
		return e.evalVariable(n, scope)
	case *ast.Binary:
		return e.evalBinary(n, scope)
	case *ast.Logical:
		return e.evalLogical(n, scope)
	case *ast.Unary:
		return e.evalUnary(n, scope)
	case *ast.Call:
		return e.evalCall(n, scope)
	default:
		invariant.Invariant(false, "unhandled expression node %T", expr)
		return value.Nil{}, nil
	}
}

func (e *Evaluator) enter(pos ast.Position) (func(), error) {
	max := e.MaxDepth
	if max == 0 {
		max = DefaultMaxDepth
	}
	e.depth++
	if e.depth > max {
		e.depth--
		return nil, &lqerr.DepthExceeded{Max: max, Pos: toPos(pos)}
	}
	return func() { e.depth-- }, nil
}

func toPos(p ast.Position) lqerr.Position {
	return lqerr.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

func literalValue(n *ast.Literal) value.Value {
	switch n.Kind {
	case ast.LiteralNil:
		return value.Nil{}
	case ast.LiteralBool:
		return value.Bool(n.Bool)
	case ast.LiteralInt:
		return value.Int(n.Int)
	case ast.LiteralFloat:
		return value.Float(n.Float)
	case ast.LiteralString:
		return value.String(n.Str)
	default:
		invariant.Invariant(false, "unhandled literal kind %d", n.Kind)
		return value.Nil{}
	}
}

func (e *Evaluator) evalVariable(n *ast.Variable, scope Scope) (value.Value, error) {
	head, ok := scope.Lookup(n.Head)
	if !ok {
		if e.Strict {
			return nil, &lqerr.UndefinedVariable{Name: n.Head, Pos: toPos(n.Position)}
		}
		head = value.Nil{}
	}

	cur := head
	for _, seg := range n.Segments {
		switch seg.Kind {
		case ast.SegmentProperty:
			cur = propertyAccess(cur, seg.Name)
		case ast.SegmentIndex:
			idx, err := e.Eval(seg.Expr, scope)
			if err != nil {
				return nil, err
			}
			cur = indexAccess(cur, idx)
		default:
			invariant.Invariant(false, "unhandled path segment kind %d", seg.Kind)
		}
	}
	return cur, nil
}

func propertyAccess(v value.Value, name string) value.Value {
	m, ok := v.(*value.Map)
	if !ok {
		return value.Nil{}
	}
	val, ok := m.Get(name)
	if !ok {
		return value.Nil{}
	}
	return val
}

func indexAccess(v value.Value, idx value.Value) value.Value {
	switch coll := v.(type) {
	case value.List:
		i, ok := idx.(value.Int)
		if !ok || i < 0 || int(i) >= len(coll) {
			return value.Nil{}
		}
		return coll[i]
	case *value.Map:
		key, ok := idx.(value.String)
		if !ok {
			return value.Nil{}
		}
		val, ok := coll.Get(string(key))
		if !ok {
			return value.Nil{}
		}
		return val
	default:
		return value.Nil{}
	}
}

func (e *Evaluator) evalUnary(n *ast.Unary, scope Scope) (value.Value, error) {
	v, err := e.Eval(n.Operand, scope)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpNot:
		return value.Bool(!value.Truthy(v)), nil
	default:
		invariant.Invariant(false, "unhandled unary op %d", n.Op)
		return value.Nil{}, nil
	}
}

func (e *Evaluator) evalLogical(n *ast.Logical, scope Scope) (value.Value, error) {
	left, err := e.Eval(n.Left, scope)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpAnd:
		if !value.Truthy(left) {
			return value.Bool(false), nil
		}
		right, err := e.Eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		return value.Bool(value.Truthy(right)), nil
	case ast.OpOr:
		if value.Truthy(left) {
			return value.Bool(true), nil
		}
		right, err := e.Eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		return value.Bool(value.Truthy(right)), nil
	default:
		invariant.Invariant(false, "unhandled logical op %d", n.Op)
		return value.Nil{}, nil
	}
}

func (e *Evaluator) evalBinary(n *ast.Binary, scope Scope) (value.Value, error) {
	left, err := e.Eval(n.Left, scope)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Right, scope)
	if err != nil {
		return nil, err
	}
	pos := toPos(n.Position)

	switch n.Op {
	case ast.OpAdd:
		return evalAdd(left, right, pos)
	case ast.OpSub:
		return numericOp(left, right, pos, "-",
			func(a, b int64) int64 { return a - b },
			func(a, b float64) float64 { return a - b })
	case ast.OpMul:
		return numericOp(left, right, pos, "*",
			func(a, b int64) int64 { return a * b },
			func(a, b float64) float64 { return a * b })
	case ast.OpDiv:
		return evalDiv(left, right, pos)
	case ast.OpMod:
		return evalMod(left, right, pos)
	case ast.OpEq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.OpNe:
		return value.Bool(!value.Equal(left, right)), nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return evalCompare(n.Op, left, right, pos)
	default:
		invariant.Invariant(false, "unhandled binary op %d", n.Op)
		return value.Nil{}, nil
	}
}

// asNumber reports whether v is Int or Float, returning its value widened
// to float64 either way; the caller decides whether both operands being Int
// keeps the result an Int.
func asNumber(v value.Value) (f float64, ok bool) {
	switch t := v.(type) {
	case value.Int:
		return float64(t), true
	case value.Float:
		return float64(t), true
	default:
		return 0, false
	}
}

func numericOp(left, right value.Value, pos lqerr.Position, opName string,
	intFn func(a, b int64) int64, floatFn func(a, b float64) float64,
) (value.Value, error) {
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return nil, &lqerr.TypeError{Op: opName, Pos: pos}
	}
	li, lIsInt := left.(value.Int)
	ri, rIsInt := right.(value.Int)
	if lIsInt && rIsInt {
		return value.Int(intFn(int64(li), int64(ri))), nil
	}
	return value.Float(floatFn(lf, rf)), nil
}

// evalAdd implements "+"'s three-tier rule: Nil on either side makes the
// whole result the other side stringified; otherwise a string on either
// side means concatenation; otherwise plain numeric addition.
func evalAdd(left, right value.Value, pos lqerr.Position) (value.Value, error) {
	_, leftNil := left.(value.Nil)
	_, rightNil := right.(value.Nil)
	if leftNil || rightNil {
		switch {
		case leftNil && rightNil:
			return value.String(""), nil
		case leftNil:
			return value.String(value.Format(right)), nil
		default:
			return value.String(value.Format(left)), nil
		}
	}

	_, leftStr := left.(value.String)
	_, rightStr := right.(value.String)
	if leftStr || rightStr {
		return value.String(value.Format(left) + value.Format(right)), nil
	}

	return numericOp(left, right, pos, "+",
		func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

func evalDiv(left, right value.Value, pos lqerr.Position) (value.Value, error) {
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return nil, &lqerr.TypeError{Op: "/", Pos: pos}
	}
	if rf == 0 {
		return nil, &lqerr.DivisionByZero{Pos: pos}
	}
	return value.Float(lf / rf), nil
}

func evalMod(left, right value.Value, pos lqerr.Position) (value.Value, error) {
	li, lok := left.(value.Int)
	ri, rok := right.(value.Int)
	if !lok || !rok {
		return nil, &lqerr.TypeError{Op: "%", Pos: pos}
	}
	if ri == 0 {
		return nil, &lqerr.ModuloByZero{Pos: pos}
	}
	return value.Int(int64(li) % int64(ri)), nil
}

func evalCompare(op ast.BinaryOp, left, right value.Value, pos lqerr.Position) (value.Value, error) {
	ls, lIsStr := left.(value.String)
	rs, rIsStr := right.(value.String)
	if lIsStr && rIsStr {
		return value.Bool(orderHolds(op, strings.Compare(string(ls), string(rs)))), nil
	}

	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if lok && rok {
		return value.Bool(orderHolds(op, compareFloat(lf, rf))), nil
	}

	return nil, &lqerr.TypeError{Op: binOpSymbol(op), Pos: pos}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderHolds(op ast.BinaryOp, cmp int) bool {
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpLe:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGe:
		return cmp >= 0
	default:
		invariant.Invariant(false, "orderHolds called with non-relational op %d", op)
		return false
	}
}

func binOpSymbol(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpMod:
		return "%"
	case ast.OpEq:
		return "=="
	case ast.OpNe:
		return "!="
	case ast.OpLt:
		return "<"
	case ast.OpLe:
		return "<="
	case ast.OpGt:
		return ">"
	case ast.OpGe:
		return ">="
	default:
		return "?"
	}
}

func (e *Evaluator) evalCall(n *ast.Call, scope Scope) (value.Value, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(a, scope)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	pos := toPos(n.Position)
	fn, err := e.Filters.Lookup(n.Name, pos)
	if err != nil {
		return nil, err
	}
	result, err := fn(args)
	if err != nil {
		return nil, &lqerr.FilterError{Name: n.Name, Detail: err.Error(), Pos: pos}
	}
	return result, nil
}
