package render

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/eval"
	"github.com/aledsdavies/liquidcore/internal/invariant"
	"github.com/aledsdavies/liquidcore/lqerr"
	"github.com/aledsdavies/liquidcore/value"
)

// Renderer walks a structured node list, accumulating output and threading
// a Context through interpolations, assignments, conditionals and loops.
type Renderer struct {
	Eval *eval.Evaluator
}

// Render writes nodes to a string, evaluating against ctx.
func (r *Renderer) Render(nodes []ast.Node, ctx *Context) (string, error) {
	var sb strings.Builder
	if err := r.renderNodes(nodes, ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Renderer) renderNodes(nodes []ast.Node, ctx *Context, sb *strings.Builder) error {
	for _, n := range nodes {
		if err := r.renderNode(n, ctx, sb); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderNode(n ast.Node, ctx *Context, sb *strings.Builder) error {
	switch t := n.(type) {
	case *ast.Text:
		sb.WriteString(t.Value)
		return nil

	case *ast.Comment:
		return nil

	case *ast.Interpolation:
		v, err := r.Eval.Eval(t.Expr, ctx)
		if err != nil {
			return err
		}
		sb.WriteString(value.Format(v))
		return nil

	case *ast.Tag:
		invariant.Invariant(t.Kind == ast.TagAssign, "renderer received a raw control tag (kind %d) — block structuring should have absorbed it", t.Kind)
		v, err := r.Eval.Eval(t.Value, ctx)
		if err != nil {
			return err
		}
		ctx.Set(t.Name, v)
		return nil

	case *ast.Conditional:
		return r.renderConditional(t, ctx, sb)

	case *ast.Loop:
		return r.renderLoop(t, ctx, sb)

	default:
		invariant.Invariant(false, "unhandled template node %T", n)
		return nil
	}
}

// renderConditional evaluates the if-branch, then each elsif in order,
// rendering the first truthy one; if none is truthy, it renders the else
// body (if present). At most one branch runs.
func (r *Renderer) renderConditional(c *ast.Conditional, ctx *Context, sb *strings.Builder) error {
	branches := make([]ast.Branch, 0, 1+len(c.Elsif))
	branches = append(branches, c.If)
	branches = append(branches, c.Elsif...)

	for _, b := range branches {
		v, err := r.Eval.Eval(b.Cond, ctx)
		if err != nil {
			return err
		}
		if value.Truthy(v) {
			return r.renderNodes(b.Body, ctx, sb)
		}
	}
	if c.Else != nil {
		return r.renderNodes(c.Else.Body, ctx, sb)
	}
	return nil
}

// renderLoop coerces the collection expression to an iterable sequence,
// then for each element pushes a scope holding the loop variable and a
// synthesised forloop record before rendering the body.
func (r *Renderer) renderLoop(l *ast.Loop, ctx *Context, sb *strings.Builder) error {
	collVal, err := r.Eval.Eval(l.Coll, ctx)
	if err != nil {
		return err
	}

	pos := lqerr.Position{Line: l.Position.Line, Column: l.Position.Column, Offset: l.Position.Offset}
	items, err := coerceIterable(collVal, pos)
	if err != nil {
		return err
	}

	parent, ok := ctx.Lookup("forloop")
	if !ok {
		parent = value.Nil{}
	}

	n := len(items)
	for i, item := range items {
		if err := ctx.countIteration(); err != nil {
			return err
		}
		ctx.Push(map[string]value.Value{
			l.Var:     item,
			"forloop": newForloopRecord(i, n, parent),
		})
		err := r.renderNodes(l.Body, ctx, sb)
		ctx.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func newForloopRecord(index, length int, parent value.Value) *value.Map {
	m := value.NewMap()
	m.Set("index", value.Int(index))
	m.Set("rindex", value.Int(length-index-1))
	m.Set("first", value.Bool(index == 0))
	m.Set("last", value.Bool(index == length-1))
	m.Set("length", value.Int(length))
	m.Set("parentloop", parent)
	return m
}

// coerceIterable turns v into the sequence a for loop iterates: a list
// iterates itself, a map iterates [key, value] pairs in insertion order, a
// string iterates one element per rune (the simplest "grapheme" unit
// representable without an external segmentation library), and Nil
// iterates zero times. Anything else is not iterable.
func coerceIterable(v value.Value, pos lqerr.Position) ([]value.Value, error) {
	switch t := v.(type) {
	case value.List:
		return []value.Value(t), nil
	case *value.Map:
		pairs := t.Pairs()
		items := make([]value.Value, len(pairs))
		for i, p := range pairs {
			items[i] = value.List{p[0], p[1]}
		}
		return items, nil
	case value.String:
		runes := []rune(string(t))
		items := make([]value.Value, len(runes))
		for i, rn := range runes {
			items[i] = value.String(string(rn))
		}
		return items, nil
	case value.Nil:
		return nil, nil
	default:
		return nil, &lqerr.NotIterable{Kind: kindName(v), Pos: pos}
	}
}

func kindName(v value.Value) string {
	switch v.(type) {
	case value.Nil:
		return "nil"
	case value.Bool:
		return "bool"
	case value.Int:
		return "integer"
	case value.Float:
		return "float"
	case value.String:
		return "string"
	case value.List:
		return "list"
	case *value.Map:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
