// Package liquidcore compiles and renders Liquid-style templates: an
// embedded expression language with property/index access, a filter
// pipeline, and if/for control tags, evaluated against a caller-supplied
// data context.
//
// The package wires three independently-testable stages — parser,
// structurer, evaluator/renderer — behind two entry points, Compile and
// Render, matching the core's external interface contract.
package liquidcore

import (
	"log/slog"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/eval"
	"github.com/aledsdavies/liquidcore/filter"
	"github.com/aledsdavies/liquidcore/parser"
	"github.com/aledsdavies/liquidcore/render"
	"github.com/aledsdavies/liquidcore/structurer"
	"github.com/aledsdavies/liquidcore/value"
)

// CompileOptions configures a Compile call.
type CompileOptions struct {
	// MaxSourceSize caps the input length in bytes. Zero uses
	// parser.DefaultMaxSourceSize.
	MaxSourceSize int

	// MaxDepth caps expression and block nesting depth during parsing.
	// Zero uses parser.DefaultMaxDepth.
	MaxDepth int

	// Logger, when non-nil, receives debug-level parse tracing.
	Logger *slog.Logger
}

// RenderOptions configures a Render call.
type RenderOptions struct {
	// Filters is the filter registry Call expressions resolve against. A
	// nil Filters is treated as an empty registry — every filter call then
	// fails with lqerr.UnknownFilter rather than panicking.
	Filters *filter.Registry

	// Strict raises lqerr.UndefinedVariable for an unresolvable variable
	// head instead of substituting Nil. Off by default (lenient mode).
	Strict bool

	// PreserveTypes, when the template is exactly one top-level
	// Interpolation with no surrounding text or tags, returns the raw
	// evaluated Value instead of a formatted string. Any other template
	// shape ignores this flag and returns a string.
	PreserveTypes bool

	// MaxLoopIterations bounds total loop iterations across the render,
	// shared across nested loops. Zero uses render.DefaultMaxLoopIterations.
	MaxLoopIterations int

	// MaxDepth caps expression recursion depth during evaluation. Zero
	// uses eval.DefaultMaxDepth.
	MaxDepth int
}

// Compile parses and structures source, returning an immutable Template
// safe to Render concurrently from multiple goroutines (each with its own
// context).
func Compile(source string, opts CompileOptions) (*ast.Template, error) {
	flat, err := parser.Parse(source, parser.Options{
		MaxSourceSize: opts.MaxSourceSize,
		MaxDepth:      opts.MaxDepth,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	nodes, err := structurer.Structure(flat)
	if err != nil {
		return nil, err
	}

	return &ast.Template{Nodes: nodes}, nil
}

// Render evaluates tmpl against ctx. The return value is a string unless
// opts.PreserveTypes applies to a single-interpolation template, in which
// case it is the raw value.Value the interpolation evaluated to.
func Render(tmpl *ast.Template, ctx map[string]value.Value, opts RenderOptions) (any, error) {
	filters := opts.Filters
	if filters == nil {
		filters = filter.NewRegistry()
	}

	evaluator := &eval.Evaluator{
		Filters:  filters,
		Strict:   opts.Strict,
		MaxDepth: opts.MaxDepth,
	}
	renderCtx := render.NewContext(ctx, opts.MaxLoopIterations)

	if opts.PreserveTypes {
		if interp, ok := singleInterpolation(tmpl.Nodes); ok {
			return evaluator.Eval(interp.Expr, renderCtx)
		}
	}

	renderer := &render.Renderer{Eval: evaluator}
	return renderer.Render(tmpl.Nodes, renderCtx)
}

// singleInterpolation reports whether nodes is exactly one Interpolation
// node and nothing else — the shape preserve_types requires to bypass
// string formatting.
func singleInterpolation(nodes []ast.Node) (*ast.Interpolation, bool) {
	if len(nodes) != 1 {
		return nil, false
	}
	interp, ok := nodes[0].(*ast.Interpolation)
	return interp, ok
}
