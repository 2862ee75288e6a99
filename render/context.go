// Package render walks a structured AST, evaluating interpolations and
// executing tag bodies against a mutable rendering context.
package render

import (
	"github.com/aledsdavies/liquidcore/internal/invariant"
	"github.com/aledsdavies/liquidcore/lqerr"
	"github.com/aledsdavies/liquidcore/value"
)

// DefaultMaxLoopIterations bounds the total number of loop iterations
// across a single render when a Context's configured maximum is zero.
const DefaultMaxLoopIterations = 1_000_000

// Context is the scope stack threaded through a single render: an explicit
// push/pop stack rather than an immutable snapshot, since assignment and
// loop iteration both need to mutate the innermost scope in place. Never
// shared across renders.
type Context struct {
	scopes            []map[string]value.Value
	loopIterations    int
	maxLoopIterations int
}

// NewContext returns a Context with root as its single, bottom scope.
// maxLoopIterations of zero uses DefaultMaxLoopIterations.
func NewContext(root map[string]value.Value, maxLoopIterations int) *Context {
	if root == nil {
		root = map[string]value.Value{}
	}
	return &Context{
		scopes:            []map[string]value.Value{root},
		maxLoopIterations: maxLoopIterations,
	}
}

// Push opens a new innermost scope, used on loop-iteration entry.
func (c *Context) Push(bindings map[string]value.Value) {
	c.scopes = append(c.scopes, bindings)
}

// Pop closes the innermost scope.
func (c *Context) Pop() {
	invariant.Precondition(len(c.scopes) > 1, "cannot pop the root scope")
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// Set binds name to v in the innermost scope, overwriting any existing
// binding of the same name in that scope (it does not touch outer scopes,
// even if they already bind name).
func (c *Context) Set(name string, v value.Value) {
	c.scopes[len(c.scopes)-1][name] = v
}

// Lookup resolves name against the scope stack, innermost first. This is
// the method eval.Scope requires.
func (c *Context) Lookup(name string) (value.Value, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// countIteration records one loop iteration against the shared ceiling,
// returning LoopLimitExceeded once it is crossed.
func (c *Context) countIteration() error {
	max := c.maxLoopIterations
	if max == 0 {
		max = DefaultMaxLoopIterations
	}
	c.loopIterations++
	if c.loopIterations > max {
		return &lqerr.LoopLimitExceeded{Max: max}
	}
	return nil
}
