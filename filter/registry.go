// Package filter defines the filter registry contract the evaluator calls
// through: a deterministic name-to-function lookup table, built once and
// read concurrently. liquidcore does not ship any concrete filters — only
// the contract; filter implementations are an external collaborator's
// concern.
package filter

import (
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aledsdavies/liquidcore/lqerr"
	"github.com/aledsdavies/liquidcore/value"
)

// Func is a filter or function implementation. args[0] is the pipeline
// subject for pipe-lowered calls ("x | f(a)" becomes Func([x, a])); for a
// direct function-call-form invocation ("f(x, a)") args is exactly the
// call's argument list in source order.
type Func func(args []value.Value) (value.Value, error)

// Registry is an immutable-after-construction, concurrency-safe name to
// Func lookup table: a mutex-guarded map with Register/Lookup accessors,
// built once at startup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Func
}

// NewRegistry returns an empty registry. Callers populate it with Register
// before passing it to Render; the registry contract forbids mutation once
// rendering has begun, but Registry itself does not enforce that — it is
// the caller's responsibility not to register concurrently with a render.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Func)}
}

// Register adds or replaces the filter named name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = fn
}

// Lookup returns the filter named name, or an *lqerr.UnknownFilter (with a
// fuzzy-matched Suggestion, when one exists) if no such filter is
// registered.
func (r *Registry) Lookup(name string, pos lqerr.Position) (Func, error) {
	r.mu.RLock()
	fn, ok := r.entries[name]
	if ok {
		r.mu.RUnlock()
		return fn, nil
	}
	candidates := make([]string, 0, len(r.entries))
	for n := range r.entries {
		candidates = append(candidates, n)
	}
	r.mu.RUnlock()

	return nil, &lqerr.UnknownFilter{
		Name:       name,
		Suggestion: closestMatch(name, candidates),
		Pos:        pos,
	}
}

// closestMatch returns the best fuzzy match for target among candidates,
// or "" if candidates is empty. Candidates that contain target's characters
// in order are ranked first; when none does (a misspelling such as
// "capitalise"), the candidate with the smallest edit distance is returned.
func closestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		best, bestDist := "", -1
		for _, c := range candidates {
			d := fuzzy.LevenshteinDistance(target, c)
			if bestDist < 0 || d < bestDist || (d == bestDist && c < best) {
				best, bestDist = c, d
			}
		}
		return best
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target
}
