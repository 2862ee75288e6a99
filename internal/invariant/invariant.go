// Package invariant provides small contract assertions used internally by
// the parser, structurer and renderer to guard against programming errors
// (stuck loops, impossible states) as opposed to user-triggered errors,
// which are reported through lqerr instead.
package invariant

import "fmt"

// Invariant panics with INVARIANT VIOLATION if condition is false.
//
// Use this for loop-progress checks and internal state consistency that
// should never fail given correct code — a violation here is a bug in
// liquidcore itself, not malformed template input.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// Precondition panics with PRECONDITION VIOLATION if condition is false.
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

func fail(kind, format string, args ...any) {
	panic(fmt.Sprintf("%s VIOLATION: %s", kind, fmt.Sprintf(format, args...)))
}
