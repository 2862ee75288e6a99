// Package lqerr defines liquidcore's shared error taxonomy: one concrete,
// typed struct per diagnosable condition, each implementing error. The
// types are exported so callers can discriminate with errors.As instead of
// matching on message text, rather than relying on sentinel values.
package lqerr

import "fmt"

// Position is a lightweight copy of ast.Position; lqerr does not import ast
// to avoid a dependency cycle (ast nodes never need to reference errors).
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// SyntaxError is raised by the lexer, expression parser, template parser,
// or block structurer for any malformed input.
type SyntaxError struct {
	Message  string
	Pos      Position
	Unclosed string // non-empty when the error names an unclosed construct
}

func (e *SyntaxError) Error() string {
	if e.Unclosed != "" {
		return fmt.Sprintf("syntax error at %s: %s (unclosed %s)", e.Pos, e.Message, e.Unclosed)
	}
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

// UndefinedVariable is raised only in strict mode, when a variable
// reference resolves to nothing.
type UndefinedVariable struct {
	Name string
	Pos  Position
}

func (e *UndefinedVariable) Error() string {
	return fmt.Sprintf("undefined variable %q at %s", e.Name, e.Pos)
}

// TypeError is raised for unsupported operand kinds for an operator.
type TypeError struct {
	Op  string
	Pos Position
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("unsupported operation %q at %s", e.Op, e.Pos)
}

// DivisionByZero is raised by "/" when the divisor is zero.
type DivisionByZero struct {
	Pos Position
}

func (e *DivisionByZero) Error() string {
	return fmt.Sprintf("division by zero at %s", e.Pos)
}

// ModuloByZero is raised by "%" when the divisor is zero.
type ModuloByZero struct {
	Pos Position
}

func (e *ModuloByZero) Error() string {
	return fmt.Sprintf("modulo by zero at %s", e.Pos)
}

// NotIterable is raised when a "for" loop's collection expression
// evaluates to a non-iterable, non-nil value.
type NotIterable struct {
	Kind string
	Pos  Position
}

func (e *NotIterable) Error() string {
	return fmt.Sprintf("value of kind %s is not iterable at %s", e.Kind, e.Pos)
}

// UnknownFilter is raised when a Call names a filter the registry has no
// entry for. Suggestion, when non-empty, is the closest registered name by
// fuzzy match — populated by the filter registry, not by lqerr itself.
type UnknownFilter struct {
	Name       string
	Suggestion string
	Pos        Position
}

func (e *UnknownFilter) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown filter %q at %s (did you mean %q?)", e.Name, e.Pos, e.Suggestion)
	}
	return fmt.Sprintf("unknown filter %q at %s", e.Name, e.Pos)
}

// FilterError wraps a failure returned by a filter's own implementation.
type FilterError struct {
	Name   string
	Detail string
	Pos    Position
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %q failed at %s: %s", e.Name, e.Pos, e.Detail)
}

// DepthExceeded is raised when expression or block nesting exceeds the
// configured maximum depth.
type DepthExceeded struct {
	Max int
	Pos Position
}

func (e *DepthExceeded) Error() string {
	return fmt.Sprintf("nesting depth exceeds maximum of %d at %s", e.Max, e.Pos)
}

// LoopLimitExceeded is raised when the total number of loop iterations
// across a single render exceeds the configured ceiling.
type LoopLimitExceeded struct {
	Max int
}

func (e *LoopLimitExceeded) Error() string {
	return fmt.Sprintf("loop iteration count exceeds maximum of %d", e.Max)
}

// SourceTooLarge is raised when the template source exceeds the configured
// maximum size, before lexing begins.
type SourceTooLarge struct {
	Size int
	Max  int
}

func (e *SourceTooLarge) Error() string {
	return fmt.Sprintf("source size %d exceeds maximum of %d bytes", e.Size, e.Max)
}
