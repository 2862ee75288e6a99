// Package value defines the runtime Value sum type produced by the
// evaluator and consumed by the renderer: a tagged union with one concrete
// Go type per variant, so operator dispatch elsewhere is a type switch
// rather than coercion-at-a-distance.
package value

import (
	"sort"
	"strconv"

	"github.com/davecgh/go-spew/spew"
)

// Value is the closed set of runtime values a liquidcore expression can
// produce: Nil, Bool, Int, Float, String, List, or Map. The unexported
// marker method keeps the set closed to this package.
type Value interface {
	value()
}

// Nil is the absence of a value — the result of an undefined variable
// lookup in lenient mode, a missed property/index, or an explicit literal
// nil/null.
type Nil struct{}

func (Nil) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Int is a 64-bit signed integer. Integer-ness is preserved through
// arithmetic: integer + integer stays an Int; any float operand promotes
// the result to Float.
type Int int64

func (Int) value() {}

// Float is a 64-bit floating point value.
type Float float64

func (Float) value() {}

// String is a UTF-8 string value.
type String string

func (String) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Map is an insertion-ordered string-keyed map. Iteration order (used both
// by Keys/Pairs and by the renderer's "for x in someMap" loop coercion)
// always matches assignment order, never Go's randomized map order.
type Map struct {
	keys   []string
	values map[string]Value
}

func (*Map) value() {}

// NewMap returns an empty, insertion-ordered Map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set assigns key to v, appending key to the insertion order the first
// time it is seen and overwriting the value (without reordering) on
// subsequent assignments.
func (m *Map) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value bound to key and whether key is present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries in m.
func (m *Map) Len() int {
	return len(m.keys)
}

// Keys returns the map's keys in insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Pairs returns the map's [key, value] entries in insertion order, the
// shape the renderer iterates over when looping over a Map.
func (m *Map) Pairs() [][2]Value {
	pairs := make([][2]Value, 0, len(m.keys))
	for _, k := range m.keys {
		pairs = append(pairs, [2]Value{String(k), m.values[k]})
	}
	return pairs
}

// SortedKeys returns a defensive, alphabetically sorted copy of the map's
// keys. Not used by iteration (which is always insertion-ordered); useful
// for deterministic debug output.
func (m *Map) SortedKeys() []string {
	out := append([]string(nil), m.keys...)
	sort.Strings(out)
	return out
}

// Truthy reports whether v counts as true in a condition: Nil, false, "", 0,
// 0.0, the empty list and the empty map are falsy; everything else is
// truthy.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(t)
	case Int:
		return t != 0
	case Float:
		return t != 0
	case String:
		return t != ""
	case List:
		return len(t) != 0
	case *Map:
		return t != nil && t.Len() != 0
	default:
		return true
	}
}

// Equal implements "==" semantics: values of different kinds always
// compare unequal (5 == "5" is false), even when both sides are numeric
// but of different Value kinds (Int(5) == Float(5) is false — only the
// arithmetic operators auto-promote, equality does not).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			other, present := bv.Get(k)
			if !present || !Equal(av.values[k], other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Format renders v as the string the renderer inserts for an
// interpolation. List and Map have no canonical bit-exact form (reached
// only via misuse, e.g. interpolating a raw collection) and fall back to a
// debug dump.
func Format(v Value) string {
	switch t := v.(type) {
	case Nil:
		return ""
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(int64(t), 10)
	case Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case String:
		return string(t)
	default:
		return spew.Sdump(v)
	}
}
