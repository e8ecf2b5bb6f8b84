package vm

import (
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNone ValueKind = iota
	KindNumber
	KindString
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a tagged runtime value. Arrays are held by pointer, so copies of
// a Value share the same backing elements; the array lives as long as any
// Value still points at it.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Arr  *Array
}

// Array is a mutable heap-allocated element sequence.
type Array struct {
	Elems []Value
}

func None() Value                 { return Value{Kind: KindNone} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func ArrayValue(a *Array) Value   { return Value{Kind: KindArray, Arr: a} }

// Truthy reports whether the value counts as true in a condition: only a
// nonzero number does.
func (v Value) Truthy() bool {
	return v.Kind == KindNumber && v.Num != 0
}

// Equal compares two values. Numbers and strings compare by content,
// arrays by identity, none only equals none.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindNumber:
		return v.Num == o.Num
	case KindString:
		return v.Str == o.Str
	case KindArray:
		return v.Arr == o.Arr
	default:
		return false
	}
}

// Render formats the value the way output prints it. Numbers use the
// shortest decimal form that round-trips, so 3 prints as "3", not "3.000000".
func (v Value) Render() string {
	switch v.Kind {
	case KindNone:
		return "none"
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindArray:
		var b strings.Builder
		b.WriteByte('[')
		for i, elem := range v.Arr.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(elem.Render())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return "none"
	}
}
