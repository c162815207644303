package fxlang

import (
	"fmt"
	"strings"
)

// Kind is the dynamic type tag every Value carries. The language uses
// explicit type tags, never structural typing.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindBool
	KindInt
	KindFraction
	KindString
	KindList
	// KindObject carries any host-defined payload (a MonRef, SideRef,
	// EffectRef, Connector, BoostTable, HitEffect, ...) tagged by Tag so
	// host functions can type-assert Ref without the interpreter itself
	// needing to know the battle domain's types.
	KindObject
)

// Value is the tagged dynamic value every fxlang expression evaluates to.
type Value struct {
	Kind Kind
	Bool bool
	Num  int64 // numerator (or the whole integer value when Den == 1)
	Den  int64 // denominator; 1 for plain integers
	Str  string
	List []Value
	Tag  string      // object sub-kind, e.g. "monref", "connector", "boosttable"
	Ref  interface{} // object payload
}

func Undefined() Value { return Value{Kind: KindUndefined} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func Int(n int64) Value { return Value{Kind: KindInt, Num: n, Den: 1} }
func Str(s string) Value { return Value{Kind: KindString, Str: s} }
func List(vs []Value) Value { return Value{Kind: KindList, List: vs} }
func Object(tag string, ref interface{}) Value { return Value{Kind: KindObject, Tag: tag, Ref: ref} }

// Fraction builds a (possibly reducible) fractional value. Den must be
// non-zero; callers that might pass zero should check first, as fxlang
// defines division-by-zero explicitly rather than panicking.
func Fraction(num, den int64) Value {
	if den < 0 {
		num, den = -num, -den
	}
	if den != 0 {
		if g := gcd(abs64(num), den); g > 1 {
			num, den = num/g, den/g
		}
	}
	return Value{Kind: KindFraction, Num: num, Den: den}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// IsNumeric reports whether v can participate in arithmetic.
func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFraction }

// Truthy implements the language's boolean-coercion rule used by if/and/or.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindUndefined:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Num != 0
	case KindFraction:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	case KindList:
		return len(v.List) > 0
	case KindObject:
		return v.Ref != nil
	}
	return false
}

// AsInt truncates a numeric value toward zero.
func (v Value) AsInt() int64 {
	if v.Kind == KindFraction && v.Den != 0 {
		return v.Num / v.Den
	}
	return v.Num
}

// AsFloat is a convenience accessor for host functions that need a plain
// float (e.g. to feed a percentage into a log entry).
func (v Value) AsFloat() float64 {
	if v.Den == 0 {
		return 0
	}
	return float64(v.Num) / float64(v.Den)
}

func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.Num)
	case KindFraction:
		if v.Den == 1 {
			return fmt.Sprintf("%d", v.Num)
		}
		return fmt.Sprintf("%d/%d", v.Num, v.Den)
	case KindString:
		return v.Str
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindObject:
		return fmt.Sprintf("<%s>", v.Tag)
	}
	return ""
}

// Equal implements fxlang's == with numeric type coercion: an Int and a
// Fraction compare by value, not by tag.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return a.Num*b.Den == b.Num*a.Den
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindUndefined:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.Tag == b.Tag && a.Ref == b.Ref
	}
	return false
}

// Add, Sub, Mul implement numeric arithmetic; division is truncating
// integer division when both operands are plain integers, and fractional
// otherwise.
func Add(a, b Value) (Value, error) { return arith(a, b, func(an, ad, bn, bd int64) (int64, int64) { return an*bd + bn*ad, ad * bd }) }
func Sub(a, b Value) (Value, error) { return arith(a, b, func(an, ad, bn, bd int64) (int64, int64) { return an*bd - bn*ad, ad * bd }) }
func Mul(a, b Value) (Value, error) { return arith(a, b, func(an, ad, bn, bd int64) (int64, int64) { return an * bn, ad * bd }) }

func arith(a, b Value, f func(an, ad, bn, bd int64) (int64, int64)) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Undefined(), fmt.Errorf("fxlang: arithmetic on non-numeric value")
	}
	num, den := f(a.Num, a.Den, b.Num, b.Den)
	if a.Kind == KindInt && b.Kind == KindInt {
		return Int(num / den), nil
	}
	if den == 0 {
		return Undefined(), fmt.Errorf("fxlang: division by zero")
	}
	return Fraction(num, den), nil
}

// Div implements `/`: truncating integer division for two integers, a
// fraction otherwise. Division by zero evaluates to 0 in integer context
// and is an error in fraction context.
func Div(a, b Value) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Undefined(), fmt.Errorf("fxlang: arithmetic on non-numeric value")
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		if b.Num == 0 {
			return Int(0), nil
		}
		return Int(a.Num / b.Num), nil
	}
	den := a.Den * b.Num
	num := a.Num * b.Den
	if den == 0 {
		return Undefined(), fmt.Errorf("fxlang: division by zero")
	}
	return Fraction(num, den), nil
}

// Mod implements `%`, defined only over integers.
func Mod(a, b Value) (Value, error) {
	if a.Kind != KindInt || b.Kind != KindInt {
		return Undefined(), fmt.Errorf("fxlang: %% requires integers")
	}
	if b.Num == 0 {
		return Int(0), nil
	}
	return Int(a.Num % b.Num), nil
}

// Has implements the `has` operator: membership of b within list a, or
// substring containment when both are strings.
func Has(a, b Value) bool {
	if a.Kind == KindList {
		for _, e := range a.List {
			if Equal(e, b) {
				return true
			}
		}
		return false
	}
	if a.Kind == KindString && b.Kind == KindString {
		return strings.Contains(a.Str, b.Str)
	}
	return false
}

// HasAny implements `hasany`: true if any element of list b is a member of
// list a.
func HasAny(a, b Value) bool {
	if b.Kind != KindList {
		return Has(a, b)
	}
	for _, e := range b.List {
		if Has(a, e) {
			return true
		}
	}
	return false
}

// Compare implements the ordering operators for numeric and string values.
func Compare(a, b Value) (int, error) {
	if a.IsNumeric() && b.IsNumeric() {
		lhs := a.Num * b.Den
		rhs := b.Num * a.Den
		switch {
		case lhs < rhs:
			return -1, nil
		case lhs > rhs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.Kind == KindString && b.Kind == KindString {
		return strings.Compare(a.Str, b.Str), nil
	}
	return 0, fmt.Errorf("fxlang: cannot compare %s and %s", a.Kind, b.Kind)
}

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFraction:
		return "fraction"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	}
	return "unknown"
}
