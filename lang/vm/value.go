// Package vm implements the Raven bytecode virtual machine: value encoding,
// the heap and its garbage collector, blueprints and objects, and the
// cooperatively scheduled fibers that execute compiled functions.
package vm

import "fmt"

// Kind discriminates the four ways a Value can be populated. nil, int and
// char are immediate; ptr carries a heap object whose own header supplies
// its finer kind (string, array, mapping, function, funcref, blueprint,
// object, symbol).
type Kind byte

const (
	KindNil Kind = iota
	KindInt
	KindChar
	KindPtr
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindPtr:
		return "ptr"
	default:
		return "illegal kind"
	}
}

// HeapObject is implemented by every value that lives on the GC heap: it
// carries a mark bit and reports the other heap objects it references so the
// collector's mark phase can walk the reachability graph without knowing the
// concrete kind ahead of time.
type HeapObject interface {
	// Kind names the heap object's concrete type, for diagnostics.
	Kind() string
	// header returns the object's GC bookkeeping header.
	header() *Header
	// walk invokes visit for every Value this object directly references.
	walk(visit func(Value))
}

// Header is embedded by every heap object. The collector toggles marked
// during the mark phase and reads it during sweep; next links the object
// into the heap's allocation list so sweep can walk every live object
// without a separate registry.
type Header struct {
	marked bool
	next   HeapObject
}

func (h *Header) header() *Header { return h }

// Value is a machine word: nil, an integer, a character, or a pointer to a
// heap object. Nil compares equal only to nil; int and char are distinct
// kinds even when their payloads are numerically equal, per the language's
// value semantics.
type Value struct {
	kind Kind
	num  int64
	ptr  HeapObject
}

// Nil is the canonical nil value.
var Nil = Value{kind: KindNil}

// Int returns a value wrapping the given integer. Raven integers are taken
// to occupy the full signed 64-bit range; the source language surfaces them
// as "int".
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Char returns a value wrapping a single character code point.
func Char(r rune) Value { return Value{kind: KindChar, num: int64(r)} }

// Ptr returns a value wrapping a heap object reference.
func Ptr(obj HeapObject) Value {
	if obj == nil {
		return Nil
	}
	return Value{kind: KindPtr, ptr: obj}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool  { return v.kind == KindNil }
func (v Value) IsInt() bool  { return v.kind == KindInt }
func (v Value) IsChar() bool { return v.kind == KindChar }
func (v Value) IsPtr() bool  { return v.kind == KindPtr }

// Int64 returns the integer payload; it panics if v is not a KindInt value.
func (v Value) Int64() int64 {
	if v.kind != KindInt {
		panic(fmt.Sprintf("vm: Int64 called on %s value", v.kind))
	}
	return v.num
}

// Rune returns the character payload; it panics if v is not a KindChar value.
func (v Value) Rune() rune {
	if v.kind != KindChar {
		panic(fmt.Sprintf("vm: Rune called on %s value", v.kind))
	}
	return rune(v.num)
}

// Heap returns the pointer payload; it panics if v is not a KindPtr value.
func (v Value) Heap() HeapObject {
	if v.kind != KindPtr {
		panic(fmt.Sprintf("vm: Heap called on %s value", v.kind))
	}
	return v.ptr
}

// Truth implements the language's truthiness rule: nil and integer zero are
// falsy, everything else (including char 0 and an empty string or array) is
// truthy.
func (v Value) Truth() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindInt:
		return v.num != 0
	default:
		return true
	}
}

// Equal implements the language's == operator: nil equals only nil, int and
// char compare by kind and payload, heap values compare by identity except
// for strings, which compare by content.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindInt, KindChar:
		return a.num == b.num
	case KindPtr:
		if as, ok := a.ptr.(*String); ok {
			if bs, ok := b.ptr.(*String); ok {
				return as.Value == bs.Value
			}
			return false
		}
		return a.ptr == b.ptr
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindChar:
		return fmt.Sprintf("%q", rune(v.num))
	case KindPtr:
		if v.ptr == nil {
			return "nil"
		}
		return fmt.Sprintf("%s", describePtr(v.ptr))
	default:
		return "<illegal value>"
	}
}

func describePtr(obj HeapObject) string {
	if s, ok := obj.(fmt.Stringer); ok {
		return s.String()
	}
	return obj.Kind()
}
