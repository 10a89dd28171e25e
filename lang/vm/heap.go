package vm

import "strconv"

// String is an immutable heap-allocated text string.
type String struct {
	Header
	Value string
}

func NewString(s string) *String {
	o := &String{Value: s}
	DefaultHeap.register(o)
	return o
}

func (s *String) Kind() string       { return "string" }
func (s *String) String() string     { return strconv.Quote(s.Value) }
func (s *String) walk(func(Value)) {}

// Symbol is an interned name: SEND targets, LOAD_FUNCREF operands and member
// names all resolve through the shared intern table in symbol.go so that
// two occurrences of the same name are the same *Symbol and compare equal by
// pointer.
type Symbol struct {
	Header
	Name string
}

func (s *Symbol) Kind() string     { return "symbol" }
func (s *Symbol) String() string   { return "#" + s.Name }
func (s *Symbol) walk(func(Value)) {}

// Array is a mutable, dynamically sized list of values.
type Array struct {
	Header
	Elems []Value
}

func NewArray(elems []Value) *Array {
	o := &Array{Elems: elems}
	DefaultHeap.register(o)
	return o
}

func (a *Array) Kind() string { return "array" }
func (a *Array) String() string {
	s := "({ "
	for i, e := range a.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + " })"
}
func (a *Array) walk(visit func(Value)) {
	for _, e := range a.Elems {
		visit(e)
	}
}

// Mapping is an insertion-ordered key/value table. Keys are compared with
// Equal (so two distinct string objects with equal content are the same
// key), which rules out a plain Go map keyed on Value; entries are kept in a
// slice and looked up linearly, mirroring the reference implementation's
// unordered association list rather than introducing a hash requirement the
// language does not define.
type Mapping struct {
	Header
	keys   []Value
	values []Value
}

func NewMapping() *Mapping {
	o := &Mapping{}
	DefaultHeap.register(o)
	return o
}

func (m *Mapping) Kind() string { return "mapping" }

func (m *Mapping) String() string {
	s := "([ "
	for i, k := range m.keys {
		if i > 0 {
			s += ", "
		}
		s += k.String() + ": " + m.values[i].String()
	}
	return s + " ])"
}

func (m *Mapping) walk(visit func(Value)) {
	for i, k := range m.keys {
		visit(k)
		visit(m.values[i])
	}
}

func (m *Mapping) Get(key Value) (Value, bool) {
	for i, k := range m.keys {
		if Equal(k, key) {
			return m.values[i], true
		}
	}
	return Nil, false
}

func (m *Mapping) Set(key, value Value) {
	for i, k := range m.keys {
		if Equal(k, key) {
			m.values[i] = value
			return
		}
	}
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

func (m *Mapping) Len() int { return len(m.keys) }

// Funcref is a first-class reference to a named method, resolved lazily
// against whatever blueprint is in scope when it is invoked via CALL-like
// machinery; LOAD_FUNCREF produces one from a symbol constant.
type Funcref struct {
	Header
	Name *Symbol
}

func NewFuncref(name *Symbol) *Funcref {
	o := &Funcref{Name: name}
	DefaultHeap.register(o)
	return o
}

func (f *Funcref) Kind() string     { return "funcref" }
func (f *Funcref) String() string   { return "&" + f.Name.Name }
func (f *Funcref) walk(func(Value)) {}

var (
	_ HeapObject = (*String)(nil)
	_ HeapObject = (*Symbol)(nil)
	_ HeapObject = (*Array)(nil)
	_ HeapObject = (*Mapping)(nil)
	_ HeapObject = (*Funcref)(nil)
)
