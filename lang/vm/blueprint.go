package vm

// Blueprint is a compiled class: a method table, its own member slots, and a
// pointer to the parent blueprint it inherits from. Slot layout is
// inheritance-linearized — a child's slots are appended after its parent's —
// so that an Object's flat slots vector can be indexed the same way
// regardless of which blueprint in the chain declared a given slot.
type Blueprint struct {
	Header

	Name    string
	Parent  *Blueprint
	Methods map[*Symbol]*Function

	// ownSlots lists this blueprint's own member names, in declaration order;
	// slots gives the full inherited layout (parent's slots first).
	ownSlots []*Symbol
	slots    []*Symbol

	// Init, if non-nil, is the constructor run when File.GetObject
	// instantiates this blueprint's singleton.
	Init *Function
}

// NewBlueprint creates a blueprint inheriting from parent (nil for the root
// of an inheritance chain).
func NewBlueprint(name string, parent *Blueprint) *Blueprint {
	bp := &Blueprint{Name: name, Parent: parent, Methods: make(map[*Symbol]*Function)}
	if parent != nil {
		bp.slots = append(bp.slots, parent.slots...)
	}
	DefaultHeap.register(bp)
	return bp
}

// AddSlot declares a new member slot on this blueprint and returns its index
// into an Object's flat slots vector.
func (bp *Blueprint) AddSlot(name *Symbol) int {
	bp.ownSlots = append(bp.ownSlots, name)
	bp.slots = append(bp.slots, name)
	return len(bp.slots) - 1
}

// SlotIndex returns the index of the named member slot, searching this
// blueprint's full inherited layout, and whether it was found.
func (bp *Blueprint) SlotIndex(name *Symbol) (int, bool) {
	for i, s := range bp.slots {
		if s == name {
			return i, true
		}
	}
	return 0, false
}

// NumSlots is the total number of member slots an instance of this blueprint
// carries, including inherited ones.
func (bp *Blueprint) NumSlots() int { return len(bp.slots) }

// AddMethod installs fn in the method table under name, replacing any
// previous installation (recompiling a blueprint always starts from a fresh,
// empty Methods table, so this only ever overwrites within one compile).
func (bp *Blueprint) AddMethod(name *Symbol, fn *Function) {
	fn.Blueprint = bp
	bp.Methods[name] = fn
}

// Lookup walks the parent chain starting at bp and returns the first method
// table containing name, along with the function itself. This is used both
// for SEND (starting at the receiver's blueprint) and SUPER_SEND (starting
// at the parent of the defining blueprint of the executing method).
func (bp *Blueprint) Lookup(name *Symbol) (*Function, *Blueprint, bool) {
	for b := bp; b != nil; b = b.Parent {
		if fn, ok := b.Methods[name]; ok {
			return fn, b, true
		}
	}
	return nil, nil, false
}

func (bp *Blueprint) Kind() string   { return "blueprint" }
func (bp *Blueprint) String() string { return "blueprint " + bp.Name }

func (bp *Blueprint) walk(visit func(Value)) {
	if bp.Parent != nil {
		visit(Ptr(bp.Parent))
	}
	for _, fn := range bp.Methods {
		visit(Ptr(fn))
	}
	if bp.Init != nil {
		visit(Ptr(bp.Init))
	}
}

var _ HeapObject = (*Blueprint)(nil)
