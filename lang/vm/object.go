package vm

// Object is an instance of a Blueprint: a flat slots vector sized to the
// blueprint's full inherited layout. Recompiling a blueprint produces a new
// *Blueprint value; existing objects keep pointing at the blueprint they
// were created with until something explicitly rebinds them — there is no
// live migration of instances across blueprint versions.
type Object struct {
	Header

	Blueprint *Blueprint
	Slots     []Value
}

// NewObject allocates an instance of bp with all slots initialized to nil.
func NewObject(bp *Blueprint) *Object {
	o := &Object{Blueprint: bp, Slots: make([]Value, bp.NumSlots())}
	DefaultHeap.register(o)
	return o
}

func (o *Object) Kind() string   { return "object" }
func (o *Object) String() string { return "object of " + o.Blueprint.Name }

func (o *Object) walk(visit func(Value)) {
	visit(Ptr(o.Blueprint))
	for _, s := range o.Slots {
		visit(s)
	}
}

var _ HeapObject = (*Object)(nil)
