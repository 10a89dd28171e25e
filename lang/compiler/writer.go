package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/raven-mud/raven/lang/vm"
)

// Label is an opaque handle returned by Writer.OpenLabel.
type Label int

// Writer accumulates the bytecode and constant pool of a single vm.Function
// as the parser recognizes constructs. Every public method corresponds
// directly to one emission primitive: write an opcode byte, write a wide
// (4-byte little-endian) operand with in-place patch support, intern a
// constant, or manage a jump label.
//
// Label protocol. OpenLabel reserves a handle with no resolved address yet.
// A jump emitted before the matching PlaceLabel records a patch site (the
// byte offset of its placeholder operand) against that label; PlaceLabel
// resolves the label to the current fill and overwrites every pending
// patch site in one pass. CloseLabel is a bookkeeping no-op once every
// patch site referencing it has been resolved; Finish panics if any label
// was opened but never placed, since that would leave an unpatched jump.
type Writer struct {
	code      []byte
	constants []vm.Value
	maxLocals int
	varargs   bool
	name      string

	labels   []int // label id -> resolved byte offset, or -1 if unplaced
	patches  map[Label][]int
	name2sym func(string) *vm.Symbol
}

// NewWriter creates a Writer producing a function named name.
func NewWriter(name string) *Writer {
	return &Writer{name: name, patches: make(map[Label][]int)}
}

func (w *Writer) ReportLocals(n int) {
	if n > w.maxLocals {
		w.maxLocals = n
	}
}

func (w *Writer) EnableVarargs() { w.varargs = true }

// Finish produces the compiled vm.Function. bp, if non-nil, is recorded as
// the function's defining blueprint (nil for top-level / file-level code
// that is never a method).
func (w *Writer) Finish(bp *vm.Blueprint) *vm.Function {
	for id, target := range w.labels {
		if target < 0 {
			panic(fmt.Sprintf("compiler: label %d opened but never placed", id))
		}
	}
	return vm.NewFunction(w.name, w.code, w.constants, w.maxLocals+1, w.varargs, bp)
}

func (w *Writer) writeByte(b byte) { w.code = append(w.code, b) }

func (w *Writer) writeWide(n uint32) int {
	off := len(w.code)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	w.code = append(w.code, buf[:]...)
	return off
}

func (w *Writer) patchWide(off int, n uint32) {
	binary.LittleEndian.PutUint32(w.code[off:off+4], n)
}

// Constant interns value into the pool and returns its index.
func (w *Writer) Constant(value vm.Value) uint32 {
	idx := uint32(len(w.constants))
	w.constants = append(w.constants, value)
	return idx
}

func (w *Writer) op(op Opcode) { w.writeByte(byte(op)) }

func (w *Writer) opArg(op Opcode, arg uint32) {
	w.writeByte(byte(op))
	w.writeWide(arg)
}

func (w *Writer) LoadSelf()  { w.op(LOAD_SELF) }
func (w *Writer) PushSelf()  { w.op(PUSH_SELF) }
func (w *Writer) Push()      { w.op(PUSH) }
func (w *Writer) Pop()       { w.op(POP) }
func (w *Writer) ReturnOp()  { w.op(RETURN) }

func (w *Writer) LoadConst(value vm.Value) { w.opArg(LOAD_CONST, w.Constant(value)) }
func (w *Writer) LoadArray(n int)          { w.opArg(LOAD_ARRAY, uint32(n)) }
func (w *Writer) LoadMapping(n int)        { w.opArg(LOAD_MAPPING, uint32(n)) }
func (w *Writer) LoadFuncref(name *vm.Symbol) {
	w.opArg(LOAD_FUNCREF, w.Constant(vm.Ptr(name)))
}
func (w *Writer) LoadLocal(idx int)   { w.opArg(LOAD_LOCAL, uint32(idx)) }
func (w *Writer) LoadMember(idx int)  { w.opArg(LOAD_MEMBER, uint32(idx)) }
func (w *Writer) StoreLocal(idx int)  { w.opArg(STORE_LOCAL, uint32(idx)) }
func (w *Writer) StoreMember(idx int) { w.opArg(STORE_MEMBER, uint32(idx)) }

func (w *Writer) Op(b BinOp) { w.opArg(OP, uint32(b)) }

func (w *Writer) Send(msg *vm.Symbol, argc int) {
	w.writeByte(byte(SEND))
	w.writeWide(w.Constant(vm.Ptr(msg)))
	w.writeWide(uint32(argc))
}

func (w *Writer) SuperSend(msg *vm.Symbol, argc int) {
	w.writeByte(byte(SUPER_SEND))
	w.writeWide(w.Constant(vm.Ptr(msg)))
	w.writeWide(uint32(argc))
}

// OpenLabel reserves a new, as-yet-unplaced label.
func (w *Writer) OpenLabel() Label {
	id := Label(len(w.labels))
	w.labels = append(w.labels, -1)
	return id
}

// PlaceLabel resolves label to the current fill offset and patches every
// jump emitted so far that referenced it.
func (w *Writer) PlaceLabel(label Label) {
	target := len(w.code)
	w.labels[label] = target
	for _, site := range w.patches[label] {
		w.patchWide(site, uint32(target))
	}
	delete(w.patches, label)
}

// CloseLabel is a no-op retained for symmetry with the open/place/close
// protocol; Go's GC reclaims the label's bookkeeping automatically once
// Finish returns.
func (w *Writer) CloseLabel(label Label) {}

func (w *Writer) writeJumpTarget(label Label) {
	if target := w.labels[label]; target >= 0 {
		w.writeWide(uint32(target))
		return
	}
	w.patches[label] = append(w.patches[label], len(w.code))
	w.writeWide(0)
}

func (w *Writer) Jump(label Label) {
	w.writeByte(byte(JUMP))
	w.writeJumpTarget(label)
}

func (w *Writer) JumpIf(label Label) {
	w.writeByte(byte(JUMP_IF))
	w.writeJumpTarget(label)
}

func (w *Writer) JumpIfNot(label Label) {
	w.writeByte(byte(JUMP_IF_NOT))
	w.writeJumpTarget(label)
}
