package vm

import (
	"encoding/binary"
	"fmt"
)

// opcode mirrors compiler.Opcode's byte values exactly. vm cannot import
// compiler (compiler already imports vm, for Value/Function/Blueprint), so
// the dispatch loop decodes raw bytes against its own copy of the table —
// the wire format, not the Go type, is what the two packages actually share.
// No test compares this copy with compiler.Opcode directly; the execution
// tests in interp_test.go run Writer-built code through it.
type opcode byte

const (
	opLoadSelf opcode = iota
	opPushSelf
	opPush
	opPop
	opReturn

	opLoadConst
	opLoadArray
	opLoadMapping
	opLoadFuncref
	opLoadLocal
	opLoadMember
	opStoreLocal
	opStoreMember
	opOp
	opSend
	opSuperSend
	opJump
	opJumpIf
	opJumpIfNot
)

// Run executes fib until it blocks on input, finishes, faults, or exhausts
// budget instructions (budget <= 0 means unlimited; the scheduler passes its
// TickBudget through unchanged, so a zero TickBudget also runs unlimited).
func (fib *Fiber) Run(budget int) {
	fib.Status = FiberRunning
	steps := 0
	for {
		if len(fib.frames) == 0 {
			fib.Status = FiberFinished
			return
		}
		if budget > 0 && steps >= budget {
			fib.Status = FiberReady
			return
		}
		steps++
		fib.Steps++

		fr := fib.frames[len(fib.frames)-1]
		code := fr.fn.Code
		if fr.pc < 0 || fr.pc >= len(code) {
			fib.fault(fmt.Errorf("vm: program counter out of range"))
			return
		}
		op := opcode(code[fr.pc])
		fr.pc++

		switch op {
		case opLoadSelf:
			fib.acc = fr.self

		case opPushSelf:
			fib.push(fr.self)

		case opPush:
			fib.push(fib.acc)

		case opPop:
			if len(fib.stack) == 0 {
				fib.fault(fmt.Errorf("vm: stack underflow on POP"))
				return
			}
			fib.pop()

		case opReturn:
			result := fib.acc
			fib.frames = fib.frames[:len(fib.frames)-1]
			fib.acc = result
			if len(fib.frames) == 0 {
				fib.Status = FiberFinished
				return
			}

		case opLoadConst:
			idx, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if int(idx) >= len(fr.fn.Constants) {
				fib.fault(fmt.Errorf("vm: constant index %d out of range", idx))
				return
			}
			fib.acc = fr.fn.Constants[idx]

		case opLoadArray:
			n, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if int(n) > len(fib.stack) {
				fib.fault(fmt.Errorf("vm: stack underflow building array"))
				return
			}
			fib.acc = Ptr(NewArray(fib.popN(int(n))))

		case opLoadMapping:
			n, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if 2*int(n) > len(fib.stack) {
				fib.fault(fmt.Errorf("vm: stack underflow building mapping"))
				return
			}
			kv := fib.popN(2 * int(n))
			m := NewMapping()
			for i := 0; i < int(n); i++ {
				m.Set(kv[2*i], kv[2*i+1])
			}
			fib.acc = Ptr(m)

		case opLoadFuncref:
			idx, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if int(idx) >= len(fr.fn.Constants) {
				fib.fault(fmt.Errorf("vm: constant index %d out of range", idx))
				return
			}
			sym, ok := fr.fn.Constants[idx].Heap().(*Symbol)
			if !ok {
				fib.fault(fmt.Errorf("vm: LOAD_FUNCREF constant is not a symbol"))
				return
			}
			fib.acc = Ptr(NewFuncref(sym))

		case opLoadLocal:
			idx, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if int(idx) >= len(fr.locals) {
				fib.fault(fmt.Errorf("vm: local index %d out of range", idx))
				return
			}
			fib.acc = fr.locals[idx]

		case opLoadMember:
			idx, ok := fib.readWide(fr)
			if !ok {
				return
			}
			obj, ferr := fib.selfObject(fr)
			if ferr != nil {
				fib.fault(ferr)
				return
			}
			if int(idx) >= len(obj.Slots) {
				fib.fault(fmt.Errorf("vm: member slot %d out of range", idx))
				return
			}
			fib.acc = obj.Slots[idx]

		case opStoreLocal:
			idx, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if int(idx) >= len(fr.locals) {
				fib.fault(fmt.Errorf("vm: local index %d out of range", idx))
				return
			}
			fr.locals[idx] = fib.acc

		case opStoreMember:
			idx, ok := fib.readWide(fr)
			if !ok {
				return
			}
			obj, ferr := fib.selfObject(fr)
			if ferr != nil {
				fib.fault(ferr)
				return
			}
			if int(idx) >= len(obj.Slots) {
				fib.fault(fmt.Errorf("vm: member slot %d out of range", idx))
				return
			}
			obj.Slots[idx] = fib.acc

		case opOp:
			binop, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if len(fib.stack) == 0 {
				fib.fault(fmt.Errorf("vm: stack underflow in OP"))
				return
			}
			lhs := fib.pop()
			result, err := BinaryOp(int(binop), lhs, fib.acc)
			if err != nil {
				fib.fault(err)
				return
			}
			fib.acc = result

		case opSend, opSuperSend:
			if !fib.doSend(fr, op == opSuperSend) {
				return
			}

		case opJump:
			target, ok := fib.readWide(fr)
			if !ok {
				return
			}
			fr.pc = int(target)

		case opJumpIf:
			target, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if fib.acc.Truth() {
				fr.pc = int(target)
			}

		case opJumpIfNot:
			target, ok := fib.readWide(fr)
			if !ok {
				return
			}
			if !fib.acc.Truth() {
				fr.pc = int(target)
			}

		default:
			fib.fault(fmt.Errorf("vm: illegal opcode %d", op))
			return
		}
	}
}

func (fib *Fiber) selfObject(fr *Frame) (*Object, error) {
	if fr.self.kind != KindPtr {
		return nil, fmt.Errorf("vm: self is not an object")
	}
	obj, ok := fr.self.ptr.(*Object)
	if !ok {
		return nil, fmt.Errorf("vm: self is not an object")
	}
	return obj, nil
}

// readWide decodes one 4-byte little-endian operand at fr.pc, advancing it.
// It faults the fiber and returns ok=false if the buffer is too short.
func (fib *Fiber) readWide(fr *Frame) (uint32, bool) {
	if fr.pc+4 > len(fr.fn.Code) {
		fib.fault(fmt.Errorf("vm: truncated instruction operand"))
		return 0, false
	}
	v := binary.LittleEndian.Uint32(fr.fn.Code[fr.pc : fr.pc+4])
	fr.pc += 4
	return v, true
}

// doSend implements SEND and SUPER_SEND: pop argc args and the receiver,
// resolve msg against the receiver's blueprint (SEND) or the defining
// blueprint's parent (SUPER_SEND, §4.G), and push a new frame. It returns
// false if it faulted the fiber.
func (fib *Fiber) doSend(fr *Frame, super bool) bool {
	msgIdx, ok := fib.readWide(fr)
	if !ok {
		return false
	}
	argcWide, ok := fib.readWide(fr)
	if !ok {
		return false
	}
	argc := int(argcWide)

	if int(msgIdx) >= len(fr.fn.Constants) {
		fib.fault(fmt.Errorf("vm: constant index %d out of range", msgIdx))
		return false
	}
	msg, ok := fr.fn.Constants[msgIdx].Heap().(*Symbol)
	if !ok {
		fib.fault(fmt.Errorf("vm: SEND constant is not a symbol"))
		return false
	}

	if argc+1 > len(fib.stack) {
		fib.fault(fmt.Errorf("vm: stack underflow in SEND"))
		return false
	}
	values := fib.popN(argc + 1)
	receiver := values[0]
	args := values[1:]

	var startBP *Blueprint
	if super {
		if fr.definingBP == nil || fr.definingBP.Parent == nil {
			fib.fault(fmt.Errorf("vm: super send with no parent blueprint"))
			return false
		}
		startBP = fr.definingBP.Parent
	} else {
		obj, ok := receiver.ptr.(*Object)
		if receiver.kind != KindPtr || !ok {
			fib.fault(fmt.Errorf("vm: message send to non-object receiver"))
			return false
		}
		startBP = obj.Blueprint
	}

	fn, defBP, found := startBP.Lookup(msg)
	if !found {
		fib.fault(fmt.Errorf("vm: unrecognized message %q", msg.Name))
		return false
	}
	_ = defBP // fn.Blueprint already records it; kept for symmetry/readability

	if fn.Native != nil {
		result, blocked := fn.Native(fib, receiver, args)
		if blocked {
			// The native already parked the fiber via BlockOnInput; stop
			// stepping so Run can report the new status to the scheduler.
			return false
		}
		fib.acc = result
		return true
	}

	if len(fib.frames) >= maxCallDepth {
		fib.fault(fmt.Errorf("vm: stack overflow"))
		return false
	}

	fib.pushFrame(fn, receiver, args)
	return true
}

// maxCallDepth bounds call-frame nesting per fiber; exceeding it is a fault
// (§4.F: "stack overflow" is one of the enumerated fault causes), not a
// panic, since an unbounded Go call stack isn't at risk (frames live in a
// slice, not in native recursion).
const maxCallDepth = 4096
