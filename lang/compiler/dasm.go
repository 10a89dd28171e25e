package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/raven-mud/raven/lang/vm"
)

// Dasm renders fn's bytecode as a human-readable listing, one instruction
// per line: a labeled "code:" section, one mnemonic plus operand per line.
// Raven's fixed 4-byte operands and absolute jump targets need none of a
// varint/defer/catch address translation layer, so this stays far simpler
// than a full assembler/disassembler round trip.
func Dasm(fn *vm.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function: %s locals=%d", fn.Name, fn.MaxLocals)
	if fn.Varargs {
		b.WriteString(" +varargs")
	}
	b.WriteString("\n")

	if len(fn.Constants) > 0 {
		b.WriteString("\tconstants:\n")
		for i, c := range fn.Constants {
			fmt.Fprintf(&b, "\t\t%d\t%s\n", i, c.String())
		}
	}

	b.WriteString("\tcode:\n")
	code := fn.Code
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		start := pc
		pc++
		switch {
		case op == SEND || op == SUPER_SEND:
			msgIdx, n1 := readWide(code, pc)
			pc += n1
			argc, n2 := readWide(code, pc)
			pc += n2
			fmt.Fprintf(&b, "\t\t%03d\t%s\t%s, %d\n", start, op, constName(fn, msgIdx), argc)
		case op.HasArg():
			arg, n := readWide(code, pc)
			pc += n
			fmt.Fprintf(&b, "\t\t%03d\t%s\t%d\n", start, op, arg)
		default:
			fmt.Fprintf(&b, "\t\t%03d\t%s\n", start, op)
		}
	}
	return b.String()
}

// readWide decodes one 4-byte little-endian operand starting at i, the same
// encoding interp.go's readWide uses. If the buffer is too short (a
// malformed function) it returns 0 and the count of remaining bytes, so the
// disassembler stops at the end of the code instead of panicking.
func readWide(code []byte, i int) (uint32, int) {
	if i+4 > len(code) {
		return 0, len(code) - i
	}
	return binary.LittleEndian.Uint32(code[i : i+4]), 4
}

func constName(fn *vm.Function, idx uint32) string {
	if int(idx) >= len(fn.Constants) {
		return fmt.Sprintf("<const %d out of range>", idx)
	}
	return fn.Constants[idx].String()
}
