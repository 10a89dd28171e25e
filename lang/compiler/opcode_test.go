package compiler

import (
	"strings"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	for op := Opcode(0); op <= OpcodeMax; op++ {
		if opcodeNames[op] == "" {
			t.Errorf("missing string representation of opcode %d", op)
		}
		if s := op.String(); strings.Contains(s, "illegal") {
			t.Errorf("invalid string representation of opcode %d", op)
		}
	}
}

func TestBinOpString(t *testing.T) {
	for b := ADD; b <= binOpMax; b++ {
		if s := b.String(); strings.Contains(s, "illegal") {
			t.Errorf("invalid string representation of binop %d", b)
		}
	}
}
