package vm

import "fmt"

// binOperand extracts the integer payload of an Int or Char value, the only
// two kinds arithmetic and bitwise operators accept. Char behaves as its
// code point for every operator except that the result of an arithmetic or
// bitwise op is always a plain Int, per the language's value semantics (no
// value is ever both a Char and the output of `+`).
func binOperand(v Value) (int64, bool) {
	switch v.kind {
	case KindInt, KindChar:
		return v.num, true
	default:
		return 0, false
	}
}

// BinaryOp applies op to lhs and rhs (accumulator holds rhs, the popped
// operand is lhs — see OP in the instruction table) and returns the result,
// or an error describing a type mismatch or division by zero.
func BinaryOp(op int, lhs, rhs Value) (Value, error) {
	switch op {
	case int(OpEQL):
		return boolValue(Equal(lhs, rhs)), nil
	case int(OpNEQ):
		return boolValue(!Equal(lhs, rhs)), nil
	}

	a, aok := binOperand(lhs)
	b, bok := binOperand(rhs)
	if !aok || !bok {
		return Nil, fmt.Errorf("vm: type mismatch: %s op %s", lhs.kind, rhs.kind)
	}

	switch op {
	case int(OpADD):
		return Int(a + b), nil
	case int(OpSUB):
		return Int(a - b), nil
	case int(OpMUL):
		return Int(a * b), nil
	case int(OpDIV):
		if b == 0 {
			return Nil, fmt.Errorf("vm: division by zero")
		}
		return Int(a / b), nil
	case int(OpMOD):
		if b == 0 {
			return Nil, fmt.Errorf("vm: division by zero")
		}
		return Int(a % b), nil
	case int(OpAND):
		return Int(a & b), nil
	case int(OpOR):
		return Int(a | b), nil
	case int(OpXOR):
		return Int(a ^ b), nil
	case int(OpSHL):
		return Int(a << uint(b)), nil
	case int(OpSHR):
		return Int(a >> uint(b)), nil
	case int(OpLT):
		return boolValue(a < b), nil
	case int(OpLE):
		return boolValue(a <= b), nil
	case int(OpGT):
		return boolValue(a > b), nil
	case int(OpGE):
		return boolValue(a >= b), nil
	default:
		return Nil, fmt.Errorf("vm: unknown binary operator %d", op)
	}
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// The Op* constants mirror compiler.BinOp's values without importing the
// compiler package (which already imports vm for Value/Function/Blueprint):
// interp.go passes the raw operand as an int, so the VM core has no
// compile-time dependency on the compiler package at all.
const (
	OpADD = iota
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpAND
	OpOR
	OpXOR
	OpSHL
	OpSHR
	OpLT
	OpLE
	OpGT
	OpGE
	OpEQL
	OpNEQ
)
