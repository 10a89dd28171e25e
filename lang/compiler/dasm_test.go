package compiler_test

import (
	"strings"
	"testing"

	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/vm"
	"github.com/stretchr/testify/require"
)

func TestDasmRendersArithmeticFunction(t *testing.T) {
	w := compiler.NewWriter("add")
	w.LoadConst(vm.Int(2))
	w.Push()
	w.LoadConst(vm.Int(3))
	w.Op(compiler.ADD)
	w.ReturnOp()
	fn := w.Finish(nil)

	out := compiler.Dasm(fn)
	require.Contains(t, out, "function: add")
	require.Contains(t, out, "load_const")
	require.Contains(t, out, "push")
	require.Contains(t, out, "op")
	require.Contains(t, out, "return")
}

func TestDasmRendersSendWithMessageName(t *testing.T) {
	syms := vm.NewSymbolTable()
	greet := syms.Intern("greet")

	w := compiler.NewWriter("caller")
	w.PushSelf()
	w.Send(greet, 0)
	w.ReturnOp()
	fn := w.Finish(nil)

	out := compiler.Dasm(fn)
	lines := strings.Split(out, "\n")
	found := false
	for _, l := range lines {
		if strings.Contains(l, "send") && strings.Contains(l, "#greet") {
			found = true
		}
	}
	require.True(t, found, "expected a send line naming the greet symbol, got:\n%s", out)
}
