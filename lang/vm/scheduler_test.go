package vm_test

import (
	"testing"

	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/vm"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal vm.InputSource test double: a queue of lines handed
// back one at a time, empty until Feed is called.
type fakeConn struct {
	lines []string
}

func (c *fakeConn) ReadLine() (string, bool) {
	if len(c.lines) == 0 {
		return "", false
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, true
}

func (c *fakeConn) Feed(line string) { c.lines = append(c.lines, line) }

func TestSchedulerRoundRobinsReadyFibers(t *testing.T) {
	fnA := compileMethod(t, func(w *compiler.Writer) {
		w.LoadConst(vm.Int(1))
		w.ReturnOp()
	}, nil)
	fnB := compileMethod(t, func(w *compiler.Writer) {
		w.LoadConst(vm.Int(2))
		w.ReturnOp()
	}, nil)

	sched := &vm.Scheduler{TickBudget: 0}
	a := vm.NewFiber(fnA, vm.Nil, nil)
	b := vm.NewFiber(fnB, vm.Nil, nil)
	sched.Spawn(a)
	sched.Spawn(b)
	require.Equal(t, 2, sched.Len())

	faulted := sched.RunOnce()
	require.Empty(t, faulted)
	require.Equal(t, vm.FiberFinished, a.Status)
	require.Equal(t, vm.FiberFinished, b.Status)
	require.True(t, vm.Equal(vm.Int(1), a.Result()))
	require.True(t, vm.Equal(vm.Int(2), b.Result()))

	// Both finished: the scheduler has dropped them from its tracked set.
	require.Equal(t, 0, sched.Len())
}

func TestSchedulerTickBudgetSpansMultipleRounds(t *testing.T) {
	fn := compileMethod(t, func(w *compiler.Writer) {
		w.ReportLocals(1)
		w.LoadConst(vm.Int(0))
		w.StoreLocal(1)
		top := w.OpenLabel()
		w.PlaceLabel(top)
		w.LoadLocal(1)
		w.Push()
		w.LoadConst(vm.Int(1))
		w.Op(compiler.ADD)
		w.StoreLocal(1)
		brk := w.OpenLabel()
		w.LoadLocal(1)
		w.Push()
		w.LoadConst(vm.Int(3))
		w.Op(compiler.EQL)
		w.JumpIfNot(top)
		w.PlaceLabel(brk)
		w.LoadLocal(1)
		w.ReturnOp()
	}, nil)

	sched := &vm.Scheduler{TickBudget: 2}
	fib := vm.NewFiber(fn, vm.Nil, nil)
	sched.Spawn(fib)

	rounds := 0
	for sched.Len() > 0 && rounds < 100 {
		sched.RunOnce()
		rounds++
	}
	require.Greater(t, rounds, 1, "a 2-instruction budget should force several rounds")
	require.Equal(t, vm.FiberFinished, fib.Status)
}

func TestSchedulerBlocksOnInputAndResumesOnDeliverInput(t *testing.T) {
	conn := &fakeConn{}
	readLine := vm.NewNativeFunction("read_line", func(fib *vm.Fiber, self vm.Value, args []vm.Value) (vm.Value, bool) {
		if line, ok := conn.ReadLine(); ok {
			return vm.Ptr(vm.NewString(line)), false
		}
		fib.BlockOnInput(conn, func(line string) {
			fib.SetAcc(vm.Ptr(vm.NewString(line)))
		})
		return vm.Nil, true
	})

	syms := vm.NewSymbolTable()
	readLineSym := syms.Intern("read_line")
	bp := vm.NewBlueprint("Login", nil)
	bp.AddMethod(readLineSym, readLine)
	obj := vm.NewObject(bp)

	fn := compileMethod(t, func(w *compiler.Writer) {
		w.LoadConst(vm.Ptr(obj))
		w.Push()
		w.Send(readLineSym, 0)
		w.ReturnOp()
	}, nil)

	sched := &vm.Scheduler{TickBudget: 0}
	fib := vm.NewFiber(fn, vm.Nil, nil)
	fib.Conn = conn
	sched.Spawn(fib)

	faulted := sched.RunOnce()
	require.Empty(t, faulted)
	require.Equal(t, vm.FiberBlockedOnInput, fib.Status)
	require.Equal(t, 1, sched.Len())

	conn.Feed("hello")
	sched.DeliverInput(conn, "hello")
	require.Equal(t, vm.FiberReady, fib.Status)

	faulted = sched.RunOnce()
	require.Empty(t, faulted)
	require.Equal(t, vm.FiberFinished, fib.Status)
}

func TestSchedulerMaxStepsFaultsRunawayFiber(t *testing.T) {
	fn := compileMethod(t, func(w *compiler.Writer) {
		top := w.OpenLabel()
		w.PlaceLabel(top)
		w.LoadConst(vm.Int(1))
		w.Jump(top)
	}, nil)

	sched := &vm.Scheduler{TickBudget: 3, MaxSteps: 10}
	fib := vm.NewFiber(fn, vm.Nil, nil)
	sched.Spawn(fib)

	var faulted []*vm.Fiber
	for rounds := 0; sched.Len() > 0 && rounds < 100; rounds++ {
		faulted = sched.RunOnce()
	}
	require.Len(t, faulted, 1)
	require.Same(t, fib, faulted[0])
	require.Equal(t, vm.FiberFaulted, fib.Status)
	require.GreaterOrEqual(t, fib.Steps, 10)
}

func TestSchedulerFaultedFiberIsReportedAndDropped(t *testing.T) {
	syms := vm.NewSymbolTable()
	missing := syms.Intern("missing")
	bp := vm.NewBlueprint("Empty", nil)
	obj := vm.NewObject(bp)

	fn := compileMethod(t, func(w *compiler.Writer) {
		w.LoadConst(vm.Ptr(obj))
		w.Push()
		w.Send(missing, 0)
		w.ReturnOp()
	}, nil)

	sched := &vm.Scheduler{TickBudget: 0}
	fib := vm.NewFiber(fn, vm.Nil, nil)
	sched.Spawn(fib)

	faulted := sched.RunOnce()
	require.Len(t, faulted, 1)
	require.Same(t, fib, faulted[0])
	require.Equal(t, 0, sched.Len())
}
