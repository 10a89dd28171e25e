package server_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/vm"
	"github.com/raven-mud/raven/log"
	"github.com/raven-mud/raven/server"
	"github.com/stretchr/testify/require"
)

// echoSpawner builds a fiber whose bytecode calls a native read_line
// built-in, then echoes the result back over the connection via a second
// native built-in (write_line) — enough to exercise the full accept ->
// spawn -> block -> DeliverInput -> resume -> respond path without a real
// virtual-filesystem-compiled script.
func echoSpawner(t *testing.T) server.LoginSpawner {
	syms := vm.NewSymbolTable()
	readLineSym := syms.Intern("read_line")
	writeLineSym := syms.Intern("write_line")

	bp := vm.NewBlueprint("EchoSession", nil)

	writeLine := vm.NewNativeFunction("write_line", func(fib *vm.Fiber, self vm.Value, args []vm.Value) (vm.Value, bool) {
		if conn, ok := fib.Conn.(*server.Connection); ok && len(args) == 1 {
			s, _ := args[0].Heap().(*vm.String)
			if s != nil {
				conn.Write(s.Value + "\n")
			}
		}
		return vm.Nil, false
	})
	bp.AddMethod(writeLineSym, writeLine)

	readLine := vm.NewNativeFunction("read_line", func(fib *vm.Fiber, self vm.Value, args []vm.Value) (vm.Value, bool) {
		src, ok := fib.Conn.(vm.InputSource)
		if !ok {
			return vm.Nil, false
		}
		if line, ok := src.ReadLine(); ok {
			return vm.Ptr(vm.NewString(line)), false
		}
		fib.BlockOnInput(fib.Conn, func(line string) {
			fib.SetAcc(vm.Ptr(vm.NewString(line)))
		})
		return vm.Nil, true
	})
	bp.AddMethod(readLineSym, readLine)

	w := compiler.NewWriter("login")
	w.PushSelf()
	w.Send(readLineSym, 0)
	// acc now holds the received line; call self.write_line(line)
	w.PushSelf()
	w.Push() // push the received line (still in acc)
	w.Send(writeLineSym, 1)
	w.ReturnOp()
	loginFn := w.Finish(bp)

	return func(conn *server.Connection) (*vm.Fiber, error) {
		obj := vm.NewObject(bp)
		return vm.NewFiber(loginFn, vm.Ptr(obj), nil), nil
	}
}

func TestServerEchoesOneLineRoundTrip(t *testing.T) {
	sched := &vm.Scheduler{TickBudget: 1000}
	logger := log.New(nil)

	srv, err := server.New("127.0.0.1:0", sched, echoSpawner(t), logger)
	require.NoError(t, err)
	defer srv.Close()

	go srv.AcceptLoop()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				srv.RunOnce()
				time.Sleep(2 * time.Millisecond)
			}
		}
	}()
	defer close(done)

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello there\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "hello there\n", reply)
}
