package maincmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mna/mainer"

	"github.com/raven-mud/raven/config"
	"github.com/raven-mud/raven/lang/gc"
	"github.com/raven-mud/raven/lang/vm"
	"github.com/raven-mud/raven/log"
	"github.com/raven-mud/raven/server"
	"github.com/raven-mud/raven/vfs"
)

// loginVirtPath is where the root object's login method is expected to
// live in the virtual filesystem (spec.md §5: "the accept loop creates a
// connection, spawns a fiber bound to the root object's login method").
const loginVirtPath = "/login.rvn"

const loginMethodName = "login"

// readLineBuiltinName and writeLineBuiltinName are the native message names
// a script's `login` method sends to block on a line of input and to write
// a line back to its connection (§5's "blocking read primitive" and
// §6's connection_output_str, which have no bytecode opcode of their own —
// see installBuiltins).
const (
	readLineBuiltinName  = "read_line"
	writeLineBuiltinName = "write_line"
)

// installBuiltins installs the read_line/write_line native methods (the
// same two built-ins server_test.go and scheduler_test.go exercise against
// a hand-built blueprint) onto bp, once per blueprint. Without this, no
// script running in the shipped binary can ever block on input or write to
// its connection — fiber.go's own BlockOnInput doc comment describes this
// wiring, but nothing installed it before.
func installBuiltins(bp *vm.Blueprint, syms *vm.SymbolTable) {
	readLineSym := syms.Intern(readLineBuiltinName)
	if _, ok := bp.Methods[readLineSym]; !ok {
		bp.AddMethod(readLineSym, vm.NewNativeFunction(readLineBuiltinName, func(fib *vm.Fiber, self vm.Value, args []vm.Value) (vm.Value, bool) {
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
		}))
	}

	writeLineSym := syms.Intern(writeLineBuiltinName)
	if _, ok := bp.Methods[writeLineSym]; !ok {
		bp.AddMethod(writeLineSym, vm.NewNativeFunction(writeLineBuiltinName, func(fib *vm.Fiber, self vm.Value, args []vm.Value) (vm.Value, bool) {
			conn, ok := fib.Conn.(*server.Connection)
			if !ok || len(args) != 1 {
				return vm.Nil, false
			}
			if s, ok := args[0].Heap().(*vm.String); ok {
				conn.Write(s.Value + "\n")
			}
			return vm.Nil, false
		}))
	}
}

// Serve runs the MUD server: it loads configuration, anchors a virtual
// filesystem at the configured directory, and drives a vm.Scheduler over a
// TCP listener until ctx is cancelled.
func (c *Cmd) Serve(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return printError(stdio, fmt.Errorf("serve: load config: %w", err))
	}
	if len(args) > 0 {
		cfg.AnchorDir = args[0]
	} else if c.Anchor != "" {
		cfg.AnchorDir = c.Anchor
	}

	logger := log.New(stdio.Stderr)

	syms := vm.NewSymbolTable()
	tree := vfs.NewTree(cfg.AnchorDir, syms, stdio.Stderr)
	if err := tree.Load(); err != nil {
		return printError(stdio, fmt.Errorf("serve: load virtual filesystem: %w", err))
	}

	loginSym := syms.Intern(loginMethodName)
	spawn := func(conn *server.Connection) (*vm.Fiber, error) {
		loginFile := tree.Resolve(tree.Root(), loginVirtPath)
		if loginFile == nil {
			return nil, fmt.Errorf("no %s in virtual filesystem", loginVirtPath)
		}
		obj, err := tree.GetObject(loginFile)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", loginVirtPath, err)
		}
		installBuiltins(obj.Blueprint, syms)
		fn, _, ok := obj.Blueprint.Lookup(loginSym)
		if !ok {
			return nil, fmt.Errorf("%s defines no %s method", loginVirtPath, loginMethodName)
		}
		return vm.NewFiber(fn, vm.Ptr(obj), nil), nil
	}

	sched := &vm.Scheduler{TickBudget: cfg.TickBudget, MaxSteps: cfg.MaxSteps}
	srv, err := server.New(cfg.ListenAddr, sched, spawn, logger)
	if err != nil {
		return printError(stdio, fmt.Errorf("serve: %w", err))
	}
	defer srv.Close()

	logger.Printf("listening on %s, anchored at %s", srv.Addr(), cfg.AnchorDir)

	go func() {
		if err := srv.AcceptLoop(); err != nil {
			logger.Printf("accept loop stopped: %s", err)
		}
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	gcTicker := time.NewTicker(30 * time.Second)
	defer gcTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gcTicker.C:
			stats := gc.Collect(vm.DefaultHeap, syms, srv, tree)
			logger.Printf("gc: marked=%d freed=%d", stats.Marked, stats.Freed)
		case <-ticker.C:
			srv.RunOnce()
		}
	}
}
