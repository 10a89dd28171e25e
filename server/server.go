package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/raven-mud/raven/lang/vm"
	"github.com/raven-mud/raven/log"
)

// LoginSpawner creates the fiber a freshly accepted connection should run —
// ordinarily a call into the virtual filesystem's root object's login
// method. It is supplied by the caller (cmd/raven's serve command) so this
// package never needs to import vfs.
type LoginSpawner func(conn *Connection) (*vm.Fiber, error)

// Server accepts TCP connections and hands each one a fiber, bound
// bidirectionally per Connection.SetFiber, multiplexed by a single
// vm.Scheduler — spec.md §5's "single-threaded cooperative... no locks
// because no two fibers execute concurrently" model.
//
// That single-threaded model only holds if every call into sched happens
// from one goroutine. AcceptLoop and each connection's readLoop run on their
// own goroutines (so a slow client can't stall accepting others, and a slow
// accept can't stall delivering input), so neither is allowed to touch sched
// directly: they hand new fibers and newly arrived lines to RunOnce via
// buffered channels, and RunOnce — expected to be driven from a single
// goroutine — drains both before stepping the scheduler.
type Server struct {
	ln     net.Listener
	sched  *vm.Scheduler
	spawn  LoginSpawner
	logger *log.Logger

	newFibers chan *vm.Fiber
	inputs    chan inputEvent

	mu    sync.Mutex
	conns []*Connection
}

type inputEvent struct {
	conn *Connection
	line string
}

// New creates a Server bound to addr, driving sched and spawning a fiber
// for each new connection via spawn.
func New(addr string, sched *vm.Scheduler, spawn LoginSpawner, logger *log.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return &Server{
		ln:        ln,
		sched:     sched,
		spawn:     spawn,
		logger:    logger,
		newFibers: make(chan *vm.Fiber, 256),
		inputs:    make(chan inputEvent, 256),
	}, nil
}

// Addr is the address the listener is actually bound to (useful when addr
// was ":0" for tests).
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops accepting new connections; already-accepted connections are
// unaffected (the scheduler keeps driving their fibers to completion).
func (s *Server) Close() error { return s.ln.Close() }

// AcceptLoop accepts connections until Close is called, spawning a fiber
// for each one and starting its line-reading goroutine. It returns once the
// listener is closed.
func (s *Server) AcceptLoop() error {
	for {
		raw, err := s.ln.Accept()
		if err != nil {
			return err
		}
		s.handleAccept(raw)
	}
}

func (s *Server) handleAccept(raw net.Conn) {
	conn := newConnection(raw)

	fib, err := s.spawn(conn)
	if err != nil {
		s.logger.Printf("spawn failed for %s: %s", raw.RemoteAddr(), err)
		conn.Close()
		return
	}
	conn.SetFiber(fib)

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	s.newFibers <- fib
	go conn.readLoop(func(line string) {
		s.inputs <- inputEvent{conn: conn, line: line}
	})
}

// RunOnce advances the scheduler by one round and handles whatever faulted,
// per spec.md §7.2: a diagnostic is logged, the owning connection (if any)
// is closed, the fiber is dropped. It must be called from a single goroutine
// only — it is the sole place sched is ever touched, draining fibers queued
// by AcceptLoop and lines queued by every connection's readLoop before
// stepping the scheduler itself.
func (s *Server) RunOnce() {
drainFibers:
	for {
		select {
		case fib := <-s.newFibers:
			s.sched.Spawn(fib)
		default:
			break drainFibers
		}
	}
drainInputs:
	for {
		select {
		case ev := <-s.inputs:
			s.sched.DeliverInput(ev.conn, ev.line)
		default:
			break drainInputs
		}
	}
	for _, fib := range s.sched.RunOnce() {
		s.logger.Fault(fib.Fault)
		if fib.Conn != nil {
			if conn, ok := fib.Conn.(*Connection); ok {
				conn.Write(fmt.Sprintf("*** fault: %s\n", fib.Fault))
				conn.Close()
			}
		}
	}
}

// MarkRoots implements gc.Root: every connection's bound fiber is a root,
// regardless of whether the scheduler currently has it in its ready or
// blocked set (a fiber that just finished but whose connection hasn't been
// reaped yet still shouldn't be swept out from under the connection).
func (s *Server) MarkRoots(visit func(vm.Value)) {
	s.mu.Lock()
	conns := append([]*Connection(nil), s.conns...)
	s.mu.Unlock()
	for _, c := range conns {
		if fib := c.Fiber(); fib != nil {
			fib.MarkRoots(visit)
		}
	}
}
