// Package server is Raven's TCP front end: a minimal accept loop, one
// Connection per socket with a buffer of complete input lines, and the glue
// binding each connection to a fiber run by a vm.Scheduler. Grounded on
// _examples/original_source/src/core/objects/connection.h (socket, input
// ring buffer, bound fiber, bidirectional consistency between a connection
// and the fiber that owns it) translated to idiomatic Go: no raw socket
// descriptor, net.Conn instead; no intrusive linked list, a slice on Server.
// Telnet option negotiation is out of scope (spec.md §1 Non-goals via the
// "ambient, not hard-engineering" carve-out): lines are framed on bare "\n".
package server

import (
	"bufio"
	"net"
	"strings"
	"sync"

	"github.com/raven-mud/raven/lang/vm"
)

// Connection is one accepted socket, line-buffering its input and exposing
// vm.InputSource so a bound fiber's blocking read primitives can consume it.
type Connection struct {
	conn net.Conn

	mu      sync.Mutex
	lines   []string
	closed  bool
	fiber   *vm.Fiber
}

func newConnection(conn net.Conn) *Connection {
	return &Connection{conn: conn}
}

// Fiber is the fiber currently bound to this connection, or nil.
func (c *Connection) Fiber() *vm.Fiber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fiber
}

// SetFiber binds fib to this connection, enforcing connection_set_fiber's
// bidirectional invariant: the connection points at the fiber, and the
// fiber's Conn field (consulted by vm.Scheduler.DeliverInput) points back.
func (c *Connection) SetFiber(fib *vm.Fiber) {
	c.mu.Lock()
	c.fiber = fib
	c.mu.Unlock()
	if fib != nil {
		fib.Conn = c
	}
}

// ReadLine implements vm.InputSource: it returns the oldest buffered
// complete line (if any) without blocking, consuming it. The network
// read loop (readLoop) is what actually appends newly arrived lines.
func (c *Connection) ReadLine() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return "", false
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, true
}

func (c *Connection) pushLine(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Write sends str to the remote peer (connection_output_str).
func (c *Connection) Write(str string) error {
	_, err := c.conn.Write([]byte(str))
	return err
}

// Close closes the underlying socket (connection_close). Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop reads raw bytes off the socket and appends each newline-framed
// line to the connection's buffer (connection_input), notifying notify of
// each complete line so the caller can deliver it to the scheduler. It
// returns when the connection is closed or the peer disconnects.
func (c *Connection) readLoop(notify func(line string)) {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		c.pushLine(line)
		notify(line)
	}
}
