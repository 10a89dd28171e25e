package vm

// FiberStatus is one of the five states a Fiber can be in. Exactly one
// fiber known to a Scheduler is Running at any moment; every other status
// means the scheduler, not the fiber itself, decides when it runs again.
type FiberStatus uint8

const (
	FiberReady FiberStatus = iota
	FiberRunning
	FiberBlockedOnInput
	FiberFinished
	FiberFaulted
)

func (s FiberStatus) String() string {
	switch s {
	case FiberReady:
		return "ready"
	case FiberRunning:
		return "running"
	case FiberBlockedOnInput:
		return "blocked-on-input"
	case FiberFinished:
		return "finished"
	case FiberFaulted:
		return "faulted"
	default:
		return "illegal status"
	}
}

// InputSource is the fiber-facing view of whatever owns the byte stream a
// blocking read primitive consumes — a connection's line buffer, in the
// server package, but fiber.go must not import that package (it is the
// other direction of the dependency: server binds a Fiber to a Connection,
// not the reverse).
type InputSource interface {
	// ReadLine returns the next complete line (terminator stripped) and true,
	// or ("", false) if the buffer has no complete line yet.
	ReadLine() (string, bool)
}

// Frame is one call's activation record: the function being executed, its
// program counter, its local variable slots (slot 0 is always self), and
// the blueprint that defined the executing method (needed by SUPER_SEND,
// which starts its lookup at definingBP.Parent rather than self's own
// blueprint).
type Frame struct {
	fn         *Function
	pc         int
	locals     []Value
	self       Value
	definingBP *Blueprint
}

// Fiber is a cooperatively scheduled unit of VM execution: one operand
// stack, one call-frame stack, and the bookkeeping needed to suspend on a
// blocking read and resume later with no native call stack at all — the
// bytecode loop itself is the only "stack" a fiber needs (§ SUPPLEMENTED
// FEATURES / Coroutine model, option (c)).
type Fiber struct {
	Status FiberStatus

	stack  []Value
	frames []*Frame
	acc    Value

	// Steps is the total number of instructions this fiber has executed
	// across every Run call in its lifetime (not just the current tick-budget
	// round) — Scheduler.MaxSteps, if configured, faults a fiber once this
	// crosses the limit, as a backstop against a script that always yields
	// right at its per-round budget forever without making progress.
	Steps int

	Conn InputSource

	// pendingResume is the callback BlockOnInput registered, invoked with the
	// delivered line on resume; nil unless Status == FiberBlockedOnInput.
	pendingResume func(line string)

	Fault error
}

// NewFiber creates a fiber whose single initial frame calls fn on self with
// args (self goes to local slot 0, args to slots 1 onward; non-method
// top-level calls pass Nil as self).
func NewFiber(fn *Function, self Value, args []Value) *Fiber {
	fib := &Fiber{Status: FiberReady}
	fib.pushFrame(fn, self, args)
	return fib
}

func (fib *Fiber) pushFrame(fn *Function, self Value, args []Value) {
	locals := make([]Value, fn.MaxLocals)
	locals[0] = self
	copy(locals[1:], args)
	fib.frames = append(fib.frames, &Frame{fn: fn, locals: locals, self: self, definingBP: fn.Blueprint})
}

func (fib *Fiber) push(v Value) { fib.stack = append(fib.stack, v) }

func (fib *Fiber) pop() Value {
	n := len(fib.stack) - 1
	v := fib.stack[n]
	fib.stack = fib.stack[:n]
	return v
}

func (fib *Fiber) popN(n int) []Value {
	base := len(fib.stack) - n
	vs := append([]Value(nil), fib.stack[base:]...)
	fib.stack = fib.stack[:base]
	return vs
}

// Result is the fiber's final accumulator value, valid once Status is
// FiberFinished.
func (fib *Fiber) Result() Value { return fib.acc }

// SetAcc sets the accumulator directly. A blocking NativeFunc's resume
// callback (passed to BlockOnInput) uses this to deliver the woken-up
// value — e.g. read_line's resume callback turns the newly arrived line
// into the String the SEND that invoked it should appear to have returned.
func (fib *Fiber) SetAcc(v Value) { fib.acc = v }

func (fib *Fiber) fault(err error) {
	fib.Fault = err
	fib.Status = FiberFaulted
}

// BlockOnInput parks the fiber waiting for conn to produce a complete line;
// resume is invoked with that line once Scheduler.DeliverInput wakes it.
// Exported so a NativeFunc (read_line, which the serve command installs on
// the login object's blueprint) can suspend the fiber it was called on.
func (fib *Fiber) BlockOnInput(conn InputSource, resume func(line string)) {
	fib.Conn = conn
	fib.pendingResume = resume
	fib.Status = FiberBlockedOnInput
}

// resume delivers a line to a fiber blocked on input, making it ready again.
func (fib *Fiber) resume(line string) {
	resume := fib.pendingResume
	fib.pendingResume = nil
	fib.Status = FiberReady
	resume(line)
}

// MarkRoots invokes visit for every Value directly reachable from this
// fiber: its operand stack, every call frame's locals and self, its
// accumulator, and (walked by the collector afterwards) whatever those
// values themselves reference. This is the fiber half of §4.B's root set;
// the other roots (interned symbols, the file tree, the connection list)
// are supplied by package gc's callers, not by vm itself.
func (fib *Fiber) MarkRoots(visit func(Value)) {
	for _, v := range fib.stack {
		visit(v)
	}
	for _, fr := range fib.frames {
		visit(fr.self)
		for _, v := range fr.locals {
			visit(v)
		}
	}
	visit(fib.acc)
}
