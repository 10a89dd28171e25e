package vm

import "fmt"

// Scheduler multiplexes fibers cooperatively, single-threaded, round-robin,
// per spec.md §4.F/§5: at most one fiber ever runs at a time, and each gets
// at most TickBudget instructions before it is made to yield so one runaway
// script cannot starve the others or the network loop.
type Scheduler struct {
	// TickBudget is the instruction count each fiber is allowed per turn
	// before it is forced to yield. <= 0 means unlimited (tests only; the
	// server always configures a positive budget).
	TickBudget int

	// MaxSteps bounds the total instructions a single fiber may execute
	// across its entire lifetime, not just one round; <= 0 means unbounded
	// (left to TickBudget alone to keep rounds fair). A fiber that keeps
	// yielding right at its tick budget forever, never finishing or
	// blocking, is faulted once Fiber.Steps crosses this — the resource
	// exhaustion the accept loop's caller needs to be able to drop a
	// runaway script instead of scheduling it forever.
	MaxSteps int

	ready   []*Fiber
	blocked []*Fiber
}

// Spawn adds a new fiber to the ready queue.
func (s *Scheduler) Spawn(fib *Fiber) {
	fib.Status = FiberReady
	s.ready = append(s.ready, fib)
}

// RunOnce advances the scheduler by one round: every currently-ready fiber
// runs for up to TickBudget instructions. Fibers that finish or fault are
// dropped; fibers that block on input move to the blocked set; fibers that
// are still ready (tick budget exhausted mid-execution) stay in the queue
// for the next round. It returns the fibers that faulted this round, so the
// caller can log diagnostics and close their connections (§4.F: "the fault
// is logged; if the fiber owns a connection, a diagnostic is written and
// the connection closed").
func (s *Scheduler) RunOnce() (faulted []*Fiber) {
	current := s.ready
	s.ready = nil
	for _, fib := range current {
		if fib.Status != FiberReady {
			continue
		}
		fib.Run(s.TickBudget)
		if fib.Status == FiberReady && s.MaxSteps > 0 && fib.Steps >= s.MaxSteps {
			fib.fault(fmt.Errorf("vm: fiber exceeded max step limit (%d)", s.MaxSteps))
		}
		switch fib.Status {
		case FiberReady:
			s.ready = append(s.ready, fib)
		case FiberBlockedOnInput:
			s.blocked = append(s.blocked, fib)
		case FiberFinished:
			// dropped: nothing left to schedule
		case FiberFaulted:
			faulted = append(faulted, fib)
		}
	}
	return faulted
}

// DeliverInput is called by the network loop when conn produces a complete
// line for a fiber that is blocked on it. It moves every blocked fiber
// waiting on conn back to the ready queue (ordinarily exactly one fiber
// blocks per connection, since a connection has at most one bound fiber).
func (s *Scheduler) DeliverInput(conn InputSource, line string) {
	remaining := s.blocked[:0]
	for _, fib := range s.blocked {
		if fib.Conn == conn {
			fib.resume(line)
			s.ready = append(s.ready, fib)
		} else {
			remaining = append(remaining, fib)
		}
	}
	s.blocked = remaining
}

// Len reports how many fibers the scheduler currently knows about (ready or
// blocked), for diagnostics and tests.
func (s *Scheduler) Len() int { return len(s.ready) + len(s.blocked) }

// Fibers visits every fiber the scheduler currently tracks, ready or
// blocked. The collector does not call it; the serve command roots
// collection at the server's connections and the file tree.
func (s *Scheduler) Fibers(visit func(*Fiber)) {
	for _, fib := range s.ready {
		visit(fib)
	}
	for _, fib := range s.blocked {
		visit(fib)
	}
}
