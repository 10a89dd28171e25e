package compiler

import "github.com/raven-mud/raven/lang/vm"

// scope is one lexical level of local variable bindings: a block, a
// function body, or (as the outermost scope) the parameter list.
type scope struct {
	parent *scope
	vars   map[*vm.Symbol]int // symbol -> local slot
}

// funcState is shared by a function's root Compiler and every NewSub
// descendant compiling one of its nested blocks: the code writer, the
// defining blueprint, and the local-slot high-water mark all belong to the
// whole function, not to any one lexical scope within it.
type funcState struct {
	cw        *Writer
	bp        *vm.Blueprint
	nextLocal int
}

// Compiler is the façade the parser drives one construct at a time. It owns
// the code writer, the enclosing blueprint (for member-slot resolution),
// the lexical scope stack, and the currently open loop's break/continue
// labels.
type Compiler struct {
	parent *Compiler
	state  *funcState
	scope  *scope

	breakLabel    Label
	haveBreak     bool
	continueLabel Label
	haveContinue  bool
}

// New creates a root compiler for a function body, compiling against bp
// (the blueprint the function is a method of, nil for file-level code).
// Slot 0 is reserved for self; AddArg/AddVar begin allocating at 1.
func New(name string, bp *vm.Blueprint) *Compiler {
	return &Compiler{
		state: &funcState{cw: NewWriter(name), bp: bp, nextLocal: 1},
		scope: &scope{vars: make(map[*vm.Symbol]int)},
	}
}

// NewSub creates a compiler for a nested lexical scope within the same
// function (e.g. a block inside a loop body): it shares the parent's code
// writer, blueprint and local-slot counter, inherits the parent's loop
// context, and opens a fresh innermost scope.
func NewSub(parent *Compiler) *Compiler {
	return &Compiler{
		parent:        parent,
		state:         parent.state,
		scope:         &scope{parent: parent.scope, vars: make(map[*vm.Symbol]int)},
		breakLabel:    parent.breakLabel,
		haveBreak:     parent.haveBreak,
		continueLabel: parent.continueLabel,
		haveContinue:  parent.haveContinue,
	}
}

// Finish hands the root compiler's accumulated code writer state to the
// writer and returns the compiled function. Only the root compiler of a
// function (the one created with New, not NewSub) should call this.
func (c *Compiler) Finish() *vm.Function {
	c.state.cw.ReportLocals(c.state.nextLocal - 1)
	return c.state.cw.Finish(c.state.bp)
}

// AddArg declares a parameter, allocating the next local slot.
func (c *Compiler) AddArg(name *vm.Symbol) int { return c.declareLocal(name) }

// AddVar declares a local variable, allocating the next local slot.
func (c *Compiler) AddVar(name *vm.Symbol) int { return c.declareLocal(name) }

func (c *Compiler) declareLocal(name *vm.Symbol) int {
	slot := c.state.nextLocal
	c.state.nextLocal++
	c.scope.vars[name] = slot
	c.state.cw.ReportLocals(c.state.nextLocal - 1)
	return slot
}

func (c *Compiler) EnableVarargs() { c.state.cw.EnableVarargs() }

// resolution is what LoadVar/StoreVar found: a local slot, a blueprint
// member slot, or (if neither) a bare funcref.
type resolution int

const (
	resLocal resolution = iota
	resMember
	resFuncref
)

func (c *Compiler) resolve(name *vm.Symbol) (resolution, int) {
	for s := c.scope; s != nil; s = s.parent {
		if slot, ok := s.vars[name]; ok {
			return resLocal, slot
		}
	}
	if c.state.bp != nil {
		if slot, ok := c.state.bp.SlotIndex(name); ok {
			return resMember, slot
		}
	}
	return resFuncref, 0
}

// LoadVar emits the load sequence for a bare identifier reference: LOAD_LOCAL
// if it names a local or parameter, LOAD_MEMBER if it names an enclosing
// blueprint's member slot, LOAD_FUNCREF otherwise.
func (c *Compiler) LoadVar(name *vm.Symbol) {
	switch kind, slot := c.resolve(name); kind {
	case resLocal:
		c.state.cw.LoadLocal(slot)
	case resMember:
		c.state.cw.LoadMember(slot)
	default:
		c.state.cw.LoadFuncref(name)
	}
}

// StoreVar emits the store sequence for an assignment target: STORE_LOCAL or
// STORE_MEMBER. Assigning to a name that resolves to neither (a bare
// funcref) is a compile error the parser must catch before calling this.
func (c *Compiler) StoreVar(name *vm.Symbol) (ok bool) {
	switch kind, slot := c.resolve(name); kind {
	case resLocal:
		c.state.cw.StoreLocal(slot)
		return true
	case resMember:
		c.state.cw.StoreMember(slot)
		return true
	default:
		return false
	}
}

func (c *Compiler) LoadSelf()             { c.state.cw.LoadSelf() }
func (c *Compiler) LoadConst(v vm.Value)  { c.state.cw.LoadConst(v) }
func (c *Compiler) LoadArray(n int)       { c.state.cw.LoadArray(n) }
func (c *Compiler) LoadMapping(n int)     { c.state.cw.LoadMapping(n) }
func (c *Compiler) PushSelf()             { c.state.cw.PushSelf() }
func (c *Compiler) Push()                 { c.state.cw.Push() }
func (c *Compiler) Pop()                  { c.state.cw.Pop() }
func (c *Compiler) BinOp(b BinOp)         { c.state.cw.Op(b) }
func (c *Compiler) Send(msg *vm.Symbol, argc int) {
	c.state.cw.Send(msg, argc)
}
func (c *Compiler) SuperSend(msg *vm.Symbol, argc int) {
	c.state.cw.SuperSend(msg, argc)
}
func (c *Compiler) Return() { c.state.cw.ReturnOp() }

func (c *Compiler) OpenLabel() Label       { return c.state.cw.OpenLabel() }
func (c *Compiler) PlaceLabel(label Label) { c.state.cw.PlaceLabel(label) }
func (c *Compiler) CloseLabel(label Label) { c.state.cw.CloseLabel(label) }
func (c *Compiler) Jump(label Label)       { c.state.cw.Jump(label) }
func (c *Compiler) JumpIf(label Label)     { c.state.cw.JumpIf(label) }
func (c *Compiler) JumpIfNot(label Label)  { c.state.cw.JumpIfNot(label) }

// OpenLoop opens fresh break/continue labels for a new loop and makes them
// the current ones, overwriting the enclosing loop's. It does not save the
// enclosing labels itself: a caller nesting loops saves them first with
// SaveLoopContext and restores them afterwards.
func (c *Compiler) OpenLoop() (breakLabel, continueLabel Label) {
	breakLabel = c.state.cw.OpenLabel()
	continueLabel = c.state.cw.OpenLabel()
	c.breakLabel, c.haveBreak = breakLabel, true
	c.continueLabel, c.haveContinue = continueLabel, true
	return breakLabel, continueLabel
}

// CloseLoop restores whatever break/continue context was active before the
// matching OpenLoop, per the saved values supplied by the caller (normally
// obtained by the caller snapshotting haveBreak/haveContinue via
// SaveLoopContext before OpenLoop).
func (c *Compiler) CloseLoop(saved LoopContext) {
	c.breakLabel, c.haveBreak = saved.breakLabel, saved.haveBreak
	c.continueLabel, c.haveContinue = saved.continueLabel, saved.haveContinue
}

// LoopContext is an opaque snapshot of the compiler's break/continue state,
// saved before OpenLoop and restored by CloseLoop once the loop body has
// been compiled.
type LoopContext struct {
	breakLabel    Label
	haveBreak     bool
	continueLabel Label
	haveContinue  bool
}

func (c *Compiler) SaveLoopContext() LoopContext {
	return LoopContext{c.breakLabel, c.haveBreak, c.continueLabel, c.haveContinue}
}

// Break emits a jump to the innermost enclosing loop's break label. It
// returns false (a compile error for the caller to report) if no loop is
// open.
func (c *Compiler) Break() bool {
	if !c.haveBreak {
		return false
	}
	c.state.cw.Jump(c.breakLabel)
	return true
}

// Continue emits a jump to the innermost enclosing loop's continue label.
// It returns false (a compile error for the caller to report) if no loop is
// open.
func (c *Compiler) Continue() bool {
	if !c.haveContinue {
		return false
	}
	c.state.cw.Jump(c.continueLabel)
	return true
}
