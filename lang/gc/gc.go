// Package gc implements Raven's mark-and-sweep collector (spec.md §4.B): a
// policy layer over the mark-bit and sweep-list mechanics package vm exposes
// (vm.Mark, vm.Walk, vm.Heap.Sweep), since those mechanics touch a heap
// object's Header directly and Header's fields are deliberately unexported
// outside vm.
package gc

import "github.com/raven-mud/raven/lang/vm"

// Root is anything that can name the Values it holds directly reachable —
// a live fiber, the connection list's bound fibers, a virtual filesystem's
// cached blueprints and objects. It mirrors the dependency-inversion already
// used between lang/parser and vfs (parser.ResolveParent): package gc does
// not import vfs, so the caller (the serve command, which triggers
// collection) supplies its roots as values satisfying this one-method
// interface instead.
type Root interface {
	MarkRoots(visit func(vm.Value))
}

// Stats summarizes one collection cycle.
type Stats struct {
	Marked int
	Freed  int
}

// Collect runs one full mark-and-sweep cycle rooted at roots, plus every
// interned symbol in syms. Symbols are not registered on the heap, so they
// are never freed; their references are walked as roots, but the symbols
// themselves are not marked and not counted in Stats.Marked (no sweep would
// ever clear a mark bit set on them).
func Collect(heap *vm.Heap, syms *vm.SymbolTable, roots ...Root) Stats {
	marked := 0
	var worklist []vm.HeapObject

	markValue := func(v vm.Value) {
		if !v.IsPtr() {
			return
		}
		obj := v.Heap()
		if obj == nil {
			return
		}
		if vm.Mark(obj) {
			marked++
			worklist = append(worklist, obj)
		}
	}

	for _, r := range roots {
		r.MarkRoots(markValue)
	}
	if syms != nil {
		syms.Each(func(sym *vm.Symbol) { vm.Walk(sym, markValue) })
	}

	for len(worklist) > 0 {
		n := len(worklist) - 1
		obj := worklist[n]
		worklist = worklist[:n]
		vm.Walk(obj, markValue)
	}

	freed := heap.Sweep()
	return Stats{Marked: marked, Freed: freed}
}
