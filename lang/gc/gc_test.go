package gc_test

import (
	"testing"

	"github.com/raven-mud/raven/lang/gc"
	"github.com/raven-mud/raven/lang/vm"
	"github.com/stretchr/testify/require"
)

type fakeRoot struct{ values []vm.Value }

func (r fakeRoot) MarkRoots(visit func(vm.Value)) {
	for _, v := range r.values {
		visit(v)
	}
}

func TestCollectFreesUnreachableBlueprint(t *testing.T) {
	heap := &vm.Heap{}
	prevDefault := vm.DefaultHeap
	vm.DefaultHeap = heap
	defer func() { vm.DefaultHeap = prevDefault }()

	syms := vm.NewSymbolTable()
	bp := vm.NewBlueprint("Doomed", nil)
	greet := syms.Intern("greet")
	fn := vm.NewFunction("greet", []byte{}, nil, 1, false, bp)
	bp.AddMethod(greet, fn)

	require.Equal(t, 2, heap.Len()) // the blueprint and its method

	stats := gc.Collect(heap, syms) // no live roots reference bp anymore
	require.Equal(t, 0, stats.Marked)
	require.Equal(t, 2, stats.Freed)
	require.Equal(t, 0, heap.Len())
}

func TestCollectPreservesReachableObject(t *testing.T) {
	heap := &vm.Heap{}
	prevDefault := vm.DefaultHeap
	vm.DefaultHeap = heap
	defer func() { vm.DefaultHeap = prevDefault }()

	syms := vm.NewSymbolTable()
	bp := vm.NewBlueprint("Alive", nil)
	obj := vm.NewObject(bp)

	root := fakeRoot{values: []vm.Value{vm.Ptr(obj)}}
	stats := gc.Collect(heap, syms, root)

	require.Equal(t, 0, stats.Freed) // bp and obj both still reachable
	require.Equal(t, 2, heap.Len())
}

func TestCollectSymbolsAreNeverFreed(t *testing.T) {
	heap := &vm.Heap{}
	prevDefault := vm.DefaultHeap
	vm.DefaultHeap = heap
	defer func() { vm.DefaultHeap = prevDefault }()

	syms := vm.NewSymbolTable()
	syms.Intern("alpha")
	syms.Intern("beta")

	stats := gc.Collect(heap, syms)
	require.Equal(t, 0, stats.Freed)

	count := 0
	syms.Each(func(*vm.Symbol) { count++ })
	require.Equal(t, 2, count)
}
