package vfs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/raven-mud/raven/lang/vm"
	"github.com/raven-mud/raven/vfs"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLoadBuildsTreeWithoutEagerCompile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root.rv"), "greet(x) { return x; }")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rooms"), 0o755))
	writeFile(t, filepath.Join(dir, "rooms", "start.rv"), "look() { return 1; }")
	writeFile(t, filepath.Join(dir, ".hidden.rv"), "bad syntax {{{")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	root := tree.Root()
	_, ok := root.Child("root.rv")
	require.True(t, ok)

	rooms, ok := root.Child("rooms")
	require.True(t, ok)
	require.True(t, rooms.IsDir())

	start, ok := rooms.Child("start.rv")
	require.True(t, ok)
	require.Equal(t, "/rooms/start.rv", start.VirtPath())

	_, ok = root.Child(".hidden.rv")
	require.False(t, ok, "dot entries must be skipped")
}

func TestResolveHandlesAbsoluteDotAndDotDot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rooms", "start.rv"), "look() { return 1; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	root := tree.Root()
	rooms, _ := root.Child("rooms")
	start, _ := rooms.Child("start.rv")

	require.Same(t, start, tree.Resolve(root, "/rooms/start.rv"))
	require.Same(t, start, tree.Resolve(rooms, "start.rv"))
	require.Same(t, rooms, tree.Resolve(start, ".."))
	require.Same(t, start, tree.Resolve(start, "."))
	require.Nil(t, tree.Resolve(root, "/nope"))
}

func TestResolveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rooms", "start.rv"), "look() { return 1; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	node := tree.Resolve(tree.Root(), "/rooms/start.rv")
	require.NotNil(t, node)
	again := tree.Resolve(tree.Root(), node.VirtPath())
	require.Same(t, node, again)
}

func TestGetBlueprintCompilesOnceAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "greeter.rv"), "greet(x) { return x; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	f, _ := tree.Root().Child("greeter.rv")
	bp1, err := tree.GetBlueprint(f)
	require.NoError(t, err)
	require.NotNil(t, bp1)

	bp2, err := tree.GetBlueprint(f)
	require.NoError(t, err)
	require.Same(t, bp1, bp2, "second call must hit the cache, not recompile")
}

func TestGetBlueprintReportsParseFailureAndCachesIt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.rv"), "oops {{{")

	var diag bytes.Buffer
	tree := vfs.NewTree(dir, vm.NewSymbolTable(), &diag)
	require.NoError(t, tree.Load())

	f, _ := tree.Root().Child("broken.rv")
	bp, err := tree.GetBlueprint(f)
	require.Error(t, err)
	require.Nil(t, bp)
	require.NotEmpty(t, diag.String())

	// a second call without an intervening Recompile returns the same
	// cached failure rather than silently recompiling again
	bp2, err2 := tree.GetBlueprint(f)
	require.Error(t, err2)
	require.Nil(t, bp2)
}

func TestGetObjectMaterializesSingleton(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "greeter.rv"), "greet(x) { return x; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	f, _ := tree.Root().Child("greeter.rv")
	obj1, err := tree.GetObject(f)
	require.NoError(t, err)
	require.NotNil(t, obj1)

	obj2, err := tree.GetObject(f)
	require.NoError(t, err)
	require.Same(t, obj1, obj2)
}

func TestInheritResolvesParentBlueprintThroughTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.rv"), `greet() { return 1; }`)
	writeFile(t, filepath.Join(dir, "child.rv"), `inherit "/base.rv";
hello() { return 2; }`)

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	child, _ := tree.Root().Child("child.rv")
	bp, err := tree.GetBlueprint(child)
	require.NoError(t, err)
	require.NotNil(t, bp.Parent)
	require.Equal(t, "/base.rv", bp.Parent.Name)
}

func TestRecompileLeavesExistingObjectsOnOldBlueprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "room.rv")
	writeFile(t, path, "look() { return 1; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	f, _ := tree.Root().Child("room.rv")
	obj, err := tree.GetObject(f)
	require.NoError(t, err)
	oldBP := obj.Blueprint

	writeFile(t, path, "look() { return 2; }")
	newBP, err := tree.Recompile(f)
	require.NoError(t, err)
	require.NotSame(t, oldBP, newBP)
	require.Same(t, oldBP, obj.Blueprint, "existing objects keep their old blueprint")
}

func TestDeleteClearsCachesAndDetachesSubtree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "room.rv"), "look() { return 1; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	f, _ := tree.Root().Child("room.rv")
	_, err := tree.GetObject(f)
	require.NoError(t, err)

	tree.Delete(f)
	_, ok := tree.Root().Child("room.rv")
	require.False(t, ok)
}

func TestMarkRootsVisitsCachedBlueprintsAndObjects(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "room.rv"), "look() { return 1; }")

	tree := vfs.NewTree(dir, vm.NewSymbolTable(), nil)
	require.NoError(t, tree.Load())

	f, _ := tree.Root().Child("room.rv")
	obj, err := tree.GetObject(f)
	require.NoError(t, err)

	var seen []vm.Value
	tree.MarkRoots(func(v vm.Value) { seen = append(seen, v) })

	foundObj, foundBP := false, false
	for _, v := range seen {
		if v.Heap() == vm.HeapObject(obj) {
			foundObj = true
		}
		if v.Heap() == vm.HeapObject(obj.Blueprint) {
			foundBP = true
		}
	}
	require.True(t, foundObj)
	require.True(t, foundBP)
}
