package vfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raven-mud/raven/lang/token"
	"github.com/raven-mud/raven/lang/vm"
	"github.com/raven-mud/raven/log"
)

// Tree is the virtual filesystem rooted at one host directory (the
// "anchor", spec.md §6). It owns the symbol table and file set shared by
// every compile triggered through it, so that blueprints compiled from
// different virtual files still share one interned-symbol universe.
type Tree struct {
	anchor string
	root   *File
	syms   *vm.SymbolTable
	fset   *token.FileSet
	log    *log.Logger
}

// NewTree creates an empty tree anchored at dir. Call Load to populate it
// from the host filesystem. diag receives compile diagnostics (one line per
// failure) and Load's progress lines; a nil diag discards them.
func NewTree(dir string, syms *vm.SymbolTable, diag io.Writer) *Tree {
	t := &Tree{anchor: dir, syms: syms, fset: token.NewFileSet(), log: log.New(diag)}
	t.root = newFile("", nil, dir, true)
	return t
}

// Root is the tree's root node, whose VirtPath is "/".
func (t *Tree) Root() *File { return t.root }

// Load walks the anchor directory recursively, creating a virtual file node
// for every entry (directories and regular files alike) without compiling
// anything eagerly (file_load). Dot entries are skipped. Calling Load again
// re-walks the host tree, adding nodes for anything new; it does not delete
// nodes whose host entry has since disappeared (Delete does that
// explicitly).
func (t *Tree) Load() error {
	return t.load(t.root)
}

func (t *Tree) load(dir *File) error {
	t.log.Printf("loading %s", dir.realPath)
	entries, err := os.ReadDir(dir.realPath)
	if err != nil {
		return fmt.Errorf("vfs: reading %s: %w", dir.realPath, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := dir.Child(name); ok {
			continue
		}
		child := newFile(name, dir, filepath.Join(dir.realPath, name), entry.IsDir())
		dir.addChild(child)
		if child.isDir {
			if err := t.load(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tree) readSource(f *File) ([]byte, error) {
	if f.isDir {
		return nil, fmt.Errorf("vfs: %s is a directory", f.VirtPath())
	}
	return os.ReadFile(f.realPath)
}

// Delete removes f (and its subtree) from the tree, clearing its cached
// blueprint and object so they become collectible (file_delete).
func (t *Tree) Delete(f *File) {
	f.delete()
}

// Resolve interprets path against from (the starting directory for a
// relative lookup; ignored for a path beginning with "/", which always
// anchors at the tree root) per spec.md §4.H's grammar: "." and ".."
// resolve conventionally, any other component must name an existing child
// exactly. It returns nil if any component fails to resolve.
func (t *Tree) Resolve(from *File, path string) *File {
	cur := from
	if strings.HasPrefix(path, "/") {
		cur = t.root
		path = path[1:]
	}
	if cur == nil {
		cur = t.root
	}
	if path == "" {
		return cur
	}
	for _, comp := range strings.Split(path, "/") {
		if cur == nil {
			return nil
		}
		switch comp {
		case "":
			continue // a doubled "/" or trailing "/"; not an error, just a no-op
		case ".":
			// stays at cur
		case "..":
			if cur.parent == nil {
				return nil
			}
			cur = cur.parent
		default:
			child, ok := cur.Child(comp)
			if !ok {
				return nil
			}
			cur = child
		}
	}
	return cur
}

// MarkRoots implements gc.Root: every cached blueprint and singleton object
// still reachable from the tree is a GC root (file_mark), regardless of
// whether any fiber currently references it.
func (t *Tree) MarkRoots(visit func(vm.Value)) {
	t.markFile(t.root, visit)
}

func (t *Tree) markFile(f *File, visit func(vm.Value)) {
	f.mu.Lock()
	bp, obj := f.blueprint, f.object
	f.mu.Unlock()
	if bp != nil {
		visit(vm.Ptr(bp))
	}
	if obj != nil {
		visit(vm.Ptr(obj))
	}
	if f.children != nil {
		f.children.Iter(func(_ string, child *File) bool {
			t.markFile(child, visit)
			return false
		})
	}
}
