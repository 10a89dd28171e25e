package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/raven-mud/raven/lang/vm"
	"github.com/raven-mud/raven/vfs"
)

// openAnchoredFile resolves path against a freshly loaded virtual
// filesystem anchored at c.Anchor (or "." if unset), returning the file
// node and the tree it belongs to.
func (c *Cmd) openAnchoredFile(path string) (*vfs.Tree, *vfs.File, error) {
	anchor := c.Anchor
	if anchor == "" {
		anchor = "."
	}
	syms := vm.NewSymbolTable()
	tree := vfs.NewTree(anchor, syms, nil)
	if err := tree.Load(); err != nil {
		return nil, nil, fmt.Errorf("load virtual filesystem at %s: %w", anchor, err)
	}
	f := tree.Resolve(tree.Root(), path)
	if f == nil {
		return nil, nil, fmt.Errorf("no such virtual file: %s", path)
	}
	return tree, f, nil
}

// Compile compiles one virtual-filesystem file and reports success or
// failure — the `compile` subcommand.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	tree, f, err := c.openAnchoredFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	bp, err := tree.GetBlueprint(f)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", args[0], err))
	}
	fmt.Fprintf(stdio.Stdout, "%s: ok, blueprint %q (%d slot(s))\n", args[0], bp.Name, bp.NumSlots())
	return nil
}
