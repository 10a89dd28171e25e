package maincmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mna/mainer"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/vm"
)

// Dasm compiles one virtual-filesystem file and prints a disassembly of
// every method its blueprint defines — the `dasm` subcommand.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	tree, f, err := c.openAnchoredFile(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	bp, err := tree.GetBlueprint(f)
	if err != nil {
		return printError(stdio, fmt.Errorf("%s: %w", args[0], err))
	}

	fmt.Fprintf(stdio.Stdout, "blueprint %q\n", bp.Name)
	if bp.Init != nil {
		fmt.Fprintln(stdio.Stdout, compiler.Dasm(bp.Init))
	}
	// bp.Methods is a map; iterating it directly would print methods in a
	// different order on every run. Sort by symbol name so `dasm` output is
	// stable and diffable across invocations.
	names := maps.Keys(bp.Methods)
	slices.SortFunc(names, func(a, b *vm.Symbol) int { return strings.Compare(a.Name, b.Name) })
	for _, name := range names {
		fmt.Fprintln(stdio.Stdout, compiler.Dasm(bp.Methods[name]))
	}
	return nil
}
