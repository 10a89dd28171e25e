// Package parser implements Raven's single-pass recursive-descent parsepiler:
// it recognizes source constructs and emits their bytecode directly through
// the compiler façade as it goes. No intermediate syntax tree is built or
// retained.
package parser

import (
	"fmt"

	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/scanner"
	"github.com/raven-mud/raven/lang/token"
	"github.com/raven-mud/raven/lang/vm"
)

// ResolveParent looks up the blueprint compiled from another virtual file,
// for an `inherit` declaration. It is supplied by the virtual filesystem,
// which alone knows how to turn a path into a compiled blueprint (compiling
// it on demand if necessary) — parser does not depend on vfs.
type ResolveParent func(path string) (*vm.Blueprint, error)

// Parser holds all state for a single compile of one source file into one
// blueprint.
type Parser struct {
	file *token.File
	scan scanner.Scanner
	syms *vm.SymbolTable

	resolveParent ResolveParent

	tok token.Value // current token
	errs ErrorList

	bp *vm.Blueprint
	c  *compiler.Compiler // current (innermost) compiler, nil outside a method body
}

// ParseBlueprint compiles src (the contents of virtual file name) into a new
// blueprint. syms interns every identifier encountered. resolveParent is
// consulted for an `inherit` declaration, if present.
func ParseBlueprint(fs *token.FileSet, name string, src []byte, syms *vm.SymbolTable, resolveParent ResolveParent) (*vm.Blueprint, error) {
	p := &Parser{syms: syms, resolveParent: resolveParent}
	p.file = fs.AddFile(name, -1, len(src))
	p.scan.Init(p.file, src, func(pos token.Position, msg string) {
		p.errs.Add(pos, msg)
	})
	p.advance()

	p.parseSourceFile(name)

	p.errs.Sort()
	return p.bp, p.errs.Err()
}

func (p *Parser) sym(name string) *vm.Symbol { return p.syms.Intern(name) }

func (p *Parser) advance() { p.tok.Tok = p.scan.Scan(&p.tok) }

func (p *Parser) at(tok token.Token) bool { return p.tok.Tok == tok }

func (p *Parser) accept(tok token.Token) bool {
	if p.at(tok) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tok token.Token) token.Value {
	val := p.tok
	if !p.at(tok) {
		p.errorf("expected %s, found %s", tok, p.tok.Tok)
		return val
	}
	p.advance()
	return val
}

func (p *Parser) error(msg string) {
	p.errs.Add(p.file.Position(p.tok.Pos), msg)
}

func (p *Parser) errorf(format string, args ...any) {
	p.error(fmt.Sprintf(format, args...))
}

// resync skips tokens until a statement boundary (a SEMI just consumed, or
// the start of a new member/statement) so that one parse can report more
// than one error instead of aborting at the first.
func (p *Parser) resync() {
	for {
		switch p.tok.Tok {
		case token.EOF, token.SEMI, token.RBRACE:
			if p.tok.Tok == token.SEMI {
				p.advance()
			}
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) parseSourceFile(name string) {
	var parent *vm.Blueprint
	if p.at(token.INHERIT) {
		p.advance()
		path := p.expect(token.STRING)
		p.expect(token.SEMI)
		if p.resolveParent != nil {
			par, err := p.resolveParent(path.Raw)
			if err != nil {
				p.errorf("cannot inherit %q: %s", path.Raw, err)
			} else {
				parent = par
			}
		} else {
			p.errorf("inherit %q: no parent resolver configured", path.Raw)
		}
	}

	p.bp = vm.NewBlueprint(name, parent)

	for !p.at(token.EOF) {
		p.parseMember()
	}
}

func (p *Parser) parseMember() {
	switch {
	case p.at(token.VAR):
		p.advance()
		name := p.expect(token.IDENT)
		p.expect(token.SEMI)
		p.bp.AddSlot(p.sym(name.Raw))

	case p.at(token.IDENT):
		p.parseMethod()

	default:
		p.errorf("expected member declaration, found %s", p.tok.Tok)
		p.resync()
	}
}

func (p *Parser) parseMethod() {
	name := p.expect(token.IDENT)
	self := p.sym(name.Raw)

	outer := p.c
	p.c = compiler.New(name.Raw, p.bp)

	p.expect(token.LPAREN)
	if !p.at(token.RPAREN) {
		for {
			arg := p.expect(token.IDENT)
			p.c.AddArg(p.sym(arg.Raw))
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)

	p.parseBlockInto(p.c)

	fn := p.c.Finish()
	p.bp.AddMethod(self, fn)
	if name.Raw == initMethodName {
		p.bp.Init = fn
	}
	p.c = outer
}

// initMethodName is the constructor method GetObject runs automatically on
// a blueprint's freshly materialized singleton (vm.Blueprint.Init), if the
// blueprint defines one. It stays in the ordinary method table too, so
// `self.init()` can still be sent explicitly (e.g. from a subclass that
// wants to re-run the parent's setup).
const initMethodName = "init"
