package parser

import (
	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/token"
)

// parseBlockInto parses `{ stmt* }` using c as the active compiler. c is
// usually a fresh sub-compiler of the caller's, so that locals declared
// inside the block don't leak into sibling blocks by name (the underlying
// slot counter is still shared across the whole function, per
// compiler.NewSub).
func (p *Parser) parseBlockInto(c *compiler.Compiler) {
	p.expect(token.LBRACE)
	outer := p.c
	p.c = c
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.parseStmt()
	}
	p.expect(token.RBRACE)
	p.c = outer
}

func (p *Parser) parseBlock() {
	p.parseBlockInto(compiler.NewSub(p.c))
}

func (p *Parser) parseStmt() {
	switch p.tok.Tok {
	case token.LBRACE:
		p.parseBlock()
	case token.IF:
		p.parseIf()
	case token.WHILE:
		p.parseWhile()
	case token.FOR:
		p.parseFor()
	case token.BREAK:
		p.advance()
		if !p.c.Break() {
			p.error("break outside of a loop")
		}
		p.expect(token.SEMI)
	case token.CONTINUE:
		p.advance()
		if !p.c.Continue() {
			p.error("continue outside of a loop")
		}
		p.expect(token.SEMI)
	case token.RETURN:
		p.advance()
		if p.at(token.SEMI) {
			p.c.LoadConst(nilValue)
		} else {
			p.parseExpr()
		}
		p.expect(token.SEMI)
		p.c.Return()
	case token.VAR:
		p.parseVarStmt()
	default:
		p.parseExprStmt()
	}
}

func (p *Parser) parseVarStmt() {
	p.advance()
	name := p.expect(token.IDENT)
	sym := p.sym(name.Raw)
	if p.accept(token.ASSIGN) {
		p.parseExpr()
	} else {
		p.c.LoadConst(nilValue)
	}
	p.c.AddVar(sym)
	p.c.StoreVar(sym)
	p.expect(token.SEMI)
}

func (p *Parser) parseExprStmt() {
	p.parseExpr()
	p.expect(token.SEMI)
}

func (p *Parser) parseIf() {
	p.advance()
	p.expect(token.LPAREN)
	p.parseExpr()
	p.expect(token.RPAREN)

	elseLabel := p.c.OpenLabel()
	p.c.JumpIfNot(elseLabel)
	p.parseStmt()

	if p.accept(token.ELSE) {
		endLabel := p.c.OpenLabel()
		p.c.Jump(endLabel)
		p.c.PlaceLabel(elseLabel)
		p.parseStmt()
		p.c.PlaceLabel(endLabel)
	} else {
		p.c.PlaceLabel(elseLabel)
	}
}

func (p *Parser) parseWhile() {
	p.advance()
	saved := p.c.SaveLoopContext()
	breakLabel, continueLabel := p.c.OpenLoop()

	p.c.PlaceLabel(continueLabel)
	p.expect(token.LPAREN)
	p.parseExpr()
	p.expect(token.RPAREN)
	p.c.JumpIfNot(breakLabel)

	p.parseStmt()
	p.c.Jump(continueLabel)
	p.c.PlaceLabel(breakLabel)
	p.c.CloseLoop(saved)
}

// parseFor compiles `for (init; cond) body`. Raven's for-loop has two
// clauses, not C's three: a single-pass emitter with no retained syntax
// tree cannot move a third (post) clause's bytecode to run after the body
// when it is written before the body in the source, so the increment step
// is simply part of the body, same as in a while loop.
func (p *Parser) parseFor() {
	p.advance()
	p.expect(token.LPAREN)

	sub := compiler.NewSub(p.c)
	outer := p.c
	p.c = sub

	if !p.at(token.SEMI) {
		p.parseForInit()
	}
	p.expect(token.SEMI)

	saved := p.c.SaveLoopContext()
	breakLabel, continueLabel := p.c.OpenLoop()
	condLabel := p.c.OpenLabel()

	p.c.PlaceLabel(condLabel)
	if !p.at(token.RPAREN) {
		p.parseExpr()
		p.c.JumpIfNot(breakLabel)
	}
	p.expect(token.RPAREN)

	p.parseStmt()

	p.c.PlaceLabel(continueLabel)
	p.c.Jump(condLabel)
	p.c.PlaceLabel(breakLabel)
	p.c.CloseLoop(saved)

	p.c = outer
}

func (p *Parser) parseForInit() {
	if p.at(token.VAR) {
		p.advance()
		name := p.expect(token.IDENT)
		sym := p.sym(name.Raw)
		if p.accept(token.ASSIGN) {
			p.parseExpr()
		} else {
			p.c.LoadConst(nilValue)
		}
		p.c.AddVar(sym)
		p.c.StoreVar(sym)
		return
	}
	p.parseExpr()
}
