package parser

import (
	"github.com/raven-mud/raven/lang/compiler"
	"github.com/raven-mud/raven/lang/token"
	"github.com/raven-mud/raven/lang/vm"
)

var nilValue = vm.Nil

// parseExpr compiles one expression, leaving its value in the accumulator.
func (p *Parser) parseExpr() { p.parseAssignment() }

// parseAssignment handles `name = expr`, the only assignment target the
// language allows (§4.D); anything else falls through to the regular
// precedence chain. Because the emitter has no lookahead beyond one token,
// a bare identifier is recognized and then checked for a following `=`
// before deciding whether it is an assignment target or the start of an
// ordinary expression.
func (p *Parser) parseAssignment() {
	if p.at(token.IDENT) {
		name := p.tok
		p.advance()
		if p.accept(token.ASSIGN) {
			sym := p.sym(name.Raw)
			p.parseAssignment()
			if !p.c.StoreVar(sym) {
				p.errorf("cannot assign to undeclared name %q", name.Raw)
			}
			return
		}
		// Not an assignment: resume parsing as an ordinary expression that
		// happens to start with this already-consumed identifier.
		p.parseLogicOrFromIdent(name)
		return
	}
	p.parseLogicOr()
}

func (p *Parser) parseLogicOr() {
	p.parseLogicOrFromIdent(token.Value{})
}

// parseLogicOrFromIdent parses the `||`-precedence level and below. If ident
// is non-zero it is a bare identifier already consumed by parseAssignment
// that must be treated as the start of the left operand instead of parsing
// a fresh primary.
func (p *Parser) parseLogicOrFromIdent(ident token.Value) {
	p.parseLogicAndFromIdent(ident)
	for p.at(token.OROR) {
		p.advance()
		trueLabel := p.c.OpenLabel()
		endLabel := p.c.OpenLabel()
		p.c.JumpIf(trueLabel)
		p.parseLogicAnd()
		p.c.JumpIf(trueLabel)
		p.c.LoadConst(vm.Int(0))
		p.c.Jump(endLabel)
		p.c.PlaceLabel(trueLabel)
		p.c.LoadConst(vm.Int(1))
		p.c.PlaceLabel(endLabel)
	}
}

func (p *Parser) parseLogicAnd() { p.parseLogicAndFromIdent(token.Value{}) }

func (p *Parser) parseLogicAndFromIdent(ident token.Value) {
	p.parseEqualityFromIdent(ident)
	for p.at(token.ANDAND) {
		p.advance()
		falseLabel := p.c.OpenLabel()
		endLabel := p.c.OpenLabel()
		p.c.JumpIfNot(falseLabel)
		p.parseEquality()
		p.c.JumpIfNot(falseLabel)
		p.c.LoadConst(vm.Int(1))
		p.c.Jump(endLabel)
		p.c.PlaceLabel(falseLabel)
		p.c.LoadConst(vm.Int(0))
		p.c.PlaceLabel(endLabel)
	}
}

func (p *Parser) parseEquality() { p.parseEqualityFromIdent(token.Value{}) }

func (p *Parser) parseEqualityFromIdent(ident token.Value) {
	p.parseComparisonFromIdent(ident)
	for {
		var b compiler.BinOp
		switch p.tok.Tok {
		case token.EQL:
			b = compiler.EQL
		case token.NEQ:
			b = compiler.NEQ
		default:
			return
		}
		p.advance()
		p.c.Push()
		p.parseComparison()
		p.c.BinOp(b)
	}
}

func (p *Parser) parseComparison() { p.parseComparisonFromIdent(token.Value{}) }

func (p *Parser) parseComparisonFromIdent(ident token.Value) {
	p.parseBitOrFromIdent(ident)
	for {
		var b compiler.BinOp
		switch p.tok.Tok {
		case token.LT:
			b = compiler.LT
		case token.LE:
			b = compiler.LE
		case token.GT:
			b = compiler.GT
		case token.GE:
			b = compiler.GE
		default:
			return
		}
		p.advance()
		p.c.Push()
		p.parseBitOr()
		p.c.BinOp(b)
	}
}

func (p *Parser) parseBitOr() { p.parseBitOrFromIdent(token.Value{}) }

func (p *Parser) parseBitOrFromIdent(ident token.Value) {
	p.parseBitXorFromIdent(ident)
	for p.at(token.PIPE) {
		p.advance()
		p.c.Push()
		p.parseBitXor()
		p.c.BinOp(compiler.OR)
	}
}

func (p *Parser) parseBitXor() { p.parseBitXorFromIdent(token.Value{}) }

func (p *Parser) parseBitXorFromIdent(ident token.Value) {
	p.parseBitAndFromIdent(ident)
	for p.at(token.CIRCUMFLEX) {
		p.advance()
		p.c.Push()
		p.parseBitAnd()
		p.c.BinOp(compiler.XOR)
	}
}

func (p *Parser) parseBitAnd() { p.parseBitAndFromIdent(token.Value{}) }

func (p *Parser) parseBitAndFromIdent(ident token.Value) {
	p.parseShiftFromIdent(ident)
	for p.at(token.AMPERSAND) {
		p.advance()
		p.c.Push()
		p.parseShift()
		p.c.BinOp(compiler.AND)
	}
}

func (p *Parser) parseShift() { p.parseShiftFromIdent(token.Value{}) }

func (p *Parser) parseShiftFromIdent(ident token.Value) {
	p.parseAdditiveFromIdent(ident)
	for {
		var b compiler.BinOp
		switch p.tok.Tok {
		case token.LTLT:
			b = compiler.SHL
		case token.GTGT:
			b = compiler.SHR
		default:
			return
		}
		p.advance()
		p.c.Push()
		p.parseAdditive()
		p.c.BinOp(b)
	}
}

func (p *Parser) parseAdditive() { p.parseAdditiveFromIdent(token.Value{}) }

func (p *Parser) parseAdditiveFromIdent(ident token.Value) {
	p.parseMultiplicativeFromIdent(ident)
	for {
		var b compiler.BinOp
		switch p.tok.Tok {
		case token.PLUS:
			b = compiler.ADD
		case token.MINUS:
			b = compiler.SUB
		default:
			return
		}
		p.advance()
		p.c.Push()
		p.parseMultiplicative()
		p.c.BinOp(b)
	}
}

func (p *Parser) parseMultiplicative() { p.parseMultiplicativeFromIdent(token.Value{}) }

func (p *Parser) parseMultiplicativeFromIdent(ident token.Value) {
	p.parseUnaryFromIdent(ident)
	for {
		var b compiler.BinOp
		switch p.tok.Tok {
		case token.STAR:
			b = compiler.MUL
		case token.SLASH:
			b = compiler.DIV
		case token.PERCENT:
			b = compiler.MOD
		default:
			return
		}
		p.advance()
		p.c.Push()
		p.parseUnary()
		p.c.BinOp(b)
	}
}

func (p *Parser) parseUnary() { p.parseUnaryFromIdent(token.Value{}) }

func (p *Parser) parseUnaryFromIdent(ident token.Value) {
	if ident.Tok != token.ILLEGAL {
		p.parsePostfixFromIdent(ident)
		return
	}
	switch p.tok.Tok {
	case token.MINUS:
		p.advance()
		p.c.LoadConst(vm.Int(0))
		p.c.Push()
		p.parseUnary()
		p.c.BinOp(compiler.SUB)
	case token.TILDE:
		p.advance()
		p.c.LoadConst(vm.Int(-1))
		p.c.Push()
		p.parseUnary()
		p.c.BinOp(compiler.XOR)
	case token.BANG:
		p.advance()
		p.parseUnary()
		trueLabel := p.c.OpenLabel()
		endLabel := p.c.OpenLabel()
		p.c.JumpIfNot(trueLabel)
		p.c.LoadConst(vm.Int(0))
		p.c.Jump(endLabel)
		p.c.PlaceLabel(trueLabel)
		p.c.LoadConst(vm.Int(1))
		p.c.PlaceLabel(endLabel)
	default:
		p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() { p.parsePostfixFromIdent(token.Value{}) }

// parsePostfixFromIdent parses a primary expression (or resumes from an
// already-consumed identifier) and any following `.msg(args)` send chain.
func (p *Parser) parsePostfixFromIdent(ident token.Value) {
	isSuper := p.parsePrimaryFromIdent(ident)
	for p.at(token.DOT) {
		p.advance()
		msg := p.expect(token.IDENT)
		p.expect(token.LPAREN)
		// The receiver (self, for a super-send; otherwise whatever the
		// primary/prior send left in the accumulator) must be pushed below
		// the args, since doSend pops argc+1 values and takes the bottom one
		// as the receiver.
		if isSuper {
			p.c.PushSelf()
		} else {
			p.c.Push()
		}
		argc := p.parseArgList()
		p.expect(token.RPAREN)

		sym := p.sym(msg.Raw)
		if isSuper {
			p.c.SuperSend(sym, argc)
		} else {
			p.c.Send(sym, argc)
		}
		isSuper = false // only the first send in a chain can be a super-send
	}
}

// parseArgList parses a parenthesized, comma-separated argument list whose
// opening paren has already been consumed; it leaves argc values pushed on
// the operand stack and returns their count.
func (p *Parser) parseArgList() int {
	argc := 0
	if p.at(token.RPAREN) {
		return 0
	}
	for {
		p.parseExpr()
		p.c.Push()
		argc++
		if !p.accept(token.COMMA) {
			break
		}
	}
	return argc
}

// parsePrimaryFromIdent parses a primary expression, or resumes from an
// already-consumed identifier token. It returns true iff the receiver just
// parsed is `super`, so the caller's postfix loop sends the first message
// in the chain with SUPER_SEND.
func (p *Parser) parsePrimaryFromIdent(ident token.Value) bool {
	if ident.Tok == token.IDENT {
		return p.primaryIdent(ident)
	}

	switch p.tok.Tok {
	case token.IDENT:
		tok := p.tok
		p.advance()
		return p.primaryIdent(tok)

	case token.INT:
		p.c.LoadConst(vm.Int(p.tok.Int))
		p.advance()

	case token.CHAR:
		p.c.LoadConst(vm.Char(rune(p.tok.Int)))
		p.advance()

	case token.STRING:
		p.c.LoadConst(vm.Ptr(vm.NewString(p.tok.Raw)))
		p.advance()

	case token.TRUE:
		p.c.LoadConst(vm.Int(1))
		p.advance()

	case token.FALSE:
		p.c.LoadConst(vm.Int(0))
		p.advance()

	case token.NIL:
		p.c.LoadConst(vm.Nil)
		p.advance()

	case token.THIS:
		p.c.LoadSelf()
		p.advance()

	case token.SUPER:
		p.advance()
		return true

	case token.LPAREN:
		p.advance()
		switch p.tok.Tok {
		case token.LBRACE:
			p.parseArrayLiteral()
		case token.LBRACK:
			p.parseMappingLiteral()
		default:
			p.parseExpr()
			p.expect(token.RPAREN)
		}

	default:
		p.errorf("expected expression, found %s", p.tok.Tok)
	}
	return false
}

// primaryIdent resolves a bare identifier that is not the start of a `.`
// chain target already handled above: either a call (unqualified send to
// self) or a plain variable reference.
func (p *Parser) primaryIdent(name token.Value) bool {
	sym := p.sym(name.Raw)
	if p.at(token.LPAREN) {
		p.advance()
		p.c.PushSelf()
		argc := p.parseArgList()
		p.expect(token.RPAREN)
		p.c.Send(sym, argc)
		return false
	}
	p.c.LoadVar(sym)
	return false
}

// parseArrayLiteral compiles `({ e1, e2, ... })`; the leading `(` has
// already been consumed, and LBRACE is expected next.
func (p *Parser) parseArrayLiteral() {
	p.expect(token.LBRACE)
	n := 0
	if !p.at(token.RBRACE) {
		for {
			p.parseExpr()
			p.c.Push()
			n++
			if !p.accept(token.COMMA) {
				break
			}
			if p.at(token.RBRACE) {
				break
			}
		}
	}
	p.expect(token.RBRACE)
	p.expect(token.RPAREN)
	p.c.LoadArray(n)
}

// parseMappingLiteral compiles `([ k1: v1, k2: v2, ... ])`; the leading
// `(` has already been consumed, and LBRACK is expected next.
func (p *Parser) parseMappingLiteral() {
	p.expect(token.LBRACK)
	n := 0
	if !p.at(token.RBRACK) {
		for {
			p.parseExpr()
			p.c.Push()
			p.expect(token.COLON)
			p.parseExpr()
			p.c.Push()
			n++
			if !p.accept(token.COMMA) {
				break
			}
			if p.at(token.RBRACK) {
				break
			}
		}
	}
	p.expect(token.RBRACK)
	p.expect(token.RPAREN)
	p.c.LoadMapping(n)
}
