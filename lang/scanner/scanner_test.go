package scanner_test

import (
	"testing"

	"github.com/raven-mud/raven/lang/scanner"
	"github.com/raven-mud/raven/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]token.Token, []string) {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.rv", -1, len(src))

	var errs []string
	var s scanner.Scanner
	s.Init(f, []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})

	var toks []token.Token
	var val token.Value
	for {
		tok := s.Scan(&val)
		toks = append(toks, tok)
		if tok == token.EOF {
			break
		}
	}
	return toks, errs
}

func TestScanPunctuationAndKeywords(t *testing.T) {
	toks, errs := scanAll(t, `class A inherit B { int x; void f() { return 2 + 3; } }`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.CLASS, token.IDENT, token.INHERIT, token.IDENT, token.LBRACE,
		token.IDENT, token.IDENT, token.SEMI,
		token.IDENT, token.IDENT, token.LPAREN, token.RPAREN, token.LBRACE,
		token.RETURN, token.INT, token.PLUS, token.INT, token.SEMI,
		token.RBRACE, token.RBRACE, token.EOF,
	}, toks)
}

func TestScanMultiCharOperators(t *testing.T) {
	toks, errs := scanAll(t, `a == b != c <= d >= e && f || !g`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.IDENT, token.EQL, token.IDENT, token.NEQ, token.IDENT, token.LE,
		token.IDENT, token.GE, token.IDENT, token.ANDAND, token.IDENT,
		token.OROR, token.BANG, token.IDENT, token.EOF,
	}, toks)
}

func TestScanStringAndCharLiterals(t *testing.T) {
	fs := token.NewFileSet()
	src := `"hello\nworld" 'x'`
	f := fs.AddFile("t.rv", -1, len(src))
	var s scanner.Scanner
	var errs []string
	s.Init(f, []byte(src), func(pos token.Position, msg string) { errs = append(errs, msg) })

	var val token.Value
	tok := s.Scan(&val)
	require.Empty(t, errs)
	require.Equal(t, token.STRING, tok)
	require.Equal(t, "hello\nworld", val.Raw)

	tok = s.Scan(&val)
	require.Equal(t, token.CHAR, tok)
	require.Equal(t, int64('x'), val.Int)
}

func TestScanComments(t *testing.T) {
	toks, errs := scanAll(t, "int x; // a comment\n/* block\ncomment */ int y;")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.IDENT, token.IDENT, token.SEMI,
		token.IDENT, token.IDENT, token.SEMI,
		token.EOF,
	}, toks)
}

func TestScanIllegalCharacter(t *testing.T) {
	_, errs := scanAll(t, `int x = @;`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], "illegal character")
}

func TestScanUnterminatedString(t *testing.T) {
	_, errs := scanAll(t, `"unterminated`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], "unterminated string")
}
