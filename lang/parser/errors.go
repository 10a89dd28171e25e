package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raven-mud/raven/lang/token"
)

// Error is one parse error at a known source position. It plays the same
// role as go/scanner.Error, adapted to this language's own token.Position
// (which has no byte-offset field, unlike go/token.Position, so the
// standard library type cannot be reused directly).
type Error struct {
	Pos token.Position
	Msg string
}

func (e Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

// ErrorList collects every parse error from a single compile, so that one
// parse attempt can surface more than one diagnostic (§4.D: the parser
// resynchronizes at the next statement boundary after an error rather than
// aborting).
type ErrorList []*Error

func (l *ErrorList) Add(pos token.Position, msg string) {
	*l = append(*l, &Error{Pos: pos, Msg: msg})
}

func (l ErrorList) Len() int      { return len(l) }
func (l ErrorList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l ErrorList) Less(i, j int) bool {
	pi, pj := l[i].Pos, l[j].Pos
	if pi.Line != pj.Line {
		return pi.Line < pj.Line
	}
	return pi.Col < pj.Col
}

func (l ErrorList) Sort() { sort.Sort(l) }

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		var sb strings.Builder
		for i, e := range l {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(e.Error())
		}
		return sb.String()
	}
}

// Err returns nil if the list is empty, and the list itself (as an error)
// otherwise.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
