// display.go prints runtime values in a Lisp-style printed form (cons cells as lists or dotted
// pairs, vectors bracketed, chars as a quoted glyph); the reader has no syntax for the bracketed or
// char forms, so not every printed value reads back. It reuses the backend's integer
// formatting routine so that the interpreter and the eventual JIT agree on how a number looks.

package runtime

import (
	"strings"

	"soft/src/backend/xtoa"
)

// String implements fmt.Stringer for a tagged Value.
func (v Value) String() string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value) {
	fp := Classify(v)
	switch fp.Kind {
	case KindInt:
		sb.WriteString(xtoa.ItoA(int(v.Int())))
	case KindChar:
		sb.WriteByte('\'')
		sb.WriteRune(v.Char())
		sb.WriteByte('\'')
	case KindBool:
		if v.Bool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindNil:
		sb.WriteString("nil")
	case KindString:
		sb.WriteByte('"')
		sb.WriteString(v.Str())
		sb.WriteByte('"')
	case KindSymbol:
		if s, ok := symbolHashes[v.SymbolHash()]; ok {
			sb.WriteString(s.Name())
		} else {
			sb.WriteString("#<symbol>")
		}
	case KindClosure:
		sb.WriteString("#<closure>")
	case KindVector:
		sb.WriteByte('[')
		n := v.Len()
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeValue(sb, v.Get(i))
		}
		sb.WriteByte(']')
	case KindCons:
		writeCons(sb, v)
	}
}

// writeCons prints a cons chain as list syntax when it terminates at nil, or dotted-pair syntax
// otherwise.
func writeCons(sb *strings.Builder, v Value) {
	sb.WriteByte('(')
	writeValue(sb, v.Head())
	cur := v.Tail()
	for {
		fp := Classify(cur)
		switch fp.Kind {
		case KindCons:
			sb.WriteByte(' ')
			writeValue(sb, cur.Head())
			cur = cur.Tail()
			continue
		case KindNil:
			// proper list: nothing more to print
		default:
			sb.WriteString(" . ")
			writeValue(sb, cur)
		}
		break
	}
	sb.WriteByte(')')
}
