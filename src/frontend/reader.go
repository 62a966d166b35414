// reader.go implements the stack-based reader: source bytes in, a surface syntax tree out. Rather
// than recursing one stack frame per open parenthesis, it keeps its own explicit datum stack and
// open-list-index stack so that deeply nested input never grows the Go call stack, and threads a
// LIFO prefix stack through which pending quote/unquote reader macros are applied to whichever
// datum completes next.

package frontend

import "strconv"

// openFrame marks a list that has been opened but not yet closed: the index into the reader's
// datum stack where its children begin, and the byte position the '(' was read from.
type openFrame struct {
	start int
	mark  Loc
}

// pendingPrefix is a quote/unquote reader macro waiting to attach to the next datum that completes
// at the same open-list depth it was read at. A prefix read just before a '(' must wrap the whole
// list once it closes, not whatever leaf happens to be pushed first while reading the list's
// contents, so the depth is recorded at read time and checked again when a datum completes.
type pendingPrefix struct {
	prefix Prefix
	depth  int
}

// Reader turns a source string into a sequence of top-level Nodes.
type Reader struct {
	t        *Tracker
	opens    []openFrame
	datums   []Node
	prefixes []pendingPrefix
}

// NewReader returns a Reader over src.
func NewReader(src string) *Reader {
	return &Reader{t: NewTracker(src)}
}

// Read reads and returns the next top-level datum. The second return value is false, with a nil
// error, once the source is exhausted with no partial datum pending.
func (r *Reader) Read() (Node, bool, error) {
	for {
		r.skipAtmosphere()

		c, ok := r.t.Peek()
		if !ok {
			if len(r.opens) > 0 {
				f := r.opens[len(r.opens)-1]
				return Node{}, false, newReadError(ErrUnclosedParenthesis, Range{Start: f.mark, End: r.t.Here().Start}, r.t.Line(), r.t.Column(), "unclosed parenthesis")
			}
			if len(r.prefixes) > 0 {
				return Node{}, false, newReadError(ErrUnmatchedQuote, r.t.Here(), r.t.Line(), r.t.Column(), "quote prefix with nothing to quote")
			}
			return Node{}, false, nil
		}

		switch {
		case c == '(':
			mark := r.t.Here().Start
			r.t.Next()
			r.opens = append(r.opens, openFrame{start: len(r.datums), mark: mark})

		case c == ')':
			line, col := r.t.Line(), r.t.Column()
			r.t.Next()
			if len(r.opens) == 0 {
				return Node{}, false, newReadError(ErrUnmatchedClosingParenthesis, r.t.Here(), line, col, "unmatched closing parenthesis")
			}
			if n := len(r.prefixes); n > 0 && r.prefixes[n-1].depth == len(r.opens) {
				return Node{}, false, newReadError(ErrUnmatchedQuote, r.t.Here(), line, col, "quote prefix with nothing to quote")
			}
			f := r.opens[len(r.opens)-1]
			r.opens = r.opens[:len(r.opens)-1]
			children := append([]Node(nil), r.datums[f.start:]...)
			r.datums = r.datums[:f.start]
			node := Node{Type: NodeList, Range: Range{Start: f.mark, End: r.t.Here().Start}, Children: children}
			if done, n := r.push(node); done {
				return n, true, nil
			}

		case c == '\'':
			r.t.Next()
			r.prefixes = append(r.prefixes, pendingPrefix{prefix: PrefixQuote, depth: len(r.opens)})

		case c == ',':
			r.t.Next()
			r.prefixes = append(r.prefixes, pendingPrefix{prefix: PrefixUnquote, depth: len(r.opens)})

		case c == ':':
			node := r.readAtom()
			if done, n := r.push(node); done {
				return n, true, nil
			}

		case c == '"':
			node, err := r.readString()
			if err != nil {
				return Node{}, false, err
			}
			if done, n := r.push(node); done {
				return n, true, nil
			}

		case isDigit(c):
			node := r.readNumber()
			if done, n := r.push(node); done {
				return n, true, nil
			}

		default:
			node := r.readIdentifier()
			if done, n := r.push(node); done {
				return n, true, nil
			}
		}
	}
}

// ReadAll reads every top-level datum in the source, stopping at the first error if any.
func (r *Reader) ReadAll() ([]Node, error) {
	var nodes []Node
	for {
		n, ok, err := r.Read()
		if err != nil {
			return nodes, err
		}
		if !ok {
			return nodes, nil
		}
		nodes = append(nodes, n)
	}
}

// push attaches any pending prefixes recorded at the current open-list depth to node and appends it
// either to the currently open list or, if no list is open, reports that a fresh top-level datum is
// complete. A prefix recorded at a deeper depth is left pending: it belongs to whichever datum
// completes once that depth unwinds back to where the prefix was read, e.g. the whole list '(a b)
// closes into rather than its first leaf a.
func (r *Reader) push(node Node) (bool, Node) {
	depth := len(r.opens)
	i := len(r.prefixes)
	for i > 0 && r.prefixes[i-1].depth == depth {
		i--
	}
	if i < len(r.prefixes) {
		matched := make([]Prefix, 0, len(r.prefixes)-i)
		for _, p := range r.prefixes[i:] {
			matched = append(matched, p.prefix)
		}
		node.Prefixes = matched
		r.prefixes = r.prefixes[:i]
	}
	r.datums = append(r.datums, node)
	if len(r.opens) == 0 {
		n := r.datums[len(r.datums)-1]
		r.datums = r.datums[:len(r.datums)-1]
		return true, n
	}
	return false, Node{}
}

// skipAtmosphere consumes whitespace and line comments between datums.
func (r *Reader) skipAtmosphere() {
	for {
		c, ok := r.t.Peek()
		if !ok {
			return
		}
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.t.Next()
		case c == ';':
			for {
				c, ok := r.t.Peek()
				if !ok || c == '\n' {
					break
				}
				r.t.Next()
			}
		default:
			return
		}
	}
}

// isReserved reports whether c is one of the reader's reserved characters, which always
// terminate a bare identifier or number token.
func isReserved(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', ':', '"', '\'', ',', ';':
		return true
	default:
		return false
	}
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// readAtom reads a ':'-prefixed globally-interned constant; the atom's text is the maximal run of
// identifier characters following the colon.
func (r *Reader) readAtom() Node {
	r.t.Save()
	r.t.Next() // consume ':'
	for {
		c, ok := r.t.Peek()
		if !ok || isReserved(c) {
			break
		}
		r.t.Next()
	}
	rng := r.t.PopRange()
	text := r.t.Substring(rng)[1:] // drop leading ':'
	return Node{Type: NodeAtom, Range: rng, Text: text}
}

// readNumber reads a run of ASCII digits as a 60-bit unsigned integer literal.
func (r *Reader) readNumber() Node {
	r.t.Save()
	for {
		c, ok := r.t.Peek()
		if !ok || !isDigit(c) {
			break
		}
		r.t.Next()
	}
	rng := r.t.PopRange()
	text := r.t.Substring(rng)
	v, _ := strconv.ParseUint(text, 10, 64)
	return Node{Type: NodeNumber, Range: rng, Number: v & ((1 << 60) - 1)}
}

// readIdentifier reads a run of characters not reserved by the reader, naming a binding to be
// resolved later.
func (r *Reader) readIdentifier() Node {
	r.t.Save()
	for {
		c, ok := r.t.Peek()
		if !ok || isReserved(c) {
			break
		}
		r.t.Next()
	}
	rng := r.t.PopRange()
	return Node{Type: NodeIdentifier, Range: rng, Text: r.t.Substring(rng)}
}

// readString reads a double-quoted string literal, interpreting backslash escapes.
func (r *Reader) readString() (Node, error) {
	line, col := r.t.Line(), r.t.Column()
	r.t.Save()
	r.t.Next() // consume opening quote

	var sb []rune
	for {
		c, ok := r.t.Peek()
		if !ok {
			rng := r.t.PopRange()
			return Node{}, newReadError(ErrUnclosedString, rng, line, col, "unclosed string literal")
		}
		if c == '"' {
			r.t.Next()
			break
		}
		if c == '\\' {
			r.t.Next()
			e, ok := r.t.Next()
			if !ok {
				rng := r.t.PopRange()
				return Node{}, newReadError(ErrUnclosedString, rng, line, col, "unclosed string literal")
			}
			switch e {
			case 'n':
				sb = append(sb, '\n')
			case 't':
				sb = append(sb, '\t')
			case 'r':
				sb = append(sb, '\r')
			case '\\':
				sb = append(sb, '\\')
			case '"':
				sb = append(sb, '"')
			default:
				rng := r.t.PopRange()
				return Node{}, newReadError(ErrUnknownEscape, rng, r.t.Line(), r.t.Column(), "unknown escape sequence: \\"+string(e))
			}
			continue
		}
		r.t.Next()
		sb = append(sb, c)
	}
	rng := r.t.PopRange()
	return Node{Type: NodeString, Range: rng, Text: string(sb)}, nil
}
