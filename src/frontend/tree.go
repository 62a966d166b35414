// tree.go defines the surface syntax produced by the reader: the untyped s-expression tree that
// the specializer consumes. Every Node carries the byte Range it was read from so that later
// diagnostics (specializer errors, macro-expansion errors) can still point at source text.

package frontend

// NodeType discriminates the concrete shape of a Node.
type NodeType int

const (
	// NodeNumber is a 60-bit unsigned integer literal, e.g. 42.
	NodeNumber NodeType = iota
	// NodeString is a UTF-8 string literal, e.g. "hello".
	NodeString
	// NodeIdentifier is a name to be resolved later, e.g. foo or +.
	NodeIdentifier
	// NodeAtom is a globally-interned constant, prefix-separated at the lexer, e.g. :foo.
	NodeAtom
	// NodeList is a parenthesised sequence of Nodes; may be empty.
	NodeList
)

// Node is one datum read from source: an atom or a list of nodes, tagged with the byte range it
// spans and carrying any quote/unquote prefixes that preceded it.
type Node struct {
	Type     NodeType
	Range    Range
	Number   uint64   // valid when Type == NodeNumber
	Text     string   // valid when Type == NodeString, NodeIdentifier or NodeAtom
	Children []Node   // valid when Type == NodeList
	Prefixes []Prefix // quote/unquote wrappers, outermost first
}

// Prefix is a reader macro ( ' or , ) recorded against the datum it prefixed, so the specializer
// can rewrite it into the corresponding special form without the reader knowing specializer
// semantics.
type Prefix int

const (
	// PrefixQuote is the ' reader macro, expanding to (quote datum).
	PrefixQuote Prefix = iota
	// PrefixUnquote is the , reader macro, expanding to (unquote datum).
	PrefixUnquote
)

// IsAtom reports whether n is a leaf datum rather than a list.
func (n Node) IsAtom() bool {
	return n.Type != NodeList
}

// String renders n back into its surface textual form, for diagnostics and the -ts flag.
func (n Node) String() string {
	s := n.render()
	for i := len(n.Prefixes) - 1; i >= 0; i-- {
		switch n.Prefixes[i] {
		case PrefixQuote:
			s = "'" + s
		case PrefixUnquote:
			s = "," + s
		}
	}
	return s
}

func (n Node) render() string {
	switch n.Type {
	case NodeNumber:
		return formatUint(n.Number)
	case NodeString:
		return "\"" + n.Text + "\""
	case NodeIdentifier:
		return n.Text
	case NodeAtom:
		return ":" + n.Text
	case NodeList:
		s := "("
		for i, c := range n.Children {
			if i > 0 {
				s += " "
			}
			s += c.String()
		}
		return s + ")"
	default:
		return "<invalid-node>"
	}
}

func formatUint(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
