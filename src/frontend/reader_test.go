package frontend

import "testing"

func TestReadAtoms(t *testing.T) {
	cases := []struct {
		src  string
		typ  NodeType
		text string
		num  uint64
	}{
		{"42", NodeNumber, "", 42},
		{"foo", NodeIdentifier, "foo", 0},
		{"+", NodeIdentifier, "+", 0},
		{":ok", NodeAtom, "ok", 0},
		{":true", NodeAtom, "true", 0},
		{":false", NodeAtom, "false", 0},
	}

	for _, c := range cases {
		r := NewReader(c.src)
		n, ok, err := r.Read()
		if err != nil {
			t.Fatalf("%q: unexpected error: %s", c.src, err)
		}
		if !ok {
			t.Fatalf("%q: expected a datum", c.src)
		}
		if n.Type != c.typ {
			t.Errorf("%q: expected type %d, got %d", c.src, c.typ, n.Type)
		}
		if c.typ == NodeNumber && n.Number != c.num {
			t.Errorf("%q: expected number %d, got %d", c.src, c.num, n.Number)
		}
		if c.typ != NodeNumber && n.Text != c.text {
			t.Errorf("%q: expected text %q, got %q", c.src, c.text, n.Text)
		}
	}
}

func TestReadString(t *testing.T) {
	n, ok, err := NewReader(`"hello\nworld"`).Read()
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}
	if n.Type != NodeString {
		t.Fatalf("expected NodeString, got %d", n.Type)
	}
	if n.Text != "hello\nworld" {
		t.Errorf("expected escaped newline, got %q", n.Text)
	}
}

func TestReadList(t *testing.T) {
	n, ok, err := NewReader("(+ 1 (* 2 3))").Read()
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}
	if n.Type != NodeList {
		t.Fatalf("expected NodeList, got %d", n.Type)
	}
	if len(n.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(n.Children))
	}
	if n.Children[0].Text != "+" {
		t.Errorf("expected leading symbol +, got %q", n.Children[0].Text)
	}
	inner := n.Children[2]
	if inner.Type != NodeList || len(inner.Children) != 3 {
		t.Errorf("expected nested 3-element list, got %+v", inner)
	}
}

func TestReadEmptyList(t *testing.T) {
	n, ok, err := NewReader("()").Read()
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}
	if n.Type != NodeList || len(n.Children) != 0 {
		t.Errorf("expected empty list, got %+v", n)
	}
}

func TestReadQuotePrefixes(t *testing.T) {
	cases := []struct {
		src  string
		want Prefix
	}{
		{"'x", PrefixQuote},
		{",x", PrefixUnquote},
	}
	for _, c := range cases {
		n, ok, err := NewReader(c.src).Read()
		if err != nil || !ok {
			t.Fatalf("%q: unexpected result: %v %v", c.src, ok, err)
		}
		if len(n.Prefixes) != 1 || n.Prefixes[0] != c.want {
			t.Errorf("%q: expected prefix %v, got %v", c.src, c.want, n.Prefixes)
		}
	}
}

func TestReadNestedPrefixes(t *testing.T) {
	n, ok, err := NewReader("',x").Read()
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}
	if len(n.Prefixes) != 2 || n.Prefixes[0] != PrefixQuote || n.Prefixes[1] != PrefixUnquote {
		t.Errorf("expected [Quote Unquote], got %v", n.Prefixes)
	}
}

func TestReadMultipleTopLevelForms(t *testing.T) {
	r := NewReader("1 2 3")
	nodes, err := r.ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 top-level forms, got %d", len(nodes))
	}
}

func TestReadSkipsComments(t *testing.T) {
	n, ok, err := NewReader("; a comment\n42").Read()
	if err != nil || !ok {
		t.Fatalf("unexpected result: %v %v", ok, err)
	}
	if n.Type != NodeNumber || n.Number != 42 {
		t.Errorf("expected 42, got %+v", n)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		src  string
		kind ReadErrorKind
	}{
		{"(1 2", ErrUnclosedParenthesis},
		{")", ErrUnmatchedClosingParenthesis},
		{`"unterminated`, ErrUnclosedString},
		{`"bad \q escape"`, ErrUnknownEscape},
		{"'", ErrUnmatchedQuote},
	}
	for _, c := range cases {
		_, _, err := NewReader(c.src).Read()
		if err == nil {
			t.Fatalf("%q: expected error", c.src)
		}
		re, ok := err.(*ReadError)
		if !ok {
			t.Fatalf("%q: expected *ReadError, got %T", c.src, err)
		}
		if re.Kind != c.kind {
			t.Errorf("%q: expected kind %d, got %d", c.src, c.kind, re.Kind)
		}
	}
}
