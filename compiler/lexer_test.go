package compiler

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func tokenize(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(NewStringQueue("test.rb", src))
	defer l.Close()
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func TestLexerBasicProgram(t *testing.T) {
	src := "x = 10\ny = x + 2.5\n"
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdent, "x"},
		{TokenAssign, "="},
		{TokenInt, "10"},
		{TokenNewline, "\n"},
		{TokenIdent, "y"},
		{TokenAssign, "="},
		{TokenIdent, "x"},
		{TokenPlus, "+"},
		{TokenFloat, "2.5"},
		{TokenNewline, "\n"},
		{TokenEOF, ""},
	}

	toks := tokenize(t, src)
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(expected))
	}
	for i, want := range expected {
		if toks[i].Type != want.typ || toks[i].Literal != want.lit {
			t.Errorf("token %d: got (%s, %q), want (%s, %q)",
				i, toks[i].Type, toks[i].Literal, want.typ, want.lit)
		}
	}
}

func TestLexerOperators(t *testing.T) {
	tests := []struct {
		src string
		typ TokenType
	}{
		{"==", TokenEq},
		{"!=", TokenNotEq},
		{"<=", TokenLe},
		{">=", TokenGe},
		{"<", TokenLt},
		{">", TokenGt},
		{"!", TokenBang},
		{"%", TokenPercent},
		{"=", TokenAssign},
	}
	for _, tt := range tests {
		toks := tokenize(t, tt.src)
		if toks[0].Type != tt.typ {
			t.Errorf("%q: got %s, want %s", tt.src, toks[0].Type, tt.typ)
		}
	}
}

func TestLexerKeywordsAndSymbols(t *testing.T) {
	toks := tokenize(t, "if while def end :foo true nil")
	want := []TokenType{TokenIf, TokenWhile, TokenDef, TokenEnd, TokenSymbol, TokenTrue, TokenNil, TokenEOF}
	for i, typ := range want {
		if toks[i].Type != typ {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, typ)
		}
	}
	if toks[4].Literal != "foo" {
		t.Errorf("symbol literal: got %q, want %q", toks[4].Literal, "foo")
	}
}

func TestLexerStringEscapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"plain"`, "plain"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"q\"q"`, `q"q`},
		{`"back\\slash"`, `back\slash`},
		{`"esc\e"`, "esc\x1b"},
	}
	for _, tt := range tests {
		toks := tokenize(t, tt.src)
		if toks[0].Type != TokenString {
			t.Fatalf("%s: got %s, want STRING", tt.src, toks[0].Type)
		}
		if toks[0].Literal != tt.want {
			t.Errorf("%s: got %q, want %q", tt.src, toks[0].Literal, tt.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	toks := tokenize(t, "\"never ends\n")
	if toks[0].Type != TokenIllegal {
		t.Fatalf("got %s, want ILLEGAL", toks[0].Type)
	}
	if toks[0].Literal != "unterminated string" {
		t.Errorf("got %q, want %q", toks[0].Literal, "unterminated string")
	}
}

func TestLexerCommentsAndContinuation(t *testing.T) {
	src := "a # trailing comment\n# full line\nb \\\n+ c\n"
	toks := tokenize(t, src)
	want := []TokenType{
		TokenIdent, TokenNewline, TokenNewline,
		TokenIdent, TokenPlus, TokenIdent, TokenNewline, TokenEOF,
	}
	for i, typ := range want {
		if toks[i].Type != typ {
			t.Fatalf("token %d: got %s, want %s", i, toks[i].Type, typ)
		}
	}
}

func TestLexerLineNumbers(t *testing.T) {
	toks := tokenize(t, "a\nb\n\nc\n")
	byLit := map[string]int{}
	for _, tok := range toks {
		if tok.Type == TokenIdent {
			byLit[tok.Literal] = tok.Pos.Line
		}
	}
	if byLit["a"] != 1 || byLit["b"] != 2 || byLit["c"] != 4 {
		t.Errorf("line numbers: got %v, want a:1 b:2 c:4", byLit)
	}
}

// sliceQueue feeds a fixed sequence of named sources.
type sliceQueue struct {
	items []struct{ name, src string }
	idx   int
	errAt int // inject an open error at this index, -1 for never
}

func (q *sliceQueue) Next() (io.ReadCloser, string, error) {
	if q.idx == q.errAt {
		return nil, "", errors.New("cannot open program file. (missing.rb)")
	}
	if q.idx >= len(q.items) {
		return nil, "", io.EOF
	}
	item := q.items[q.idx]
	q.idx++
	return io.NopCloser(strings.NewReader(item.src)), item.name, nil
}

func TestLexerChainedFiles(t *testing.T) {
	// A token split across the file boundary must lex as one token,
	// as if the files were concatenated.
	q := &sliceQueue{errAt: -1, items: []struct{ name, src string }{
		{"one.rb", "x = cou"},
		{"two.rb", "nter + 1\n"},
	}}
	l := NewLexer(q)
	defer l.Close()

	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdent, "x"},
		{TokenAssign, "="},
		{TokenIdent, "counter"},
		{TokenPlus, "+"},
		{TokenInt, "1"},
		{TokenNewline, "\n"},
		{TokenEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("token %d: got (%s, %q), want (%s, %q)",
				i, toks[i].Type, toks[i].Literal, w.typ, w.lit)
		}
	}
	if err := l.Err(); err != nil {
		t.Errorf("unexpected lexer error: %v", err)
	}
}

func TestLexerChainedLineNumbersRestart(t *testing.T) {
	q := &sliceQueue{errAt: -1, items: []struct{ name, src string }{
		{"one.rb", "a\nb\n"},
		{"two.rb", "c\n"},
	}}
	l := NewLexer(q)
	defer l.Close()
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenIdent && tok.Literal == "c" {
			if tok.Pos.File != "two.rb" || tok.Pos.Line != 1 {
				t.Errorf("token c at %s, want two.rb:1", tok.Pos)
			}
		}
	}
	if l.FirstFile() != "one.rb" {
		t.Errorf("FirstFile: got %q, want %q", l.FirstFile(), "one.rb")
	}
}

func TestLexerOperatorSpansFileBoundary(t *testing.T) {
	// The peek for the second '=' pulls the next file. The operator
	// still belongs to the file it started in, and the following
	// token to the new one.
	q := &sliceQueue{errAt: -1, items: []struct{ name, src string }{
		{"one.rb", "x ="},
		{"two.rb", "= y\n"},
	}}
	l := NewLexer(q)
	defer l.Close()

	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	want := []struct {
		typ  TokenType
		lit  string
		file string
		line int
	}{
		{TokenIdent, "x", "one.rb", 1},
		{TokenEq, "==", "one.rb", 1},
		{TokenIdent, "y", "two.rb", 1},
		{TokenNewline, "\n", "two.rb", 1},
		{TokenEOF, "", "two.rb", 2},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		got := toks[i]
		if got.Type != w.typ || got.Literal != w.lit {
			t.Errorf("token %d: got (%s, %q), want (%s, %q)",
				i, got.Type, got.Literal, w.typ, w.lit)
		}
		if got.Pos.File != w.file || got.Pos.Line != w.line {
			t.Errorf("token %d (%q) at %s, want %s:%d",
				i, got.Literal, got.Pos, w.file, w.line)
		}
	}
	if err := l.Err(); err != nil {
		t.Errorf("unexpected lexer error: %v", err)
	}
}

// flakyReader serves fixed chunks, replacing the chunk at errAt with a
// read error. Reads after the error succeed again.
type flakyReader struct {
	chunks []string
	errAt  int
	idx    int
}

func (r *flakyReader) Read(p []byte) (int, error) {
	if r.idx >= len(r.chunks) {
		return 0, io.EOF
	}
	i := r.idx
	r.idx++
	if i == r.errAt {
		return 0, errors.New("read interrupted")
	}
	return copy(p, r.chunks[i]), nil
}

func (r *flakyReader) Close() error { return nil }

// testReaderQueue yields a single prepared stream.
type testReaderQueue struct {
	rc   io.ReadCloser
	name string
	done bool
}

func (q *testReaderQueue) Next() (io.ReadCloser, string, error) {
	if q.done {
		return nil, "", io.EOF
	}
	q.done = true
	return q.rc, q.name, nil
}

func TestLexerPeekReadErrorSticky(t *testing.T) {
	// The '<' forces a peek that lands on the interrupted read. The
	// error must stick even though later reads succeed.
	q := &testReaderQueue{
		rc:   &flakyReader{chunks: []string{"a <", "", "1\n"}, errAt: 1},
		name: "bad.rb",
	}
	l := NewLexer(q)
	defer l.Close()
	for {
		if l.NextToken().Type == TokenEOF {
			break
		}
	}
	err := l.Err()
	if err == nil {
		t.Fatal("expected sticky read error")
	}
	if !strings.Contains(err.Error(), "reading bad.rb") {
		t.Errorf("error %q does not name the failing file", err)
	}
	if !strings.Contains(err.Error(), "read interrupted") {
		t.Errorf("error %q does not carry the read failure", err)
	}
}

func TestLexerQueueOpenError(t *testing.T) {
	q := &sliceQueue{errAt: 1, items: []struct{ name, src string }{
		{"one.rb", "a = 1\n"},
	}}
	l := NewLexer(q)
	defer l.Close()
	for {
		if l.NextToken().Type == TokenEOF {
			break
		}
	}
	err := l.Err()
	if err == nil {
		t.Fatal("expected sticky open error")
	}
	if !strings.Contains(err.Error(), "missing.rb") {
		t.Errorf("error %q does not name the failing file", err)
	}
}
