package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Lexer: streaming tokenizer
// ---------------------------------------------------------------------------

// Lexer tokenizes source text pulled from a SourceQueue. The queue seam
// is what makes chained compilation work: when the current stream runs
// dry mid-scan the lexer asks for the next one and keeps going, so a
// sequence of files lexes exactly like their concatenation.
type Lexer struct {
	queue SourceQueue

	cur io.ReadCloser
	br  *bufio.Reader

	ch        rune      // current character, 0 at EOF
	pos       Position  // position of ch
	atNewline bool      // ch position advance pending on next read
	nextPos   *Position // start of a freshly opened stream, applied on the next consuming read

	firstFile string // diagnostic name of the first input
	err       error  // sticky I/O error, including chained-open failures
}

// NewLexer creates a lexer over the given source queue.
func NewLexer(queue SourceQueue) *Lexer {
	l := &Lexer{queue: queue}
	l.readChar()
	if l.firstFile == "" {
		l.firstFile = l.pos.File
	}
	return l
}

// Err returns the sticky I/O error, if any. Lexing stops at the point
// the error occurred; the tokens before it remain valid.
func (l *Lexer) Err() error {
	return l.err
}

// FirstFile returns the diagnostic name of the first input stream.
func (l *Lexer) FirstFile() string {
	return l.firstFile
}

// Close releases the current input stream. Streams already exhausted
// have been closed as the lexer moved past them.
func (l *Lexer) Close() error {
	if l.cur == nil {
		return nil
	}
	err := l.cur.Close()
	l.cur = nil
	l.br = nil
	return err
}

// advance pulls the next stream from the queue. Reports false at the
// end of the sequence or on error. The position switch is recorded in
// nextPos rather than applied, so a peek that crosses a file boundary
// leaves pos on the character still being scanned.
func (l *Lexer) advance() bool {
	if l.err != nil {
		return false
	}
	rc, name, err := l.queue.Next()
	if err == io.EOF {
		return false
	}
	if err != nil {
		l.err = err
		return false
	}
	l.cur = rc
	l.br = bufio.NewReader(rc)
	l.nextPos = &Position{File: name, Line: 1}
	if l.firstFile == "" {
		l.firstFile = name
	}
	return true
}

// curFile names the stream a fresh read error belongs to.
func (l *Lexer) curFile() string {
	if l.nextPos != nil {
		return l.nextPos.File
	}
	return l.pos.File
}

// readChar reads the next character, crossing stream boundaries.
func (l *Lexer) readChar() {
	if l.atNewline {
		l.pos.Line++
		l.atNewline = false
	}
	for {
		if l.br == nil {
			if !l.advance() {
				l.ch = 0
				return
			}
		}
		r, _, err := l.br.ReadRune()
		if err == io.EOF {
			l.cur.Close()
			l.cur = nil
			l.br = nil
			continue
		}
		if err != nil {
			l.err = fmt.Errorf("reading %s: %w", l.curFile(), err)
			l.ch = 0
			return
		}
		if l.nextPos != nil {
			l.pos = *l.nextPos
			l.atNewline = false
			l.nextPos = nil
		}
		l.ch = r
		if r == '\n' {
			l.atNewline = true
		}
		return
	}
}

// peekChar returns the next character without consuming it, pulling the
// next stream if the current one is exhausted. Read errors are as
// sticky here as in readChar.
func (l *Lexer) peekChar() rune {
	for {
		if l.br == nil {
			if !l.advance() {
				return 0
			}
		}
		r, _, err := l.br.ReadRune()
		if err == io.EOF {
			l.cur.Close()
			l.cur = nil
			l.br = nil
			continue
		}
		if err != nil {
			l.err = fmt.Errorf("reading %s: %w", l.curFile(), err)
			return 0
		}
		l.br.UnreadRune()
		return r
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipSpacesAndComments()

	pos := l.pos
	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}

	case l.ch == '\n':
		l.readChar()
		return Token{Type: TokenNewline, Literal: "\n", Pos: pos}

	case isIdentStart(l.ch):
		name := l.readIdent()
		return Token{Type: lookupIdent(name), Literal: name, Pos: pos}

	case unicode.IsDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '"':
		return l.readString(pos)

	case l.ch == ':':
		if isIdentStart(l.peekChar()) {
			l.readChar()
			name := l.readIdent()
			return Token{Type: TokenSymbol, Literal: name, Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenIllegal, Literal: ":", Pos: pos}
	}

	// Operators and punctuation
	tok := Token{Type: TokenIllegal, Literal: string(l.ch), Pos: pos}
	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenEq, Literal: "==", Pos: pos}
		} else {
			tok = Token{Type: TokenAssign, Literal: "=", Pos: pos}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEq, Literal: "!=", Pos: pos}
		} else {
			tok = Token{Type: TokenBang, Literal: "!", Pos: pos}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenLe, Literal: "<=", Pos: pos}
		} else {
			tok = Token{Type: TokenLt, Literal: "<", Pos: pos}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGe, Literal: ">=", Pos: pos}
		} else {
			tok = Token{Type: TokenGt, Literal: ">", Pos: pos}
		}
	case '+':
		tok = Token{Type: TokenPlus, Literal: "+", Pos: pos}
	case '-':
		tok = Token{Type: TokenMinus, Literal: "-", Pos: pos}
	case '*':
		tok = Token{Type: TokenStar, Literal: "*", Pos: pos}
	case '/':
		tok = Token{Type: TokenSlash, Literal: "/", Pos: pos}
	case '%':
		tok = Token{Type: TokenPercent, Literal: "%", Pos: pos}
	case '(':
		tok = Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ')':
		tok = Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case '[':
		tok = Token{Type: TokenLBracket, Literal: "[", Pos: pos}
	case ']':
		tok = Token{Type: TokenRBracket, Literal: "]", Pos: pos}
	case ',':
		tok = Token{Type: TokenComma, Literal: ",", Pos: pos}
	case '.':
		tok = Token{Type: TokenDot, Literal: ".", Pos: pos}
	case ';':
		tok = Token{Type: TokenSemi, Literal: ";", Pos: pos}
	}
	l.readChar()
	return tok
}

// skipSpacesAndComments consumes spaces, tabs, carriage returns and
// line comments. Newlines are significant and left for NextToken.
func (l *Lexer) skipSpacesAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '\\' && l.peekChar() == '\n':
			// line continuation
			l.readChar()
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) readIdent() string {
	var sb strings.Builder
	for isIdentStart(l.ch) || unicode.IsDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return sb.String()
}

func (l *Lexer) readNumber(pos Position) Token {
	var sb strings.Builder
	for unicode.IsDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		sb.WriteRune(l.ch)
		l.readChar()
		for unicode.IsDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		return Token{Type: TokenFloat, Literal: sb.String(), Pos: pos}
	}
	return Token{Type: TokenInt, Literal: sb.String(), Pos: pos}
}

func (l *Lexer) readString(pos Position) Token {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenIllegal, Literal: "unterminated string", Pos: pos}
		case '"':
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 'e':
				sb.WriteByte(0x1b)
			case '\\', '"':
				sb.WriteRune(l.ch)
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}
