package compiler

import "fmt"

// TokenType identifies the type of a lexical token.
type TokenType int

const (
	TokenIllegal TokenType = iota
	TokenEOF
	TokenNewline

	// Literals and identifiers
	TokenIdent
	TokenInt
	TokenFloat
	TokenString
	TokenSymbol // :name

	// Keywords
	TokenIf
	TokenElsif
	TokenElse
	TokenEnd
	TokenWhile
	TokenDef
	TokenReturn
	TokenTrue
	TokenFalse
	TokenNil

	// Operators and punctuation
	TokenAssign   // =
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenEq       // ==
	TokenNotEq    // !=
	TokenLt       // <
	TokenLe       // <=
	TokenGt       // >
	TokenGe       // >=
	TokenBang     // !
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
	TokenDot      // .
	TokenSemi     // ;
)

var tokenNames = map[TokenType]string{
	TokenIllegal:  "ILLEGAL",
	TokenEOF:      "EOF",
	TokenNewline:  "NEWLINE",
	TokenIdent:    "IDENT",
	TokenInt:      "INT",
	TokenFloat:    "FLOAT",
	TokenString:   "STRING",
	TokenSymbol:   "SYMBOL",
	TokenIf:       "if",
	TokenElsif:    "elsif",
	TokenElse:     "else",
	TokenEnd:      "end",
	TokenWhile:    "while",
	TokenDef:      "def",
	TokenReturn:   "return",
	TokenTrue:     "true",
	TokenFalse:    "false",
	TokenNil:      "nil",
	TokenAssign:   "=",
	TokenPlus:     "+",
	TokenMinus:    "-",
	TokenStar:     "*",
	TokenSlash:    "/",
	TokenPercent:  "%",
	TokenEq:       "==",
	TokenNotEq:    "!=",
	TokenLt:       "<",
	TokenLe:       "<=",
	TokenGt:       ">",
	TokenGe:       ">=",
	TokenBang:     "!",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenLBracket: "[",
	TokenRBracket: "]",
	TokenComma:    ",",
	TokenDot:      ".",
	TokenSemi:     ";",
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"if":     TokenIf,
	"elsif":  TokenElsif,
	"else":   TokenElse,
	"end":    TokenEnd,
	"while":  TokenWhile,
	"def":    TokenDef,
	"return": TokenReturn,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"nil":    TokenNil,
}

// lookupIdent returns the keyword token type for an identifier, or
// TokenIdent when it is not a keyword.
func lookupIdent(name string) TokenType {
	if t, ok := keywords[name]; ok {
		return t
	}
	return TokenIdent
}

// Position locates a token in its source file. Line numbers restart at
// 1 whenever chained compilation switches to the next input file.
type Position struct {
	File string
	Line int
}

// String formats the position the way diagnostics print it.
func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
