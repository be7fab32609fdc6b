package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent
// ---------------------------------------------------------------------------

// maxParseErrors caps error accumulation before the parser gives up.
const maxParseErrors = 10

// Parser parses a token stream into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

// NewParser creates a parser over the given lexer.
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	// Fill curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t TokenType) bool { return p.peekToken.Type == t }

// expect advances past the current token if it matches, otherwise
// records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describeCur())
	return false
}

func (p *Parser) describeCur() string {
	if p.curToken.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.curToken.Literal)
}

func (p *Parser) errorf(format string, args ...interface{}) {
	if len(p.errors) >= maxParseErrors {
		return
	}
	msg := fmt.Sprintf("%s: %s", p.curToken.Pos, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// ParseProgram parses the whole input. The returned error joins parse
// diagnostics; an I/O error from the source queue takes precedence
// since everything after it is noise.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	p.skipTerminators()
	for !p.curTokenIs(TokenEOF) && len(p.errors) < maxParseErrors {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		} else {
			// Skip the offending token so parsing can make progress.
			p.nextToken()
		}
		p.skipTerminators()
	}
	if err := p.lexer.Err(); err != nil {
		return prog, err
	}
	if len(p.errors) > 0 {
		return prog, errors.New(strings.Join(p.errors, "\n"))
	}
	return prog, nil
}

// skipTerminators consumes statement separators.
func (p *Parser) skipTerminators() {
	for p.curTokenIs(TokenNewline) || p.curTokenIs(TokenSemi) {
		p.nextToken()
	}
}

// atBlockEnd reports whether the current token closes a statement block.
func (p *Parser) atBlockEnd() bool {
	switch p.curToken.Type {
	case TokenEOF, TokenEnd, TokenElse, TokenElsif:
		return true
	}
	return false
}

// parseBlock parses statements until a block-closing keyword. The
// closing token is left for the caller.
func (p *Parser) parseBlock() []Stmt {
	var stmts []Stmt
	p.skipTerminators()
	for !p.atBlockEnd() && len(p.errors) < maxParseErrors {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		} else {
			p.nextToken()
		}
		p.skipTerminators()
	}
	return stmts
}

func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case TokenReturn:
		return p.parseReturn()
	case TokenDef:
		return p.parseDef()
	case TokenIdent:
		// Paren-less command call: `puts x` or `puts "a", b`.
		if startsCommandArg(p.peekToken.Type) {
			return &ExprStmt{Expr: p.parseCommandCall()}
		}
	}
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	return &ExprStmt{Expr: expr}
}

// startsCommandArg reports whether a token can begin the first argument
// of a paren-less call.
func startsCommandArg(t TokenType) bool {
	switch t {
	case TokenInt, TokenFloat, TokenString, TokenSymbol,
		TokenIdent, TokenTrue, TokenFalse, TokenNil, TokenLBracket:
		return true
	}
	return false
}

func (p *Parser) parseCommandCall() Expr {
	call := &CallExpr{Pos: p.curToken.Pos, Name: p.curToken.Literal}
	p.nextToken()
	call.Args = append(call.Args, p.parseExpression())
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		call.Args = append(call.Args, p.parseExpression())
	}
	return p.parsePostfixOn(call)
}

func (p *Parser) parseReturn() Stmt {
	stmt := &ReturnStmt{Pos: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenNewline) && !p.curTokenIs(TokenSemi) && !p.atBlockEnd() {
		stmt.Value = p.parseExpression()
	}
	return stmt
}

func (p *Parser) parseDef() Stmt {
	stmt := &DefStmt{Pos: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenIdent) {
		p.errorf("expected method name, got %s", p.describeCur())
		return nil
	}
	stmt.Name = p.curToken.Literal
	p.nextToken()

	switch {
	case p.curTokenIs(TokenLParen):
		p.nextToken()
		if !p.curTokenIs(TokenRParen) {
			for {
				if !p.curTokenIs(TokenIdent) {
					p.errorf("expected parameter name, got %s", p.describeCur())
					return nil
				}
				stmt.Params = append(stmt.Params, p.curToken.Literal)
				p.nextToken()
				if !p.curTokenIs(TokenComma) {
					break
				}
				p.nextToken()
			}
		}
		if !p.expect(TokenRParen) {
			return nil
		}
	case p.curTokenIs(TokenIdent):
		// Paren-less parameter list: def foo a, b
		for {
			stmt.Params = append(stmt.Params, p.curToken.Literal)
			p.nextToken()
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
			if !p.curTokenIs(TokenIdent) {
				p.errorf("expected parameter name, got %s", p.describeCur())
				return nil
			}
		}
	}

	stmt.Body = p.parseBlock()
	if !p.expect(TokenEnd) {
		return nil
	}
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions, by precedence
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() Expr {
	if p.curTokenIs(TokenIdent) && p.peekTokenIs(TokenAssign) {
		node := &Assign{Pos: p.curToken.Pos, Name: p.curToken.Literal}
		p.nextToken() // name
		p.nextToken() // =
		node.Value = p.parseAssignment()
		return node
	}
	return p.parseEquality()
}

func (p *Parser) parseEquality() Expr {
	left := p.parseComparison()
	for p.curTokenIs(TokenEq) || p.curTokenIs(TokenNotEq) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseComparison()
		left = &BinaryExpr{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for p.curTokenIs(TokenLt) || p.curTokenIs(TokenLe) ||
		p.curTokenIs(TokenGt) || p.curTokenIs(TokenGe) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseAdditive()
		left = &BinaryExpr{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseMultiplicative()
		left = &BinaryExpr{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseUnary()
		left = &BinaryExpr{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenBang) {
		op := p.curToken.Type
		pos := p.curToken.Pos
		p.nextToken()
		operand := p.parseUnary()
		// Fold negation into numeric literals.
		if op == TokenMinus {
			switch lit := operand.(type) {
			case *IntLit:
				return &IntLit{Pos: pos, Value: -lit.Value}
			case *FloatLit:
				return &FloatLit{Pos: pos, Value: -lit.Value}
			}
		}
		return &UnaryExpr{Pos: pos, Op: op, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	return p.parsePostfixOn(p.parsePrimary())
}

// parsePostfixOn parses dotted sends on an already-parsed receiver.
func (p *Parser) parsePostfixOn(expr Expr) Expr {
	for expr != nil && p.curTokenIs(TokenDot) {
		pos := p.curToken.Pos
		p.nextToken()
		if !p.curTokenIs(TokenIdent) {
			p.errorf("expected method name after '.', got %s", p.describeCur())
			return expr
		}
		call := &CallExpr{Pos: pos, Recv: expr, Name: p.curToken.Literal}
		p.nextToken()
		if p.curTokenIs(TokenLParen) {
			call.Args = p.parseCallArgs()
		}
		expr = call
	}
	return expr
}

// parseCallArgs parses a parenthesized argument list; the current token
// is the opening paren.
func (p *Parser) parseCallArgs() []Expr {
	p.nextToken() // (
	var args []Expr
	if p.curTokenIs(TokenRParen) {
		p.nextToken()
		return args
	}
	for {
		args = append(args, p.parseExpression())
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenRParen)
	return args
}

func (p *Parser) parsePrimary() Expr {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case TokenInt:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf("integer literal out of range: %s", p.curToken.Literal)
		}
		p.nextToken()
		return &IntLit{Pos: pos, Value: v}

	case TokenFloat:
		v, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.errorf("malformed float literal: %s", p.curToken.Literal)
		}
		p.nextToken()
		return &FloatLit{Pos: pos, Value: v}

	case TokenString:
		v := p.curToken.Literal
		p.nextToken()
		return &StringLit{Pos: pos, Value: v}

	case TokenSymbol:
		name := p.curToken.Literal
		p.nextToken()
		return &SymLit{Pos: pos, Name: name}

	case TokenTrue, TokenFalse:
		v := p.curTokenIs(TokenTrue)
		p.nextToken()
		return &BoolLit{Pos: pos, Value: v}

	case TokenNil:
		p.nextToken()
		return &NilLit{Pos: pos}

	case TokenIdent:
		name := p.curToken.Literal
		p.nextToken()
		if p.curTokenIs(TokenLParen) {
			return &CallExpr{Pos: pos, Name: name, Args: p.parseCallArgs()}
		}
		return &Ident{Pos: pos, Name: name}

	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		p.expect(TokenRParen)
		return expr

	case TokenLBracket:
		p.nextToken()
		node := &ArrayLit{Pos: pos}
		if p.curTokenIs(TokenRBracket) {
			p.nextToken()
			return node
		}
		for {
			node.Elements = append(node.Elements, p.parseExpression())
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(TokenRBracket)
		return node

	case TokenIf:
		return p.parseIf()

	case TokenWhile:
		return p.parseWhile()

	case TokenIllegal:
		p.errorf("unexpected character %q", p.curToken.Literal)
		p.nextToken()
		return nil
	}
	p.errorf("unexpected %s", p.describeCur())
	return nil
}

func (p *Parser) parseIf() Expr {
	node := &IfExpr{Pos: p.curToken.Pos}
	p.nextToken() // if
	node.Cond = p.parseExpression()
	node.Then = p.parseBlock()
	for p.curTokenIs(TokenElsif) {
		clause := ElsifClause{Pos: p.curToken.Pos}
		p.nextToken()
		clause.Cond = p.parseExpression()
		clause.Then = p.parseBlock()
		node.Elsifs = append(node.Elsifs, clause)
	}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		node.Else = p.parseBlock()
		if node.Else == nil {
			node.Else = []Stmt{}
		}
	}
	if !p.expect(TokenEnd) {
		return nil
	}
	return node
}

func (p *Parser) parseWhile() Expr {
	node := &WhileExpr{Pos: p.curToken.Pos}
	p.nextToken() // while
	node.Cond = p.parseExpression()
	node.Body = p.parseBlock()
	if !p.expect(TokenEnd) {
		return nil
	}
	return node
}
