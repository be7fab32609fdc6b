package compiler

// ---------------------------------------------------------------------------
// AST node types
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	Position() Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root node: the statements of one compilation unit.
type Program struct {
	Stmts []Stmt
}

// IntLit is an integer literal.
type IntLit struct {
	Pos   Position
	Value int64
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Pos   Position
	Value float64
}

// StringLit is a double-quoted string literal, escapes resolved.
type StringLit struct {
	Pos   Position
	Value string
}

// SymLit is a symbol literal (:name).
type SymLit struct {
	Pos  Position
	Name string
}

// BoolLit is true or false.
type BoolLit struct {
	Pos   Position
	Value bool
}

// NilLit is nil.
type NilLit struct {
	Pos Position
}

// ArrayLit is an array literal.
type ArrayLit struct {
	Pos      Position
	Elements []Expr
}

// Ident is a bare identifier: a local variable reference, or a
// zero-argument self send when no such local exists.
type Ident struct {
	Pos  Position
	Name string
}

// Assign assigns to a local variable.
type Assign struct {
	Pos   Position
	Name  string
	Value Expr
}

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	Pos   Position
	Op    TokenType
	Left  Expr
	Right Expr
}

// UnaryExpr applies a prefix operator (- or !).
type UnaryExpr struct {
	Pos     Position
	Op      TokenType
	Operand Expr
}

// CallExpr sends a message. Recv is nil for self sends (puts x, foo(1)).
type CallExpr struct {
	Pos  Position
	Recv Expr
	Name string
	Args []Expr
}

// ElsifClause is one elsif arm of an IfExpr.
type ElsifClause struct {
	Pos  Position
	Cond Expr
	Then []Stmt
}

// IfExpr is an if/elsif/else/end expression.
type IfExpr struct {
	Pos    Position
	Cond   Expr
	Then   []Stmt
	Elsifs []ElsifClause
	Else   []Stmt // nil when absent
}

// WhileExpr is a while/end loop. Its value is nil.
type WhileExpr struct {
	Pos  Position
	Cond Expr
	Body []Stmt
}

// ExprStmt wraps an expression in statement position.
type ExprStmt struct {
	Expr Expr
}

// ReturnStmt returns from the enclosing unit.
type ReturnStmt struct {
	Pos   Position
	Value Expr // nil for a bare return
}

// DefStmt defines a method; its body compiles into a child unit.
type DefStmt struct {
	Pos    Position
	Name   string
	Params []string
	Body   []Stmt
}

func (n *IntLit) Position() Position     { return n.Pos }
func (n *FloatLit) Position() Position   { return n.Pos }
func (n *StringLit) Position() Position  { return n.Pos }
func (n *SymLit) Position() Position     { return n.Pos }
func (n *BoolLit) Position() Position    { return n.Pos }
func (n *NilLit) Position() Position     { return n.Pos }
func (n *ArrayLit) Position() Position   { return n.Pos }
func (n *Ident) Position() Position      { return n.Pos }
func (n *Assign) Position() Position     { return n.Pos }
func (n *BinaryExpr) Position() Position { return n.Pos }
func (n *UnaryExpr) Position() Position  { return n.Pos }
func (n *CallExpr) Position() Position   { return n.Pos }
func (n *IfExpr) Position() Position     { return n.Pos }
func (n *WhileExpr) Position() Position  { return n.Pos }
func (n *ExprStmt) Position() Position   { return n.Expr.Position() }
func (n *ReturnStmt) Position() Position { return n.Pos }
func (n *DefStmt) Position() Position    { return n.Pos }

func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*SymLit) exprNode()     {}
func (*BoolLit) exprNode()    {}
func (*NilLit) exprNode()     {}
func (*ArrayLit) exprNode()   {}
func (*Ident) exprNode()      {}
func (*Assign) exprNode()     {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*IfExpr) exprNode()     {}
func (*WhileExpr) exprNode()  {}

func (*ExprStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}
func (*DefStmt) stmtNode()    {}
