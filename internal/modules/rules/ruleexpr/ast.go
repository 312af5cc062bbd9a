package ruleexpr

// Expr is a node of the parsed filter expression.
type Expr interface {
	exprNode()
}

// TrueExpr is the constant-true expression (empty filter).
type TrueExpr struct{}

// ColumnRef references a column from the closed schema, canonical qualified form.
type ColumnRef struct {
	Name string
}

// NumberLit is an integer or decimal literal.
type NumberLit struct {
	Value float64
}

// StringLit is a single-quoted string literal.
type StringLit struct {
	Value string
}

// CompareExpr applies =, !=, <, <=, > or >= to two operands.
type CompareExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// LogicalExpr applies AND or OR to two boolean operands.
type LogicalExpr struct {
	Op    string // "AND" or "OR"
	Left  Expr
	Right Expr
}

// NotExpr negates a boolean operand.
type NotExpr struct {
	Operand Expr
}

// InExpr tests membership of the operand in a literal list.
type InExpr struct {
	Operand Expr
	List    []Expr
	Negated bool
}

// LikeExpr matches the operand against a pattern with % and _ wildcards.
type LikeExpr struct {
	Operand Expr
	Pattern Expr
	Negated bool
}

func (*TrueExpr) exprNode()    {}
func (*ColumnRef) exprNode()   {}
func (*NumberLit) exprNode()   {}
func (*StringLit) exprNode()   {}
func (*CompareExpr) exprNode() {}
func (*LogicalExpr) exprNode() {}
func (*NotExpr) exprNode()     {}
func (*InExpr) exprNode()      {}
func (*LikeExpr) exprNode()    {}
