// Package ir defines the program tree shared by all generation phases. The
// structure pass produces content-free skeletons, the population pass
// decorates them with concrete expressions and abstract values, and emission
// renders the result without computing anything further.
package ir

import (
	"progen/pkg/symbols"
	"progen/pkg/types"
	"progen/pkg/value"
)

// Node is the base interface for all tree nodes
type Node interface {
	implNode()
}

// Expr is the interface for expressions
type Expr interface {
	Node
	implExpr()
}

// Stmt is the interface for statements
type Stmt interface {
	Node
	implStmt()
}

// Iterator drives one generated loop. Bounds are fixed at population time;
// a degenerate iterator has an empty iteration space and its body is never
// taken.
type Iterator struct {
	Name       string
	Type       types.IntType
	Start      int
	End        int
	Step       int
	Degenerate bool
}

// Trips returns the number of iterations the loop executes
func (it *Iterator) Trips() int {
	if it.End <= it.Start || it.Step <= 0 {
		return 0
	}
	return (it.End - it.Start + it.Step - 1) / it.Step
}

// --- Expressions ---

// ConstExpr is a literal with a concrete abstract value
type ConstExpr struct {
	V value.Value
}

// VarUse reads or writes a scalar entity. Pointer-kind entities dereference
// at every use.
type VarUse struct {
	Var *symbols.Variable
}

// ArrayUse accesses one array element through the active loop iterators, one
// per dimension in order. Indices are always in bounds by construction.
type ArrayUse struct {
	Arr *symbols.Array
	Idx []*Iterator
}

// BinaryExpr applies a binary operator
type BinaryExpr struct {
	Op value.BinOp
	L  Expr
	R  Expr
}

// UnaryExpr applies a unary operator
type UnaryExpr struct {
	Op value.UnOp
	E  Expr
}

// CastExpr converts to another integral type
type CastExpr struct {
	To types.IntType
	E  Expr
}

// CallExpr invokes an injected external function. Args carries the literal
// input texts verbatim; V is the documented output value, trusted without
// re-derivation.
type CallExpr struct {
	Name string
	Args []string
	Ret  types.IntType
	V    value.Value
}

// AssignExpr writes RHS into Target (a VarUse or ArrayUse)
type AssignExpr struct {
	Target Expr
	RHS    Expr
}

// --- Statements ---

// ScopeStmt is a braced block of statements
type ScopeStmt struct {
	Stmts []Stmt
}

// ExprStmt wraps an expression as a statement
type ExprStmt struct {
	E Expr
}

// StubStmt is a structural placeholder replaced during population. One
// surviving to emission is a generator defect.
type StubStmt struct{}

// IfElseStmt is a conditional with an optional else branch. Taken records
// which way the populated condition goes.
type IfElseStmt struct {
	Cond  Expr
	Taken bool
	Then  *ScopeStmt
	Else  *ScopeStmt
}

// Loop is one loop of a sequence: a header iterator plus a body
type Loop struct {
	Head *Iterator
	Body *ScopeStmt
}

// LoopSeqStmt is a run of sibling loops
type LoopSeqStmt struct {
	Loops []*Loop
}

// LoopNestStmt is a perfect nest of loops around a single body
type LoopNestStmt struct {
	Depth int
	Iters []*Iterator
	Body  *ScopeStmt
}

// Marker methods
func (*ConstExpr) implNode()    {}
func (*VarUse) implNode()       {}
func (*ArrayUse) implNode()     {}
func (*BinaryExpr) implNode()   {}
func (*UnaryExpr) implNode()    {}
func (*CastExpr) implNode()     {}
func (*CallExpr) implNode()     {}
func (*AssignExpr) implNode()   {}
func (*ScopeStmt) implNode()    {}
func (*ExprStmt) implNode()     {}
func (*StubStmt) implNode()     {}
func (*IfElseStmt) implNode()   {}
func (*LoopSeqStmt) implNode()  {}
func (*LoopNestStmt) implNode() {}

func (*ConstExpr) implExpr()  {}
func (*VarUse) implExpr()     {}
func (*ArrayUse) implExpr()   {}
func (*BinaryExpr) implExpr() {}
func (*UnaryExpr) implExpr()  {}
func (*CastExpr) implExpr()   {}
func (*CallExpr) implExpr()   {}
func (*AssignExpr) implExpr() {}

func (*ScopeStmt) implStmt()    {}
func (*ExprStmt) implStmt()     {}
func (*StubStmt) implStmt()     {}
func (*IfElseStmt) implStmt()   {}
func (*LoopSeqStmt) implStmt()  {}
func (*LoopNestStmt) implStmt() {}
