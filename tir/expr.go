package tir

import "fmt"

// Expr is satisfied by every pure expression node. Node is the common base
// for Expr and Stmt, used by the generic walker in visit.go.
type Expr interface {
	Node
	Type() DType
	isExpr()
}

// Node is implemented by both Expr and Stmt so Inspect can walk either.
type Node interface {
	String() string
}

// IntImm is an integer literal.
type IntImm struct {
	Value int64
	DT    DType
}

func (IntImm) isExpr()        {}
func (n IntImm) Type() DType  { return n.DT }
func (n IntImm) String() string {
	return fmt.Sprintf("%d", n.Value)
}

// FloatImm is a floating point literal.
type FloatImm struct {
	Value float64
	DT    DType
}

func (FloatImm) isExpr()       {}
func (n FloatImm) Type() DType { return n.DT }
func (n FloatImm) String() string {
	return fmt.Sprintf("%g", n.Value)
}

// *Var implements Expr directly: a variable reference is just the variable.
func (*Var) isExpr()       {}
func (v *Var) Type() DType { return v.DType }

// BinOp identifies an arithmetic or comparison operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpFloorMod
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpAnd
	OpOr
	OpMin
	OpMax
)

var binOpSymbol = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpFloorDiv: "//",
	OpMod: "%", OpFloorMod: "%%", OpEQ: "==", OpNE: "!=", OpLT: "<",
	OpLE: "<=", OpGT: ">", OpGE: ">=", OpAnd: "&&", OpOr: "||",
	OpMin: "min", OpMax: "max",
}

func isCompareOp(op BinOp) bool {
	switch op {
	case OpEQ, OpNE, OpLT, OpLE, OpGT, OpGE, OpAnd, OpOr:
		return true
	}
	return false
}

// Binary is a generic binary arithmetic/comparison expression. Add, Sub,
// Mul, and friends below are thin constructors kept for readability at call
// sites and because the spec names them directly (binding = outer *
// inner_extent + inner).
type Binary struct {
	Op   BinOp
	A, B Expr
}

func (Binary) isExpr() {}
func (n Binary) Type() DType {
	if isCompareOp(n.Op) {
		return Bool1
	}
	return n.A.Type()
}
func (n Binary) String() string {
	if n.Op == OpMin || n.Op == OpMax {
		return fmt.Sprintf("%s(%s, %s)", binOpSymbol[n.Op], n.A, n.B)
	}
	return fmt.Sprintf("(%s %s %s)", n.A, binOpSymbol[n.Op], n.B)
}

// NewAdd, NewMul, etc. construct Binary nodes so call sites read the way
// the spec's algebra does (outer*inner_extent+inner).
func NewAdd(a, b Expr) Binary      { return Binary{Op: OpAdd, A: a, B: b} }
func NewSub(a, b Expr) Binary      { return Binary{Op: OpSub, A: a, B: b} }
func NewMul(a, b Expr) Binary      { return Binary{Op: OpMul, A: a, B: b} }
func NewFloorDiv(a, b Expr) Binary { return Binary{Op: OpFloorDiv, A: a, B: b} }
func NewFloorMod(a, b Expr) Binary { return Binary{Op: OpFloorMod, A: a, B: b} }
func NewEQ(a, b Expr) Binary       { return Binary{Op: OpEQ, A: a, B: b} }
func NewAnd(a, b Expr) Binary      { return Binary{Op: OpAnd, A: a, B: b} }
func NewMin(a, b Expr) Binary      { return Binary{Op: OpMin, A: a, B: b} }
func NewMax(a, b Expr) Binary      { return Binary{Op: OpMax, A: a, B: b} }

// Not is logical negation.
type Not struct{ X Expr }

func (Not) isExpr()         {}
func (Not) Type() DType     { return Bool1 }
func (n Not) String() string { return fmt.Sprintf("!%s", n.X) }

// Cast converts Value to DT.
type Cast struct {
	DT    DType
	Value Expr
}

func (Cast) isExpr()        {}
func (n Cast) Type() DType  { return n.DT }
func (n Cast) String() string {
	return fmt.Sprintf("cast<%s>(%s)", n.DT, n.Value)
}

// BufferLoad reads Buffer[Indices...].
type BufferLoad struct {
	Buffer  *Buffer
	Indices []Expr
}

func (BufferLoad) isExpr()       {}
func (n BufferLoad) Type() DType { return n.Buffer.DType }
func (n BufferLoad) String() string {
	s := n.Buffer.Name
	for _, idx := range n.Indices {
		s += fmt.Sprintf("[%s]", idx)
	}
	return s
}

// True and False are the canonical boolean literals; IsLiteralTrue is used
// throughout subspace division (spec §4.3 Step C: "predicate is literally
// 1") to recognize them regardless of which construction path produced the
// value.
var (
	True  = IntImm{Value: 1, DT: Bool1}
	False = IntImm{Value: 0, DT: Bool1}
)

// IsLiteralTrue reports whether e is the literal boolean/integer constant 1.
func IsLiteralTrue(e Expr) bool {
	if imm, ok := e.(IntImm); ok {
		return imm.Value != 0
	}
	return false
}
