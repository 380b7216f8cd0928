package tir

// Simplifier is the arithmetic-analyzer boundary spec §4.1 calls "an
// external analyzer": Substitute passes every rewritten subtree through it
// when the subtree actually changed. Binding deriver (package binding) and
// the iter-map solver (package itermap) use the same interface to
// normalize carrier expressions back to plain arithmetic.
type Simplifier interface {
	Simplify(Expr) Expr
}

// BasicSimplifier folds integer constants and a handful of algebraic
// identities (x+0, x*1, x*0, 0-prefixed sums). It is not a general
// arithmetic solver — the full affine iter-map solver is a distinct
// external-collaborator boundary (package itermap) — but it is enough to
// keep generated index expressions in the compact form the scenarios in
// spec §8 expect.
type BasicSimplifier struct{}

func (BasicSimplifier) Simplify(e Expr) Expr {
	switch n := e.(type) {
	case Binary:
		a := BasicSimplifier{}.Simplify(n.A)
		b := BasicSimplifier{}.Simplify(n.B)
		return simplifyBinary(n.Op, a, b)
	case Not:
		x := BasicSimplifier{}.Simplify(n.X)
		if imm, ok := x.(IntImm); ok {
			if imm.Value == 0 {
				return True
			}
			return False
		}
		return Not{X: x}
	case Cast:
		v := BasicSimplifier{}.Simplify(n.Value)
		if imm, ok := v.(IntImm); ok {
			return IntImm{Value: imm.Value, DT: n.DT}
		}
		return Cast{DT: n.DT, Value: v}
	case BufferLoad:
		return BufferLoad{Buffer: n.Buffer, Indices: simplifySlice(n.Indices)}
	default:
		return e
	}
}

func simplifySlice(es []Expr) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = BasicSimplifier{}.Simplify(e)
	}
	return out
}

func simplifyBinary(op BinOp, a, b Expr) Expr {
	ai, aok := a.(IntImm)
	bi, bok := b.(IntImm)
	if aok && bok {
		switch op {
		case OpAdd:
			return IntImm{Value: ai.Value + bi.Value, DT: ai.DT}
		case OpSub:
			return IntImm{Value: ai.Value - bi.Value, DT: ai.DT}
		case OpMul:
			return IntImm{Value: ai.Value * bi.Value, DT: ai.DT}
		case OpDiv, OpFloorDiv:
			if bi.Value != 0 {
				return IntImm{Value: floorDiv(ai.Value, bi.Value), DT: ai.DT}
			}
		case OpMod, OpFloorMod:
			if bi.Value != 0 {
				return IntImm{Value: floorMod(ai.Value, bi.Value), DT: ai.DT}
			}
		case OpEQ:
			return boolImm(ai.Value == bi.Value)
		case OpNE:
			return boolImm(ai.Value != bi.Value)
		case OpLT:
			return boolImm(ai.Value < bi.Value)
		case OpLE:
			return boolImm(ai.Value <= bi.Value)
		case OpGT:
			return boolImm(ai.Value > bi.Value)
		case OpGE:
			return boolImm(ai.Value >= bi.Value)
		case OpAnd:
			return boolImm(ai.Value != 0 && bi.Value != 0)
		case OpOr:
			return boolImm(ai.Value != 0 || bi.Value != 0)
		case OpMin:
			if ai.Value < bi.Value {
				return ai
			}
			return bi
		case OpMax:
			if ai.Value > bi.Value {
				return ai
			}
			return bi
		}
	}
	switch op {
	case OpAdd:
		if aok && ai.Value == 0 {
			return b
		}
		if bok && bi.Value == 0 {
			return a
		}
	case OpSub:
		if bok && bi.Value == 0 {
			return a
		}
	case OpMul:
		if aok && ai.Value == 1 {
			return b
		}
		if bok && bi.Value == 1 {
			return a
		}
		if (aok && ai.Value == 0) || (bok && bi.Value == 0) {
			return IntImm{Value: 0, DT: a.Type()}
		}
	case OpFloorDiv, OpDiv:
		if bok && bi.Value == 1 {
			return a
		}
	}
	return Binary{Op: op, A: a, B: b}
}

func boolImm(v bool) IntImm {
	if v {
		return IntImm{Value: 1, DT: Bool1}
	}
	return IntImm{Value: 0, DT: Bool1}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
