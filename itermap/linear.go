package itermap

import "github.com/loopnest/tirsched/tir"

// LinearTerm is one var*coefficient addend of a decomposed linear
// expression.
type LinearTerm struct {
	Var   *tir.Var
	Coeff int64
}

// LinearForm is the result of decomposing an expression into Σ coeff*var +
// Const, in first-occurrence order.
type LinearForm struct {
	Terms []LinearTerm
	Const int64
}

// CoeffOf returns the coefficient of v in f, or 0 if v does not occur.
func (f LinearForm) CoeffOf(v *tir.Var) int64 {
	for _, t := range f.Terms {
		if t.Var == v {
			return t.Coeff
		}
	}
	return 0
}

// LinearDecompose attempts to flatten e into Σ coeff*var + const. It
// handles IntImm, *Var, Add, Sub, and Mul-by-constant; any other node
// (FloorDiv, FloorMod, Cast, BufferLoad, non-constant Mul, ...) means e is
// not affine in the enclosing loop vars and ok is false.
func LinearDecompose(e tir.Expr) (LinearForm, bool) {
	switch n := e.(type) {
	case tir.IntImm:
		return LinearForm{Const: n.Value}, true
	case *tir.Var:
		return LinearForm{Terms: []LinearTerm{{Var: n, Coeff: 1}}}, true
	case tir.Binary:
		switch n.Op {
		case tir.OpAdd:
			a, ok1 := LinearDecompose(n.A)
			b, ok2 := LinearDecompose(n.B)
			if !ok1 || !ok2 {
				return LinearForm{}, false
			}
			return addForms(a, b, 1), true
		case tir.OpSub:
			a, ok1 := LinearDecompose(n.A)
			b, ok2 := LinearDecompose(n.B)
			if !ok1 || !ok2 {
				return LinearForm{}, false
			}
			return addForms(a, b, -1), true
		case tir.OpMul:
			if c, ok := n.B.(tir.IntImm); ok {
				a, ok1 := LinearDecompose(n.A)
				if !ok1 {
					return LinearForm{}, false
				}
				return scaleForm(a, c.Value), true
			}
			if c, ok := n.A.(tir.IntImm); ok {
				b, ok1 := LinearDecompose(n.B)
				if !ok1 {
					return LinearForm{}, false
				}
				return scaleForm(b, c.Value), true
			}
			return LinearForm{}, false
		default:
			return LinearForm{}, false
		}
	default:
		return LinearForm{}, false
	}
}

func addForms(a, b LinearForm, sign int64) LinearForm {
	out := LinearForm{Const: a.Const + sign*b.Const}
	out.Terms = append(out.Terms, a.Terms...)
	for _, t := range b.Terms {
		found := false
		for i := range out.Terms {
			if out.Terms[i].Var == t.Var {
				out.Terms[i].Coeff += sign * t.Coeff
				found = true
				break
			}
		}
		if !found {
			out.Terms = append(out.Terms, LinearTerm{Var: t.Var, Coeff: sign * t.Coeff})
		}
	}
	return out
}

func scaleForm(a LinearForm, c int64) LinearForm {
	out := LinearForm{Const: a.Const * c}
	out.Terms = make([]LinearTerm, len(a.Terms))
	for i, t := range a.Terms {
		out.Terms[i] = LinearTerm{Var: t.Var, Coeff: t.Coeff * c}
	}
	return out
}

// ToExpr rebuilds a plain expression from f, in dt's dtype.
func (f LinearForm) ToExpr(dt tir.DType) tir.Expr {
	var out tir.Expr = tir.IntImm{Value: f.Const, DT: dt}
	first := f.Const == 0 && len(f.Terms) > 0
	for _, t := range f.Terms {
		term := termExpr(t, dt)
		if first {
			out = term
			first = false
			continue
		}
		out = tir.NewAdd(out, term)
	}
	return tir.BasicSimplifier{}.Simplify(out)
}

func termExpr(t LinearTerm, dt tir.DType) tir.Expr {
	if t.Coeff == 1 {
		return t.Var
	}
	return tir.NewMul(tir.IntImm{Value: t.Coeff, DT: dt}, t.Var)
}
