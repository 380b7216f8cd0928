package tir

// InspectExpr walks e and every subexpression, calling f on each node. If f
// returns false for a node, that node's children are not visited. This is
// the same downcast-per-variant dispatch go/ast.Inspect uses for
// go/ast.Node, specialized to tir's own Expr sum type (design note
// "Polymorphic IR visitors").
func InspectExpr(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch n := e.(type) {
	case IntImm, FloatImm, *Var:
		// leaves
	case Binary:
		InspectExpr(n.A, f)
		InspectExpr(n.B, f)
	case Not:
		InspectExpr(n.X, f)
	case Cast:
		InspectExpr(n.Value, f)
	case BufferLoad:
		for _, idx := range n.Indices {
			InspectExpr(idx, f)
		}
	default:
		panic("tir: InspectExpr: unhandled Expr variant")
	}
}

// InspectStmt walks s and every nested statement/expression.
func InspectStmt(s Stmt, fStmt func(Stmt) bool, fExpr func(Expr) bool) {
	if s == nil || !fStmt(s) {
		return
	}
	switch n := s.(type) {
	case SeqStmt:
		for _, c := range n.Seq {
			InspectStmt(c, fStmt, fExpr)
		}
	case IfThenElse:
		InspectExpr(n.Cond, fExpr)
		InspectStmt(n.Then, fStmt, fExpr)
		if n.Else != nil {
			InspectStmt(n.Else, fStmt, fExpr)
		}
	case *For:
		InspectExpr(n.Min, fExpr)
		InspectExpr(n.Extent, fExpr)
		InspectStmt(n.Body, fStmt, fExpr)
	case *BufferStore:
		for _, idx := range n.Indices {
			InspectExpr(idx, fExpr)
		}
		InspectExpr(n.Value, fExpr)
	case *Block:
		for _, r := range n.Reads {
			for _, rng := range r.Region {
				InspectExpr(rng.Min, fExpr)
				InspectExpr(rng.Extent, fExpr)
			}
		}
		for _, w := range n.Writes {
			for _, rng := range w.Region {
				InspectExpr(rng.Min, fExpr)
				InspectExpr(rng.Extent, fExpr)
			}
		}
		InspectStmt(n.Body, fStmt, fExpr)
		if n.Init != nil {
			InspectStmt(n.Init, fStmt, fExpr)
		}
	case *BlockRealize:
		for _, v := range n.IterValues {
			InspectExpr(v, fExpr)
		}
		InspectExpr(n.Predicate, fExpr)
		InspectStmt(n.Block, fStmt, fExpr)
	default:
		panic("tir: InspectStmt: unhandled Stmt variant")
	}
}

// FreeVarsExpr returns, in first-occurrence order, every *Var referenced by
// e.
func FreeVarsExpr(e Expr) []*Var {
	seen := map[*Var]bool{}
	var out []*Var
	InspectExpr(e, func(n Expr) bool {
		if v, ok := n.(*Var); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		return true
	})
	return out
}

// FreeVarsStmt returns, in first-occurrence order, every *Var referenced
// anywhere within s (loop vars bound by nested Fors are included, since
// callers of this module need to know which variables a subtree mentions,
// not which are free in the formal sense).
func FreeVarsStmt(s Stmt) []*Var {
	seen := map[*Var]bool{}
	var out []*Var
	record := func(n Expr) bool {
		if v, ok := n.(*Var); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		return true
	}
	InspectStmt(s, func(Stmt) bool { return true }, record)
	return out
}

// UsesVar reports whether e mentions v.
func UsesVar(e Expr, v *Var) bool {
	found := false
	InspectExpr(e, func(n Expr) bool {
		if found {
			return false
		}
		if o, ok := n.(*Var); ok && o == v {
			found = true
		}
		return !found
	})
	return found
}
