package tir

// Mapping is a Var->Expr substitution used by Substitute.
type Mapping map[*Var]Expr

// ReuseMap records (old Block -> new Block) pairs produced while
// substituting. The schedule's Replace primitive accepts these pairs, but
// it rebuilds the whole sref tree and does not read them.
type ReuseMap map[*Block]*Block

// SubstituteExpr rewrites every mapped Var occurring in e. Every subtree
// that actually changed is passed through simp (spec §4.1).
func SubstituteExpr(e Expr, m Mapping, simp Simplifier) Expr {
	out, changed := substExpr(e, m, simp)
	if changed {
		return simp.Simplify(out)
	}
	return out
}

// SubstituteStmt rewrites every mapped Var occurring in s. If a *Block is
// encountered, the rewritten copy is recorded into reuse (old -> new); pass
// a nil reuse to skip tracking.
func SubstituteStmt(s Stmt, m Mapping, simp Simplifier, reuse ReuseMap) Stmt {
	out, _ := substStmt(s, m, simp, reuse)
	return out
}

func substExpr(e Expr, m Mapping, simp Simplifier) (Expr, bool) {
	switch n := e.(type) {
	case IntImm, FloatImm:
		return n, false
	case *Var:
		if repl, ok := m[n]; ok {
			return repl, true
		}
		return n, false
	case Binary:
		a, ca := substExpr(n.A, m, simp)
		b, cb := substExpr(n.B, m, simp)
		if !ca && !cb {
			return n, false
		}
		rebuilt := Binary{Op: n.Op, A: a, B: b}
		return simp.Simplify(rebuilt), true
	case Not:
		x, cx := substExpr(n.X, m, simp)
		if !cx {
			return n, false
		}
		return simp.Simplify(Not{X: x}), true
	case Cast:
		v, cv := substExpr(n.Value, m, simp)
		if !cv {
			return n, false
		}
		return simp.Simplify(Cast{DT: n.DT, Value: v}), true
	case BufferLoad:
		idx, changed := substExprSlice(n.Indices, m, simp)
		if !changed {
			return n, false
		}
		return BufferLoad{Buffer: n.Buffer, Indices: idx}, true
	default:
		panic("tir: substExpr: unhandled Expr variant")
	}
}

func substExprSlice(es []Expr, m Mapping, simp Simplifier) ([]Expr, bool) {
	changed := false
	out := make([]Expr, len(es))
	for i, e := range es {
		ne, c := substExpr(e, m, simp)
		out[i] = ne
		changed = changed || c
	}
	return out, changed
}

func substRange(r Range, m Mapping, simp Simplifier) (Range, bool) {
	min, c1 := substExpr(r.Min, m, simp)
	ext, c2 := substExpr(r.Extent, m, simp)
	return Range{Min: min, Extent: ext}, c1 || c2
}

func substBufferRegion(br *BufferRegion, m Mapping, simp Simplifier) (*BufferRegion, bool) {
	changed := false
	region := make([]Range, len(br.Region))
	for i, r := range br.Region {
		nr, c := substRange(r, m, simp)
		region[i] = nr
		changed = changed || c
	}
	if !changed {
		return br, false
	}
	return &BufferRegion{Buffer: br.Buffer, Region: region}, true
}

func substBufferRegions(brs []*BufferRegion, m Mapping, simp Simplifier) ([]*BufferRegion, bool) {
	changed := false
	out := make([]*BufferRegion, len(brs))
	for i, br := range brs {
		nbr, c := substBufferRegion(br, m, simp)
		out[i] = nbr
		changed = changed || c
	}
	return out, changed
}

func substStmt(s Stmt, m Mapping, simp Simplifier, reuse ReuseMap) (Stmt, bool) {
	switch n := s.(type) {
	case SeqStmt:
		changed := false
		seq := make([]Stmt, len(n.Seq))
		for i, c := range n.Seq {
			ns, ch := substStmt(c, m, simp, reuse)
			seq[i] = ns
			changed = changed || ch
		}
		if !changed {
			return n, false
		}
		return SeqStmt{Seq: seq}, true
	case IfThenElse:
		cond, cc := substExpr(n.Cond, m, simp)
		then, ct := substStmt(n.Then, m, simp, reuse)
		var els Stmt
		ce := false
		if n.Else != nil {
			els, ce = substStmt(n.Else, m, simp, reuse)
		}
		if !cc && !ct && !ce {
			return n, false
		}
		return IfThenElse{Cond: cond, Then: then, Else: els}, true
	case *For:
		min, c1 := substExpr(n.Min, m, simp)
		ext, c2 := substExpr(n.Extent, m, simp)
		body, c3 := substStmt(n.Body, m, simp, reuse)
		if !c1 && !c2 && !c3 {
			return n, false
		}
		return &For{LoopVar: n.LoopVar, Min: min, Extent: ext, Kind: n.Kind, Body: body, ThreadBinding: n.ThreadBinding, Annotations: n.Annotations}, true
	case *BufferStore:
		idx, c1 := substExprSlice(n.Indices, m, simp)
		val, c2 := substExpr(n.Value, m, simp)
		if !c1 && !c2 {
			return n, false
		}
		return &BufferStore{Buffer: n.Buffer, Indices: idx, Value: val}, true
	case *Block:
		reads, c1 := substBufferRegions(n.Reads, m, simp)
		writes, c2 := substBufferRegions(n.Writes, m, simp)
		body, c3 := substStmt(n.Body, m, simp, reuse)
		var init Stmt
		c4 := false
		if n.Init != nil {
			init, c4 = substStmt(n.Init, m, simp, reuse)
		}
		nb := &Block{
			IterVars:     n.IterVars,
			Reads:        reads,
			Writes:       writes,
			NameHint:     n.NameHint,
			Body:         body,
			Init:         init,
			AllocBuffers: n.AllocBuffers,
			MatchBuffers: n.MatchBuffers,
			Annotations:  n.Annotations,
		}
		if reuse != nil {
			reuse[n] = nb
		}
		return nb, c1 || c2 || c3 || c4
	case *BlockRealize:
		vals, c1 := substExprSlice(n.IterValues, m, simp)
		pred, c2 := substExpr(n.Predicate, m, simp)
		blk, c3 := substStmt(n.Block, m, simp, reuse)
		if !c1 && !c2 && !c3 {
			return n, false
		}
		return &BlockRealize{IterValues: vals, Predicate: pred, Block: blk.(*Block)}, true
	default:
		panic("tir: substStmt: unhandled Stmt variant")
	}
}
