package tir

// CopyExpr deep-clones an expression tree. Leaves referencing *Var or
// *Buffer keep the same identity (those are shared-immutable per the data
// model); only the tree structure above them is duplicated.
func CopyExpr(e Expr) Expr {
	switch n := e.(type) {
	case IntImm, FloatImm, *Var:
		return n
	case Binary:
		return Binary{Op: n.Op, A: CopyExpr(n.A), B: CopyExpr(n.B)}
	case Not:
		return Not{X: CopyExpr(n.X)}
	case Cast:
		return Cast{DT: n.DT, Value: CopyExpr(n.Value)}
	case BufferLoad:
		return BufferLoad{Buffer: n.Buffer, Indices: copyExprSlice(n.Indices)}
	default:
		panic("tir: CopyExpr: unhandled Expr variant")
	}
}

func copyExprSlice(es []Expr) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = CopyExpr(e)
	}
	return out
}

func copyRange(r Range) Range {
	return Range{Min: CopyExpr(r.Min), Extent: CopyExpr(r.Extent)}
}

func copyRanges(rs []Range) []Range {
	out := make([]Range, len(rs))
	for i, r := range rs {
		out[i] = copyRange(r)
	}
	return out
}

func copyBufferRegion(br *BufferRegion) *BufferRegion {
	return &BufferRegion{Buffer: br.Buffer, Region: copyRanges(br.Region)}
}

func copyBufferRegions(brs []*BufferRegion) []*BufferRegion {
	out := make([]*BufferRegion, len(brs))
	for i, br := range brs {
		out[i] = copyBufferRegion(br)
	}
	return out
}

func copyAnnotations(a map[string]interface{}) map[string]interface{} {
	if a == nil {
		return nil
	}
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// CopyStmt deep-clones a statement tree, including nested Blocks. Used by
// Tensorize Step B so the tensor-intrinsic registry is never mutated by a
// scheduling primitive.
func CopyStmt(s Stmt) Stmt {
	switch n := s.(type) {
	case nil:
		return nil
	case SeqStmt:
		seq := make([]Stmt, len(n.Seq))
		for i, c := range n.Seq {
			seq[i] = CopyStmt(c)
		}
		return SeqStmt{Seq: seq}
	case IfThenElse:
		var elseCopy Stmt
		if n.Else != nil {
			elseCopy = CopyStmt(n.Else)
		}
		return IfThenElse{Cond: CopyExpr(n.Cond), Then: CopyStmt(n.Then), Else: elseCopy}
	case *For:
		return &For{
			LoopVar:       n.LoopVar,
			Min:           CopyExpr(n.Min),
			Extent:        CopyExpr(n.Extent),
			Kind:          n.Kind,
			Body:          CopyStmt(n.Body),
			ThreadBinding: n.ThreadBinding,
			Annotations:   copyAnnotations(n.Annotations),
		}
	case *BufferStore:
		return &BufferStore{Buffer: n.Buffer, Indices: copyExprSlice(n.Indices), Value: CopyExpr(n.Value)}
	case *Block:
		var initCopy Stmt
		if n.Init != nil {
			initCopy = CopyStmt(n.Init)
		}
		itervars := make([]*IterVar, len(n.IterVars))
		for i, iv := range n.IterVars {
			itervars[i] = &IterVar{Domain: copyRange(iv.Domain), Var: iv.Var, IterType: iv.IterType}
		}
		matchBufs := make([]*MatchBufferRegion, len(n.MatchBuffers))
		for i, mb := range n.MatchBuffers {
			matchBufs[i] = &MatchBufferRegion{Source: mb.Source, Target: copyBufferRegion(mb.Target)}
		}
		return &Block{
			IterVars:     itervars,
			Reads:        copyBufferRegions(n.Reads),
			Writes:       copyBufferRegions(n.Writes),
			NameHint:     n.NameHint,
			Body:         CopyStmt(n.Body),
			Init:         initCopy,
			AllocBuffers: append([]*Buffer(nil), n.AllocBuffers...),
			MatchBuffers: matchBufs,
			Annotations:  copyAnnotations(n.Annotations),
		}
	case *BlockRealize:
		return &BlockRealize{
			IterValues: copyExprSlice(n.IterValues),
			Predicate:  CopyExpr(n.Predicate),
			Block:      CopyStmt(n.Block).(*Block),
		}
	default:
		panic("tir: CopyStmt: unhandled Stmt variant")
	}
}

// CopyPrimFunc deep-clones fn's body, keeping Params/BufferMap identity
// (params and their buffers are shared, only the body tree is duplicated).
func CopyPrimFunc(fn *PrimFunc) *PrimFunc {
	return &PrimFunc{
		Name:      fn.Name,
		Params:    append([]*Var(nil), fn.Params...),
		BufferMap: fn.BufferMap,
		Body:      CopyStmt(fn.Body),
	}
}
