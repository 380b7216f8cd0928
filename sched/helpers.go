package sched

import "github.com/loopnest/tirsched/tir"

// exactlyOneChildRealize implements spec §4.6 Step A's "unique child
// BlockRealize" check: body must be a lone BlockRealize, possibly wrapped
// in a single-element SeqStmt.
func exactlyOneChildRealize(body tir.Stmt) (*tir.BlockRealize, bool) {
	switch n := body.(type) {
	case *tir.BlockRealize:
		return n, true
	case tir.SeqStmt:
		if len(n.Seq) == 1 {
			return exactlyOneChildRealize(n.Seq[0])
		}
		return nil, false
	default:
		return nil, false
	}
}

// ancestorLoopPath collects every *tir.For in sref's own ancestor chain
// (including sref itself, if it is a loop), outermost first — the `path`
// input subspace.ClassifyLoops expects for spec §4.3 Step A.
func ancestorLoopPath(sref *StmtSRef) []*tir.For {
	var chain []*tir.For
	for n := sref; n != nil; n = n.Parent {
		if f, ok := n.Stmt.(*tir.For); ok {
			chain = append(chain, f)
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// wrapInnerLoops reconstructs the inner loop nest around body, reusing
// each original loop's shape (Min/Extent/Kind/LoopVar) but a fresh node —
// the new inner BlockRealize (or its own loop nest) becomes the body.
func wrapInnerLoops(loops []*tir.For, body tir.Stmt) tir.Stmt {
	out := body
	for i := len(loops) - 1; i >= 0; i-- {
		l := loops[i]
		out = &tir.For{LoopVar: l.LoopVar, Min: l.Min, Extent: l.Extent, Kind: l.Kind, ThreadBinding: l.ThreadBinding, Annotations: l.Annotations, Body: out}
	}
	return out
}

func domainOf(ivs []*tir.IterVar) map[*tir.Var]tir.Range {
	dom := make(map[*tir.Var]tir.Range, len(ivs))
	for _, iv := range ivs {
		dom[iv.Var] = iv.Domain
	}
	return dom
}

func anyCommReduce(ivs []*tir.IterVar) bool {
	for _, iv := range ivs {
		if iv.IterType == tir.CommReduce {
			return true
		}
	}
	return false
}
