package sched

import (
	"strings"

	"github.com/loopnest/tirsched/region"
	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/tir"
)

// BlockizeGroup implements spec §4.7, the group form of Blockize: merge the
// maximal consecutive run of blockSrefs (siblings under their lowest common
// ancestor) into a single outer BlockRealize.
//
// Group blockize does not change the loop structure surrounding the
// target blocks — it only wraps the consecutive run in one more Block
// layer, at the position it already occupies, so the enclosing loops
// above the LCA are left untouched. The new outer block therefore never
// has outer_iter_vars of its own (the "collect external loops above lca"
// case of spec §4.7 would only matter if the new block needed to absorb
// those loops' dimensions, which it does not here); per the already-
// decided len(outerIterVars)==0 rule, it always gets the synthetic unit
// `init_o` iterator.
func BlockizeGroup(state *ScheduleState, blockSrefs []*StmtSRef, preserveUnitIters bool) (*StmtSRef, error) {
	if len(blockSrefs) == 0 {
		schederr.Contractf("Blockize: group form requires at least one target block")
	}
	targets := map[*tir.Block]bool{}
	for _, r := range blockSrefs {
		blk, ok := r.Stmt.(*tir.Block)
		if !ok {
			schederr.Contractf("Blockize: group form targets must all be blocks")
		}
		targets[blk] = true
	}

	lca := state.GetSRefLowestCommonAncestor(blockSrefs)

	var lcaBody tir.Stmt
	if lca == nil {
		lcaBody = state.Mod.Body
	} else {
		switch n := lca.Stmt.(type) {
		case *tir.For:
			lcaBody = n.Body
		case *tir.Block:
			lcaBody = n.Body
		}
	}

	newSeq, mergedBlock := rewriteGroup(tir.Flatten(lcaBody), targets)
	newBody := tir.WrapSeq(newSeq)

	if lca == nil {
		state.Mod.Body = newBody
		state.rebuild()
	} else {
		switch n := lca.Stmt.(type) {
		case *tir.For:
			nf := *n
			nf.Body = newBody
			state.Replace(lca, &nf, nil)
		case *tir.Block:
			nb := *n
			nb.Body = newBody
			state.Replace(lca, &nb, nil)
		}
	}

	newSref := state.GetSRef(mergedBlock)
	state.UpdateScopeBlockInfo(state.GetScopeRoot(newSref))
	return newSref, nil
}

// rewriteGroup scans seq for the maximal consecutive run of BlockRealizes
// whose Block is in targets, replaces it with one merged BlockRealize (a
// single synthetic `init_o` iterator, a SeqStmt of per-target inner
// realizes as its body, and the union of their relaxed read/write
// regions), and returns the new statement list plus the merged block
// itself so the caller can recover its sref after installing the rewrite.
func rewriteGroup(seq []tir.Stmt, targets map[*tir.Block]bool) ([]tir.Stmt, *tir.Block) {
	simp := tir.BasicSimplifier{}
	start, end, found := -1, -1, 0
	for i, s := range seq {
		r, ok := s.(*tir.BlockRealize)
		if !ok || !targets[r.Block] {
			continue
		}
		found++
		if start == -1 {
			start = i
		}
		end = i
	}
	if found == 0 {
		schederr.Contractf("Blockize: no target blocks found at the lowest common ancestor's body")
	}
	if found != len(targets) {
		schederr.Contractf("Blockize: group form targets must all be siblings under the same lowest common ancestor")
	}
	for i := start; i <= end; i++ {
		r, ok := seq[i].(*tir.BlockRealize)
		if !ok || !targets[r.Block] {
			schederr.Contractf("Blockize: target blocks must be consecutive")
		}
	}

	var accReads, accWrites []*tir.BufferRegion
	var names []string
	innerRealizes := make([]tir.Stmt, 0, end-start+1)
	for i := start; i <= end; i++ {
		r := seq[i].(*tir.BlockRealize)
		blk := r.Block
		if blk.Init != nil {
			schederr.Contractf("Blockize: reduction init blocks are not supported by the group form")
		}

		innerSubst := tir.Mapping{}
		innerIterVars := make([]*tir.IterVar, len(blk.IterVars))
		for k, iv := range blk.IterVars {
			fresh := iv.Var.Fresh("_i")
			innerSubst[iv.Var] = fresh
			innerIterVars[k] = tir.NewIterVar(iv.Domain, fresh, iv.IterType)
		}
		nb := tir.SubstituteStmt(blk, innerSubst, simp, nil).(*tir.Block)
		nb.IterVars = innerIterVars

		innerDomain := domainOf(innerIterVars)
		accReads = append(accReads, region.EvalSet(nb.Reads, innerDomain)...)
		accWrites = append(accWrites, region.EvalSet(nb.Writes, innerDomain)...)
		names = append(names, blk.NameHint)

		innerRealizes = append(innerRealizes, &tir.BlockRealize{IterValues: r.IterValues, Predicate: r.Predicate, Block: nb})
	}

	dummy := tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 1, DT: tir.IndexType}), tir.NewVar("init_o", tir.IndexType), tir.DataPar)
	mergedBlock := &tir.Block{
		IterVars: []*tir.IterVar{dummy},
		Reads:    region.UnionRegions(accReads),
		Writes:   region.UnionRegions(accWrites),
		NameHint: "outer_" + strings.Join(names, "_") + "_",
		Body:     tir.WrapSeq(innerRealizes),
	}
	mergedRealize := &tir.BlockRealize{
		IterValues: []tir.Expr{tir.IntImm{Value: 0, DT: tir.IndexType}},
		Predicate:  tir.True,
		Block:      mergedBlock,
	}

	newSeq := make([]tir.Stmt, 0, len(seq)-(end-start)+1)
	newSeq = append(newSeq, seq[:start]...)
	newSeq = append(newSeq, mergedRealize)
	newSeq = append(newSeq, seq[end+1:]...)
	return newSeq, mergedBlock
}
