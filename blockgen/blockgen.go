// Package blockgen implements spec §4.5, the inner and init generators used
// by Blockize (package sched): building the inner BlockRealize that sits
// under the new outer block, and, when the original block carried a
// reduction init, the outer block's own init subtree.
//
// The clone-and-rename-through-a-substitution-map shape mirrors
// refactoring/extractfunc.go's handling of the extracted function body: the
// original subtree is copied, then a variable-rename map is applied across
// the whole copy in one pass.
package blockgen

import (
	"github.com/loopnest/tirsched/binding"
	"github.com/loopnest/tirsched/tir"
)

// Inner builds the inner BlockRealize (spec §4.5 "Inner"): a clone of the
// substituted block with its iter_vars replaced by innerIterVars, Init
// cleared, and — when hasOuterReduction is true — its original Writes
// prepended to its Reads, enforcing read-before-write for the reduction
// update performed at the inner level.
func Inner(substituted *tir.Block, innerIterVars []*tir.IterVar, innerBindings []tir.Expr, predicate tir.Expr, hasOuterReduction bool) *tir.BlockRealize {
	nb := tir.CopyStmt(substituted).(*tir.Block)
	nb.IterVars = innerIterVars
	nb.Init = nil
	if hasOuterReduction {
		nb.Reads = append(append([]*tir.BufferRegion{}, nb.Writes...), nb.Reads...)
	}
	return &tir.BlockRealize{IterValues: innerBindings, Predicate: predicate, Block: nb}
}

// GenerateOuterInit implements spec §4.5 "Outer init": build a second inner
// BlockRealize restricted to the DataPar iter vars of the inner block that
// the original init body actually references, then wrap it in a loop nest
// mirroring the inner loops used by at least one of those bindings. Every
// new iter var and loop var is freshly suffixed ("_init"), and each is used
// as both its own loop var and the point-wise binding for the
// corresponding init block iter var, since the init realize's iteration
// space is exactly the referenced inner iter vars' domain.
//
// substBlock is the original block after iter-var substitution (spec §4.4
// step 6) but before blockgen.Inner clears its Init; derived is the binding
// deriver's output for the same block. innerLoops supplies the Kind
// (serial/parallel/…) to carry over for loops at the same position, by
// position — a deliberate simplification over matching loops by the
// variable they were split from, which the single-loop and group Blockize
// callers already keep in a 1:1 order with the referenced iter vars in
// every scenario this module targets.
func GenerateOuterInit(substBlock *tir.Block, derived binding.Derived, innerLoops []*tir.For) tir.Stmt {
	initBody := substBlock.Init
	if initBody == nil {
		return nil
	}
	simp := tir.BasicSimplifier{}
	subst := tir.Mapping{}
	var initIterVars []*tir.IterVar
	var initBindings []tir.Expr
	var loopVars []*tir.Var
	var loopExtents []tir.Expr
	var loopKinds []tir.ForKind

	used := map[*tir.Var]bool{}
	for _, v := range tir.FreeVarsStmt(initBody) {
		used[v] = true
	}

	for _, p := range derived.PerOriginal {
		if p.Original.IterType != tir.DataPar || p.Inner == nil {
			continue
		}
		if !used[p.Inner.Var] {
			continue
		}
		fresh := p.Inner.Var.Fresh("_init")
		subst[p.Inner.Var] = fresh
		initIterVars = append(initIterVars, tir.NewIterVar(p.Inner.Domain, fresh, p.Inner.IterType))
		initBindings = append(initBindings, fresh)

		kind := tir.Serial
		if idx := len(loopVars); idx < len(innerLoops) {
			kind = innerLoops[idx].Kind
		}
		loopVars = append(loopVars, fresh)
		loopExtents = append(loopExtents, p.Inner.Domain.Extent)
		loopKinds = append(loopKinds, kind)
	}

	initRealize := &tir.BlockRealize{
		IterValues: initBindings,
		Predicate:  tir.True,
		Block: &tir.Block{
			IterVars: initIterVars,
			Reads:    copyRegions(substBlock.Writes),
			Writes:   copyRegions(substBlock.Writes),
			NameHint: substBlock.NameHint + "_init",
			Body:     tir.SubstituteStmt(initBody, subst, simp, nil),
		},
	}

	var out tir.Stmt = initRealize
	for i := len(loopVars) - 1; i >= 0; i-- {
		out = &tir.For{
			LoopVar: loopVars[i],
			Min:     tir.IntImm{Value: 0, DT: loopVars[i].DType},
			Extent:  loopExtents[i],
			Kind:    loopKinds[i],
			Body:    out,
		}
	}
	return out
}

func copyRegions(regions []*tir.BufferRegion) []*tir.BufferRegion {
	out := make([]*tir.BufferRegion, len(regions))
	for i, r := range regions {
		ranges := make([]tir.Range, len(r.Region))
		copy(ranges, r.Region)
		out[i] = &tir.BufferRegion{Buffer: r.Buffer, Region: ranges}
	}
	return out
}
