package sched

import (
	"github.com/loopnest/tirsched/binding"
	"github.com/loopnest/tirsched/blockgen"
	"github.com/loopnest/tirsched/itermap"
	"github.com/loopnest/tirsched/region"
	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/subspace"
	"github.com/loopnest/tirsched/tir"
)

// BlockizeSingleLoop implements spec §4.6, the single-loop form of
// Blockize: loopSref names the loop whose body is the unique child
// BlockRealize to divide. It returns the sref of the newly installed outer
// block.
func BlockizeSingleLoop(state *ScheduleState, loopSref *StmtSRef, preserveUnitIters bool) (*StmtSRef, error) {
	loop, ok := loopSref.Stmt.(*tir.For)
	if !ok {
		schederr.Contractf("Blockize: sref does not point to a loop")
	}

	realize, ok := exactlyOneChildRealize(loop.Body)
	if !ok {
		schederr.Contractf("Blockize: loop %s does not have a unique child BlockRealize", loop.LoopVar.Name)
	}
	block := realize.Block
	path := ancestorLoopPath(state.GetSRef(block))

	div, ok := subspace.Divide(realize, path, loop, itermap.DefaultSolver{}, false, preserveUnitIters)
	if !ok {
		return nil, &schederr.SubspaceNotDivisible{ModFunc: state.Mod, Loop: loop, InnerBlock: block}
	}

	derived, err := binding.Derive(block.IterVars, div.Entries, preserveUnitIters, nil)
	if err != nil {
		return nil, err
	}

	reuse := tir.ReuseMap{}
	substituted := tir.SubstituteStmt(block, derived.Subst, tir.BasicSimplifier{}, reuse)
	substBlock, ok := substituted.(*tir.Block)
	if !ok {
		schederr.Contractf("Blockize: substituting the block did not yield a Block")
	}

	hasOuterReduction := substBlock.Init != nil && anyCommReduce(derived.OuterIterVars)

	innerRealize := blockgen.Inner(substBlock, derived.InnerIterVars, derived.InnerBindings, div.InnerPred, hasOuterReduction)
	reuse[block] = innerRealize.Block

	initStmt := blockgen.GenerateOuterInit(substBlock, derived, div.InnerLoops)
	innerBody := wrapInnerLoops(div.InnerLoops, innerRealize)

	innerDomain := domainOf(derived.InnerIterVars)
	outerReads := region.EvalSet(substBlock.Reads, innerDomain)
	outerWrites := region.EvalSet(substBlock.Writes, innerDomain)

	outerBlock := &tir.Block{
		IterVars: derived.OuterIterVars,
		Reads:    outerReads,
		Writes:   outerWrites,
		NameHint: substBlock.NameHint + "_o",
		Body:     innerBody,
		Init:     initStmt,
	}
	outerRealize := &tir.BlockRealize{IterValues: derived.OuterBindings, Predicate: div.OuterPred, Block: outerBlock}

	state.Replace(loopSref, outerRealize, reuse)
	newSref := state.GetSRef(outerBlock)
	state.UpdateScopeBlockInfo(state.GetScopeRoot(newSref))
	return newSref, nil
}
