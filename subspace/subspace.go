// Package subspace implements spec §4.3, the subspace divider: given a
// BlockRealize and a loop marking the inner/outer partition, classify the
// enclosing loops, invoke the affine iter-map solver (package itermap), and
// fall back to a trivial per-binding classification when the solver
// declines and the predicate is literally true.
//
// Step A's ancestor walk is grounded on
// refactoring/extractfunc.go's stmtRange, which walks upward from a
// selection collecting the path to the root and classifying ancestor nodes
// by kind as it goes.
package subspace

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/loopnest/tirsched/itermap"
	"github.com/loopnest/tirsched/tir"
)

// LoopChain describes one loop in the ancestor walk, from the block's
// immediate parent upward.
type LoopChain struct {
	Loop *tir.For
}

// Division is the orchestration-level result of dividing a BlockRealize's
// bindings: one DivisionEntry per original binding, plus the (outer,
// inner) predicate pair (spec §4.3's n+1-length division list, with the
// final entry separated out here for clarity).
type Division struct {
	Entries   []itermap.DivisionEntry
	OuterPred tir.Expr
	InnerPred tir.Expr
	// InnerLoops is the Step A out-list: the inner loops in top-down
	// order, reused by the inner-block-realize construction (package
	// blockgen).
	InnerLoops []*tir.For
}

// Ancestors is the Step A classification: the chain of For loops enclosing
// a block, split into those above (outer) and at-or-below (inner) the
// dividing loop L, both in top-down order (outermost first), plus the
// combined domain map used for region relaxation.
type Ancestors struct {
	Inner    []*tir.For
	Outer    []*tir.For
	DomainOf map[*tir.Var]tir.Range
}

// ClassifyLoops performs spec §4.3 Step A: walking the chain of loops from
// path (the block's ancestor chain, outermost first) upward, classify each
// as inner (below, inclusive of l by default) or outer (above). When
// loopSrefAsOuter is true, l itself is classified as outer instead; the
// Blockize caller in package sched always passes false.
func ClassifyLoops(path []*tir.For, l *tir.For, loopSrefAsOuter bool) Ancestors {
	var inner, outer []*tir.For
	domain := map[*tir.Var]tir.Range{}
	seenL := false
	for _, loop := range path {
		domain[loop.LoopVar] = loop.Domain()
		isInner := seenL
		if loop == l {
			seenL = true
			isInner = !loopSrefAsOuter
		}
		if isInner {
			inner = append(inner, loop)
		} else {
			outer = append(outer, loop)
		}
	}
	return Ancestors{Inner: inner, Outer: outer, DomainOf: domain}
}

func extentOfFn(domain map[*tir.Var]tir.Range) func(*tir.Var) int64 {
	return func(v *tir.Var) int64 {
		r, ok := domain[v]
		if !ok {
			return 1
		}
		imm, ok := r.Extent.(tir.IntImm)
		if !ok {
			return 1
		}
		return imm.Value
	}
}

// Divide runs the full subspace division (spec §4.3 Steps A-C) for realize
// against the loop chain path, dividing at l. On failure (neither the
// solver nor the trivial fallback succeeds), ok is false and the caller
// (package sched) must raise SubspaceNotDivisible.
func Divide(realize *tir.BlockRealize, path []*tir.For, l *tir.For, solver itermap.Solver, loopSrefAsOuter, preserveUnitIters bool) (Division, bool) {
	anc := ClassifyLoops(path, l, loopSrefAsOuter)
	innerVars := loopVars(anc.Inner)
	outerVars := loopVars(anc.Outer)

	entries, predPair, ok := solver.Divide(realize.IterValues, realize.Predicate, innerVars, outerVars, extentOfFn(anc.DomainOf), preserveUnitIters)
	if ok {
		return Division{Entries: entries, OuterPred: predPair[0], InnerPred: predPair[1], InnerLoops: anc.Inner}, true
	}

	entries, ok = trivialFallback(realize, innerVars, outerVars, anc.DomainOf)
	if !ok {
		return Division{}, false
	}
	return Division{Entries: entries, OuterPred: tir.True, InnerPred: tir.True, InnerLoops: anc.Inner}, true
}

func loopVars(loops []*tir.For) []*tir.Var {
	out := make([]*tir.Var, len(loops))
	for i, l := range loops {
		out[i] = l.LoopVar
	}
	return out
}

// trivialFallback implements spec §4.3 Step C: usable only when the
// predicate is literally 1. Each binding must use only inner vars, only
// outer vars, or neither; membership is tested with a bitset keyed by the
// variable's position in innerVars/outerVars rather than a linear scan,
// mirroring the GEN/KILL
// bitset membership tests in extras/cfg/df.go.
func trivialFallback(realize *tir.BlockRealize, innerVars, outerVars []*tir.Var, domain map[*tir.Var]tir.Range) ([]itermap.DivisionEntry, bool) {
	if !tir.IsLiteralTrue(realize.Predicate) {
		return nil, false
	}
	innerSet, innerIndex := membership(innerVars)
	outerSet, outerIndex := membership(outerVars)
	extentOf := extentOfFn(domain)

	entries := make([]itermap.DivisionEntry, len(realize.IterValues))
	for i, b := range realize.IterValues {
		usesInner, usesOuter := false, false
		for _, v := range tir.FreeVarsExpr(b) {
			if idx, ok := innerIndex[v]; ok && innerSet.Test(uint(idx)) {
				usesInner = true
			}
			if idx, ok := outerIndex[v]; ok && outerSet.Test(uint(idx)) {
				usesOuter = true
			}
		}
		if usesInner && usesOuter {
			return nil, false
		}
		dt := b.Type()
		switch {
		case usesInner:
			entries[i] = itermap.DivisionEntry{
				Outer: itermap.UnitMark(dt),
				Inner: &itermap.IterMark{Source: b, Extent: singleVarExtent(b, extentOf)},
			}
		case usesOuter:
			entries[i] = itermap.DivisionEntry{
				Outer: &itermap.IterMark{Source: b, Extent: singleVarExtent(b, extentOf)},
				Inner: itermap.UnitMark(dt),
			}
		default:
			entries[i] = itermap.DivisionEntry{Outer: itermap.UnitMark(dt), Inner: itermap.UnitMark(dt)}
		}
	}
	return entries, true
}

// singleVarExtent returns the declared extent of b when b is exactly a
// single loop var, or 1 (a conservative unit extent) for any more complex
// expression the trivial fallback still accepts, e.g. a constant.
func singleVarExtent(b tir.Expr, extentOf func(*tir.Var) int64) tir.Expr {
	if v, ok := b.(*tir.Var); ok {
		return tir.IntImm{Value: extentOf(v), DT: v.DType}
	}
	return tir.IntImm{Value: 1, DT: b.Type()}
}

func membership(vars []*tir.Var) (*bitset.BitSet, map[*tir.Var]int) {
	bs := bitset.New(uint(len(vars)))
	idx := map[*tir.Var]int{}
	for i, v := range vars {
		idx[v] = i
		bs.Set(uint(i))
	}
	return bs, idx
}
