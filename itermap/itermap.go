// Package itermap models the affine iter-map solver that spec §1 and §6
// name as an external collaborator: it carries factorization certificates
// (IterMark/IterSumExpr/IterSplitExpr) and exposes a Solver boundary that
// package subspace calls into during Step B of the subspace divider. The
// concrete Solver here implements the common "canonical nested loop"
// affine case — see DefaultSolver's doc comment for the precise condition it
// checks — rather than a fully general Presburger-style solver, which is
// consistent with spec §9's framing of the iter-map solver as a carrier of
// opaque (source, extent) pairs that this core only needs to construct and
// normalize, never to implement from first principles.
package itermap

import (
	"github.com/loopnest/tirsched/tir"
)

// IterMark is an algebraic certificate of one side (outer or inner) of a
// binding's factorization: an opaque carrier of a source expression and
// its extent (spec §3).
type IterMark struct {
	Source tir.Expr
	Extent tir.Expr
}

// UnitMark is the IterMark for a side of a factorization that contributes
// no iteration (extent 1): the binding does not depend on that side at all.
func UnitMark(dt tir.DType) *IterMark {
	return &IterMark{Source: tir.IntImm{Value: 0, DT: dt}, Extent: tir.IntImm{Value: 1, DT: dt}}
}

// IsUnit reports whether m has extent exactly 1.
func (m *IterMark) IsUnit() bool {
	imm, ok := m.Extent.(tir.IntImm)
	return ok && imm.Value == 1
}

// IterSplitExpr is one affine term of an IterSumExpr: Mark's source, scaled
// by Scale, after dividing by LowerFactor and truncating to Extent. This
// core only needs the normalized algebraic value, not general split
// composition, so LowerFactor/Extent/Scale are carried for completeness
// and Normalize ignores them, returning Mark's source unchanged.
type IterSplitExpr struct {
	Mark        *IterMark
	LowerFactor tir.Expr
	Extent      tir.Expr
	Scale       tir.Expr
}

// Normalize returns the split's value as a plain expression.
func (s *IterSplitExpr) Normalize() tir.Expr {
	return s.Mark.Source
}

// IterSumExpr is a sum of IterSplitExprs plus a base offset — the general
// shape an iter-map solve produces for one binding. Nothing in this module
// constructs one (DefaultSolver and package subspace emit IterMarks
// directly); Normalize is a plain fold of Base plus each term's value.
type IterSumExpr struct {
	Args []*IterSplitExpr
	Base tir.Expr
}

func (s *IterSumExpr) Normalize() tir.Expr {
	simp := tir.BasicSimplifier{}
	out := s.Base
	for _, a := range s.Args {
		out = simp.Simplify(tir.NewAdd(out, a.Normalize()))
	}
	return out
}

// DivisionEntry is one (outer, inner) factorization pair: Outer.Source *
// Inner.Extent + Inner.Source == the original binding, modulo the
// predicate (spec §4.3 Step B).
type DivisionEntry struct {
	Outer *IterMark
	Inner *IterMark
}

// Solver is the external affine iter-map solver boundary (spec §4.3 Step
// B): given the block's iter-value bindings and a partition of the
// enclosing loop domain into "outer" and "inner" variables — each supplied
// top-down / ancestor-first (outermost first) per Open Question #1's
// resolution — produce a per-binding (outer, inner) factorization plus a
// (outer, inner) predicate split, or report that no surjective division
// exists. extentOf resolves a loop var's declared (constant) extent.
type Solver interface {
	Divide(bindings []tir.Expr, predicate tir.Expr, innerVars, outerVars []*tir.Var, extentOf func(*tir.Var) int64, preserveUnitIters bool) (entries []DivisionEntry, predPair [2]tir.Expr, ok bool)
}
