// Package binding implements spec §4.4, the binding deriver: turning a
// subspace Division (package subspace) into fresh outer/inner IterVars,
// their bindings, and the substitution map that replaces every reference
// to an original block iter var with its outer/inner decomposition.
//
// The "fresh suffixed var + substitution map" shape is grounded on
// refactoring/extractfunc.go's parameter synthesis, which mints new names
// for extracted variables and threads a rename map back through the
// rewritten body.
package binding

import (
	"github.com/pkg/errors"

	"github.com/loopnest/tirsched/itermap"
	"github.com/loopnest/tirsched/tir"
)

// Derived is the spec §4.4 output: the outer and inner iter vars and
// bindings (each in original-iter-var order), plus the substitution map for
// the original block.
type Derived struct {
	OuterIterVars []*tir.IterVar
	OuterBindings []tir.Expr
	InnerIterVars []*tir.IterVar
	InnerBindings []tir.Expr
	Subst         tir.Mapping
	// PerOriginal aligns 1:1 with the `original` slice passed to Derive,
	// recording which fresh outer/inner IterVar (and, for Inner, which
	// InnerBindings index) each original iter var decomposed into — used
	// by package blockgen's outer-init generator (spec §4.5) to find the
	// inner binding for a DataPar iter var referenced by the init body.
	PerOriginal []PerIterVar
}

// PerIterVar records one original iter var's outer/inner decomposition.
// InnerIndex is its position in Derived.InnerIterVars/InnerBindings, or -1
// if no inner iter was produced (unit inner extent).
type PerIterVar struct {
	Original   *tir.IterVar
	Outer      *tir.IterVar
	Inner      *tir.IterVar
	InnerIndex int
}

// Derive implements spec §4.4. original is the block's original iter vars,
// in order; entries is the subspace division for each (length must match
// original). preserveUnitIters controls whether a fully-unit binding
// collapses its substitution to the literal 0 (false) or keeps the outer
// var (true). reuseOuter, when non-nil, supplies outer iter vars already
// allocated for a previous pass over the same positions (spec §4.4 step 2's
// "reuse_outer" flag); Derive checks that the reused and the new outer
// extents are equal constants before reusing, and does not compare Min.
func Derive(original []*tir.IterVar, entries []itermap.DivisionEntry, preserveUnitIters bool, reuseOuter []*tir.IterVar) (Derived, error) {
	if len(original) != len(entries) {
		return Derived{}, errors.Errorf("binding deriver: %d iter vars but %d division entries", len(original), len(entries))
	}
	simp := tir.BasicSimplifier{}
	out := Derived{Subst: tir.Mapping{}}

	for i, iv := range original {
		o := entries[i].Outer
		n := entries[i].Inner

		var outerIter *tir.IterVar
		if reuseOuter != nil && i < len(reuseOuter) && reuseOuter[i] != nil {
			existing := reuseOuter[i]
			if !sameExtent(existing.Domain.Extent, o.Extent) {
				return Derived{}, errors.Errorf("binding deriver: reuse_outer extent mismatch at position %d", i)
			}
			outerIter = existing
		} else {
			outerIter = tir.NewIterVar(tir.RangeFromExtent(o.Extent), iv.Var.Fresh("_o"), iv.IterType)
		}
		out.OuterIterVars = append(out.OuterIterVars, outerIter)
		out.OuterBindings = append(out.OuterBindings, simp.Simplify(o.Source))

		if n.IsUnit() {
			if isUnitExtent(o.Extent) && !preserveUnitIters {
				out.Subst[iv.Var] = tir.IntImm{Value: 0, DT: iv.Var.DType}
			} else {
				out.Subst[iv.Var] = outerIter.Var
			}
			out.PerOriginal = append(out.PerOriginal, PerIterVar{Original: iv, Outer: outerIter, InnerIndex: -1})
			continue
		}

		innerIter := tir.NewIterVar(tir.RangeFromExtent(n.Extent), iv.Var.Fresh("_i"), iv.IterType)
		innerIdx := len(out.InnerIterVars)
		out.InnerIterVars = append(out.InnerIterVars, innerIter)
		out.InnerBindings = append(out.InnerBindings, simp.Simplify(n.Source))
		out.PerOriginal = append(out.PerOriginal, PerIterVar{Original: iv, Outer: outerIter, Inner: innerIter, InnerIndex: innerIdx})

		if isUnitExtent(o.Extent) {
			out.Subst[iv.Var] = innerIter.Var
		} else {
			out.Subst[iv.Var] = simp.Simplify(tir.NewAdd(tir.NewMul(outerIter.Var, n.Extent), innerIter.Var))
		}
	}
	return out, nil
}

func isUnitExtent(e tir.Expr) bool {
	imm, ok := e.(tir.IntImm)
	return ok && imm.Value == 1
}

func sameExtent(a, b tir.Expr) bool {
	ai, aok := a.(tir.IntImm)
	bi, bok := b.(tir.IntImm)
	return aok && bok && ai.Value == bi.Value
}
