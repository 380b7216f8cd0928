// Package region implements spec §4.2: relaxing a set of buffer regions
// over a domain of enclosing iterator ranges (EvalSet), and merging regions
// that refer to the same buffer (UnionRegions).
//
// This is the core's stand-in for what spec §1 calls the external "interval
// set primitives" collaborator: a minimal interval-arithmetic evaluator
// covering the affine patterns (Add, Sub, constant Mul/FloorDiv) that the
// scheduling primitives actually produce, grounded the way
// extras/cfg/df.go's reaching-definitions pass unions per-block bitsets
// into one analysis-wide result.
package region

import "github.com/loopnest/tirsched/tir"

var simp = tir.BasicSimplifier{}

// interval is an inclusive [Lo, Hi] bound, unlike tir.Range which is a
// half-open [Min, Min+Extent).
type interval struct{ Lo, Hi tir.Expr }

// EvalSet computes, for every BufferRegion in regions, a per-dimension
// interval over-approximation of the addresses touched as the variables in
// dom range over their declared domains, clamped to the buffer's own
// shape. The result has the same length and per-buffer dimensionality as
// regions (spec §4.2).
func EvalSet(regions []*tir.BufferRegion, dom map[*tir.Var]tir.Range) []*tir.BufferRegion {
	out := make([]*tir.BufferRegion, len(regions))
	for i, br := range regions {
		out[i] = evalRegion(br, dom)
	}
	return out
}

func evalRegion(br *tir.BufferRegion, dom map[*tir.Var]tir.Range) *tir.BufferRegion {
	newRegion := make([]tir.Range, len(br.Region))
	for d, r := range br.Region {
		last := lastIndex(r)
		lo := evalInterval(r.Min, dom).Lo
		hi := evalInterval(last, dom).Hi
		lo, hi = simp.Simplify(lo), simp.Simplify(hi)
		if d < len(br.Buffer.Shape) {
			lo, hi = clampToShape(lo, hi, br.Buffer.Shape[d])
		}
		newRegion[d] = boundsToRange(lo, hi)
	}
	return &tir.BufferRegion{Buffer: br.Buffer, Region: newRegion}
}

// lastIndex returns the final index touched by r: Min+Extent-1.
func lastIndex(r tir.Range) tir.Expr {
	return simp.Simplify(tir.NewSub(tir.NewAdd(r.Min, r.Extent), one(r.Min.Type())))
}

func boundsToRange(lo, hi tir.Expr) tir.Range {
	extent := simp.Simplify(tir.NewAdd(tir.NewSub(hi, lo), one(lo.Type())))
	return tir.Range{Min: lo, Extent: extent}
}

func one(dt tir.DType) tir.Expr { return tir.IntImm{Value: 1, DT: dt} }

// clampToShape narrows [lo,hi] to the buffer dimension's own bounds when
// both ends are compile-time constants; otherwise the unclamped bounds are
// returned unchanged (the interval evaluator only folds constant shapes,
// matching the simplified nature of this package's interval-set boundary).
func clampToShape(lo, hi, shapeExtent tir.Expr) (tir.Expr, tir.Expr) {
	shapeImm, ok := shapeExtent.(tir.IntImm)
	if !ok {
		return lo, hi
	}
	loImm, loOK := lo.(tir.IntImm)
	hiImm, hiOK := hi.(tir.IntImm)
	if !loOK || !hiOK {
		return lo, hi
	}
	clampedLo := loImm
	if clampedLo.Value < 0 {
		clampedLo.Value = 0
	}
	clampedHi := hiImm
	if clampedHi.Value > shapeImm.Value-1 {
		clampedHi.Value = shapeImm.Value - 1
	}
	return clampedLo, clampedHi
}

// evalInterval computes an interval over-approximation of e given that each
// variable v in dom ranges over [dom[v].Min, dom[v].Min+dom[v].Extent-1].
// Variables not in dom are treated as fixed (point) values, matching the
// way subspace division builds a domain map only for the loops being
// classified (spec §4.3 Step A).
func evalInterval(e tir.Expr, dom map[*tir.Var]tir.Range) interval {
	switch n := e.(type) {
	case tir.IntImm, tir.FloatImm:
		return interval{Lo: n, Hi: n}
	case *tir.Var:
		if r, ok := dom[n]; ok {
			hi := lastIndex(r)
			return interval{Lo: r.Min, Hi: hi}
		}
		return interval{Lo: n, Hi: n}
	case tir.Binary:
		return evalBinaryInterval(n, dom)
	default:
		// Casts, buffer loads, etc: no general interval rule, so the
		// node itself stands in as both bounds (a point).
		return interval{Lo: e, Hi: e}
	}
}

func evalBinaryInterval(n tir.Binary, dom map[*tir.Var]tir.Range) interval {
	a := evalInterval(n.A, dom)
	b := evalInterval(n.B, dom)
	switch n.Op {
	case tir.OpAdd:
		return interval{Lo: simp.Simplify(tir.NewAdd(a.Lo, b.Lo)), Hi: simp.Simplify(tir.NewAdd(a.Hi, b.Hi))}
	case tir.OpSub:
		return interval{Lo: simp.Simplify(tir.NewSub(a.Lo, b.Hi)), Hi: simp.Simplify(tir.NewSub(a.Hi, b.Lo))}
	case tir.OpMul:
		if c, ok := n.B.(tir.IntImm); ok {
			return scaleInterval(a, c.Value)
		}
		if c, ok := n.A.(tir.IntImm); ok {
			return scaleInterval(b, c.Value)
		}
	case tir.OpFloorDiv, tir.OpDiv:
		if c, ok := n.B.(tir.IntImm); ok && c.Value > 0 {
			return interval{
				Lo: simp.Simplify(tir.NewFloorDiv(a.Lo, c)),
				Hi: simp.Simplify(tir.NewFloorDiv(a.Hi, c)),
			}
		}
	}
	// Non-affine or unrecognized operator: fall back to treating the
	// whole expression as a single point, the conservative-but-safe
	// choice for an over-approximation boundary we do not model further.
	return interval{Lo: n, Hi: n}
}

func scaleInterval(a interval, c int64) interval {
	lo, hi := a.Lo, a.Hi
	if c < 0 {
		lo, hi = hi, lo
	}
	scale := func(e tir.Expr) tir.Expr {
		return simp.Simplify(tir.NewMul(e, tir.IntImm{Value: c, DT: e.Type()}))
	}
	return interval{Lo: scale(lo), Hi: scale(hi)}
}

// UnionRegions groups regions by buffer identity (preserving first-seen
// order), unions the intervals per dimension, and materializes each
// dimension back into a tir.Range (spec §4.2).
func UnionRegions(regions []*tir.BufferRegion) []*tir.BufferRegion {
	var order []*tir.Buffer
	grouped := map[*tir.Buffer][]*tir.BufferRegion{}
	for _, r := range regions {
		if _, ok := grouped[r.Buffer]; !ok {
			order = append(order, r.Buffer)
		}
		grouped[r.Buffer] = append(grouped[r.Buffer], r)
	}

	out := make([]*tir.BufferRegion, 0, len(order))
	for _, buf := range order {
		rs := grouped[buf]
		ndim := len(rs[0].Region)
		merged := make([]tir.Range, ndim)
		for d := 0; d < ndim; d++ {
			lo := rs[0].Region[d].Min
			hi := lastIndex(rs[0].Region[d])
			for _, r := range rs[1:] {
				lo = simp.Simplify(tir.NewMin(lo, r.Region[d].Min))
				hi = simp.Simplify(tir.NewMax(hi, lastIndex(r.Region[d])))
			}
			merged[d] = boundsToRange(lo, hi)
		}
		out = append(out, &tir.BufferRegion{Buffer: buf, Region: merged})
	}
	return out
}
