package sched

import (
	"github.com/loopnest/tirsched/intrin"
	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/tir"
)

// Tensorize implements spec §4.8: match the block named by sref (or the
// block produced by blockizing sref, if it names a loop) against
// intrinsic, splice in the implementation body, and install the result.
// log receives any non-fatal warnings (annotation conflicts, Step F).
func Tensorize(state *ScheduleState, sref *StmtSRef, intrinsic *intrin.Intrinsic, preserveUnitIters bool, log *schederr.Log) error {
	blockSref, err := tensorizeBlockize(state, sref, preserveUnitIters)
	if err != nil {
		return err
	}
	realize := state.GetBlockRealize(blockSref)
	block := realize.Block

	maxBits := maxIndexWidth(block.Reads, block.Writes)
	if maxBits == 0 {
		schederr.Contractf("Tensorize: empty index-width scan over block %s", block.NameHint)
	}
	impl := normalizeIndexWidth(intrinsic.Impl, maxBits)

	match, err := intrin.MatchBlock(state.Mod, block, intrinsic.Desc)
	if err != nil {
		return err
	}

	implRealize, ok := impl.Body.(*tir.BlockRealize)
	if !ok {
		schederr.Contractf("Tensorize: intrinsic implementation body is not a single top-level block")
	}
	implBlock := implRealize.Block

	descRealize := intrinsic.Desc.Body.(*tir.BlockRealize)
	descBlock := descRealize.Block

	newMatchBuffers, err := buildMatchBuffers(state.Mod, block, impl, intrinsic.Desc, descBlock, implBlock, match)
	if err != nil {
		return err
	}

	newBlock := &tir.Block{
		IterVars:     block.IterVars,
		Reads:        block.Reads,
		Writes:       block.Writes,
		NameHint:     block.NameHint,
		Body:         implBlock.Body,
		Init:         block.Init,
		AllocBuffers: block.AllocBuffers,
		MatchBuffers: newMatchBuffers,
		Annotations:  mergeAnnotations(block.Annotations, implBlock.Annotations, block, log),
	}

	state.Replace(blockSref, newBlock, tir.ReuseMap{block: newBlock})
	state.UpdateScopeBlockInfo(state.GetScopeRoot(state.GetSRef(newBlock)))
	return nil
}

// tensorizeBlockize implements Step A: if sref names a loop, blockize it
// (single-loop form) to obtain the block to match; if it already names a
// block, use it as-is.
func tensorizeBlockize(state *ScheduleState, sref *StmtSRef, preserveUnitIters bool) (*StmtSRef, error) {
	switch sref.Stmt.(type) {
	case *tir.For:
		return BlockizeSingleLoop(state, sref, preserveUnitIters)
	case *tir.Block:
		return sref, nil
	default:
		schederr.Contractf("Tensorize: sref is neither a Block nor a For")
		return nil, nil
	}
}

// maxIndexWidth implements Step B's scan: the maximum integer dtype bit
// width across every region bound (Min and Extent) of reads and writes.
func maxIndexWidth(reads, writes []*tir.BufferRegion) int {
	max := 0
	scan := func(regions []*tir.BufferRegion) {
		for _, r := range regions {
			for _, rg := range r.Region {
				if b := rg.Min.Type().Bits; b > max {
					max = b
				}
				if b := rg.Extent.Type().Bits; b > max {
					max = b
				}
			}
		}
	}
	scan(reads)
	scan(writes)
	return max
}

// normalizeIndexWidth implements Step B's rewrite: a fresh PrimFunc whose
// parameters (and every reference to them in the body) use the given bit
// width, leaving impl's registry entry untouched.
//
// Only the PrimFunc's own parameters are width-adjusted; internal loop and
// block iter vars declared inside impl's body keep their original dtype,
// since this module's IR-Substitute utility rewrites references to a
// mapped var, not the var's own declaration site (spec §4.1) — a full
// declaration-site rewrite would need a dedicated visitor this module's
// scenarios never exercise (every intrinsic here is declared uniformly in
// Int32 to begin with).
func normalizeIndexWidth(impl *tir.PrimFunc, bits int) *tir.PrimFunc {
	subst := tir.Mapping{}
	newParams := make([]*tir.Var, len(impl.Params))
	newBufferMap := map[*tir.Var]*tir.Buffer{}
	for i, p := range impl.Params {
		np := tir.NewVar(p.Name, p.DType.WithBits(bits))
		subst[p] = np
		newParams[i] = np
		if buf, ok := impl.BufferMap[p]; ok {
			newBufferMap[np] = buf
		}
	}
	body := tir.SubstituteStmt(tir.CopyStmt(impl.Body), subst, tir.BasicSimplifier{}, nil)
	return &tir.PrimFunc{Name: impl.Name, Params: newParams, BufferMap: newBufferMap, Body: body}
}

// buildMatchBuffers implements Steps D and E: for each impl parameter,
// compose impl->desc (by parameter position) with the comparator's
// desc->current to get impl->current, then emit the MatchBufferRegion per
// spec's offset split.
func buildMatchBuffers(mod *tir.PrimFunc, current *tir.Block, impl *tir.PrimFunc, desc *tir.PrimFunc, descBlock, implBlock *tir.Block, match *intrin.Match) ([]*tir.MatchBufferRegion, error) {
	implRegionOf := map[*tir.Buffer]*tir.BufferRegion{}
	for _, r := range implBlock.Writes {
		if _, ok := implRegionOf[r.Buffer]; !ok {
			implRegionOf[r.Buffer] = r
		}
	}
	for _, r := range implBlock.Reads {
		if _, ok := implRegionOf[r.Buffer]; !ok {
			implRegionOf[r.Buffer] = r
		}
	}

	out := make([]*tir.MatchBufferRegion, 0, len(impl.Params))
	for i := range impl.Params {
		implBuf := impl.ParamBuffer(i)
		descBuf := desc.ParamBuffer(i)
		if implBuf == nil || descBuf == nil {
			continue
		}
		currentBuf, ok := match.DescToCurrent[descBuf]
		if !ok {
			return nil, &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: "no current-program buffer matched for descriptor parameter " + descBuf.Name}
		}
		indices := match.BaseIndices[descBuf]
		origRegion, ok := implRegionOf[implBuf]
		if !ok {
			return nil, &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: "intrinsic implementation never accesses parameter buffer " + implBuf.Name}
		}

		offset := len(indices) - len(origRegion.Region)
		if offset < 0 {
			return nil, &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: "fewer matched indices than the intrinsic implementation's own region for " + implBuf.Name}
		}

		newRegion := make([]tir.Range, len(indices))
		for k := 0; k < offset; k++ {
			newRegion[k] = tir.Range{Min: indices[k], Extent: tir.IntImm{Value: 1, DT: indices[k].Type()}}
		}
		for k := 0; k < len(origRegion.Region); k++ {
			idx := indices[offset+k]
			newRegion[offset+k] = tir.Range{Min: idx, Extent: castTo(origRegion.Region[k].Extent, idx.Type())}
		}

		out = append(out, &tir.MatchBufferRegion{Source: implBuf, Target: &tir.BufferRegion{Buffer: currentBuf, Region: newRegion}})
	}
	return out, nil
}

func castTo(e tir.Expr, dt tir.DType) tir.Expr {
	if e.Type().Equal(dt) {
		return e
	}
	return tir.Cast{DT: dt, Value: e}
}

// mergeAnnotations implements Step F's annotation policy: an intrinsic
// annotation is added when the block has none with that key; a key
// present on both sides keeps the block's existing value and logs a
// warning rather than erroring or silently overwriting.
func mergeAnnotations(existing, incoming map[string]interface{}, at tir.Node, log *schederr.Log) map[string]interface{} {
	if len(incoming) == 0 {
		return existing
	}
	out := make(map[string]interface{}, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		if _, conflict := out[k]; conflict {
			if log != nil {
				log.Warn(at, "annotation %q conflicts between block and intrinsic; keeping the block's existing value", k)
			}
			continue
		}
		out[k] = v
	}
	return out
}
