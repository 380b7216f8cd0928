package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopnest/tirsched/intrin"
	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/tir"
)

// buildTensorizeTarget constructs a single already-blockized 16x16x16 GEMM
// block (spec §8 S6), standing in for the output of a prior BlockizeSingleLoop
// call: reads/writes cover the full A/B/C tiles, so Tensorize can match it
// directly without re-entering Step A.
func buildTensorizeTarget() (*tir.PrimFunc, *tir.Block) {
	A := tir.NewBuffer("A", []tir.Expr{dim(16), dim(16)}, tir.Int32)
	B := tir.NewBuffer("B", []tir.Expr{dim(16), dim(16)}, tir.Int32)
	C := tir.NewBuffer("C", []tir.Expr{dim(16), dim(16)}, tir.Int32)

	vi := tir.NewVar("vi", tir.Int32)
	vj := tir.NewVar("vj", tir.Int32)
	vk := tir.NewVar("vk", tir.Int32)

	full := func(buf *tir.Buffer) *tir.BufferRegion {
		return &tir.BufferRegion{Buffer: buf, Region: []tir.Range{{Min: dim(0), Extent: dim(16)}, {Min: dim(0), Extent: dim(16)}}}
	}

	block := &tir.Block{
		NameHint: "gemm_o",
		IterVars: []*tir.IterVar{
			tir.NewIterVar(tir.RangeFromExtent(dim(16)), vi, tir.DataPar),
			tir.NewIterVar(tir.RangeFromExtent(dim(16)), vj, tir.DataPar),
			tir.NewIterVar(tir.RangeFromExtent(dim(16)), vk, tir.CommReduce),
		},
		Reads:  []*tir.BufferRegion{full(A), full(B)},
		Writes: []*tir.BufferRegion{full(C)},
		Body: &tir.BufferStore{
			Buffer:  C,
			Indices: []tir.Expr{vi, vj},
			Value:   tir.NewAdd(tir.BufferLoad{Buffer: C, Indices: []tir.Expr{vi, vj}}, tir.NewMul(tir.BufferLoad{Buffer: A, Indices: []tir.Expr{vi, vk}}, tir.BufferLoad{Buffer: B, Indices: []tir.Expr{vk, vj}})),
		},
	}
	realize := &tir.BlockRealize{IterValues: []tir.Expr{dim(0), dim(0), dim(0)}, Predicate: tir.True, Block: block}
	mod := &tir.PrimFunc{Name: "gemm_tile", Body: realize}
	return mod, block
}

// mmaIntrinsic builds a descriptor/implementation pair matching the target's
// shape: three 16x16 parameter buffers, a commutative-reduce update for the
// descriptor, and a distinct implementation body (standing in for the
// hardware MMA instruction) tagged with an annotation.
func mmaIntrinsic() *intrin.Intrinsic {
	build := func(prefix string, bodyTag string) *tir.PrimFunc {
		a := tir.NewBuffer(prefix+"A", []tir.Expr{dim(16), dim(16)}, tir.Int32)
		b := tir.NewBuffer(prefix+"B", []tir.Expr{dim(16), dim(16)}, tir.Int32)
		c := tir.NewBuffer(prefix+"C", []tir.Expr{dim(16), dim(16)}, tir.Int32)
		pa := tir.NewVar(prefix+"pa", tir.Int32)
		pb := tir.NewVar(prefix+"pb", tir.Int32)
		pc := tir.NewVar(prefix+"pc", tir.Int32)

		vi := tir.NewVar(prefix+"vi", tir.Int32)
		vj := tir.NewVar(prefix+"vj", tir.Int32)
		vk := tir.NewVar(prefix+"vk", tir.Int32)

		full := func(buf *tir.Buffer) *tir.BufferRegion {
			return &tir.BufferRegion{Buffer: buf, Region: []tir.Range{{Min: dim(0), Extent: dim(16)}, {Min: dim(0), Extent: dim(16)}}}
		}

		blk := &tir.Block{
			NameHint: prefix + "mma",
			IterVars: []*tir.IterVar{
				tir.NewIterVar(tir.RangeFromExtent(dim(16)), vi, tir.DataPar),
				tir.NewIterVar(tir.RangeFromExtent(dim(16)), vj, tir.DataPar),
				tir.NewIterVar(tir.RangeFromExtent(dim(16)), vk, tir.CommReduce),
			},
			Reads:       []*tir.BufferRegion{full(a), full(b)},
			Writes:      []*tir.BufferRegion{full(c)},
			Annotations: map[string]interface{}{bodyTag: true},
			Body: &tir.BufferStore{
				Buffer:  c,
				Indices: []tir.Expr{vi, vj},
				Value:   tir.NewAdd(tir.BufferLoad{Buffer: c, Indices: []tir.Expr{vi, vj}}, tir.NewMul(tir.BufferLoad{Buffer: a, Indices: []tir.Expr{vi, vk}}, tir.BufferLoad{Buffer: b, Indices: []tir.Expr{vk, vj}})),
			},
		}
		realize := &tir.BlockRealize{IterValues: []tir.Expr{dim(0), dim(0), dim(0)}, Predicate: tir.True, Block: blk}
		return &tir.PrimFunc{
			Name:      prefix,
			Params:    []*tir.Var{pa, pb, pc},
			BufferMap: map[*tir.Var]*tir.Buffer{pa: a, pb: b, pc: c},
			Body:      realize,
		}
	}

	return &intrin.Intrinsic{
		Name: "mma_16x16x16",
		Desc: build("desc_", "is_desc"),
		Impl: build("impl_", "is_mma_intrinsic"),
	}
}

func TestTensorizeOnBlockDirectly(t *testing.T) {
	mod, block := buildTensorizeTarget()
	state := NewScheduleState(mod)
	sref := state.GetSRef(block)
	require.NotNil(t, sref)

	mma := mmaIntrinsic()
	log := schederr.NewLog()

	err := Tensorize(state, sref, mma, false, log)
	require.NoError(t, err)
	assert.False(t, log.ContainsErrors())

	newSref := state.GetSRef(state.Mod.Body.(*tir.BlockRealize).Block)
	require.NotNil(t, newSref)
	newBlock := newSref.Stmt.(*tir.Block)

	require.Len(t, newBlock.MatchBuffers, 3)
	for _, mb := range newBlock.MatchBuffers {
		assert.Len(t, mb.Target.Region, 2)
	}
	assert.Equal(t, true, newBlock.Annotations["is_mma_intrinsic"])

	store, ok := newBlock.Body.(*tir.BufferStore)
	require.True(t, ok)
	assert.NotSame(t, block.Body.(*tir.BufferStore).Buffer, store.Buffer)
}

func TestTensorizeRejectsShapeMismatch(t *testing.T) {
	mod, block := buildTensorizeTarget()
	block.Reads = block.Reads[:1]
	state := NewScheduleState(mod)
	sref := state.GetSRef(block)

	mma := mmaIntrinsic()
	err := Tensorize(state, sref, mma, false, schederr.NewLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read count mismatch")
}
