package blockgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopnest/tirsched/binding"
	"github.com/loopnest/tirsched/tir"
)

func TestInnerPrependsWritesToReadsOnOuterReduction(t *testing.T) {
	buf := tir.NewBuffer("C", []tir.Expr{tir.IntImm{Value: 128, DT: tir.Int32}}, tir.Int32)
	readBuf := tir.NewBuffer("A", []tir.Expr{tir.IntImm{Value: 128, DT: tir.Int32}}, tir.Int32)
	write := &tir.BufferRegion{Buffer: buf, Region: []tir.Range{tir.RangeFromExtent(tir.IntImm{Value: 1, DT: tir.Int32})}}
	read := &tir.BufferRegion{Buffer: readBuf, Region: []tir.Range{tir.RangeFromExtent(tir.IntImm{Value: 1, DT: tir.Int32})}}
	block := &tir.Block{
		NameHint: "update",
		Reads:    []*tir.BufferRegion{read},
		Writes:   []*tir.BufferRegion{write},
		Init:     &tir.BufferStore{Buffer: buf, Indices: []tir.Expr{tir.IntImm{Value: 0, DT: tir.Int32}}, Value: tir.IntImm{Value: 0, DT: tir.Int32}},
	}

	realize := Inner(block, nil, nil, tir.True, true)

	require.Len(t, realize.Block.Reads, 2)
	assert.Same(t, buf, realize.Block.Reads[0].Buffer)
	assert.Same(t, readBuf, realize.Block.Reads[1].Buffer)
	assert.Nil(t, realize.Block.Init)
}

func TestInnerLeavesReadsAloneWithoutOuterReduction(t *testing.T) {
	buf := tir.NewBuffer("C", []tir.Expr{tir.IntImm{Value: 128, DT: tir.Int32}}, tir.Int32)
	read := &tir.BufferRegion{Buffer: buf, Region: []tir.Range{tir.RangeFromExtent(tir.IntImm{Value: 1, DT: tir.Int32})}}
	block := &tir.Block{NameHint: "map", Reads: []*tir.BufferRegion{read}}

	realize := Inner(block, nil, nil, tir.True, false)
	require.Len(t, realize.Block.Reads, 1)
}

func TestGenerateOuterInitRestrictsToUsedDataParIterVarsAndWrapsLoops(t *testing.T) {
	buf := tir.NewBuffer("C", []tir.Expr{tir.IntImm{Value: 128, DT: tir.Int32}, tir.IntImm{Value: 128, DT: tir.Int32}}, tir.Int32)
	viOrig := tir.NewVar("vi", tir.Int32)
	vkOrig := tir.NewVar("vk", tir.Int32)
	viInner := tir.NewVar("vi_i", tir.Int32)
	vkInner := tir.NewVar("vk_i", tir.Int32)

	initStore := &tir.BufferStore{
		Buffer:  buf,
		Indices: []tir.Expr{viInner},
		Value:   tir.IntImm{Value: 0, DT: tir.Int32},
	}
	write := &tir.BufferRegion{Buffer: buf, Region: []tir.Range{tir.RangeFromExtent(tir.IntImm{Value: 1, DT: tir.Int32})}}

	substBlock := &tir.Block{
		NameHint: "update",
		IterVars: []*tir.IterVar{
			tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 32, DT: tir.Int32}), viOrig, tir.DataPar),
			tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 32, DT: tir.Int32}), vkOrig, tir.CommReduce),
		},
		Writes: []*tir.BufferRegion{write},
		Init:   initStore,
	}
	derived := binding.Derived{
		PerOriginal: []binding.PerIterVar{
			{
				Original: substBlock.IterVars[0],
				Inner:    tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 32, DT: tir.Int32}), viInner, tir.DataPar),
			},
			{
				// Reduction iter var: never selected regardless of an
				// Inner entry, since only DataPar iter vars feed init.
				Original: substBlock.IterVars[1],
				Inner:    tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 32, DT: tir.Int32}), vkInner, tir.CommReduce),
			},
		},
	}
	loopI := &tir.For{LoopVar: tir.NewVar("i", tir.Int32), Kind: tir.Serial}

	stmt := GenerateOuterInit(substBlock, derived, []*tir.For{loopI})

	loop, ok := stmt.(*tir.For)
	require.True(t, ok)
	assert.Equal(t, "vi_i_init", loop.LoopVar.Name)
	assert.Equal(t, tir.Serial, loop.Kind)
	_, isNestedFor := loop.Body.(*tir.For)
	assert.False(t, isNestedFor)
}

func TestGenerateOuterInitReturnsNilWithoutInit(t *testing.T) {
	block := &tir.Block{NameHint: "map"}
	stmt := GenerateOuterInit(block, binding.Derived{}, nil)
	assert.Nil(t, stmt)
}
