package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopnest/tirsched/tir"
)

func dim(n int64) tir.Expr { return tir.IntImm{Value: n, DT: tir.Int32} }

func TestEvalSetRelaxesPointAccessOverLoopDomain(t *testing.T) {
	i := tir.NewVar("i", tir.Int32)
	buf := tir.NewBuffer("A", []tir.Expr{dim(128)}, tir.Int32)
	regions := []*tir.BufferRegion{{Buffer: buf, Region: []tir.Range{{Min: i, Extent: dim(1)}}}}
	dom := map[*tir.Var]tir.Range{i: {Min: dim(0), Extent: dim(128)}}

	out := EvalSet(regions, dom)
	require.Len(t, out, 1)
	assert.Equal(t, dim(0), out[0].Region[0].Min)
	assert.Equal(t, dim(128), out[0].Region[0].Extent)
}

func TestEvalSetClampsToBufferShape(t *testing.T) {
	i := tir.NewVar("i", tir.Int32)
	buf := tir.NewBuffer("A", []tir.Expr{dim(100)}, tir.Int32)
	// Access pattern touches up to i+10 for i in [0,100) -- without
	// clamping this would read past the buffer's declared shape.
	idx := tir.NewAdd(i, dim(10))
	regions := []*tir.BufferRegion{{Buffer: buf, Region: []tir.Range{{Min: idx, Extent: dim(1)}}}}
	dom := map[*tir.Var]tir.Range{i: {Min: dim(0), Extent: dim(100)}}

	out := EvalSet(regions, dom)
	assert.Equal(t, int64(99), out[0].Region[0].Min.(tir.IntImm).Value+out[0].Region[0].Extent.(tir.IntImm).Value-1)
}

func TestUnionRegionsGroupsByBufferPreservingOrderAndMerges(t *testing.T) {
	a := tir.NewBuffer("A", []tir.Expr{dim(128)}, tir.Int32)
	b := tir.NewBuffer("B", []tir.Expr{dim(128)}, tir.Int32)
	regions := []*tir.BufferRegion{
		{Buffer: a, Region: []tir.Range{{Min: dim(0), Extent: dim(10)}}},
		{Buffer: b, Region: []tir.Range{{Min: dim(5), Extent: dim(5)}}},
		{Buffer: a, Region: []tir.Range{{Min: dim(20), Extent: dim(10)}}},
	}

	out := UnionRegions(regions)
	require.Len(t, out, 2)
	assert.Same(t, a, out[0].Buffer)
	assert.Same(t, b, out[1].Buffer)
	assert.Equal(t, dim(0), out[0].Region[0].Min)
	assert.Equal(t, dim(30), out[0].Region[0].Extent)
}
