package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopnest/tirsched/tir"
)

func leafBlock(name string, buf *tir.Buffer, v *tir.Var) (*tir.Block, *tir.BlockRealize) {
	blk := &tir.Block{
		NameHint: name,
		IterVars: []*tir.IterVar{tir.NewIterVar(tir.RangeFromExtent(dim(8)), v, tir.DataPar)},
		Writes:   []*tir.BufferRegion{{Buffer: buf, Region: []tir.Range{{Min: v, Extent: dim(1)}}}},
		Body:     &tir.BufferStore{Buffer: buf, Indices: []tir.Expr{v}, Value: dim(0)},
	}
	return blk, &tir.BlockRealize{IterValues: []tir.Expr{v}, Predicate: tir.True, Block: blk}
}

func TestScheduleStateBuildsSRefTree(t *testing.T) {
	buf := tir.NewBuffer("C", []tir.Expr{dim(8)}, tir.Int32)
	v := tir.NewVar("i", tir.Int32)
	_, realize := leafBlock("B1", buf, v)
	loop := &tir.For{LoopVar: v, Min: dim(0), Extent: dim(8), Kind: tir.Serial, Body: realize}
	mod := &tir.PrimFunc{Name: "f", Body: loop}

	state := NewScheduleState(mod)
	loopSref := state.GetSRef(loop)
	require.NotNil(t, loopSref)
	assert.Nil(t, loopSref.Parent)

	blockSref := state.GetSRef(realize.Block)
	require.NotNil(t, blockSref)
	assert.Same(t, loopSref, blockSref.Parent)
	assert.Same(t, realize, state.GetBlockRealize(blockSref))
	assert.Nil(t, state.GetScopeRoot(blockSref))
	assert.True(t, state.IsAffineBlockBinding(blockSref))
}

func TestScheduleStateReplaceSwapsNodeAndRebuilds(t *testing.T) {
	buf := tir.NewBuffer("C", []tir.Expr{dim(8)}, tir.Int32)
	v := tir.NewVar("i", tir.Int32)
	_, realize := leafBlock("B1", buf, v)
	loop := &tir.For{LoopVar: v, Min: dim(0), Extent: dim(8), Kind: tir.Serial, Body: realize}
	mod := &tir.PrimFunc{Name: "f", Body: loop}

	state := NewScheduleState(mod)
	loopSref := state.GetSRef(loop)

	newLoop := &tir.For{LoopVar: v, Min: dim(0), Extent: dim(16), Kind: tir.Serial, Body: realize}
	state.Replace(loopSref, newLoop, nil)

	got := state.Mod.Body.(*tir.For)
	assert.Equal(t, int64(16), got.Extent.(tir.IntImm).Value)
	assert.NotNil(t, state.GetSRef(newLoop))
}

func TestScheduleStateLowestCommonAncestor(t *testing.T) {
	buf := tir.NewBuffer("C", []tir.Expr{dim(8)}, tir.Int32)
	v1 := tir.NewVar("i1", tir.Int32)
	v2 := tir.NewVar("i2", tir.Int32)
	b1, r1 := leafBlock("B1", buf, v1)
	b2, r2 := leafBlock("B2", buf, v2)

	outerV := tir.NewVar("o", tir.Int32)
	body := tir.WrapSeq([]tir.Stmt{r1, r2})
	outerLoop := &tir.For{LoopVar: outerV, Min: dim(0), Extent: dim(8), Kind: tir.Serial, Body: body}
	mod := &tir.PrimFunc{Name: "f", Body: outerLoop}

	state := NewScheduleState(mod)
	b1Sref := state.GetSRef(b1)
	b2Sref := state.GetSRef(b2)
	outerSref := state.GetSRef(outerLoop)

	lca := state.GetSRefLowestCommonAncestor([]*StmtSRef{b1Sref, b2Sref})
	assert.Same(t, outerSref, lca)
}
