package subspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopnest/tirsched/itermap"
	"github.com/loopnest/tirsched/tir"
)

func loop(v *tir.Var, extent int64, body tir.Stmt) *tir.For {
	return &tir.For{LoopVar: v, Min: tir.IntImm{Value: 0, DT: tir.Int32}, Extent: tir.IntImm{Value: extent, DT: tir.Int32}, Kind: tir.Serial, Body: body}
}

func TestClassifyLoopsSplitsAtDividingLoop(t *testing.T) {
	j := tir.NewVar("j", tir.Int32)
	i := tir.NewVar("i", tir.Int32)
	jLoop := loop(j, 128, nil)
	iLoop := loop(i, 128, nil)

	anc := ClassifyLoops([]*tir.For{jLoop, iLoop}, iLoop, false)

	require.Len(t, anc.Outer, 1)
	require.Len(t, anc.Inner, 1)
	assert.Same(t, jLoop, anc.Outer[0])
	assert.Same(t, iLoop, anc.Inner[0])
	assert.Equal(t, int64(128), anc.DomainOf[j].Extent.(tir.IntImm).Value)
}

func TestClassifyLoopsLoopSrefAsOuter(t *testing.T) {
	i := tir.NewVar("i", tir.Int32)
	iLoop := loop(i, 128, nil)

	anc := ClassifyLoops([]*tir.For{iLoop}, iLoop, true)

	assert.Len(t, anc.Inner, 0)
	require.Len(t, anc.Outer, 1)
	assert.Same(t, iLoop, anc.Outer[0])
}

func TestDivideUsesSolverWhenAffine(t *testing.T) {
	j := tir.NewVar("j", tir.Int32)
	i := tir.NewVar("i", tir.Int32)
	jLoop := loop(j, 128, nil)
	iLoop := loop(i, 128, nil)
	realize := &tir.BlockRealize{
		IterValues: []tir.Expr{j, i},
		Predicate:  tir.True,
		Block:      &tir.Block{IterVars: []*tir.IterVar{tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 128, DT: tir.Int32}), tir.NewVar("vj", tir.Int32), tir.DataPar), tir.NewIterVar(tir.RangeFromExtent(tir.IntImm{Value: 128, DT: tir.Int32}), tir.NewVar("vi", tir.Int32), tir.DataPar)}},
	}

	div, ok := Divide(realize, []*tir.For{jLoop, iLoop}, iLoop, itermap.DefaultSolver{}, false, true)

	require.True(t, ok)
	require.Len(t, div.Entries, 2)
	assert.Same(t, iLoop, div.InnerLoops[0])
	// Binding "i" is inner-only: outer side collapses to unit extent.
	assert.True(t, div.Entries[1].Outer.IsUnit())
}

type failingSolver struct{}

func (failingSolver) Divide([]tir.Expr, tir.Expr, []*tir.Var, []*tir.Var, func(*tir.Var) int64, bool) ([]itermap.DivisionEntry, [2]tir.Expr, bool) {
	return nil, [2]tir.Expr{}, false
}

func TestDivideFallsBackToTrivialClassification(t *testing.T) {
	j := tir.NewVar("j", tir.Int32)
	i := tir.NewVar("i", tir.Int32)
	jLoop := loop(j, 128, nil)
	iLoop := loop(i, 128, nil)
	realize := &tir.BlockRealize{
		IterValues: []tir.Expr{j, i},
		Predicate:  tir.True,
	}

	div, ok := Divide(realize, []*tir.For{jLoop, iLoop}, iLoop, failingSolver{}, false, true)

	require.True(t, ok)
	require.Len(t, div.Entries, 2)
	assert.True(t, div.Entries[0].Inner.IsUnit())
	assert.Equal(t, int64(128), div.Entries[0].Outer.Extent.(tir.IntImm).Value)
	assert.True(t, div.Entries[1].Outer.IsUnit())
	assert.Equal(t, int64(128), div.Entries[1].Inner.Extent.(tir.IntImm).Value)
}

func TestDivideFailsWhenFallbackBindingMixesInnerAndOuter(t *testing.T) {
	j := tir.NewVar("j", tir.Int32)
	i := tir.NewVar("i", tir.Int32)
	jLoop := loop(j, 128, nil)
	iLoop := loop(i, 128, nil)
	mixed := tir.NewAdd(i, j)
	realize := &tir.BlockRealize{IterValues: []tir.Expr{mixed}, Predicate: tir.True}

	_, ok := Divide(realize, []*tir.For{jLoop, iLoop}, iLoop, failingSolver{}, false, true)
	assert.False(t, ok)
}

func TestDivideFailsWhenPredicateNotLiteralAndSolverDeclines(t *testing.T) {
	i := tir.NewVar("i", tir.Int32)
	iLoop := loop(i, 128, nil)
	pred := tir.NewEQ(tir.NewFloorMod(i, tir.IntImm{Value: 2, DT: tir.Int32}), tir.IntImm{Value: 0, DT: tir.Int32})
	realize := &tir.BlockRealize{IterValues: []tir.Expr{i}, Predicate: pred}

	_, ok := Divide(realize, []*tir.For{iLoop}, iLoop, failingSolver{}, false, true)
	assert.False(t, ok)
}
