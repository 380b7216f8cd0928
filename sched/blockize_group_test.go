package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopnest/tirsched/tir"
)

// buildSiblingBlocks constructs direct sibling BlockRealizes at the
// function body's root: B1, (X,) B2, each a plain DataPar copy from A (into
// C for B1/B2, into X for X) over a distinct scalar index, bound with no
// enclosing loop of their own so they
// sit next to each other in the body's statement list. includeX selects
// whether X is spliced in between B1 and B2 (spec §8 S5) or omitted (S4).
func buildSiblingBlocks(includeX bool) (*tir.PrimFunc, map[string]*tir.Block) {
	A := tir.NewBuffer("A", []tir.Expr{dim(8)}, tir.Int32)
	Cbuf := tir.NewBuffer("C", []tir.Expr{dim(8)}, tir.Int32)
	X := tir.NewBuffer("X", []tir.Expr{dim(8)}, tir.Int32)

	makeBlock := func(name string, buf *tir.Buffer, at int64) (*tir.Block, *tir.BlockRealize) {
		v := tir.NewVar("v"+name, tir.Int32)
		blk := &tir.Block{
			NameHint: name,
			IterVars: []*tir.IterVar{tir.NewIterVar(tir.RangeFromExtent(dim(8)), v, tir.DataPar)},
			Reads:    []*tir.BufferRegion{{Buffer: A, Region: []tir.Range{{Min: v, Extent: dim(1)}}}},
			Writes:   []*tir.BufferRegion{{Buffer: buf, Region: []tir.Range{{Min: v, Extent: dim(1)}}}},
			Body:     &tir.BufferStore{Buffer: buf, Indices: []tir.Expr{v}, Value: tir.BufferLoad{Buffer: A, Indices: []tir.Expr{v}}},
		}
		return blk, &tir.BlockRealize{IterValues: []tir.Expr{dim(at)}, Predicate: tir.True, Block: blk}
	}

	b1, r1 := makeBlock("B1", Cbuf, 0)
	b2, r2 := makeBlock("B2", Cbuf, 1)

	blocks := map[string]*tir.Block{"B1": b1, "B2": b2}
	var seq []tir.Stmt
	seq = append(seq, r1)
	if includeX {
		bx, rx := makeBlock("X", X, 2)
		seq = append(seq, rx)
		blocks["X"] = bx
	}
	seq = append(seq, r2)

	mod := &tir.PrimFunc{Name: "siblings", Body: tir.WrapSeq(seq)}
	return mod, blocks
}

func TestBlockizeGroupConsecutive(t *testing.T) {
	mod, blocks := buildSiblingBlocks(false)
	state := NewScheduleState(mod)

	b1Sref := state.GetSRef(blocks["B1"])
	b2Sref := state.GetSRef(blocks["B2"])
	require.NotNil(t, b1Sref)
	require.NotNil(t, b2Sref)

	outerSref, err := BlockizeGroup(state, []*StmtSRef{b1Sref, b2Sref}, false)
	require.NoError(t, err)

	outerBlock := outerSref.Stmt.(*tir.Block)
	assert.Equal(t, "outer_B1_B2_", outerBlock.NameHint)
	require.Len(t, outerBlock.IterVars, 1)
	assert.Equal(t, "init_o", outerBlock.IterVars[0].Var.Name)

	seq, ok := outerBlock.Body.(tir.SeqStmt)
	require.True(t, ok)
	require.Len(t, seq.Seq, 2)
	for _, s := range seq.Seq {
		_, ok := s.(*tir.BlockRealize)
		assert.True(t, ok)
	}
}

func TestBlockizeGroupNonConsecutiveFails(t *testing.T) {
	mod, blocks := buildSiblingBlocks(true)
	state := NewScheduleState(mod)

	b1Sref := state.GetSRef(blocks["B1"])
	b2Sref := state.GetSRef(blocks["B2"])
	require.NotNil(t, b1Sref)
	require.NotNil(t, b2Sref)

	require.Panics(t, func() {
		_, _ = BlockizeGroup(state, []*StmtSRef{b1Sref, b2Sref}, false)
	})
}
