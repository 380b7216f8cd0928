// Package sched implements the schedule state and the Blockize/Tensorize
// transformations (spec §4.6-4.8) built on packages subspace, binding, and
// blockgen.
//
// The sref tree and its Replace/UpdateScopeBlockInfo operations are
// grounded on doctor/edit.go's patch-and-reapply model: edits are collected
// against stable positions and the underlying tree is rebuilt once, rather
// than mutated incrementally node by node.
package sched

import (
	"github.com/loopnest/tirsched/itermap"
	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/tir"
)

// StmtSRef is a stable reference to one Block or For node in the IR tree
// (spec §3 "StmtSRef"). Only Block and For nodes are tracked; SeqStmt and
// IfThenElse are transparent scaffolding the tree walk passes through.
type StmtSRef struct {
	Stmt   tir.Stmt // *tir.Block or *tir.For
	Parent *StmtSRef
	// Realize is the BlockRealize wrapping Stmt when Stmt is a *tir.Block;
	// nil when Stmt is a *tir.For. Every Block in this IR is always
	// immediately wrapped by a BlockRealize (spec invariant 1), so the
	// sref can carry it directly instead of re-deriving it by a search.
	Realize *tir.BlockRealize
}

// BlockInfo is the per-block scope metadata the schedule state tracks
// alongside the sref tree (spec §3 "Schedule state").
type BlockInfo struct {
	AffineBinding bool
}

// ScheduleState is the schedule layer's mutable object: the owning
// PrimFunc ("mod"), the sref tree (via stmt2ref), and per-block metadata
// (spec §6's ScheduleState.{mod, stmt2ref, block_info, ...}).
type ScheduleState struct {
	Mod       *tir.PrimFunc
	stmt2ref  map[tir.Stmt]*StmtSRef
	blockInfo map[*tir.Block]*BlockInfo
}

// NewScheduleState builds a ScheduleState over mod, constructing the
// initial sref tree and block_info map.
func NewScheduleState(mod *tir.PrimFunc) *ScheduleState {
	s := &ScheduleState{Mod: mod}
	s.rebuild()
	return s
}

// GetSRef returns the sref for stmt (a *tir.Block or *tir.For previously
// seen during a tree build), or nil.
func (s *ScheduleState) GetSRef(stmt tir.Stmt) *StmtSRef {
	switch n := stmt.(type) {
	case *tir.Block:
		return s.stmt2ref[n]
	case *tir.For:
		return s.stmt2ref[n]
	default:
		return nil
	}
}

// GetBlockRealize returns the BlockRealize wrapping sref's Block.
func (s *ScheduleState) GetBlockRealize(sref *StmtSRef) *tir.BlockRealize {
	return sref.Realize
}

// GetScopeRoot returns the nearest enclosing Block sref above sref (the
// block whose scope sref belongs to), or nil if sref is within the root
// scope (the function body itself has no enclosing Block sref).
func (s *ScheduleState) GetScopeRoot(sref *StmtSRef) *StmtSRef {
	for n := sref.Parent; n != nil; n = n.Parent {
		if _, ok := n.Stmt.(*tir.Block); ok {
			return n
		}
	}
	return nil
}

// IsAffineBlockBinding reports whether sref's block has a binding the
// schedule state classified as affine during the last tree build.
func (s *ScheduleState) IsAffineBlockBinding(sref *StmtSRef) bool {
	blk, ok := sref.Stmt.(*tir.Block)
	if !ok {
		return false
	}
	info, ok := s.blockInfo[blk]
	return ok && info.AffineBinding
}

// GetSRefLowestCommonAncestor returns the lowest sref that is an ancestor
// of (or equal to) every sref in srefs.
func (s *ScheduleState) GetSRefLowestCommonAncestor(srefs []*StmtSRef) *StmtSRef {
	if len(srefs) == 0 {
		return nil
	}
	lca := srefs[0]
	for _, r := range srefs[1:] {
		lca = pairwiseLCA(lca, r)
	}
	return lca
}

func ancestorChain(r *StmtSRef) []*StmtSRef {
	var chain []*StmtSRef
	for n := r; n != nil; n = n.Parent {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func pairwiseLCA(a, b *StmtSRef) *StmtSRef {
	ca, cb := ancestorChain(a), ancestorChain(b)
	var lca *StmtSRef
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if ca[i] != cb[i] {
			break
		}
		lca = ca[i]
	}
	return lca
}

// Replace installs newStmt in place of sref's node within the IR tree and
// rebuilds the sref tree (spec §3's sole ordering point for sref-tree
// mutation). blockReuse is accepted for interface parity with spec §4.1's
// IR-Substitute reuse map, but since Replace always performs a full tree
// rebuild, re-linking through it is unnecessary; kept so callers constructed
// around the substitution-time reuse map (package tir.ReuseMap) need no
// translation step.
func (s *ScheduleState) Replace(sref *StmtSRef, newStmt tir.Stmt, blockReuse tir.ReuseMap) {
	_ = blockReuse
	newBody, changed := replaceStmt(s.Mod.Body, sref.Stmt, newStmt)
	if changed {
		s.Mod.Body = newBody
	}
	s.rebuild()
}

// UpdateScopeBlockInfo refreshes block_info for the subtree rooted at
// scopeRoot (spec §4.8 Step G "Refresh scope-block info"). Kept as a
// distinct, explicitly-called operation per spec §3. It ignores scopeRoot
// and rebuilds the whole sref tree and block_info map, the same full
// rebuild that Replace already performs.
func (s *ScheduleState) UpdateScopeBlockInfo(scopeRoot *StmtSRef) {
	_ = scopeRoot
	s.rebuild()
}

func (s *ScheduleState) rebuild() {
	s.stmt2ref = map[tir.Stmt]*StmtSRef{}
	s.blockInfo = map[*tir.Block]*BlockInfo{}
	s.build(s.Mod.Body, nil)
}

func (s *ScheduleState) build(stmt tir.Stmt, parent *StmtSRef) {
	switch n := stmt.(type) {
	case nil:
		return
	case tir.SeqStmt:
		for _, c := range n.Seq {
			s.build(c, parent)
		}
	case tir.IfThenElse:
		s.build(n.Then, parent)
		if n.Else != nil {
			s.build(n.Else, parent)
		}
	case *tir.For:
		ref := &StmtSRef{Stmt: n, Parent: parent}
		s.stmt2ref[n] = ref
		s.build(n.Body, ref)
	case *tir.BlockRealize:
		ref := &StmtSRef{Stmt: n.Block, Parent: parent, Realize: n}
		s.stmt2ref[n.Block] = ref
		s.blockInfo[n.Block] = &BlockInfo{AffineBinding: affineBinding(n)}
		s.build(n.Block.Body, ref)
		if n.Block.Init != nil {
			s.build(n.Block.Init, ref)
		}
	case *tir.Block:
		ref := &StmtSRef{Stmt: n, Parent: parent}
		s.stmt2ref[n] = ref
		s.build(n.Body, ref)
	case *tir.BufferStore:
		return
	default:
		schederr.Contractf("sched: unrecognized stmt node in tree build: %T", stmt)
	}
}

func affineBinding(r *tir.BlockRealize) bool {
	for _, v := range r.IterValues {
		if _, ok := itermap.LinearDecompose(v); !ok {
			return false
		}
	}
	return true
}

// replaceStmt performs a whole-node-identity substitution: walking s
// top-down, when a child is literally old (pointer identity), it is
// replaced by new; every other subtree is shared unchanged. This differs
// from tir.SubstituteStmt (which rewrites individual variable references)
// in that it swaps an entire node wholesale, which is what installing a
// transformation's result at a sref requires.
func replaceStmt(s tir.Stmt, old, new tir.Stmt) (tir.Stmt, bool) {
	if isSameNode(s, old) {
		return new, true
	}
	switch n := s.(type) {
	case tir.SeqStmt:
		changedAny := false
		seq := make([]tir.Stmt, len(n.Seq))
		for i, c := range n.Seq {
			r, ch := replaceStmt(c, old, new)
			seq[i] = r
			if ch {
				changedAny = true
			}
		}
		if !changedAny {
			return n, false
		}
		return tir.SeqStmt{Seq: seq}, true
	case tir.IfThenElse:
		then, ch1 := replaceStmt(n.Then, old, new)
		var els tir.Stmt
		ch2 := false
		if n.Else != nil {
			els, ch2 = replaceStmt(n.Else, old, new)
		}
		if !ch1 && !ch2 {
			return n, false
		}
		return tir.IfThenElse{Cond: n.Cond, Then: then, Else: els}, true
	case *tir.For:
		body, ch := replaceStmt(n.Body, old, new)
		if !ch {
			return n, false
		}
		nf := *n
		nf.Body = body
		return &nf, true
	case *tir.BlockRealize:
		blk, ch := replaceStmt(n.Block, old, new)
		if !ch {
			return n, false
		}
		nb, ok := blk.(*tir.Block)
		if !ok {
			schederr.Contractf("sched: Replace produced a non-Block in BlockRealize.Block position")
		}
		nr := *n
		nr.Block = nb
		return &nr, true
	case *tir.Block:
		body, ch := replaceStmt(n.Body, old, new)
		if !ch {
			return n, false
		}
		nblk := *n
		nblk.Body = body
		return &nblk, true
	default:
		return s, false
	}
}

func isSameNode(s, old tir.Stmt) bool {
	switch o := old.(type) {
	case *tir.For:
		f, ok := s.(*tir.For)
		return ok && f == o
	case *tir.Block:
		b, ok := s.(*tir.Block)
		return ok && b == o
	default:
		return false
	}
}
