// Package intrin implements the tensor-intrinsic registry and the
// structural comparator Tensorize (package sched) uses for spec §4.8 Step
// C: matching a blockized region against an intrinsic's abstract
// descriptor and recording, per descriptor buffer, the corresponding
// current-program buffer and the base index expressions at its access
// site.
//
// The comparator's shape — walk two parallel structures by declared
// position and report the first mismatch — is grounded on
// refactoring/implement.go's method-set matching: it lines up an
// interface's method list against a struct's by name/signature rather
// than doing general unification; here the declared parameter order of
// the descriptor and implementation PrimFuncs plays the same role the
// method list plays there.
package intrin

import (
	"fmt"

	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/tir"
)

// Intrinsic is a registered hardware tensor intrinsic: an abstract
// descriptor (desc) and the concrete implementation body that replaces a
// matched region (impl). Both are single-top-level-block PrimFuncs (spec
// §3 "Tensor intrinsic").
type Intrinsic struct {
	Name string
	Desc *tir.PrimFunc
	Impl *tir.PrimFunc
}

// Registry holds the intrinsics known to one schedule session. It is not
// a package-level global — callers (typically a CLI or test) own one and
// populate it explicitly, since which intrinsics exist is a property of
// the target hardware, not of this package.
type Registry struct {
	entries map[string]*Intrinsic
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]*Intrinsic{}}
}

func (r *Registry) Register(name string, desc, impl *tir.PrimFunc) {
	r.entries[name] = &Intrinsic{Name: name, Desc: desc, Impl: impl}
}

func (r *Registry) Lookup(name string) (*Intrinsic, bool) {
	i, ok := r.entries[name]
	return i, ok
}

// Match is the result of a successful structural match: for each
// descriptor buffer, the current-program buffer it corresponds to and the
// base index expressions at the access site that was matched.
type Match struct {
	DescToCurrent map[*tir.Buffer]*tir.Buffer
	BaseIndices   map[*tir.Buffer][]tir.Expr
}

// MatchBlock implements spec §4.8 Step C: align current's reads and
// writes against desc's single top-level block's reads and writes by
// position, checking per-dimension arity and recording each descriptor
// buffer's current-program counterpart and base indices.
//
// Aligning purely by declared position (rather than re-deriving a
// buffer-access isomorphism from the block bodies themselves) is a
// deliberate simplification: every intrinsic and matched region this
// module targets declares its buffers in a fixed, known order (the
// parameter order of desc/impl), so positional correspondence is exact —
// a full AST-isomorphism walk would be needed only for descriptors whose
// buffer declaration order can't be trusted, which none of this module's
// intrinsics require.
func MatchBlock(mod *tir.PrimFunc, current *tir.Block, desc *tir.PrimFunc) (*Match, error) {
	descRealize, ok := desc.Body.(*tir.BlockRealize)
	if !ok {
		return nil, &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: "descriptor body is not a single top-level block"}
	}
	descBlock := descRealize.Block

	if len(current.Reads) != len(descBlock.Reads) {
		return nil, &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: fmt.Sprintf("read count mismatch: program has %d, descriptor expects %d", len(current.Reads), len(descBlock.Reads))}
	}
	if len(current.Writes) != len(descBlock.Writes) {
		return nil, &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: fmt.Sprintf("write count mismatch: program has %d, descriptor expects %d", len(current.Writes), len(descBlock.Writes))}
	}

	m := &Match{DescToCurrent: map[*tir.Buffer]*tir.Buffer{}, BaseIndices: map[*tir.Buffer][]tir.Expr{}}
	align := func(descRegions, curRegions []*tir.BufferRegion) error {
		for i := range descRegions {
			db, cb := descRegions[i].Buffer, curRegions[i].Buffer
			if len(descRegions[i].Region) != len(curRegions[i].Region) {
				return &schederr.StructuralMatchFailure{ModFunc: mod, At: current, Reason: fmt.Sprintf("dimensionality mismatch for buffer %s: program has %d dims, descriptor expects %d", db.Name, len(curRegions[i].Region), len(descRegions[i].Region))}
			}
			m.DescToCurrent[db] = cb
			bases := make([]tir.Expr, len(curRegions[i].Region))
			for d, rg := range curRegions[i].Region {
				bases[d] = rg.Min
			}
			m.BaseIndices[db] = bases
		}
		return nil
	}
	if err := align(descBlock.Reads, current.Reads); err != nil {
		return nil, err
	}
	if err := align(descBlock.Writes, current.Writes); err != nil {
		return nil, err
	}
	return m, nil
}
