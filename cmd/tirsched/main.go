// The tirsched command runs one of this module's end-to-end scheduling
// scenarios against a built-in program and prints the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/loopnest/tirsched/intrin"
	"github.com/loopnest/tirsched/sched"
	"github.com/loopnest/tirsched/schederr"
	"github.com/loopnest/tirsched/tir"
)

var (
	listFlag     = flag.Bool("l", false, "list the available scenarios")
	scenarioFlag = flag.String("scenario", "", "scenario to run, e.g. -scenario=blockize_gemm")
)

var scenarios = map[string]func() (*sched.ScheduleState, *sched.StmtSRef, error){
	"blockize_gemm":  runBlockizeGemm,
	"blockize_group": runBlockizeGroup,
	"tensorize_mma":  runTensorizeMMA,
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage of %s:

  %s -scenario=<name>

The <name> may be one of:
%s

`, os.Args[0], os.Args[0], func() (s string) {
		for key := range scenarios {
			s += "\n  " + key
		}
		return
	}())
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Parse()

	if *listFlag || *scenarioFlag == "" {
		usage()
	}

	run, ok := scenarios[*scenarioFlag]
	if !ok {
		printError(fmt.Errorf("unknown scenario %q, see -l", *scenarioFlag))
	}

	state, sref, err := run()
	if err != nil {
		printError(err)
	}
	printResult(state, sref)
}

func printError(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
	if se, ok := err.(schederr.ScheduleError); ok {
		for _, loc := range se.Locations() {
			fmt.Fprintf(os.Stderr, "  at: %s\n", loc)
		}
	}
	os.Exit(1)
}

func printResult(state *sched.ScheduleState, sref *sched.StmtSRef) {
	color.New(color.FgGreen, color.Bold).Println("ok:")
	switch n := sref.Stmt.(type) {
	case *tir.Block:
		fmt.Println(n.String())
	case *tir.For:
		fmt.Println(n.String())
	}
	color.New(color.FgCyan).Println("full function:")
	fmt.Println(state.Mod.Body.String())
}

func dim(n int64) tir.Expr { return tir.IntImm{Value: n, DT: tir.Int32} }

// runBlockizeGemm builds spec §8 S1: a 128^3 GEMM tile and blockizes its
// outermost loop.
func runBlockizeGemm() (*sched.ScheduleState, *sched.StmtSRef, error) {
	i := tir.NewVar("i", tir.Int32)
	j := tir.NewVar("j", tir.Int32)
	k := tir.NewVar("k", tir.Int32)
	vi := tir.NewVar("vi", tir.Int32)
	vj := tir.NewVar("vj", tir.Int32)
	vk := tir.NewVar("vk", tir.Int32)

	A := tir.NewBuffer("A", []tir.Expr{dim(128), dim(128)}, tir.Int32)
	B := tir.NewBuffer("B", []tir.Expr{dim(128), dim(128)}, tir.Int32)
	C := tir.NewBuffer("C", []tir.Expr{dim(128), dim(128)}, tir.Int32)
	point := func(e tir.Expr) tir.Range { return tir.Range{Min: e, Extent: dim(1)} }

	block := &tir.Block{
		NameHint: "update",
		IterVars: []*tir.IterVar{
			tir.NewIterVar(tir.RangeFromExtent(dim(128)), vi, tir.DataPar),
			tir.NewIterVar(tir.RangeFromExtent(dim(128)), vj, tir.DataPar),
			tir.NewIterVar(tir.RangeFromExtent(dim(128)), vk, tir.CommReduce),
		},
		Reads: []*tir.BufferRegion{
			{Buffer: A, Region: []tir.Range{point(vi), point(vk)}},
			{Buffer: B, Region: []tir.Range{point(vk), point(vj)}},
		},
		Writes: []*tir.BufferRegion{{Buffer: C, Region: []tir.Range{point(vi), point(vj)}}},
		Body: &tir.BufferStore{
			Buffer:  C,
			Indices: []tir.Expr{vi, vj},
			Value:   tir.NewAdd(tir.BufferLoad{Buffer: C, Indices: []tir.Expr{vi, vj}}, tir.NewMul(tir.BufferLoad{Buffer: A, Indices: []tir.Expr{vi, vk}}, tir.BufferLoad{Buffer: B, Indices: []tir.Expr{vk, vj}})),
		},
	}
	realize := &tir.BlockRealize{IterValues: []tir.Expr{i, j, k}, Predicate: tir.True, Block: block}

	kLoop := &tir.For{LoopVar: k, Min: dim(0), Extent: dim(128), Kind: tir.Serial, Body: realize}
	jLoop := &tir.For{LoopVar: j, Min: dim(0), Extent: dim(128), Kind: tir.Serial, Body: kLoop}
	iLoop := &tir.For{LoopVar: i, Min: dim(0), Extent: dim(128), Kind: tir.Serial, Body: jLoop}

	mod := &tir.PrimFunc{Name: "gemm", Body: iLoop}
	state := sched.NewScheduleState(mod)
	loopSref := state.GetSRef(iLoop)

	outerSref, err := sched.BlockizeSingleLoop(state, loopSref, false)
	return state, outerSref, err
}

// runBlockizeGroup builds spec §8 S4: two consecutive sibling blocks merged
// into one outer block.
func runBlockizeGroup() (*sched.ScheduleState, *sched.StmtSRef, error) {
	A := tir.NewBuffer("A", []tir.Expr{dim(8)}, tir.Int32)
	C := tir.NewBuffer("C", []tir.Expr{dim(8)}, tir.Int32)

	makeBlock := func(name string, at int64) *tir.BlockRealize {
		v := tir.NewVar("v"+name, tir.Int32)
		blk := &tir.Block{
			NameHint: name,
			IterVars: []*tir.IterVar{tir.NewIterVar(tir.RangeFromExtent(dim(8)), v, tir.DataPar)},
			Reads:    []*tir.BufferRegion{{Buffer: A, Region: []tir.Range{{Min: v, Extent: dim(1)}}}},
			Writes:   []*tir.BufferRegion{{Buffer: C, Region: []tir.Range{{Min: v, Extent: dim(1)}}}},
			Body:     &tir.BufferStore{Buffer: C, Indices: []tir.Expr{v}, Value: tir.BufferLoad{Buffer: A, Indices: []tir.Expr{v}}},
		}
		return &tir.BlockRealize{IterValues: []tir.Expr{dim(at)}, Predicate: tir.True, Block: blk}
	}

	r1 := makeBlock("B1", 0)
	r2 := makeBlock("B2", 1)
	mod := &tir.PrimFunc{Name: "siblings", Body: tir.WrapSeq([]tir.Stmt{r1, r2})}
	state := sched.NewScheduleState(mod)

	b1Sref := state.GetSRef(r1.Block)
	b2Sref := state.GetSRef(r2.Block)

	outerSref, err := sched.BlockizeGroup(state, []*sched.StmtSRef{b1Sref, b2Sref}, false)
	return state, outerSref, err
}

// runTensorizeMMA builds spec §8 S6: a blockized 16x16x16 GEMM tile matched
// and spliced against a registered MMA intrinsic.
func runTensorizeMMA() (*sched.ScheduleState, *sched.StmtSRef, error) {
	mkTile := func(prefix string) *tir.PrimFunc {
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
			Reads:  []*tir.BufferRegion{full(a), full(b)},
			Writes: []*tir.BufferRegion{full(c)},
			Body: &tir.BufferStore{
				Buffer:  c,
				Indices: []tir.Expr{vi, vj},
				Value:   tir.NewAdd(tir.BufferLoad{Buffer: c, Indices: []tir.Expr{vi, vj}}, tir.NewMul(tir.BufferLoad{Buffer: a, Indices: []tir.Expr{vi, vk}}, tir.BufferLoad{Buffer: b, Indices: []tir.Expr{vk, vj}})),
			},
		}
		realize := &tir.BlockRealize{IterValues: []tir.Expr{dim(0), dim(0), dim(0)}, Predicate: tir.True, Block: blk}
		return &tir.PrimFunc{Name: prefix, Params: []*tir.Var{pa, pb, pc}, BufferMap: map[*tir.Var]*tir.Buffer{pa: a, pb: b, pc: c}, Body: realize}
	}

	target := mkTile("")
	registry := intrin.NewRegistry()
	registry.Register("mma_16x16x16", mkTile("desc_"), mkTile("impl_"))
	mma, _ := registry.Lookup("mma_16x16x16")

	state := sched.NewScheduleState(target)
	targetRealize := target.Body.(*tir.BlockRealize)
	sref := state.GetSRef(targetRealize.Block)

	log := schederr.NewLog()
	if err := sched.Tensorize(state, sref, mma, false, log); err != nil {
		return state, nil, err
	}
	return state, state.GetSRef(state.Mod.Body.(*tir.BlockRealize).Block), nil
}
