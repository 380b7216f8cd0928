package sched

import (
	"github.com/loopnest/tirsched/intrin"
	"github.com/loopnest/tirsched/schederr"
)

// Instruction is the spec §6 "instruction kind" surface: a named,
// attributed operation the schedule can apply and that a trace/replay
// layer (out of this module's scope — see spec §1) could record. Kind and
// Attrs exist purely for that description; Apply is what this module
// actually runs.
type Instruction interface {
	Kind() string
	Attrs() map[string]interface{}
	Apply(state *ScheduleState) (*StmtSRef, error)
}

// InstructionKindInfo describes one registered instruction kind's shape,
// mirroring spec §6's "N inputs, M attributes" table — descriptive
// metadata only, grounded on engine/protocol/command.go's Command
// registry (AllRefactoringNames/GetRefactoring), reduced here to a plain
// lookup table since this module owns no trace/replay façade to feed.
type InstructionKindInfo struct {
	Name       string
	Inputs     int
	Attributes []string
	Pure       bool
}

var instructionKinds = map[string]InstructionKindInfo{
	"Blockize":  {Name: "Blockize", Inputs: 1, Attributes: []string{"preserve_unit_iters"}, Pure: false},
	"Tensorize": {Name: "Tensorize", Inputs: 1, Attributes: []string{"intrin", "preserve_unit_iters"}, Pure: false},
}

// InstructionKinds returns the registered instruction kinds' metadata.
func InstructionKinds() map[string]InstructionKindInfo {
	return instructionKinds
}

// BlockizeInstruction is the Blockize instruction kind (spec §6): exactly
// one of Loop or Blocks is set, selecting the single-loop or group form.
type BlockizeInstruction struct {
	Loop              *StmtSRef
	Blocks            []*StmtSRef
	PreserveUnitIters bool
}

func (i *BlockizeInstruction) Kind() string { return "Blockize" }

func (i *BlockizeInstruction) Attrs() map[string]interface{} {
	return map[string]interface{}{"preserve_unit_iters": i.PreserveUnitIters}
}

func (i *BlockizeInstruction) Apply(state *ScheduleState) (*StmtSRef, error) {
	if i.Loop != nil {
		return BlockizeSingleLoop(state, i.Loop, i.PreserveUnitIters)
	}
	return BlockizeGroup(state, i.Blocks, i.PreserveUnitIters)
}

// TensorizeInstruction is the Tensorize instruction kind (spec §6).
type TensorizeInstruction struct {
	Target            *StmtSRef
	IntrinName        string
	Intrinsic         *intrin.Intrinsic
	PreserveUnitIters bool
	Log               *schederr.Log
}

func (i *TensorizeInstruction) Kind() string { return "Tensorize" }

func (i *TensorizeInstruction) Attrs() map[string]interface{} {
	return map[string]interface{}{"intrin": i.IntrinName, "preserve_unit_iters": i.PreserveUnitIters}
}

func (i *TensorizeInstruction) Apply(state *ScheduleState) (*StmtSRef, error) {
	if err := Tensorize(state, i.Target, i.Intrinsic, i.PreserveUnitIters, i.Log); err != nil {
		return nil, err
	}
	return i.Target, nil
}
