// Package schederr classifies the error surface described in spec §7:
// user-facing schedule errors, contract-violation panics, and non-fatal
// warnings. The Severity/Log/Entry shape merges doctor/log.go's
// four-tier Severity (which adds FATAL_ERROR on top of the three-tier
// refactoring/log.go model) into a single JSON-taggable log, since a
// transformation here can both warn (annotation conflicts) and fail fatally
// (no structural match) in the same run.
package schederr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/loopnest/tirsched/tir"
)

// Severity mirrors doctor/log.go's four-tier scale.
type Severity int

const (
	Info Severity = iota
	Warning
	ErrorSeverity
	FatalError
)

func (s Severity) String() string {
	switch s {
	case Info:
		return ""
	case Warning:
		return "Warning: "
	case ErrorSeverity:
		return "Error: "
	case FatalError:
		return "ERROR: "
	default:
		return ""
	}
}

// Entry is a single log line, optionally anchored to an IR node rather
// than a source position (there being no source text in this module).
type Entry struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Node     tir.Node `json:"-"`
}

func (e Entry) String() string {
	return e.Severity.String() + e.Message
}

// Log accumulates entries raised during a single transformation, the way
// every godoctor refactoring returns a populated Log alongside its edits.
type Log struct {
	Entries []Entry `json:"entries"`
}

func NewLog() *Log { return &Log{} }

func (l *Log) Warn(node tir.Node, format string, args ...interface{}) {
	l.Entries = append(l.Entries, Entry{Severity: Warning, Message: fmt.Sprintf(format, args...), Node: node})
}

func (l *Log) Error(node tir.Node, format string, args ...interface{}) {
	l.Entries = append(l.Entries, Entry{Severity: ErrorSeverity, Message: fmt.Sprintf(format, args...), Node: node})
}

func (l *Log) ContainsErrors() bool {
	for _, e := range l.Entries {
		if e.Severity >= ErrorSeverity {
			return true
		}
	}
	return false
}

// ScheduleError is the interface satisfied by every user-facing, recoverable
// error raised at the boundary (spec §7): it carries the owning PrimFunc
// ("mod") and the IR nodes of interest for diagnostic rendering, alongside
// the usual error.Error() message.
type ScheduleError interface {
	error
	Mod() *tir.PrimFunc
	Locations() []tir.Node
}

// SubspaceNotDivisible is raised when spec §4.3's subspace divider (package
// subspace) finds no surjective division and the trivial fallback also
// fails, identifying the bottommost inner loop and the inner block.
type SubspaceNotDivisible struct {
	ModFunc    *tir.PrimFunc
	Loop       *tir.For
	InnerBlock *tir.Block
}

func (e *SubspaceNotDivisible) Error() string {
	return fmt.Sprintf("the bindings of the inner block %s can not be blockized by the loops starting at %s",
		e.InnerBlock.NameHint, e.Loop.LoopVar)
}

func (e *SubspaceNotDivisible) Mod() *tir.PrimFunc { return e.ModFunc }
func (e *SubspaceNotDivisible) Locations() []tir.Node {
	return []tir.Node{e.Loop, e.InnerBlock}
}

// StructuralMatchFailure is raised by the tensor-intrinsic comparator
// (package intrin, spec §4.8 Step C) when the program does not structurally
// match the intrinsic descriptor.
type StructuralMatchFailure struct {
	ModFunc *tir.PrimFunc
	At      tir.Node
	Reason  string
}

func (e *StructuralMatchFailure) Error() string {
	return fmt.Sprintf("structural match against the tensor intrinsic descriptor failed: %s", e.Reason)
}

func (e *StructuralMatchFailure) Mod() *tir.PrimFunc   { return e.ModFunc }
func (e *StructuralMatchFailure) Locations() []tir.Node { return []tir.Node{e.At} }

// Contract violations are programmer errors (spec §7): misuse of a
// primitive, reported fatally rather than returned, exactly as godoctor's
// refactorings panic on broken internal invariants (e.g.
// refactoring/extractfunc.go's "no FuncDecl in path to root").
func Contractf(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}
