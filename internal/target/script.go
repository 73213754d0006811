package target

import (
	"time"

	"github.com/kevinboenisch/jpodbgr/interp"
)

// Local is one named local-slot value, in declaration order; Script
// exposes them to interp.LocalSlots in reverse (newest-first), the
// same convention real frames use (§3).
type Local struct {
	Name  string
	Value Value
}

// Step is one simulated trace-hook firing: a source position, an
// enclosing block name, a call depth, and the locals live at that
// point.
type Step struct {
	File   interp.FileSymbol
	Line   int
	Block  string
	Depth  int
	Locals []Local
}

type localSlots struct {
	locals []Local // reverse (newest-first) order already
}

func newLocalSlots(declared []Local) localSlots {
	rev := make([]Local, len(declared))
	for i, l := range declared {
		rev[len(declared)-1-i] = l
	}
	return localSlots{locals: rev}
}

func (l localSlots) Len() int { return len(l.locals) }
func (l localSlots) Slot(reverseIndex int) interp.Value { return l.locals[reverseIndex].Value }
func (l localSlots) NameFor(reverseIndex int) (string, bool) {
	name := l.locals[reverseIndex].Name
	return name, name != ""
}

type frame struct {
	step   Step
	caller *frame
	globals interp.Dict
}

func (f *frame) File() interp.FileSymbol   { return f.step.File }
func (f *frame) Block() string             { return f.step.Block }
func (f *frame) Line() int                 { return f.step.Line }
func (f *frame) Depth() int                 { return f.step.Depth }
func (f *frame) Locals() interp.LocalSlots  { return newLocalSlots(f.step.Locals) }
func (f *frame) Globals() interp.Dict       { return f.globals }
func (f *frame) Caller() interp.Frame {
	if f.caller == nil {
		return nil
	}
	return f.caller
}

// Script is a fixed sequence of Steps forming a single call chain
// (each step's caller is the previous step with a lesser depth),
// standing in for one straight-line run of a traced program.
type Script struct {
	Steps   []Step
	Globals map[string]Value
}

// Debugger is the subset of debugger.Debugger a script drives.
type Debugger interface {
	OnLine(frame interp.Frame)
	Done(exitCode int)
	TerminateRequested() <-chan struct{}
}

// Run feeds each step to d.OnLine in order on the calling goroutine —
// the stand-in for the interpreter's own execution thread — stopping
// early if a TERMINATE has been requested, and always finishing with
// Done(0).
func (s Script) Run(d Debugger) {
	globals := dictValue(s.Globals)

	var stack []*frame
	for _, step := range s.Steps {
		var caller *frame
		for len(stack) > 0 && stack[len(stack)-1].step.Depth >= step.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			caller = stack[len(stack)-1]
		}
		f := &frame{step: step, caller: caller, globals: globals}
		stack = append(stack, f)

		select {
		case <-d.TerminateRequested():
			d.Done(0)
			return
		default:
		}

		d.OnLine(f)
	}
	d.Done(0)
}

// DemoScript is a small two-function program used by the demo
// binaries: main() calls helper(), which executes two lines.
func DemoScript() Script {
	return Script{
		Globals: map[string]Value{
			"VERSION": Int(1),
		},
		Steps: []Step{
			{File: 1, Line: 1, Block: "<module>", Depth: 0, Locals: nil},
			{File: 1, Line: 2, Block: "<module>", Depth: 0, Locals: []Local{{"x", Int(10)}}},
			{File: 1, Line: 3, Block: "helper", Depth: 1, Locals: []Local{{"y", Int(20)}}},
			{File: 1, Line: 4, Block: "helper", Depth: 1, Locals: []Local{{"y", Int(20)}, {"z", Int(30)}}},
			{File: 1, Line: 5, Block: "<module>", Depth: 0, Locals: []Local{{"x", Int(10)}, {"result", Int(50)}}},
		},
	}
}

// Sleep is a small helper demo binaries use between steps so a
// human operator has time to issue commands; it is not part of the
// debugger's own timing model.
func Sleep(d time.Duration) { time.Sleep(d) }
