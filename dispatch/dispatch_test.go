package dispatch

import (
	"testing"
	"time"

	"github.com/kevinboenisch/jpodbgr/breakpoint"
	"github.com/kevinboenisch/jpodbgr/control"
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

type fakeTransport struct {
	sent []*wire.Frame
}

func (t *fakeTransport) Send(f *wire.Frame) error {
	t.sent = append(t.sent, f)
	return nil
}
func (t *fakeTransport) Receive(time.Duration) (*wire.Frame, error) {
	return nil, wire.ErrTimeout
}

type fakeNames map[interp.FileSymbol]string

func (n fakeNames) Name(s interp.FileSymbol) string { return n[s] }

type fakeSyms map[string]breakpoint.FileSymbol

func (s fakeSyms) Lookup(name string) (breakpoint.FileSymbol, bool) {
	sym, ok := s[name]
	return sym, ok
}

type fakeSource struct{ top interp.Frame }

func (s *fakeSource) SetTop(top interp.Frame)                         { s.top = top }
func (s *fakeSource) FrameAt(int) (interp.Frame, bool)                { return s.top, s.top != nil }
func (s *fakeSource) Globals() interp.Dict                            { return nil }
func (s *fakeSource) Object(uint32) (interp.Value, bool)              { return nil, false }
func (s *fakeSource) Modules(interp.ScopeKind) interp.ModuleRegistry  { return nil }

func newTestDispatcher(t *testing.T) (*Dispatcher, *control.Machine, *fakeTransport) {
	t.Helper()
	bp := breakpoint.New(10)
	tr := &fakeTransport{}
	m := control.New(bp, tr, fakeNames{}, &fakeSource{}, 256, 50*time.Millisecond, nil)
	syms := fakeSyms{"prog": 1}
	d := New(tr, m, syms, nil)
	return d, m, tr
}

func TestHandleTerminateAlwaysAvailable(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	// Status is NotEnabled; TERMINATE must still be handled.
	handled, err := d.Handle(wire.New(wire.TagTerminate, 8))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled {
		t.Fatal("expected TERMINATE to be handled regardless of status")
	}
	select {
	case <-m.TerminateRequested():
	default:
		t.Fatal("expected a pending terminate request")
	}
}

func TestHandleStartAlwaysAvailable(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	// Status is NotEnabled; START must still be handled, since it is
	// the only command that can move the machine out of NotEnabled.
	handled, err := d.Handle(wire.New(wire.TagStart, 8))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled {
		t.Fatal("expected START to be handled regardless of status")
	}
	if m.CurrentStatus() != control.Starting {
		t.Fatalf("expected Starting, got %v", m.CurrentStatus())
	}
}

func TestHandleStartWhenAlreadyEnabled(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	must(t, m.HandleStart()) // moves to Starting, i.e. Enabled() == true

	handled, err := d.Handle(wire.New(wire.TagStart, 8))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled {
		t.Fatal("expected START to be handled once enabled")
	}
	if m.CurrentStatus() != control.Starting {
		t.Fatalf("expected Starting, got %v", m.CurrentStatus())
	}
}

func TestHandleSetBreakpointsDecodesPayload(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	must(t, m.HandleStart())

	f := wire.New(wire.TagSetBreakpoints, 64)
	must(t, f.AppendRawString("prog"))
	must(t, f.AppendByte(0))
	must(t, f.AppendUint32(5))

	handled, err := d.Handle(f)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled {
		t.Fatal("expected SET_BREAKPOINTS to be handled")
	}
}

func TestHandleSetExceptionBreakpoints(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	must(t, m.HandleStart())

	f := wire.New(wire.TagSetExcBreak, 8)
	must(t, f.AppendByte(0))

	handled, err := d.Handle(f)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled {
		t.Fatal("expected SET_EXCEPTION_BREAKPOINTS to be handled")
	}
}

func TestHandleContinueNotHandledWhenNoLoopIsWaiting(t *testing.T) {
	d, m, _ := newTestDispatcher(t)
	must(t, m.HandleStart())

	// Nobody is in the stopped-loop yet: CONTINUE is recognized by
	// C4, not C5, so it is neither one of C5's own commands nor
	// deliverable anywhere — it should report not-handled.
	handled, err := d.Handle(wire.New(wire.TagContinue, 8))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if handled {
		t.Fatal("expected CONTINUE to be not-handled with no stopped-loop listening")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
