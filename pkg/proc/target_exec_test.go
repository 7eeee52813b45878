package proc_test

import (
	"syscall"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/go-delve/tdb/pkg/proc"
)

const (
	bpAddr   = 0x401000
	origWord = 0x00000000e5894855 // push %rbp; mov %rsp,%rbp
)

// stoppedAtBreakpoint returns a fake process that just hit a breakpoint at
// bpAddr.
func stoppedAtBreakpoint(t *testing.T) (*fakeProcess, *proc.BreakpointMap, *proc.Breakpoint) {
	fp := newFakeProcess()
	fp.mem[bpAddr] = origWord
	bpmap := proc.NewBreakpointMap()
	bp, err := bpmap.Add(fp, bpAddr)
	assertNoError(err, t, "Add")
	fp.pc = bpAddr + 1
	return fp, bpmap, bp
}

func TestContinueStepsOverBreakpoint(t *testing.T) {
	fp, bpmap, bp := stoppedAtBreakpoint(t)
	fp.waits = []proc.State{
		proc.Stopped{Signal: syscall.SIGTRAP, PC: bpAddr + 1}, // end of single step
		proc.Stopped{Signal: syscall.SIGTRAP, PC: bpAddr + 1}, // breakpoint hit again
	}

	state, err := proc.Continue(fp, bpmap)
	assertNoError(err, t, "Continue")
	if s, ok := state.(proc.Stopped); !ok || s.Signal != syscall.SIGTRAP || s.PC != bpAddr+1 {
		t.Fatalf("unexpected state %s", spew.Sdump(state))
	}

	if len(fp.resumes) != 2 {
		t.Fatalf("expected a single step followed by a continue, got %s", spew.Sdump(fp.resumes))
	}
	step, cont := fp.resumes[0], fp.resumes[1]
	if !step.singlestep || step.pc != bpAddr || step.word != origWord {
		t.Fatalf("single step not executed on the original instruction: %s", spew.Sdump(step))
	}
	if cont.singlestep || cont.word&0xff != 0xcc {
		t.Fatalf("breakpoint not re-armed before continuing: %s", spew.Sdump(cont))
	}
	if bp.State != proc.BreakpointArmed {
		t.Fatalf("breakpoint state %v after continue", bp.State)
	}
}

func TestContinueStepOverExits(t *testing.T) {
	fp, bpmap, _ := stoppedAtBreakpoint(t)
	fp.waits = []proc.State{proc.Exited{Status: 3}}

	state, err := proc.Continue(fp, bpmap)
	assertNoError(err, t, "Continue")
	if s, ok := state.(proc.Exited); !ok || s.Status != 3 {
		t.Fatalf("unexpected state %s", spew.Sdump(state))
	}
	if len(fp.resumes) != 1 || !fp.resumes[0].singlestep {
		t.Fatalf("process resumed after exiting: %s", spew.Sdump(fp.resumes))
	}
}

func TestContinueStepOverSignaled(t *testing.T) {
	fp, bpmap, _ := stoppedAtBreakpoint(t)
	fp.waits = []proc.State{proc.Signaled{Signal: syscall.SIGKILL}}

	state, err := proc.Continue(fp, bpmap)
	assertNoError(err, t, "Continue")
	if s, ok := state.(proc.Signaled); !ok || s.Signal != syscall.SIGKILL {
		t.Fatalf("unexpected state %s", spew.Sdump(state))
	}
	if len(fp.resumes) != 1 {
		t.Fatalf("process resumed after being killed: %s", spew.Sdump(fp.resumes))
	}
}

func TestContinueStepOverInterrupted(t *testing.T) {
	fp, bpmap, bp := stoppedAtBreakpoint(t)
	fp.waits = []proc.State{proc.Stopped{Signal: syscall.SIGUSR1, PC: bpAddr}}

	state, err := proc.Continue(fp, bpmap)
	assertNoError(err, t, "Continue")
	if s, ok := state.(proc.Stopped); !ok || s.Signal != syscall.SIGUSR1 {
		t.Fatalf("unexpected state %s", spew.Sdump(state))
	}
	if len(fp.resumes) != 1 {
		t.Fatalf("process resumed after an unexpected stop: %s", spew.Sdump(fp.resumes))
	}
	if bp.State != proc.BreakpointArmed || fp.byteAt(bpAddr) != 0xcc {
		t.Fatalf("breakpoint not re-armed: %v %#x", bp.State, fp.mem[bpAddr])
	}
}

func TestContinueNotAtBreakpoint(t *testing.T) {
	fp, bpmap, _ := stoppedAtBreakpoint(t)
	fp.pc = 0x400500
	fp.waits = []proc.State{proc.Exited{Status: 0}}

	state, err := proc.Continue(fp, bpmap)
	assertNoError(err, t, "Continue")
	if _, ok := state.(proc.Exited); !ok {
		t.Fatalf("unexpected state %s", spew.Sdump(state))
	}
	if len(fp.resumes) != 1 || fp.resumes[0].singlestep {
		t.Fatalf("expected a plain continue: %s", spew.Sdump(fp.resumes))
	}
}

func TestContinuePendingBreakpointIgnored(t *testing.T) {
	fp := newFakeProcess()
	bpmap := proc.NewBreakpointMap()
	_, err := bpmap.Add(nil, bpAddr)
	assertNoError(err, t, "Add")
	fp.pc = bpAddr + 1
	fp.waits = []proc.State{proc.Exited{Status: 0}}

	_, err = proc.Continue(fp, bpmap)
	assertNoError(err, t, "Continue")
	if len(fp.resumes) != 1 || fp.resumes[0].singlestep {
		t.Fatalf("stepped over a pending breakpoint: %s", spew.Sdump(fp.resumes))
	}
}

func TestContinueExited(t *testing.T) {
	fp := newFakeProcess()
	fp.exited = true
	_, err := proc.Continue(fp, proc.NewBreakpointMap())
	if _, ok := err.(proc.ErrProcessExited); !ok {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
}
