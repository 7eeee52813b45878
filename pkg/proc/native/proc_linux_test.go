//go:build linux && amd64
// +build linux,amd64

package native_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/go-delve/tdb/pkg/proc"
	"github.com/go-delve/tdb/pkg/proc/native"
	protest "github.com/go-delve/tdb/pkg/proc/test"
	"github.com/go-delve/tdb/pkg/symbols"
)

func TestMain(m *testing.M) {
	os.Exit(protest.RunTestsWithFixtures(m))
}

func assertNoError(err error, t testing.TB, s string) {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fname := filepath.Base(file)
		t.Fatalf("failed assertion at %s:%d: %s - %s\n", fname, line, s, err)
	}
}

func withTestProcessArgs(t *testing.T, name string, args []string, bpmap *proc.BreakpointMap, fn func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture)) {
	fixture := protest.BuildFixture(t, name)
	bi, err := symbols.Open(fixture.Path, symbols.Options{})
	assertNoError(err, t, "symbols.Open")
	defer bi.Close()
	if bpmap == nil {
		bpmap = proc.NewBreakpointMap()
	}
	p, err := native.Launch(append([]string{fixture.Path}, args...), "", bpmap)
	assertNoError(err, t, "Launch")
	defer func() {
		assertNoError(p.Kill(), t, "Kill")
	}()
	fn(p, bi, fixture)
}

func assertStopped(t *testing.T, state proc.State, sig syscall.Signal) proc.Stopped {
	t.Helper()
	stopped, ok := state.(proc.Stopped)
	if !ok || stopped.Signal != sig {
		t.Fatalf("expected stop with signal %v, got %s", sig, spew.Sdump(state))
	}
	return stopped
}

func assertExited(t *testing.T, state proc.State, status int) {
	t.Helper()
	exited, ok := state.(proc.Exited)
	if !ok || exited.Status != status {
		t.Fatalf("expected exit status %d, got %s", status, spew.Sdump(state))
	}
}

func TestExitStatus(t *testing.T) {
	withTestProcessArgs(t, "exitcode", []string{"7"}, nil, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		state, err := proc.Continue(p, proc.NewBreakpointMap())
		assertNoError(err, t, "Continue")
		assertExited(t, state, 7)
		if !p.Exited() {
			t.Fatal("process not marked as exited")
		}
		if _, err := p.ReadWord(0x400000); !errors.As(err, new(proc.ErrProcessExited)) {
			t.Fatalf("expected ErrProcessExited, got %v", err)
		}
	})
}

func TestLaunchNonexistent(t *testing.T) {
	protest.MustSupportNative(t)
	_, err := native.Launch([]string{"/nonexistent/tdb-target"}, "", proc.NewBreakpointMap())
	var le *proc.LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
}

func TestLaunchArmFailure(t *testing.T) {
	fixture := protest.BuildFixture(t, "exitcode")
	bpmap := proc.NewBreakpointMap()
	_, err := bpmap.Add(nil, 0x10)
	assertNoError(err, t, "Add")
	_, err = native.Launch([]string{fixture.Path}, "", bpmap)
	var le *proc.LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
}

func TestBreakpointStacktrace(t *testing.T) {
	fixture := protest.BuildFixture(t, "nested")
	bi, err := symbols.Open(fixture.Path, symbols.Options{})
	assertNoError(err, t, "symbols.Open")
	defer bi.Close()
	addr, err := bi.FuncToPC("depth3")
	assertNoError(err, t, "FuncToPC")
	bpmap := proc.NewBreakpointMap()
	_, err = bpmap.Add(nil, addr)
	assertNoError(err, t, "Add")

	withTestProcessArgs(t, "nested", nil, bpmap, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		state, err := proc.Continue(p, bpmap)
		assertNoError(err, t, "Continue")
		stopped := assertStopped(t, state, syscall.SIGTRAP)
		if stopped.PC != addr+1 {
			t.Fatalf("stopped at %#x, expected %#x", stopped.PC, addr+1)
		}

		bp, err := p.BP()
		assertNoError(err, t, "BP")
		frames, err := proc.Stacktrace(p, bi, addr, bp, "main", 0)
		assertNoError(err, t, "Stacktrace")
		var got []string
		for _, frame := range frames {
			got = append(got, frame.Function)
		}
		if fmt.Sprint(got) != "[depth3 depth2 depth1 main]" {
			t.Fatalf("unexpected stack %s", spew.Sdump(frames))
		}
		if frames[1].Line != protest.FindLine(t, fixture, "call depth3") {
			t.Errorf("caller frame on line %d", frames[1].Line)
		}

		state, err = proc.Continue(p, bpmap)
		assertNoError(err, t, "Continue")
		assertExited(t, state, 0)
	})
}

func TestBreakpointInLoop(t *testing.T) {
	fixture := protest.BuildFixture(t, "loop")
	bi, err := symbols.Open(fixture.Path, symbols.Options{})
	assertNoError(err, t, "symbols.Open")
	defer bi.Close()
	addr, err := bi.LineToPC(protest.FindLine(t, fixture, "tick body"))
	assertNoError(err, t, "LineToPC")
	bpmap := proc.NewBreakpointMap()
	_, err = bpmap.Add(nil, addr)
	assertNoError(err, t, "Add")

	withTestProcessArgs(t, "loop", nil, bpmap, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		for i := 0; i < 3; i++ {
			state, err := proc.Continue(p, bpmap)
			assertNoError(err, t, "Continue")
			stopped := assertStopped(t, state, syscall.SIGTRAP)
			if stopped.PC != addr+1 {
				t.Fatalf("iteration %d: stopped at %#x, expected %#x", i, stopped.PC, addr+1)
			}
		}
		state, err := proc.Continue(p, bpmap)
		assertNoError(err, t, "Continue")
		assertExited(t, state, 0)
	})
}

func TestBreakpointAddedWhileStopped(t *testing.T) {
	withTestProcessArgs(t, "loop", nil, nil, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		bpmap := proc.NewBreakpointMap()
		addr, err := bi.FuncToPC("tick")
		assertNoError(err, t, "FuncToPC")
		bp, err := bpmap.Add(p, addr)
		assertNoError(err, t, "Add")
		if bp.State != proc.BreakpointArmed {
			t.Fatalf("breakpoint not armed: %v", bp)
		}
		state, err := proc.Continue(p, bpmap)
		assertNoError(err, t, "Continue")
		stopped := assertStopped(t, state, syscall.SIGTRAP)
		fn, err := bi.PCToFunc(stopped.PC - 1)
		if err != nil || fn != "tick" {
			t.Fatalf("stopped in %q (%v)", fn, err)
		}
	})
}

func TestStopSignal(t *testing.T) {
	withTestProcessArgs(t, "signals", []string{"segv"}, nil, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		state, err := proc.Continue(p, proc.NewBreakpointMap())
		assertNoError(err, t, "Continue")
		stopped := assertStopped(t, state, syscall.SIGSEGV)
		_, line, err := bi.PCToLine(stopped.PC)
		assertNoError(err, t, "PCToLine")
		if expected := protest.FindLine(t, fixture, "null dereference"); line != expected {
			t.Errorf("stopped on line %d, expected %d", line, expected)
		}
	})
}

func TestKill(t *testing.T) {
	withTestProcessArgs(t, "loop", nil, nil, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		assertNoError(p.Kill(), t, "Kill")
		if !p.Exited() {
			t.Fatal("process not marked as exited")
		}
		// Killing twice is fine.
		assertNoError(p.Kill(), t, "Kill")
		if err := p.Resume(false); !errors.As(err, new(proc.ErrProcessExited)) {
			t.Fatalf("expected ErrProcessExited, got %v", err)
		}
	})
}

func TestReadWriteWord(t *testing.T) {
	withTestProcessArgs(t, "nested", nil, nil, func(p *native.Process, bi *symbols.BinaryInfo, fixture protest.Fixture) {
		addr, err := bi.FuncToPC("main")
		assertNoError(err, t, "FuncToPC")
		aligned := addr &^ 7

		word, err := p.ReadWord(aligned)
		assertNoError(err, t, "ReadWord")
		assertNoError(p.WriteWord(aligned, ^word), t, "WriteWord")
		got, err := p.ReadWord(aligned)
		assertNoError(err, t, "ReadWord")
		if got != ^word {
			t.Fatalf("write not visible: %#x", got)
		}
		assertNoError(p.WriteWord(aligned, word), t, "WriteWord")

		var mae *proc.MemoryAccessError
		if _, err := p.ReadWord(aligned + 1); !errors.As(err, &mae) {
			t.Fatalf("unaligned read: expected MemoryAccessError, got %v", err)
		}
		if _, err := p.ReadWord(0); !errors.As(err, &mae) {
			t.Fatalf("read at 0: expected MemoryAccessError, got %v", err)
		}
	})
}
