package proc_test

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-delve/tdb/pkg/proc"
)

var errInjected = errors.New("injected failure")

// fakeProcess is an in-memory proc.Process. Wait returns the states in
// waits, in order.
type fakeProcess struct {
	pid    int
	mem    map[uint64]uint64
	pc, bp uint64
	exited bool

	waits   []proc.State
	resumes []resumeRecord

	failWrites bool
}

// resumeRecord captures the state of the process at the time Resume was
// called.
type resumeRecord struct {
	singlestep bool
	pc         uint64
	word       uint64 // word containing pc
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{pid: 100, mem: make(map[uint64]uint64)}
}

func (fp *fakeProcess) Pid() int         { return fp.pid }
func (fp *fakeProcess) Arch() *proc.Arch { return proc.AMD64Arch() }
func (fp *fakeProcess) Exited() bool     { return fp.exited }

func (fp *fakeProcess) ReadWord(addr uint64) (uint64, error) {
	if addr%8 != 0 {
		return 0, &proc.MemoryAccessError{Addr: addr, Err: errors.New("unaligned")}
	}
	v, ok := fp.mem[addr]
	if !ok {
		return 0, &proc.MemoryAccessError{Addr: addr, Err: errInjected}
	}
	return v, nil
}

func (fp *fakeProcess) WriteWord(addr, val uint64) error {
	if addr%8 != 0 {
		return &proc.MemoryAccessError{Addr: addr, Write: true, Err: errors.New("unaligned")}
	}
	if fp.failWrites {
		return &proc.MemoryAccessError{Addr: addr, Write: true, Err: errInjected}
	}
	fp.mem[addr] = val
	return nil
}

func (fp *fakeProcess) PC() (uint64, error) { return fp.pc, nil }
func (fp *fakeProcess) BP() (uint64, error) { return fp.bp, nil }

func (fp *fakeProcess) SetPC(pc uint64) error {
	fp.pc = pc
	return nil
}

func (fp *fakeProcess) Resume(singlestep bool) error {
	if fp.exited {
		return proc.ErrProcessExited{Pid: fp.pid}
	}
	fp.resumes = append(fp.resumes, resumeRecord{singlestep: singlestep, pc: fp.pc, word: fp.mem[fp.pc&^7]})
	return nil
}

func (fp *fakeProcess) Wait() (proc.State, error) {
	if len(fp.waits) == 0 {
		return nil, errors.New("no more scripted states")
	}
	state := fp.waits[0]
	fp.waits = fp.waits[1:]
	switch s := state.(type) {
	case proc.Stopped:
		fp.pc = s.PC
	case proc.Exited, proc.Signaled:
		fp.exited = true
	}
	return state, nil
}

func (fp *fakeProcess) Kill() error {
	fp.exited = true
	return nil
}

// byteAt returns the byte stored at addr.
func (fp *fakeProcess) byteAt(addr uint64) byte {
	return byte(fp.mem[addr&^7] >> (8 * (addr & 7)))
}

func assertNoError(err error, t testing.TB, s string) {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fname := filepath.Base(file)
		t.Fatalf("failed assertion at %s:%d: %s - %s\n", fname, line, s, err)
	}
}
