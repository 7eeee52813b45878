//go:build linux && amd64
// +build linux,amd64

package native

import (
	"os"
	"runtime"

	"github.com/go-delve/tdb/pkg/logflags"
	"github.com/go-delve/tdb/pkg/proc"
)

// Process represents a process being traced with ptrace. It implements
// proc.Process.
type Process struct {
	pid  int
	arch *proc.Arch

	// process is the handle returned by os/exec, used to reap the child
	// through the standard library when waiting is finished.
	process *os.Process

	// ptrace(2) requests must all come from the thread that started the
	// tracee, see handlePtraceFuncs.
	ptraceChan     chan func()
	ptraceDoneChan chan interface{}

	running bool
	exited  bool

	log logflags.Logger
}

var _ proc.Process = (*Process)(nil)

// newProcess returns an initialized Process struct. Before returning,
// it will also launch a goroutine in order to handle ptrace(2)
// functions. For more information, see the documentation on
// `handlePtraceFuncs`.
func newProcess(pid int) *Process {
	dbp := &Process{
		pid:            pid,
		arch:           proc.AMD64Arch(),
		ptraceChan:     make(chan func()),
		ptraceDoneChan: make(chan interface{}),
		log:            logflags.ProcLogger(),
	}
	go dbp.handlePtraceFuncs()
	return dbp
}

// Pid returns the process ID.
func (dbp *Process) Pid() int {
	return dbp.pid
}

// Arch returns the architecture of the target.
func (dbp *Process) Arch() *proc.Arch {
	return dbp.arch
}

// Exited returns whether the debugged process has exited and was reaped.
func (dbp *Process) Exited() bool {
	return dbp.exited
}

func (dbp *Process) handlePtraceFuncs() {
	// We must ensure here that we are running on the same thread during
	// while invoking the ptrace(2) syscall. This is due to the fact that ptrace(2) expects
	// all commands after PTRACE_TRACEME to come from the thread that forked the tracee.
	runtime.LockOSThread()

	for fn := range dbp.ptraceChan {
		fn()
		dbp.ptraceDoneChan <- nil
	}
}

func (dbp *Process) execPtraceFunc(fn func()) {
	dbp.ptraceChan <- fn
	<-dbp.ptraceDoneChan
}

func (dbp *Process) postExit() {
	if dbp.exited {
		return
	}
	dbp.exited = true
	dbp.running = false
	close(dbp.ptraceChan)
	if dbp.process != nil {
		// The child was already reaped with wait4, this only releases the
		// resources os/exec holds for it.
		dbp.process.Release()
	}
}

// checkStopped returns an error unless the process can be inspected.
func (dbp *Process) checkStopped() error {
	if dbp.exited {
		return proc.ErrProcessExited{Pid: dbp.pid}
	}
	if dbp.running {
		return proc.ErrProcessRunning
	}
	return nil
}
