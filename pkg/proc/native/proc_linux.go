//go:build linux && amd64
// +build linux,amd64

package native

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	sys "golang.org/x/sys/unix"

	"github.com/go-delve/tdb/pkg/proc"
)

// Launch creates and begins debugging a new process. First entry in
// `cmd` is the program to run, and then rest are the arguments
// to be supplied to that process. `wd` is working directory of the program.
//
// The process shares the standard streams of the debugger and is returned
// stopped on its first instruction, with every breakpoint of bpmap armed.
func Launch(cmd []string, wd string, bpmap *proc.BreakpointMap) (*Process, error) {
	if len(cmd) == 0 {
		return nil, &proc.LaunchError{Err: errors.New("no command")}
	}
	var (
		process *exec.Cmd
		err     error
	)

	dbp := newProcess(0)
	dbp.execPtraceFunc(func() {
		process = exec.Command(cmd[0])
		process.Args = cmd
		process.Stdin = os.Stdin
		process.Stdout = os.Stdout
		process.Stderr = os.Stderr
		process.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
		if wd != "" {
			process.Dir = wd
		}
		err = process.Start()
	})
	if err != nil {
		close(dbp.ptraceChan)
		return nil, &proc.LaunchError{Path: cmd[0], Err: err}
	}
	dbp.pid = process.Process.Pid
	dbp.process = process.Process
	dbp.running = true
	dbp.log = dbp.log.WithField("pid", dbp.pid)

	state, err := dbp.Wait()
	if err != nil {
		return nil, dbp.abortLaunch(cmd[0], errors.Wrap(err, "waiting for target execve failed"))
	}
	if stopped, ok := state.(proc.Stopped); !ok || stopped.Signal != syscall.SIGTRAP {
		return nil, dbp.abortLaunch(cmd[0], fmt.Errorf("unexpected initial state: %v", state))
	}
	dbp.log.Debugf("launched %q", cmd)

	if bpmap != nil {
		if err := bpmap.ArmAll(dbp); err != nil {
			return nil, dbp.abortLaunch(cmd[0], err)
		}
	}
	return dbp, nil
}

// abortLaunch kills a process that could not be brought to its initial
// state and returns the error to report for the launch.
func (dbp *Process) abortLaunch(path string, err error) error {
	var result *multierror.Error
	result = multierror.Append(result, err)
	if kerr := dbp.Kill(); kerr != nil {
		result = multierror.Append(result, errors.Wrap(kerr, "could not kill process"))
	}
	return &proc.LaunchError{Path: path, Err: result.ErrorOrNil()}
}

// Resume restarts the stopped process, for exactly one instruction if
// singlestep is set.
func (dbp *Process) Resume(singlestep bool) error {
	if err := dbp.checkStopped(); err != nil {
		return err
	}
	var err error
	dbp.execPtraceFunc(func() {
		if singlestep {
			err = ptraceSingleStep(dbp.pid, 0)
		} else {
			err = ptraceCont(dbp.pid, 0)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "could not resume process %d", dbp.pid)
	}
	dbp.running = true
	return nil
}

// Wait blocks until the process stops, exits or is killed by a signal.
func (dbp *Process) Wait() (proc.State, error) {
	if dbp.exited {
		return nil, proc.ErrProcessExited{Pid: dbp.pid}
	}
	status, err := dbp.wait()
	if err != nil {
		return nil, err
	}
	switch {
	case status.Exited():
		dbp.log.Debugf("exited with status %d", status.ExitStatus())
		dbp.postExit()
		return proc.Exited{Status: status.ExitStatus()}, nil
	case status.Signaled():
		dbp.log.Debugf("killed by signal %v", status.Signal())
		dbp.postExit()
		return proc.Signaled{Signal: status.Signal()}, nil
	case status.Stopped():
		dbp.running = false
		pc, err := dbp.PC()
		if err != nil {
			return nil, err
		}
		dbp.log.Debugf("stopped by signal %v at %#x", status.StopSignal(), pc)
		return proc.Stopped{Signal: status.StopSignal(), PC: pc}, nil
	}
	return nil, &proc.UnexpectedStatusError{Pid: dbp.pid, Status: uint32(status)}
}

// wait calls wait4 until it returns something other than EINTR.
func (dbp *Process) wait() (sys.WaitStatus, error) {
	var s sys.WaitStatus
	for {
		wpid, err := sys.Wait4(dbp.pid, &s, sys.WALL, nil)
		if err == sys.EINTR {
			continue
		}
		if err != nil {
			return 0, errors.Wrapf(err, "wait4 on process %d failed", dbp.pid)
		}
		if wpid != dbp.pid {
			continue
		}
		return s, nil
	}
}

// Kill kills the target process and reaps it.
func (dbp *Process) Kill() error {
	if dbp.exited {
		return nil
	}
	if err := sys.Kill(dbp.pid, sys.SIGKILL); err != nil && err != sys.ESRCH {
		return errors.New("could not deliver signal " + err.Error())
	}
	for {
		var s sys.WaitStatus
		_, err := sys.Wait4(dbp.pid, &s, sys.WALL, nil)
		if err == sys.EINTR {
			continue
		}
		if err == sys.ECHILD {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "could not reap process %d", dbp.pid)
		}
		if s.Exited() || s.Signaled() {
			break
		}
	}
	dbp.postExit()
	return nil
}

// ReadWord reads the word at addr from the memory of the stopped process.
func (dbp *Process) ReadWord(addr uint64) (uint64, error) {
	if err := dbp.checkStopped(); err != nil {
		return 0, err
	}
	if err := dbp.checkAligned(addr); err != nil {
		return 0, &proc.MemoryAccessError{Addr: addr, Err: err}
	}
	var (
		val uint64
		err error
	)
	dbp.execPtraceFunc(func() { val, err = ptracePeekWord(dbp.pid, addr) })
	if err != nil {
		return 0, &proc.MemoryAccessError{Addr: addr, Err: err}
	}
	return val, nil
}

// WriteWord writes val at addr in the memory of the stopped process.
func (dbp *Process) WriteWord(addr, val uint64) error {
	if err := dbp.checkStopped(); err != nil {
		return err
	}
	if err := dbp.checkAligned(addr); err != nil {
		return &proc.MemoryAccessError{Addr: addr, Write: true, Err: err}
	}
	var err error
	dbp.execPtraceFunc(func() { err = ptracePokeWord(dbp.pid, addr, val) })
	if err != nil {
		return &proc.MemoryAccessError{Addr: addr, Write: true, Err: err}
	}
	return nil
}

var errUnaligned = errors.New("address is not word aligned")

func (dbp *Process) checkAligned(addr uint64) error {
	if addr%uint64(dbp.arch.PtrSize()) != 0 {
		return errUnaligned
	}
	return nil
}
