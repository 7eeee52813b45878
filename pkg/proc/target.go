package proc

import (
	"errors"
	"fmt"
	"syscall"
)

// State describes the outcome of waiting on a traced process. It is one of
// Stopped, Exited or Signaled.
type State interface {
	fmt.Stringer
	isState()
}

// Stopped means the process is stopped and can be inspected.
type Stopped struct {
	Signal syscall.Signal // signal that stopped the process
	PC     uint64         // value of the program counter at the stop
}

// Exited means the process terminated normally.
type Exited struct {
	Status int
}

// Signaled means the process was terminated by a signal.
type Signaled struct {
	Signal syscall.Signal
}

func (Stopped) isState()  {}
func (Exited) isState()   {}
func (Signaled) isState() {}

func (s Stopped) String() string {
	return fmt.Sprintf("stopped by signal %d at %#x", int(s.Signal), s.PC)
}

func (s Exited) String() string {
	return fmt.Sprintf("exited with status %d", s.Status)
}

func (s Signaled) String() string {
	return fmt.Sprintf("killed by signal %d", int(s.Signal))
}

// ErrProcessRunning is returned when an operation that requires a stopped
// process is attempted while the process is running.
var ErrProcessRunning = errors.New("process is running")

// ErrProcessExited indicates that the process has exited.
type ErrProcessExited struct {
	Pid int
}

func (pe ErrProcessExited) Error() string {
	return fmt.Sprintf("process %d has exited", pe.Pid)
}

// LaunchError is returned when a process could not be started or did not
// reach its initial stop.
type LaunchError struct {
	Path string
	Err  error
}

func (le *LaunchError) Error() string {
	return fmt.Sprintf("could not launch process %s: %v", le.Path, le.Err)
}

func (le *LaunchError) Unwrap() error {
	return le.Err
}

// MemoryAccessError is returned when a word of the target's memory could
// not be read or written.
type MemoryAccessError struct {
	Addr  uint64
	Write bool
	Err   error
}

func (mae *MemoryAccessError) Error() string {
	op := "read"
	if mae.Write {
		op = "write"
	}
	return fmt.Sprintf("could not %s memory at %#x: %v", op, mae.Addr, mae.Err)
}

func (mae *MemoryAccessError) Unwrap() error {
	return mae.Err
}

// UnexpectedStatusError is returned when waiting on the process produced a
// notification that is neither a stop, an exit nor a termination by
// signal. The state of the debugging session is undefined afterwards.
type UnexpectedStatusError struct {
	Pid    int
	Status uint32
}

func (use *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected wait status %#x for process %d", use.Status, use.Pid)
}

// SymbolCoverageError is returned when an address the process actually
// reached has no symbol information.
type SymbolCoverageError struct {
	PC  uint64
	Err error
}

func (sce *SymbolCoverageError) Error() string {
	return fmt.Sprintf("no symbol information for %#x: %v", sce.PC, sce.Err)
}

func (sce *SymbolCoverageError) Unwrap() error {
	return sce.Err
}
