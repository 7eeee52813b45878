package service

import (
	"github.com/go-delve/tdb/service/api"
)

// Client represents a debugger service client. All client methods are
// synchronous.
type Client interface {
	// Returns the pid of the process we are debugging, 0 if there is none.
	ProcessPid() int

	// Detach kills the process being debugged, if any.
	Detach() error

	// Restart starts the program again with the given arguments and runs
	// it until it stops or exits. A running process is killed first.
	Restart(args []string) (*api.DebuggerState, error)

	// Continue resumes process execution.
	Continue() (*api.DebuggerState, error)

	// CreateBreakpoint creates a new breakpoint at the given location.
	CreateBreakpoint(loc string) (*api.Breakpoint, error)
	// Breakpoints gets all breakpoints, in creation order.
	Breakpoints() []*api.Breakpoint

	// Stacktrace returns the stack of the stopped process, innermost frame
	// first.
	Stacktrace() ([]api.Stackframe, error)
}
