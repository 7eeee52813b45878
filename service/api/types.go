package api

// DebuggerState represents the current context of the debugger.
type DebuggerState struct {
	// Pid is the process the state refers to.
	Pid int `json:"pid"`
	// CurrentLocation is where the process is stopped, nil unless the
	// process is stopped.
	CurrentLocation *Location `json:"currentLocation,omitempty"`
	// Breakpoint is the current breakpoint at which the debugged process is
	// suspended, and may be empty if the process is not suspended.
	Breakpoint *Breakpoint `json:"breakPoint,omitempty"`
	// Exited indicates whether the debugged process has exited.
	Exited     bool `json:"exited"`
	ExitStatus int  `json:"exitStatus"`
	// Signaled is true if the process was terminated by Signal.
	Signaled bool `json:"signaled"`
	// Signal is the signal that stopped the process or, if Signaled is
	// set, the one that terminated it.
	Signal     int    `json:"signal"`
	SignalName string `json:"signalName"`
}

// Breakpoint addresses a location at which process execution may be
// suspended.
type Breakpoint struct {
	// ID is a unique identifier for the breakpoint.
	ID int `json:"id"`
	// Addr is the address of the breakpoint.
	Addr uint64 `json:"addr"`
	// File is the source file for the breakpoint.
	File string `json:"file"`
	// Line is a line in File for the breakpoint.
	Line int `json:"line"`
	// FunctionName is the name of the function at the current breakpoint, and
	// may not always be available.
	FunctionName string `json:"functionName,omitempty"`
	// Armed is true if the breakpoint is written into a running process.
	Armed bool `json:"armed"`
}

// Location holds program location information.
type Location struct {
	PC       uint64 `json:"pc"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function,omitempty"`
}

// Stackframe describes one frame in a stack trace.
type Stackframe struct {
	Location
}
