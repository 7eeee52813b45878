package debugger

import (
	"errors"
	"sync"
	"syscall"

	"github.com/go-delve/tdb/pkg/locspec"
	"github.com/go-delve/tdb/pkg/logflags"
	"github.com/go-delve/tdb/pkg/proc"
	"github.com/go-delve/tdb/pkg/proc/native"
	"github.com/go-delve/tdb/service/api"
)

// DefaultEntryFunction is the function stack traces stop at when the
// configuration does not name one.
const DefaultEntryFunction = "main"

// ErrNoProcess is returned by operations that need a live process when
// none is running.
var ErrNoProcess = errors.New("no process is running")

// ErrNotExecutable is returned when the target is not an executable the
// debugger can run.
var ErrNotExecutable = errors.New("not an executable file")

// Symbols is the symbol table of the program being debugged.
type Symbols interface {
	proc.SymbolLookup
	locspec.SymbolTable
}

// LaunchFunc starts cmd stopped at its first instruction, with every
// breakpoint of bpmap armed.
type LaunchFunc func(cmd []string, wd string, bpmap *proc.BreakpointMap) (proc.Process, error)

// Debugger service.
//
// Debugger provides a higher level of
// abstraction over proc.Process.
// It handles converting from internal types to
// the types expected by clients. It also handles
// functionality needed by clients, but not needed in
// lower lever packages such as proc.
type Debugger struct {
	config *Config
	// arguments to launch a new process.
	processArgs []string

	processMutex sync.Mutex
	// target is the live process, nil if there is none. It is only
	// changed by setTarget.
	target      proc.Process
	breakpoints *proc.BreakpointMap
	// trapped is the breakpoint the target is stopped at, if any.
	trapped *proc.Breakpoint

	bi  Symbols
	log logflags.Logger
}

// Config provides the configuration to start a Debugger.
type Config struct {
	// WorkingDir is working directory of the new process.
	WorkingDir string

	// EntryFunction is where stack traces end, defaults to
	// DefaultEntryFunction.
	EntryFunction string

	// MaxStackDepth bounds the number of frames of a stack trace, defaults
	// to proc.DefaultMaxStackDepth.
	MaxStackDepth int

	// Launch starts new processes, defaults to the native backend.
	Launch LaunchFunc
}

// New creates a new Debugger. ProcessArgs specify the commandline arguments for the
// new process, no process is started until Restart is called.
func New(config *Config, processArgs []string, bi Symbols) (*Debugger, error) {
	if len(processArgs) == 0 {
		return nil, errors.New("no executable specified")
	}
	if config.EntryFunction == "" {
		config.EntryFunction = DefaultEntryFunction
	}
	if config.MaxStackDepth <= 0 {
		config.MaxStackDepth = proc.DefaultMaxStackDepth
	}
	if config.Launch == nil {
		config.Launch = nativeLaunch
	}
	return &Debugger{
		config:      config,
		processArgs: processArgs,
		breakpoints: proc.NewBreakpointMap(),
		bi:          bi,
		log:         logflags.DebuggerLogger(),
	}, nil
}

func nativeLaunch(cmd []string, wd string, bpmap *proc.BreakpointMap) (proc.Process, error) {
	if err := verifyBinaryFormat(cmd[0]); err != nil {
		return nil, &proc.LaunchError{Path: cmd[0], Err: err}
	}
	p, err := native.Launch(cmd, wd, bpmap)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ProcessPid returns the PID of the process
// the debugger is debugging, 0 if there is none.
func (d *Debugger) ProcessPid() int {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()
	if d.target == nil {
		return 0
	}
	return d.target.Pid()
}

// setTarget replaces the live process with p, which may be nil. The
// previous process is killed and reaped first; a failure to kill it is
// returned but does not prevent the replacement.
func (d *Debugger) setTarget(p proc.Process) error {
	var err error
	if d.target != nil && !d.target.Exited() {
		d.log.Infof("killing process %d", d.target.Pid())
		err = d.target.Kill()
	}
	if d.target != nil {
		d.breakpoints.ResetAll()
	}
	d.target = p
	d.trapped = nil
	return err
}

// Detach kills the process being debugged, if there is one.
func (d *Debugger) Detach() error {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()

	return d.setTarget(nil)
}

// Restart will restart the target process, first killing
// and then exec'ing it again with newArgs as its arguments. The new
// process is resumed until it stops or exits.
func (d *Debugger) Restart(newArgs []string) (*api.DebuggerState, error) {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()

	if err := d.setTarget(nil); err != nil {
		d.log.Errorf("could not kill process: %v", err)
	}
	d.processArgs = append([]string{d.processArgs[0]}, newArgs...)

	d.log.Infof("launching process with args: %v", d.processArgs)
	p, err := d.config.Launch(d.processArgs, d.config.WorkingDir, d.breakpoints)
	if err != nil {
		d.breakpoints.ResetAll()
		var le *proc.LaunchError
		if !errors.As(err, &le) {
			err = &proc.LaunchError{Path: d.processArgs[0], Err: err}
		}
		return nil, err
	}
	d.setTarget(p)
	return d.continueProcess()
}

// Continue resumes the process until it stops, exits or is killed.
func (d *Debugger) Continue() (*api.DebuggerState, error) {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()

	return d.continueProcess()
}

func (d *Debugger) continueProcess() (*api.DebuggerState, error) {
	if d.target == nil {
		return nil, ErrNoProcess
	}
	d.trapped = nil
	state, err := proc.Continue(d.target, d.breakpoints)
	if err != nil {
		d.log.Errorf("continue failed: %v", err)
		return nil, err
	}
	return d.convertState(state)
}

// convertState reports state to clients. A process that exited or was
// killed leaves the process slot.
func (d *Debugger) convertState(state proc.State) (*api.DebuggerState, error) {
	s := &api.DebuggerState{Pid: d.target.Pid()}
	switch st := state.(type) {
	case proc.Exited:
		s.Exited = true
		s.ExitStatus = st.Status
		d.setTarget(nil)
	case proc.Signaled:
		s.Exited = true
		s.Signaled = true
		s.Signal = int(st.Signal)
		s.SignalName = signalName(st.Signal)
		d.setTarget(nil)
	case proc.Stopped:
		s.Signal = int(st.Signal)
		s.SignalName = signalName(st.Signal)
		pc := st.PC
		if st.Signal == syscall.SIGTRAP {
			if bp, ok := d.breakpoints.TrappedAt(d.target.Arch(), pc); ok {
				d.trapped = bp
				pc = bp.Addr
				s.Breakpoint = api.ConvertBreakpoint(bp)
			}
		}
		loc, err := d.location(pc)
		if err != nil {
			return s, err
		}
		s.CurrentLocation = &loc
	}
	return s, nil
}

// location resolves pc. Only the source line is required: code without a
// function entry, such as PLT stubs, is still reported.
func (d *Debugger) location(pc uint64) (api.Location, error) {
	file, line, err := d.bi.PCToLine(pc)
	if err != nil {
		return api.Location{PC: pc}, &proc.SymbolCoverageError{PC: pc, Err: err}
	}
	fn, _ := d.bi.PCToFunc(pc)
	return api.Location{PC: pc, File: file, Line: line, Function: fn}, nil
}

// Stacktrace returns the frames of the stopped process, innermost first.
// If the frame pointer chain is broken the frames read so far are returned
// together with the error.
func (d *Debugger) Stacktrace() ([]api.Stackframe, error) {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()

	if d.target == nil {
		return nil, ErrNoProcess
	}
	pc, err := d.target.PC()
	if err != nil {
		return nil, err
	}
	if d.trapped != nil {
		pc = d.trapped.Addr
	}
	bp, err := d.target.BP()
	if err != nil {
		return nil, err
	}
	frames, err := proc.Stacktrace(d.target, d.bi, pc, bp, d.config.EntryFunction, d.config.MaxStackDepth)
	return api.ConvertStackframes(frames), err
}

// CreateBreakpoint creates a breakpoint at the location described by
// locStr. If a process is running the breakpoint is armed immediately.
func (d *Debugger) CreateBreakpoint(locStr string) (*api.Breakpoint, error) {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()

	spec, err := locspec.Parse(locStr)
	if err != nil {
		return nil, err
	}
	addr, err := spec.Find(d.bi)
	if err != nil {
		return nil, err
	}
	var p proc.Process
	if d.target != nil {
		p = d.target
	}
	bp, err := d.breakpoints.Add(p, addr)
	if err != nil {
		return nil, err
	}
	if file, line, err := d.bi.PCToLine(addr); err == nil {
		bp.File, bp.Line = file, line
	}
	if fn, err := d.bi.PCToFunc(addr); err == nil {
		bp.FunctionName = fn
	}
	d.log.Infof("created breakpoint: %s", bp)
	return api.ConvertBreakpoint(bp), nil
}

// Breakpoints returns the list of current breakpoints.
func (d *Debugger) Breakpoints() []*api.Breakpoint {
	d.processMutex.Lock()
	defer d.processMutex.Unlock()
	return api.ConvertBreakpoints(d.breakpoints.Sorted())
}
