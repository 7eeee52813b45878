package proc

import (
	"syscall"

	"github.com/go-delve/tdb/pkg/logflags"
)

// Continue resumes p until it stops again, exits or is killed by a
// signal.
//
// If p is stopped on one of the armed breakpoints of bpmap the original
// instruction is executed first: the breakpoint is removed, the program
// counter is rewound to the breakpoint address, a single instruction is
// executed and the breakpoint is written back. This way the instruction
// runs exactly once and the breakpoint stays in place for the next time
// execution reaches it.
func Continue(p Process, bpmap *BreakpointMap) (State, error) {
	if p.Exited() {
		return nil, ErrProcessExited{Pid: p.Pid()}
	}
	pc, err := p.PC()
	if err != nil {
		return nil, err
	}
	if bp, ok := bpmap.TrappedAt(p.Arch(), pc); ok {
		state, err := stepOverBreakpoint(p, bpmap, bp)
		if err != nil || state != nil {
			return state, err
		}
	}
	if err := p.Resume(false); err != nil {
		return nil, err
	}
	return p.Wait()
}

// stepOverBreakpoint executes the instruction bp was written over. It
// returns a nil State if execution can proceed normally, otherwise the
// state the single step ended in.
func stepOverBreakpoint(p Process, bpmap *BreakpointMap, bp *Breakpoint) (State, error) {
	log := logflags.ProcLogger()
	log.Debugf("stepping over breakpoint %d at %#x", bp.ID, bp.Addr)

	if err := bpmap.Disarm(p, bp); err != nil {
		return nil, err
	}
	if err := p.SetPC(bp.Addr); err != nil {
		return nil, err
	}
	if err := p.Resume(true); err != nil {
		return nil, err
	}
	state, err := p.Wait()
	if err != nil {
		return nil, err
	}
	stopped, ok := state.(Stopped)
	if !ok {
		return state, nil
	}
	if err := bpmap.Arm(p, bp); err != nil {
		return nil, err
	}
	if stopped.Signal != syscall.SIGTRAP {
		log.Debugf("single step over %#x interrupted by signal %d", bp.Addr, int(stopped.Signal))
		return stopped, nil
	}
	return nil, nil
}
