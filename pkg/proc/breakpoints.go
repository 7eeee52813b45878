package proc

import (
	"errors"
	"fmt"
	"sort"
)

// BreakpointState describes whether a breakpoint is currently patched into
// the memory of the target process.
type BreakpointState uint8

const (
	// BreakpointPending is a breakpoint that is recorded but not written
	// into any process, either because no process is running or because it
	// was temporarily removed to step over it.
	BreakpointPending BreakpointState = iota
	// BreakpointArmed is a breakpoint whose trap instruction is written
	// into the target; OriginalData holds the byte it replaced.
	BreakpointArmed
)

func (s BreakpointState) String() string {
	switch s {
	case BreakpointPending:
		return "pending"
	case BreakpointArmed:
		return "armed"
	}
	return fmt.Sprintf("BreakpointState(%d)", uint8(s))
}

// Breakpoint represents a software breakpoint. Stores information on the
// break point including the byte of data that originally was stored at
// that address.
type Breakpoint struct {
	ID    int
	Addr  uint64 // Address breakpoint is set for.
	State BreakpointState

	// OriginalData is the byte replaced by the breakpoint instruction.
	// Only meaningful while State is BreakpointArmed.
	OriginalData byte

	// File & line information for printing.
	FunctionName string
	File         string
	Line         int
}

func (bp *Breakpoint) String() string {
	return fmt.Sprintf("Breakpoint %d at %#x %s:%d (%s)", bp.ID, bp.Addr, bp.File, bp.Line, bp.State)
}

// BreakpointExistsError is returned when trying to set a breakpoint at
// an address that already has a breakpoint set for it.
type BreakpointExistsError struct {
	Addr uint64
}

func (bpe BreakpointExistsError) Error() string {
	return fmt.Sprintf("Breakpoint exists at %#x", bpe.Addr)
}

var errBreakpointArmed = errors.New("breakpoint is already armed")

// BreakpointMap represents the breakpoints of the debugging session, keyed
// by address. Breakpoints outlive the processes they are written into.
type BreakpointMap struct {
	M map[uint64]*Breakpoint

	breakpointIDCounter int
}

// NewBreakpointMap creates a new BreakpointMap.
func NewBreakpointMap() *BreakpointMap {
	return &BreakpointMap{
		M: make(map[uint64]*Breakpoint),
	}
}

// Len returns the number of breakpoints.
func (bpmap *BreakpointMap) Len() int {
	return len(bpmap.M)
}

// Find returns the breakpoint set at addr.
func (bpmap *BreakpointMap) Find(addr uint64) (*Breakpoint, bool) {
	bp, ok := bpmap.M[addr]
	return bp, ok
}

// Sorted returns the breakpoints in the order they were created.
func (bpmap *BreakpointMap) Sorted() []*Breakpoint {
	r := make([]*Breakpoint, 0, len(bpmap.M))
	for _, bp := range bpmap.M {
		r = append(r, bp)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// Add creates a breakpoint at addr. If p is not nil the breakpoint is
// armed in p before being recorded, and nothing is recorded if arming
// fails. Otherwise the breakpoint is recorded as pending and will be armed
// by ArmAll when the next process starts.
func (bpmap *BreakpointMap) Add(p Process, addr uint64) (*Breakpoint, error) {
	if _, exists := bpmap.M[addr]; exists {
		return nil, BreakpointExistsError{Addr: addr}
	}
	bp := &Breakpoint{ID: bpmap.breakpointIDCounter, Addr: addr, State: BreakpointPending}
	if p != nil && !p.Exited() {
		if err := bpmap.arm(p, bp); err != nil {
			return nil, err
		}
	}
	bpmap.breakpointIDCounter++
	bpmap.M[addr] = bp
	return bp, nil
}

// Arm writes the breakpoint instruction at the address of bp.
func (bpmap *BreakpointMap) Arm(p Process, bp *Breakpoint) error {
	if bp.State == BreakpointArmed {
		return errBreakpointArmed
	}
	return bpmap.arm(p, bp)
}

func (bpmap *BreakpointMap) arm(p Process, bp *Breakpoint) error {
	orig, err := PatchByte(p, bp.Addr, p.Arch().BreakpointInstruction()[0])
	if err != nil {
		return err
	}
	bp.OriginalData = orig
	bp.State = BreakpointArmed
	return nil
}

// Disarm restores the original instruction byte at the address of bp.
func (bpmap *BreakpointMap) Disarm(p Process, bp *Breakpoint) error {
	if bp.State != BreakpointArmed {
		return nil
	}
	if _, err := PatchByte(p, bp.Addr, bp.OriginalData); err != nil {
		return err
	}
	bp.State = BreakpointPending
	return nil
}

// ArmAll arms every breakpoint in p, which must be a freshly started
// process: the byte displaced by each breakpoint is read again regardless
// of the state left behind by previous processes.
func (bpmap *BreakpointMap) ArmAll(p Process) error {
	for _, bp := range bpmap.Sorted() {
		if err := bpmap.arm(p, bp); err != nil {
			return fmt.Errorf("could not set breakpoint %d at %#x: %w", bp.ID, bp.Addr, err)
		}
	}
	return nil
}

// ResetAll marks every breakpoint as pending. It must be called when the
// process the breakpoints were written into goes away.
func (bpmap *BreakpointMap) ResetAll() {
	for _, bp := range bpmap.M {
		bp.State = BreakpointPending
		bp.OriginalData = 0
	}
}

// TrappedAt returns the armed breakpoint whose trap leaves the program
// counter at pc, if any.
func (bpmap *BreakpointMap) TrappedAt(arch *Arch, pc uint64) (*Breakpoint, bool) {
	off := arch.BreakpointPCOffset()
	if pc < off {
		return nil, false
	}
	bp, ok := bpmap.M[pc-off]
	if !ok || bp.State != BreakpointArmed {
		return nil, false
	}
	return bp, true
}
