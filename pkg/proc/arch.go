package proc

// Arch describes the properties of a CPU architecture that the breakpoint
// and stack unwinding code depends on.
type Arch struct {
	Name string // architecture name

	ptrSize               int
	breakpointInstruction []byte
	// trapPCOffset is the distance between the address of a breakpoint
	// instruction and the value of the program counter after the trap
	// raised by executing it has been delivered.
	trapPCOffset uint64
}

// PtrSize returns the size of a pointer for the architecture.
func (a *Arch) PtrSize() int {
	return a.ptrSize
}

// BreakpointInstruction is the instruction that will trigger a breakpoint trap for
// the given architecture.
func (a *Arch) BreakpointInstruction() []byte {
	return a.breakpointInstruction
}

// BreakpointSize is the size of the breakpoint instruction for the given architecture.
func (a *Arch) BreakpointSize() int {
	return len(a.breakpointInstruction)
}

// BreakpointPCOffset returns how far past the breakpoint address the
// program counter is left after the breakpoint instruction traps.
func (a *Arch) BreakpointPCOffset() uint64 {
	return a.trapPCOffset
}
