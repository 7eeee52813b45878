package proc

var amd64BreakInstruction = []byte{0xCC}

// amd64TrapPCOffset is one: INT3 is a single byte instruction and the
// trap it raises is reported with RIP pointing past it.
const amd64TrapPCOffset = 1

// AMD64Arch returns an initialized AMD64 struct.
func AMD64Arch() *Arch {
	return &Arch{
		Name:                  "amd64",
		ptrSize:               8,
		breakpointInstruction: amd64BreakInstruction,
		trapPCOffset:          amd64TrapPCOffset,
	}
}
