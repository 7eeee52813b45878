package proc

// MemoryReader reads machine words from the memory of the target process.
type MemoryReader interface {
	// ReadWord reads the word stored at addr, which must be word aligned.
	ReadWord(addr uint64) (uint64, error)
}

// MemoryReadWriter is a MemoryReader that can also write memory.
type MemoryReadWriter interface {
	MemoryReader
	// WriteWord replaces the word stored at addr, which must be word aligned.
	WriteWord(addr, val uint64) error
}

// Process represents a traced child process.
//
// A Process is either running or stopped. Memory and register access is
// only valid while it is stopped; every call to Resume must be followed by
// a call to Wait before anything else is done with the process.
type Process interface {
	MemoryReadWriter

	Pid() int
	Arch() *Arch

	// PC returns the value of the program counter.
	PC() (uint64, error)
	// BP returns the value of the frame pointer register.
	BP() (uint64, error)
	// SetPC changes the value of the program counter.
	SetPC(pc uint64) error

	// Resume restarts the process. If singlestep is true the process will
	// stop again after executing exactly one instruction.
	Resume(singlestep bool) error
	// Wait blocks until the state of the process changes.
	Wait() (State, error)
	// Kill forcibly terminates the process and reaps it. Killing a
	// process that has already exited is not an error.
	Kill() error
	// Exited returns true once the process has terminated and has been
	// reaped.
	Exited() bool
}
