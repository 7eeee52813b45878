package proc

import (
	"errors"
	"fmt"
)

// DefaultMaxStackDepth is the number of frames after which Stacktrace
// gives up on a frame pointer chain.
const DefaultMaxStackDepth = 1024

// ErrNilFramePointer is returned when the frame pointer chain reaches a
// zero frame pointer before the entry function.
var ErrNilFramePointer = errors.New("frame pointer chain ended before the entry function")

// ErrStackTooDeep is returned when the frame pointer chain is longer than
// the maximum stack depth.
var ErrStackTooDeep = errors.New("stack too deep")

// SymbolLookup maps addresses to source positions and function names.
type SymbolLookup interface {
	PCToLine(pc uint64) (string, int, error)
	PCToFunc(pc uint64) (string, error)
}

// Stackframe represents a frame in a system stack.
type Stackframe struct {
	PC       uint64
	Function string
	File     string
	Line     int
}

// StackChainError is returned when the frame pointer chain could not be
// followed. Depth is the number of frames read before the failure.
type StackChainError struct {
	Depth int
	Err   error
}

func (sce *StackChainError) Error() string {
	return fmt.Sprintf("could not unwind frame %d: %v", sce.Depth, sce.Err)
}

func (sce *StackChainError) Unwrap() error {
	return sce.Err
}

// Stacktrace unwinds the stack of a stopped process starting at the given
// program counter and frame pointer. Frames are returned innermost first
// and the walk ends, inclusively, at the first frame belonging to entryFn.
//
// Each frame is assumed to start with the saved frame pointer of the
// caller followed by the return address. If the chain can not be followed
// to entryFn the frames read so far are returned along with a
// *StackChainError.
func Stacktrace(mem MemoryReader, bi SymbolLookup, pc, bp uint64, entryFn string, depth int) ([]Stackframe, error) {
	if depth <= 0 {
		depth = DefaultMaxStackDepth
	}
	it := newStackIterator(mem, bi, pc, bp, entryFn)
	return it.stacktrace(depth)
}

type stackIterator struct {
	pc, bp  uint64
	top     bool
	atend   bool
	depth   int
	frame   Stackframe
	mem     MemoryReader
	bi      SymbolLookup
	entryFn string
	err     error
}

func newStackIterator(mem MemoryReader, bi SymbolLookup, pc, bp uint64, entryFn string) *stackIterator {
	return &stackIterator{pc: pc, bp: bp, top: true, mem: mem, bi: bi, entryFn: entryFn}
}

// Next points the iterator to the next stack frame.
func (it *stackIterator) Next() bool {
	if it.err != nil || it.atend {
		return false
	}
	if !it.top {
		if err := it.advance(); err != nil {
			it.err = &StackChainError{Depth: it.depth, Err: err}
			return false
		}
	}
	// The return address of a call frame can belong to the line after the
	// call, so it is resolved one byte back.
	lookupPC := it.pc
	if !it.top {
		lookupPC--
	}
	it.top = false

	fn, err := it.bi.PCToFunc(lookupPC)
	if err != nil {
		it.err = &SymbolCoverageError{PC: it.pc, Err: err}
		return false
	}
	file, line, err := it.bi.PCToLine(lookupPC)
	if err != nil {
		it.err = &SymbolCoverageError{PC: it.pc, Err: err}
		return false
	}
	it.frame = Stackframe{PC: it.pc, Function: fn, File: file, Line: line}
	it.depth++
	if fn == it.entryFn {
		it.atend = true
	}
	return true
}

// advance moves to the caller of the current frame.
func (it *stackIterator) advance() error {
	if it.bp == 0 {
		return ErrNilFramePointer
	}
	ret, err := it.mem.ReadWord(it.bp + wordSize)
	if err != nil {
		return err
	}
	bp, err := it.mem.ReadWord(it.bp)
	if err != nil {
		return err
	}
	it.pc, it.bp = ret, bp
	return nil
}

// Frame returns the frame the iterator is pointing at.
func (it *stackIterator) Frame() Stackframe {
	return it.frame
}

// Err returns the error encountered during stack iteration.
func (it *stackIterator) Err() error {
	return it.err
}

func (it *stackIterator) stacktrace(depth int) ([]Stackframe, error) {
	frames := make([]Stackframe, 0, 8)
	for it.Next() {
		frames = append(frames, it.Frame())
		if len(frames) >= depth && !it.atend {
			return frames, &StackChainError{Depth: len(frames), Err: ErrStackTooDeep}
		}
	}
	return frames, it.Err()
}
