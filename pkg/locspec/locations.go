package locspec

import (
	"fmt"
	"strconv"
	"strings"
)

// SymbolTable resolves source locations to addresses.
type SymbolTable interface {
	LineToPC(line int) (uint64, error)
	FuncToPC(name string) (uint64, error)
}

// LocationSpec is an interface that represents a parsed location spec string.
type LocationSpec interface {
	// Find returns the address the location spec refers to.
	Find(st SymbolTable) (uint64, error)
}

// AddrLocationSpec represents an address when used
// as a location spec.
type AddrLocationSpec struct {
	Addr uint64
}

// LineLocationSpec represents a line number in the source file of the
// entry function.
type LineLocationSpec struct {
	Line int
}

// FuncLocationSpec represents a function in the target program.
type FuncLocationSpec struct {
	BaseName string
}

// InvalidLocationError is returned when a location spec can not be parsed.
type InvalidLocationError struct {
	LocStr string
	Reason string
}

func (e *InvalidLocationError) Error() string {
	//lint:ignore ST1005 backwards compatibility
	return fmt.Sprintf("Malformed breakpoint location %q: %s", e.LocStr, e.Reason)
}

// LocationNotFoundError is returned when a location spec could be parsed
// but does not refer to any code.
type LocationNotFoundError struct {
	What   string // "line" or "function"
	LocStr string
	Err    error
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("could not find %s %s: %v", e.What, e.LocStr, e.Err)
}

func (e *LocationNotFoundError) Unwrap() error {
	return e.Err
}

// Parse will turn locStr into a parsed LocationSpec.
func Parse(locStr string) (LocationSpec, error) {
	malformed := func(reason string) error {
		return &InvalidLocationError{LocStr: locStr, Reason: reason}
	}

	if len(locStr) <= 0 {
		return nil, malformed("empty string")
	}

	if locStr[0] == '*' {
		addr, err := parseAddress(locStr[1:])
		if err != nil {
			return nil, malformed("invalid address")
		}
		return &AddrLocationSpec{Addr: addr}, nil
	}

	if n, err := strconv.ParseUint(locStr, 10, 64); err == nil {
		if n == 0 || n > uint64(^uint(0)>>1) {
			return nil, malformed("line number out of range")
		}
		return &LineLocationSpec{Line: int(n)}, nil
	}

	return &FuncLocationSpec{BaseName: locStr}, nil
}

func parseAddress(s string) (uint64, error) {
	if len(s) >= 2 && strings.EqualFold(s[:2], "0x") {
		s = s[2:]
	}
	return strconv.ParseUint(s, 16, 64)
}

// Find returns the address itself, addresses are not checked against the
// symbol table.
func (loc *AddrLocationSpec) Find(SymbolTable) (uint64, error) {
	return loc.Addr, nil
}

// Find returns the lowest address generated for the line.
func (loc *LineLocationSpec) Find(st SymbolTable) (uint64, error) {
	pc, err := st.LineToPC(loc.Line)
	if err != nil {
		return 0, &LocationNotFoundError{What: "line", LocStr: strconv.Itoa(loc.Line), Err: err}
	}
	return pc, nil
}

// Find returns the address of the first instruction after the prologue of
// the function.
func (loc *FuncLocationSpec) Find(st SymbolTable) (uint64, error) {
	pc, err := st.FuncToPC(loc.BaseName)
	if err != nil {
		return 0, &LocationNotFoundError{What: "function", LocStr: loc.BaseName, Err: err}
	}
	return pc, nil
}
