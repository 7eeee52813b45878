package api

import (
	"github.com/go-delve/tdb/pkg/proc"
)

// ConvertBreakpoint converts an internal breakpoint to an API Breakpoint.
func ConvertBreakpoint(bp *proc.Breakpoint) *Breakpoint {
	return &Breakpoint{
		ID:           bp.ID,
		Addr:         bp.Addr,
		File:         bp.File,
		Line:         bp.Line,
		FunctionName: bp.FunctionName,
		Armed:        bp.State == proc.BreakpointArmed,
	}
}

// ConvertBreakpoints converts a slice of internal breakpoints to API Breakpoints.
func ConvertBreakpoints(bps []*proc.Breakpoint) []*Breakpoint {
	r := make([]*Breakpoint, len(bps))
	for i := range bps {
		r[i] = ConvertBreakpoint(bps[i])
	}
	return r
}

// ConvertStackframes converts frames returned by proc.Stacktrace.
func ConvertStackframes(frames []proc.Stackframe) []Stackframe {
	r := make([]Stackframe, len(frames))
	for i, frame := range frames {
		r[i] = Stackframe{Location{PC: frame.PC, File: frame.File, Line: frame.Line, Function: frame.Function}}
	}
	return r
}
