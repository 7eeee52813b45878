// Package proc is a low-level package that provides methods to manipulate
// the process we are debugging.
//
// proc implements the core functionality of the debugger:
// * the contract a traced process backend must satisfy (see Process)
// * software breakpoints and the protocol used to step over them
// * frame pointer based stack unwinding
//
// Concrete backends live in subpackages (see pkg/proc/native).
package proc
