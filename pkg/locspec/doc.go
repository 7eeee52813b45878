// Package locspec implements code to parse a string into a specific
// location specification.
//
// Location spec examples:
//
// locStr ::= *<address> | <line> | <function>
// * *<address> is a hexadecimal address, with or without the 0x prefix
// * <line> is a decimal line number in the source file of the entry function
// * <function> is the name of a function, the location is the end of its prologue
package locspec
