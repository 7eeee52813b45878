// Package terminal implements functions for responding to user
// input and dispatching to appropriate backend commands.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"

	"github.com/go-delve/tdb/service"
	"github.com/go-delve/tdb/service/api"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the tdb terminal.
type Commands struct {
	cmds   []command
	client service.Client
}

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands(client service.Client) *Commands {
	c := &Commands{client: client}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"break", "b"}, group: breakCmds, cmdFn: breakpoint, helpMsg: `Sets a breakpoint.

	break <location>

Location is one of:

	*<address>	an instruction address in hexadecimal, e.g. *0x401136
	<line>		a line of the source file that defines main
	<function>	the name of a function

Breakpoints set while no program is running are inserted the next time it is started.`},
		{aliases: []string{"breakpoints", "bp"}, group: breakCmds, cmdFn: breakpoints, helpMsg: "Print out info for active breakpoints."},
		{aliases: []string{"run", "r"}, group: runCmds, cmdFn: run, helpMsg: `Starts the program.

	run [args...]

Arguments are split as a shell would. A program that is already running is killed first.`},
		{aliases: []string{"continue", "c", "cont"}, group: runCmds, cmdFn: cont, helpMsg: "Run until breakpoint or program termination."},
		{aliases: []string{"backtrace", "bt", "back"}, group: stackCmds, cmdFn: backtrace, helpMsg: `Print the call stack.

Frames are listed innermost first and end at main.`},
		{aliases: []string{"quit", "q", "exit"}, cmdFn: exitCommand, helpMsg: "Kills the program, if it is running, and exits the debugger."},
	}

	return c
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
// An empty command does nothing.
func (c *Commands) Find(cmdstr string) cmdfunc {
	if cmdstr == "" {
		return nullCommand
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}

	return noCmdAvailable
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	cmdstr = strings.TrimSpace(cmdstr)
	cmdname, args := cmdstr, ""
	if idx := strings.IndexAny(cmdstr, " \t"); idx >= 0 {
		cmdname, args = cmdstr[:idx], strings.TrimSpace(cmdstr[idx+1:])
	}
	return c.Find(cmdname)(t, args)
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

var errUnrecognizedCommand = errors.New("Unrecognized command.")

func noCmdAvailable(t *Term, args string) error {
	return errUnrecognizedCommand
}

func nullCommand(t *Term, args string) error {
	return nil
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		for _, cmd := range c.cmds {
			for _, alias := range cmd.aliases {
				if alias == args {
					fmt.Fprintln(t.stdout, cmd.helpMsg)
					return nil
				}
			}
		}
		return errUnrecognizedCommand
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for _, cgd := range commandGroupDescriptions {
		fmt.Fprintf(t.stdout, "\n%s:\n", cgd.description)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != cgd.group {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func run(t *Term, args string) error {
	newArgv, err := parseNewArgv(args)
	if err != nil {
		return err
	}
	if err := killInferior(t); err != nil {
		fmt.Fprintf(os.Stderr, "Could not kill running inferior: %v\n", err)
	}
	state, err := t.client.Restart(newArgv)
	if state != nil {
		printcontext(t, state)
	}
	return err
}

// parseNewArgv splits the arguments of the run command. Backticks are
// rejected rather than expanded.
func parseNewArgv(args string) ([]string, error) {
	if args == "" {
		return nil, nil
	}
	v, err := argv.Argv(args,
		func(s string) (string, error) {
			return "", fmt.Errorf("Backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal commandline '%s'", args)
	}
	return v[0], nil
}

func cont(t *Term, args string) error {
	state, err := t.client.Continue()
	if state != nil {
		printcontext(t, state)
	}
	return err
}

func breakpoint(t *Term, args string) error {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		return errors.New("not enough arguments")
	case 1:
	default:
		return errors.New("too many arguments")
	}
	bp, err := t.client.CreateBreakpoint(fields[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Set breakpoint %d at %#x\n", bp.ID, bp.Addr)
	return nil
}

func breakpoints(t *Term, args string) error {
	for _, bp := range t.client.Breakpoints() {
		state := "pending"
		if bp.Armed {
			state = "armed"
		}
		loc := "?"
		if bp.File != "" {
			loc = fmt.Sprintf("%s:%d", bp.File, bp.Line)
		}
		if bp.FunctionName != "" {
			fmt.Fprintf(t.stdout, "Breakpoint %d at %#x for %s() %s (%s)\n", bp.ID, bp.Addr, bp.FunctionName, loc, state)
		} else {
			fmt.Fprintf(t.stdout, "Breakpoint %d at %#x %s (%s)\n", bp.ID, bp.Addr, loc, state)
		}
	}
	return nil
}

func backtrace(t *Term, args string) error {
	stack, err := t.client.Stacktrace()
	printStack(t, t.stdout, stack, "")
	return err
}

func digits(n int) int {
	if n <= 0 {
		return 1
	}
	return int(math.Floor(math.Log10(float64(n)))) + 1
}

func printStack(t *Term, out io.Writer, stack []api.Stackframe, ind string) {
	if len(stack) == 0 {
		return
	}

	d := digits(len(stack) - 1)
	fmtstr := "%s%" + strconv.Itoa(d) + "d  0x%016x in %s\n"
	s := ind + strings.Repeat(" ", d+2+len(ind))

	for i := range stack {
		fmt.Fprintf(out, fmtstr, ind, i, stack[i].PC, stack[i].Function)
		fmt.Fprintf(out, "%sat %s\n", s, t.formatLine(stack[i].File, stack[i].Line))
	}
}

// printcontext reports the state the program is in after it ran.
func printcontext(t *Term, state *api.DebuggerState) {
	if state.Exited {
		if state.Signaled {
			fmt.Fprintf(t.stdout, "Child exited (signal %s)\n", state.SignalName)
		} else {
			fmt.Fprintf(t.stdout, "Child exited (status %d)\n", state.ExitStatus)
		}
		return
	}

	fmt.Fprintf(t.stdout, "Child stopped (signal %s)\n", state.SignalName)
	if state.CurrentLocation == nil {
		return
	}
	loc := state.CurrentLocation
	if loc.Function != "" {
		fmt.Fprintf(t.stdout, "Stopped at %s() %s (PC: %#x)\n", loc.Function, t.formatLine(loc.File, loc.Line), loc.PC)
	} else {
		fmt.Fprintf(t.stdout, "Stopped at %s (PC: %#x)\n", t.formatLine(loc.File, loc.Line), loc.PC)
	}
}

// formatLine formats a source position, highlighting the line number
// when the output supports colors.
func (t *Term) formatLine(file string, line int) string {
	lineno := strconv.Itoa(line)
	if !t.dumb {
		lineno = fmt.Sprintf(terminalHighlightEscapeCode, t.conf.SourceListLineColor) + lineno + terminalResetEscapeCode
	}
	return file + ":" + lineno
}

// ExitRequestError is returned when the user
// exits tdb.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}

func (c *Commands) executeFile(t *Term, name string) error {
	fh, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	lineno := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineno++

		if line == "" || line[0] == '#' {
			continue
		}

		if err := c.Call(line, t); err != nil {
			if _, isExitRequest := err.(ExitRequestError); isExitRequest {
				return err
			}
			if isFatal(err) {
				return err
			}
			fmt.Fprintf(t.stdout, "%s:%d: %v\n", name, lineno, err)
		}
	}

	return scanner.Err()
}
