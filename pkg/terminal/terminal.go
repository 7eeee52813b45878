package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"

	"github.com/go-delve/tdb/pkg/config"
	"github.com/go-delve/tdb/pkg/logflags"
	"github.com/go-delve/tdb/pkg/proc"
	"github.com/go-delve/tdb/service"
)

const (
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"
)

const (
	ansiBlack   = 30
	ansiBlue    = 34
	ansiWhite   = 37
	ansiBrBlack = 90
	ansiBrWhite = 97
)

// Term represents the terminal running tdb.
type Term struct {
	client   service.Client
	conf     *config.Config
	prompt   string
	line     *liner.State
	cmds     *Commands
	dumb     bool
	stdout   io.Writer
	InitFile string

	log logflags.Logger
}

// New returns a new Term.
func New(client service.Client, conf *config.Config) *Term {
	cmds := DebugCommands(client)
	if conf != nil && conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	if conf == nil {
		conf = &config.Config{}
	}

	var w io.Writer

	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb" || !isTerminal(os.Stdout)
	if dumb {
		w = os.Stdout
	} else {
		w = getColorableWriter()
	}

	if (conf.SourceListLineColor > ansiWhite &&
		conf.SourceListLineColor < ansiBrBlack) ||
		conf.SourceListLineColor < ansiBlack ||
		conf.SourceListLineColor > ansiBrWhite {
		conf.SourceListLineColor = ansiBlue
	}

	return &Term{
		client: client,
		conf:   conf,
		prompt: "(tdb) ",
		line:   liner.NewLiner(),
		cmds:   cmds,
		dumb:   dumb,
		stdout: w,
		log:    logflags.TerminalLogger(),
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	t.line.Close()
}

// sigintGuard keeps SIGINT from terminating the debugger while the
// program runs. The program is in the same process group and receives
// the signal itself, which is then reported as a stop.
func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		t.log.Debugf("received SIGINT")
	}
}

// Run begins running tdb in the terminal.
func (t *Term) Run() (int, error) {
	defer t.Close()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	defer signal.Stop(ch)
	go t.sigintGuard(ch)

	t.line.SetCtrlCAborts(true)
	t.line.SetCompleter(t.cmds.completer())

	fullHistoryFile, err := config.GetConfigFilePath(config.HistoryFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
	}

	f, err := os.Open(fullHistoryFile)
	if err != nil {
		f, err = os.Create(fullHistoryFile)
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.", err)
		}
	}

	if f != nil {
		t.line.ReadHistory(f)
		f.Close()
	}
	fmt.Println("Type 'help' for list of commands.")

	if t.InitFile != "" {
		err := t.cmds.executeFile(t, t.InitFile)
		if err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			if isFatal(err) {
				return 1, err
			}
			fmt.Fprintf(os.Stderr, "Error executing init file: %s\n", err)
		}
	}

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Println("quit")
				return t.handleExit()
			}
			if err == liner.ErrPromptAborted {
				fmt.Println(`Type "quit" to exit`)
				continue
			}
			return 1, fmt.Errorf("Prompt for input failed.\n")
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			if isFatal(err) {
				t.saveHistory()
				return 1, err
			}
			t.printError(err)
		}
	}
}

// isFatal reports whether err leaves the debugging session in an
// undefined state.
func isFatal(err error) bool {
	var use *proc.UnexpectedStatusError
	return errors.As(err, &use)
}

func (t *Term) printError(err error) {
	var sce *proc.SymbolCoverageError
	switch {
	case err == errUnrecognizedCommand:
		fmt.Fprintln(t.stdout, err.Error())
	case errors.As(err, &sce):
		fmt.Fprintf(os.Stderr, "Internal error: %s\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) saveHistory() {
	fullHistoryFile, err := config.GetConfigFilePath(config.HistoryFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
		return
	}
	if f, err := os.OpenFile(fullHistoryFile, os.O_RDWR|os.O_TRUNC, 0666); err == nil {
		_, err = t.line.WriteHistory(f)
		if err != nil {
			fmt.Println("readline history error:", err)
		}
		f.Close()
	}
}

func (t *Term) handleExit() (int, error) {
	t.saveHistory()
	if err := killInferior(t); err != nil {
		return 1, err
	}
	return 0, nil
}

// killInferior kills the process being debugged, if there is one.
func killInferior(t *Term) error {
	pid := t.client.ProcessPid()
	if pid == 0 {
		return nil
	}
	fmt.Fprintf(t.stdout, "Killing running inferior (pid %d)\n", pid)
	return t.client.Detach()
}

// completer completes command names and aliases.
func (c *Commands) completer() liner.Completer {
	tr := trie.New()
	for _, cmd := range c.cmds {
		for _, alias := range cmd.aliases {
			tr.Add(alias, nil)
		}
	}
	return func(line string) []string {
		if strings.ContainsAny(line, " \t") {
			return nil
		}
		return tr.PrefixSearch(line)
	}
}
