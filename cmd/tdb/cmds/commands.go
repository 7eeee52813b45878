package cmds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-delve/tdb/cmd/tdb/cmds/helphelpers"
	"github.com/go-delve/tdb/pkg/config"
	"github.com/go-delve/tdb/pkg/logflags"
	"github.com/go-delve/tdb/pkg/symbols"
	"github.com/go-delve/tdb/pkg/terminal"
	"github.com/go-delve/tdb/pkg/version"
	"github.com/go-delve/tdb/service"
	"github.com/go-delve/tdb/service/debugger"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// initFile is the path to initialization file.
	initFile string
	// workingDir is the working directory for running the program.
	workingDir string
	// verbose makes the version command print build information.
	verbose bool

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

var _ service.Client = (*debugger.Debugger)(nil)

const tdbCommandLongDesc = `tdb is a source level debugger for C programs on Linux/amd64.

tdb starts the executable under its control when the 'run' command is
issued, stops it at breakpoints and prints its call stack. The executable
must contain DWARF debugging information and keep frame pointers, for
example by compiling it with:

	cc -g -O0 -fno-omit-frame-pointer`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main tdb root command.
	rootCommand = &cobra.Command{
		Use:   "tdb [flags] <executable>",
		Short: "tdb is a debugger for C programs.",
		Long:  tdbCommandLongDesc,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(args[0], conf))
		},
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debugger logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'tdb help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'tdb help log').")
	rootCommand.PersistentFlags().StringVar(&initFile, "init", "", "Init file, executed by the terminal client.")
	rootCommand.PersistentFlags().StringVar(&workingDir, "wd", "", "Working directory for running the program.")

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tdb Debugger\n%s\n", version.TdbVersion)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&verbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	debugger	Log debugger commands
	proc		Log process control (launch, breakpoints, step over)
	symbols		Log loading of debugging symbols
	terminal	Log terminal events

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.

`,
	})

	usage := rootCommand.UsageFunc()
	rootCommand.SetUsageFunc(func(cmd *cobra.Command) error {
		helphelpers.Prepare(cmd)
		return usage(cmd)
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

func execute(path string, conf *config.Config) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	bi, err := symbols.Open(path, symbols.Options{
		EntryFunction: conf.EntryFunction,
		CacheSize:     conf.SymbolCacheSize,
	})
	if err != nil {
		var die *symbols.DebugInfoError
		if errors.As(err, &die) {
			fmt.Fprintf(os.Stderr, "Could not load debugging symbols from %s: %v\n", path, die.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Could not open file %s: %v\n", path, err)
		}
		return 1
	}
	defer bi.Close()

	d, err := debugger.New(&debugger.Config{
		WorkingDir:    workingDir,
		EntryFunction: conf.EntryFunction,
		MaxStackDepth: conf.MaxStackDepth,
	}, []string{path}, bi)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	term := terminal.New(d, conf)
	term.InitFile = initFile
	status, err := term.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return status
}
