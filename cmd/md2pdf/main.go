// Command md2pdf converts Markdown to PDF through a running md2pdf-server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Command names.
const (
	cmdConvert    = "convert"
	cmdHTML       = "html"
	cmdStatus     = "status"
	cmdCompletion = "completion"
	cmdVersion    = "version"
	cmdHelp       = "help"
)

var commands = []string{cmdConvert, cmdHTML, cmdStatus, cmdCompletion, cmdVersion, cmdHelp}

func main() {
	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}

// isCommand reports whether arg names a subcommand.
func isCommand(arg string) bool {
	for _, c := range commands {
		if arg == c {
			return true
		}
	}
	return false
}

// runMain dispatches args (including the program name) and returns the exit code.
// Arguments that do not start with a command are passed to convert, so
// "md2pdf doc.md" works like "md2pdf convert doc.md".
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) > 0 {
		args = args[1:]
	}
	if len(args) == 0 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	command := cmdConvert
	switch {
	case isCommand(args[0]):
		command, args = args[0], args[1:]
	case args[0] == "-h" || args[0] == "--help":
		command, args = cmdHelp, nil
	}

	var err error
	switch command {
	case cmdVersion:
		fmt.Fprintf(env.Stdout, "md2pdf %s\n", Version)
		return ExitSuccess
	case cmdHelp:
		return runHelp(args, env)
	case cmdCompletion:
		err = runCompletion(args, env)
	case cmdStatus:
		err = runStatus(ctx, args, env)
	case cmdHTML:
		err = runHTML(ctx, args, env)
	default:
		err = runConvert(ctx, args, env)
	}

	if errors.Is(err, flag.ErrHelp) {
		printCommandUsage(env.Stdout, command)
		return ExitSuccess
	}
	if err != nil {
		var batch *batchError
		if !errors.As(err, &batch) {
			// Per-file failures were already reported.
			fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err, env.serverURL("")))
		}
		return exitCodeFor(err)
	}
	return ExitSuccess
}
