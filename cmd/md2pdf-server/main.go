// Command md2pdf-server runs the asynchronous Markdown to PDF service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-md2pdf-server/internal/config"
	"github.com/alnah/go-md2pdf-server/internal/hints"
	"github.com/alnah/go-md2pdf-server/internal/yamlutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrStartup indicates a backing service could not be reached at startup.
var ErrStartup = errors.New("startup failed")

// Command names.
const (
	cmdServe   = "serve"
	cmdDoctor  = "doctor"
	cmdConfig  = "config"
	cmdVersion = "version"
	cmdHelp    = "help"
)

var commands = []string{cmdServe, cmdDoctor, cmdConfig, cmdVersion, cmdHelp}

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
// Without a command, or when the first argument is a flag, it serves.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) > 0 {
		args = args[1:]
	}

	command := cmdServe
	if len(args) > 0 && isCommand(args[0]) {
		command, args = args[0], args[1:]
	} else if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		command, args = cmdHelp, nil
	}

	switch command {
	case cmdVersion:
		fmt.Fprintf(env.Stdout, "md2pdf-server %s\n", Version)
		return ExitSuccess
	case cmdHelp:
		return runHelp(args, env)
	}

	f, err := parseServeFlags(command, args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	cfg, err := loadConfig(f, env)
	if err != nil {
		reportConfigError(env, err, f.configName(env))
		return exitCodeFor(err)
	}

	switch command {
	case cmdConfig:
		return runConfigCmd(cfg, env)
	case cmdDoctor:
		return runDoctorCmd(ctx, cfg, f.jsonOutput, env)
	}

	logger, err := newLogger(env.Stderr, cfg.Log)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

func reportConfigError(env *Environment, err error, name string) {
	fmt.Fprintf(env.Stderr, "error: %v", err)
	if errors.Is(err, config.ErrConfigNotFound) {
		fmt.Fprint(env.Stderr, hints.ForConfigNotFound(config.SearchPaths(name)))
	}
	fmt.Fprintln(env.Stderr)
}

// runConfigCmd prints the effective configuration as YAML.
func runConfigCmd(cfg *config.Config, env *Environment) int {
	data, err := yamlutil.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitGeneral
	}
	_, _ = env.Stdout.Write(data)
	return ExitSuccess
}
