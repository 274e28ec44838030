package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf-server [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the HTTP service (default)")
	fmt.Fprintln(w, "  doctor     Check the rendering engine and backing services")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'md2pdf-server help <command>' for details on a specific command.")
}

// printCommandUsage prints usage for serve, doctor and config.
func printCommandUsage(w io.Writer, command string) {
	fmt.Fprintf(w, "Usage: md2pdf-server %s [flags]\n", command)
	fmt.Fprintln(w)
	switch command {
	case cmdDoctor:
		fmt.Fprintln(w, "Check Chrome, the environment and the configured backing services.")
	case cmdConfig:
		fmt.Fprintln(w, "Print the configuration after applying the file, environment and flags.")
	default:
		fmt.Fprintln(w, "Run the HTTP service, the render workers and the progress hub.")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path (env: MD2PDF_CONFIG)")
	fmt.Fprintln(w, "      --env-file <path>     Dotenv file (default .env)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "      --addr <host:port>    Listen address (default :4000)")
	fmt.Fprintln(w, "      --cors-origin <s>     Allowed CORS origin, * for any")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Engine:")
	fmt.Fprintln(w, "  -w, --workers <n>         Render worker slots (0 = engine contexts)")
	fmt.Fprintln(w, "      --contexts <n>        Browser render contexts (0 = auto)")
	fmt.Fprintln(w, "      --browser-bin <path>  Chrome/Chromium binary")
	fmt.Fprintln(w, "      --no-sandbox          Disable the Chrome sandbox (Docker/CI)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backends:")
	fmt.Fprintln(w, "      --store <s>           Job store: memory, postgres")
	fmt.Fprintln(w, "      --nats-url <url>      Also publish progress to NATS")
	fmt.Fprintln(w, "      --storage <s>         Archive PDFs: none, local, s3")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Logging:")
	fmt.Fprintln(w, "      --log-level <s>       debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      text, json")
	if command == cmdDoctor {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Output:")
		fmt.Fprintln(w, "      --json                Machine-readable output")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every setting also reads MD2PDF_* environment variables.")
	fmt.Fprintln(w, "Precedence: flags > environment > config file > defaults.")
}

// runHelp prints help for a command, or the main usage.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case cmdServe, cmdDoctor, cmdConfig:
		printCommandUsage(env.Stdout, args[0])
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: md2pdf-server version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		printUsage(env.Stdout)
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
