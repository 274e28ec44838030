package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert     Convert markdown files to PDF (default)")
	fmt.Fprintln(w, "  html        Convert markdown to an HTML fragment")
	fmt.Fprintln(w, "  status      Show a job, or save its PDF")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The service address comes from --server, then MD2PDF_SERVER,")
	fmt.Fprintln(w, "then "+DefaultServer+".")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'md2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf convert <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert markdown files to PDF through the rendering service.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Markdown file, directory, or - for stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>         Output file or directory")
	fmt.Fprintln(w, "  -j, --jobs <n>              Concurrent renders (0 = 4)")
	fmt.Fprintln(w, "  -s, --server <url>          Service URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -f, --format <s>            a4, letter, legal, a3")
	fmt.Fprintln(w, "      --margin <len>          All margins, e.g. 20mm, 1in")
	fmt.Fprintln(w, "      --margin-top <len>      Top margin (also -right, -bottom, -left)")
	fmt.Fprintln(w, "      --page-color <hex>      Page background color")
	fmt.Fprintln(w, "      --no-auto-contrast      Keep text colors on dark pages")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Header/Footer:")
	fmt.Fprintln(w, "      --header-footer         Print running header and footer")
	fmt.Fprintln(w, "      --header <html>         Header template")
	fmt.Fprintln(w, "      --footer <html>         Footer template")
	fmt.Fprintln(w, "      --page-number-align <s> left, center, right")
	fmt.Fprintln(w, "      --no-total-pages        Print \"N\" instead of \"N / total\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Waiting:")
	fmt.Fprintln(w, "  -t, --timeout <dur>         Stop waiting after this long (0 = until done)")
	fmt.Fprintln(w, "      --poll-interval <dur>   Status poll interval (default 700ms)")
	fmt.Fprintln(w, "      --no-watch              Poll only, no pushed progress")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -q, --quiet                 Only show errors")
	fmt.Fprintln(w, "  -v, --verbose               Show stages and timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  md2pdf report.md")
	fmt.Fprintln(w, "  md2pdf convert docs/ -o out/ -j 8")
	fmt.Fprintln(w, "  cat notes.md | md2pdf convert - -o notes.pdf --format letter")
}

// printHTMLUsage prints usage for the html command.
func printHTMLUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf html <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert markdown to an HTML fragment. Works while the PDF engine is down.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>         Write to a file instead of stdout")
	fmt.Fprintln(w, "  -s, --server <url>          Service URL")
	fmt.Fprintln(w, "  -q, --quiet                 Only show errors")
}

// printStatusUsage prints usage for the status command.
func printStatusUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf status <job-id> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Show the state of a job. Exits 4 if the job failed.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>         Save the PDF of a completed job")
	fmt.Fprintln(w, "      --json                  Print the status as JSON")
	fmt.Fprintln(w, "  -s, --server <url>          Service URL")
	fmt.Fprintln(w, "  -v, --verbose               Show timestamps")
}

// printCommandUsage prints usage for a command.
func printCommandUsage(w io.Writer, command string) {
	switch command {
	case cmdConvert:
		printConvertUsage(w)
	case cmdHTML:
		printHTMLUsage(w)
	case cmdStatus:
		printStatusUsage(w)
	case cmdCompletion:
		printCompletionUsage(w)
	case cmdVersion:
		fmt.Fprintln(w, "Usage: md2pdf version")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Show version information.")
	default:
		printUsage(w)
	}
}

// runHelp prints help for a command, or the main usage.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	if !isCommand(args[0]) {
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	printCommandUsage(env.Stdout, args[0])
	return ExitSuccess
}
