package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2pdf-server/client"
	"github.com/alnah/go-md2pdf-server/internal/fileutil"
)

// htmlFlags holds flags for the html command.
type htmlFlags struct {
	common commonFlags
	output string
}

func newHTMLFlagSet(f *htmlFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdHTML, flag.ContinueOnError)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "write the fragment to a file instead of stdout")
	return fs
}

// runHTML converts Markdown to an HTML fragment without the PDF engine.
func runHTML(ctx context.Context, args []string, env *Environment) error {
	var f htmlFlags
	fs := newHTMLFlagSet(&f)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: give a markdown file or - for stdin", ErrNoInput)
	}
	input := fs.Arg(0)
	if input != stdinInput {
		if err := validateMarkdownExtension(input); err != nil {
			return err
		}
	}

	content, err := readMarkdown(input, env.Stdin)
	if err != nil {
		return err
	}

	c, err := client.New(env.serverURL(f.common.server))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	html, err := c.ConvertHTML(ctx, content)
	if err != nil {
		return err
	}

	output := f.output
	if output == "" {
		_, err := fmt.Fprintln(env.Stdout, html)
		return err
	}
	path, err := fileutil.WriteFileAtomic(filepath.Dir(output), filepath.Base(output), []byte(html))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "Created %s\n", path)
	}
	return nil
}
