package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2pdf-server/client"
	"github.com/alnah/go-md2pdf-server/internal/fileutil"
)

// statusFlags holds flags for the status command.
type statusFlags struct {
	common     commonFlags
	output     string
	jsonOutput bool
}

func newStatusFlagSet(f *statusFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdStatus, flag.ContinueOnError)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "save the PDF of a completed job")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the status as JSON")
	return fs
}

// runStatus prints the state of a job, or saves its PDF with --output.
func runStatus(ctx context.Context, args []string, env *Environment) error {
	var f statusFlags
	fs := newStatusFlagSet(&f)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: expected one job id", ErrUsage)
	}

	c, err := client.New(env.serverURL(f.common.server))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	st, err := c.Status(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	if output := f.output; output != "" {
		if st.Status != client.StatusCompleted || st.Result == nil {
			return fmt.Errorf("%w: job %s is %s, no PDF to save", ErrUsage, st.JobID, st.Status)
		}
		dir, name := output, st.Result.Filename
		if strings.HasSuffix(output, ".pdf") {
			dir, name = filepath.Dir(output), filepath.Base(output)
		}
		path, err := fileutil.WriteFileAtomic(dir, name, st.Result.Buffer)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		if !f.common.quiet {
			fmt.Fprintf(env.Stdout, "Created %s\n", path)
		}
		return nil
	}

	if f.jsonOutput {
		// The PDF bytes are not useful on a terminal.
		if st.Result != nil {
			st.Result.Buffer = nil
		}
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	printStatus(env, st, f.common.verbose)
	if st.Status == client.StatusFailed {
		return &client.JobFailedError{JobID: st.JobID, Message: st.Error}
	}
	return nil
}

func printStatus(env *Environment, st *client.Status, verbose bool) {
	fmt.Fprintf(env.Stdout, "Job:      %s\n", st.JobID)
	fmt.Fprintf(env.Stdout, "Status:   %s\n", st.Status)
	fmt.Fprintf(env.Stdout, "Progress: %d%%", st.Progress)
	if st.Stage != "" {
		fmt.Fprintf(env.Stdout, " (%s)", st.Stage)
	}
	fmt.Fprintln(env.Stdout)
	if st.Result != nil {
		fmt.Fprintf(env.Stdout, "Result:   %s, %d pages, %d bytes\n", st.Result.Filename, st.Result.Pages, len(st.Result.Buffer))
		if st.Result.URL != "" {
			fmt.Fprintf(env.Stdout, "Archive:  %s\n", st.Result.URL)
		}
	}
	if st.Error != "" {
		fmt.Fprintf(env.Stdout, "Error:    %s\n", st.Error)
	}
	if verbose {
		fmt.Fprintf(env.Stdout, "Created:  %s\n", st.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(env.Stdout, "Updated:  %s\n", st.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}
}
