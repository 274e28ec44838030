package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/client"
	"github.com/alnah/go-md2pdf-server/internal/fileutil"
	"github.com/alnah/go-md2pdf-server/internal/hints"
)

// defaultJobs is the concurrency for directories when --jobs is 0.
const defaultJobs = 4

// Sentinel errors for batch operations.
var (
	ErrNoInput      = errors.New("no input specified")
	ErrReadMarkdown = errors.New("failed to read markdown file")
	ErrWriteOutput  = errors.New("failed to write output file")
)

// conversionParams holds what every file of a batch shares.
type conversionParams struct {
	client    *client.Client
	options   md2pdf.RenderOptions
	sessionID string
	wait      client.WaitOptions
	watch     bool
	live      bool
	verbose   bool
	stdin     io.Reader
	stderr    io.Writer
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Pages      int
	Err        error
	Duration   time.Duration
}

// batchError reports failed conversions; it unwraps to the first failure
// so the exit code reflects its cause.
type batchError struct {
	failed int
	first  error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d conversion(s) failed", e.failed)
}

func (e *batchError) Unwrap() error { return e.first }

// convertBatch renders files through the service, at most jobs at a time.
func convertBatch(ctx context.Context, files []FileToConvert, params *conversionParams, jobs int) []ConversionResult {
	if len(files) == 0 {
		return nil
	}

	results := make([]ConversionResult, len(files))
	var g errgroup.Group
	g.SetLimit(max(jobs, 1))

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = ConversionResult{InputPath: f.InputPath, Err: err}
				return nil
			}
			results[i] = convertFile(ctx, f, params)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// convertFile submits one file, follows the job and writes the PDF.
func convertFile(ctx context.Context, f FileToConvert, p *conversionParams) ConversionResult {
	start := time.Now()
	result := ConversionResult{InputPath: f.InputPath, OutputPath: f.OutputPath}
	finish := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	content, err := readMarkdown(f.InputPath, p.stdin)
	if err != nil {
		return finish(err)
	}
	if err := md2pdf.ValidateMarkdown(content); err != nil {
		return finish(err)
	}

	reporter := newProgressReporter(p.stderr, displayName(f.InputPath), p.live, p.verbose)
	defer reporter.Done()

	opts := p.wait
	opts.OnProgress = reporter.Update

	// Subscribe before submitting so no event is missed. Pushed progress
	// is optional: without it Wait still polls.
	if p.watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if events, err := p.client.Subscribe(watchCtx, p.sessionID); err == nil {
			opts.Events = events
		} else if p.verbose {
			fmt.Fprintf(p.stderr, "%s: progress updates unavailable, polling (%v)\n", displayName(f.InputPath), err)
		}
	}

	jobID, err := p.client.Submit(ctx, client.SubmitRequest{
		Markdown:  content,
		Options:   p.options,
		SessionID: p.sessionID,
	})
	if err != nil {
		return finish(err)
	}

	res, err := p.client.Wait(ctx, jobID, opts)
	if err != nil {
		return finish(err)
	}
	reporter.Done()

	path, err := writeResult(f, res)
	if err != nil {
		return finish(err)
	}
	result.OutputPath = path
	result.Pages = res.Pages
	return finish(nil)
}

// readMarkdown reads a file, or stdin for "-".
func readMarkdown(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinInput {
		// One byte over the limit is enough for validation to reject it.
		data, err = io.ReadAll(io.LimitReader(stdin, 4*md2pdf.MaxMarkdownLength+1))
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- discovered path
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	return string(data), nil
}

// writeResult stores the PDF at the planned path, or under the name the
// service chose when none was planned.
func writeResult(f FileToConvert, res *client.Result) (string, error) {
	dir, name := f.OutputDir, res.Filename
	if f.OutputPath != "" {
		dir, name = filepath.Dir(f.OutputPath), filepath.Base(f.OutputPath)
	}
	if name == "" {
		name = "document.pdf"
	}

	path, err := fileutil.WriteFileAtomic(dir, name, res.Buffer)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return path, nil
}

func displayName(inputPath string) string {
	if inputPath == stdinInput {
		return "stdin"
	}
	return filepath.Base(inputPath)
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResultsWithWriter outputs conversion results and returns the failure count.
func printResultsWithWriter(results []ConversionResult, quiet, verbose bool, env *Environment, server string) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", displayName(r.InputPath), r.Err, hintFor(r.Err, server))
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}

// firstError returns the first failure in results.
func firstError(results []ConversionResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error, server string) string {
	var opErr *net.OpError
	switch {
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return hints.ForServerUnreachable(serverOf(err, server))
	case errors.Is(err, client.ErrTimedOut):
		return hints.ForTimeout()
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	}
	return ""
}

// serverOf recovers the service address from a failed request, or fallback.
func serverOf(err error, fallback string) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return fallback
}
