package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-md2pdf-server/client"
)

// runConvert renders one file, a directory of files, or stdin through the service.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args)
	if err != nil {
		return err
	}

	if len(positional) == 0 {
		return fmt.Errorf("%w: give a markdown file, a directory, or - for stdin", ErrNoInput)
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: expected one input, got %d", ErrUsage, len(positional))
	}
	inputPath := positional[0]

	opts, err := flags.renderOptions()
	if err != nil {
		return err
	}

	server := env.serverURL(flags.common.server)
	c, err := client.New(server)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	files, err := discoverFiles(inputPath, flags.output)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no markdown files found in %s", ErrNoInput, inputPath)
	}

	jobs := flags.jobs
	if jobs == 0 {
		jobs = defaultJobs
	}

	params := &conversionParams{
		client:    c,
		options:   opts,
		sessionID: env.NewSessionID(),
		wait: client.WaitOptions{
			Interval: flags.wait.interval,
			Timeout:  flags.wait.timeout,
		},
		watch:   !flags.wait.noWatch,
		live:    len(files) == 1 && env.Interactive && !flags.common.quiet,
		verbose: flags.common.verbose && !flags.common.quiet,
		stdin:   env.Stdin,
		stderr:  env.Stderr,
	}

	results := convertBatch(ctx, files, params, jobs)

	failed := printResultsWithWriter(results, flags.common.quiet, flags.common.verbose, env, server)
	if failed > 0 {
		return &batchError{failed: failed, first: firstError(results)}
	}
	return nil
}
