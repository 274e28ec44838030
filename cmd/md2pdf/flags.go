package main

import (
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	md2pdf "github.com/alnah/go-md2pdf-server"
)

// ErrUsage indicates invalid command-line arguments.
var ErrUsage = errors.New("usage error")

// maxJobs bounds concurrent submissions from one invocation.
const maxJobs = 16

// commonFlags holds flags shared across commands.
type commonFlags struct {
	server  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	format         string
	margin         string
	marginTop      string
	marginRight    string
	marginBottom   string
	marginLeft     string
	color          string
	noAutoContrast bool
}

// headerFooterFlags holds running header and footer flags.
type headerFooterFlags struct {
	show         bool
	header       string
	footer       string
	align        string
	noTotalPages bool
}

// waitFlags controls how long and how often a job is followed.
type waitFlags struct {
	timeout  time.Duration
	interval time.Duration
	noWatch  bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common       commonFlags
	output       string
	jobs         int
	page         pageFlags
	headerFooter headerFooterFlags
	wait         waitFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.server, "server", "s", "", "service URL (env: MD2PDF_SERVER)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show stages and timing")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.format, "format", "f", "", "page format: a4, letter, legal, a3")
	fs.StringVar(&f.margin, "margin", "", "all margins, e.g. 20mm or 1in")
	fs.StringVar(&f.marginTop, "margin-top", "", "top margin")
	fs.StringVar(&f.marginRight, "margin-right", "", "right margin")
	fs.StringVar(&f.marginBottom, "margin-bottom", "", "bottom margin")
	fs.StringVar(&f.marginLeft, "margin-left", "", "left margin")
	fs.StringVar(&f.color, "page-color", "", "page background color (#rgb or #rrggbb)")
	fs.BoolVar(&f.noAutoContrast, "no-auto-contrast", false, "keep text colors on dark pages")
}

// addHeaderFooterFlags adds header and footer flags to a FlagSet.
func addHeaderFooterFlags(fs *flag.FlagSet, f *headerFooterFlags) {
	fs.BoolVar(&f.show, "header-footer", false, "print running header and footer")
	fs.StringVar(&f.header, "header", "", "header template (HTML)")
	fs.StringVar(&f.footer, "footer", "", "footer template (HTML)")
	fs.StringVar(&f.align, "page-number-align", "", "page number position: left, center, right")
	fs.BoolVar(&f.noTotalPages, "no-total-pages", false, "print \"N\" instead of \"N / total\"")
}

// addWaitFlags adds job following flags to a FlagSet.
func addWaitFlags(fs *flag.FlagSet, f *waitFlags) {
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "stop waiting after this long (0 = until done)")
	fs.DurationVar(&f.interval, "poll-interval", 0, "status poll interval (default 700ms)")
	fs.BoolVar(&f.noWatch, "no-watch", false, "poll only, do not subscribe to pushed progress")
}

// newConvertFlagSet registers every convert flag on a fresh FlagSet.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmdConvert, flag.ContinueOnError)
	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "concurrent renders for a directory (0 = 4)")
	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	addHeaderFooterFlags(fs, &f.headerFooter)
	addWaitFlags(fs, &f.wait)
	return fs
}

// parseConvertFlags parses convert arguments and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := newConvertFlagSet(f)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := validateJobs(f.jobs); err != nil {
		return nil, nil, err
	}
	if f.wait.timeout < 0 || f.wait.interval < 0 {
		return nil, nil, fmt.Errorf("%w: durations must not be negative", ErrUsage)
	}
	return f, fs.Args(), nil
}

// validateJobs checks that the job count is within valid bounds.
func validateJobs(n int) error {
	if n < 0 || n > maxJobs {
		return fmt.Errorf("%w: --jobs %d (must be 0-%d, 0 means auto)", ErrUsage, n, maxJobs)
	}
	return nil
}

// renderOptions builds validated options from the page and header/footer flags.
func (f *convertFlags) renderOptions() (md2pdf.RenderOptions, error) {
	opts := md2pdf.RenderOptions{
		Format:           f.page.format,
		PageColor:        f.page.color,
		ShowHeaderFooter: f.headerFooter.show || f.headerFooter.header != "" || f.headerFooter.footer != "",
		HeaderTemplate:   f.headerFooter.header,
		FooterTemplate:   f.headerFooter.footer,
		PageNumberAlign:  f.headerFooter.align,
	}

	m := md2pdf.Margins{
		Top:    firstNonEmpty(f.page.marginTop, f.page.margin),
		Right:  firstNonEmpty(f.page.marginRight, f.page.margin),
		Bottom: firstNonEmpty(f.page.marginBottom, f.page.margin),
		Left:   firstNonEmpty(f.page.marginLeft, f.page.margin),
	}
	if m != (md2pdf.Margins{}) {
		opts.Margins = &m
	}
	if f.page.noAutoContrast {
		opts.AutoTextContrast = new(bool)
	}
	if f.headerFooter.noTotalPages {
		opts.ShowTotalPages = new(bool)
	}

	if err := opts.Validate(); err != nil {
		return md2pdf.RenderOptions{}, err
	}
	return opts, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
