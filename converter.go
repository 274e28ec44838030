package md2pdf

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alnah/go-md2pdf-server/internal/assets"
	"github.com/alnah/go-md2pdf-server/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector          = (*pipeline.CSSInjection)(nil)
	_ pipeline.ScriptInjector       = (*pipeline.ScriptInjection)(nil)
)

// DefaultMermaidSource is the mermaid bundle loaded by documents with diagrams.
const DefaultMermaidSource = "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.min.js"

// mermaidInit starts mermaid on load; diagrams are drawn asynchronously
// after the document load event, which is why the renderer polls for them.
const mermaidInit = `mermaid.initialize({
  startOnLoad: true,
  theme: 'default',
  securityLevel: 'strict',
  fontFamily: '-apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif'
});`

// Converter turns Markdown into an HTML fragment and wraps fragments into
// printable documents. It holds no browser state and is safe for concurrent use.
type Converter struct {
	preprocessor   pipeline.MarkdownPreprocessor
	htmlConverter  pipeline.HTMLConverter
	cssInjector    pipeline.CSSInjector
	scriptInjector pipeline.ScriptInjector
	baseCSS        string
	extraCSS       string
	mermaidSource  string
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithMermaidSource overrides the URL of the mermaid bundle.
// Point it at a self-hosted copy when the renderer has no internet access.
func WithMermaidSource(src string) ConverterOption {
	return func(c *Converter) {
		if src != "" {
			c.mermaidSource = src
		}
	}
}

// WithExtraCSS appends CSS after the built-in stylesheet.
func WithExtraCSS(css string) ConverterOption {
	return func(c *Converter) {
		c.extraCSS = css
	}
}

// NewConverter creates a Converter with the built-in stylesheet.
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		preprocessor:   &pipeline.CommonMarkPreprocessor{},
		htmlConverter:  pipeline.NewGoldmarkConverter(),
		cssInjector:    &pipeline.CSSInjection{},
		scriptInjector: &pipeline.ScriptInjection{},
		baseCSS:        assets.MustLoadStyles(assets.StyleDocument, assets.StyleSyntax),
		mermaidSource:  DefaultMermaidSource,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ValidateMarkdown checks that content is non-blank and within MaxMarkdownLength.
func ValidateMarkdown(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMarkdown
	}
	if n := utf8.RuneCountInString(content); n > MaxMarkdownLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrMarkdownTooLong, n, MaxMarkdownLength)
	}
	return nil
}

// ToHTML converts Markdown to an HTML fragment.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) ToHTML(ctx context.Context, markdown string) (htmlContent string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: internal error: %v", pipeline.ErrHTMLConversion, r)
		}
	}()

	if err := ValidateMarkdown(markdown); err != nil {
		return "", err
	}

	mdContent := c.preprocessor.PreprocessMarkdown(ctx, markdown)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	htmlContent, err = c.htmlConverter.ToHTML(ctx, mdContent)
	if err != nil {
		return "", err
	}

	// Completes the ==text== feature started in preprocessing.
	return pipeline.ConvertMarkPlaceholders(htmlContent), nil
}

// PrepareDocument wraps an HTML fragment into a standalone document ready
// for printing: base styles, page color, and the mermaid bootstrap when the
// fragment contains diagrams.
// Failures other than invalid options wrap ErrDocumentPrepare.
func (c *Converter) PrepareDocument(ctx context.Context, fragment string, opts RenderOptions) (doc string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: internal error: %v", ErrDocumentPrepare, r)
		}
	}()

	if err := opts.Validate(); err != nil {
		return "", err
	}
	resolved := opts.Resolve()

	doc = pipeline.WrapDocument(fragment, "")

	css := c.baseCSS + buildPageColorCSS(resolved.PageColor, *resolved.AutoTextContrast)
	if c.extraCSS != "" {
		css += "\n" + c.extraCSS
	}
	doc = c.cssInjector.InjectCSS(ctx, doc, css)

	if pipeline.CountDiagrams(fragment) > 0 {
		doc = c.scriptInjector.InjectScripts(ctx, doc, []pipeline.Script{
			{Src: c.mermaidSource},
			{Inline: mermaidInit},
		})
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDocumentPrepare, err)
	}
	return doc, nil
}
