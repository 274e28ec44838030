package md2pdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Page format constants.
const (
	FormatA4     = "a4"
	FormatLetter = "letter"
	FormatLegal  = "legal"
	FormatA3     = "a3"
)

// Page number alignment constants.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Defaults applied by RenderOptions.Resolve.
const (
	DefaultFormat    = FormatA4
	DefaultMargin    = "20mm"
	DefaultPageColor = "#ffffff"
	DefaultAlign     = AlignCenter
)

// Input limits enforced at intake.
const (
	// MaxMarkdownLength is the maximum Markdown size in characters.
	MaxMarkdownLength = 500_000

	// MaxTemplateLength bounds custom header and footer templates.
	MaxTemplateLength = 10_000
)

var (
	lengthPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)(mm|cm|in|px|pt)$`)
	colorPattern  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// paperSize holds paper dimensions in inches.
type paperSize struct {
	width, height float64
}

var paperSizes = map[string]paperSize{
	FormatA4:     {8.27, 11.69},
	FormatLetter: {8.5, 11},
	FormatLegal:  {8.5, 14},
	FormatA3:     {11.69, 16.54},
}

// Margins holds the four page margins as CSS lengths ("20mm", "1in").
// Empty values fall back to DefaultMargin.
type Margins struct {
	Top    string `json:"top,omitempty" yaml:"top"`
	Right  string `json:"right,omitempty" yaml:"right"`
	Bottom string `json:"bottom,omitempty" yaml:"bottom"`
	Left   string `json:"left,omitempty" yaml:"left"`
}

// RenderOptions configures PDF rendering. The zero value is valid and
// resolves to A4 with 20mm margins on a white page.
type RenderOptions struct {
	Format           string   `json:"format,omitempty"`
	Margins          *Margins `json:"margins,omitempty"`
	PageColor        string   `json:"pageColor,omitempty"`
	AutoTextContrast *bool    `json:"autoTextContrast,omitempty"`
	ShowHeaderFooter bool     `json:"showHeaderFooter,omitempty"`
	HeaderTemplate   string   `json:"headerTemplate,omitempty"`
	FooterTemplate   string   `json:"footerTemplate,omitempty"`
	PageNumberAlign  string   `json:"pageNumberAlign,omitempty"`
	ShowTotalPages   *bool    `json:"showTotalPages,omitempty"`
}

// Validate checks enum and format fields.
// Returns nil if o is nil (nil means use defaults).
// Does not mutate - uses case-insensitive comparison.
func (o *RenderOptions) Validate() error {
	if o == nil {
		return nil
	}

	if o.Format != "" {
		if _, ok := paperSizes[strings.ToLower(o.Format)]; !ok {
			return fmt.Errorf("%w: %q (must be a4, letter, legal, or a3)", ErrInvalidFormat, o.Format)
		}
	}

	if err := o.Margins.Validate(); err != nil {
		return err
	}

	if o.PageColor != "" && !colorPattern.MatchString(o.PageColor) {
		return fmt.Errorf("%w: %q (must be #rgb or #rrggbb)", ErrInvalidPageColor, o.PageColor)
	}

	switch strings.ToLower(o.PageNumberAlign) {
	case "", AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("%w: %q (must be left, center, or right)", ErrInvalidAlign, o.PageNumberAlign)
	}

	if n := utf8.RuneCountInString(o.HeaderTemplate); n > MaxTemplateLength {
		return fmt.Errorf("%w: header has %d chars (max %d)", ErrTemplateTooLong, n, MaxTemplateLength)
	}
	if n := utf8.RuneCountInString(o.FooterTemplate); n > MaxTemplateLength {
		return fmt.Errorf("%w: footer has %d chars (max %d)", ErrTemplateTooLong, n, MaxTemplateLength)
	}

	return nil
}

// Resolve returns a copy with every optional field filled with its default.
// Enum values are lower-cased. Call Validate first; Resolve does not check.
func (o *RenderOptions) Resolve() RenderOptions {
	var r RenderOptions
	if o != nil {
		r = *o
	}

	r.Format = strings.ToLower(r.Format)
	if r.Format == "" {
		r.Format = DefaultFormat
	}

	m := Margins{}
	if r.Margins != nil {
		m = *r.Margins
	}
	r.Margins = &Margins{
		Top:    orDefault(m.Top, DefaultMargin),
		Right:  orDefault(m.Right, DefaultMargin),
		Bottom: orDefault(m.Bottom, DefaultMargin),
		Left:   orDefault(m.Left, DefaultMargin),
	}

	r.PageColor = strings.ToLower(orDefault(r.PageColor, DefaultPageColor))
	r.PageNumberAlign = strings.ToLower(orDefault(r.PageNumberAlign, DefaultAlign))

	if r.AutoTextContrast == nil {
		r.AutoTextContrast = boolPtr(true)
	}
	if r.ShowTotalPages == nil {
		r.ShowTotalPages = boolPtr(true)
	}
	return r
}

// Validate checks that every non-empty margin is a supported CSS length.
// Returns nil if m is nil.
func (m *Margins) Validate() error {
	if m == nil {
		return nil
	}
	sides := []struct{ name, value string }{
		{"top", m.Top}, {"right", m.Right}, {"bottom", m.Bottom}, {"left", m.Left},
	}
	for _, s := range sides {
		if s.value == "" {
			continue
		}
		if _, err := lengthToInches(s.value); err != nil {
			return fmt.Errorf("%w: %s %q (use a number with mm, cm, in, px, or pt)", ErrInvalidMargin, s.name, s.value)
		}
	}
	return nil
}

// lengthToInches converts a CSS length to inches for the print protocol.
func lengthToInches(s string) (float64, error) {
	match := lengthPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMargin, s)
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMargin, s)
	}
	switch match[2] {
	case "mm":
		return v / 25.4, nil
	case "cm":
		return v / 2.54, nil
	case "px":
		return v / 96, nil
	case "pt":
		return v / 72, nil
	default:
		return v, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolPtr(v bool) *bool {
	return &v
}
