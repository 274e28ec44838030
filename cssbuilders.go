package md2pdf

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// defaultFontFamily is the standard font stack for PDF footers and generated content.
const defaultFontFamily = "sans-serif"

// Text colors picked by automatic contrast.
const (
	darkTextColor  = "#1f2328"
	lightTextColor = "#f0f3f6"
)

// luminanceThreshold is the WCAG relative luminance at which dark and light
// text have equal contrast against the page.
const luminanceThreshold = 0.179

// buildPageColorCSS sets the page background and, when autoContrast is on,
// flips text to a light color on dark pages.
// color must already be validated (#rgb or #rrggbb).
func buildPageColorCSS(color string, autoContrast bool) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, `
/* Page color */
html, body {
  background-color: %s;
}
`, color)

	if !autoContrast {
		return buf.String()
	}

	text := darkTextColor
	if relativeLuminance(color) < luminanceThreshold {
		text = lightTextColor
	}

	fmt.Fprintf(&buf, `
/* Automatic text contrast */
body, h1, h2, h3, h4, h5, h6, blockquote, th, td, .footnotes {
  color: %s;
}
`, text)

	return buf.String()
}

// relativeLuminance returns the WCAG relative luminance (0..1) of a hex color.
// Unparseable input is treated as white.
func relativeLuminance(color string) float64 {
	r, g, b, ok := parseHexColor(color)
	if !ok {
		return 1
	}
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b)
}

func linearize(c uint8) float64 {
	v := float64(c) / 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// parseHexColor parses #rgb or #rrggbb.
func parseHexColor(color string) (r, g, b uint8, ok bool) {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// buildFooterTemplate generates the default page-number footer for Chrome's
// native header/footer area. Chrome fills the pageNumber and totalPages classes.
func buildFooterTemplate(align string, showTotal bool) string {
	textAlign := AlignCenter
	switch align {
	case AlignLeft, AlignRight:
		textAlign = align
	}

	content := `<span class="pageNumber"></span>`
	if showTotal {
		content += ` / <span class="totalPages"></span>`
	}

	return fmt.Sprintf(`<div style="font-size: 10px; font-family: %s; color: #888; width: 100%%; text-align: %s; margin: 0 20px;">%s</div>`,
		defaultFontFamily, html.EscapeString(textAlign), content)
}

// emptyTemplate suppresses one of Chrome's header/footer areas.
const emptyTemplate = "<span></span>"

// buildPDFOptions converts resolved render options into the print request.
// opts must come from RenderOptions.Resolve so every field is set.
func buildPDFOptions(opts RenderOptions) *proto.PagePrintToPDF {
	size, ok := paperSizes[opts.Format]
	if !ok {
		size = paperSizes[DefaultFormat]
	}

	margins := opts.Margins
	if margins == nil {
		margins = &Margins{}
	}

	pdfOpts := &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(size.width),
		PaperHeight:     floatPtr(size.height),
		MarginTop:       floatPtr(marginInches(margins.Top)),
		MarginRight:     floatPtr(marginInches(margins.Right)),
		MarginBottom:    floatPtr(marginInches(margins.Bottom)),
		MarginLeft:      floatPtr(marginInches(margins.Left)),
		PrintBackground: true,
	}

	if opts.ShowHeaderFooter {
		pdfOpts.DisplayHeaderFooter = true
		pdfOpts.HeaderTemplate = orDefault(opts.HeaderTemplate, emptyTemplate)
		showTotal := opts.ShowTotalPages == nil || *opts.ShowTotalPages
		pdfOpts.FooterTemplate = orDefault(opts.FooterTemplate, buildFooterTemplate(opts.PageNumberAlign, showTotal))
	}

	return pdfOpts
}

// marginInches converts a validated margin, falling back to DefaultMargin.
func marginInches(v string) float64 {
	in, err := lengthToInches(orDefault(v, DefaultMargin))
	if err != nil {
		in, _ = lengthToInches(DefaultMargin)
	}
	return in
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
