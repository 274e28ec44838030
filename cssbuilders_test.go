package md2pdf

import (
	"math"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestBuildPageColorCSS - Page Color and Contrast
// ---------------------------------------------------------------------------

func TestBuildPageColorCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		color        string
		autoContrast bool
		wantContain  []string
		wantAbsent   []string
	}{
		{
			name:         "white page keeps dark text",
			color:        "#ffffff",
			autoContrast: true,
			wantContain:  []string{"background-color: #ffffff", darkTextColor},
			wantAbsent:   []string{lightTextColor},
		},
		{
			name:         "dark page flips to light text",
			color:        "#1e1e1e",
			autoContrast: true,
			wantContain:  []string{"background-color: #1e1e1e", lightTextColor},
			wantAbsent:   []string{darkTextColor},
		},
		{
			name:         "short hex dark color",
			color:        "#000",
			autoContrast: true,
			wantContain:  []string{lightTextColor},
		},
		{
			name:         "contrast disabled sets background only",
			color:        "#000000",
			autoContrast: false,
			wantContain:  []string{"background-color: #000000"},
			wantAbsent:   []string{lightTextColor, darkTextColor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			css := buildPageColorCSS(tt.color, tt.autoContrast)
			for _, want := range tt.wantContain {
				if !strings.Contains(css, want) {
					t.Errorf("CSS should contain %q, got:\n%s", want, css)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(css, absent) {
					t.Errorf("CSS should not contain %q", absent)
				}
			}
		})
	}
}

func TestRelativeLuminance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		color string
		want  float64
	}{
		{color: "#ffffff", want: 1},
		{color: "#000000", want: 0},
		{color: "#fff", want: 1},
		{color: "not-a-color", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			t.Parallel()

			if got := relativeLuminance(tt.color); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("relativeLuminance(%q) = %v, want %v", tt.color, got, tt.want)
			}
		})
	}

	if relativeLuminance("#404040") >= luminanceThreshold {
		t.Error("charcoal should count as a dark page")
	}
	if relativeLuminance("#808080") < luminanceThreshold {
		t.Error("mid gray should keep dark text")
	}
}

// ---------------------------------------------------------------------------
// TestBuildFooterTemplate - Page Numbers
// ---------------------------------------------------------------------------

func TestBuildFooterTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		align     string
		showTotal bool
		wantAlign string
		wantTotal bool
	}{
		{name: "center with total", align: AlignCenter, showTotal: true, wantAlign: "center", wantTotal: true},
		{name: "left without total", align: AlignLeft, showTotal: false, wantAlign: "left"},
		{name: "right", align: AlignRight, showTotal: true, wantAlign: "right", wantTotal: true},
		{name: "unknown falls back to center", align: "justify", showTotal: true, wantAlign: "center", wantTotal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := buildFooterTemplate(tt.align, tt.showTotal)
			if !strings.Contains(got, "text-align: "+tt.wantAlign) {
				t.Errorf("footer should be %s aligned, got %s", tt.wantAlign, got)
			}
			if !strings.Contains(got, `class="pageNumber"`) {
				t.Error("footer should always carry the page number")
			}
			if strings.Contains(got, `class="totalPages"`) != tt.wantTotal {
				t.Errorf("totalPages present = %v, want %v", !tt.wantTotal, tt.wantTotal)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBuildPDFOptions - Print Request
// ---------------------------------------------------------------------------

func TestBuildPDFOptions_Defaults(t *testing.T) {
	t.Parallel()

	got := buildPDFOptions((&RenderOptions{}).Resolve())

	if *got.PaperWidth != 8.27 || *got.PaperHeight != 11.69 {
		t.Errorf("paper = %vx%v, want A4", *got.PaperWidth, *got.PaperHeight)
	}
	wantMargin := 20 / 25.4
	for name, m := range map[string]*float64{
		"top": got.MarginTop, "right": got.MarginRight, "bottom": got.MarginBottom, "left": got.MarginLeft,
	} {
		if math.Abs(*m-wantMargin) > 1e-9 {
			t.Errorf("margin %s = %v, want %v", name, *m, wantMargin)
		}
	}
	if !got.PrintBackground {
		t.Error("PrintBackground should be enabled")
	}
	if got.DisplayHeaderFooter {
		t.Error("header/footer should be off by default")
	}
}

func TestBuildPDFOptions_HeaderFooter(t *testing.T) {
	t.Parallel()

	t.Run("default footer", func(t *testing.T) {
		t.Parallel()

		opts := RenderOptions{ShowHeaderFooter: true, PageNumberAlign: AlignRight, ShowTotalPages: boolPtr(false)}
		got := buildPDFOptions(opts.Resolve())

		if !got.DisplayHeaderFooter {
			t.Fatal("DisplayHeaderFooter should be enabled")
		}
		if got.HeaderTemplate != emptyTemplate {
			t.Errorf("HeaderTemplate = %q, want empty template", got.HeaderTemplate)
		}
		if !strings.Contains(got.FooterTemplate, "text-align: right") {
			t.Error("footer should follow PageNumberAlign")
		}
		if strings.Contains(got.FooterTemplate, "totalPages") {
			t.Error("footer should hide total pages when disabled")
		}
	})

	t.Run("custom templates win", func(t *testing.T) {
		t.Parallel()

		opts := RenderOptions{ShowHeaderFooter: true, HeaderTemplate: "<b>H</b>", FooterTemplate: "<i>F</i>"}
		got := buildPDFOptions(opts.Resolve())

		if got.HeaderTemplate != "<b>H</b>" || got.FooterTemplate != "<i>F</i>" {
			t.Errorf("templates = %q / %q, want custom values", got.HeaderTemplate, got.FooterTemplate)
		}
	})
}

func TestBuildPDFOptions_Formats(t *testing.T) {
	t.Parallel()

	for format, size := range paperSizes {
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			got := buildPDFOptions((&RenderOptions{Format: format}).Resolve())
			if *got.PaperWidth != size.width || *got.PaperHeight != size.height {
				t.Errorf("paper = %vx%v, want %vx%v", *got.PaperWidth, *got.PaperHeight, size.width, size.height)
			}
		})
	}
}
