package md2pdf

// Notes:
// - RenderOptions.Validate: enum checks are case-insensitive and never mutate.
// - RenderOptions.Resolve: every optional field is filled; pointers in the
//   result never alias the input.
// - lengthToInches: unit conversions are checked against exact values.

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRenderOptions_Validate - Options Validation
// ---------------------------------------------------------------------------

func TestRenderOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    *RenderOptions
		wantErr error
	}{
		{
			name:    "nil is valid (use defaults)",
			opts:    nil,
			wantErr: nil,
		},
		{
			name:    "zero value is valid",
			opts:    &RenderOptions{},
			wantErr: nil,
		},
		{
			name: "all fields set",
			opts: &RenderOptions{
				Format:           FormatLegal,
				Margins:          &Margins{Top: "1in", Right: "2cm", Bottom: "15mm", Left: "72pt"},
				PageColor:        "#1e1e1e",
				AutoTextContrast: boolPtr(false),
				ShowHeaderFooter: true,
				HeaderTemplate:   "<div>title</div>",
				PageNumberAlign:  AlignRight,
				ShowTotalPages:   boolPtr(false),
			},
			wantErr: nil,
		},
		{
			name:    "uppercase format accepted",
			opts:    &RenderOptions{Format: "A3"},
			wantErr: nil,
		},
		{
			name:    "short hex color",
			opts:    &RenderOptions{PageColor: "#fff"},
			wantErr: nil,
		},
		{
			name:    "unknown format",
			opts:    &RenderOptions{Format: "tabloid"},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "margin without unit",
			opts:    &RenderOptions{Margins: &Margins{Top: "20"}},
			wantErr: ErrInvalidMargin,
		},
		{
			name:    "negative margin",
			opts:    &RenderOptions{Margins: &Margins{Left: "-5mm"}},
			wantErr: ErrInvalidMargin,
		},
		{
			name:    "unsupported unit",
			opts:    &RenderOptions{Margins: &Margins{Bottom: "2em"}},
			wantErr: ErrInvalidMargin,
		},
		{
			name:    "named color rejected",
			opts:    &RenderOptions{PageColor: "white"},
			wantErr: ErrInvalidPageColor,
		},
		{
			name:    "color without hash",
			opts:    &RenderOptions{PageColor: "ffffff"},
			wantErr: ErrInvalidPageColor,
		},
		{
			name:    "unknown alignment",
			opts:    &RenderOptions{PageNumberAlign: "justify"},
			wantErr: ErrInvalidAlign,
		},
		{
			name:    "header template too long",
			opts:    &RenderOptions{HeaderTemplate: strings.Repeat("x", MaxTemplateLength+1)},
			wantErr: ErrTemplateTooLong,
		},
		{
			name:    "footer template too long",
			opts:    &RenderOptions{FooterTemplate: strings.Repeat("é", MaxTemplateLength+1)},
			wantErr: ErrTemplateTooLong,
		},
		{
			name:    "footer template at limit",
			opts:    &RenderOptions{FooterTemplate: strings.Repeat("é", MaxTemplateLength)},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.opts.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderOptions_Validate_DoesNotMutate(t *testing.T) {
	t.Parallel()

	opts := &RenderOptions{Format: "LETTER", PageNumberAlign: "Left"}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if opts.Format != "LETTER" || opts.PageNumberAlign != "Left" {
		t.Error("Validate() should not mutate its receiver")
	}
}

// ---------------------------------------------------------------------------
// TestRenderOptions_Resolve - Defaults
// ---------------------------------------------------------------------------

func TestRenderOptions_Resolve_Defaults(t *testing.T) {
	t.Parallel()

	var opts *RenderOptions
	r := opts.Resolve()

	if r.Format != DefaultFormat {
		t.Errorf("Format = %q, want %q", r.Format, DefaultFormat)
	}
	want := Margins{Top: DefaultMargin, Right: DefaultMargin, Bottom: DefaultMargin, Left: DefaultMargin}
	if r.Margins == nil || *r.Margins != want {
		t.Errorf("Margins = %+v, want %+v", r.Margins, want)
	}
	if r.PageColor != DefaultPageColor {
		t.Errorf("PageColor = %q, want %q", r.PageColor, DefaultPageColor)
	}
	if r.PageNumberAlign != DefaultAlign {
		t.Errorf("PageNumberAlign = %q, want %q", r.PageNumberAlign, DefaultAlign)
	}
	if r.AutoTextContrast == nil || !*r.AutoTextContrast {
		t.Error("AutoTextContrast should default to true")
	}
	if r.ShowTotalPages == nil || !*r.ShowTotalPages {
		t.Error("ShowTotalPages should default to true")
	}
	if r.ShowHeaderFooter {
		t.Error("ShowHeaderFooter should default to false")
	}
}

func TestRenderOptions_Resolve_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	in := &RenderOptions{
		Format:           "Letter",
		Margins:          &Margins{Top: "1in"},
		PageColor:        "#ABCDEF",
		AutoTextContrast: boolPtr(false),
		PageNumberAlign:  "RIGHT",
		ShowTotalPages:   boolPtr(false),
	}
	r := in.Resolve()

	if r.Format != FormatLetter {
		t.Errorf("Format = %q, want %q", r.Format, FormatLetter)
	}
	if r.Margins.Top != "1in" || r.Margins.Bottom != DefaultMargin {
		t.Errorf("Margins = %+v, want explicit top and default others", r.Margins)
	}
	if r.PageColor != "#abcdef" {
		t.Errorf("PageColor = %q, want lower-cased", r.PageColor)
	}
	if r.PageNumberAlign != AlignRight {
		t.Errorf("PageNumberAlign = %q, want %q", r.PageNumberAlign, AlignRight)
	}
	if *r.AutoTextContrast || *r.ShowTotalPages {
		t.Error("explicit false booleans should be kept")
	}

	r.Margins.Top = "9in"
	if in.Margins.Top != "1in" {
		t.Error("Resolve() result should not alias input margins")
	}
}

// ---------------------------------------------------------------------------
// TestLengthToInches - Unit Conversion
// ---------------------------------------------------------------------------

func TestLengthToInches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "1in", want: 1},
		{input: "25.4mm", want: 1},
		{input: "2.54cm", want: 1},
		{input: "96px", want: 1},
		{input: "72pt", want: 1},
		{input: "0mm", want: 0},
		{input: " 20MM ", want: 20 / 25.4},
		{input: "", wantErr: true},
		{input: "mm", wantErr: true},
		{input: "1.in", wantErr: true},
		{input: "1 in", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := lengthToInches(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMargin) {
					t.Errorf("lengthToInches(%q) error = %v, want ErrInvalidMargin", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("lengthToInches(%q) unexpected error: %v", tt.input, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("lengthToInches(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
