package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestEmbeddedLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	tests := []struct {
		name        string
		styleName   string
		wantErr     error
		wantContain string
	}{
		{
			name:        "loads document style",
			styleName:   StyleDocument,
			wantContain: "font-family",
		},
		{
			name:        "loads syntax style",
			styleName:   StyleSyntax,
			wantContain: ".chroma",
		},
		{
			name:      "returns ErrStyleNotFound for nonexistent",
			styleName: "nonexistent-style-xyz",
			wantErr:   ErrStyleNotFound,
		},
		{
			name:      "returns ErrInvalidAssetName for path traversal",
			styleName: "../secret",
			wantErr:   ErrInvalidAssetName,
		},
		{
			name:      "returns ErrInvalidAssetName for name with dot",
			styleName: "document.css",
			wantErr:   ErrInvalidAssetName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := loader.LoadStyle(tt.styleName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LoadStyle(%q) error = %v, want %v", tt.styleName, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyle(%q) unexpected error: %v", tt.styleName, err)
			}
			if !strings.Contains(got, tt.wantContain) {
				t.Errorf("LoadStyle(%q) should contain %q", tt.styleName, tt.wantContain)
			}
		})
	}
}

func TestMustLoadStyles(t *testing.T) {
	t.Parallel()

	css := MustLoadStyles(StyleDocument, StyleSyntax)
	if !strings.Contains(css, "pre.mermaid") {
		t.Error("combined styles should include mermaid block rules")
	}
	if !strings.Contains(css, ".chroma") {
		t.Error("combined styles should include syntax rules")
	}
}

func TestMustLoadStyles_PanicsOnMissing(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustLoadStyles should panic on a missing style")
		}
	}()
	MustLoadStyles("missing")
}
