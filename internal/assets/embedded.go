package assets

import (
	"embed"
	"fmt"
)

//go:embed styles/*.css
var styles embed.FS

// Built-in style names.
const (
	StyleDocument = "document"
	StyleSyntax   = "syntax"
)

// EmbeddedLoader loads styles from the embedded filesystem.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// LoadStyle loads a CSS style from embedded assets by name.
// The name should not include the .css extension.
func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	content, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}

	return string(content), nil
}

// MustLoadStyles concatenates the named built-in styles.
// It panics on a missing style, which can only happen on a broken build.
func MustLoadStyles(names ...string) string {
	loader := NewEmbeddedLoader()
	var out string
	for _, name := range names {
		css, err := loader.LoadStyle(name)
		if err != nil {
			panic(err)
		}
		out += css + "\n"
	}
	return out
}

// Compile-time interface check.
var _ StyleLoader = (*EmbeddedLoader)(nil)
