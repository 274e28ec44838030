package assets

import (
	"fmt"
	"regexp"
)

// styleName matches the names of files under styles/, without extension.
var styleName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateAssetName rejects names that could leave the styles directory
// or pick a different extension.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if !styleName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
