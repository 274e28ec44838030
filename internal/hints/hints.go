// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-md2pdf-server/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI provider variable is set.
func inCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForEngineLaunch returns hints for a browser that failed to start.
// noSandbox and browserBin are the engine settings in effect.
func ForEngineLaunch(noSandbox bool, browserBin string) string {
	var hints []string

	if (inCI() || IsInContainer()) && !noSandbox {
		hints = append(hints, "set MD2PDF_NO_SANDBOX=true for Docker/CI")
	}
	if browserBin == "" {
		hints = append(hints, "set MD2PDF_BROWSER_BIN to use an installed Chrome")
	} else if !fileutil.FileExists(browserBin) {
		hints = append(hints, "browser binary not found at "+browserBin)
	}

	return formatHints(hints)
}

// ForServerUnreachable returns a hint for a client that cannot reach the service.
func ForServerUnreachable(baseURL string) string {
	return format("is the server running at " + baseURL + "? use --server or MD2PDF_SERVER")
}

// ForTimeout returns a hint about increasing timeout for slow renders.
func ForTimeout() string {
	return format("for large documents or many diagrams, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/md2pdf-server/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/md2pdf-server") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
