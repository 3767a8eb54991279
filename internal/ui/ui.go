// Package ui renders search results and charts for the terminal.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Format selects how a command writes its result.
type Format string

const (
	// FormatText is the human-readable listing.
	FormatText Format = "text"
	// FormatJSON is the wire envelope, one document per invocation.
	FormatJSON Format = "json"
)

// DetectFormat returns FormatText for interactive terminals and FormatJSON
// for pipes and files. forceJSON wins over detection.
func DetectFormat(w io.Writer, forceJSON bool) Format {
	if forceJSON || !IsTTY(w) {
		return FormatJSON
	}
	return FormatText
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// UseColor reports whether styled output should be written to w.
func UseColor(w io.Writer) bool {
	return IsTTY(w) && !DetectNoColor() && !DetectCI()
}
