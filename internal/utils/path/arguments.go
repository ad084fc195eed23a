package pathutils

import (
	"path/filepath"
	"strings"
)

// ArgumentSanitizer normalizes path arguments received on the command line.
type ArgumentSanitizer struct {
	homeExpander *HomeExpander
}

// NewArgumentSanitizer constructs an ArgumentSanitizer. A nil expander uses the operating system home directory.
func NewArgumentSanitizer(homeExpander *HomeExpander) *ArgumentSanitizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &ArgumentSanitizer{homeExpander: homeExpander}
}

// Source trims and home-expands a link source. Relative sources stay relative so they are
// persisted and materialized as relative links.
func (sanitizer *ArgumentSanitizer) Source(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if len(trimmed) == 0 {
		return ""
	}
	return filepath.Clean(sanitizer.homeExpander.Expand(trimmed))
}

// TreePath converts a command-line path into a slash-separated tree path relative to root.
// The boolean result is false when the path lies outside root.
func (sanitizer *ArgumentSanitizer) TreePath(root string, workingDirectory string, candidate string) (string, bool) {
	trimmed := strings.TrimSpace(candidate)
	if len(trimmed) == 0 {
		return "", false
	}
	expanded := sanitizer.homeExpander.Expand(trimmed)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(workingDirectory, expanded)
	}
	relative, relError := filepath.Rel(filepath.Clean(root), filepath.Clean(expanded))
	if relError != nil {
		return "", false
	}
	if relative == "." {
		return "", true
	}
	if relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relative), true
}

// RootRelativeSource converts a link source typed relative to workingDirectory into one relative
// to root. Absolute and home-relative sources keep their absolute form.
func (sanitizer *ArgumentSanitizer) RootRelativeSource(root string, workingDirectory string, candidate string) string {
	source := sanitizer.Source(candidate)
	if len(source) == 0 || filepath.IsAbs(source) {
		return source
	}
	relative, relError := filepath.Rel(filepath.Clean(root), filepath.Join(workingDirectory, source))
	if relError != nil {
		return filepath.Join(workingDirectory, source)
	}
	return filepath.ToSlash(relative)
}
