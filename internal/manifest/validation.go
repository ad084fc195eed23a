package manifest

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/temirov/gitp/internal/invocation"
)

const (
	parentDirectorySegmentConstant     = ".."
	emptyPathMessageConstant           = "child path must not be empty"
	absolutePathMessageConstant        = "child path must be relative to the repository"
	escapingPathMessageConstant        = "child path must stay inside the repository"
	duplicatePathTemplateConstant      = "duplicates the declaration of %q"
	missingURLMessageConstant          = "url is required unless link is set"
	urlWithLinkMessageConstant         = "url and link are mutually exclusive"
	overlayWithoutLinkMessageConstant  = "overlay entries require link"
	overlayWithURLMessageConstant      = "overlay entries must not declare url"
	newestWithoutLinkMessageConstant   = "link_newest requires link"
	filterWithoutNewestMessageConstant = "link_filter requires link_newest"
	invalidFilterTemplateConstant      = "link_filter is not a valid regular expression: %v"
	linkWithRevisionMessageConstant    = "link entries must not declare branch or commit"
)

// Validate checks the declarations of manifest for conflicts the schema cannot express.
func Validate(manifest *Manifest) error {
	seenPaths := make(map[string]string, manifest.Len())
	for _, declaration := range manifest.Declarations() {
		normalizedPath, pathError := validateChildPath(declaration.Path)
		if pathError != nil {
			return pathError
		}
		if originalPath, duplicate := seenPaths[normalizedPath]; duplicate {
			return ConflictError{Entry: declaration.Path, Message: fmt.Sprintf(duplicatePathTemplateConstant, originalPath)}
		}
		seenPaths[normalizedPath] = declaration.Path

		if entryError := validateEntry(declaration.Path, declaration.Entry); entryError != nil {
			return entryError
		}
	}
	return nil
}

func validateChildPath(childPath string) (string, error) {
	trimmedPath := strings.TrimSpace(childPath)
	if len(trimmedPath) == 0 {
		return "", ConflictError{Entry: childPath, Message: emptyPathMessageConstant}
	}
	if filepath.IsAbs(trimmedPath) || strings.HasPrefix(filepath.ToSlash(trimmedPath), "/") {
		return "", ConflictError{Entry: childPath, Message: absolutePathMessageConstant}
	}
	cleanedPath := path.Clean(filepath.ToSlash(trimmedPath))
	if cleanedPath == parentDirectorySegmentConstant || strings.HasPrefix(cleanedPath, parentDirectorySegmentConstant+"/") {
		return "", ConflictError{Entry: childPath, Message: escapingPathMessageConstant}
	}
	normalizedPath := invocation.NormalizePath(trimmedPath)
	if len(normalizedPath) == 0 {
		return "", ConflictError{Entry: childPath, Message: emptyPathMessageConstant}
	}
	return normalizedPath, nil
}

func validateEntry(childPath string, entry RepoEntry) error {
	hasURL := len(strings.TrimSpace(entry.URL)) > 0
	hasLink := entry.IsLink()

	if entry.IsOverlay() {
		if hasURL {
			return ConflictError{Entry: childPath, Message: overlayWithURLMessageConstant}
		}
		if !hasLink {
			return ConflictError{Entry: childPath, Message: overlayWithoutLinkMessageConstant}
		}
	}
	if hasURL && hasLink {
		return ConflictError{Entry: childPath, Message: urlWithLinkMessageConstant}
	}
	if !hasURL && !hasLink {
		return ParseError{Entry: childPath, Message: missingURLMessageConstant}
	}
	if hasLink && (len(strings.TrimSpace(entry.Branch)) > 0 || entry.IsPinned()) {
		return ConflictError{Entry: childPath, Message: linkWithRevisionMessageConstant}
	}
	if entry.LinkNewest && !hasLink {
		return ConflictError{Entry: childPath, Message: newestWithoutLinkMessageConstant}
	}
	if len(entry.LinkFilter) > 0 {
		if !entry.LinkNewest {
			return ConflictError{Entry: childPath, Message: filterWithoutNewestMessageConstant}
		}
		if _, compileError := regexp.Compile(entry.LinkFilter); compileError != nil {
			return ConflictError{Entry: childPath, Message: fmt.Sprintf(invalidFilterTemplateConstant, compileError)}
		}
	}
	return nil
}
