package manifest

import (
	"errors"
	"fmt"

	"github.com/temirov/gitp/internal/failures"
)

const (
	manifestErrorWithEntryTemplateConstant = "manifest %s: entry %q: %s"
	manifestErrorTemplateConstant          = "manifest %s: %s"
	unknownManifestFileLabelConstant       = "<memory>"
)

// ErrNotFound indicates that a directory has no manifest file.
var ErrNotFound = errors.New("manifest not found")

// ParseError reports a malformed manifest document.
type ParseError struct {
	File    string
	Entry   string
	Message string
}

// Error describes the malformed document.
func (parseError ParseError) Error() string {
	return describeManifestError(parseError.File, parseError.Entry, parseError.Message)
}

// Kind classifies the error.
func (ParseError) Kind() failures.Kind {
	return failures.KindManifestParse
}

// ConflictError reports declarations that cannot hold together.
type ConflictError struct {
	File    string
	Entry   string
	Message string
}

// Error describes the conflicting declaration.
func (conflictError ConflictError) Error() string {
	return describeManifestError(conflictError.File, conflictError.Entry, conflictError.Message)
}

// Kind classifies the error.
func (ConflictError) Kind() failures.Kind {
	return failures.KindManifestConflict
}

func describeManifestError(file string, entry string, message string) string {
	if len(file) == 0 {
		file = unknownManifestFileLabelConstant
	}
	if len(entry) == 0 {
		return fmt.Sprintf(manifestErrorTemplateConstant, file, message)
	}
	return fmt.Sprintf(manifestErrorWithEntryTemplateConstant, file, entry, message)
}

// attachFile records the manifest file on parse and conflict errors.
func attachFile(err error, file string) error {
	var parseError ParseError
	if errors.As(err, &parseError) {
		parseError.File = file
		return parseError
	}
	var conflictError ConflictError
	if errors.As(err, &conflictError) {
		conflictError.File = file
		return conflictError
	}
	return err
}
