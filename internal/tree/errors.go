package tree

import (
	"fmt"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/invocation"
)

const (
	cyclicLinkTemplateConstant      = "link %s revisits %s"
	missingManifestTemplateConstant = "repository %s is expected at %s but does not exist"
	unknownNodeTemplateConstant     = "node %s is not part of the resolved tree"
)

// CyclicLinkError reports a link whose target revisits a directory already on the resolution path.
type CyclicLinkError struct {
	Path   string
	Target string
}

// Error describes the cycle.
func (cyclicError CyclicLinkError) Error() string {
	return fmt.Sprintf(cyclicLinkTemplateConstant, invocation.DisplayPath(cyclicError.Path), cyclicError.Target)
}

// Kind classifies the error.
func (CyclicLinkError) Kind() failures.Kind {
	return failures.KindCyclicLink
}

// MissingManifestError reports a node that is expected on disk but cannot be found.
type MissingManifestError struct {
	Path      string
	Directory string
}

// Error describes the missing repository.
func (missingError MissingManifestError) Error() string {
	return fmt.Sprintf(missingManifestTemplateConstant, invocation.DisplayPath(missingError.Path), missingError.Directory)
}

// Kind classifies the error.
func (MissingManifestError) Kind() failures.Kind {
	return failures.KindMissingManifest
}

// UnknownNodeError reports a lookup of a path absent from the tree.
type UnknownNodeError struct {
	Path string
}

// Error describes the missing node.
func (unknownError UnknownNodeError) Error() string {
	return fmt.Sprintf(unknownNodeTemplateConstant, invocation.DisplayPath(unknownError.Path))
}
