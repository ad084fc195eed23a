package links

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

const (
	inspectLinkTemplateConstant  = "inspect link %s: %w"
	relativeLinkTemplateConstant = "compute relative link from %s to %s: %w"
)

// State describes how a path on disk compares with the link expected there.
type State int

// Supported link states.
const (
	// StateNonexistent means nothing exists at the link path.
	StateNonexistent State = iota
	// StateUnlinked means a real file or directory occupies the link path.
	StateUnlinked
	// StateUnaligned means a symlink exists but points somewhere else.
	StateUnaligned
	// StateAligned means the symlink points at the expected target.
	StateAligned
)

// String names the state.
func (state State) String() string {
	switch state {
	case StateNonexistent:
		return "nonexistent"
	case StateUnlinked:
		return "unlinked"
	case StateUnaligned:
		return "unaligned"
	case StateAligned:
		return "aligned"
	default:
		return fmt.Sprintf("State(%d)", int(state))
	}
}

// Inspection is the observed state of a link path.
type Inspection struct {
	State         State
	CurrentTarget string
}

// Inspect compares the filesystem entry at linkPath with expectedTarget.
func (resolver *Resolver) Inspect(linkPath string, expectedTarget string) (Inspection, error) {
	info, lstatError := resolver.fileSystem.Lstat(linkPath)
	if lstatError != nil {
		if errors.Is(lstatError, fs.ErrNotExist) {
			return Inspection{State: StateNonexistent}, nil
		}
		return Inspection{}, fmt.Errorf(inspectLinkTemplateConstant, linkPath, lstatError)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return Inspection{State: StateUnlinked}, nil
	}

	currentTarget, readError := resolver.fileSystem.Readlink(linkPath)
	if readError != nil {
		return Inspection{}, fmt.Errorf(inspectLinkTemplateConstant, linkPath, readError)
	}
	absoluteTarget := currentTarget
	if !filepath.IsAbs(absoluteTarget) {
		absoluteTarget = filepath.Join(filepath.Dir(linkPath), absoluteTarget)
	}
	if filepath.Clean(absoluteTarget) != filepath.Clean(expectedTarget) {
		return Inspection{State: StateUnaligned, CurrentTarget: absoluteTarget}, nil
	}
	return Inspection{State: StateAligned, CurrentTarget: absoluteTarget}, nil
}

// SymlinkText returns the text stored in the symlink at linkPath: a path relative to the
// link's directory when relative is set, otherwise the absolute target.
func SymlinkText(linkPath string, target string, relative bool) (string, error) {
	if !relative {
		return filepath.Clean(target), nil
	}
	relativeTarget, relError := filepath.Rel(filepath.Dir(linkPath), target)
	if relError != nil {
		return "", fmt.Errorf(relativeLinkTemplateConstant, linkPath, target, relError)
	}
	return relativeTarget, nil
}
