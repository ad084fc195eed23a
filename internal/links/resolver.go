package links

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
	pathutils "github.com/temirov/gitp/internal/utils/path"
)

const (
	searchDirectoryMissingTemplateConstant = "link search directory %s does not exist"
	noCandidateTemplateConstant            = "no subdirectory of %s matches %q"
	noCandidateUnfilteredTemplateConstant  = "no subdirectory of %s to link to"
	invalidFilterTemplateConstant          = "invalid link_filter %q: %v"
	readSearchDirectoryTemplateConstant    = "read link search directory %s: %v"
	emptyLinkMessageConstant               = "entry does not declare a link"
)

// Classification is the role an entry plays in the current invocation.
type Classification int

// Supported classifications.
const (
	OrdinaryRepo Classification = iota
	OrdinaryLink
	OverlayLink
	Ignored
)

// String names the classification.
func (classification Classification) String() string {
	switch classification {
	case OrdinaryRepo:
		return "OrdinaryRepo"
	case OrdinaryLink:
		return "OrdinaryLink"
	case OverlayLink:
		return "OverlayLink"
	case Ignored:
		return "Ignored"
	default:
		return fmt.Sprintf("Classification(%d)", int(classification))
	}
}

// TargetError reports a link target that cannot be resolved on disk.
type TargetError struct {
	Link    string
	Message string
}

// Error describes the unresolved target.
func (targetError TargetError) Error() string {
	return targetError.Message
}

// Kind classifies the error as a filesystem collaborator failure.
func (TargetError) Kind() failures.Kind {
	return failures.KindCollaboratorFailure
}

// Resolver classifies entries and resolves link targets.
type Resolver struct {
	fileSystem   shared.FileSystem
	homeExpander *pathutils.HomeExpander
}

// NewResolver constructs a Resolver. Nil arguments fall back to the operating system.
func NewResolver(fileSystem shared.FileSystem, homeExpander *pathutils.HomeExpander) *Resolver {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	return &Resolver{fileSystem: fileSystem, homeExpander: homeExpander}
}

// Classify decides how entry participates in the tree. Overlays owned by a manifest that is not
// the entry-point root are Ignored.
func (resolver *Resolver) Classify(entry manifest.RepoEntry, ownedByEntryPointRoot bool) Classification {
	if entry.IsOverlay() {
		if ownedByEntryPointRoot {
			return OverlayLink
		}
		return Ignored
	}
	if entry.IsLink() {
		return OrdinaryLink
	}
	return OrdinaryRepo
}

// Underlying returns the classification a path keeps when its overlay is ignored.
func Underlying(entry manifest.RepoEntry) Classification {
	if entry.IsLink() && !entry.IsOverlay() {
		return OrdinaryLink
	}
	return OrdinaryRepo
}

// ResolveTarget returns the absolute filesystem path entry links to. Relative links are joined
// onto baseDirectory; link_newest entries resolve to the most recently modified matching subdirectory.
func (resolver *Resolver) ResolveTarget(baseDirectory string, entry manifest.RepoEntry) (string, error) {
	declaredLink := strings.TrimSpace(entry.Link)
	if len(declaredLink) == 0 {
		return "", TargetError{Message: emptyLinkMessageConstant}
	}
	qualifiedLink := resolver.qualify(baseDirectory, declaredLink)
	if !entry.LinkNewest {
		return qualifiedLink, nil
	}
	return resolver.newestSubdirectory(declaredLink, qualifiedLink, entry.LinkFilter)
}

// IsRelative reports whether entry declares a relative link, which is materialized as a relative symlink.
func (resolver *Resolver) IsRelative(entry manifest.RepoEntry) bool {
	expanded := resolver.homeExpander.Expand(strings.TrimSpace(entry.Link))
	return !filepath.IsAbs(expanded)
}

func (resolver *Resolver) qualify(baseDirectory string, declaredLink string) string {
	expanded := resolver.homeExpander.Expand(declaredLink)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	return filepath.Join(baseDirectory, expanded)
}

func (resolver *Resolver) newestSubdirectory(declaredLink string, searchDirectory string, filter string) (string, error) {
	var filterExpression *regexp.Regexp
	if len(filter) > 0 {
		compiled, compileError := regexp.Compile(filter)
		if compileError != nil {
			return "", TargetError{Link: declaredLink, Message: fmt.Sprintf(invalidFilterTemplateConstant, filter, compileError)}
		}
		filterExpression = compiled
	}

	entries, readError := resolver.fileSystem.ReadDir(searchDirectory)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return "", TargetError{Link: declaredLink, Message: fmt.Sprintf(searchDirectoryMissingTemplateConstant, searchDirectory)}
		}
		return "", TargetError{Link: declaredLink, Message: fmt.Sprintf(readSearchDirectoryTemplateConstant, searchDirectory, readError)}
	}

	newestPath := ""
	var newestInfo fs.FileInfo
	for _, directoryEntry := range entries {
		if filterExpression != nil && !filterExpression.MatchString(directoryEntry.Name()) {
			continue
		}
		candidatePath := filepath.Join(searchDirectory, directoryEntry.Name())
		candidateInfo, statError := resolver.fileSystem.Stat(candidatePath)
		if statError != nil || !candidateInfo.IsDir() {
			continue
		}
		if newestInfo == nil || candidateInfo.ModTime().After(newestInfo.ModTime()) {
			newestPath = candidatePath
			newestInfo = candidateInfo
		}
	}

	if len(newestPath) == 0 {
		if filterExpression != nil {
			return "", TargetError{Link: declaredLink, Message: fmt.Sprintf(noCandidateTemplateConstant, searchDirectory, filter)}
		}
		return "", TargetError{Link: declaredLink, Message: fmt.Sprintf(noCandidateUnfilteredTemplateConstant, searchDirectory)}
	}
	return newestPath, nil
}
