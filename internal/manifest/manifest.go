package manifest

import (
	"strings"

	"github.com/temirov/gitp/internal/invocation"
)

// DefaultFileName is the manifest file looked up in every repository directory.
const DefaultFileName = ".gitp_manifest"

// EntryType distinguishes ordinary declarations from overlays.
type EntryType string

// Supported entry types.
const (
	EntryTypeRepository EntryType = "repo"
	EntryTypeOverlay    EntryType = "overlay"
)

// RepoEntry declares one child of a repository.
type RepoEntry struct {
	URL        string    `yaml:"url,omitempty"`
	Branch     string    `yaml:"branch,omitempty"`
	Commit     string    `yaml:"commit,omitempty"`
	Type       EntryType `yaml:"type,omitempty"`
	Link       string    `yaml:"link,omitempty"`
	LinkNewest bool      `yaml:"link_newest,omitempty"`
	LinkFilter string    `yaml:"link_filter,omitempty"`
}

// IsOverlay reports whether the entry is an overlay declaration.
func (entry RepoEntry) IsOverlay() bool {
	return entry.Type == EntryTypeOverlay
}

// IsLink reports whether the entry points at a filesystem target instead of a remote.
func (entry RepoEntry) IsLink() bool {
	return len(strings.TrimSpace(entry.Link)) > 0
}

// Revision returns the synchronization target: the pinned commit when set, otherwise the branch.
func (entry RepoEntry) Revision() string {
	if commit := strings.TrimSpace(entry.Commit); len(commit) > 0 {
		return commit
	}
	return strings.TrimSpace(entry.Branch)
}

// IsPinned reports whether the entry is pinned to a commit.
func (entry RepoEntry) IsPinned() bool {
	return len(strings.TrimSpace(entry.Commit)) > 0
}

// Declaration pairs a child path with its entry.
type Declaration struct {
	Path  string
	Entry RepoEntry
}

// Manifest is the declared state of one repository's children and hooks.
type Manifest struct {
	declarations []Declaration
	PostClone    []string
	PostPull     []string
}

// New constructs an empty manifest.
func New() *Manifest {
	return &Manifest{}
}

// Declarations returns the declared children in declaration order.
func (manifest *Manifest) Declarations() []Declaration {
	if manifest == nil {
		return nil
	}
	return append([]Declaration{}, manifest.declarations...)
}

// Len returns the number of declared children.
func (manifest *Manifest) Len() int {
	if manifest == nil {
		return 0
	}
	return len(manifest.declarations)
}

// Lookup returns the entry declared for childPath.
func (manifest *Manifest) Lookup(childPath string) (RepoEntry, bool) {
	index := manifest.indexOf(childPath)
	if index < 0 {
		return RepoEntry{}, false
	}
	return manifest.declarations[index].Entry, true
}

// Set declares entry at childPath, replacing an existing declaration in place or appending a new one.
func (manifest *Manifest) Set(childPath string, entry RepoEntry) {
	normalizedPath := invocation.NormalizePath(childPath)
	if index := manifest.indexOf(normalizedPath); index >= 0 {
		manifest.declarations[index].Entry = entry
		return
	}
	manifest.declarations = append(manifest.declarations, Declaration{Path: normalizedPath, Entry: entry})
}

// Remove deletes the declaration at childPath and reports whether one existed.
func (manifest *Manifest) Remove(childPath string) bool {
	index := manifest.indexOf(childPath)
	if index < 0 {
		return false
	}
	manifest.declarations = append(manifest.declarations[:index], manifest.declarations[index+1:]...)
	return true
}

// Clone returns a deep copy of the manifest.
func (manifest *Manifest) Clone() *Manifest {
	if manifest == nil {
		return New()
	}
	return &Manifest{
		declarations: append([]Declaration{}, manifest.declarations...),
		PostClone:    append([]string(nil), manifest.PostClone...),
		PostPull:     append([]string(nil), manifest.PostPull...),
	}
}

func (manifest *Manifest) indexOf(childPath string) int {
	if manifest == nil {
		return -1
	}
	normalizedPath := invocation.NormalizePath(childPath)
	for index, declaration := range manifest.declarations {
		if invocation.NormalizePath(declaration.Path) == normalizedPath {
			return index
		}
	}
	return -1
}
