package tree

import (
	"fmt"

	"github.com/temirov/gitp/internal/manifest"
)

const (
	repositoryTargetTemplateConstant = "%s@%s"
)

// Target is the resolved synchronization target of a node: a remote at a revision, or a filesystem path.
type Target struct {
	URL      string
	Branch   string
	Commit   string
	LinkPath string
}

// Revision returns the commit when pinned, otherwise the branch.
func (target Target) Revision() string {
	if len(target.Commit) > 0 {
		return target.Commit
	}
	return target.Branch
}

// IsLink reports whether the target is a filesystem path.
func (target Target) IsLink() bool {
	return len(target.LinkPath) > 0
}

// String renders the target for reports.
func (target Target) String() string {
	if target.IsLink() {
		return target.LinkPath
	}
	if revision := target.Revision(); len(revision) > 0 {
		return fmt.Sprintf(repositoryTargetTemplateConstant, target.URL, revision)
	}
	return target.URL
}

// Node is one resolved position in the composition tree. Nodes are created by Resolver only.
type Node struct {
	path               string
	directory          string
	sourceDirectory    string
	owningManifestPath string
	entry              manifest.RepoEntry
	target             Target
	isLink             bool
	isOverlay          bool
	relativeLink       bool
	overlaySource      string
	hasOverlaySource   bool
	children           []string
	depth              int
	hasManifest        bool
	postClone          []string
	postPull           []string
}

// Path returns the slash-separated tree path; the root path is empty.
func (node *Node) Path() string {
	return node.path
}

// IsRoot reports whether the node is the entry-point root.
func (node *Node) IsRoot() bool {
	return len(node.path) == 0
}

// Directory returns the location of the node inside the entry-point root.
func (node *Node) Directory() string {
	return node.directory
}

// OwningManifestPath returns the manifest file that declared the node. It is empty for the root.
func (node *Node) OwningManifestPath() string {
	return node.owningManifestPath
}

// Entry returns the declaration the node was resolved from.
func (node *Node) Entry() manifest.RepoEntry {
	return node.entry
}

// EffectiveTarget returns the resolved synchronization target.
func (node *Node) EffectiveTarget() Target {
	return node.target
}

// IsLink reports whether the node is materialized as a symbolic link.
func (node *Node) IsLink() bool {
	return node.isLink
}

// IsOverlay reports whether the node was substituted by an overlay of the entry-point root.
func (node *Node) IsOverlay() bool {
	return node.isOverlay
}

// RelativeLink reports whether the link was declared with a relative target.
func (node *Node) RelativeLink() bool {
	return node.relativeLink
}

// OverlaySource returns the tree path of the node a repo-to-repo overlay points at.
func (node *Node) OverlaySource() (string, bool) {
	return node.overlaySource, node.hasOverlaySource
}

// Children returns the child paths in declaration order.
func (node *Node) Children() []string {
	return append([]string(nil), node.children...)
}

// Depth returns the distance from the entry-point root.
func (node *Node) Depth() int {
	return node.depth
}

// HasManifest reports whether a manifest was found for the node.
func (node *Node) HasManifest() bool {
	return node.hasManifest
}

// PostClone returns the node's own post_clone hooks.
func (node *Node) PostClone() []string {
	return append([]string(nil), node.postClone...)
}

// PostPull returns the node's own post_pull hooks.
func (node *Node) PostPull() []string {
	return append([]string(nil), node.postPull...)
}

func (node *Node) copy() *Node {
	duplicate := *node
	duplicate.children = append([]string(nil), node.children...)
	return &duplicate
}
