package tree

import (
	"sort"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/manifest"
)

// OverlayDeclaration is an overlay entry of the entry-point root manifest.
type OverlayDeclaration struct {
	Path  string
	Entry manifest.RepoEntry
}

// Tree is the resolved composition tree of one invocation.
type Tree struct {
	invocation invocation.Context
	nodes      map[string]*Node
	overlays   []OverlayDeclaration
	failures   []failures.Failure
}

// Invocation returns the invocation context the tree was resolved for.
func (tree *Tree) Invocation() invocation.Context {
	return tree.invocation
}

// Root returns the entry-point root node.
func (tree *Tree) Root() *Node {
	return tree.nodes[""]
}

// Node returns the node at path.
func (tree *Tree) Node(nodePath string) (*Node, bool) {
	node, exists := tree.nodes[invocation.NormalizePath(nodePath)]
	return node, exists
}

// Children returns the child nodes of path in declaration order.
func (tree *Tree) Children(nodePath string) []*Node {
	parent, exists := tree.Node(nodePath)
	if !exists {
		return nil
	}
	children := make([]*Node, 0, len(parent.children))
	for _, childPath := range parent.children {
		if child, childExists := tree.nodes[childPath]; childExists {
			children = append(children, child)
		}
	}
	return children
}

// Nodes returns every node in pre-order.
func (tree *Tree) Nodes() []*Node {
	ordered := make([]*Node, 0, len(tree.nodes))
	var visit func(node *Node)
	visit = func(node *Node) {
		ordered = append(ordered, node)
		for _, child := range tree.Children(node.path) {
			visit(child)
		}
	}
	if root := tree.Root(); root != nil {
		visit(root)
	}
	return ordered
}

// Len returns the number of nodes.
func (tree *Tree) Len() int {
	return len(tree.nodes)
}

// Overlays returns the overlay declarations of the entry-point root manifest.
func (tree *Tree) Overlays() []OverlayDeclaration {
	return append([]OverlayDeclaration(nil), tree.overlays...)
}

// OverlayNodes returns the nodes substituted or attached by overlays, shallowest first.
func (tree *Tree) OverlayNodes() []*Node {
	var overlayNodes []*Node
	for _, node := range tree.Nodes() {
		if node.isOverlay {
			overlayNodes = append(overlayNodes, node)
		}
	}
	sort.SliceStable(overlayNodes, func(leftIndex int, rightIndex int) bool {
		return overlayNodes[leftIndex].depth < overlayNodes[rightIndex].depth
	})
	return overlayNodes
}

// Failures returns the resolution failures collected below the root, ordered by path.
func (tree *Tree) Failures() []failures.Failure {
	collector := failures.NewCollector()
	collector.Append(tree.failures...)
	return collector.Failures()
}

func (tree *Tree) copy() *Tree {
	nodes := make(map[string]*Node, len(tree.nodes))
	for nodePath, node := range tree.nodes {
		nodes[nodePath] = node
	}
	return &Tree{
		invocation: tree.invocation,
		nodes:      nodes,
		overlays:   append([]OverlayDeclaration(nil), tree.overlays...),
		failures:   append([]failures.Failure(nil), tree.failures...),
	}
}

// detachSubtree removes every descendant of nodePath and the failures recorded at or below it.
func (tree *Tree) detachSubtree(nodePath string) {
	for candidatePath := range tree.nodes {
		if invocation.IsAncestorPath(nodePath, candidatePath) {
			delete(tree.nodes, candidatePath)
		}
	}
	retained := tree.failures[:0]
	for _, failure := range tree.failures {
		if failure.Path == nodePath || invocation.IsAncestorPath(nodePath, failure.Path) {
			continue
		}
		retained = append(retained, failure)
	}
	tree.failures = retained
}

// nearestAncestor returns the deepest node that is a strict ancestor of nodePath.
func (tree *Tree) nearestAncestor(nodePath string) *Node {
	for candidatePath := invocation.ParentPath(nodePath); ; candidatePath = invocation.ParentPath(candidatePath) {
		if node, exists := tree.nodes[candidatePath]; exists {
			return node
		}
		if len(candidatePath) == 0 {
			return tree.Root()
		}
	}
}
