package tree

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/links"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
)

const (
	resolveRootTemplateConstant      = "resolve entry-point root %s: %w"
	duplicateNodeTemplateConstant    = "path already declared by %s"
	nodeResolvedMessageConstant      = "Resolved node"
	overlayAppliedMessageConstant    = "Applied overlay"
	overlayIgnoredMessageConstant    = "Ignoring overlay outside entry-point root"
	resolutionFailureMessageConstant = "Resolution failure"
	pathLogFieldConstant             = "path"
	targetLogFieldConstant           = "target"
	kindLogFieldConstant             = "kind"
	manifestLogFieldConstant         = "manifest"
	errorLogFieldConstant            = "error"
	overlaySourceLogFieldConstant    = "overlay_source"
	classificationLogFieldConstant   = "classification"
)

// Resolver builds composition trees from manifests.
type Resolver struct {
	store      *manifest.Store
	links      *links.Resolver
	fileSystem shared.FileSystem
	logger     *zap.Logger
}

// NewResolver constructs a Resolver. Nil collaborators fall back to operating system defaults.
func NewResolver(store *manifest.Store, linkResolver *links.Resolver, fileSystem shared.FileSystem, logger *zap.Logger) *Resolver {
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if store == nil {
		store = manifest.NewStore(fileSystem, manifest.DefaultFileName, logger)
	}
	if linkResolver == nil {
		linkResolver = links.NewResolver(fileSystem, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, links: linkResolver, fileSystem: fileSystem, logger: logger}
}

// Resolve builds the tree rooted at entryPointPath for a new invocation.
func (resolver *Resolver) Resolve(entryPointPath string) (*Tree, error) {
	absolutePath, absError := resolver.fileSystem.Abs(entryPointPath)
	if absError != nil {
		return nil, fmt.Errorf(resolveRootTemplateConstant, entryPointPath, absError)
	}
	return resolver.ResolveInvocation(invocation.New(filepath.Clean(absolutePath)))
}

// ResolveInvocation builds the tree for an existing invocation context. Failures of the root
// itself are returned; failures below it are collected in the tree.
func (resolver *Resolver) ResolveInvocation(invocationContext invocation.Context) (*Tree, error) {
	rootDirectory := invocationContext.EntryPointRoot()
	if !resolver.isDirectory(rootDirectory) {
		return nil, MissingManifestError{Directory: rootDirectory}
	}
	rootManifest, found, loadError := resolver.loadManifest(rootDirectory)
	if loadError != nil {
		return nil, loadError
	}

	root := &Node{directory: rootDirectory, sourceDirectory: rootDirectory}
	root.assignManifest(rootManifest, found)
	resolved := &Tree{invocation: invocationContext, nodes: map[string]*Node{"": root}}

	walk := &walker{resolver: resolver, tree: resolved}
	walk.expand(root, rootManifest, []string{rootDirectory})
	walk.applyOverlays("")
	walk.excludeLinkChains()
	return resolved, nil
}

// ResolveBelow returns a copy of resolved in which the subtree under nodePath is resolved again
// from disk with the original invocation context. It is used after a node is materialized.
func (resolver *Resolver) ResolveBelow(resolved *Tree, nodePath string) (*Tree, error) {
	normalizedPath := invocation.NormalizePath(nodePath)
	if len(normalizedPath) == 0 {
		return resolver.ResolveInvocation(resolved.invocation)
	}
	existing, exists := resolved.Node(normalizedPath)
	if !exists {
		return nil, UnknownNodeError{Path: normalizedPath}
	}
	if _, repoToRepo := existing.OverlaySource(); repoToRepo {
		return resolved, nil
	}
	if !resolver.isDirectory(existing.sourceDirectory) {
		return nil, MissingManifestError{Path: normalizedPath, Directory: existing.sourceDirectory}
	}

	updated := resolved.copy()
	ancestry := updated.ancestry(normalizedPath)
	updated.detachSubtree(normalizedPath)
	refreshed := existing.copy()
	refreshed.children = nil
	refreshed.assignManifest(nil, false)
	updated.nodes[normalizedPath] = refreshed

	walk := &walker{resolver: resolver, tree: updated}
	walk.descend(refreshed, ancestry)
	walk.applyOverlays(normalizedPath)
	walk.excludeLinkChains()
	return updated, nil
}

// loadManifest reads the manifest of directory. A missing manifest yields an empty one.
func (resolver *Resolver) loadManifest(directory string) (*manifest.Manifest, bool, error) {
	loaded, loadError := resolver.store.Load(directory)
	if errors.Is(loadError, manifest.ErrNotFound) {
		return manifest.New(), false, nil
	}
	if loadError != nil {
		return nil, false, loadError
	}
	return loaded, true, nil
}

func (resolver *Resolver) isDirectory(directory string) bool {
	info, statError := resolver.fileSystem.Stat(directory)
	return statError == nil && info.IsDir()
}

type walker struct {
	resolver *Resolver
	tree     *Tree
}

// expand declares the children of node from its manifest and descends into each of them.
func (walk *walker) expand(node *Node, declared *manifest.Manifest, stack []string) {
	owningManifestPath := walk.resolver.store.PathFor(node.sourceDirectory)
	for _, declaration := range declared.Declarations() {
		childPath := invocation.JoinPath(node.path, declaration.Path)
		entry := declaration.Entry
		classification := walk.resolver.links.Classify(entry, node.IsRoot())

		switch classification {
		case links.Ignored:
			walk.resolver.logger.Debug(overlayIgnoredMessageConstant, zap.String(pathLogFieldConstant, invocation.DisplayPath(childPath)), zap.String(manifestLogFieldConstant, owningManifestPath))
			continue
		case links.OverlayLink:
			walk.tree.overlays = append(walk.tree.overlays, OverlayDeclaration{Path: childPath, Entry: entry})
			continue
		}

		if existing, duplicate := walk.tree.nodes[childPath]; duplicate {
			walk.record(childPath, manifest.ConflictError{File: owningManifestPath, Entry: declaration.Path, Message: fmt.Sprintf(duplicateNodeTemplateConstant, existing.owningManifestPath)})
			continue
		}

		child := &Node{
			path:               childPath,
			directory:          walk.tree.invocation.DirectoryOf(childPath),
			sourceDirectory:    filepath.Join(node.sourceDirectory, filepath.FromSlash(invocation.NormalizePath(declaration.Path))),
			owningManifestPath: owningManifestPath,
			entry:              entry,
			depth:              node.depth + 1,
		}

		if classification == links.OrdinaryLink {
			linkTarget, targetError := walk.resolver.links.ResolveTarget(node.sourceDirectory, entry)
			if targetError != nil {
				walk.record(childPath, targetError)
				continue
			}
			if revisits(linkTarget, stack) {
				walk.record(childPath, CyclicLinkError{Path: childPath, Target: linkTarget})
				continue
			}
			child.isLink = true
			child.relativeLink = walk.resolver.links.IsRelative(entry)
			child.target = Target{LinkPath: linkTarget}
			child.sourceDirectory = linkTarget
		} else {
			child.target = Target{URL: strings.TrimSpace(entry.URL), Branch: strings.TrimSpace(entry.Branch), Commit: strings.TrimSpace(entry.Commit)}
		}

		node.children = append(node.children, childPath)
		walk.tree.nodes[childPath] = child
		walk.resolver.logger.Debug(nodeResolvedMessageConstant, zap.String(pathLogFieldConstant, childPath), zap.String(classificationLogFieldConstant, classification.String()), zap.String(targetLogFieldConstant, child.target.String()))
		walk.descend(child, stack)
	}
}

// descend expands node when its working tree or link target exists on disk.
func (walk *walker) descend(node *Node, stack []string) {
	if !walk.resolver.isDirectory(node.sourceDirectory) {
		return
	}
	declared, found, loadError := walk.resolver.loadManifest(node.sourceDirectory)
	if loadError != nil {
		walk.record(node.path, loadError)
		return
	}
	node.assignManifest(declared, found)
	if !found {
		return
	}
	walk.expand(node, declared, append(append([]string(nil), stack...), node.sourceDirectory))
}

// applyOverlays substitutes or attaches the root overlays located strictly below scope, or all
// of them when scope is the root.
func (walk *walker) applyOverlays(scope string) {
	declarations := walk.tree.Overlays()
	sort.SliceStable(declarations, func(leftIndex int, rightIndex int) bool {
		return strings.Count(declarations[leftIndex].Path, "/") < strings.Count(declarations[rightIndex].Path, "/")
	})

	rootDirectory := walk.tree.invocation.EntryPointRoot()
	for _, declaration := range declarations {
		if len(scope) > 0 && !invocation.IsAncestorPath(scope, declaration.Path) {
			continue
		}
		overlayTarget, targetError := walk.resolver.links.ResolveTarget(rootDirectory, declaration.Entry)
		if targetError != nil {
			walk.record(declaration.Path, targetError)
			continue
		}
		logicalDirectory := walk.tree.invocation.DirectoryOf(declaration.Path)
		if revisits(overlayTarget, []string{logicalDirectory}) || revisits(logicalDirectory, []string{overlayTarget}) {
			walk.record(declaration.Path, CyclicLinkError{Path: declaration.Path, Target: overlayTarget})
			continue
		}

		overlayNode := &Node{
			path:               declaration.Path,
			directory:          logicalDirectory,
			sourceDirectory:    overlayTarget,
			owningManifestPath: walk.resolver.store.PathFor(rootDirectory),
			entry:              declaration.Entry,
			target:             Target{LinkPath: overlayTarget},
			isLink:             true,
			isOverlay:          true,
			relativeLink:       walk.resolver.links.IsRelative(declaration.Entry),
		}
		for candidatePath, candidate := range walk.tree.nodes {
			if candidatePath != declaration.Path && candidate.directory == overlayTarget {
				overlayNode.overlaySource = candidatePath
				overlayNode.hasOverlaySource = true
				break
			}
		}

		if existing, exists := walk.tree.nodes[declaration.Path]; exists {
			overlayNode.depth = existing.depth
			walk.tree.detachSubtree(declaration.Path)
		} else {
			ancestor := walk.tree.nearestAncestor(declaration.Path).copy()
			ancestor.children = append(ancestor.children, declaration.Path)
			walk.tree.nodes[ancestor.path] = ancestor
			overlayNode.depth = ancestor.depth + 1
		}
		walk.tree.nodes[declaration.Path] = overlayNode
		walk.resolver.logger.Debug(overlayAppliedMessageConstant, zap.String(pathLogFieldConstant, declaration.Path), zap.String(targetLogFieldConstant, overlayTarget), zap.String(overlaySourceLogFieldConstant, overlayNode.overlaySource))

		if !overlayNode.hasOverlaySource {
			walk.descend(overlayNode, []string{rootDirectory})
		}
	}
}

// excludeLinkChains follows every link through the links it points at and removes the links
// whose chain returns to a directory already visited, including a link to itself or below itself.
func (walk *walker) excludeLinkChains() {
	linksByDirectory := map[string]*Node{}
	var linkPaths []string
	for nodePath, node := range walk.tree.nodes {
		if node.isLink {
			linksByDirectory[filepath.Clean(node.directory)] = node
			linkPaths = append(linkPaths, nodePath)
		}
	}
	sort.Strings(linkPaths)

	var cyclic []*Node
	for _, linkPath := range linkPaths {
		start := walk.tree.nodes[linkPath]
		visited := map[string]bool{}
		for current := start; current != nil; {
			visited[filepath.Clean(current.directory)] = true
			target := filepath.Clean(current.target.LinkPath)
			if visited[target] || revisits(target, []string{current.directory}) || strings.HasPrefix(target, filepath.Clean(current.directory)+string(filepath.Separator)) {
				cyclic = append(cyclic, start)
				break
			}
			current = linksByDirectory[target]
		}
	}

	for _, node := range cyclic {
		if _, present := walk.tree.nodes[node.path]; !present {
			continue
		}
		walk.exclude(node.path)
		walk.record(node.path, CyclicLinkError{Path: node.path, Target: node.target.LinkPath})
	}
}

// exclude removes nodePath and its subtree from the tree and from its parent's children.
func (walk *walker) exclude(nodePath string) {
	if parent := walk.tree.parentOf(nodePath); parent != nil {
		detached := parent.copy()
		retained := detached.children[:0]
		for _, childPath := range detached.children {
			if childPath != nodePath {
				retained = append(retained, childPath)
			}
		}
		detached.children = retained
		walk.tree.nodes[detached.path] = detached
	}
	walk.tree.detachSubtree(nodePath)
	delete(walk.tree.nodes, nodePath)
}

func (walk *walker) record(nodePath string, failure error) {
	walk.tree.failures = append(walk.tree.failures, failures.NewFailure(nodePath, failure))
	walk.resolver.logger.Warn(resolutionFailureMessageConstant, zap.String(pathLogFieldConstant, invocation.DisplayPath(nodePath)), zap.String(kindLogFieldConstant, string(failures.KindOf(failure))), zap.String(errorLogFieldConstant, failure.Error()))
}

// revisits reports whether target is one of the directories on the stack or an ancestor of one.
func revisits(target string, stack []string) bool {
	cleanedTarget := filepath.Clean(target)
	for _, directory := range stack {
		cleanedDirectory := filepath.Clean(directory)
		if cleanedDirectory == cleanedTarget {
			return true
		}
		if strings.HasPrefix(cleanedDirectory, strings.TrimSuffix(cleanedTarget, string(filepath.Separator))+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (node *Node) assignManifest(declared *manifest.Manifest, found bool) {
	node.hasManifest = found
	node.postClone = nil
	node.postPull = nil
	if declared != nil {
		node.postClone = append([]string(nil), declared.PostClone...)
		node.postPull = append([]string(nil), declared.PostPull...)
	}
}

// ancestry returns the source directories from the root down to nodePath.
func (tree *Tree) ancestry(nodePath string) []string {
	var chain []string
	for currentPath := nodePath; ; {
		parent := tree.parentOf(currentPath)
		if parent == nil {
			break
		}
		chain = append([]string{parent.sourceDirectory}, chain...)
		if parent.IsRoot() {
			break
		}
		currentPath = parent.path
	}
	return chain
}

// parentOf returns the node listing nodePath among its children.
func (tree *Tree) parentOf(nodePath string) *Node {
	for _, candidate := range tree.nodes {
		for _, childPath := range candidate.children {
			if childPath == nodePath {
				return candidate
			}
		}
	}
	return nil
}
