package treesync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	homePrefixConstant                = "~"
	declaredLinkMessageConstant       = "Declared link"
	declaredOverlayMessageConstant    = "Declared overlay"
	removedLinkMessageConstant        = "Removed link declaration"
	declaredRepositoryMessageConstant = "Declared repository"
	withdrawnMessageConstant          = "Withdrew repository declaration after failed clone"
	manifestLogFieldConstant          = "manifest"
	unlinkedTemplateConstant          = "UNLINKED: %s\n"
	declarationErrorTemplateConstant  = "%w: %s"
)

// LinkOptions describe a link declaration. Source is absolute, home-relative, or relative to the
// entry-point root.
type LinkOptions struct {
	Source  string
	Overlay bool
	Newest  bool
	Filter  string
	Force   bool
}

// UnlinkOptions describe a link removal. URL and Branch replace an ordinary link with a repository
// declaration; without URL the declaration is removed.
type UnlinkOptions struct {
	Overlay bool
	URL     string
	Branch  string
}

// CreateLink declares a link at nodePath and materializes it. Ordinary links are persisted in the
// manifest of the repository immediately containing nodePath; overlays in the entry-point root manifest.
func (engine *Engine) CreateLink(executionContext context.Context, resolved *tree.Tree, nodePath string, options LinkOptions) (Result, error) {
	normalizedPath := invocation.NormalizePath(nodePath)
	if len(normalizedPath) == 0 {
		return Result{}, ErrRootOperation
	}
	invocationContext := resolved.Invocation()
	rootDirectory := invocationContext.EntryPointRoot()
	linkPath := invocationContext.DirectoryOf(normalizedPath)

	probe := manifest.RepoEntry{Link: options.Source, LinkNewest: options.Newest, LinkFilter: options.Filter}
	sourceDirectory, targetError := engine.links.ResolveTarget(rootDirectory, probe)
	if targetError != nil && !options.Force {
		return Result{}, targetError
	}
	if targetError == nil && filepath.Clean(sourceDirectory) == filepath.Clean(linkPath) {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrSelfLink, normalizedPath)
	}
	if targetError == nil && !options.Force {
		if info, statError := engine.fileSystem.Stat(sourceDirectory); statError != nil || !info.IsDir() {
			return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrLinkSourceMissing, options.Source)
		}
	}

	var (
		declaringPath string
		childPath     string
		entry         manifest.RepoEntry
		newChild      bool
	)
	transaction := engine.store.Begin()
	if options.Overlay {
		declaringPath = ""
		childPath = normalizedPath
		entry = manifest.RepoEntry{Type: manifest.EntryTypeOverlay, Link: options.Source, LinkNewest: options.Newest, LinkFilter: options.Filter}
		declared, loadError := transaction.Manifest(rootDirectory)
		if loadError != nil {
			return Result{}, loadError
		}
		if previous, found := declared.Lookup(childPath); found && !previous.IsOverlay() {
			return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrAlreadyDeclared, normalizedPath)
		}
	} else {
		if existing, exists := resolved.Node(normalizedPath); exists && existing.IsOverlay() {
			return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrOverlayTarget, normalizedPath)
		}
		declaringNode, declaringError := declaringAncestor(resolved, normalizedPath)
		if declaringError != nil {
			return Result{}, declaringError
		}
		declaringPath = declaringNode.Path()
		childPath = relativeTreePath(declaringPath, normalizedPath)

		declared, loadError := transaction.Manifest(declaringNode.Directory())
		if loadError != nil {
			return Result{}, loadError
		}
		previous, found := declared.Lookup(childPath)
		newChild = !found
		entry = manifest.RepoEntry{
			Type:       previous.Type,
			Link:       declaredLinkText(rootDirectory, declaringNode.Directory(), options.Source),
			LinkNewest: options.Newest,
			LinkFilter: options.Filter,
		}
		if entry.Type == manifest.EntryTypeOverlay {
			entry.Type = ""
		}
	}

	if !options.Force {
		if localError := engine.refuseLocalContent(executionContext, resolved, normalizedPath, linkPath); localError != nil {
			return Result{}, localError
		}
	}

	declaringDirectory := invocationContext.DirectoryOf(declaringPath)
	updateError := transaction.Update(declaringDirectory, func(declared *manifest.Manifest) error {
		declared.Set(childPath, entry)
		return nil
	})
	if updateError != nil {
		return Result{}, updateError
	}
	if commitError := transaction.Commit(); commitError != nil {
		return Result{}, commitError
	}
	if newChild {
		if ignoreError := engine.ignoreChild(declaringDirectory, childPath); ignoreError != nil {
			return Result{}, CollaboratorFailureError{Path: normalizedPath, Operation: linkOperationConstant, Err: ignoreError}
		}
	}
	message := declaredLinkMessageConstant
	if options.Overlay {
		message = declaredOverlayMessageConstant
	}
	engine.logger.Info(message, zap.String(pathLogFieldConstant, normalizedPath), zap.String(targetLogFieldConstant, entry.Link), zap.String(manifestLogFieldConstant, engine.store.PathFor(declaringDirectory)))

	return engine.synchronizePath(executionContext, resolved, normalizedPath, shared.CleanWorktreeOptional)
}

// RemoveLink withdraws the link or overlay declared at nodePath and materializes whatever the path
// resolves to afterwards.
func (engine *Engine) RemoveLink(executionContext context.Context, resolved *tree.Tree, nodePath string, options UnlinkOptions) (Result, error) {
	normalizedPath := invocation.NormalizePath(nodePath)
	if len(normalizedPath) == 0 {
		return Result{}, ErrRootOperation
	}
	invocationContext := resolved.Invocation()
	transaction := engine.store.Begin()

	var declaringDirectory string
	if options.Overlay {
		declaringDirectory = invocationContext.EntryPointRoot()
		updateError := transaction.Update(declaringDirectory, func(declared *manifest.Manifest) error {
			entry, found := declared.Lookup(normalizedPath)
			if !found || !entry.IsOverlay() {
				return fmt.Errorf(declarationErrorTemplateConstant, ErrOverlayNotDeclared, normalizedPath)
			}
			declared.Remove(normalizedPath)
			return nil
		})
		if updateError != nil {
			return Result{}, updateError
		}
	} else {
		node, exists := resolved.Node(normalizedPath)
		if !exists {
			return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, normalizedPath)
		}
		if node.IsOverlay() {
			return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrOverlayTarget, normalizedPath)
		}
		if !node.IsLink() {
			return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrNotLinked, normalizedPath)
		}
		declaringNode, declaringError := declaringAncestor(resolved, normalizedPath)
		if declaringError != nil {
			return Result{}, declaringError
		}
		declaringDirectory = declaringNode.Directory()
		childPath := relativeTreePath(declaringNode.Path(), normalizedPath)
		updateError := transaction.Update(declaringDirectory, func(declared *manifest.Manifest) error {
			if _, found := declared.Lookup(childPath); !found {
				return fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, normalizedPath)
			}
			if url := strings.TrimSpace(options.URL); len(url) > 0 {
				declared.Set(childPath, manifest.RepoEntry{URL: url, Branch: strings.TrimSpace(options.Branch)})
				return nil
			}
			declared.Remove(childPath)
			return nil
		})
		if updateError != nil {
			return Result{}, updateError
		}
	}
	if commitError := transaction.Commit(); commitError != nil {
		return Result{}, commitError
	}
	engine.logger.Info(removedLinkMessageConstant, zap.String(pathLogFieldConstant, normalizedPath), zap.String(manifestLogFieldConstant, engine.store.PathFor(declaringDirectory)))

	linkPath := invocationContext.DirectoryOf(normalizedPath)
	if info, statError := engine.fileSystem.Lstat(linkPath); statError == nil && info.Mode()&fs.ModeSymlink != 0 {
		if removeError := engine.fileSystem.Remove(linkPath); removeError != nil {
			return Result{}, CollaboratorFailureError{Path: normalizedPath, Operation: linkOperationConstant, Err: removeError}
		}
		engine.reporter.Printf(unlinkedTemplateConstant, normalizedPath)
	}

	return engine.synchronizePath(executionContext, resolved, normalizedPath, shared.CleanWorktreePolicyFromForce(engine.options.Force))
}

// AddRepository declares a new repository at nodePath in the manifest of the repository immediately
// containing it and clones it with its subtree. The declaration is withdrawn when the clone fails.
func (engine *Engine) AddRepository(executionContext context.Context, resolved *tree.Tree, nodePath string, entry manifest.RepoEntry) (Result, error) {
	normalizedPath := invocation.NormalizePath(nodePath)
	if len(normalizedPath) == 0 {
		return Result{}, ErrRootOperation
	}
	if _, exists := resolved.Node(normalizedPath); exists {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrAlreadyDeclared, normalizedPath)
	}
	invocationContext := resolved.Invocation()
	destination := invocationContext.DirectoryOf(normalizedPath)
	present, presenceError := engine.exists(destination)
	if presenceError != nil {
		return Result{}, presenceError
	}
	if present {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrDestinationExists, destination)
	}
	declaringNode, declaringError := declaringAncestor(resolved, normalizedPath)
	if declaringError != nil {
		return Result{}, declaringError
	}
	declaringDirectory := declaringNode.Directory()
	childPath := relativeTreePath(declaringNode.Path(), normalizedPath)

	transaction := engine.store.Begin()
	updateError := transaction.Update(declaringDirectory, func(declared *manifest.Manifest) error {
		if _, found := declared.Lookup(childPath); found {
			return fmt.Errorf(declarationErrorTemplateConstant, ErrAlreadyDeclared, normalizedPath)
		}
		declared.Set(childPath, entry)
		return nil
	})
	if updateError != nil {
		return Result{}, updateError
	}
	if commitError := transaction.Commit(); commitError != nil {
		return Result{}, commitError
	}
	engine.logger.Info(declaredRepositoryMessageConstant, zap.String(pathLogFieldConstant, normalizedPath), zap.String(manifestLogFieldConstant, engine.store.PathFor(declaringDirectory)))

	result, syncError := engine.synchronizePath(executionContext, resolved, normalizedPath, shared.CleanWorktreeRequired)
	if cloned, _ := engine.exists(destination); cloned {
		if ignoreError := engine.ignoreChild(declaringDirectory, childPath); ignoreError != nil {
			return result, errors.Join(syncError, CollaboratorFailureError{Path: normalizedPath, Operation: cloneOperationConstant, Err: ignoreError})
		}
		return result, syncError
	}

	withdrawal := engine.store.Begin()
	withdrawError := withdrawal.Update(declaringDirectory, func(declared *manifest.Manifest) error {
		declared.Remove(childPath)
		return nil
	})
	if withdrawError == nil {
		withdrawError = withdrawal.Commit()
	}
	engine.logger.Warn(withdrawnMessageConstant, zap.String(pathLogFieldConstant, normalizedPath), zap.Error(withdrawError))
	if withdrawError != nil {
		return result, errors.Join(syncError, withdrawError)
	}
	return result, syncError
}

// synchronizePath re-resolves the tree after a declaration change and materializes nodePath,
// cloning the subtree of a freshly cloned repository.
func (engine *Engine) synchronizePath(executionContext context.Context, resolved *tree.Tree, nodePath string, policy shared.CleanWorktreePolicy) (Result, error) {
	state := newRun()
	refreshed, resolveError := engine.resolver.ResolveBelow(resolved, "")
	if resolveError != nil {
		return Result{}, resolveError
	}
	node, exists := refreshed.Node(nodePath)
	if !exists {
		return state.result(refreshed), nil
	}

	if node.IsLink() {
		changed, linkError := engine.ensureLink(executionContext, refreshed, node, policy)
		if linkError != nil {
			engine.fail(state, nodePath, linkError)
		} else if changed {
			state.markChanged(nodePath)
		}
		return state.result(refreshed), executionContext.Err()
	}

	present, presenceError := engine.exists(node.Directory())
	if presenceError != nil {
		engine.fail(state, nodePath, CollaboratorFailureError{Path: nodePath, Operation: inspectOperationConstant, Err: presenceError})
		return state.result(refreshed), nil
	}
	if present {
		return state.result(refreshed), nil
	}
	if _, _, cloneError := engine.cloneAbsent(executionContext, state, refreshed, node); cloneError != nil {
		return state.result(refreshed), cloneError
	}

	final, finalError := engine.resolver.ResolveBelow(refreshed, "")
	if finalError != nil {
		return state.result(refreshed), finalError
	}
	return state.result(final), executionContext.Err()
}

// refuseLocalContent fails when the real directory at linkPath holds work a link would discard.
func (engine *Engine) refuseLocalContent(executionContext context.Context, resolved *tree.Tree, nodePath string, linkPath string) error {
	info, statError := engine.fileSystem.Lstat(linkPath)
	if errors.Is(statError, fs.ErrNotExist) {
		return nil
	}
	if statError != nil {
		return CollaboratorFailureError{Path: nodePath, Operation: inspectOperationConstant, Err: statError}
	}
	if !info.IsDir() {
		return nil
	}
	dirty, dirtyError := engine.hasLocalContent(executionContext, resolved, nodePath, linkPath)
	if dirtyError != nil {
		return CollaboratorFailureError{Path: nodePath, Operation: inspectOperationConstant, Err: dirtyError}
	}
	if dirty {
		return LocalChangesError{Path: nodePath}
	}
	return nil
}

// declaringAncestor returns the nearest node above nodePath, whose manifest declares it. Repositories
// reached through a link are refused because their manifests belong to the link target.
func declaringAncestor(resolved *tree.Tree, nodePath string) (*tree.Node, error) {
	candidatePath := invocation.ParentPath(nodePath)
	declaring, exists := resolved.Node(candidatePath)
	for !exists {
		candidatePath = invocation.ParentPath(candidatePath)
		declaring, exists = resolved.Node(candidatePath)
	}
	for ancestorPath := declaring.Path(); ; ancestorPath = invocation.ParentPath(ancestorPath) {
		ancestor, found := resolved.Node(ancestorPath)
		if found && ancestor.IsLink() {
			return nil, fmt.Errorf(declarationErrorTemplateConstant, ErrLinkedParent, invocation.DisplayPath(ancestorPath))
		}
		if len(ancestorPath) == 0 {
			break
		}
	}
	return declaring, nil
}

func relativeTreePath(ancestorPath string, nodePath string) string {
	if len(ancestorPath) == 0 {
		return nodePath
	}
	return strings.TrimPrefix(nodePath, ancestorPath+"/")
}

// declaredLinkText rewrites a source relative to the entry-point root so it is relative to the
// declaring repository. Absolute and home-relative sources are kept as written.
func declaredLinkText(rootDirectory string, declaringDirectory string, source string) string {
	trimmed := strings.TrimSpace(source)
	if filepath.IsAbs(trimmed) || strings.HasPrefix(trimmed, homePrefixConstant) {
		return trimmed
	}
	relative, relError := filepath.Rel(declaringDirectory, filepath.Join(rootDirectory, trimmed))
	if relError != nil {
		return filepath.Join(rootDirectory, trimmed)
	}
	return filepath.ToSlash(relative)
}
