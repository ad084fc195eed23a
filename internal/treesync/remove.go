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
	"github.com/temirov/gitp/internal/tree"
)

const (
	removeOperationConstant          = "remove"
	removedTemplateConstant          = "REMOVED: %s\n"
	removedRepositoryMessageConstant = "Removed repository declaration"
)

// RemoveOptions describe a repository removal.
type RemoveOptions struct {
	Force bool
}

// RemoveRepository withdraws the declaration of nodePath from the manifest of the repository
// immediately containing it, drops its .gitignore line, and deletes its directory or link. Removal
// is refused while the node or a repository below it holds local changes, unless forced.
func (engine *Engine) RemoveRepository(executionContext context.Context, resolved *tree.Tree, nodePath string, options RemoveOptions) (Result, error) {
	normalizedPath := invocation.NormalizePath(nodePath)
	if len(normalizedPath) == 0 {
		return Result{}, ErrRootOperation
	}
	node, exists := resolved.Node(normalizedPath)
	if !exists {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, normalizedPath)
	}
	if node.IsOverlay() {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrOverlayTarget, normalizedPath)
	}
	declaringNode, declaringError := declaringAncestor(resolved, normalizedPath)
	if declaringError != nil {
		return Result{}, declaringError
	}
	if !options.Force {
		if modifiedError := engine.refuseModifiedSubtree(executionContext, resolved, normalizedPath); modifiedError != nil {
			return Result{}, modifiedError
		}
	}

	declaringDirectory := declaringNode.Directory()
	childPath := relativeTreePath(declaringNode.Path(), normalizedPath)
	transaction := engine.store.Begin()
	updateError := transaction.Update(declaringDirectory, func(declared *manifest.Manifest) error {
		if _, found := declared.Lookup(childPath); !found {
			return fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, normalizedPath)
		}
		declared.Remove(childPath)
		return nil
	})
	if updateError != nil {
		return Result{}, updateError
	}
	if commitError := transaction.Commit(); commitError != nil {
		return Result{}, commitError
	}
	engine.logger.Info(removedRepositoryMessageConstant, zap.String(pathLogFieldConstant, normalizedPath), zap.String(manifestLogFieldConstant, engine.store.PathFor(declaringDirectory)))

	if ignoreError := engine.unignoreChild(declaringDirectory, childPath); ignoreError != nil {
		return Result{}, CollaboratorFailureError{Path: normalizedPath, Operation: removeOperationConstant, Err: ignoreError}
	}
	if deleteError := engine.deleteNodeDirectory(node); deleteError != nil {
		return Result{}, CollaboratorFailureError{Path: normalizedPath, Operation: removeOperationConstant, Err: deleteError}
	}
	engine.reporter.Printf(removedTemplateConstant, normalizedPath)

	state := newRun()
	state.markChanged(normalizedPath)
	refreshed, resolveError := engine.resolver.ResolveBelow(resolved, "")
	if resolveError != nil {
		return state.result(resolved), resolveError
	}
	return state.result(refreshed), nil
}

// refuseModifiedSubtree fails with one LocalChangesError per cloned repository at or below nodePath
// that holds local changes. Links are not inspected because deleting them leaves their targets intact.
func (engine *Engine) refuseModifiedSubtree(executionContext context.Context, resolved *tree.Tree, nodePath string) error {
	var (
		refusals    []error
		linkedPaths []string
	)
	for _, node := range resolved.Nodes() {
		if node.Path() != nodePath && !strings.HasPrefix(node.Path(), nodePath+"/") {
			continue
		}
		if node.IsLink() {
			linkedPaths = append(linkedPaths, node.Path())
			continue
		}
		if reachedThroughLink(node.Path(), linkedPaths) {
			continue
		}
		dirty, dirtyError := engine.repositoryModified(executionContext, resolved, node)
		if dirtyError != nil {
			return dirtyError
		}
		if dirty {
			refusals = append(refusals, LocalChangesError{Path: node.Path()})
		}
	}
	return errors.Join(refusals...)
}

// repositoryModified reports whether node is a cloned repository holding local changes.
func (engine *Engine) repositoryModified(executionContext context.Context, resolved *tree.Tree, node *tree.Node) (bool, error) {
	info, statError := engine.fileSystem.Lstat(filepath.Join(node.Directory(), gitMetadataDirectoryConstant))
	if errors.Is(statError, fs.ErrNotExist) {
		return false, nil
	}
	if statError != nil {
		return false, CollaboratorFailureError{Path: node.Path(), Operation: inspectOperationConstant, Err: statError}
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return false, nil
	}
	var dirty bool
	checkError := engine.external(executionContext, func() error {
		var changesError error
		dirty, changesError = engine.repositories.HasLocalChanges(executionContext, resolved.Invocation().WithNode(node.Path()), node.Directory())
		return changesError
	})
	if checkError != nil {
		return false, CollaboratorFailureError{Path: node.Path(), Operation: inspectOperationConstant, Err: checkError}
	}
	return dirty, nil
}

// deleteNodeDirectory removes a link without touching its target, or a checkout with its contents.
func (engine *Engine) deleteNodeDirectory(node *tree.Node) error {
	directory := node.Directory()
	info, statError := engine.fileSystem.Lstat(directory)
	if errors.Is(statError, fs.ErrNotExist) {
		return nil
	}
	if statError != nil {
		return statError
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return engine.fileSystem.Remove(directory)
	}
	return engine.fileSystem.RemoveAll(directory)
}

func reachedThroughLink(nodePath string, linkedPaths []string) bool {
	for _, linkedPath := range linkedPaths {
		if strings.HasPrefix(nodePath, linkedPath+"/") {
			return true
		}
	}
	return false
}
