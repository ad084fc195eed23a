package treesync

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/links"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	gitMetadataDirectoryConstant   = ".git"
	linkOperationConstant          = "link"
	inspectOperationConstant       = "inspect"
	linkedTemplateConstant         = "LINKED: %s -> %s\n"
	overlaidTemplateConstant       = "OVERLAID: %s -> %s\n"
	overlaySkippedTemplateConstant = "OVERLAY-SKIP: %s (post_pull failed)\n"
)

// ensureLink makes the node's directory a symlink to its effective target. An aligned link is left
// untouched. A real directory is replaced only when clean or when the policy allows discarding changes.
func (engine *Engine) ensureLink(executionContext context.Context, resolved *tree.Tree, node *tree.Node, policy shared.CleanWorktreePolicy) (bool, error) {
	linkPath := node.Directory()
	target := node.EffectiveTarget().LinkPath
	inspection, inspectError := engine.links.Inspect(linkPath, target)
	if inspectError != nil {
		return false, CollaboratorFailureError{Path: node.Path(), Operation: inspectOperationConstant, Err: inspectError}
	}

	switch inspection.State {
	case links.StateAligned:
		return false, nil
	case links.StateUnlinked:
		if policy.RequireClean() {
			dirty, dirtyError := engine.hasLocalContent(executionContext, resolved, node.Path(), linkPath)
			if dirtyError != nil {
				return false, CollaboratorFailureError{Path: node.Path(), Operation: inspectOperationConstant, Err: dirtyError}
			}
			if dirty {
				return false, LocalChangesError{Path: node.Path()}
			}
		}
		if removeError := engine.fileSystem.RemoveAll(linkPath); removeError != nil {
			return false, CollaboratorFailureError{Path: node.Path(), Operation: linkOperationConstant, Err: removeError}
		}
	case links.StateUnaligned:
		if removeError := engine.fileSystem.Remove(linkPath); removeError != nil {
			return false, CollaboratorFailureError{Path: node.Path(), Operation: linkOperationConstant, Err: removeError}
		}
	default:
		if mkdirError := engine.fileSystem.MkdirAll(filepath.Dir(linkPath), directoryPermissionsConstant); mkdirError != nil {
			return false, CollaboratorFailureError{Path: node.Path(), Operation: linkOperationConstant, Err: mkdirError}
		}
	}

	linkText, textError := links.SymlinkText(linkPath, target, node.RelativeLink())
	if textError != nil {
		return false, CollaboratorFailureError{Path: node.Path(), Operation: linkOperationConstant, Err: textError}
	}
	if symlinkError := engine.fileSystem.Symlink(linkText, linkPath); symlinkError != nil {
		return false, CollaboratorFailureError{Path: node.Path(), Operation: linkOperationConstant, Err: symlinkError}
	}
	if node.IsOverlay() {
		engine.reporter.Printf(overlaidTemplateConstant, invocation.DisplayPath(node.Path()), linkText)
	} else {
		engine.reporter.Printf(linkedTemplateConstant, invocation.DisplayPath(node.Path()), linkText)
	}
	return true, nil
}

// hasLocalContent reports whether replacing directory would lose work: uncommitted changes in a
// repository, or any content in a plain directory.
func (engine *Engine) hasLocalContent(executionContext context.Context, resolved *tree.Tree, nodePath string, directory string) (bool, error) {
	if _, statError := engine.fileSystem.Stat(filepath.Join(directory, gitMetadataDirectoryConstant)); statError == nil {
		var dirty bool
		checkError := engine.external(executionContext, func() error {
			var changesError error
			dirty, changesError = engine.repositories.HasLocalChanges(executionContext, resolved.Invocation().WithNode(nodePath), directory)
			return changesError
		})
		return dirty, checkError
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return false, statError
	}
	entries, readError := engine.fileSystem.ReadDir(directory)
	if readError != nil {
		return false, readError
	}
	return len(entries) > 0, nil
}

// applyOverlays materializes the overlay nodes of the entry-point root one at a time, shallowest first.
func (engine *Engine) applyOverlays(executionContext context.Context, state *run, resolved *tree.Tree) {
	engine.overlayMutex.Lock()
	defer engine.overlayMutex.Unlock()
	policy := shared.CleanWorktreePolicyFromForce(engine.options.Force)
	for _, overlayNode := range resolved.OverlayNodes() {
		if executionContext.Err() != nil {
			return
		}
		changed, overlayError := engine.ensureLink(executionContext, resolved, overlayNode, policy)
		if overlayError != nil {
			engine.fail(state, overlayNode.Path(), overlayError)
			continue
		}
		if changed {
			state.markChanged(overlayNode.Path())
		}
	}
}
