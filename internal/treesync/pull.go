package treesync

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	fetchOperationConstant     = "fetch"
	pullOperationConstant      = "pull"
	revisionOperationConstant  = "rev-parse"
	updatedTemplateConstant    = "UPDATED: %s (%s -> %s)\n"
	rootSkippedMessageConstant = "Skipping entry-point root update"
	shortCommitLengthConstant  = 8
)

// Pull brings every node to its target. Each node is updated first, then its children are pulled,
// then its post_pull hooks run when anything below it changed. At the entry-point root the overlays
// are applied last, and only when the root's hooks succeeded.
func (engine *Engine) Pull(executionContext context.Context, resolved *tree.Tree) (Result, error) {
	state := newRun()
	_, completed, pullError := engine.pullNode(executionContext, state, resolved, resolved.Root(), true)
	if pullError != nil {
		return state.result(resolved), pullError
	}

	final, resolveError := engine.resolver.ResolveBelow(resolved, "")
	if resolveError != nil {
		return state.result(resolved), resolveError
	}
	if completed {
		engine.applyOverlays(executionContext, state, final)
	} else {
		for _, overlayNode := range final.OverlayNodes() {
			engine.reporter.Printf(overlaySkippedTemplateConstant, invocation.DisplayPath(overlayNode.Path()))
		}
	}
	return state.result(final), executionContext.Err()
}

// PullTarget updates the node at nodePath alone or, when recursive, together with its subtree. The
// node's post_pull hooks run when anything it covered changed; hooks of its ancestors and the overlays
// of the entry-point root are left alone. A missing node is cloned with its subtree either way.
func (engine *Engine) PullTarget(executionContext context.Context, resolved *tree.Tree, nodePath string, recursive bool) (Result, error) {
	normalizedPath := invocation.NormalizePath(nodePath)
	node, exists := resolved.Node(normalizedPath)
	if !exists {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, invocation.DisplayPath(normalizedPath))
	}
	if node.IsOverlay() {
		return Result{}, fmt.Errorf(declarationErrorTemplateConstant, ErrOverlayTarget, normalizedPath)
	}
	if node.IsRoot() && recursive {
		return engine.Pull(executionContext, resolved)
	}

	state := newRun()
	if _, _, pullError := engine.pullNode(executionContext, state, resolved, node, recursive); pullError != nil {
		return state.result(resolved), pullError
	}
	final, resolveError := engine.resolver.ResolveBelow(resolved, "")
	if resolveError != nil {
		return state.result(resolved), resolveError
	}
	return state.result(final), executionContext.Err()
}

// pullNode reports whether the node or any descendant changed and whether the node itself,
// including its hooks, completed. Children are visited only when recursive.
func (engine *Engine) pullNode(executionContext context.Context, state *run, resolved *tree.Tree, node *tree.Node, recursive bool) (bool, bool, error) {
	var (
		changed bool
		current = resolved
	)

	if node.IsRoot() {
		rootChanged, rootError := engine.updateRoot(executionContext, resolved)
		if rootError != nil {
			engine.fail(state, node.Path(), rootError)
			return false, false, nil
		}
		if rootChanged {
			state.markChanged(node.Path())
			expanded, expandError := engine.resolver.ResolveBelow(resolved, node.Path())
			if expandError != nil {
				engine.fail(state, node.Path(), expandError)
				return true, false, nil
			}
			current = expanded
		}
		changed = rootChanged
	} else {
		if node.IsLink() {
			linkChanged, linkError := engine.ensureLink(executionContext, resolved, node, shared.CleanWorktreePolicyFromForce(engine.options.Force))
			if linkError != nil {
				engine.fail(state, node.Path(), linkError)
				return false, false, nil
			}
			if linkChanged {
				state.markChanged(node.Path())
			}
			return linkChanged, true, nil
		}

		present, presenceError := engine.exists(node.Directory())
		if presenceError != nil {
			engine.fail(state, node.Path(), CollaboratorFailureError{Path: node.Path(), Operation: inspectOperationConstant, Err: presenceError})
			return false, false, nil
		}
		if !present {
			return engine.cloneAbsent(executionContext, state, resolved, node)
		}

		nodeChanged, updateError := engine.updateRepository(executionContext, resolved, node)
		if updateError != nil {
			engine.fail(state, node.Path(), updateError)
			return false, false, nil
		}
		if nodeChanged {
			state.markChanged(node.Path())
			expanded, expandError := engine.resolver.ResolveBelow(resolved, node.Path())
			if expandError != nil {
				engine.fail(state, node.Path(), expandError)
				return true, false, nil
			}
			current = expanded
		}
		changed = nodeChanged
	}

	currentNode, exists := current.Node(node.Path())
	if !exists {
		return changed, true, nil
	}

	var children []*tree.Node
	if recursive {
		children = syncableChildren(current, node.Path())
	}
	var descendantsChanged atomic.Bool
	childrenError := engine.forEach(executionContext, children, func(childContext context.Context, child *tree.Node) error {
		childChanged, _, childError := engine.pullNode(childContext, state, current, child, true)
		if childChanged {
			descendantsChanged.Store(true)
		}
		return childError
	})
	if childrenError != nil {
		return changed, false, childrenError
	}

	anythingChanged := changed || descendantsChanged.Load()
	if hooks := currentNode.PostPull(); anythingChanged && len(hooks) > 0 {
		if hookError := engine.runHooks(executionContext, current, currentNode, postPullHookConstant, hooks); hookError != nil {
			engine.fail(state, node.Path(), hookError)
			return anythingChanged, false, nil
		}
	}
	return anythingChanged, true, nil
}

// cloneAbsent materializes a node that disappeared or was never cloned and clones its subtree.
func (engine *Engine) cloneAbsent(executionContext context.Context, state *run, resolved *tree.Tree, node *tree.Node) (bool, bool, error) {
	if cloneError := engine.cloneRepository(executionContext, resolved, node); cloneError != nil {
		engine.fail(state, node.Path(), cloneError)
		return false, false, nil
	}
	state.markChanged(node.Path())
	expanded, expandError := engine.resolver.ResolveBelow(resolved, node.Path())
	if expandError != nil {
		engine.fail(state, node.Path(), expandError)
		return true, false, nil
	}
	current, exists := expanded.Node(node.Path())
	if !exists {
		return true, true, nil
	}
	return true, true, engine.cloneNode(executionContext, state, expanded, current, true)
}

// updateRepository fetches and moves an existing checkout to its declared revision.
func (engine *Engine) updateRepository(executionContext context.Context, resolved *tree.Tree, node *tree.Node) (bool, error) {
	invocationContext := resolved.Invocation().WithNode(node.Path())
	directory := node.Directory()
	target := node.EffectiveTarget()
	remoteName := engine.options.RemoteName

	before, headError := engine.resolveHead(executionContext, invocationContext, node.Path(), directory)
	if headError != nil {
		return false, headError
	}
	if fetchError := engine.external(executionContext, func() error {
		return engine.repositories.Fetch(executionContext, invocationContext, directory, remoteName)
	}); fetchError != nil {
		return false, CollaboratorFailureError{Path: node.Path(), Operation: fetchOperationConstant, Err: fetchError}
	}

	switch {
	case len(target.Commit) > 0:
		if !strings.HasPrefix(before, target.Commit) {
			if checkoutError := engine.external(executionContext, func() error {
				return engine.repositories.Checkout(executionContext, invocationContext, directory, target.Commit)
			}); checkoutError != nil {
				return false, CollaboratorFailureError{Path: node.Path(), Operation: checkoutOperationConstant, Err: checkoutError}
			}
		}
	default:
		if len(target.Branch) > 0 {
			if checkoutError := engine.external(executionContext, func() error {
				return engine.repositories.Checkout(executionContext, invocationContext, directory, target.Branch)
			}); checkoutError != nil {
				return false, CollaboratorFailureError{Path: node.Path(), Operation: checkoutOperationConstant, Err: checkoutError}
			}
		}
		if pullError := engine.external(executionContext, func() error {
			return engine.repositories.PullFastForward(executionContext, invocationContext, directory, remoteName, target.Branch)
		}); pullError != nil {
			return false, CollaboratorFailureError{Path: node.Path(), Operation: pullOperationConstant, Err: pullError}
		}
	}

	after, headError := engine.resolveHead(executionContext, invocationContext, node.Path(), directory)
	if headError != nil {
		return false, headError
	}
	if before == after {
		return false, nil
	}
	engine.reporter.Printf(updatedTemplateConstant, node.Path(), shortCommit(before), shortCommit(after))
	return true, nil
}

// updateRoot fast-forwards the entry-point root when it is a repository tracking a remote branch.
func (engine *Engine) updateRoot(executionContext context.Context, resolved *tree.Tree) (bool, error) {
	if engine.inspector == nil {
		return false, nil
	}
	root := resolved.Root()
	repositoryState, inspectError := engine.inspector.Inspect(executionContext, root.Directory(), engine.options.RemoteName)
	if inspectError != nil || len(repositoryState.Branch) == 0 || !repositoryState.HasUpstream {
		engine.logger.Debug(rootSkippedMessageConstant, zap.String(pathLogFieldConstant, root.Directory()), zap.Error(inspectError))
		return false, nil
	}

	invocationContext := resolved.Invocation()
	remoteName := engine.options.RemoteName
	before, headError := engine.resolveHead(executionContext, invocationContext, root.Path(), root.Directory())
	if headError != nil {
		return false, headError
	}
	if fetchError := engine.external(executionContext, func() error {
		return engine.repositories.Fetch(executionContext, invocationContext, root.Directory(), remoteName)
	}); fetchError != nil {
		return false, CollaboratorFailureError{Operation: fetchOperationConstant, Err: fetchError}
	}
	if pullError := engine.external(executionContext, func() error {
		return engine.repositories.PullFastForward(executionContext, invocationContext, root.Directory(), remoteName, repositoryState.Branch)
	}); pullError != nil {
		return false, CollaboratorFailureError{Operation: pullOperationConstant, Err: pullError}
	}
	after, headError := engine.resolveHead(executionContext, invocationContext, root.Path(), root.Directory())
	if headError != nil {
		return false, headError
	}
	if before == after {
		return false, nil
	}
	engine.reporter.Printf(updatedTemplateConstant, invocation.DisplayPath(root.Path()), shortCommit(before), shortCommit(after))
	return true, nil
}

func (engine *Engine) resolveHead(executionContext context.Context, invocationContext invocation.Context, nodePath string, directory string) (string, error) {
	var head string
	headError := engine.external(executionContext, func() error {
		var resolveError error
		head, resolveError = engine.repositories.ResolveHead(executionContext, invocationContext, directory)
		return resolveError
	})
	if headError != nil {
		return "", CollaboratorFailureError{Path: nodePath, Operation: revisionOperationConstant, Err: headError}
	}
	return head, nil
}

func shortCommit(commit string) string {
	if len(commit) > shortCommitLengthConstant {
		return commit[:shortCommitLengthConstant]
	}
	return commit
}
