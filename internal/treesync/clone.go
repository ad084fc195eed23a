package treesync

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/temirov/gitp/internal/gitrepo"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	cloneOperationConstant    = "clone"
	checkoutOperationConstant = "checkout"
	clonedTemplateConstant    = "CLONED: %s (%s)\n"
)

// CloneRoot clones sourceURL into destination as a new entry-point root and then clones its tree.
func (engine *Engine) CloneRoot(executionContext context.Context, sourceURL string, branch string, destination string) (Result, error) {
	absoluteDestination, absError := engine.fileSystem.Abs(destination)
	if absError != nil {
		return Result{}, absError
	}
	invocationContext := invocation.New(absoluteDestination)
	if mkdirError := engine.fileSystem.MkdirAll(filepath.Dir(absoluteDestination), directoryPermissionsConstant); mkdirError != nil {
		return Result{}, CollaboratorFailureError{Operation: cloneOperationConstant, Err: mkdirError}
	}
	cloneError := engine.external(executionContext, func() error {
		return engine.repositories.Clone(executionContext, invocationContext, gitrepo.CloneOptions{SourceURL: sourceURL, Branch: branch, DestinationPath: absoluteDestination})
	})
	if cloneError != nil {
		return Result{}, CollaboratorFailureError{Operation: cloneOperationConstant, Err: cloneError}
	}
	engine.reporter.Printf(clonedTemplateConstant, invocation.DisplayPath(""), sourceURL)

	resolved, resolveError := engine.resolver.ResolveInvocation(invocationContext)
	if resolveError != nil {
		return Result{}, resolveError
	}
	return engine.cloneTree(executionContext, resolved, true)
}

// Clone materializes every absent node of resolved. Hooks run parent-before-children and the
// overlays of the entry-point root are applied after the whole tree.
func (engine *Engine) Clone(executionContext context.Context, resolved *tree.Tree) (Result, error) {
	return engine.cloneTree(executionContext, resolved, false)
}

func (engine *Engine) cloneTree(executionContext context.Context, resolved *tree.Tree, rootFresh bool) (Result, error) {
	state := newRun()
	if rootFresh {
		state.markChanged("")
	}
	if cloneError := engine.cloneNode(executionContext, state, resolved, resolved.Root(), rootFresh); cloneError != nil {
		return state.result(resolved), cloneError
	}

	final, resolveError := engine.resolver.ResolveBelow(resolved, "")
	if resolveError != nil {
		return state.result(resolved), resolveError
	}
	engine.applyOverlays(executionContext, state, final)
	return state.result(final), executionContext.Err()
}

// cloneNode materializes the absent children of node, runs the node's post_clone hooks when the node
// or any child was materialized, and then recurses into the repository children.
func (engine *Engine) cloneNode(executionContext context.Context, state *run, resolved *tree.Tree, node *tree.Node, fresh bool) error {
	children := syncableChildren(resolved, node.Path())

	var outcomeMutex sync.Mutex
	materialized := make(map[string]bool, len(children))
	failed := make(map[string]bool)
	materializeError := engine.forEach(executionContext, children, func(childContext context.Context, child *tree.Node) error {
		childMaterialized, childError := engine.materialize(childContext, resolved, child)
		outcomeMutex.Lock()
		defer outcomeMutex.Unlock()
		if childError != nil {
			failed[child.Path()] = true
			engine.fail(state, child.Path(), childError)
			return childContext.Err()
		}
		if childMaterialized {
			materialized[child.Path()] = true
			state.markChanged(child.Path())
		}
		return nil
	})
	if materializeError != nil {
		return materializeError
	}

	if hooks := node.PostClone(); (fresh || len(materialized) > 0) && len(hooks) > 0 {
		if hookError := engine.runHooks(executionContext, resolved, node, postCloneHookConstant, hooks); hookError != nil {
			engine.fail(state, node.Path(), hookError)
			return nil
		}
	}

	var recursive []*tree.Node
	for _, child := range children {
		if failed[child.Path()] || child.IsLink() {
			continue
		}
		recursive = append(recursive, child)
	}
	return engine.forEach(executionContext, recursive, func(childContext context.Context, child *tree.Node) error {
		childTree := resolved
		if materialized[child.Path()] {
			expanded, expandError := engine.resolver.ResolveBelow(resolved, child.Path())
			if expandError != nil {
				engine.fail(state, child.Path(), expandError)
				return nil
			}
			childTree = expanded
		}
		current, exists := childTree.Node(child.Path())
		if !exists {
			return nil
		}
		return engine.cloneNode(childContext, state, childTree, current, materialized[child.Path()])
	})
}

// materialize brings an absent child into existence: a clone for repositories, a symlink for links.
// It reports whether anything was created.
func (engine *Engine) materialize(executionContext context.Context, resolved *tree.Tree, child *tree.Node) (bool, error) {
	if child.IsLink() {
		return engine.ensureLink(executionContext, resolved, child, shared.CleanWorktreePolicyFromForce(engine.options.Force))
	}

	present, presenceError := engine.exists(child.Directory())
	if presenceError != nil {
		return false, CollaboratorFailureError{Path: child.Path(), Operation: inspectOperationConstant, Err: presenceError}
	}
	if present {
		return false, nil
	}
	if cloneError := engine.cloneRepository(executionContext, resolved, child); cloneError != nil {
		return false, cloneError
	}
	return true, nil
}

func (engine *Engine) cloneRepository(executionContext context.Context, resolved *tree.Tree, child *tree.Node) error {
	target := child.EffectiveTarget()
	invocationContext := resolved.Invocation().WithNode(child.Path())
	if mkdirError := engine.fileSystem.MkdirAll(filepath.Dir(child.Directory()), directoryPermissionsConstant); mkdirError != nil {
		return CollaboratorFailureError{Path: child.Path(), Operation: cloneOperationConstant, Err: mkdirError}
	}

	cloneError := engine.external(executionContext, func() error {
		return engine.repositories.Clone(executionContext, invocationContext, gitrepo.CloneOptions{SourceURL: target.URL, Branch: target.Branch, DestinationPath: child.Directory()})
	})
	if cloneError != nil {
		return CollaboratorFailureError{Path: child.Path(), Operation: cloneOperationConstant, Err: cloneError}
	}
	if len(target.Commit) > 0 {
		checkoutError := engine.external(executionContext, func() error {
			return engine.repositories.Checkout(executionContext, invocationContext, child.Directory(), target.Commit)
		})
		if checkoutError != nil {
			return CollaboratorFailureError{Path: child.Path(), Operation: checkoutOperationConstant, Err: checkoutError}
		}
	}
	engine.reporter.Printf(clonedTemplateConstant, child.Path(), target.String())
	return nil
}

func (engine *Engine) exists(path string) (bool, error) {
	_, statError := engine.fileSystem.Lstat(path)
	if statError == nil {
		return true, nil
	}
	if errors.Is(statError, fs.ErrNotExist) {
		return false, nil
	}
	return false, statError
}
