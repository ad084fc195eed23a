package remotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	skipSameMessage                  = "REMOTE-SKIP: %s (%s already %s)\n"
	planMessage                      = "PLAN-REMOTE: %s %s %s -> %s\n"
	successMessage                   = "REMOTE: %s %s now %s\n"
	declarationErrorTemplateConstant = "%w: %s"
	remoteUpdatedMessageConstant     = "Updated remote url"
	pathLogFieldConstant             = "path"
	remoteLogFieldConstant           = "remote"
	urlLogFieldConstant              = "url"
	manifestLogFieldConstant         = "manifest"
)

// ErrUnknownPath indicates that the path is not a node of the tree.
var ErrUnknownPath = errors.New("path is not declared in any manifest")

// ErrNotRepository indicates that the node is materialized as a link and has no remote.
var ErrNotRepository = errors.New("path is a link, not a repository")

// ErrNodeAbsent indicates that the repository has not been cloned yet.
var ErrNodeAbsent = errors.New("repository is not cloned")

// ErrLinkedParent indicates that the node was declared by a repository reached through a link.
var ErrLinkedParent = errors.New("path is declared inside a linked repository")

// RemoteManager reads and rewrites remote URLs of a working tree.
type RemoteManager interface {
	RemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) (string, error)
	SetRemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, remoteURL string) error
}

// Options configures one remote update.
type Options struct {
	NodePath      string
	URL           string
	RemoteName    string
	// TrackedRemote names the remote whose URL manifests record.
	TrackedRemote string
	DryRun        bool
}

// Dependencies captures collaborators required to update remotes.
type Dependencies struct {
	Remotes    RemoteManager
	Store      *manifest.Store
	FileSystem shared.FileSystem
	Output     io.Writer
	Logger     *zap.Logger
}

// Executor points the remote of a tree node at a new URL and records the URL in the manifest
// that declares the node, so the next clone of the tree uses it too.
type Executor struct {
	dependencies Dependencies
}

// NewExecutor constructs an Executor from the provided dependencies.
func NewExecutor(dependencies Dependencies) *Executor {
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = filesystem.OSFileSystem{}
	}
	if dependencies.Store == nil {
		dependencies.Store = manifest.NewStore(dependencies.FileSystem, manifest.DefaultFileName, dependencies.Logger)
	}
	return &Executor{dependencies: dependencies}
}

// Execute updates the remote of options.NodePath. The declaring manifest changes only when the
// remote is the tracked remote.
func (executor *Executor) Execute(executionContext context.Context, resolved *tree.Tree, options Options) error {
	nodePath := invocation.NormalizePath(options.NodePath)
	remoteName := strings.TrimSpace(options.RemoteName)
	if len(remoteName) == 0 {
		remoteName = shared.OriginRemoteNameConstant
	}
	trackedRemote := strings.TrimSpace(options.TrackedRemote)
	if len(trackedRemote) == 0 {
		trackedRemote = shared.OriginRemoteNameConstant
	}
	targetURL, urlError := shared.NewRemoteURL(options.URL)
	if urlError != nil {
		return urlError
	}

	node, exists := resolved.Node(nodePath)
	if !exists {
		return fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, invocation.DisplayPath(nodePath))
	}
	if node.IsLink() {
		return fmt.Errorf(declarationErrorTemplateConstant, ErrNotRepository, invocation.DisplayPath(nodePath))
	}
	if _, statError := executor.dependencies.FileSystem.Stat(node.Directory()); statError != nil {
		return fmt.Errorf(declarationErrorTemplateConstant, ErrNodeAbsent, invocation.DisplayPath(nodePath))
	}

	var declaring *tree.Node
	if !node.IsRoot() {
		declaringNode, declaringError := declaringAncestor(resolved, nodePath)
		if declaringError != nil {
			return declaringError
		}
		declaring = declaringNode
	}

	invocationContext := resolved.Invocation().WithNode(nodePath)
	currentURL, currentError := executor.dependencies.Remotes.RemoteURL(executionContext, invocationContext, node.Directory(), remoteName)
	if currentError != nil {
		return currentError
	}
	recordsURL := declaring != nil && remoteName == trackedRemote
	declaredURL := strings.TrimSpace(node.Entry().URL)
	if currentURL == targetURL.String() && (!recordsURL || declaredURL == targetURL.String()) {
		executor.printfOutput(skipSameMessage, invocation.DisplayPath(nodePath), remoteName, targetURL)
		return nil
	}
	if options.DryRun {
		executor.printfOutput(planMessage, invocation.DisplayPath(nodePath), remoteName, currentURL, targetURL)
		return nil
	}

	if currentURL != targetURL.String() {
		if setError := executor.dependencies.Remotes.SetRemoteURL(executionContext, invocationContext, node.Directory(), remoteName, targetURL.String()); setError != nil {
			return setError
		}
	}

	manifestPath := ""
	if recordsURL {
		childPath := strings.TrimPrefix(nodePath, declaring.Path()+"/")
		if declaring.IsRoot() {
			childPath = nodePath
		}
		transaction := executor.dependencies.Store.Begin()
		updateError := transaction.Update(declaring.Directory(), func(declared *manifest.Manifest) error {
			entry, found := declared.Lookup(childPath)
			if !found {
				return fmt.Errorf(declarationErrorTemplateConstant, ErrUnknownPath, nodePath)
			}
			entry.URL = targetURL.String()
			declared.Set(childPath, entry)
			return nil
		})
		if updateError != nil {
			return updateError
		}
		if commitError := transaction.Commit(); commitError != nil {
			return commitError
		}
		manifestPath = executor.dependencies.Store.PathFor(declaring.Directory())
	}

	executor.dependencies.Logger.Info(
		remoteUpdatedMessageConstant,
		zap.String(pathLogFieldConstant, invocation.DisplayPath(nodePath)),
		zap.String(remoteLogFieldConstant, remoteName),
		zap.String(urlLogFieldConstant, targetURL.String()),
		zap.String(manifestLogFieldConstant, manifestPath),
	)
	executor.printfOutput(successMessage, invocation.DisplayPath(nodePath), remoteName, targetURL)
	return nil
}

func (executor *Executor) printfOutput(format string, arguments ...any) {
	fmt.Fprintf(executor.dependencies.Output, format, arguments...)
}

// declaringAncestor returns the nearest node above nodePath and refuses declarations that belong
// to a link target.
func declaringAncestor(resolved *tree.Tree, nodePath string) (*tree.Node, error) {
	candidatePath := invocation.ParentPath(nodePath)
	declaring, exists := resolved.Node(candidatePath)
	for !exists {
		candidatePath = invocation.ParentPath(candidatePath)
		declaring, exists = resolved.Node(candidatePath)
	}
	for ancestorPath := declaring.Path(); ; ancestorPath = invocation.ParentPath(ancestorPath) {
		if ancestor, found := resolved.Node(ancestorPath); found && ancestor.IsLink() {
			return nil, fmt.Errorf(declarationErrorTemplateConstant, ErrLinkedParent, invocation.DisplayPath(ancestorPath))
		}
		if len(ancestorPath) == 0 {
			break
		}
	}
	return declaring, nil
}
