package treesync

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/links"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
)

const (
	defaultJobsConstant          = 1
	defaultGitIgnoreFileConstant = ".gitignore"
	directoryPermissionsConstant = 0o755
	pathLogFieldConstant         = "path"
	targetLogFieldConstant       = "target"
	hookLogFieldConstant         = "hook"
	commandLogFieldConstant      = "command"
	kindLogFieldConstant         = "kind"
	errorLogFieldConstant        = "error"
	nodeFailedMessageConstant    = "Node synchronization failed"
)

var (
	// ErrTreeResolverNotConfigured indicates that the engine was constructed without a tree resolver.
	ErrTreeResolverNotConfigured = errors.New("tree resolver not configured")

	// ErrRepositoryManagerNotConfigured indicates that the engine was constructed without a git repository manager.
	ErrRepositoryManagerNotConfigured = errors.New("repository manager not configured")

	// ErrHookExecutorNotConfigured indicates that the engine was constructed without a hook executor.
	ErrHookExecutorNotConfigured = errors.New("hook executor not configured")
)

// Dependencies enumerates the collaborators the engine relies on.
type Dependencies struct {
	Resolver     *tree.Resolver
	Links        *links.Resolver
	Store        *manifest.Store
	Repositories shared.GitRepositoryManager
	Inspector    shared.RepositoryInspector
	Hooks        shared.HookExecutor
	FileSystem   shared.FileSystem
	Reporter     shared.Reporter
	Logger       *zap.Logger
}

// Options tune synchronization.
type Options struct {
	Jobs       int
	RemoteName string
	Force      bool
}

// Result summarizes one clone or pull.
type Result struct {
	Tree     *tree.Tree
	Failures []failures.Failure
	Changed  []string
}

// Err converts the recorded failures into an exit error, or nil when the run succeeded.
func (result Result) Err() error {
	return failures.FromFailures(result.Failures)
}

// Engine synchronizes resolved trees.
type Engine struct {
	resolver     *tree.Resolver
	links        *links.Resolver
	store        *manifest.Store
	repositories shared.GitRepositoryManager
	inspector    shared.RepositoryInspector
	hooks        shared.HookExecutor
	fileSystem   shared.FileSystem
	reporter     shared.Reporter
	logger       *zap.Logger
	options      Options
	limiter      *semaphore.Weighted
	overlayMutex sync.Mutex
}

// NewEngine constructs an Engine.
func NewEngine(dependencies Dependencies, options Options) (*Engine, error) {
	if dependencies.Resolver == nil {
		return nil, ErrTreeResolverNotConfigured
	}
	if dependencies.Repositories == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if dependencies.Hooks == nil {
		return nil, ErrHookExecutorNotConfigured
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = filesystem.OSFileSystem{}
	}
	if dependencies.Links == nil {
		dependencies.Links = links.NewResolver(dependencies.FileSystem, nil)
	}
	if dependencies.Store == nil {
		dependencies.Store = manifest.NewStore(dependencies.FileSystem, manifest.DefaultFileName, dependencies.Logger)
	}
	if dependencies.Reporter == nil {
		dependencies.Reporter = shared.NewDiscardReporter()
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if options.Jobs < defaultJobsConstant {
		options.Jobs = defaultJobsConstant
	}
	if len(options.RemoteName) == 0 {
		options.RemoteName = shared.OriginRemoteNameConstant
	}

	return &Engine{
		resolver:     dependencies.Resolver,
		links:        dependencies.Links,
		store:        dependencies.Store,
		repositories: dependencies.Repositories,
		inspector:    dependencies.Inspector,
		hooks:        dependencies.Hooks,
		fileSystem:   dependencies.FileSystem,
		reporter:     dependencies.Reporter,
		logger:       dependencies.Logger,
		options:      options,
		limiter:      semaphore.NewWeighted(int64(options.Jobs)),
	}, nil
}

// run carries the mutable state of one clone or pull.
type run struct {
	collector    *failures.Collector
	changedMutex sync.Mutex
	changed      map[string]bool
}

func newRun() *run {
	return &run{collector: failures.NewCollector(), changed: make(map[string]bool)}
}

func (state *run) markChanged(nodePath string) {
	state.changedMutex.Lock()
	defer state.changedMutex.Unlock()
	state.changed[nodePath] = true
}

// result merges the resolution failures of the final tree with the synchronization failures.
func (state *run) result(resolved *tree.Tree) Result {
	state.changedMutex.Lock()
	changedPaths := make([]string, 0, len(state.changed))
	for changedPath := range state.changed {
		changedPaths = append(changedPaths, changedPath)
	}
	state.changedMutex.Unlock()
	sort.Strings(changedPaths)

	merged := failures.NewCollector()
	seen := make(map[failures.Failure]bool)
	for _, failure := range append(resolved.Failures(), state.collector.Failures()...) {
		if seen[failure] {
			continue
		}
		seen[failure] = true
		merged.Append(failure)
	}
	return Result{Tree: resolved, Failures: merged.Failures(), Changed: changedPaths}
}

// fail records a node failure and logs it.
func (engine *Engine) fail(state *run, nodePath string, failure error) {
	state.collector.Record(nodePath, failure)
	engine.logger.Warn(nodeFailedMessageConstant, zap.String(pathLogFieldConstant, nodePath), zap.String(kindLogFieldConstant, string(failures.KindOf(failure))), zap.Error(failure))
}

// external bounds the number of concurrently running external processes.
func (engine *Engine) external(executionContext context.Context, operation func() error) error {
	if acquireError := engine.limiter.Acquire(executionContext, 1); acquireError != nil {
		return acquireError
	}
	defer engine.limiter.Release(1)
	return operation()
}

// forEach runs visit for every node, at most Jobs at a time, and waits for all of them.
func (engine *Engine) forEach(executionContext context.Context, nodes []*tree.Node, visit func(context.Context, *tree.Node) error) error {
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(engine.options.Jobs)
	for _, node := range nodes {
		currentNode := node
		group.Go(func() error {
			return visit(groupContext, currentNode)
		})
	}
	return group.Wait()
}

// syncableChildren returns the children handled by recursion; overlay nodes are applied separately.
func syncableChildren(resolved *tree.Tree, nodePath string) []*tree.Node {
	var children []*tree.Node
	for _, child := range resolved.Children(nodePath) {
		if child.IsOverlay() {
			continue
		}
		children = append(children, child)
	}
	return children
}
