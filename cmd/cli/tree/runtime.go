package tree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/links"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/dependencies"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/status"
	composition "github.com/temirov/gitp/internal/tree"
	"github.com/temirov/gitp/internal/treesync"
	"github.com/temirov/gitp/internal/ui"
	"github.com/temirov/gitp/internal/utils"
	pathutils "github.com/temirov/gitp/internal/utils/path"
)

const (
	outsideRootErrorTemplateConstant = "%w: %s is outside %s"
	workingDirectoryErrorTemplate    = "determine working directory: %w"
	entryPointRootResolvedMessage    = "Resolved entry-point root"
	entryPointRootLogFieldConstant   = "entry_point_root"
	workingDirectoryLogFieldConstant = "working_directory"
	commandLogFieldConstant          = "command"
	failureCountLogFieldConstant     = "failures"
	changedCountLogFieldConstant     = "changed"
	commandCompletedMessageConstant  = "Tree command completed"
	commandAbortedMessageConstant    = "Tree command aborted"
)

// ErrPathOutsideTree indicates that a path argument does not lie below the entry-point root.
var ErrPathOutsideTree = errors.New("path is outside the repository tree")

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider yields the tree configuration for command execution.
type ConfigurationProvider func() Configuration

// Collaborators lists the replaceable collaborators shared by tree commands. Nil values fall back
// to the operating system, the git executable, and go-git.
type Collaborators struct {
	FileSystem       shared.FileSystem
	GitExecutor      shared.GitExecutor
	HookExecutor     shared.HookExecutor
	GitManager       shared.GitRepositoryManager
	Inspector        shared.RepositoryInspector
	Inspectors       status.InspectorFactory
	Discoverer       shared.RepositoryDiscoverer
	WorkingDirectory string
}

// DiscoverEntryPointRoot returns the repository enclosing workingDirectory, or workingDirectory
// itself when it is not inside a repository.
func DiscoverEntryPointRoot(discoverer shared.RepositoryDiscoverer, workingDirectory string) string {
	repositoryRoot, discoveryError := dependencies.ResolveRepositoryDiscoverer(discoverer).FindRepositoryRoot(workingDirectory)
	if discoveryError != nil {
		return filepath.Clean(workingDirectory)
	}
	return repositoryRoot
}

type runtime struct {
	command          *cobra.Command
	configuration    Configuration
	logger           *zap.Logger
	collaborators    Collaborators
	fileSystem       shared.FileSystem
	store            *manifest.Store
	links            *links.Resolver
	resolver         *composition.Resolver
	sanitizer        *pathutils.ArgumentSanitizer
	workingDirectory string
}

func newRuntime(command *cobra.Command, loggerProvider LoggerProvider, configurationProvider ConfigurationProvider, collaborators Collaborators) (*runtime, error) {
	configuration := DefaultConfiguration()
	if configurationProvider != nil {
		configuration = configurationProvider()
	}
	configuration = configuration.sanitize()

	logger := resolveLogger(loggerProvider)
	fileSystem := dependencies.ResolveFileSystem(collaborators.FileSystem)

	workingDirectory := collaborators.WorkingDirectory
	if len(workingDirectory) == 0 {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return nil, fmt.Errorf(workingDirectoryErrorTemplate, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	homeExpander := pathutils.NewHomeExpander()
	store := manifest.NewStore(fileSystem, configuration.ManifestFileName, logger)
	linkResolver := links.NewResolver(fileSystem, homeExpander)

	return &runtime{
		command:          command,
		configuration:    configuration,
		logger:           logger,
		collaborators:    collaborators,
		fileSystem:       fileSystem,
		store:            store,
		links:            linkResolver,
		resolver:         composition.NewResolver(store, linkResolver, fileSystem, logger),
		sanitizer:        pathutils.NewArgumentSanitizer(homeExpander),
		workingDirectory: workingDirectory,
	}, nil
}

// entryPointRoot prefers the root recorded in the command context and otherwise discovers it
// from the working directory.
func (runtime *runtime) entryPointRoot() string {
	if runtime.command != nil {
		if entryPointRoot, available := utils.NewCommandContextAccessor().EntryPointRoot(runtime.command.Context()); available {
			return entryPointRoot
		}
	}
	entryPointRoot := DiscoverEntryPointRoot(runtime.collaborators.Discoverer, runtime.workingDirectory)
	runtime.logger.Debug(
		entryPointRootResolvedMessage,
		zap.String(entryPointRootLogFieldConstant, entryPointRoot),
		zap.String(workingDirectoryLogFieldConstant, runtime.workingDirectory),
	)
	return entryPointRoot
}

func (runtime *runtime) resolveTree() (*composition.Tree, error) {
	resolved, resolveError := runtime.resolver.Resolve(runtime.entryPointRoot())
	if resolveError != nil {
		return nil, failures.Aborted(resolveError)
	}
	return resolved, nil
}

// treePath converts a path argument into a node path of resolved.
func (runtime *runtime) treePath(resolved *composition.Tree, argument string) (string, error) {
	rootDirectory := resolved.Invocation().EntryPointRoot()
	nodePath, inside := runtime.sanitizer.TreePath(rootDirectory, runtime.workingDirectory, argument)
	if !inside {
		return "", failures.Aborted(fmt.Errorf(outsideRootErrorTemplateConstant, ErrPathOutsideTree, argument, rootDirectory))
	}
	return nodePath, nil
}

func (runtime *runtime) linkSource(resolved *composition.Tree, argument string) string {
	return runtime.sanitizer.RootRelativeSource(resolved.Invocation().EntryPointRoot(), runtime.workingDirectory, argument)
}

// executors resolves the git and hook executors, relaying hook output to the command output.
func (runtime *runtime) executors() (shared.GitExecutor, shared.HookExecutor, error) {
	gitExecutor := runtime.collaborators.GitExecutor
	hookExecutor := runtime.collaborators.HookExecutor
	if gitExecutor == nil || hookExecutor == nil {
		shellExecutor, shellError := dependencies.ResolveShellExecutor(runtime.logger)
		if shellError != nil {
			return nil, nil, failures.Aborted(shellError)
		}
		shellExecutor = shellExecutor.WithObserver(ui.NewHookOutputPrinter(runtime.command.OutOrStdout()))
		gitExecutor = dependencies.ResolveGitExecutor(gitExecutor, shellExecutor)
		hookExecutor = dependencies.ResolveHookExecutor(hookExecutor, shellExecutor)
	}
	return gitExecutor, hookExecutor, nil
}

func (runtime *runtime) repositories(gitExecutor shared.GitExecutor) (shared.GitRepositoryManager, error) {
	gitManager, managerError := dependencies.ResolveGitRepositoryManager(runtime.collaborators.GitManager, gitExecutor)
	if managerError != nil {
		return nil, failures.Aborted(managerError)
	}
	return gitManager, nil
}

func (runtime *runtime) engine(force bool) (*treesync.Engine, error) {
	gitExecutor, hookExecutor, executorError := runtime.executors()
	if executorError != nil {
		return nil, executorError
	}
	gitManager, managerError := runtime.repositories(gitExecutor)
	if managerError != nil {
		return nil, managerError
	}

	engine, engineError := treesync.NewEngine(
		treesync.Dependencies{
			Resolver:     runtime.resolver,
			Links:        runtime.links,
			Store:        runtime.store,
			Repositories: gitManager,
			Inspector:    dependencies.ResolveRepositoryInspector(runtime.collaborators.Inspector),
			Hooks:        hookExecutor,
			FileSystem:   runtime.fileSystem,
			Reporter:     shared.NewWriterReporter(runtime.command.OutOrStdout()),
			Logger:       runtime.logger,
		},
		treesync.Options{
			Jobs:       runtime.configuration.Jobs,
			RemoteName: runtime.configuration.Remote,
			Force:      force || runtime.configuration.Force,
		},
	)
	if engineError != nil {
		return nil, failures.Aborted(engineError)
	}
	return engine, nil
}

func (runtime *runtime) aggregator() *status.Aggregator {
	return status.NewAggregator(
		status.Dependencies{
			Inspectors: runtime.collaborators.Inspectors,
			Links:      runtime.links,
			FileSystem: runtime.fileSystem,
			Logger:     runtime.logger,
		},
		status.Options{Jobs: runtime.configuration.Jobs, RemoteName: runtime.configuration.Remote},
	)
}

// finish logs the outcome and converts it into the command error that selects the exit code.
func (runtime *runtime) finish(result treesync.Result, runError error) error {
	if runError != nil {
		runtime.logger.Error(commandAbortedMessageConstant, zap.String(commandLogFieldConstant, runtime.command.Name()), zap.Error(runError))
		return failures.Aborted(runError)
	}
	runtime.logger.Info(
		commandCompletedMessageConstant,
		zap.String(commandLogFieldConstant, runtime.command.Name()),
		zap.Int(changedCountLogFieldConstant, len(result.Changed)),
		zap.Int(failureCountLogFieldConstant, len(result.Failures)),
	)
	return result.Err()
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
