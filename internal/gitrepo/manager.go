package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/invocation"
)

const (
	gitCloneSubcommandConstant           = "clone"
	gitCheckoutSubcommandConstant        = "checkout"
	gitFetchSubcommandConstant           = "fetch"
	gitPullSubcommandConstant            = "pull"
	gitRevParseSubcommandConstant        = "rev-parse"
	gitStatusSubcommandConstant          = "status"
	gitRemoteSubcommandConstant          = "remote"
	gitGetURLSubcommandConstant          = "get-url"
	gitSetURLSubcommandConstant          = "set-url"
	gitBranchFlagConstant                = "--branch"
	gitQuietFlagConstant                 = "--quiet"
	gitFastForwardOnlyFlagConstant       = "--ff-only"
	gitPorcelainFlagConstant             = "--porcelain"
	gitHeadReferenceConstant             = "HEAD"
	gitTerminalPromptVariableConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant    = "0"
	cloneErrorTemplateConstant           = "clone %s into %s: %w"
	checkoutErrorTemplateConstant        = "checkout %s in %s: %w"
	fetchErrorTemplateConstant           = "fetch %s in %s: %w"
	pullErrorTemplateConstant            = "fast-forward %s to %s/%s: %w"
	resolveHeadErrorTemplateConstant     = "resolve HEAD in %s: %w"
	localChangesErrorTemplateConstant    = "inspect local changes in %s: %w"
	getRemoteURLErrorTemplateConstant    = "read url of remote %s in %s: %w"
	setRemoteURLErrorTemplateConstant    = "set url of remote %s in %s: %w"
	missingArgumentErrorTemplateConstant = "%w: %s"
)

// ErrGitExecutorNotConfigured indicates that the repository manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New("git executor not configured")

// ErrMissingArgument indicates that a required operation argument was empty.
var ErrMissingArgument = errors.New("missing required argument")

// CloneOptions describes a clone of SourceURL into DestinationPath.
type CloneOptions struct {
	SourceURL       string
	Branch          string
	DestinationPath string
}

// RepositoryManager runs git operations through a GitExecutor.
type RepositoryManager struct {
	executor execshell.GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor execshell.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// Clone materializes options.SourceURL at options.DestinationPath, checking out options.Branch when set.
func (manager *RepositoryManager) Clone(executionContext context.Context, invocationContext invocation.Context, options CloneOptions) error {
	sourceURL := strings.TrimSpace(options.SourceURL)
	destinationPath := strings.TrimSpace(options.DestinationPath)
	if len(sourceURL) == 0 {
		return fmt.Errorf(missingArgumentErrorTemplateConstant, ErrMissingArgument, "source url")
	}
	if len(destinationPath) == 0 {
		return fmt.Errorf(missingArgumentErrorTemplateConstant, ErrMissingArgument, "destination path")
	}

	arguments := []string{gitCloneSubcommandConstant}
	if branch := strings.TrimSpace(options.Branch); len(branch) > 0 {
		arguments = append(arguments, gitBranchFlagConstant, branch)
	}
	arguments = append(arguments, sourceURL, destinationPath)

	details := manager.commandDetails(invocationContext, filepath.Dir(destinationPath), arguments...)
	if _, executionError := manager.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(cloneErrorTemplateConstant, sourceURL, destinationPath, executionError)
	}
	return nil
}

// Checkout moves repositoryPath to revision, which may be a branch, tag, or commit.
func (manager *RepositoryManager) Checkout(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, revision string) error {
	trimmedRevision := strings.TrimSpace(revision)
	if len(trimmedRevision) == 0 {
		return fmt.Errorf(missingArgumentErrorTemplateConstant, ErrMissingArgument, "revision")
	}
	details := manager.commandDetails(invocationContext, repositoryPath, gitCheckoutSubcommandConstant, gitQuietFlagConstant, trimmedRevision)
	if _, executionError := manager.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(checkoutErrorTemplateConstant, trimmedRevision, repositoryPath, executionError)
	}
	return nil
}

// Fetch updates remote-tracking references of remoteName.
func (manager *RepositoryManager) Fetch(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) error {
	details := manager.commandDetails(invocationContext, repositoryPath, gitFetchSubcommandConstant, gitQuietFlagConstant, remoteName)
	if _, executionError := manager.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(fetchErrorTemplateConstant, remoteName, repositoryPath, executionError)
	}
	return nil
}

// PullFastForward fast-forwards the checked out branch to remoteName/branch, refusing merges.
// An empty branch pulls the configured upstream.
func (manager *RepositoryManager) PullFastForward(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, branch string) error {
	arguments := []string{gitPullSubcommandConstant, gitFastForwardOnlyFlagConstant, gitQuietFlagConstant, remoteName}
	if trimmedBranch := strings.TrimSpace(branch); len(trimmedBranch) > 0 {
		arguments = append(arguments, trimmedBranch)
	}
	details := manager.commandDetails(invocationContext, repositoryPath, arguments...)
	if _, executionError := manager.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(pullErrorTemplateConstant, repositoryPath, remoteName, branch, executionError)
	}
	return nil
}

// ResolveHead returns the commit hash HEAD points at.
func (manager *RepositoryManager) ResolveHead(executionContext context.Context, invocationContext invocation.Context, repositoryPath string) (string, error) {
	details := manager.commandDetails(invocationContext, repositoryPath, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, details)
	if executionError != nil {
		return "", fmt.Errorf(resolveHeadErrorTemplateConstant, repositoryPath, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// HasLocalChanges reports whether the working tree has staged, unstaged, or untracked changes.
func (manager *RepositoryManager) HasLocalChanges(executionContext context.Context, invocationContext invocation.Context, repositoryPath string) (bool, error) {
	details := manager.commandDetails(invocationContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, details)
	if executionError != nil {
		return false, fmt.Errorf(localChangesErrorTemplateConstant, repositoryPath, executionError)
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// RemoteURL returns the fetch URL configured for remoteName.
func (manager *RepositoryManager) RemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) (string, error) {
	details := manager.commandDetails(invocationContext, repositoryPath, gitRemoteSubcommandConstant, gitGetURLSubcommandConstant, remoteName)
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, details)
	if executionError != nil {
		return "", fmt.Errorf(getRemoteURLErrorTemplateConstant, remoteName, repositoryPath, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// SetRemoteURL points remoteName at remoteURL.
func (manager *RepositoryManager) SetRemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, remoteURL string) error {
	trimmedURL := strings.TrimSpace(remoteURL)
	if len(trimmedURL) == 0 {
		return fmt.Errorf(missingArgumentErrorTemplateConstant, ErrMissingArgument, "remote url")
	}
	details := manager.commandDetails(invocationContext, repositoryPath, gitRemoteSubcommandConstant, gitSetURLSubcommandConstant, remoteName, trimmedURL)
	if _, executionError := manager.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(setRemoteURLErrorTemplateConstant, remoteName, repositoryPath, executionError)
	}
	return nil
}

func (manager *RepositoryManager) commandDetails(invocationContext invocation.Context, workingDirectory string, arguments ...string) execshell.CommandDetails {
	environment := invocationContext.Environment()
	environment[gitTerminalPromptVariableConstant] = gitTerminalPromptDisabledConstant
	return execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: environment,
	}
}
