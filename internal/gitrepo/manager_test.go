package gitrepo_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/gitrepo"
	"github.com/temirov/gitp/internal/invocation"
)

type stubGitExecutor struct {
	result          execshell.ExecutionResult
	err             error
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	return executor.result, executor.err
}

func TestRepositoryManagerBuildsGitCommands(testInstance *testing.T) {
	rootContext := invocation.NewWithIdentifier("/work/root", ulid.MustParse("01HZY3J0Q8X5R9V2C7N4M6K1PB"))
	childContext := rootContext.WithNode("child")
	childDirectory := filepath.Join("/work/root", "child")

	testCases := []struct {
		name                     string
		invoke                   func(manager *gitrepo.RepositoryManager) error
		expectedArguments        []string
		expectedWorkingDirectory string
		expectedParentValue      string
	}{
		{
			name: "clone_at_branch_runs_in_parent_directory",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Clone(context.Background(), childContext, gitrepo.CloneOptions{SourceURL: "https://example.com/child.git", Branch: "main", DestinationPath: childDirectory})
			},
			expectedArguments:        []string{"clone", "--branch", "main", "https://example.com/child.git", childDirectory},
			expectedWorkingDirectory: "/work/root",
			expectedParentValue:      "0",
		},
		{
			name: "clone_without_branch_uses_remote_head",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Clone(context.Background(), childContext, gitrepo.CloneOptions{SourceURL: "https://example.com/child.git", DestinationPath: childDirectory})
			},
			expectedArguments:        []string{"clone", "https://example.com/child.git", childDirectory},
			expectedWorkingDirectory: "/work/root",
			expectedParentValue:      "0",
		},
		{
			name: "checkout_commit",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Checkout(context.Background(), childContext, childDirectory, "a1b2c3")
			},
			expectedArguments:        []string{"checkout", "--quiet", "a1b2c3"},
			expectedWorkingDirectory: childDirectory,
			expectedParentValue:      "0",
		},
		{
			name: "fetch_remote",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Fetch(context.Background(), rootContext, "/work/root", "origin")
			},
			expectedArguments:        []string{"fetch", "--quiet", "origin"},
			expectedWorkingDirectory: "/work/root",
			expectedParentValue:      "1",
		},
		{
			name: "pull_fast_forward_only",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.PullFastForward(context.Background(), rootContext, "/work/root", "origin", "main")
			},
			expectedArguments:        []string{"pull", "--ff-only", "--quiet", "origin", "main"},
			expectedWorkingDirectory: "/work/root",
			expectedParentValue:      "1",
		},
		{
			name: "pull_without_branch_follows_tracked_branch",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.PullFastForward(context.Background(), childContext, childDirectory, "origin", "")
			},
			expectedArguments:        []string{"pull", "--ff-only", "--quiet", "origin"},
			expectedWorkingDirectory: childDirectory,
			expectedParentValue:      "0",
		},
		{
			name: "set_remote_url",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.SetRemoteURL(context.Background(), childContext, childDirectory, "origin", " git@example.com:team/child.git ")
			},
			expectedArguments:        []string{"remote", "set-url", "origin", "git@example.com:team/child.git"},
			expectedWorkingDirectory: childDirectory,
			expectedParentValue:      "0",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{}
			manager, creationError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, testCase.invoke(manager))
			require.Len(testInstance, executor.recordedDetails, 1)
			recorded := executor.recordedDetails[0]
			require.Equal(testInstance, testCase.expectedArguments, recorded.Arguments)
			require.Equal(testInstance, testCase.expectedWorkingDirectory, recorded.WorkingDirectory)
			require.Equal(testInstance, testCase.expectedParentValue, recorded.EnvironmentVariables[invocation.ParentRepositoryEnvironmentVariable])
			require.Equal(testInstance, "0", recorded.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
		})
	}
}

func TestRepositoryManagerQueries(testInstance *testing.T) {
	rootContext := invocation.New("/work/root")

	headExecutor := &stubGitExecutor{result: execshell.ExecutionResult{StandardOutput: "abc123\n"}}
	headManager, _ := gitrepo.NewRepositoryManager(headExecutor)
	headCommit, headError := headManager.ResolveHead(context.Background(), rootContext, "/work/root")
	require.NoError(testInstance, headError)
	require.Equal(testInstance, "abc123", headCommit)

	statusExecutor := &stubGitExecutor{result: execshell.ExecutionResult{StandardOutput: " M README.md\n"}}
	statusManager, _ := gitrepo.NewRepositoryManager(statusExecutor)
	hasChanges, statusError := statusManager.HasLocalChanges(context.Background(), rootContext, "/work/root")
	require.NoError(testInstance, statusError)
	require.True(testInstance, hasChanges)
	require.Equal(testInstance, []string{"status", "--porcelain"}, statusExecutor.recordedDetails[0].Arguments)

	remoteExecutor := &stubGitExecutor{result: execshell.ExecutionResult{StandardOutput: "https://example.com/root.git\n"}}
	remoteManager, _ := gitrepo.NewRepositoryManager(remoteExecutor)
	remoteURL, remoteError := remoteManager.RemoteURL(context.Background(), rootContext, "/work/root", "origin")
	require.NoError(testInstance, remoteError)
	require.Equal(testInstance, "https://example.com/root.git", remoteURL)
	require.Equal(testInstance, []string{"remote", "get-url", "origin"}, remoteExecutor.recordedDetails[0].Arguments)
}

func TestRepositoryManagerWrapsFailures(testInstance *testing.T) {
	collaboratorError := errors.New("exit status 128")
	manager, _ := gitrepo.NewRepositoryManager(&stubGitExecutor{err: collaboratorError})

	cloneError := manager.Clone(context.Background(), invocation.New("/work"), gitrepo.CloneOptions{SourceURL: "https://example.com/x.git", DestinationPath: "/work/x"})
	require.ErrorIs(testInstance, cloneError, collaboratorError)

	missingError := manager.Clone(context.Background(), invocation.New("/work"), gitrepo.CloneOptions{DestinationPath: "/work/x"})
	require.ErrorIs(testInstance, missingError, gitrepo.ErrMissingArgument)

	missingURLError := manager.SetRemoteURL(context.Background(), invocation.New("/work"), "/work/x", "origin", " ")
	require.ErrorIs(testInstance, missingURLError, gitrepo.ErrMissingArgument)

	_, constructionError := gitrepo.NewRepositoryManager(nil)
	require.ErrorIs(testInstance, constructionError, gitrepo.ErrGitExecutorNotConfigured)
}
