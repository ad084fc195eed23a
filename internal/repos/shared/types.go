package shared

import (
	"context"
	"io/fs"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/gitrepo"
	"github.com/temirov/gitp/internal/invocation"
)

const (
	// OriginRemoteNameConstant identifies the default remote every cloned repository tracks.
	OriginRemoteNameConstant = "origin"
)

// FileSystem exposes filesystem operations required by tree services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	Readlink(path string) (string, error)
	Symlink(target string, linkPath string) error
	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldPath string, newPath string) error
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	ReadDir(path string) ([]fs.DirEntry, error)
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// HookExecutor runs manifest hook commands.
type HookExecutor interface {
	ExecuteShell(executionContext context.Context, script string, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// GitRepositoryManager exposes the mutating and querying git operations synchronization relies on.
type GitRepositoryManager interface {
	Clone(executionContext context.Context, invocationContext invocation.Context, options gitrepo.CloneOptions) error
	Checkout(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, revision string) error
	Fetch(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) error
	PullFastForward(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, branch string) error
	ResolveHead(executionContext context.Context, invocationContext invocation.Context, repositoryPath string) (string, error)
	HasLocalChanges(executionContext context.Context, invocationContext invocation.Context, repositoryPath string) (bool, error)
	RemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) (string, error)
	SetRemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, remoteURL string) error
}

// RepositoryInspector reads the version-control state of a working tree without mutating it.
type RepositoryInspector interface {
	Inspect(executionContext context.Context, repositoryPath string, remoteName string) (gitrepo.RepositoryState, error)
}

// RepositoryDiscoverer locates the repository enclosing a directory.
type RepositoryDiscoverer interface {
	FindRepositoryRoot(startDirectory string) (string, error)
}
