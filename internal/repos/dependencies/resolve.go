package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/gitrepo"
	"github.com/temirov/gitp/internal/repos/discovery"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
)

// ResolveRepositoryDiscoverer returns the provided discoverer or a filesystem-backed default.
func ResolveRepositoryDiscoverer(existing shared.RepositoryDiscoverer) shared.RepositoryDiscoverer {
	if existing != nil {
		return existing
	}
	return discovery.NewFilesystemRepositoryDiscoverer()
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveShellExecutor constructs the shell-backed executor that runs git and hook commands.
func ResolveShellExecutor(logger *zap.Logger) (*execshell.ShellExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}

// ResolveGitExecutor returns the provided executor or the shell executor.
func ResolveGitExecutor(existing shared.GitExecutor, shellExecutor *execshell.ShellExecutor) shared.GitExecutor {
	if existing != nil {
		return existing
	}
	return shellExecutor
}

// ResolveHookExecutor returns the provided hook executor or the shell executor.
func ResolveHookExecutor(existing shared.HookExecutor, shellExecutor *execshell.ShellExecutor) shared.HookExecutor {
	if existing != nil {
		return existing
	}
	return shellExecutor
}

// ResolveGitRepositoryManager returns the provided repository manager or constructs one from the executor.
func ResolveGitRepositoryManager(existing shared.GitRepositoryManager, executor shared.GitExecutor) (shared.GitRepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}

// ResolveRepositoryInspector returns the provided inspector or a go-git backed default.
func ResolveRepositoryInspector(existing shared.RepositoryInspector) shared.RepositoryInspector {
	if existing != nil {
		return existing
	}
	return gitrepo.NewInspector()
}
