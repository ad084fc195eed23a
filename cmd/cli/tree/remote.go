package tree

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/repos/remotes"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	remoteUseConstant              = "remote <path> <url>"
	remoteShortDescriptionConstant = "Point a repository at a new remote URL"
	remoteLongDescriptionConstant  = "remote sets the URL of the tracked remote of the repository at <path> and records the URL in the manifest that declares it, so later clones of the tree use the new location."
	remoteNameFlagNameConstant     = "name"
	remoteNameFlagUsage            = "Remote to update; only the tracked remote is recorded in the manifest"
	remoteDryRunFlagNameConstant   = "dry-run"
	remoteDryRunFlagUsage          = "Print the change without applying it"
	remoteArgumentCountConstant    = 2
)

// RemoteCommandBuilder assembles the remote command.
type RemoteCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the remote command.
func (builder *RemoteCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   remoteUseConstant,
		Short: remoteShortDescriptionConstant,
		Long:  remoteLongDescriptionConstant,
		Args:  cobra.ExactArgs(remoteArgumentCountConstant),
	}

	options := remotes.Options{}
	command.Flags().StringVar(&options.RemoteName, remoteNameFlagNameConstant, "", remoteNameFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), &options.DryRun, remoteDryRunFlagNameConstant, "", false, remoteDryRunFlagUsage)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, options)
	}
	return command, nil
}

func (builder *RemoteCommandBuilder) run(command *cobra.Command, arguments []string, options remotes.Options) error {
	runtime, runtimeError := newRuntime(command, builder.LoggerProvider, builder.ConfigurationProvider, builder.Collaborators)
	if runtimeError != nil {
		return failures.Aborted(runtimeError)
	}
	resolved, resolveError := runtime.resolveTree()
	if resolveError != nil {
		return resolveError
	}
	nodePath, pathError := runtime.treePath(resolved, arguments[0])
	if pathError != nil {
		return pathError
	}
	gitExecutor, _, executorError := runtime.executors()
	if executorError != nil {
		return executorError
	}
	gitManager, managerError := runtime.repositories(gitExecutor)
	if managerError != nil {
		return managerError
	}

	options.NodePath = nodePath
	options.URL = arguments[1]
	options.TrackedRemote = runtime.configuration.Remote
	if len(options.RemoteName) == 0 {
		options.RemoteName = runtime.configuration.Remote
	}

	executor := remotes.NewExecutor(remotes.Dependencies{
		Remotes:    gitManager,
		Store:      runtime.store,
		FileSystem: runtime.fileSystem,
		Output:     command.OutOrStdout(),
		Logger:     runtime.logger,
	})
	if executeError := executor.Execute(command.Context(), resolved, options); executeError != nil {
		return failures.Aborted(executeError)
	}
	return nil
}
