package tree

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/treesync"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	rmUseConstant              = "rm <path>"
	rmShortDescriptionConstant = "Remove a child repository or link from the tree"
	rmLongDescriptionConstant  = "rm removes the declaration of <path> from the manifest of the nearest enclosing repository, drops its .gitignore line, and deletes its checkout or link. Removal is refused while the repository or one below it has local changes. Overlays are removed with unlink --overlay."
	rmForceFlagUsageConstant   = "Delete repositories that hold local changes"
	rmArgumentCountConstant    = 1
)

// RmCommandBuilder assembles the rm command.
type RmCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the rm command.
func (builder *RmCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   rmUseConstant,
		Short: rmShortDescriptionConstant,
		Long:  rmLongDescriptionConstant,
		Args:  cobra.ExactArgs(rmArgumentCountConstant),
	}
	force := flagutils.BindForceFlag(command, rmForceFlagUsageConstant)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, *force)
	}
	return command, nil
}

func (builder *RmCommandBuilder) run(command *cobra.Command, arguments []string, force bool) error {
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
	engine, engineError := runtime.engine(false)
	if engineError != nil {
		return engineError
	}
	return runtime.finish(engine.RemoveRepository(command.Context(), resolved, nodePath, treesync.RemoveOptions{Force: force}))
}
