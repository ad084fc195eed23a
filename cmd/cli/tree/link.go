package tree

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/treesync"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	linkUseConstant              = "link <path> <source>"
	linkShortDescriptionConstant = "Declare a symbolic link in place of a repository"
	linkLongDescriptionConstant  = "link records <source> as the target of <path> in the manifest of the repository containing <path> and replaces the directory with a symbolic link. With --overlay the link is declared in the entry-point manifest and applied after every pull."
	linkOverlayFlagNameConstant  = "overlay"
	linkOverlayFlagUsage         = "Declare the link as an overlay of the entry-point repository"
	linkNewestFlagNameConstant   = "newest"
	linkNewestFlagUsage          = "Link the most recently modified subdirectory of <source>"
	linkFilterFlagNameConstant   = "filter"
	linkFilterFlagUsage          = "Regular expression restricting the subdirectories considered by --newest"
	linkForceFlagUsage           = "Link even when <source> is missing or <path> holds local changes"
	linkArgumentCountConstant    = 2
)

// LinkCommandBuilder assembles the link command.
type LinkCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the link command.
func (builder *LinkCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   linkUseConstant,
		Short: linkShortDescriptionConstant,
		Long:  linkLongDescriptionConstant,
		Args:  cobra.ExactArgs(linkArgumentCountConstant),
	}

	options := treesync.LinkOptions{}
	flagutils.AddToggleFlag(command.Flags(), &options.Overlay, linkOverlayFlagNameConstant, "", false, linkOverlayFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), &options.Newest, linkNewestFlagNameConstant, "", false, linkNewestFlagUsage)
	command.Flags().StringVar(&options.Filter, linkFilterFlagNameConstant, "", linkFilterFlagUsage)
	force := flagutils.BindForceFlag(command, linkForceFlagUsage)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		runOptions := options
		runOptions.Force = *force
		return builder.run(command, arguments, runOptions)
	}
	return command, nil
}

func (builder *LinkCommandBuilder) run(command *cobra.Command, arguments []string, options treesync.LinkOptions) error {
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
	options.Source = runtime.linkSource(resolved, arguments[1])

	engine, engineError := runtime.engine(options.Force)
	if engineError != nil {
		return engineError
	}
	return runtime.finish(engine.CreateLink(command.Context(), resolved, nodePath, options))
}
