package tree

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/treesync"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	unlinkUseConstant              = "unlink <path>"
	unlinkShortDescriptionConstant = "Remove a link declaration"
	unlinkLongDescriptionConstant  = "unlink removes the symbolic link at <path> and its manifest declaration. With --url the declaration is replaced by a repository that is cloned in place of the link. With --overlay the overlay declared in the entry-point manifest is removed."
	unlinkOverlayFlagNameConstant  = "overlay"
	unlinkOverlayFlagUsage         = "Remove an overlay of the entry-point repository"
	unlinkURLFlagNameConstant      = "url"
	unlinkURLFlagUsage             = "Repository cloned in place of the removed link"
	unlinkBranchFlagUsage          = "Branch of the repository given by --url"
	unlinkArgumentCountConstant    = 1
)

// UnlinkCommandBuilder assembles the unlink command.
type UnlinkCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the unlink command.
func (builder *UnlinkCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   unlinkUseConstant,
		Short: unlinkShortDescriptionConstant,
		Long:  unlinkLongDescriptionConstant,
		Args:  cobra.ExactArgs(unlinkArgumentCountConstant),
	}

	options := treesync.UnlinkOptions{}
	flagutils.AddToggleFlag(command.Flags(), &options.Overlay, unlinkOverlayFlagNameConstant, "", false, unlinkOverlayFlagUsage)
	command.Flags().StringVar(&options.URL, unlinkURLFlagNameConstant, "", unlinkURLFlagUsage)
	branch := flagutils.BindBranchFlag(command, unlinkBranchFlagUsage)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		runOptions := options
		runOptions.Branch = *branch
		return builder.run(command, arguments, runOptions)
	}
	return command, nil
}

func (builder *UnlinkCommandBuilder) run(command *cobra.Command, arguments []string, options treesync.UnlinkOptions) error {
	sourceURL, urlError := shared.ParseRemoteURLOptional(options.URL)
	if urlError != nil {
		return failures.Aborted(urlError)
	}
	if sourceURL != nil {
		options.URL = sourceURL.String()
	}
	revision, revisionError := shared.ParseRevisionOptional(options.Branch)
	if revisionError != nil {
		return failures.Aborted(revisionError)
	}
	options.Branch = revision

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
	return runtime.finish(engine.RemoveLink(command.Context(), resolved, nodePath, options))
}
