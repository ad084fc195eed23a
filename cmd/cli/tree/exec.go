package tree

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/treesync"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	execUseConstant              = "exec [flags] -- <command>..."
	execShortDescriptionConstant = "Run commands in the repositories of the tree"
	execLongDescriptionConstant  = "exec runs each command through the shell in every selected repository, in tree order. Repositories are selected by --target paths and --filter regular expressions matched against their tree paths; without either every repository is selected. Repositories that are not cloned, and links unless --links is given, are skipped."
	execTargetFlagNameConstant   = "target"
	execTargetFlagShorthand      = "t"
	execTargetFlagUsage          = "Repository to run in; repeatable"
	execFilterFlagNameConstant   = "filter"
	execFilterFlagShorthand      = "x"
	execFilterFlagUsage          = "Regular expression selecting repositories by tree path; repeatable"
	execModifiedFlagNameConstant = "modified"
	execModifiedFlagUsage        = "Only run in repositories with local changes"
	execLinksFlagNameConstant    = "links"
	execLinksFlagUsage           = "Also run in linked repositories"
	execPreviewFlagNameConstant  = "preview"
	execPreviewFlagUsage         = "Print what would run without running it"
	execMinimumArgumentsConstant = 1
)

// ExecCommandBuilder assembles the exec command.
type ExecCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the exec command.
func (builder *ExecCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   execUseConstant,
		Short: execShortDescriptionConstant,
		Long:  execLongDescriptionConstant,
		Args:  cobra.MinimumNArgs(execMinimumArgumentsConstant),
	}

	var targets []string
	options := treesync.ExecOptions{}
	command.Flags().StringArrayVarP(&targets, execTargetFlagNameConstant, execTargetFlagShorthand, nil, execTargetFlagUsage)
	command.Flags().StringArrayVarP(&options.Filters, execFilterFlagNameConstant, execFilterFlagShorthand, nil, execFilterFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), &options.Modified, execModifiedFlagNameConstant, "", false, execModifiedFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), &options.Links, execLinksFlagNameConstant, "", false, execLinksFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), &options.Preview, execPreviewFlagNameConstant, "", false, execPreviewFlagUsage)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		runOptions := options
		runOptions.Commands = arguments
		return builder.run(command, targets, runOptions)
	}
	return command, nil
}

func (builder *ExecCommandBuilder) run(command *cobra.Command, targets []string, options treesync.ExecOptions) error {
	runtime, runtimeError := newRuntime(command, builder.LoggerProvider, builder.ConfigurationProvider, builder.Collaborators)
	if runtimeError != nil {
		return failures.Aborted(runtimeError)
	}
	resolved, resolveError := runtime.resolveTree()
	if resolveError != nil {
		return resolveError
	}
	for _, target := range targets {
		nodePath, pathError := runtime.treePath(resolved, target)
		if pathError != nil {
			return pathError
		}
		options.Targets = append(options.Targets, nodePath)
	}
	engine, engineError := runtime.engine(false)
	if engineError != nil {
		return engineError
	}
	return runtime.finish(engine.Exec(command.Context(), resolved, options))
}
