package tree

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	pullUseConstant              = "pull"
	pullShortDescriptionConstant = "Bring every repository of the tree to its declared target"
	pullLongDescriptionConstant  = "pull updates the entry-point repository and every declared child to its branch or pinned commit, clones children that are missing, realigns links, runs post_pull hooks children before parents, and applies overlays last."
	pullForceFlagUsageConstant   = "Replace directories that hold local changes when a link takes their place"
	pullTargetFlagNameConstant   = "target"
	pullTargetFlagShorthand      = "T"
	pullTargetFlagUsage          = "Pull only this repository; a trailing / includes the repositories below it"
	pullSubtreeSuffixConstant    = "/"
)

// PullCommandBuilder assembles the pull command.
type PullCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the pull command.
func (builder *PullCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   pullUseConstant,
		Short: pullShortDescriptionConstant,
		Long:  pullLongDescriptionConstant,
		Args:  cobra.NoArgs,
	}
	force := flagutils.BindForceFlag(command, pullForceFlagUsageConstant)
	var target string
	command.Flags().StringVarP(&target, pullTargetFlagNameConstant, pullTargetFlagShorthand, "", pullTargetFlagUsage)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, *force, target)
	}
	return command, nil
}

func (builder *PullCommandBuilder) run(command *cobra.Command, force bool, target string) error {
	runtime, runtimeError := newRuntime(command, builder.LoggerProvider, builder.ConfigurationProvider, builder.Collaborators)
	if runtimeError != nil {
		return failures.Aborted(runtimeError)
	}
	resolved, resolveError := runtime.resolveTree()
	if resolveError != nil {
		return resolveError
	}
	engine, engineError := runtime.engine(force)
	if engineError != nil {
		return engineError
	}
	if len(strings.TrimSpace(target)) == 0 {
		return runtime.finish(engine.Pull(command.Context(), resolved))
	}
	nodePath, pathError := runtime.treePath(resolved, target)
	if pathError != nil {
		return pathError
	}
	recursive := strings.HasSuffix(filepath.ToSlash(strings.TrimSpace(target)), pullSubtreeSuffixConstant)
	return runtime.finish(engine.PullTarget(command.Context(), resolved, nodePath, recursive))
}
