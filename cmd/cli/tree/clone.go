package tree

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/temirov/gitp/internal/failures"
	"github.com/temirov/gitp/internal/repos/shared"
	flagutils "github.com/temirov/gitp/internal/utils/flags"
)

const (
	cloneUseConstant              = "clone <url> <destination>"
	cloneShortDescriptionConstant = "Clone a repository and every repository its manifests declare"
	cloneLongDescriptionConstant  = "clone materializes <url> at <destination>, then clones the children declared in its .gitp_manifest recursively, creates declared links, runs post_clone hooks parent before children, and applies overlays last."
	cloneBranchFlagUsageConstant  = "Branch to check out in the cloned repository"
	cloneArgumentCountConstant    = 2
)

// CloneCommandBuilder assembles the clone command.
type CloneCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Collaborators         Collaborators
}

// Build constructs the clone command.
func (builder *CloneCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   cloneUseConstant,
		Short: cloneShortDescriptionConstant,
		Long:  cloneLongDescriptionConstant,
		Args:  cobra.ExactArgs(cloneArgumentCountConstant),
	}
	branch := flagutils.BindBranchFlag(command, cloneBranchFlagUsageConstant)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, *branch)
	}
	return command, nil
}

func (builder *CloneCommandBuilder) run(command *cobra.Command, arguments []string, branch string) error {
	sourceURL, urlError := shared.NewRemoteURL(arguments[0])
	if urlError != nil {
		return failures.Aborted(urlError)
	}
	revision, revisionError := shared.ParseRevisionOptional(branch)
	if revisionError != nil {
		return failures.Aborted(revisionError)
	}
	destination, destinationError := shared.NewRepositoryPath(arguments[1])
	if destinationError != nil {
		return failures.Aborted(destinationError)
	}

	runtime, runtimeError := newRuntime(command, builder.LoggerProvider, builder.ConfigurationProvider, builder.Collaborators)
	if runtimeError != nil {
		return failures.Aborted(runtimeError)
	}
	engine, engineError := runtime.engine(false)
	if engineError != nil {
		return engineError
	}

	destinationPath := runtime.sanitizer.Source(destination.String())
	if !filepath.IsAbs(destinationPath) {
		destinationPath = filepath.Join(runtime.workingDirectory, destinationPath)
	}
	return runtime.finish(engine.CloneRoot(command.Context(), sourceURL.String(), revision, destinationPath))
}
